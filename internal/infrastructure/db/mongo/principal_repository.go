package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/acmecorp/auth-service/internal/core/domain"
)

const (
	usersCollection  = "users"
	adminsCollection = "admins"
)

// PrincipalRepository is the Mongo-backed credential store. Users and admins
// live in separate collections; lookups check users first, then admins, so a
// username resolves to exactly one principal or none.
type PrincipalRepository struct {
	users  *mongo.Collection
	admins *mongo.Collection
}

func NewPrincipalRepository(db *mongo.Database) *PrincipalRepository {
	return &PrincipalRepository{
		users:  db.Collection(usersCollection),
		admins: db.Collection(adminsCollection),
	}
}

type mongoPrincipal struct {
	ID                    primitive.ObjectID `bson:"_id,omitempty"`
	Username              string             `bson:"username"`
	Email                 string             `bson:"email"`
	PasswordHash          string             `bson:"password_hash"`
	Role                  string             `bson:"role"`
	Enabled               bool               `bson:"enabled"`
	VerificationCode      string             `bson:"verification_code,omitempty"`
	VerificationExpiresAt int64              `bson:"verification_expires_at,omitempty"`
	CreatedAt             int64              `bson:"created_at"`
	UpdatedAt             int64              `bson:"updated_at"`
}

// EnsureIndexes creates the unique indexes backing the global uniqueness
// invariant for username and email in both collections.
func (r *PrincipalRepository) EnsureIndexes(ctx context.Context) error {
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}
	for _, coll := range []*mongo.Collection{r.users, r.admins} {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("ensure indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func (r *PrincipalRepository) collectionFor(role string) *mongo.Collection {
	if role == domain.RoleAdmin {
		return r.admins
	}
	return r.users
}

func (r *PrincipalRepository) Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error) {
	doc := toMongo(p)
	res, err := r.collectionFor(p.Role).InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, classifyDuplicate(err)
		}
		return nil, fmt.Errorf("insert principal: %w", err)
	}

	created := *p
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *PrincipalRepository) Update(ctx context.Context, p *domain.Principal) error {
	doc := toMongo(p)
	filter := bson.M{"username": p.Username}
	update := bson.M{"$set": bson.M{
		"email":                   doc.Email,
		"password_hash":           doc.PasswordHash,
		"enabled":                 doc.Enabled,
		"verification_code":       doc.VerificationCode,
		"verification_expires_at": doc.VerificationExpiresAt,
		"updated_at":              doc.UpdatedAt,
	}}

	res, err := r.collectionFor(p.Role).UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update principal: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrPrincipalNotFound
	}
	return nil
}

// FindByUsername resolves a principal across both variants: the user store is
// checked first, then the admin store.
func (r *PrincipalRepository) FindByUsername(ctx context.Context, username string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *PrincipalRepository) FindByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *PrincipalRepository) findOne(ctx context.Context, filter bson.M) (*domain.Principal, error) {
	for _, coll := range []*mongo.Collection{r.users, r.admins} {
		var mp mongoPrincipal
		err := coll.FindOne(ctx, filter).Decode(&mp)
		if err == mongo.ErrNoDocuments {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("find principal: %w", err)
		}
		return fromMongo(&mp), nil
	}
	return nil, domain.ErrPrincipalNotFound
}

func (r *PrincipalRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return r.exists(ctx, bson.M{"username": username})
}

func (r *PrincipalRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return r.exists(ctx, bson.M{"email": email})
}

func (r *PrincipalRepository) exists(ctx context.Context, filter bson.M) (bool, error) {
	for _, coll := range []*mongo.Collection{r.users, r.admins} {
		n, err := coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
		if err != nil {
			return false, fmt.Errorf("exists check: %w", err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

// classifyDuplicate maps a Mongo duplicate-key error to the violated field.
// Index names follow the driver default: "<field>_1".
func classifyDuplicate(err error) error {
	if strings.Contains(err.Error(), "email_1") {
		return domain.ErrDuplicateEmail
	}
	return domain.ErrDuplicateUsername
}

func toMongo(p *domain.Principal) mongoPrincipal {
	mp := mongoPrincipal{
		Username:     p.Username,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
		Role:         p.Role,
		Enabled:      p.Enabled,
		CreatedAt:    p.CreatedAt.Unix(),
		UpdatedAt:    p.UpdatedAt.Unix(),
	}
	mp.VerificationCode = p.VerificationCode
	if !p.VerificationExpiresAt.IsZero() {
		mp.VerificationExpiresAt = p.VerificationExpiresAt.Unix()
	}
	return mp
}

func fromMongo(mp *mongoPrincipal) *domain.Principal {
	p := &domain.Principal{
		ID:               mp.ID.Hex(),
		Username:         mp.Username,
		Email:            mp.Email,
		PasswordHash:     mp.PasswordHash,
		Role:             mp.Role,
		Enabled:          mp.Enabled,
		VerificationCode: mp.VerificationCode,
		CreatedAt:        unixToTime(mp.CreatedAt),
		UpdatedAt:        unixToTime(mp.UpdatedAt),
	}
	if mp.VerificationExpiresAt != 0 {
		p.VerificationExpiresAt = time.Unix(mp.VerificationExpiresAt, 0).UTC()
	}
	return p
}

func unixToTime(ts int64) time.Time {
	if ts == 0 {
		return time.Time{}
	}
	return time.Unix(ts, 0).UTC()
}
