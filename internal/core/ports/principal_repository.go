package ports

import (
	"context"

	"github.com/acmecorp/auth-service/internal/core/domain"
)

// PrincipalRepository is the credential store adapter. Implementations hide
// the user/admin split behind a single lookup surface: find operations check
// the user store first, then the admin store, and return
// domain.ErrPrincipalNotFound when neither matches. Uniqueness of username
// and email is enforced at the storage layer; Create surfaces violations as
// domain.ErrDuplicateUsername / domain.ErrDuplicateEmail.
type PrincipalRepository interface {
	FindByUsername(ctx context.Context, username string) (*domain.Principal, error)
	FindByEmail(ctx context.Context, email string) (*domain.Principal, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error)
	Update(ctx context.Context, p *domain.Principal) error
}
