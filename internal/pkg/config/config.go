package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL, default=1h"`

	// OTP codes are fixed at 6 digits; only the windows are configurable.
	OtpTTL          time.Duration `env:"OTP_TTL,          default=5m"`
	VerificationTTL time.Duration `env:"VERIFICATION_TTL, default=15m"`

	// OtpStore selects the store backing the OTP service: "memory" for a
	// single instance, "redis" when running more than one replica.
	OtpStore    string `env:"OTP_STORE,    default=memory"`
	MailWorkers int    `env:"MAIL_WORKERS, default=4"`

	Mongo MongoConfig
	Redis RedisConfig
	SMTP  SMTPConfig
	Admin AdminConfig
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=auth_service"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT, default=587"`
	Username string `env:"SMTP_USERNAME"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
	StartTLS bool   `env:"SMTP_STARTTLS, default=true"`
}

// AdminConfig describes the bootstrap administrator seeded at startup when
// all three fields are set and the username is still free.
type AdminConfig struct {
	Username string `env:"ADMIN_USERNAME"`
	Email    string `env:"ADMIN_EMAIL"`
	Password string `env:"ADMIN_PASSWORD"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}
