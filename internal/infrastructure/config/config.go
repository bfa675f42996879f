package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port        string `env:"PORT,         default=8080"`
	Env         string `env:"ENV,          default=development"`
	LogLevel    string `env:"LOG_LEVEL,    default=info"`
	FrontendURL string `env:"FRONTEND_URL, default=http://localhost:3000"`

	JWT     JWTConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	Admin   AdminConfig
	Google  GoogleConfig
	Mailgun MailgunConfig
	Email   EmailConfig
}

type JWTConfig struct {
	// AccessSecret and RefreshSecret must differ and must both be set;
	// the token issuer refuses to start otherwise.
	AccessSecret  string        `env:"JWT_ACCESS_SECRET"`
	RefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	AccessTTL     time.Duration `env:"ACCESS_TOKEN_TTL, default=24h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=marketplace"`
}

type RedisConfig struct {
	Addr string `env:"REDIS_ADDR, default=localhost:6379"`
	DB   int    `env:"REDIS_DB,   default=0"`
}

type AdminConfig struct {
	// Emails is the exact-match allow-list; Domains grants admin to any
	// address under the domain.
	Emails  []string `env:"ADMIN_EMAILS"`
	Domains []string `env:"ADMIN_DOMAINS"`
}

type GoogleConfig struct {
	ClientID     string `env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `env:"GOOGLE_REDIRECT_URL"`
}

type MailgunConfig struct {
	Domain string `env:"MAILGUN_DOMAIN"`
	APIKey string `env:"MAILGUN_API_KEY"`
	Sender string `env:"MAIL_SENDER, default=no-reply@marketplace.local"`
}

type EmailConfig struct {
	Workers int `env:"EMAIL_WORKERS, default=4"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("load configuration: %w", err)
	}
	return &cfg, nil
}
