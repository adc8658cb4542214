package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Server struct {
		Port string `env:"SERVER_PORT" envDefault:"1926"`
		Host string `env:"SERVER_HOST" envDefault:"localhost"`
		TLS  struct {
			Enabled  bool   `env:"USE_TLS" envDefault:"false"`
			CertFile string `env:"TLS_CERT_FILE" envDefault:"./certs/localhost.pem"`
			KeyFile  string `env:"TLS_KEY_FILE" envDefault:"./certs/localhost-key.pem"`
		}
		DeployDomain string `env:"DEPLOY_DOMAIN"`
		Debug        bool   `env:"ENABLE_DEBUG_ENDPOINTS"`
	}
	Auth struct {
		SessionSecret string        `env:"SESSION_SECRET"`
		TokenTTL      time.Duration `env:"AUTH_TOKEN_TTL" envDefault:"72h"`
	}
	Database struct {
		DSN      string `env:"DATABASE_DSN"`
		RedisURI string `env:"REDIS_URI"`
	}
	// API points the screens at a remote deployment of the booking API.
	// When BaseURL is empty the screens read through the local database.
	API struct {
		BaseURL  string        `env:"BOOKING_API_URL"`
		Token    string        `env:"BOOKING_API_TOKEN"`
		Timeout  time.Duration `env:"BOOKING_API_TIMEOUT" envDefault:"10s"`
		RetryMax int           `env:"BOOKING_API_RETRY_MAX" envDefault:"3"`
	}
	Query struct {
		CacheTTL time.Duration `env:"QUERY_CACHE_TTL" envDefault:"30s"`
	}
	Feedback struct {
		ListLimit int `env:"FEEDBACK_LIST_LIMIT" envDefault:"1000"`
	}
	Resend struct {
		APIKey        string `env:"RESEND_API_KEY"`
		DefaultSender string `env:"RESEND_DEFAULT_SENDER" envDefault:"noreply@booking-portal.app"`
	}
	Sentry struct {
		DSN string `env:"SENTRY_DSN"`
	}
	Slack struct {
		WebhookURL string `env:"SLACK_WEBHOOK_URL"`
	}
}

func Load() (*Config, error) {
	envStack := os.Getenv("ENV_STACK")

	if envStack != "" {
		filePath := "./env-files/.env." + envStack
		err := godotenv.Load(filePath)
		if err != nil {
			fmt.Printf("Error loading .env file: %s\n", err)
		}

		// Maintainer overrides that never get committed
		internalFilePath := "./env-files/.env.internal"
		err = godotenv.Load(internalFilePath)
		if err != nil {
			fmt.Printf("Error loading .env.internal file: %s\n", err)
		}
	}

	c := &Config{}
	if err := env.Parse(c); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if c.Server.DeployDomain == "" {
		c.Server.DeployDomain = c.Server.Host + ":" + c.Server.Port
	}

	if c.Feedback.ListLimit <= 0 {
		return c, fmt.Errorf("FEEDBACK_LIST_LIMIT must be positive, got %d", c.Feedback.ListLimit)
	}

	return c, nil
}
