package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config carries every runtime setting. It is parsed once in main and passed
// to the components that need it; nothing reads the environment afterwards.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`

	JWTSecret string        `env:"JWT_SECRET"`
	TokenTTL  time.Duration `env:"TOKEN_TTL" envDefault:"168h"`

	SMTPHost     string        `env:"SMTP_HOST" envDefault:"smtp.gmail.com"`
	SMTPPort     int           `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string        `env:"SMTP_USERNAME"`
	SMTPPassword string        `env:"SMTP_PASSWORD"`
	FromEmail    string        `env:"FROM_EMAIL"`
	SMTPTimeout  time.Duration `env:"SMTP_TIMEOUT" envDefault:"15s"`

	UploadDir         string   `env:"UPLOAD_DIR" envDefault:"/tmp/uploads"`
	QRCodeDir         string   `env:"QR_CODE_DIR" envDefault:"/tmp/qrcodes"`
	MaxFileSize       int64    `env:"MAX_FILE_SIZE" envDefault:"5242880"`
	AllowedExtensions []string `env:"ALLOWED_EXTENSIONS" envDefault:".jpg,.jpeg,.png,.pdf"`

	EventName       string  `env:"EVENT_NAME" envDefault:"Devcon '26"`
	TeamMaxSize     int     `env:"TEAM_MAX_SIZE" envDefault:"5"`
	RegistrationFee float64 `env:"REGISTRATION_FEE" envDefault:"1000"`

	NotifyMaxAttempts int           `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
	NotifyBuffer      int           `env:"NOTIFY_BUFFER" envDefault:"256"`
	NotifyRetryDelay  time.Duration `env:"NOTIFY_RETRY_DELAY" envDefault:"2s"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000,http://localhost:5173"`
}

// Load parses the configuration from the environment. Call godotenv.Load
// first if a .env file should be honored.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL is not set")
	}
	if cfg.JWTSecret == "" {
		return cfg, fmt.Errorf("JWT_SECRET is not set")
	}
	return cfg, nil
}
