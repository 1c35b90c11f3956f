package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	devAccessSecret  = "dev-access-secret-change-me"
	devRefreshSecret = "dev-refresh-secret-change-me"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	Port        string `env:"PORT" envDefault:"8080"`
	// Host is the public base URL of this backend, e.g. https://api.clipstream.dev
	Host string `env:"HOST" envDefault:"http://localhost:8080"`

	StoreDriver   string `env:"STORE_DRIVER" envDefault:"mongo"`
	MongoURI      string `env:"MONGODB_URI" envDefault:"mongodb://localhost:27017/clipstream"`
	MongoDatabase string `env:"MONGODB_DATABASE"`
	PostgresURI   string `env:"POSTGRES_URI" envDefault:"postgres://localhost:5432/clipstream?sslmode=disable"`
	RedisURI      string `env:"REDIS_URI"`

	AccessTokenSecret  string        `env:"ACCESS_TOKEN_SECRET" envDefault:"dev-access-secret-change-me"`
	AccessTokenTTL     time.Duration `env:"ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenSecret string        `env:"REFRESH_TOKEN_SECRET" envDefault:"dev-refresh-secret-change-me"`
	RefreshTokenTTL    time.Duration `env:"REFRESH_TOKEN_EXPIRY" envDefault:"240h"`
	// CookieSecure can be turned off for plain-http local development.
	CookieSecure bool `env:"COOKIE_SECURE" envDefault:"true"`

	CloudinaryName      string `env:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `env:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `env:"CLOUDINARY_API_SECRET"`
	CloudinaryFolder    string `env:"CLOUDINARY_FOLDER" envDefault:"clipstream"`

	UploadDir      string `env:"UPLOAD_DIR" envDefault:"./public/temp"`
	MaxUploadBytes int64  `env:"MAX_UPLOAD_BYTES" envDefault:"10485760"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	TrustProxy          bool          `env:"TRUST_PROXY" envDefault:"false"`
	AuthRateLimitMax    int           `env:"AUTH_RATE_LIMIT_MAX" envDefault:"10"`
	AuthRateLimitWindow time.Duration `env:"AUTH_RATE_LIMIT_WINDOW" envDefault:"1m"`
	GlobalRateLimitRPS  float64       `env:"GLOBAL_RATE_LIMIT_RPS" envDefault:"5"`
	GlobalRateBurst     int           `env:"GLOBAL_RATE_LIMIT_BURST" envDefault:"20"`

	FrontendURL    string   `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	RawOrigins     []string `env:"ALLOWED_ORIGINS" envSeparator:","`
	AllowedOrigins []string
	// AllowedHost is the bare hostname enforced by the host check. Empty
	// outside production.
	AllowedHost string
}

// Load reads the environment into a Config and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Environment = strings.ToLower(strings.TrimSpace(cfg.Environment))
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	cfg.AllowedOrigins = allowedOrigins(cfg.RawOrigins, cfg.FrontendURL)
	if cfg.IsProduction() {
		cfg.AllowedHost = hostname(cfg.Host)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.AccessTokenSecret == "" || c.RefreshTokenSecret == "" {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET are required"))
	}
	if c.AccessTokenSecret != "" && c.AccessTokenSecret == c.RefreshTokenSecret {
		errs = append(errs, errors.New("ACCESS_TOKEN_SECRET and REFRESH_TOKEN_SECRET must differ"))
	}
	if c.AccessTokenTTL <= 0 || c.RefreshTokenTTL <= 0 {
		errs = append(errs, errors.New("token expiries must be positive"))
	}
	switch c.StoreDriver {
	case "mongo", "postgres":
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver))
	}
	if c.IsProduction() {
		if c.AccessTokenSecret == devAccessSecret || c.RefreshTokenSecret == devRefreshSecret {
			errs = append(errs, errors.New("development token secrets must not be used in production"))
		}
		if c.CloudinaryName == "" || c.CloudinaryAPIKey == "" || c.CloudinaryAPISecret == "" {
			errs = append(errs, errors.New("cloudinary credentials are required in production"))
		}
	}
	return errors.Join(errs...)
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// allowedOrigins prefers ALLOWED_ORIGINS and falls back to FRONTEND_URL.
func allowedOrigins(raw []string, frontendURL string) []string {
	var out []string
	for _, o := range raw {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		if o != "" && !containsOrigin(out, o) {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		if u := strings.TrimRight(strings.TrimSpace(frontendURL), "/"); u != "" {
			out = append(out, u)
		}
	}
	if len(out) == 0 {
		out = []string{"http://localhost:3000"}
	}
	return out
}

func containsOrigin(list []string, o string) bool {
	for _, v := range list {
		if strings.EqualFold(v, o) {
			return true
		}
	}
	return false
}

// hostname strips scheme, path and port: https://api.example.com:443/x -> api.example.com
func hostname(host string) string {
	h := strings.TrimSpace(host)
	for _, prefix := range []string{"https://", "http://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	if idx := strings.Index(h, "/"); idx != -1 {
		h = h[:idx]
	}
	if idx := strings.Index(h, ":"); idx != -1 {
		h = h[:idx]
	}
	return h
}
