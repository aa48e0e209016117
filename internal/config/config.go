package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	IdentityProviderFirebase = "firebase"
	IdentityProviderDev      = "dev"

	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
)

type Config struct {
	HTTPAddr            string        `envconfig:"HTTP_ADDR" default:":8080" validate:"required"`
	MetricsAddr         string        `envconfig:"METRICS_ADDR" default:":9090"`
	AuthCookieSecure    bool          `envconfig:"AUTH_COOKIE_SECURE" default:"false"`
	SessionLifetime     time.Duration `envconfig:"SESSION_LIFETIME" default:"12h" validate:"gt=0"`
	SessionStore        string        `envconfig:"SESSION_STORE" default:"memory" validate:"oneof=memory postgres"`
	SessionCacheSize    int           `envconfig:"SESSION_CACHE_SIZE" default:"1024" validate:"gte=1"`
	DatabaseURL         string        `envconfig:"DATABASE_URL" validate:"required_if=SessionStore postgres"`
	NexusAPIURL         string        `envconfig:"NEXUS_API_URL" validate:"omitempty,url"`
	NexusAPITimeout     time.Duration `envconfig:"NEXUS_API_TIMEOUT" default:"30s" validate:"gt=0"`
	IdentityProvider    string        `envconfig:"IDENTITY_PROVIDER" default:"firebase" validate:"oneof=firebase dev"`
	AllowedEmailDomains []string      `envconfig:"ALLOWED_EMAIL_DOMAINS" validate:"dive,hostname"`
	LoginRateLimit      int           `envconfig:"LOGIN_RATE_LIMIT" default:"10" validate:"gte=0"`

	Firebase Firebase `envconfig:"FIREBASE"`
	Dev      Dev      `envconfig:"DEV"`
	Vault    Vault    `envconfig:"VAULT"`
}

// Firebase holds the web-app settings of the Firebase project. Missing
// values do not fail loading; the console starts with an unavailable
// identity provider instead.
type Firebase struct {
	APIKey            string `envconfig:"API_KEY"`
	AuthDomain        string `envconfig:"AUTH_DOMAIN"`
	ProjectID         string `envconfig:"PROJECT_ID"`
	StorageBucket     string `envconfig:"STORAGE_BUCKET"`
	MessagingSenderID string `envconfig:"MESSAGING_SENDER_ID"`
	AppID             string `envconfig:"APP_ID"`
}

// Dev configures the local development identity provider.
type Dev struct {
	UsersFile   string `envconfig:"USERS_FILE"`
	TokenSecret string `envconfig:"TOKEN_SECRET" validate:"omitempty,min=16"`
}

// Vault optionally supplies Firebase credentials from a KV secret.
type Vault struct {
	Addr         string `envconfig:"ADDR" validate:"omitempty,url"`
	Token        string `envconfig:"TOKEN"`
	Namespace    string `envconfig:"NAMESPACE"`
	FirebasePath string `envconfig:"FIREBASE_PATH" default:"secret/data/nexus-console/firebase"`
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadRequireDB is used by commands that cannot run without Postgres.
func LoadRequireDB() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.IdentityProvider = strings.ToLower(strings.TrimSpace(c.IdentityProvider))
	c.SessionStore = strings.ToLower(strings.TrimSpace(c.SessionStore))
	c.NexusAPIURL = strings.TrimSpace(c.NexusAPIURL)

	domains := c.AllowedEmailDomains[:0]
	for _, d := range c.AllowedEmailDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			domains = append(domains, d)
		}
	}
	c.AllowedEmailDomains = domains
}

var validate = func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := f.Tag.Get("envconfig")
		if name == "" {
			return f.Name
		}
		return name
	})
	return v
}()

// Validate checks the loaded values. Errors name the environment variable.
func (c Config) Validate() error {
	var problems []string
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		for _, fe := range verrs {
			problems = append(problems, fmt.Sprintf("%s is invalid (%s)", envName(fe.Namespace()), describe(fe)))
		}
	}
	if c.IdentityProvider == IdentityProviderDev {
		if strings.TrimSpace(c.Dev.UsersFile) == "" {
			problems = append(problems, "DEV_USERS_FILE is required when IDENTITY_PROVIDER=dev")
		}
		if c.Dev.TokenSecret == "" {
			problems = append(problems, "DEV_TOKEN_SECRET is required when IDENTITY_PROVIDER=dev")
		}
	}
	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

// VaultEnabled reports whether the Vault overlay is configured.
func (c Config) VaultEnabled() bool {
	return strings.TrimSpace(c.Vault.Addr) != ""
}

func envName(namespace string) string {
	_, rest, ok := strings.Cut(namespace, ".")
	if !ok {
		return namespace
	}
	rest = strings.ReplaceAll(rest, ".", "_")
	if i := strings.IndexByte(rest, '['); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "required"
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "url":
		return "must be an absolute URL"
	case "hostname":
		return "must be a domain name"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "gt", "gte":
		return "must be greater than " + fe.Param()
	default:
		return fe.Tag()
	}
}
