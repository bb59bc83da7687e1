package habitbuddy

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingConfig is returned when a required setting is absent
var ErrMissingConfig = errors.New("missing required configuration")

// Config holds process settings read from the environment
type Config struct {
	Port string

	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration

	// DatabaseURL selects the store backend by scheme (mongodb, postgres,
	// sqlite, datastore, file)
	DatabaseURL string

	// DatabaseName overrides the mongo database named in DatabaseURL
	DatabaseName string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleCallbackURL  string

	CORSOrigins []string
	LogLevel    string
}

// GoogleRedirectEnabled returns true if the server side Google flow can run
func (c *Config) GoogleRedirectEnabled() bool {
	return c.GoogleClientSecret != "" && c.GoogleCallbackURL != ""
}

// LoadConfig loads .env style files (missing files are ignored) and then
// reads the environment. Variables already set in the environment win.
func LoadConfig(envFiles ...string) (*Config, error) {
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return ConfigFromEnv(os.Getenv)
}

// ConfigFromEnv builds a Config from getenv, failing if any of JWT_SECRET,
// MONGODB_URI (or DATABASE_URL) and GOOGLE_CLIENT_ID is unset.
func ConfigFromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	c := &Config{
		Port:               get("PORT", "5001"),
		JWTSecret:          get("JWT_SECRET", ""),
		JWTIssuer:          get("JWT_ISSUER", "habitbuddy"),
		DatabaseURL:        get("MONGODB_URI", get("DATABASE_URL", "")),
		DatabaseName:       get("DB_NAME", ""),
		GoogleClientID:     get("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: get("GOOGLE_CLIENT_SECRET", ""),
		GoogleCallbackURL:  get("GOOGLE_CALLBACK_URL", ""),
		LogLevel:           get("LOG_LEVEL", "info"),
		TokenTTL:           DefaultTokenTTL,
		CORSOrigins:        DefaultCORSOrigins,
	}

	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.DatabaseURL == "" {
		missing = append(missing, "MONGODB_URI")
	}
	if c.GoogleClientID == "" {
		missing = append(missing, "GOOGLE_CLIENT_ID")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	if ttl := get("TOKEN_TTL", ""); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid TOKEN_TTL %q", ttl)
		}
		c.TokenTTL = d
	}
	if origins := get("CORS_ORIGINS", ""); origins != "" {
		c.CORSOrigins = nil
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				c.CORSOrigins = append(c.CORSOrigins, o)
			}
		}
	}
	return c, nil
}
