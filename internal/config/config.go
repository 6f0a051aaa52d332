package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string   `mapstructure:"PORT"`
	Env         string   `mapstructure:"ENV"`
	DatabaseURL string   `mapstructure:"DATABASE_URL"`
	DBMaxConns  int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns  int32    `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	// AuthSigningKey is the HMAC secret used to verify bearer tokens issued
	// by the auth gateway. Empty in development mode, where DevAuth is active.
	AuthSigningKey string `mapstructure:"AUTH_SIGNING_KEY"`

	// Resolution policy thresholds. Matches at or above AutoMapThreshold are
	// persisted without review; between ReviewThreshold and AutoMapThreshold
	// they become pending suggestions; below ReviewThreshold they stay
	// unresolved.
	AutoMapThreshold float64 `mapstructure:"AUTO_MAP_THRESHOLD"`
	ReviewThreshold  float64 `mapstructure:"REVIEW_THRESHOLD"`

	// LenientConversion re-enables the historical "return the value
	// unconverted" fallback when a unit has no edge in its conversion group.
	// The fallback is always logged as a warning.
	LenientConversion bool `mapstructure:"LENIENT_CONVERSION"`

	// ExportDir is where read-optimized catalog exports are regenerated
	// after a successful commit.
	ExportDir string `mapstructure:"EXPORT_DIR"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("AUTO_MAP_THRESHOLD", 0.95)
	v.SetDefault("REVIEW_THRESHOLD", 0.75)
	v.SetDefault("LENIENT_CONVERSION", false)
	v.SetDefault("EXPORT_DIR", "./data/exports")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("AUTH_SIGNING_KEY")
	v.BindEnv("AUTO_MAP_THRESHOLD")
	v.BindEnv("REVIEW_THRESHOLD")
	v.BindEnv("LENIENT_CONVERSION")
	v.BindEnv("EXPORT_DIR")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Outside development
// AUTH_SIGNING_KEY must be set so user identity on custom-range and admin
// routes is verified.
func (c *Config) Validate() error {
	if !c.IsDev() && c.AuthSigningKey == "" {
		return fmt.Errorf("AUTH_SIGNING_KEY is required when ENV is %q", c.Env)
	}
	if c.AutoMapThreshold < 0 || c.AutoMapThreshold > 1 {
		return fmt.Errorf("AUTO_MAP_THRESHOLD must be in [0,1], got %v", c.AutoMapThreshold)
	}
	if c.ReviewThreshold < 0 || c.ReviewThreshold > 1 {
		return fmt.Errorf("REVIEW_THRESHOLD must be in [0,1], got %v", c.ReviewThreshold)
	}
	if c.ReviewThreshold > c.AutoMapThreshold {
		return fmt.Errorf("REVIEW_THRESHOLD (%v) must not exceed AUTO_MAP_THRESHOLD (%v)",
			c.ReviewThreshold, c.AutoMapThreshold)
	}
	return nil
}
