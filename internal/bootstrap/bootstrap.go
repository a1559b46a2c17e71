// Package bootstrap loads the handful of settings Cmdarr needs before the
// DB-backed ConfigStore (internal/config) can even open a connection:
// which storage backend to use and how to set up logging. Everything else
// lives in the ConfigStore. Grounded on the teacher's internal/config.Config
// (viper, mapstructure tags), narrowed to just the pre-store subset.
package bootstrap

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/cmdarr/cmdarr/internal/logging"
)

// Profile selects the storage backend.
type Profile string

const (
	ProfileLite     Profile = "lite"     // embedded SQLite, no external services
	ProfileStandard Profile = "standard" // Postgres + Redis
)

// Config is the process-bootstrap configuration.
type Config struct {
	Profile Profile `mapstructure:"profile"`

	SQLitePath  string `mapstructure:"sqlite_path"`
	DatabaseURL string `mapstructure:"database_url"`
	RedisAddr   string `mapstructure:"redis_addr"`

	HTTPAddr string `mapstructure:"http_addr"`

	Log logging.Config `mapstructure:"-"`
}

// Load reads bootstrap settings from environment variables (CMDARR_*
// prefix) and an optional config file, applying defaults matching the Lite
// profile so the binary runs with zero external configuration out of the
// box.
func Load(configFile string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("CMDARR")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("profile", string(ProfileLite))
	v.SetDefault("sqlite_path", "./data/cmdarr.db")
	v.SetDefault("database_url", "")
	v.SetDefault("redis_addr", "")
	v.SetDefault("http_addr", ":8085")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.filename", "./data/cmdarr.log")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 5)
	v.SetDefault("log.max_age_days", 28)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{
		Profile:     Profile(v.GetString("profile")),
		SQLitePath:  v.GetString("sqlite_path"),
		DatabaseURL: v.GetString("database_url"),
		RedisAddr:   v.GetString("redis_addr"),
		HTTPAddr:    v.GetString("http_addr"),
		Log: logging.Config{
			Level:      v.GetString("log.level"),
			Format:     v.GetString("log.format"),
			Output:     v.GetString("log.output"),
			Filename:   v.GetString("log.filename"),
			MaxSizeMB:  v.GetInt("log.max_size_mb"),
			MaxBackups: v.GetInt("log.max_backups"),
			MaxAgeDays: v.GetInt("log.max_age_days"),
		},
	}

	if cfg.Profile != ProfileLite && cfg.Profile != ProfileStandard {
		return nil, fmt.Errorf("invalid profile %q (must be %q or %q)", cfg.Profile, ProfileLite, ProfileStandard)
	}
	if cfg.Profile == ProfileStandard && cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("standard profile requires CMDARR_DATABASE_URL")
	}

	return cfg, nil
}
