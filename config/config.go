/*
config.go - Server configuration

PURPOSE:
  Resolves server settings from, in increasing priority: built-in defaults,
  an optional config file, a .env file, COMPLIANCE_* environment variables
  and command-line flags bound by cobra.

KEYS:
  port               HTTP port (default 8080)
  db                 SQLite path, ":memory:" allowed (default compliance.db)
  log_dir            Rotating log directory, "" disables it (default logs)
  verbose            Debug logging (default false)
  sweep_enabled      Run the background sweep (default true)
  sweep_interval     Time between sweeps (default 1h)
  reminder_interval  Minimum gap between reminders (default 72h)
  max_reminders      Reminders per assignment (default 3)
  cors_origins       Comma-separated allowed origins
  config_file        Optional YAML/JSON/TOML file with any key above
  env_file           Dotenv file loaded when present (default .env)

ENVIRONMENT:
  Every key maps to COMPLIANCE_<KEY>, e.g. COMPLIANCE_SWEEP_INTERVAL=30m.

SEE ALSO:
  - cmd/server/commands/root.go: Flag bindings
*/
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"github.com/warp/compliance-engine/generic"
)

// EnvPrefix is prepended to every environment variable.
const EnvPrefix = "COMPLIANCE"

// Keys.
const (
	KeyPort             = "port"
	KeyDB               = "db"
	KeyLogDir           = "log_dir"
	KeyVerbose          = "verbose"
	KeySweepEnabled     = "sweep_enabled"
	KeySweepInterval    = "sweep_interval"
	KeyReminderInterval = "reminder_interval"
	KeyMaxReminders     = "max_reminders"
	KeyCORSOrigins      = "cors_origins"
	KeyConfigFile       = "config_file"
	KeyEnvFile          = "env_file"
)

// Config is the resolved server configuration.
type Config struct {
	Port             int
	DB               string
	LogDir           string
	Verbose          bool
	SweepEnabled     bool
	SweepInterval    time.Duration
	ReminderInterval time.Duration
	MaxReminders     int
	CORSOrigins      []string
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyDB, "compliance.db")
	v.SetDefault(KeyLogDir, "logs")
	v.SetDefault(KeyVerbose, false)
	v.SetDefault(KeySweepEnabled, true)
	v.SetDefault(KeySweepInterval, time.Hour)
	v.SetDefault(KeyReminderInterval, 72*time.Hour)
	v.SetDefault(KeyMaxReminders, 3)
	v.SetDefault(KeyCORSOrigins, "http://localhost:5173,http://localhost:3000")
	v.SetDefault(KeyConfigFile, "")
	v.SetDefault(KeyEnvFile, ".env")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the dotenv and config files named in v and returns the
// validated configuration.
func Load(v *viper.Viper) (Config, error) {
	if err := loadDotEnv(v.GetString(KeyEnvFile)); err != nil {
		return Config{}, err
	}

	if path := v.GetString(KeyConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", path, err)
		}
		log.Debug().Str("path", path).Msg("Loaded config file")
	}

	cfg := Config{
		Port:             v.GetInt(KeyPort),
		DB:               strings.TrimSpace(v.GetString(KeyDB)),
		LogDir:           strings.TrimSpace(v.GetString(KeyLogDir)),
		Verbose:          v.GetBool(KeyVerbose),
		SweepEnabled:     v.GetBool(KeySweepEnabled),
		SweepInterval:    v.GetDuration(KeySweepInterval),
		ReminderInterval: v.GetDuration(KeyReminderInterval),
		MaxReminders:     v.GetInt(KeyMaxReminders),
		CORSOrigins:      splitList(v.GetString(KeyCORSOrigins)),
	}
	return cfg, cfg.Validate()
}

// Validate checks ranges.
func (c Config) Validate() error {
	switch {
	case c.Port < 1 || c.Port > 65535:
		return generic.NewValidation(KeyPort, "must be between 1 and 65535")
	case c.DB == "":
		return generic.NewValidation(KeyDB, "is required")
	case c.SweepInterval <= 0:
		return generic.NewValidation(KeySweepInterval, "must be positive")
	case c.ReminderInterval <= 0:
		return generic.NewValidation(KeyReminderInterval, "must be positive")
	case c.MaxReminders < 0:
		return generic.NewValidation(KeyMaxReminders, "cannot be negative")
	}
	return nil
}

// loadDotEnv loads path when it exists. Variables already in the
// environment win.
func loadDotEnv(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	log.Debug().Str("path", path).Msg("Loaded .env file")
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
