package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default values
const (
	DefaultBackend   = BackendSQLite
	DefaultDBPath    = "uniassoc.db"
	DefaultBadgerDir = "uniassoc.badger"
	DefaultLogTheme  = "everforest"
)

// DefaultReactions are rendered on every Reactable entity unless configured otherwise
var DefaultReactions = []string{"like", "heart"}

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.backend", DefaultBackend)
	v.SetDefault("database.path", DefaultDBPath)
	v.SetDefault("database.badger_dir", DefaultBadgerDir)
	v.SetDefault("database.badger_in_memory", false)

	v.SetDefault("assoc.default_limit", 0) // unbounded

	v.SetDefault("reactions.defaults", DefaultReactions)

	v.SetDefault("log.json", false)
	v.SetDefault("log.theme", DefaultLogTheme)
}

// BindEnvVars explicitly binds the keys most often overridden per invocation
func BindEnvVars(v *viper.Viper) {
	v.BindEnv("database.backend", EnvPrefix+"_DATABASE_BACKEND")
	v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH")
	v.BindEnv("database.badger_dir", EnvPrefix+"_DATABASE_BADGER_DIR")
}

// Defaults returns a Config populated only from built-in defaults
func Defaults() *Config {
	return &Config{
		Database: DatabaseConfig{
			Backend:   DefaultBackend,
			Path:      DefaultDBPath,
			BadgerDir: DefaultBadgerDir,
		},
		Reactions: ReactionsConfig{
			Defaults: append([]string(nil), DefaultReactions...),
		},
		Log: LogConfig{
			Theme: DefaultLogTheme,
		},
	}
}

// GetDatabasePath returns the configured SQLite path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDBPath
	}
	return c.Database.Path
}

// GetBackend returns the configured association backend
func (c *Config) GetBackend() string {
	if c.Database.Backend == "" {
		return DefaultBackend
	}
	return c.Database.Backend
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: {Backend: %s, Path: %s}, Reactions: %v}",
		c.GetBackend(), c.GetDatabasePath(), c.Reactions.Defaults)
}
