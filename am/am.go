// Package am loads the uniassoc configuration ("am" as in "I am configured as").
//
// Sources, lowest to highest precedence:
//
//	built-in defaults
//	/etc/uniassoc/am.toml
//	~/.uniassoc/am.toml
//	the nearest am.toml walking up from the working directory
//	UNIASSOC_* environment variables
package am

// Config represents the uniassoc configuration
type Config struct {
	Database  DatabaseConfig  `mapstructure:"database" toml:"database" json:"database" yaml:"database"`
	Assoc     AssocConfig     `mapstructure:"assoc" toml:"assoc" json:"assoc" yaml:"assoc"`
	Reactions ReactionsConfig `mapstructure:"reactions" toml:"reactions" json:"reactions" yaml:"reactions"`
	Log       LogConfig       `mapstructure:"log" toml:"log" json:"log" yaml:"log"`
}

// DatabaseConfig selects and locates the association backend
type DatabaseConfig struct {
	Backend        string `mapstructure:"backend" toml:"backend" json:"backend" yaml:"backend"`                                     // "sqlite" or "badger"
	Path           string `mapstructure:"path" toml:"path" json:"path" yaml:"path"`                                                 // SQLite file; entities always live here
	BadgerDir      string `mapstructure:"badger_dir" toml:"badger_dir" json:"badger_dir" yaml:"badger_dir"`                         // badger data directory
	BadgerInMemory bool   `mapstructure:"badger_in_memory" toml:"badger_in_memory" json:"badger_in_memory" yaml:"badger_in_memory"` // nothing written to disk
}

// AssocConfig tunes engine access from the CLI
type AssocConfig struct {
	DefaultLimit int `mapstructure:"default_limit" toml:"default_limit" json:"default_limit" yaml:"default_limit"` // reverse fan-out cap, 0 = unbounded
}

// ReactionsConfig configures Reactable
type ReactionsConfig struct {
	Defaults []string `mapstructure:"defaults" toml:"defaults" json:"defaults" yaml:"defaults"` // always rendered, even at zero
}

// LogConfig configures logger output
type LogConfig struct {
	JSON  bool   `mapstructure:"json" toml:"json" json:"json" yaml:"json"`
	Theme string `mapstructure:"theme" toml:"theme" json:"theme" yaml:"theme"` // console colors: "everforest" or "gruvbox"
}

// Backends
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
)

// File system constants
const (
	DefaultDirPermissions  = 0755 // Standard directory permissions (rwxr-xr-x)
	DefaultFilePermissions = 0644 // Standard file permissions (rw-r--r--)
)

// ConfigFileName is the file looked up in every config location
const ConfigFileName = "am.toml"

// EnvPrefix prefixes environment overrides, e.g. UNIASSOC_DATABASE_PATH
const EnvPrefix = "UNIASSOC"
