package am

import "github.com/teranos/uniassoc/errors"

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	switch c.Database.Backend {
	case "", BackendSQLite, BackendBadger:
	default:
		return errors.Wrapf(errors.ErrInvalidRequest,
			"database.backend must be %q or %q, got %q", BackendSQLite, BackendBadger, c.Database.Backend)
	}

	if c.Database.Backend == BackendBadger && !c.Database.BadgerInMemory && c.Database.BadgerDir == "" {
		return errors.Wrap(errors.ErrInvalidRequest,
			"database.badger_dir cannot be empty unless database.badger_in_memory is set")
	}

	// 0 = unbounded, negative = invalid
	if c.Assoc.DefaultLimit < 0 {
		return errors.Wrapf(errors.ErrInvalidRequest,
			"assoc.default_limit must be >= 0, got %d", c.Assoc.DefaultLimit)
	}

	seen := make(map[string]bool, len(c.Reactions.Defaults))
	for _, name := range c.Reactions.Defaults {
		if name == "" {
			return errors.Wrap(errors.ErrInvalidRequest, "reactions.defaults cannot contain an empty name")
		}
		if seen[name] {
			return errors.Wrapf(errors.ErrInvalidRequest, "reactions.defaults lists %q twice", name)
		}
		seen[name] = true
	}

	switch c.Log.Theme {
	case "", "everforest", "gruvbox":
	default:
		return errors.Wrapf(errors.ErrInvalidRequest,
			"log.theme must be \"everforest\" or \"gruvbox\", got %q", c.Log.Theme)
	}

	return nil
}
