package am

import (
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/teranos/uniassoc/errors"
)

// CheckFile strictly decodes a config file and reports keys that do not map
// onto Config, which viper would otherwise ignore silently. It also runs
// Validate on the decoded values.
func CheckFile(path string) error {
	cfg := Defaults()
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return errors.Wrapf(errors.ErrInvalidRequest, "parse %s: %v", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		sort.Strings(keys)
		return errors.WithHint(
			errors.Wrapf(errors.ErrInvalidRequest, "%s: unknown keys: %s", path, strings.Join(keys, ", ")),
			"run `uniassoc am init` to see every supported key",
		)
	}

	if err := cfg.Validate(); err != nil {
		return errors.Wrapf(err, "%s", path)
	}
	return nil
}
