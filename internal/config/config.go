// Package config loads the optional tlc.yaml project file. Its presence
// is never required: a missing file is not an error, and every field it
// can set is also settable (and overridden) by a command-line flag.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config mirrors the handful of settings worth persisting across
// invocations in a project file rather than retyping as flags every time.
type Config struct {
	IncludePaths []string `yaml:"includePaths"`
	Warnings     *bool    `yaml:"warnings"`
	MaxErrors    int      `yaml:"maxErrors"`
}

// Load reads and parses path. A missing file returns a zero Config and a
// nil error; any other read or parse failure is wrapped and returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, errors.Wrapf(err, "reading config %q", path)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config %q", path)
	}
	return &cfg, nil
}

// WarningsEnabled reports whether warnings should be printed, honoring an
// explicit false in the config file but defaulting to true when the field
// was never set.
func (c *Config) WarningsEnabled() bool {
	if c == nil || c.Warnings == nil {
		return true
	}
	return *c.Warnings
}
