// Package persistence stores the controller state between sessions as a
// single serialized blob, in either a plain JSON file or a SQLite database.
package persistence

import (
	"fmt"

	"ampgate/core/logger"
	"ampgate/core/session"
)

// Config selects and locates the state store.
type Config struct {
	// Enabled turns persistence on. When off, every session starts fresh.
	Enabled bool `json:"enabled"`
	// Backend selects the store type: "file" or "sqlite".
	Backend string `json:"backend"`
	// Path is the file location of the store.
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "file"
	}
	if c.Path == "" {
		switch c.Backend {
		case "sqlite":
			c.Path = "ampgate-state.db"
		default:
			c.Path = "ampgate-state.json"
		}
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Backend != "file" && c.Backend != "sqlite" {
		return fmt.Errorf("unknown persistence backend %s", c.Backend)
	}
	return nil
}

// NewStore builds the configured store. It returns nil when persistence is
// disabled.
func NewStore(cfg Config, log logger.Logger) (session.Store, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	switch cfg.Backend {
	case "sqlite":
		return NewSQLiteStore(cfg.Path, log)
	case "file":
		return NewFileStore(cfg.Path, log), nil
	default:
		return nil, fmt.Errorf("unknown persistence backend %s", cfg.Backend)
	}
}
