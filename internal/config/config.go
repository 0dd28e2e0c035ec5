// Package config centralizes environment-derived settings for revq.
package config

import (
	"os"
	"strconv"
)

// Config holds the engine-wide knobs. Flags override these per invocation.
type Config struct {
	// DataRoot overrides where cache documents live; empty means the XDG
	// cache home.
	DataRoot string
	// GitBin is the git executable to drive.
	GitBin string
	// PageSize is the default number of commits per history page.
	PageSize int
}

const defaultPageSize = 50

// FromEnv reads configuration from REVQ_* environment variables, applying
// defaults for anything unset.
func FromEnv() *Config {
	cfg := &Config{
		DataRoot: os.Getenv("REVQ_DATA_ROOT"),
		GitBin:   os.Getenv("REVQ_GIT_BIN"),
		PageSize: defaultPageSize,
	}
	if raw := os.Getenv("REVQ_BATCH"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			cfg.PageSize = n
		}
	}
	return cfg
}
