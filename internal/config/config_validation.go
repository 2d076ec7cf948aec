package config

import (
	"strings"
)

// Validate checks that the loaded [Config] satisfies all invariants before
// it is used at startup.
//
// Returns nil if the configuration is valid, or a descriptive error
// otherwise.
func (cfg *Config) Validate() error {
	if cfg.Server.Address == "" || !strings.Contains(cfg.Server.Address, ":") {
		return ErrInvalidServerConfigs
	}

	if cfg.Storage.DSN == "" {
		return ErrInvalidStorageConfigs
	}

	if cfg.Admin.MaxLoginAttempts < 1 || cfg.Admin.LockoutTime <= 0 {
		return ErrInvalidAdminConfigs
	}

	if cfg.Session.TTL <= 0 {
		return ErrInvalidSessionConfigs
	}

	if cfg.Workers.CleanupInterval <= 0 {
		return ErrInvalidWorkerConfigs
	}

	return nil
}
