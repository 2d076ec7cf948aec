package config

import "errors"

// Validation errors returned by [Config.Validate] when required
// configuration groups are incomplete or invalid.
var (
	// ErrInvalidServerConfigs indicates invalid server settings
	// (for example, a listen address without a port).
	ErrInvalidServerConfigs = errors.New("invalid server configuration")
	// ErrInvalidStorageConfigs indicates invalid storage settings
	// (for example, an empty DSN).
	ErrInvalidStorageConfigs = errors.New("invalid storage configuration")
	// ErrInvalidAdminConfigs indicates invalid administrator-panel settings
	// (for example, a non-positive attempt limit or lockout duration).
	ErrInvalidAdminConfigs = errors.New("invalid admin configuration")
	// ErrInvalidSessionConfigs indicates invalid session settings
	// (for example, a non-positive TTL).
	ErrInvalidSessionConfigs = errors.New("invalid session configuration")
	// ErrInvalidWorkerConfigs indicates invalid background worker settings
	// (for example, a non-positive cleanup interval).
	ErrInvalidWorkerConfigs = errors.New("invalid worker configuration")
)
