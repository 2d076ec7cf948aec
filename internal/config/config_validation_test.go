package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validConfig() Config {
	return Config{
		Server:  Server{Address: "0.0.0.0:3070", RequestTimeout: time.Minute},
		Storage: Storage{DSN: "register.db"},
		Admin: Admin{
			PanelPassword:    "secret",
			MaxLoginAttempts: 5,
			LockoutTime:      15 * time.Minute,
			TokenSignKey:     "key",
			TokenDuration:    time.Hour,
		},
		Session: Session{TTL: 30 * time.Minute},
		Workers: Workers{CleanupInterval: time.Hour},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr error
	}{
		{"valid", func(cfg *Config) {}, nil},
		{"address without port", func(cfg *Config) { cfg.Server.Address = "localhost" }, ErrInvalidServerConfigs},
		{"empty address", func(cfg *Config) { cfg.Server.Address = "" }, ErrInvalidServerConfigs},
		{"empty dsn", func(cfg *Config) { cfg.Storage.DSN = "" }, ErrInvalidStorageConfigs},
		{"zero login attempts", func(cfg *Config) { cfg.Admin.MaxLoginAttempts = 0 }, ErrInvalidAdminConfigs},
		{"negative lockout", func(cfg *Config) { cfg.Admin.LockoutTime = -time.Minute }, ErrInvalidAdminConfigs},
		{"zero session ttl", func(cfg *Config) { cfg.Session.TTL = 0 }, ErrInvalidSessionConfigs},
		{"zero cleanup interval", func(cfg *Config) { cfg.Workers.CleanupInterval = 0 }, ErrInvalidWorkerConfigs},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()

			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}
