// Package config provides configuration loading and validation for the
// registration service.
//
// Configuration comes from environment variables only, mapped onto the
// [Config] struct via caarlos0/env tags. The main entry point is
// [GetConfig].
package config
