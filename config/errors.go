package config

import "errors"

// Sentinel errors for configuration.
var (
	ErrMissingRedisURL = errors.New("config: redis url is required for the redis backend")
	ErrNoAdminAuth     = errors.New("config: admin requires a jwt secret or an api key")
	ErrInvalid         = errors.New("config: invalid configuration")
)
