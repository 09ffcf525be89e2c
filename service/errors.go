package service

import "errors"

// Sentinel errors for services.
var (
	ErrNilRepository = errors.New("service: repository is nil")
	ErrNotFound      = errors.New("service: entity not found")
)
