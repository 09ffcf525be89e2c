package auth

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyConfig configures the API key authenticator.
type APIKeyConfig struct {
	// Key is the accepted API key. Required.
	Key string

	// Header carries the key.
	// Default: "X-API-Key"
	Header string

	// Subject is the identity the key authenticates as.
	// Default: "api-key"
	Subject string

	// Roles are granted to the key.
	// Default: [admin]
	Roles []string
}

// APIKeyAuthenticator accepts a single static API key. Only the key's
// SHA-256 digest is kept in memory.
type APIKeyAuthenticator struct {
	header  string
	subject string
	roles   []string
	digest  [sha256.Size]byte
}

// NewAPIKeyAuthenticator creates an API key authenticator.
func NewAPIKeyAuthenticator(config APIKeyConfig) (*APIKeyAuthenticator, error) {
	key := strings.TrimSpace(config.Key)
	if key == "" {
		return nil, ErrEmptySecret
	}
	a := &APIKeyAuthenticator{
		header:  config.Header,
		subject: config.Subject,
		roles:   config.Roles,
		digest:  sha256.Sum256([]byte(key)),
	}
	if a.header == "" {
		a.header = "X-API-Key"
	}
	if a.subject == "" {
		a.subject = "api-key"
	}
	if len(a.roles) == 0 {
		a.roles = []string{RoleAdmin}
	}
	return a, nil
}

// Name returns "api_key".
func (a *APIKeyAuthenticator) Name() string {
	return "api_key"
}

// Supports reports whether r carries the key header.
func (a *APIKeyAuthenticator) Supports(r *http.Request) bool {
	return r.Header.Get(a.header) != ""
}

// Authenticate compares the presented key with the configured one in
// constant time.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, r *http.Request) (Result, error) {
	key := strings.TrimSpace(r.Header.Get(a.header))
	if key == "" {
		return rejected(MethodAPIKey, ErrMissingCredentials), nil
	}
	digest := sha256.Sum256([]byte(key))
	if subtle.ConstantTimeCompare(digest[:], a.digest[:]) != 1 {
		return rejected(MethodAPIKey, ErrInvalidCredentials), nil
	}
	return accepted(&Identity{
		Subject: a.subject,
		Roles:   append([]string(nil), a.roles...),
		Method:  MethodAPIKey,
	}), nil
}

var _ Authenticator = (*APIKeyAuthenticator)(nil)
