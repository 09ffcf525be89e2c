package auth

import (
	"context"
	"net/http"
)

// Chain tries authenticators in order. The first authenticator that
// supports the request decides the outcome.
type Chain struct {
	authenticators []Authenticator
}

// NewChain creates a Chain. Nil authenticators are skipped.
func NewChain(auths ...Authenticator) *Chain {
	c := &Chain{}
	for _, a := range auths {
		if a != nil {
			c.authenticators = append(c.authenticators, a)
		}
	}
	return c
}

// Len returns the number of authenticators in the chain.
func (c *Chain) Len() int {
	return len(c.authenticators)
}

// Name returns "chain".
func (c *Chain) Name() string {
	return "chain"
}

// Supports reports whether any authenticator supports r.
func (c *Chain) Supports(r *http.Request) bool {
	for _, a := range c.authenticators {
		if a.Supports(r) {
			return true
		}
	}
	return false
}

// Authenticate delegates to the first authenticator that supports r.
// Requests without any known credentials are rejected with
// ErrMissingCredentials.
func (c *Chain) Authenticate(ctx context.Context, r *http.Request) (Result, error) {
	for _, a := range c.authenticators {
		if a.Supports(r) {
			return a.Authenticate(ctx, r)
		}
	}
	return rejected("", ErrMissingCredentials), nil
}

var _ Authenticator = (*Chain)(nil)
