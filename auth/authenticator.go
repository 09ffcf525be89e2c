package auth

import (
	"context"
	"net/http"
)

// Authenticator verifies the credentials carried by an admin request.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: Authenticate returns an error only for internal failures.
// Rejected credentials are reported through Result.Err.
type Authenticator interface {
	// Name identifies the authenticator in logs.
	Name() string

	// Supports reports whether r carries credentials of this kind.
	Supports(r *http.Request) bool

	// Authenticate verifies the credentials in r.
	Authenticate(ctx context.Context, r *http.Request) (Result, error)
}

// Result is the outcome of one authentication attempt.
type Result struct {
	// Identity is set when the credentials were accepted.
	Identity *Identity

	// Err explains why the credentials were rejected.
	Err error

	// Method is the credential kind that was examined.
	Method Method
}

// OK reports whether the credentials were accepted.
func (r Result) OK() bool {
	return r.Identity != nil && r.Err == nil
}

func accepted(id *Identity) Result {
	return Result{Identity: id, Method: id.Method}
}

func rejected(m Method, err error) Result {
	return Result{Err: err, Method: m}
}
