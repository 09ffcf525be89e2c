package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/jonwraymond/entitycache/observe"
)

// ErrorWriter writes an authentication or authorization failure.
type ErrorWriter func(w http.ResponseWriter, r *http.Request, status int, err error)

// MiddlewareConfig configures Middleware.
type MiddlewareConfig struct {
	// Authenticator validates credentials. Required.
	Authenticator Authenticator

	// RequiredRole must be held by the identity.
	// Default: "admin"
	RequiredRole string

	// OnError writes failures. Default: plain text via http.Error.
	OnError ErrorWriter

	// Logger records rejected requests.
	Logger observe.Logger
}

// Middleware authenticates each request and attaches the identity to its
// context. Missing or invalid credentials get 401; an identity without
// the required role gets 403.
func Middleware(cfg MiddlewareConfig) func(http.Handler) http.Handler {
	if cfg.RequiredRole == "" {
		cfg.RequiredRole = RoleAdmin
	}
	if cfg.OnError == nil {
		cfg.OnError = func(w http.ResponseWriter, _ *http.Request, status int, err error) {
			http.Error(w, err.Error(), status)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			result, err := cfg.Authenticator.Authenticate(ctx, r)
			if err != nil {
				cfg.Logger.Error(ctx, "authentication error", observe.Err(err))
				cfg.OnError(w, r, http.StatusInternalServerError, errors.New("auth: internal error"))
				return
			}
			if !result.OK() {
				cfg.Logger.Warn(ctx, "request rejected",
					observe.F("path", r.URL.Path), observe.F("auth_method", string(result.Method)), observe.Err(result.Err))
				cfg.OnError(w, r, http.StatusUnauthorized, result.Err)
				return
			}
			id := result.Identity
			if id.Expired(time.Now()) {
				cfg.OnError(w, r, http.StatusUnauthorized, ErrTokenExpired)
				return
			}
			if !id.HasRole(cfg.RequiredRole) {
				cfg.Logger.Warn(ctx, "request forbidden",
					observe.F("path", r.URL.Path), observe.F("subject", id.Subject), observe.F("role", cfg.RequiredRole))
				cfg.OnError(w, r, http.StatusForbidden, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, id)))
		})
	}
}
