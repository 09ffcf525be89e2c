package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

// JWTConfig configures the JWT authenticator.
type JWTConfig struct {
	// Secret is the HS256 signing secret. Required.
	Secret []byte

	// Issuer is the expected iss claim. Empty accepts any issuer.
	Issuer string

	// Audience is the expected aud claim. Empty accepts any audience.
	Audience string

	// RolesClaim names the claim holding the role list.
	// Default: "roles"
	RolesClaim string
}

// JWTAuthenticator validates HS256 bearer tokens.
type JWTAuthenticator struct {
	secret     []byte
	rolesClaim string
	parser     *jwt.Parser
}

// NewJWTAuthenticator creates a JWT authenticator.
func NewJWTAuthenticator(config JWTConfig) (*JWTAuthenticator, error) {
	if len(config.Secret) == 0 {
		return nil, ErrEmptySecret
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}
	return &JWTAuthenticator{
		secret:     config.Secret,
		rolesClaim: config.RolesClaim,
		parser:     jwt.NewParser(opts...),
	}, nil
}

// Name returns "jwt".
func (a *JWTAuthenticator) Name() string {
	return "jwt"
}

// Supports reports whether r carries a bearer token.
func (a *JWTAuthenticator) Supports(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), bearerPrefix)
}

// Authenticate validates the bearer token. Tokens must carry an exp claim.
func (a *JWTAuthenticator) Authenticate(_ context.Context, r *http.Request) (Result, error) {
	raw, _ := strings.CutPrefix(r.Header.Get("Authorization"), bearerPrefix)
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return rejected(MethodJWT, ErrMissingCredentials), nil
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.secret, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return rejected(MethodJWT, ErrTokenExpired), nil
	case errors.Is(err, jwt.ErrTokenMalformed):
		return rejected(MethodJWT, ErrTokenMalformed), nil
	case err != nil:
		return rejected(MethodJWT, ErrInvalidCredentials), nil
	}
	return accepted(a.identity(claims)), nil
}

func (a *JWTAuthenticator) identity(claims jwt.MapClaims) *Identity {
	id := &Identity{Method: MethodJWT}
	id.Subject, _ = claims.GetSubject()
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		id.ExpiresAt = exp.Time
	}
	if roles, ok := claims[a.rolesClaim].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}
	return id
}

// SignToken issues an HS256 token for subject with roles, valid for ttl.
// An empty issuer omits the iss claim.
func SignToken(secret []byte, issuer, subject string, roles []string, ttl time.Duration) (string, error) {
	if len(secret) == 0 {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   subject,
		"roles": roles,
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

var _ Authenticator = (*JWTAuthenticator)(nil)
