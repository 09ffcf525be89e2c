package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("test-secret")

func request(header, value string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/cache/metrics", nil)
	if header != "" {
		r.Header.Set(header, value)
	}
	return r
}

func bearer(token string) *http.Request {
	return request("Authorization", "Bearer "+token)
}

func sign(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(method, claims).SignedString(key)
	if err != nil {
		t.Fatalf("SignedString() error = %v", err)
	}
	return s
}

func newTestJWT(t *testing.T, cfg JWTConfig) *JWTAuthenticator {
	t.Helper()
	cfg.Secret = testSecret
	a, err := NewJWTAuthenticator(cfg)
	if err != nil {
		t.Fatalf("NewJWTAuthenticator() error = %v", err)
	}
	return a
}

func TestNewJWTAuthenticator_EmptySecret(t *testing.T) {
	if _, err := NewJWTAuthenticator(JWTConfig{}); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("error = %v, want ErrEmptySecret", err)
	}
}

func TestJWTAuthenticator_Supports(t *testing.T) {
	a := newTestJWT(t, JWTConfig{})
	tests := []struct {
		name  string
		value string
		want  bool
	}{
		{"no authorization header", "", false},
		{"bearer token", "Bearer abc", true},
		{"basic auth", "Basic abc", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := request("", "")
			if tt.value != "" {
				r.Header.Set("Authorization", tt.value)
			}
			if got := a.Supports(r); got != tt.want {
				t.Errorf("Supports() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJWTAuthenticator_Authenticate(t *testing.T) {
	a := newTestJWT(t, JWTConfig{Issuer: "entitycache"})
	future := time.Now().Add(time.Hour).Unix()
	past := time.Now().Add(-time.Hour).Unix()

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{
			name:  "valid",
			token: sign(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "ops", "iss": "entitycache", "roles": []string{"admin"}, "exp": future}),
		},
		{
			name:    "expired",
			token:   sign(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "ops", "iss": "entitycache", "exp": past}),
			wantErr: ErrTokenExpired,
		},
		{
			name:    "no expiry",
			token:   sign(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "ops", "iss": "entitycache"}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "wrong secret",
			token:   sign(t, jwt.SigningMethodHS256, []byte("other"), jwt.MapClaims{"sub": "ops", "iss": "entitycache", "exp": future}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "wrong issuer",
			token:   sign(t, jwt.SigningMethodHS256, testSecret, jwt.MapClaims{"sub": "ops", "iss": "someone", "exp": future}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "unexpected algorithm",
			token:   sign(t, jwt.SigningMethodHS512, testSecret, jwt.MapClaims{"sub": "ops", "iss": "entitycache", "exp": future}),
			wantErr: ErrInvalidCredentials,
		},
		{
			name:    "malformed",
			token:   "not.a.token",
			wantErr: ErrTokenMalformed,
		},
		{
			name:    "empty",
			token:   "",
			wantErr: ErrMissingCredentials,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := a.Authenticate(context.Background(), bearer(tt.token))
			if err != nil {
				t.Fatalf("Authenticate() error = %v", err)
			}
			if result.Method != MethodJWT {
				t.Errorf("Method = %q, want jwt", result.Method)
			}
			if tt.wantErr == nil {
				if !result.OK() {
					t.Fatalf("OK() = false, Err = %v", result.Err)
				}
				id := result.Identity
				if id.Subject != "ops" || !id.HasRole(RoleAdmin) || id.ExpiresAt.IsZero() {
					t.Errorf("Identity = %+v, want ops with admin role and expiry", id)
				}
				return
			}
			if result.OK() {
				t.Fatal("OK() = true, want false")
			}
			if !errors.Is(result.Err, tt.wantErr) {
				t.Errorf("Err = %v, want %v", result.Err, tt.wantErr)
			}
		})
	}
}

func TestSignToken(t *testing.T) {
	tests := []struct {
		name   string
		issuer string
		cfg    JWTConfig
	}{
		{"no issuer", "", JWTConfig{}},
		{"matching issuer", "entitycache", JWTConfig{Issuer: "entitycache"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, err := SignToken(testSecret, tt.issuer, "ops", []string{RoleAdmin}, time.Minute)
			if err != nil {
				t.Fatalf("SignToken() error = %v", err)
			}
			result, err := newTestJWT(t, tt.cfg).Authenticate(context.Background(), bearer(token))
			if err != nil || !result.OK() {
				t.Fatalf("Authenticate() = %+v, %v", result, err)
			}
			if !result.Identity.HasRole(RoleAdmin) {
				t.Errorf("Roles = %v, want admin", result.Identity.Roles)
			}
		})
	}

	if _, err := SignToken(nil, "", "ops", nil, time.Minute); !errors.Is(err, ErrEmptySecret) {
		t.Errorf("SignToken(nil) error = %v, want ErrEmptySecret", err)
	}
}
