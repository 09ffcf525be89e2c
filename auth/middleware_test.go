package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestChain(t *testing.T) *Chain {
	t.Helper()
	jwtAuth := newTestJWT(t, JWTConfig{})
	keyAuth, err := NewAPIKeyAuthenticator(APIKeyConfig{Key: "s3cret"})
	if err != nil {
		t.Fatalf("NewAPIKeyAuthenticator() error = %v", err)
	}
	return NewChain(jwtAuth, nil, keyAuth)
}

// failingAuthenticator supports every request and fails internally.
type failingAuthenticator struct{}

func (failingAuthenticator) Name() string                { return "failing" }
func (failingAuthenticator) Supports(*http.Request) bool { return true }
func (failingAuthenticator) Authenticate(context.Context, *http.Request) (Result, error) {
	return Result{}, errors.New("backend down")
}

func TestChain(t *testing.T) {
	c := newTestChain(t)
	if c.Len() != 2 {
		t.Errorf("Len() = %d, want 2 (nil skipped)", c.Len())
	}
	if c.Supports(request("", "")) {
		t.Error("Supports() without credentials = true, want false")
	}
	result, err := c.Authenticate(context.Background(), request("", ""))
	if err != nil || result.OK() || !errors.Is(result.Err, ErrMissingCredentials) {
		t.Errorf("Authenticate() = %+v, %v; want missing credentials", result, err)
	}
}

func TestChain_FirstSupporterDecides(t *testing.T) {
	c := newTestChain(t)
	r := request("X-API-Key", "s3cret")
	r.Header.Set("Authorization", "Bearer garbage")
	result, err := c.Authenticate(context.Background(), r)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if result.OK() || result.Method != MethodJWT {
		t.Errorf("result = %+v, want rejection by jwt", result)
	}
}

func TestMiddleware(t *testing.T) {
	c := newTestChain(t)
	adminToken, _ := SignToken(testSecret, "", "ops", []string{RoleAdmin}, time.Minute)
	viewerToken, _ := SignToken(testSecret, "", "viewer", []string{"viewer"}, time.Minute)

	var seen string
	handler := Middleware(MiddlewareConfig{Authenticator: c})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = Subject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name    string
		header  string
		value   string
		want    int
		subject string
	}{
		{"no credentials", "", "", http.StatusUnauthorized, ""},
		{"admin token", "Authorization", "Bearer " + adminToken, http.StatusNoContent, "ops"},
		{"viewer token", "Authorization", "Bearer " + viewerToken, http.StatusForbidden, ""},
		{"api key", "X-API-Key", "s3cret", http.StatusNoContent, "api-key"},
		{"bad api key", "X-API-Key", "nope", http.StatusUnauthorized, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, request(tt.header, tt.value))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
			if seen != tt.subject {
				t.Errorf("subject = %q, want %q", seen, tt.subject)
			}
		})
	}
}

func TestMiddleware_CustomErrorWriter(t *testing.T) {
	tests := []struct {
		name       string
		auth       Authenticator
		wantStatus int
		wantErr    error
	}{
		{"missing credentials", newTestChain(t), http.StatusUnauthorized, ErrMissingCredentials},
		{"internal failure", failingAuthenticator{}, http.StatusInternalServerError, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotStatus int
			var gotErr error
			mw := Middleware(MiddlewareConfig{
				Authenticator: tt.auth,
				OnError: func(w http.ResponseWriter, _ *http.Request, status int, err error) {
					gotStatus, gotErr = status, err
					w.WriteHeader(status)
				},
			})
			mw(http.NotFoundHandler()).ServeHTTP(httptest.NewRecorder(), request("", ""))
			if gotStatus != tt.wantStatus {
				t.Errorf("status = %d, want %d", gotStatus, tt.wantStatus)
			}
			if tt.wantErr != nil && !errors.Is(gotErr, tt.wantErr) {
				t.Errorf("err = %v, want %v", gotErr, tt.wantErr)
			}
		})
	}
}
