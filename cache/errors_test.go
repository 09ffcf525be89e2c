package cache

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{"valid", "dossier:abc", nil},
		{"empty", "", ErrInvalidKey},
		{"blank", "   ", ErrInvalidKey},
		{"newline", "dossier:a\nb", ErrInvalidKey},
		{"max length", strings.Repeat("k", MaxKeyLength), nil},
		{"too long", strings.Repeat("k", MaxKeyLength+1), ErrKeyTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.wantErr == nil && err != nil {
				t.Errorf("ValidateKey() error = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateKey() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestError_KindAndStatus(t *testing.T) {
	tests := []struct {
		kind   Kind
		name   string
		status int
	}{
		{KindGateway, "gateway", http.StatusServiceUnavailable},
		{KindSerialization, "serialization", http.StatusInternalServerError},
		{KindFetcher, "fetcher", http.StatusBadGateway},
		{KindInvalidation, "invalidation", http.StatusInternalServerError},
		{KindInvalidArgument, "invalid_argument", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.kind.String(); got != tt.name {
				t.Errorf("String() = %q, want %q", got, tt.name)
			}
			err := fmt.Errorf("wrapped: %w", NewError(tt.kind, "op", "k", errDown))
			if got := KindOf(err); got != tt.kind {
				t.Errorf("KindOf() = %v, want %v", got, tt.kind)
			}
			if got := StatusOf(err); got != tt.status {
				t.Errorf("StatusOf() = %d, want %d", got, tt.status)
			}
			if !errors.Is(err, errDown) {
				t.Error("classified error should unwrap to its cause")
			}
		})
	}
}

func TestError_Unclassified(t *testing.T) {
	if got := KindOf(errDown); got != 0 {
		t.Errorf("KindOf() = %v, want 0", got)
	}
	if got := StatusOf(errDown); got != http.StatusInternalServerError {
		t.Errorf("StatusOf() = %d, want 500", got)
	}
}

func TestError_Message(t *testing.T) {
	err := NewError(KindGateway, "lookup", "dossier:abc", errDown)
	want := "cache: lookup dossier:abc: gateway: store down"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
}
