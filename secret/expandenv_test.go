package secret

import (
	"errors"
	"strings"
	"testing"
)

func TestExpandEnvStrict_MissingVarErrors(t *testing.T) {
	t.Setenv("PRESENT", "ok")

	_, err := ExpandEnvStrict("a=${PRESENT} b=${MISSING}")
	if !errors.Is(err, ErrMissingEnv) {
		t.Fatalf("ExpandEnvStrict() error = %v, want ErrMissingEnv", err)
	}
	if !strings.Contains(err.Error(), "MISSING") {
		t.Fatalf("expected missing var name in error, got: %v", err)
	}
}

func TestExpandEnvStrict_DollarEscape(t *testing.T) {
	t.Setenv("X", "y")

	out, err := ExpandEnvStrict("$$${X}")
	if err != nil {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
	if out != "$y" {
		t.Fatalf("ExpandEnvStrict() = %q, want %q", out, "$y")
	}
}

func TestExpandEnvStrict_NoReferences(t *testing.T) {
	out, err := ExpandEnvStrict("redis://localhost:6379/0")
	if err != nil || out != "redis://localhost:6379/0" {
		t.Fatalf("ExpandEnvStrict() = %q, %v", out, err)
	}
}

func TestExpandEnvStrict_RepeatedMissingListedOnce(t *testing.T) {
	_, err := ExpandEnvStrict("${NOPE_A}-${NOPE_A}-${NOPE_B}")
	if err == nil || !strings.HasSuffix(err.Error(), "NOPE_A, NOPE_B") {
		t.Fatalf("ExpandEnvStrict() error = %v", err)
	}
}
