package cache

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// Sentinel errors for cache operations.
var (
	ErrNilCoordinator = errors.New("cache: coordinator is nil")
	ErrNilGateway     = errors.New("cache: gateway is nil")
	ErrInvalidKey     = errors.New("cache: key is invalid")
	ErrKeyTooLong     = errors.New("cache: key exceeds max length")
	ErrEmptyPattern   = errors.New("cache: pattern is empty")
)

// Kind classifies a cache failure.
type Kind int

const (
	// KindGateway is a failure talking to the store.
	KindGateway Kind = iota + 1
	// KindSerialization is a failure encoding or decoding a value.
	KindSerialization
	// KindFetcher is a failure of the wrapped function.
	KindFetcher
	// KindInvalidation is a failure removing keys.
	KindInvalidation
	// KindInvalidArgument is a malformed key or pattern.
	KindInvalidArgument
)

func (k Kind) String() string {
	switch k {
	case KindGateway:
		return "gateway"
	case KindSerialization:
		return "serialization"
	case KindFetcher:
		return "fetcher"
	case KindInvalidation:
		return "invalidation"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

// Status returns the HTTP status conventionally used for the kind.
func (k Kind) Status() int {
	switch k {
	case KindGateway:
		return http.StatusServiceUnavailable
	case KindFetcher:
		return http.StatusBadGateway
	case KindInvalidArgument:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Error is a classified cache failure.
type Error struct {
	Kind   Kind
	Status int
	Op     string
	Key    string
	Err    error
}

// NewError classifies err.
func NewError(kind Kind, op, key string, err error) *Error {
	return &Error{Kind: kind, Status: kind.Status(), Op: op, Key: key, Err: err}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString("cache: ")
	b.WriteString(e.Op)
	if e.Key != "" {
		b.WriteString(" ")
		b.WriteString(e.Key)
	}
	b.WriteString(": ")
	b.WriteString(e.Kind.String())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return 0
}

// StatusOf returns the HTTP status carried by err, or 500 when err is not
// a classified cache error.
func StatusOf(err error) int {
	var ce *Error
	if errors.As(err, &ce) && ce.Status != 0 {
		return ce.Status
	}
	return http.StatusInternalServerError
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return fmt.Errorf("%w: %d bytes", ErrKeyTooLong, len(key))
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
