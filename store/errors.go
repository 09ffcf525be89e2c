package store

import "errors"

// Sentinel errors for gateway operations.
var (
	// ErrNilClient is returned when a RedisGateway is built without a client.
	ErrNilClient = errors.New("store: nil redis client")

	// ErrWrongType is returned when a key holds a value of another kind.
	ErrWrongType = errors.New("store: operation against a key holding the wrong kind of value")

	// ErrEmptyPattern is returned when a pattern operation receives "".
	ErrEmptyPattern = errors.New("store: empty pattern")

	// ErrDecode is returned when a stored value cannot be decoded.
	ErrDecode = errors.New("store: decode failed")

	// ErrEncode is returned when a value cannot be encoded.
	ErrEncode = errors.New("store: encode failed")
)
