package policy

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/goccy/go-json"
	"github.com/zeebo/xxh3"
)

// Keyer hashes structured lookup values into stable key suffixes.
//
// Contract:
// - Determinism: same logical input produces the same hash regardless of map order.
// - Concurrency: safe for concurrent use.
type Keyer struct{}

// NewKeyer creates a keyer.
func NewKeyer() *Keyer {
	return &Keyer{}
}

// Hash returns the hex-encoded xxh3-128 digest of the canonical form of v.
func (k *Keyer) Hash(v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", fmt.Errorf("policy: failed to canonicalize lookup: %w", err)
	}
	sum := xxh3.Hash128(canonical).Bytes()
	return hex.EncodeToString(sum[:]), nil
}

// Canonicalize produces a deterministic JSON representation of v.
// Values are normalized through JSON first so structs, typed maps and
// map[string]any with the same content canonicalize identically.
func Canonicalize(v any) ([]byte, error) {
	if v == nil {
		return []byte("null"), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return canonicalize(generic)
}

func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, '}'), nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}
		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	return append(result, ']'), nil
}
