package store

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"
)

// MemoryGateway is an in-process Gateway with Redis-compatible semantics.
// Expired entries are removed lazily on access.
type MemoryGateway struct {
	mu      sync.RWMutex
	entries map[string]*memEntry
	started time.Time
	now     func() time.Time
}

type memKind int

const (
	kindString memKind = iota
	kindHash
	kindSet
)

type memEntry struct {
	kind      memKind
	value     []byte
	hash      map[string]string
	set       map[string]struct{}
	expiresAt time.Time // zero means no expiry
}

func (e *memEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

func (e *memEntry) size() int {
	n := len(e.value)
	for k, v := range e.hash {
		n += len(k) + len(v)
	}
	for m := range e.set {
		n += len(m)
	}
	return n
}

// NewMemoryGateway creates an empty in-memory gateway.
func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		entries: make(map[string]*memEntry),
		started: time.Now(),
		now:     time.Now,
	}
}

// live returns the entry for key, dropping it if expired. Caller holds mu.
func (g *MemoryGateway) live(key string) (*memEntry, bool) {
	e, ok := g.entries[key]
	if !ok {
		return nil, false
	}
	if e.expired(g.now()) {
		delete(g.entries, key)
		return nil, false
	}
	return e, true
}

func (g *MemoryGateway) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.live(key)
	if !ok {
		return nil, false, nil
	}
	if e.kind != kindString {
		return nil, false, ErrWrongType
	}
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, true, nil
}

func (g *MemoryGateway) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e := &memEntry{kind: kindString, value: append([]byte(nil), value...)}
	if ttl > 0 {
		e.expiresAt = g.now().Add(ttl)
	}
	g.mu.Lock()
	g.entries[key] = e
	g.mu.Unlock()
	return nil
}

func (g *MemoryGateway) Delete(ctx context.Context, keys ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	var n int64
	for _, k := range keys {
		if _, ok := g.live(k); ok {
			delete(g.entries, k)
			n++
		}
	}
	return n, nil
}

func (g *MemoryGateway) Exists(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.live(key)
	return ok, nil
}

func (g *MemoryGateway) Scan(ctx context.Context, pattern string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	keys := make([]string, 0)
	for k := range g.entries {
		if _, ok := g.live(k); ok && MatchGlob(pattern, k) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	return keys, nil
}

func (g *MemoryGateway) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if pattern == "" {
		return 0, ErrEmptyPattern
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	var n int64
	for k := range g.entries {
		if _, ok := g.live(k); ok && MatchGlob(pattern, k) {
			delete(g.entries, k)
			n++
		}
	}
	return n, nil
}

func (g *MemoryGateway) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.live(key)
	if !ok {
		return TTLMissing, nil
	}
	if e.expiresAt.IsZero() {
		return TTLPersistent, nil
	}
	return e.expiresAt.Sub(g.now()), nil
}

func (g *MemoryGateway) Expire(ctx context.Context, key string, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.live(key)
	if !ok {
		return nil
	}
	if ttl <= 0 {
		delete(g.entries, key)
		return nil
	}
	e.expiresAt = g.now().Add(ttl)
	return nil
}

func (g *MemoryGateway) HSet(ctx context.Context, key string, fields map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.live(key)
	if !ok {
		e = &memEntry{kind: kindHash, hash: make(map[string]string, len(fields))}
		g.entries[key] = e
	}
	if e.kind != kindHash {
		return ErrWrongType
	}
	for k, v := range fields {
		e.hash[k] = v
	}
	return nil
}

func (g *MemoryGateway) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]string)
	e, ok := g.live(key)
	if !ok {
		return out, nil
	}
	if e.kind != kindHash {
		return nil, ErrWrongType
	}
	for k, v := range e.hash {
		out[k] = v
	}
	return out, nil
}

func (g *MemoryGateway) SAdd(ctx context.Context, key string, members ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(members) == 0 {
		return nil
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	e, ok := g.live(key)
	if !ok {
		e = &memEntry{kind: kindSet, set: make(map[string]struct{}, len(members))}
		g.entries[key] = e
	}
	if e.kind != kindSet {
		return ErrWrongType
	}
	for _, m := range members {
		e.set[m] = struct{}{}
	}
	return nil
}

func (g *MemoryGateway) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make([]string, 0)
	e, ok := g.live(key)
	if !ok {
		return out, nil
	}
	if e.kind != kindSet {
		return nil, ErrWrongType
	}
	for m := range e.set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// Info reports memory usage, client count and uptime using the Redis INFO
// field names.
func (g *MemoryGateway) Info(ctx context.Context) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	var used int
	for k, e := range g.entries {
		used += len(k) + e.size()
	}
	g.mu.RUnlock()

	return map[string]string{
		"used_memory":       strconv.Itoa(used),
		"used_memory_human": humanBytes(int64(used)),
		"connected_clients": "1",
		"uptime_in_seconds": strconv.FormatInt(int64(g.now().Sub(g.started).Seconds()), 10),
	}, nil
}

func (g *MemoryGateway) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (g *MemoryGateway) DBSize(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	var n int64
	for k := range g.entries {
		if _, ok := g.live(k); ok {
			n++
		}
	}
	return n, nil
}

// humanBytes formats n the way Redis formats used_memory_human.
func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return strconv.FormatInt(n, 10) + "B"
	}
	units := []string{"K", "M", "G", "T"}
	v := float64(n)
	i := -1
	for v >= unit && i < len(units)-1 {
		v /= unit
		i++
	}
	return strconv.FormatFloat(v, 'f', 2, 64) + units[i]
}

var _ Gateway = (*MemoryGateway)(nil)
