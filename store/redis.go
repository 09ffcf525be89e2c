package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// scanBatch is the COUNT hint passed to SCAN.
const scanBatch = 100

// RedisGateway implements Gateway over a go-redis UniversalClient, so a
// single node, a sentinel setup and a cluster are all supported.
type RedisGateway struct {
	client redis.UniversalClient
}

// NewRedisGateway wraps an existing client.
func NewRedisGateway(client redis.UniversalClient) (*RedisGateway, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	return &RedisGateway{client: client}, nil
}

// DialRedis parses a redis:// URL and returns a gateway over a new client.
func DialRedis(url string) (*RedisGateway, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis url: %w", err)
	}
	return NewRedisGateway(redis.NewClient(opts))
}

// Client returns the underlying client.
func (g *RedisGateway) Client() redis.UniversalClient {
	return g.client
}

// Close closes the underlying client.
func (g *RedisGateway) Close() error {
	return g.client.Close()
}

func (g *RedisGateway) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := g.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (g *RedisGateway) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	return g.client.Set(ctx, key, value, ttl).Err()
}

func (g *RedisGateway) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	if g.isCluster() && len(keys) > 1 {
		return deletePipelined(ctx, g.client, keys)
	}
	return g.client.Del(ctx, keys...).Result()
}

func (g *RedisGateway) isCluster() bool {
	_, ok := g.client.(*redis.ClusterClient)
	return ok
}

// deletePipelined issues one DEL per key so keys may span cluster slots.
func deletePipelined(ctx context.Context, node redis.Cmdable, keys []string) (int64, error) {
	pipe := node.Pipeline()
	cmds := make([]*redis.IntCmd, len(keys))
	for i, k := range keys {
		cmds[i] = pipe.Del(ctx, k)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	var n int64
	for _, c := range cmds {
		n += c.Val()
	}
	return n, nil
}

// nodes returns the clients that each hold a share of the keyspace: every
// master of a cluster, or the client itself.
func (g *RedisGateway) nodes(ctx context.Context) ([]redis.Cmdable, error) {
	cc, ok := g.client.(*redis.ClusterClient)
	if !ok {
		return []redis.Cmdable{g.client}, nil
	}
	var (
		mu    sync.Mutex
		nodes []redis.Cmdable
	)
	err := cc.ForEachMaster(ctx, func(_ context.Context, node *redis.Client) error {
		mu.Lock()
		nodes = append(nodes, node)
		mu.Unlock()
		return nil
	})
	return nodes, err
}

// scanEach walks SCAN over every node in turn and hands each batch to fn
// together with the node holding those keys. fn returns false to stop.
func (g *RedisGateway) scanEach(ctx context.Context, pattern string, fn func(node redis.Cmdable, batch []string) (bool, error)) error {
	nodes, err := g.nodes(ctx)
	if err != nil {
		return err
	}
	for _, node := range nodes {
		var cursor uint64
		for {
			batch, next, err := node.Scan(ctx, cursor, pattern, scanBatch).Result()
			if err != nil {
				return err
			}
			if len(batch) > 0 {
				more, err := fn(node, batch)
				if err != nil || !more {
					return err
				}
			}
			cursor = next
			if cursor == 0 {
				break
			}
		}
	}
	return nil
}

func (g *RedisGateway) Exists(ctx context.Context, key string) (bool, error) {
	n, err := g.client.Exists(ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (g *RedisGateway) Scan(ctx context.Context, pattern string, limit int) ([]string, error) {
	if pattern == "" {
		return nil, ErrEmptyPattern
	}
	var keys []string
	err := g.scanEach(ctx, pattern, func(_ redis.Cmdable, batch []string) (bool, error) {
		for _, k := range batch {
			keys = append(keys, k)
			if limit > 0 && len(keys) >= limit {
				return false, nil
			}
		}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (g *RedisGateway) DeleteByPattern(ctx context.Context, pattern string) (int64, error) {
	if pattern == "" {
		return 0, ErrEmptyPattern
	}
	var total int64
	err := g.scanEach(ctx, pattern, func(node redis.Cmdable, batch []string) (bool, error) {
		n, err := deletePipelined(ctx, node, batch)
		total += n
		return true, err
	})
	return total, err
}

func (g *RedisGateway) TTL(ctx context.Context, key string) (time.Duration, error) {
	d, err := g.client.PTTL(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	switch {
	case d == -1 || d == -1*time.Millisecond:
		return TTLPersistent, nil
	case d == -2 || d == -2*time.Millisecond:
		return TTLMissing, nil
	}
	return d, nil
}

func (g *RedisGateway) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return g.client.Expire(ctx, key, ttl).Err()
}

func (g *RedisGateway) HSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]any, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return g.client.HSet(ctx, key, values).Err()
}

func (g *RedisGateway) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	return g.client.HGetAll(ctx, key).Result()
}

func (g *RedisGateway) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]any, len(members))
	for i, m := range members {
		args[i] = m
	}
	return g.client.SAdd(ctx, key, args...).Err()
}

func (g *RedisGateway) SMembers(ctx context.Context, key string) ([]string, error) {
	return g.client.SMembers(ctx, key).Result()
}

func (g *RedisGateway) Info(ctx context.Context) (map[string]string, error) {
	raw, err := g.client.Info(ctx).Result()
	if err != nil {
		return nil, err
	}
	return ParseInfo(raw), nil
}

func (g *RedisGateway) Ping(ctx context.Context) error {
	return g.client.Ping(ctx).Err()
}

// DBSize sums the key counts of every cluster master.
func (g *RedisGateway) DBSize(ctx context.Context) (int64, error) {
	nodes, err := g.nodes(ctx)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, node := range nodes {
		n, err := node.DBSize(ctx).Result()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

var _ Gateway = (*RedisGateway)(nil)
