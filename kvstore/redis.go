package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

const connectTimeout = 5 * time.Second

// redisBase carries the shared plumbing of the Redis-backed stores. A store
// owns a hash at s.name that tracks its logical keys; the values of each key
// live in a per-key LIST or SET at memberKey(key).
type redisBase struct {
	client  *redis.Client
	name    string
	limiter *rate.Limiter
}

func newRedisBase(cfg Config, name string) (*redisBase, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("kvstore: redis backend requires a RedisConfig")
	}

	var opts *redis.Options
	if cfg.Redis.URL != "" {
		var err error
		opts, err = redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, fmt.Errorf("kvstore: failed to parse redis URL: %w", err)
		}
	} else {
		opts = &redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, wrapBackend("redis", fmt.Errorf("failed to connect: %w", err))
	}

	if name == "" {
		name = "minlsh-" + uuid.NewString()
	}

	var limiter *rate.Limiter
	if cfg.Redis.FlushRate > 0 {
		burst := cfg.Redis.FlushBurst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.Redis.FlushRate), burst)
	}

	return &redisBase{client: client, name: name, limiter: limiter}, nil
}

// Name returns the namespace this store lives under. Persist it to re-attach
// to the same server-side data later.
func (s *redisBase) Name() string { return s.name }

func (s *redisBase) memberKey(key string) string {
	return s.name + "/" + key
}

func (s *redisBase) Keys(ctx context.Context) ([]string, error) {
	keys, err := s.client.HKeys(ctx, s.name).Result()
	if err != nil {
		return nil, wrapBackend("redis", err)
	}
	return keys, nil
}

func (s *redisBase) Has(ctx context.Context, key string) (bool, error) {
	ok, err := s.client.HExists(ctx, s.name, key).Result()
	if err != nil {
		return false, wrapBackend("redis", err)
	}
	return ok, nil
}

func (s *redisBase) Size(ctx context.Context) (int, error) {
	n, err := s.client.HLen(ctx, s.name).Result()
	if err != nil {
		return 0, wrapBackend("redis", err)
	}
	return int(n), nil
}

func (s *redisBase) Remove(ctx context.Context, key string) error {
	pipe := s.client.Pipeline()
	pipe.HDel(ctx, s.name, key)
	pipe.Del(ctx, s.memberKey(key))
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapBackend("redis", err)
	}
	return nil
}

// removeValueCleanup drops the key from the tracking hash once its member
// collection no longer exists.
func (s *redisBase) removeValueCleanup(ctx context.Context, key string) error {
	n, err := s.client.Exists(ctx, s.memberKey(key)).Result()
	if err != nil {
		return wrapBackend("redis", err)
	}
	if n == 0 {
		if err := s.client.HDel(ctx, s.name, key).Err(); err != nil {
			return wrapBackend("redis", err)
		}
	}
	return nil
}

// RedisList is the Redis-backed ordered store.
type RedisList struct {
	redisBase
}

func newRedisList(cfg Config, name string) (*RedisList, error) {
	base, err := newRedisBase(cfg, name)
	if err != nil {
		return nil, err
	}
	return &RedisList{redisBase: *base}, nil
}

// Get returns the values under key in insertion order.
func (s *RedisList) Get(ctx context.Context, key string) ([]string, error) {
	vals, err := s.client.LRange(ctx, s.memberKey(key), 0, -1).Result()
	if err != nil {
		return nil, wrapBackend("redis", err)
	}
	return vals, nil
}

// GetMany pipelines one LRANGE per key and returns the results in input
// order.
func (s *RedisList) GetMany(ctx context.Context, keys ...string) ([][]string, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.LRange(ctx, s.memberKey(key), 0, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, wrapBackend("redis", err)
	}

	out := make([][]string, len(keys))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}

// Insert appends val to the list under key.
func (s *RedisList) Insert(ctx context.Context, key, val string) error {
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.name, key, s.memberKey(key))
	pipe.RPush(ctx, s.memberKey(key), val)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapBackend("redis", err)
	}
	return nil
}

// RemoveValue deletes one occurrence of val from the list under key.
func (s *RedisList) RemoveValue(ctx context.Context, key, val string) error {
	if err := s.client.LRem(ctx, s.memberKey(key), 1, val).Err(); err != nil {
		return wrapBackend("redis", err)
	}
	return s.removeValueCleanup(ctx, key)
}

// ItemCounts returns the list length under each key.
func (s *RedisList) ItemCounts(ctx context.Context) (map[string]int, error) {
	members, err := s.client.HGetAll(ctx, s.name).Result()
	if err != nil {
		return nil, wrapBackend("redis", err)
	}

	pipe := s.client.Pipeline()
	cmds := make(map[string]*redis.IntCmd, len(members))
	for key, memberKey := range members {
		cmds[key] = pipe.LLen(ctx, memberKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, wrapBackend("redis", err)
	}

	counts := make(map[string]int, len(cmds))
	for key, cmd := range cmds {
		counts[key] = int(cmd.Val())
	}
	return counts, nil
}

// BulkSession starts a pipelined insertion session.
func (s *RedisList) BulkSession() BulkSession {
	return newRedisSession(&s.redisBase, func(ctx context.Context, pipe redis.Pipeliner, key, val string) {
		pipe.HSet(ctx, s.name, key, s.memberKey(key))
		pipe.RPush(ctx, s.memberKey(key), val)
	})
}

// RedisSet is the Redis-backed unordered store.
type RedisSet struct {
	redisBase
}

func newRedisSet(cfg Config, name string) (*RedisSet, error) {
	base, err := newRedisBase(cfg, name)
	if err != nil {
		return nil, err
	}
	return &RedisSet{redisBase: *base}, nil
}

// Get returns the members of the set under key. Member order is unspecified.
func (s *RedisSet) Get(ctx context.Context, key string) ([]string, error) {
	vals, err := s.client.SMembers(ctx, s.memberKey(key)).Result()
	if err != nil {
		return nil, wrapBackend("redis", err)
	}
	return vals, nil
}

// GetMany pipelines one SMEMBERS per key and returns the results in input
// order.
func (s *RedisSet) GetMany(ctx context.Context, keys ...string) ([][]string, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, len(keys))
	for i, key := range keys {
		cmds[i] = pipe.SMembers(ctx, s.memberKey(key))
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, wrapBackend("redis", err)
	}

	out := make([][]string, len(keys))
	for i, cmd := range cmds {
		out[i] = cmd.Val()
	}
	return out, nil
}

// Insert adds val to the set under key.
func (s *RedisSet) Insert(ctx context.Context, key, val string) error {
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.name, key, s.memberKey(key))
	pipe.SAdd(ctx, s.memberKey(key), val)
	if _, err := pipe.Exec(ctx); err != nil {
		return wrapBackend("redis", err)
	}
	return nil
}

// RemoveValue deletes val from the set under key.
func (s *RedisSet) RemoveValue(ctx context.Context, key, val string) error {
	if err := s.client.SRem(ctx, s.memberKey(key), val).Err(); err != nil {
		return wrapBackend("redis", err)
	}
	return s.removeValueCleanup(ctx, key)
}

// ItemCounts returns the set cardinality under each key.
func (s *RedisSet) ItemCounts(ctx context.Context) (map[string]int, error) {
	members, err := s.client.HGetAll(ctx, s.name).Result()
	if err != nil {
		return nil, wrapBackend("redis", err)
	}

	pipe := s.client.Pipeline()
	cmds := make(map[string]*redis.IntCmd, len(members))
	for key, memberKey := range members {
		cmds[key] = pipe.SCard(ctx, memberKey)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, wrapBackend("redis", err)
	}

	counts := make(map[string]int, len(cmds))
	for key, cmd := range cmds {
		counts[key] = int(cmd.Val())
	}
	return counts, nil
}

// Reference returns the server-side key of the set so unions can run on the
// server without transferring members.
func (s *RedisSet) Reference(_ context.Context, key string) (Reference, error) {
	return redisReference(s.memberKey(key)), nil
}

// UnionReferences computes the union server-side via SUNION.
func (s *RedisSet) UnionReferences(ctx context.Context, refs ...Reference) ([]string, error) {
	if len(refs) == 0 {
		return []string{}, nil
	}

	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		rr, ok := ref.(redisReference)
		if !ok {
			return nil, ErrForeignReference
		}
		keys = append(keys, string(rr))
	}

	vals, err := s.client.SUnion(ctx, keys...).Result()
	if err != nil {
		return nil, wrapBackend("redis", err)
	}
	return vals, nil
}

// BulkSession starts a pipelined insertion session.
func (s *RedisSet) BulkSession() BulkSession {
	return newRedisSession(&s.redisBase, func(ctx context.Context, pipe redis.Pipeliner, key, val string) {
		pipe.HSet(ctx, s.name, key, s.memberKey(key))
		pipe.SAdd(ctx, s.memberKey(key), val)
	})
}

type redisReference string

func (redisReference) isReference() {}

// bulkFlushThreshold bounds the number of queued inserts per pipeline round
// trip during bulk loads.
const bulkFlushThreshold = 1000

// redisSession buffers inserts in a pipeline and flushes them in batches.
// One session is one logical writer.
type redisSession struct {
	base    *redisBase
	queue   func(ctx context.Context, pipe redis.Pipeliner, key, val string)
	pipe    redis.Pipeliner
	pending int
	closed  bool
}

func newRedisSession(base *redisBase, queue func(ctx context.Context, pipe redis.Pipeliner, key, val string)) *redisSession {
	return &redisSession{
		base:  base,
		queue: queue,
		pipe:  base.client.Pipeline(),
	}
}

func (s *redisSession) Insert(ctx context.Context, key, val string) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.queue(ctx, s.pipe, key, val)
	s.pending++
	if s.pending >= bulkFlushThreshold {
		return s.flush(ctx)
	}
	return nil
}

// Close flushes the remaining queued inserts exactly once.
func (s *redisSession) Close(ctx context.Context) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if s.pending == 0 {
		return nil
	}
	return s.flush(ctx)
}

func (s *redisSession) flush(ctx context.Context) error {
	if s.base.limiter != nil {
		if err := s.base.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	_, err := s.pipe.Exec(ctx)
	s.pipe = s.base.client.Pipeline()
	s.pending = 0
	if err != nil {
		return wrapBackend("redis", err)
	}
	return nil
}
