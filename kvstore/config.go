package kvstore

import "fmt"

// Backend identifies a storage backend implementation.
type Backend int

const (
	// BackendMemory is the in-process map-backed implementation.
	BackendMemory Backend = iota
	// BackendRedis is the Redis-backed implementation.
	BackendRedis
)

func (b Backend) String() string {
	switch b {
	case BackendMemory:
		return "memory"
	case BackendRedis:
		return "redis"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// RedisConfig holds connection parameters for the Redis backend.
// If URL is set it takes precedence over Addr/Password/DB.
type RedisConfig struct {
	URL      string `json:"url,omitempty"`
	Addr     string `json:"addr,omitempty"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`

	// FlushRate limits how many pipeline flushes per second a bulk session
	// may issue during bulk loads. Zero disables throttling.
	FlushRate float64 `json:"flush_rate,omitempty"`
	// FlushBurst is the burst size for FlushRate. Defaults to 1.
	FlushBurst int `json:"flush_burst,omitempty"`
}

// Config selects which backend implementation to instantiate. It is the only
// place backend identity is chosen.
type Config struct {
	Backend Backend      `json:"backend"`
	Redis   *RedisConfig `json:"redis,omitempty"`
}

// NewOrdered creates an ordered store for the given config. The name
// namespaces the store's keys on shared backends; an empty name generates a
// fresh namespace. The memory backend ignores the name.
func NewOrdered(cfg Config, name string) (OrderedStore, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemoryList(), nil
	case BackendRedis:
		return newRedisList(cfg, name)
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %d", int(cfg.Backend))
	}
}

// NewUnordered creates an unordered store for the given config.
// See NewOrdered for the meaning of name.
func NewUnordered(cfg Config, name string) (UnorderedStore, error) {
	switch cfg.Backend {
	case BackendMemory:
		return NewMemorySet(), nil
	case BackendRedis:
		return newRedisSet(cfg, name)
	default:
		return nil, fmt.Errorf("kvstore: unknown backend %d", int(cfg.Backend))
	}
}
