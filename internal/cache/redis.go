package cache

import (
	"encoding/json"
	"time"

	redis "github.com/go-redis/redis/v7"
)

// Redis is a Cache backed by a shared Redis instance, for deployments that
// run more than one whoisd process against the same registry mirror.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis wraps client, prefixing every key with prefix (empty is fine).
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (c *Redis) key(k string) string {
	if c.prefix == "" {
		return k
	}
	return c.prefix + k
}

func (c *Redis) Get(key string, dst any) (bool, error) {
	val, err := c.client.Get(c.key(key)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(val, dst); err != nil {
		_ = c.client.Del(c.key(key)).Err()
		return false, nil
	}
	return true, nil
}

func (c *Redis) Set(key string, value any, ttl time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.client.Set(c.key(key), b, ttl).Err()
}
