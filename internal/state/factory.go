package state

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bhonepyisone/cliick-assistant/internal/domain"
)

// Driver selects the state-store backend.
type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

// Options configures the redis driver; ignored for memory.
type Options struct {
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	TTL           time.Duration
}

// NewStore builds a StateStore for the given driver.
func NewStore(driver Driver, opts Options) (domain.StateStore, error) {
	switch driver {
	case DriverMemory, "":
		return NewMemoryStore(), nil
	case DriverRedis:
		if opts.RedisAddr == "" {
			return nil, fmt.Errorf("state: redis driver requires an address")
		}
		client := redis.NewClient(&redis.Options{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
		})
		return NewRedisStore(client, opts.TTL), nil
	default:
		return nil, fmt.Errorf("state: unknown driver %q", driver)
	}
}
