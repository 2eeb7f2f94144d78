package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dialTimeout = 5 * time.Second

// Config locates the shared Redis and names the console profile whose
// session lives there.
type Config struct {
	Addr    string
	DB      int
	Profile string
	Timeout time.Duration
}

// Open dials Redis, checks it answers PING within the timeout, and returns
// the profile's SessionStore. Closing the store closes the connection pool.
func Open(ctx context.Context, cfg Config) (*SessionStore, error) {
	if cfg.Profile == "" {
		return nil, errors.New("redis session store: empty profile")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = dialTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		ClientName:   "admin-console:" + cfg.Profile,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis session store at %s (db %d): %w", cfg.Addr, cfg.DB, err)
	}
	return NewSessionStore(client, cfg.Profile), nil
}
