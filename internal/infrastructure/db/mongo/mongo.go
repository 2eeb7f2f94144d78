package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// Config locates the shared MongoDB database and names the console profile
// whose session document is read and written.
type Config struct {
	URI      string
	Database string
	Profile  string
	Timeout  time.Duration
}

// Open connects, waits for a reachable primary, and returns the profile's
// SessionStore. Closing the store disconnects the client.
func Open(ctx context.Context, cfg Config) (*SessionStore, error) {
	if cfg.Profile == "" {
		return nil, errors.New("mongo session store: empty profile")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = connectTimeout
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetAppName("admin-console").
		SetServerSelectionTimeout(timeout)

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo session store: connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("mongo session store: ping %s: %w", cfg.Database, err)
	}
	return NewSessionStore(client.Database(cfg.Database), cfg.Profile), nil
}
