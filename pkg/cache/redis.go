package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// Config holds the Redis connection settings.
type Config struct {
	Address  string
	Password string
	DB       int
}

var client *redis.Client

// Init connects the shared client and verifies the connection. Components
// that can run without Redis treat a failure here as a soft error and keep
// going uncached.
func Init(cfg Config) error {
	if cfg.Address == "" {
		return fmt.Errorf("redis address cannot be empty")
	}

	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	client = c
	return nil
}

// Client returns the shared client, or nil before a successful Init.
func Client() *redis.Client {
	return client
}

// Close releases the shared client. Safe to call when Init never ran.
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}
