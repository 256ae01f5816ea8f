// Package redis implements the state driver on a redis instance.
// Useful when the bot shares infrastructure that already runs redis; the
// SQLite driver is the default otherwise.
package redis

import (
	"context"
	"time"

	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "diary:"

// DB is the redis-backed key-value driver.
type DB struct {
	client *goredis.Client
}

// NewDB connects to redis at addr and verifies the connection.
func NewDB(addr, password string) (*DB, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrapf(err, "ping redis at %s", addr)
	}
	return &DB{client: client}, nil
}

func (d *DB) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := d.client.Get(ctx, keyPrefix+key).Result()
	if err == goredis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrapf(err, "get %s", key)
	}
	return value, true, nil
}

func (d *DB) Set(ctx context.Context, key, value string) error {
	// State is tiny and long-lived; no TTL.
	return errors.Wrapf(d.client.Set(ctx, keyPrefix+key, value, 0).Err(), "set %s", key)
}

func (d *DB) Close() error {
	return d.client.Close()
}
