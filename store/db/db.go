// Package db selects the key-value state driver from the profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/ponto2/line-diary/internal/profile"
	"github.com/ponto2/line-diary/store"
	"github.com/ponto2/line-diary/store/db/redis"
	"github.com/ponto2/line-diary/store/db/sqlite"
)

// NewDriver creates the state store driver based on the profile.
// SQLite is the default single-file local store; redis suits deployments
// that already run one.
func NewDriver(p *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch p.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(p.DSN())
	case "redis":
		driver, err = redis.NewDB(p.RedisAddr, p.RedisPassword)
	default:
		return nil, errors.Errorf("unknown state driver %q: only 'sqlite' and 'redis' are supported", p.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create state driver")
	}
	return driver, nil
}
