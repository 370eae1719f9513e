package db

import (
	"github.com/pkg/errors"

	"github.com/datagora/openhours/internal/profile"
	"github.com/datagora/openhours/store"
	"github.com/datagora/openhours/store/db/postgres"
	"github.com/datagora/openhours/store/db/sqlite"
)

// NewDBDriver creates new db driver based on profile.
//
// SQLite covers single-host runs and development; PostgreSQL is for shared
// deployments where several runners and the report server use one store.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.New("unknown db driver: only 'postgres' and 'sqlite' are supported")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
