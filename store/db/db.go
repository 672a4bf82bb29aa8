// Package db dispatches to the concrete database driver.
package db

import (
	"github.com/pkg/errors"

	"github.com/nyxhq/nyx/internal/profile"
	"github.com/nyxhq/nyx/store"
	"github.com/nyxhq/nyx/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on the profile. The conversation
// history is a local single-file store, so SQLite is the only backend.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver: %q (only 'sqlite' is supported)", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create db driver")
	}
	return driver, nil
}
