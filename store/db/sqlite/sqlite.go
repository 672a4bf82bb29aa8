package sqlite

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/pkg/errors"

	// Import the pure-Go SQLite driver.
	_ "modernc.org/sqlite"

	"github.com/nyxhq/nyx/internal/profile"
	"github.com/nyxhq/nyx/store"
)

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a database instance with the given profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile == nil {
		return nil, errors.New("profile is nil")
	}
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	// busy_timeout smooths over writer contention from concurrent sessions;
	// WAL keeps readers unblocked during an append.
	sqliteDB, err := sql.Open("sqlite", profile.DSN+"?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	driver := DB{db: sqliteDB, profile: profile}
	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Migrate creates the message table if needed and applies additive column
// migrations. A database written by an older schema that lacks the uid or
// image columns opens cleanly; columns that already exist are left untouched.
func (d *DB) Migrate(ctx context.Context) error {
	stmt := `
		CREATE TABLE IF NOT EXISTS message (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			uid TEXT NOT NULL DEFAULT '',
			role TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			created_ts BIGINT NOT NULL DEFAULT (strftime('%s', 'now')),
			image_data BLOB,
			image_media_type TEXT
		)
	`
	if _, err := d.db.ExecContext(ctx, stmt); err != nil {
		return errors.Wrap(err, "failed to create message table")
	}

	for _, column := range []struct {
		name string
		ddl  string
	}{
		{"uid", "ALTER TABLE message ADD COLUMN uid TEXT NOT NULL DEFAULT ''"},
		{"image_data", "ALTER TABLE message ADD COLUMN image_data BLOB"},
		{"image_media_type", "ALTER TABLE message ADD COLUMN image_media_type TEXT"},
	} {
		added, err := d.ensureColumn(ctx, column.name, column.ddl)
		if err != nil {
			return err
		}
		if added {
			slog.Info("added missing column to message table", slog.String("column", column.name))
		}
	}
	return nil
}

func (d *DB) ensureColumn(ctx context.Context, name, ddl string) (bool, error) {
	rows, err := d.db.QueryContext(ctx, "PRAGMA table_info(message)")
	if err != nil {
		return false, errors.Wrap(err, "failed to inspect message table")
	}
	defer rows.Close()

	exists := false
	for rows.Next() {
		var (
			cid       int
			colName   string
			colType   string
			notNull   int
			dfltValue sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &colName, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, errors.Wrap(err, "failed to scan table info")
		}
		if colName == name {
			exists = true
		}
	}
	if err := rows.Err(); err != nil {
		return false, errors.Wrap(err, "failed to iterate table info")
	}
	if exists {
		return false, nil
	}

	if _, err := d.db.ExecContext(ctx, ddl); err != nil {
		return false, errors.Wrapf(err, "failed to add column %s", name)
	}
	return true, nil
}
