package store

import (
	"context"
	"database/sql"
)

// Driver is the interface a database backend must implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate brings the schema up to date. Migrations are strictly additive:
	// opening a database written by an older schema must succeed, and adding a
	// column that already exists must be a no-op.
	Migrate(ctx context.Context) error

	// Message model related methods.
	CreateMessage(ctx context.Context, create *Message) (*Message, error)
	ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error)
	DeleteAllMessages(ctx context.Context) (int64, error)
}
