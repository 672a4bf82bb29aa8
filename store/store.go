package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/nyxhq/nyx/internal/profile"
)

// Store provides database access to the conversation history.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// CreateMessage validates and persists one turn atomically. A user message with
// neither text nor image is dropped at this boundary: it is not persisted and
// not an error, matching the conversational contract that blank input leaves no
// trace. The returned message carries the store-assigned sequence id.
func (s *Store) CreateMessage(ctx context.Context, create *Message) (*Message, error) {
	if create.Role == RoleUser && create.Content == "" && len(create.ImageData) == 0 {
		slog.Warn("dropping empty user message at store boundary")
		return nil, nil
	}
	if err := create.Validate(); err != nil {
		return nil, err
	}
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateMessage(ctx, create)
}

// ListMessages returns messages oldest first. With find.Limit set, at most the
// N most recent messages are returned, still in chronological order.
func (s *Store) ListMessages(ctx context.Context, find *FindMessage) ([]*Message, error) {
	if find == nil {
		find = &FindMessage{}
	}
	return s.driver.ListMessages(ctx, find)
}

// DeleteAllMessages clears the history and reports the number of rows removed.
func (s *Store) DeleteAllMessages(ctx context.Context) (int64, error) {
	return s.driver.DeleteAllMessages(ctx)
}
