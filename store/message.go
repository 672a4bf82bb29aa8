package store

import "github.com/pkg/errors"

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

var (
	// ErrImagePairIncomplete is returned when image bytes and media type are not
	// both present or both absent.
	ErrImagePairIncomplete = errors.New("image data and media type must be set together")
	// ErrModelTextEmpty is returned when a model message carries no text.
	ErrModelTextEmpty = errors.New("model message requires non-empty content")
)

// Message is one persisted conversational turn. Messages are append-only: the
// store assigns ID and CreatedTs on insert and rows are never updated afterwards.
type Message struct {
	// ID is the monotonically increasing sequence id. It is the single source
	// of ordering truth; CreatedTs is informational only.
	ID             int64
	UID            string
	Role           Role
	Content        string
	ImageData      []byte
	ImageMediaType string
	CreatedTs      int64
}

// HasImage reports whether the message carries an inline image.
func (m *Message) HasImage() bool {
	return len(m.ImageData) > 0 && m.ImageMediaType != ""
}

// Validate checks the message invariants before persistence.
func (m *Message) Validate() error {
	if (len(m.ImageData) > 0) != (m.ImageMediaType != "") {
		return ErrImagePairIncomplete
	}
	if m.Role == RoleModel && m.Content == "" {
		return ErrModelTextEmpty
	}
	return nil
}

// FindMessage filters message listing. A nil Limit returns the full history.
// With a Limit the most recent N messages are returned, still oldest first.
type FindMessage struct {
	Limit *int
}
