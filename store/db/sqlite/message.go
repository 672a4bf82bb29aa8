package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"github.com/pkg/errors"

	"github.com/nyxhq/nyx/store"
)

func (d *DB) CreateMessage(ctx context.Context, create *store.Message) (*store.Message, error) {
	fields := []string{"uid", "role", "content", "created_ts", "image_data", "image_media_type"}
	args := []any{create.UID, create.Role, create.Content, create.CreatedTs, nullableBlob(create.ImageData), nullableString(create.ImageMediaType)}

	stmt := `INSERT INTO message (` + strings.Join(fields, ", ") + `)
		VALUES (` + placeholders(len(args)) + `)
		RETURNING id`
	if err := d.db.QueryRowContext(ctx, stmt, args...).Scan(&create.ID); err != nil {
		return nil, errors.Wrap(err, "failed to create message")
	}
	return create, nil
}

func (d *DB) ListMessages(ctx context.Context, find *store.FindMessage) ([]*store.Message, error) {
	query := `SELECT id, uid, role, content, created_ts, image_data, image_media_type FROM message ORDER BY id ASC`
	args := []any{}
	if find.Limit != nil {
		// The most recent N rows, re-ordered chronologically for replay.
		query = `SELECT id, uid, role, content, created_ts, image_data, image_media_type FROM (
			SELECT id, uid, role, content, created_ts, image_data, image_media_type FROM message ORDER BY id DESC LIMIT ` + placeholder(1) + `
		) ORDER BY id ASC`
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list messages")
	}
	defer rows.Close()

	list := make([]*store.Message, 0)
	for rows.Next() {
		var (
			msg       store.Message
			imageData []byte
			mediaType sql.NullString
		)
		if err := rows.Scan(&msg.ID, &msg.UID, &msg.Role, &msg.Content, &msg.CreatedTs, &imageData, &mediaType); err != nil {
			return nil, errors.Wrap(err, "failed to scan message")
		}
		msg.ImageData = imageData
		if mediaType.Valid {
			msg.ImageMediaType = mediaType.String
		}
		list = append(list, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "failed to iterate messages")
	}
	return list, nil
}

func (d *DB) DeleteAllMessages(ctx context.Context) (int64, error) {
	result, err := d.db.ExecContext(ctx, "DELETE FROM message")
	if err != nil {
		return 0, errors.Wrap(err, "failed to clear messages")
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "failed to count cleared messages")
	}
	return count, nil
}

func nullableBlob(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
