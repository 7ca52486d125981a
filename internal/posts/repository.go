package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const postColumns = `id, channel_id, message_id, service_type, description, published_at, created_at`

// Repository is the Postgres-backed Store.
type Repository struct {
	db *sqlx.DB
}

// NewRepository returns a Store over db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts p, reporting false when the message was already mirrored.
func (r *Repository) Save(ctx context.Context, p Post) (bool, error) {
	q := r.db.Rebind(`INSERT INTO posts (channel_id, message_id, service_type, description, published_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (channel_id, message_id) DO NOTHING
		RETURNING id`)
	var id int64
	err := r.db.QueryRowxContext(ctx, q, p.ChannelID, p.MessageID, p.Label, p.Description, p.PublishedAt).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return false, nil
	case err != nil:
		return false, storageErr("save post", err)
	}
	return true, nil
}

// List returns up to limit posts starting at offset, newest first.
func (r *Repository) List(ctx context.Context, offset, limit int) ([]Post, error) {
	q := r.db.Rebind(`SELECT ` + postColumns + ` FROM posts
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`)
	var out []Post
	if err := r.db.SelectContext(ctx, &out, q, limit, offset); err != nil {
		return nil, storageErr("list posts", err)
	}
	return out, nil
}

// Count returns the number of stored posts.
func (r *Repository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, storageErr("count posts", err)
	}
	return n, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
