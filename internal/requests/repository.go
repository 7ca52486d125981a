package requests

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

const requestColumns = `id, user_id, user_name, contact, task_description, status, created_at, updated_at`

// Repository is the Postgres-backed Store.
type Repository struct {
	db *sqlx.DB
}

// NewRepository returns a Store over db.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a request with status new.
func (r *Repository) Create(ctx context.Context, in NewRequest) (Request, error) {
	q := r.db.Rebind(`INSERT INTO requests (user_id, user_name, contact, task_description, status)
		VALUES (?, ?, ?, ?, ?)
		RETURNING ` + requestColumns)
	var out Request
	if err := r.db.QueryRowxContext(ctx, q, in.UserID, in.UserName, in.Contact, in.Description, StatusNew).StructScan(&out); err != nil {
		return Request{}, storageErr("create request", err)
	}
	return out, nil
}

// Get loads a request by id.
func (r *Repository) Get(ctx context.Context, id int64) (Request, error) {
	q := r.db.Rebind(`SELECT ` + requestColumns + ` FROM requests WHERE id = ?`)
	var out Request
	if err := r.db.GetContext(ctx, &out, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, storageErr("get request", err)
	}
	return out, nil
}

// UpdateStatus overwrites the status and refreshes updated_at.
func (r *Repository) UpdateStatus(ctx context.Context, id int64, status Status) (Request, error) {
	q := r.db.Rebind(`UPDATE requests SET status = ?, updated_at = now()
		WHERE id = ?
		RETURNING ` + requestColumns)
	var out Request
	if err := r.db.QueryRowxContext(ctx, q, status, id).StructScan(&out); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Request{}, ErrNotFound
		}
		return Request{}, storageErr("update request status", err)
	}
	return out, nil
}

// Count returns the number of requests matching f.
func (r *Repository) Count(ctx context.Context, f CountFilter) (int, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != 0 {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID)
	}
	if !f.Since.IsZero() {
		where = append(where, "created_at >= ?")
		args = append(args, f.Since)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	q := `SELECT COUNT(*) FROM requests`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, " AND ")
	}
	var n int
	if err := r.db.GetContext(ctx, &n, r.db.Rebind(q), args...); err != nil {
		return 0, storageErr("count requests", err)
	}
	return n, nil
}

func storageErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStorageUnavailable, err)
}
