package requests

import (
	"context"
	"time"
)

// CountFilter narrows Count. Zero values mean "no filter".
type CountFilter struct {
	UserID int64
	Since  time.Time
	Status Status
}

// Store persists requests.
type Store interface {
	Create(ctx context.Context, in NewRequest) (Request, error)
	Get(ctx context.Context, id int64) (Request, error)
	UpdateStatus(ctx context.Context, id int64, status Status) (Request, error)
	Count(ctx context.Context, f CountFilter) (int, error)
}
