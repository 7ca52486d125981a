package requests_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/requestbot/core/database"
	"github.com/m3rciful/requestbot/internal/requests"
	"github.com/m3rciful/requestbot/migrations"
)

// setupRepository connects to TEST_POSTGRES_DSN (postgres:// URL), applies
// migrations and truncates the requests table.
func setupRepository(t *testing.T) *requests.Repository {
	t.Helper()

	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("skip integration test: TEST_POSTGRES_DSN is not set")
	}
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Skipf("skip integration test: cannot connect to database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Apply(dsn, migrations.FS))
	_, err = db.Exec(`TRUNCATE requests RESTART IDENTITY`)
	require.NoError(t, err)
	return requests.NewRepository(db)
}

func TestRepositoryLifecycle(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	created, err := repo.Create(ctx, requests.NewRequest{
		UserID: 7, UserName: "Anna Ivanova", Contact: "anna@example.com", Description: "Need a new landing page built",
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, requests.StatusNew, created.Status)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := repo.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Need a new landing page built", got.Description)

	time.Sleep(10 * time.Millisecond)
	updated, err := repo.UpdateStatus(ctx, created.ID, requests.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, requests.StatusCompleted, updated.Status)
	assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

	_, err = repo.Get(ctx, created.ID+1000)
	assert.ErrorIs(t, err, requests.ErrNotFound)
	_, err = repo.UpdateStatus(ctx, created.ID+1000, requests.StatusNew)
	assert.ErrorIs(t, err, requests.ErrNotFound)
}

func TestRepositoryCount(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	for _, uid := range []int64{1, 1, 2} {
		_, err := repo.Create(ctx, requests.NewRequest{UserID: uid, UserName: "Ivan", Contact: "@ivan_dev", Description: "Fix the checkout page"})
		require.NoError(t, err)
	}

	n, err := repo.Count(ctx, requests.CountFilter{})
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = repo.Count(ctx, requests.CountFilter{UserID: 1, Since: time.Now().Add(-time.Hour), Status: requests.StatusNew})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = repo.Count(ctx, requests.CountFilter{Since: time.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.Zero(t, n)
}
