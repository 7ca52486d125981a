package bootstrap

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/requestbot/core/config"
	coredatabase "github.com/m3rciful/requestbot/core/database"
)

func lazyDB(t *testing.T) *sqlx.DB {
	t.Helper()
	// sql.Open does not dial, so no server is needed.
	db, err := sqlx.Open("postgres", "host=127.0.0.1 sslmode=disable")
	require.NoError(t, err)
	return db
}

func TestRunPipelineOrder(t *testing.T) {
	var calls []string
	src := fstest.MapFS{"000001_x.up.sql": {Data: []byte("SELECT 1;")}}
	db := lazyDB(t)

	res, err := Run(Options{
		Config:     &coreconfig.Config{},
		Database:   coredatabase.Config{Name: "requests"},
		Migrations: src,
		LoggerInit: func(*coreconfig.Config) error { calls = append(calls, "logger"); return nil },
		Connect: func(cfg coredatabase.Config) (*sqlx.DB, error) {
			calls = append(calls, "connect:"+cfg.Name)
			return db, nil
		},
		Migrate: func(_ coredatabase.Config, fsys fs.FS) error {
			calls = append(calls, "migrate")
			_, err := fs.Stat(fsys, "000001_x.up.sql")
			return err
		},
	})
	require.NoError(t, err)
	assert.Same(t, db, res.DB)
	assert.Equal(t, []string{"logger", "connect:requests", "migrate"}, calls)
}

func TestRunStopsOnFailure(t *testing.T) {
	src := fstest.MapFS{}
	boom := errors.New("boom")

	_, err := Run(Options{Config: &coreconfig.Config{}, Migrations: src,
		LoggerInit: func(*coreconfig.Config) error { return boom },
	})
	assert.ErrorIs(t, err, boom)

	connected := false
	_, err = Run(Options{Config: &coreconfig.Config{}, Migrations: src,
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			connected = true
			return lazyDB(t), nil
		},
		Migrate: func(coredatabase.Config, fs.FS) error { return boom },
	})
	assert.True(t, connected)
	assert.ErrorIs(t, err, boom)

	_, err = Run(Options{})
	assert.Error(t, err)
	_, err = Run(Options{Config: &coreconfig.Config{}})
	assert.Error(t, err)
}
