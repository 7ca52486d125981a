package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreconfig "github.com/m3rciful/requestbot/core/config"
	coredatabase "github.com/m3rciful/requestbot/core/database"
)

const sample = `
telegram:
  token: "123:abc"
  run_mode: polling
rate_limit:
  interval_ms: 300
database:
  user: bot
  name: requests
operators:
  leader_id: 100
  manager_id: 200
channel:
  id: "@team_news"
dialogue:
  session_ttl: 30m
timezone: Europe/Moscow
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("MANAGER_ID", "300")

	cfg, err := Load(writeConfig(t, sample))
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.CoreConfig().Telegram.Token)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, 300, cfg.RateLimit.IntervalMS)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "5432", cfg.Database.Port)
	assert.Equal(t, int64(100), cfg.Operators.LeaderID)
	assert.Equal(t, int64(300), cfg.Operators.ManagerID, "environment overrides yaml")
	assert.Equal(t, 128, cfg.Channel.QueueSize)
	assert.Equal(t, 30*time.Minute, cfg.Dialogue.SessionTTL)
	assert.Equal(t, "Europe/Moscow", cfg.Location().String())
}

func TestNormalizeRejects(t *testing.T) {
	base := func() *Config {
		return &Config{
			Config:   coreconfig.Config{Telegram: coreconfig.TelegramConfig{Token: "t"}},
			Database: dbConfig(),
		}
	}
	require.NoError(t, Normalize(base()))

	noName := base()
	noName.Database.Name = ""
	assert.Error(t, Normalize(noName))

	badTZ := base()
	badTZ.Timezone = "Mars/Olympus"
	assert.Error(t, Normalize(badTZ))

	badTTL := base()
	badTTL.Dialogue.SessionTTL = -time.Second
	assert.Error(t, Normalize(badTTL))

	noToken := base()
	noToken.Telegram.Token = ""
	assert.Error(t, Normalize(noToken))

	assert.Error(t, Normalize(nil))
}

func TestChannelMatches(t *testing.T) {
	byID := ChannelConfig{ID: "-1001234"}
	assert.True(t, byID.Matches(-1001234, ""))
	assert.False(t, byID.Matches(-1009999, "team_news"))

	byName := ChannelConfig{ID: "@Team_News"}
	assert.True(t, byName.Matches(-1, "team_news"))
	assert.False(t, byName.Matches(-1, ""))

	assert.False(t, ChannelConfig{}.Matches(-1001234, "team_news"))
}

func TestLocationDefaultsToLocal(t *testing.T) {
	var cfg *Config
	assert.Equal(t, time.Local, cfg.Location())
}

func dbConfig() coredatabase.Config {
	return coredatabase.Config{User: "bot", Name: "requests"}
}
