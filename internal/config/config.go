// Package config holds the application configuration: the shared core
// sections plus database, operators, channel and dialogue settings.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	coreconfig "github.com/m3rciful/requestbot/core/config"
	coredatabase "github.com/m3rciful/requestbot/core/database"
)

// OperatorsConfig names the two privileged Telegram users. Zero means unset.
type OperatorsConfig struct {
	LeaderID  int64 `yaml:"leader_id" envconfig:"LEADER_ID"`
	ManagerID int64 `yaml:"manager_id" envconfig:"MANAGER_ID"`
}

// ChannelConfig selects the channel whose posts are mirrored.
// ID is a numeric chat id ("-100...") or a public "@username". Empty disables mirroring.
type ChannelConfig struct {
	ID        string `yaml:"id" envconfig:"CHANNEL_ID"`
	QueueSize int    `yaml:"queue_size" envconfig:"CHANNEL_QUEUE_SIZE"`
}

// Enabled reports whether a channel is configured.
func (c ChannelConfig) Enabled() bool { return c.ID != "" }

// Matches reports whether chat is the configured channel.
func (c ChannelConfig) Matches(chat int64, username string) bool {
	if !c.Enabled() {
		return false
	}
	if id, err := strconv.ParseInt(c.ID, 10, 64); err == nil {
		return id == chat
	}
	return username != "" && strings.EqualFold(strings.TrimPrefix(c.ID, "@"), username)
}

// DialogueConfig tunes the intake conversation.
type DialogueConfig struct {
	// SessionTTL expires abandoned dialogues; 0 keeps them until restart.
	SessionTTL         time.Duration `yaml:"session_ttl" envconfig:"DIALOGUE_SESSION_TTL"`
	KeepOnStoreFailure bool          `yaml:"keep_on_store_failure" envconfig:"DIALOGUE_KEEP_ON_STORE_FAILURE"`
}

// Config is the full application configuration.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config `yaml:"database"`
	Operators OperatorsConfig     `yaml:"operators"`
	Channel   ChannelConfig       `yaml:"channel"`
	Dialogue  DialogueConfig      `yaml:"dialogue"`
	// Timezone is an IANA name used for statistics windows; empty means local time.
	Timezone string `yaml:"timezone" envconfig:"TZ_NAME"`

	location *time.Location
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// Location returns the resolved time zone.
func (c *Config) Location() *time.Location {
	if c == nil || c.location == nil {
		return time.Local
	}
	return c.location
}

// Load reads path, overlays the environment and validates the result.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.Decode(path, &cfg); err != nil {
		return nil, err
	}
	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates application sections and fills defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	if err := coreconfig.Normalize(&cfg.Config); err != nil {
		return err
	}

	db := &cfg.Database
	if strings.TrimSpace(db.Host) == "" {
		db.Host = "localhost"
	}
	if strings.TrimSpace(db.Port) == "" {
		db.Port = "5432"
	}
	if strings.TrimSpace(db.Name) == "" {
		return fmt.Errorf("database.name is required")
	}
	if strings.TrimSpace(db.User) == "" {
		return fmt.Errorf("database.user is required")
	}

	if cfg.Operators.LeaderID < 0 || cfg.Operators.ManagerID < 0 {
		return fmt.Errorf("operators ids must be positive Telegram user ids")
	}

	cfg.Channel.ID = strings.TrimSpace(cfg.Channel.ID)
	if cfg.Channel.QueueSize <= 0 {
		cfg.Channel.QueueSize = 128
	}

	if cfg.Dialogue.SessionTTL < 0 {
		return fmt.Errorf("dialogue.session_ttl must be >= 0")
	}

	cfg.location = time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return fmt.Errorf("invalid timezone %q: %w", tz, err)
		}
		cfg.location = loc
	}
	return nil
}
