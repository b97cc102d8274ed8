package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.StoreDriver)
	assert.Equal(t, "TV", cfg.Event.UniqueIDPrefix)
	assert.Equal(t, 8, cfg.Event.AccessCodeLength)
	assert.Equal(t, []string{"idea", "design", "prototype", "final"}, cfg.Event.Phases)
	assert.Equal(t, 20.0, cfg.Event.MaxSubScore)
	assert.Equal(t, 12*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "DELETE ALL DATA", cfg.App.WipeConfirmation)
	assert.Equal(t, "registration-pii", cfg.Vault.KeyName)
	assert.Empty(t, cfg.Evaluators.Roster)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("EVENT_PHASES", "idea, pitch ,,final")
	t.Setenv("RATE_LIMIT_TEAM_REQUESTS", "3")
	t.Setenv("SCHEDULER_BACKFILL_INTERVAL", "90s")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")
	t.Setenv("LEADERBOARD_DEFAULT_LIMIT", "not-a-number")
	t.Setenv("RATE_LIMIT_TRUSTED_PROXIES", "10.0.0.0/8, 192.0.2.1")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.StoreDriver)
	assert.Equal(t, []string{"idea", "pitch", "final"}, cfg.Event.Phases)
	assert.Equal(t, 3, cfg.RateLimit.TeamRequests)
	assert.Equal(t, 90*time.Second, cfg.Scheduler.BackfillInterval)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
	assert.Equal(t, 50, cfg.Event.LeaderboardDefault)
	assert.Equal(t, []string{"10.0.0.0/8", "192.0.2.1"}, cfg.RateLimit.TrustedProxies)
}

func TestParseRoster(t *testing.T) {
	got := parseRoster(" Judge@Example.com:Judge One, second@example.com ,:ghost,")
	assert.Equal(t, []RosterEntry{
		{Email: "judge@example.com", Name: "Judge One"},
		{Email: "second@example.com", Name: "second@example.com"},
	}, got)

	assert.Empty(t, parseRoster(""))
}

func validConfig() *Config {
	return &Config{
		StoreDriver: "memory",
		JWT:         JWTConfig{Secret: "secret"},
		Event: EventConfig{
			UniqueIDLength:     6,
			AccessCodeLength:   8,
			MaxSubScore:        20,
			LeaderboardDefault: 50,
			LeaderboardMax:     500,
		},
	}
}

func TestValidate(t *testing.T) {
	require.NoError(t, validConfig().Validate())

	withProxies := validConfig()
	withProxies.RateLimit.TrustedProxies = []string{"10.0.0.0/8", "192.0.2.1", "::1"}
	require.NoError(t, withProxies.Validate())

	tests := map[string]func(c *Config){
		"missing jwt secret": func(c *Config) { c.JWT.Secret = "" },
		"production db password": func(c *Config) {
			c.StoreDriver = "postgres"
			c.App.Env = "production"
		},
		"unknown driver":         func(c *Config) { c.StoreDriver = "mongo" },
		"zero access code":       func(c *Config) { c.Event.AccessCodeLength = 0 },
		"non-positive max score": func(c *Config) { c.Event.MaxSubScore = 0 },
		"max below default":      func(c *Config) { c.Event.LeaderboardMax = 10 },
		"s3 without bucket":      func(c *Config) { c.Storage.Backend = "s3" },
		"unknown storage":        func(c *Config) { c.Storage.Backend = "ftp" },
		"telegram without token": func(c *Config) { c.Telegram.Enabled = true },
		"sheets without id":      func(c *Config) { c.Sheets.Enabled = true },
		"bad trusted proxy":      func(c *Config) { c.RateLimit.TrustedProxies = []string{"10.0.0.0/33"} },
	}

	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			c := validConfig()
			mutate(c)
			assert.Error(t, c.Validate())
		})
	}
}
