package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("ADMIN_ROLE", "1")
	t.Setenv("PREMIUM_ROLE", "2")
	t.Setenv("SUBSCRIBER_ROLE", "3")
	t.Setenv("FORTE_BASE_URL", "https://forte.example.com/api/v2")
	t.Setenv("FORTE_TOKEN", "secret")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"라라야 ", "라라 ", "ㄹ ", "lara "}, cfg.Discord.Prefixes)
	assert.Equal(t, 60*time.Second, cfg.Interaction.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Refund.ReplyTimeout)
	assert.Equal(t, 10*time.Second, cfg.Forte.Timeout)
	assert.Equal(t, "resources/box.json", cfg.Catalog.Path)
	assert.Equal(t, "forte:receipts", cfg.Redis.ReceiptStream)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
}

func TestLoadLists(t *testing.T) {
	setRequired(t)
	t.Setenv("GUILD_WHITELIST", "111,222")
	t.Setenv("REFUND_EXCLUDED_ITEMS", "7,8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"111", "222"}, cfg.Discord.GuildWhitelist)
	assert.Equal(t, []string{"7", "8"}, cfg.Refund.ExcludedItemIDs)
}

func TestLoadMissingRequired(t *testing.T) {
	setRequired(t)
	require.NoError(t, os.Unsetenv("FORTE_TOKEN"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := &Config{}
		c.Discord.Prefixes = []string{"라라 "}
		c.Interaction.Timeout = time.Minute
		c.Refund.ReplyTimeout = 30 * time.Second
		c.Forte.RateLimit = 10
		c.Forte.RateBurst = 20
		return c
	}
	require.NoError(t, valid().Validate())

	c := valid()
	c.Discord.Prefixes = nil
	assert.Error(t, c.Validate())

	c = valid()
	c.Interaction.Timeout = 0
	assert.Error(t, c.Validate())

	c = valid()
	c.Refund.ReplyTimeout = -time.Second
	assert.Error(t, c.Validate())

	c = valid()
	c.Forte.RateBurst = 0
	assert.Error(t, c.Validate())
}
