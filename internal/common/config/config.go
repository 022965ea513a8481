package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Discord struct {
		Token          string   `env:"BOT_TOKEN,required"`
		Prefixes       []string `env:"BOT_PREFIXES" envSeparator:"," envDefault:"라라야 ,라라 ,ㄹ ,lara "`
		OwnerID        string   `env:"OWNER_ID"`
		GuildWhitelist []string `env:"GUILD_WHITELIST" envSeparator:","`
	}

	Roles struct {
		Admin      string `env:"ADMIN_ROLE,required"`
		Premium    string `env:"PREMIUM_ROLE,required"`
		Subscriber string `env:"SUBSCRIBER_ROLE,required"`
	}

	Forte struct {
		BaseURL   string        `env:"FORTE_BASE_URL,required"`
		Token     string        `env:"FORTE_TOKEN,required"`
		Timeout   time.Duration `env:"FORTE_TIMEOUT" envDefault:"10s"`
		RateLimit float64       `env:"FORTE_RATE_LIMIT" envDefault:"10"`
		RateBurst int           `env:"FORTE_RATE_BURST" envDefault:"20"`
	}

	Refund struct {
		ExcludedItemIDs []string      `env:"REFUND_EXCLUDED_ITEMS" envSeparator:","`
		ReplyTimeout    time.Duration `env:"REFUND_REPLY_TIMEOUT" envDefault:"30s"`
	}

	Interaction struct {
		Timeout time.Duration `env:"INTERACTION_TIMEOUT" envDefault:"60s"`
	}

	Catalog struct {
		Path string `env:"BOX_CATALOG_PATH" envDefault:"resources/box.json"`
	}

	// Redis is optional; receipts are only streamed when Addr is set.
	Redis struct {
		Addr          string `env:"REDIS_ADDR"`
		Password      string `env:"REDIS_PASSWORD"`
		DB            int    `env:"REDIS_DB" envDefault:"0"`
		ReceiptStream string `env:"REDIS_RECEIPT_STREAM" envDefault:"forte:receipts"`
	}

	HTTP struct {
		Addr string `env:"HTTP_ADDR" envDefault:":8080"`
	}
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	// A missing .env is fine: production sets the variables directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants env tags cannot express.
func (c *Config) Validate() error {
	if len(c.Discord.Prefixes) == 0 {
		return fmt.Errorf("at least one command prefix is required")
	}
	if c.Interaction.Timeout <= 0 {
		return fmt.Errorf("INTERACTION_TIMEOUT must be positive")
	}
	if c.Refund.ReplyTimeout <= 0 {
		return fmt.Errorf("REFUND_REPLY_TIMEOUT must be positive")
	}
	if c.Forte.RateLimit <= 0 || c.Forte.RateBurst <= 0 {
		return fmt.Errorf("FORTE_RATE_LIMIT and FORTE_RATE_BURST must be positive")
	}
	return nil
}
