package config

import (
	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Debug bool `env:"DEBUG" envDefault:"false"`

	Server struct {
		Port int `env:"PORT" envDefault:"8080"`
		// Public base URL of this backend, used to build the OAuth
		// callback URL handed to the authorization provider.
		PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`
		Origin        string `env:"ORIGIN" envDefault:"*"`
	}

	Redis struct {
		Host     string `env:"REDIS_HOST" envDefault:"localhost"`
		Port     int    `env:"REDIS_PORT" envDefault:"6379"`
		Password string `env:"REDIS_PASSWORD" envDefault:""`
		DB       int    `env:"REDIS_DB" envDefault:"0"`
	}

	Telegram struct {
		BotToken string  `env:"BOT_TOKEN,required"`
		AdminIDs []int64 `env:"ADMIN_IDS" envSeparator:","`
	}

	Twitter struct {
		ConsumerKey    string `env:"TWITTER_CONSUMER_KEY,required"`
		ConsumerSecret string `env:"TWITTER_CONSUMER_SECRET,required"`
	}

	Fulfillment struct {
		// Lifetime of a pending authorization grant. A callback arriving
		// after this window is rejected and the user restarts the flow.
		GrantTTLMinutes int `env:"GRANT_TTL_MINUTES" envDefault:"10"`
		// Rate-limit policy for the action sequence: "fail_fast" or
		// "block_and_retry".
		RateLimitPolicy string `env:"RATE_LIMIT_POLICY" envDefault:"fail_fast"`
	}

	Broadcast struct {
		// Outbound announcement ceiling, messages per second.
		MessagesPerSecond float64 `env:"BROADCAST_MSGS_PER_SEC" envDefault:"30"`
	}

	Ton struct {
		ConfigURL    string `env:"TON_CONFIG_URL" envDefault:"https://ton.org/global-config.json"`
		WalletSeed   string `env:"TON_WALLET_SEED,required"`
		JettonMaster string `env:"TON_JETTON_MASTER,required"`
	}
}

func Load() *Config {
	// .env is optional; in production the variables are set directly.
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		panic(err)
	}

	return cfg
}

// IsAdmin reports whether the given Telegram user id is in the
// configured allow-list.
func (c *Config) IsAdmin(userID int64) bool {
	for _, id := range c.Telegram.AdminIDs {
		if id == userID {
			return true
		}
	}
	return false
}
