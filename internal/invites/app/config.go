package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aussiebroadwan/invitetracker/internal/invites/reward"
	"github.com/aussiebroadwan/invitetracker/pkg/cryptox"
	"github.com/caarlos0/env/v11"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN,required,notEmpty"`

	LedgerDriver  string `env:"LEDGER_DRIVER"  envDefault:"sqlite"` // sqlite, postgres, mongo, memory
	DatabaseFile  string `env:"DATABASE_FILE"  envDefault:"invites.db"`
	DatabaseURL   string `env:"DATABASE_URL"`
	MongoURI      string `env:"MONGO_URI"      envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"invites"`

	Env                 string        `env:"ENV"                   envDefault:"dev"`
	LogLevel            string        `env:"LOG_LEVEL"             envDefault:"info"`
	LogFormat           string        `env:"LOG_FORMAT"            envDefault:"json"`
	Port                int           `env:"PORT"                  envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	StatsInterval       time.Duration `env:"STATS_INTERVAL"        envDefault:"1m"`

	DedupCacheSize        int    `env:"DEDUP_CACHE_SIZE"         envDefault:"10000"`
	RewardMilestone       int    `env:"REWARD_MILESTONE"         envDefault:"200"`
	RewardRate            int    `env:"REWARD_RATE"              envDefault:"50"`
	RewardKeyLength       int    `env:"REWARD_KEY_LENGTH"        envDefault:"6"`
	WithdrawalURL         string `env:"WITHDRAWAL_URL"`
	CallbackRatePerMinute int    `env:"CALLBACK_RATE_PER_MINUTE" envDefault:"20"` // 0 disables the limit
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	drivers := []string{DriverSQLite, DriverPostgres, DriverMongo, DriverMemory}
	if !slices.Contains(drivers, c.LedgerDriver) {
		return fmt.Errorf("%w: LEDGER_DRIVER must be one of %v, got %q", ErrInvalidConfig, drivers, c.LedgerDriver)
	}
	if c.LedgerDriver == DriverPostgres && c.DatabaseURL == "" {
		return fmt.Errorf("%w: DATABASE_URL is required for the postgres driver", ErrInvalidConfig)
	}
	if c.CallbackRatePerMinute < 0 {
		return fmt.Errorf("%w: CALLBACK_RATE_PER_MINUTE must not be negative", ErrInvalidConfig)
	}
	if c.RewardKeyLength > cryptox.MaxCodeLength {
		return fmt.Errorf("%w: REWARD_KEY_LENGTH must be at most %d", ErrInvalidConfig, cryptox.MaxCodeLength)
	}
	if err := c.Policy().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Policy returns the reward constants selected by the configuration.
func (c Config) Policy() reward.Policy {
	return reward.Policy{
		Milestone: c.RewardMilestone,
		Rate:      c.RewardRate,
		KeyLength: c.RewardKeyLength,
	}
}
