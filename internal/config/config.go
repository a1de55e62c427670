package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"nftsalesgo/internal/fees"
	"nftsalesgo/internal/sales"
)

type Config struct {
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort uint16 `env:"REDIS_PORT" envDefault:"6379"   validate:"min=1000,max=65535"`

	StoreBackend     string `env:"STORE_BACKEND"     envDefault:"postgres" validate:"oneof=postgres memory"`
	PostgresHost     string `env:"POSTGRES_HOST"     envDefault:"localhost"`
	PostgresPort     string `env:"POSTGRES_PORT"     envDefault:"5432"`
	PostgresUser     string `env:"POSTGRES_USER"     envDefault:"market_user"`
	PostgresPassword string `env:"POSTGRES_PASSWORD" envDefault:"market_password"`
	PostgresDb       string `env:"POSTGRES_DB"       envDefault:"market_db"`
	SaleCacheSize    int    `env:"SALE_CACHE_SIZE"   envDefault:"1024" validate:"min=0"`

	MarketplaceID string   `env:"MARKETPLACE_ID" envDefault:"marketplace" validate:"required"`
	AdminIDs      []string `env:"ADMIN_IDS"      envSeparator:","`

	// Empty URLs select the in-process custody registry / treasury vault.
	CustodyURL          string        `env:"CUSTODY_URL"          validate:"omitempty,url"`
	TreasuryURL         string        `env:"TREASURY_URL"         validate:"omitempty,url"`
	CollaboratorTimeout time.Duration `env:"COLLABORATOR_TIMEOUT" envDefault:"5s"`
	// CustodySeed mints "tokenID:creator:royaltyBps" entries into the
	// in-process registry.
	CustodySeed []string `env:"CUSTODY_SEED" envSeparator:","`

	MaxSaleDuration       time.Duration `env:"MAX_SALE_DURATION"        envDefault:"720h"`
	MinSaleDuration       time.Duration `env:"MIN_SALE_DURATION"        envDefault:"1h"`
	MinTimeDifference     time.Duration `env:"MIN_TIME_DIFFERENCE"      envDefault:"24h"`
	ExtensionDuration     time.Duration `env:"EXTENSION_DURATION"       envDefault:"10m"`
	MinSaleUpdateDuration time.Duration `env:"MIN_SALE_UPDATE_DURATION" envDefault:"0s"`

	PrimarySaleFeeBps           int64 `env:"PRIMARY_SALE_FEE_BPS"           envDefault:"500"  validate:"min=0,max=10000"`
	SecondarySaleFeeBps         int64 `env:"SECONDARY_SALE_FEE_BPS"         envDefault:"400"  validate:"min=0,max=10000"`
	UppercapPrimarySaleFeeBps   int64 `env:"UPPERCAP_PRIMARY_SALE_FEE_BPS"   envDefault:"1000" validate:"min=0,max=10000"`
	UppercapSecondarySaleFeeBps int64 `env:"UPPERCAP_SECONDARY_SALE_FEE_BPS" envDefault:"1000" validate:"min=0,max=10000"`

	BidMinIncrement decimal.Decimal `env:"BID_MIN_INCREMENT" envDefault:"0"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"10s"`

	LogLevel      string `env:"LOG_LEVEL"        envDefault:"debug" validate:"oneof=debug info warn error"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB"  envDefault:"100" validate:"min=1"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS"  envDefault:"5"   validate:"min=0"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"30"  validate:"min=0"`

	HttpServerPort uint16 `env:"HTTP_SERVER_PORT" envDefault:"8085" validate:"min=1000,max=65535"`
}

func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	err := godotenv.Load(".env")
	if err != nil {
		zap.L().Debug(".env file not found", zap.Error(err))
	}

	cfg := &Config{}
	// Parse config from environment variables
	if err = env.Parse(cfg); err != nil {
		zap.L().Error("config_load_failed", zap.Error(err))
		return nil, err
	}

	// Validate the config
	validate := validator.New()
	err = validate.Struct(cfg)
	if err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	if err = cfg.check(); err != nil {
		zap.L().Error("config_validation_failed", zap.Error(err))
		return nil, err
	}
	return cfg, nil
}

// check covers the cross-field rules the struct tags cannot express.
func (c *Config) check() error {
	if c.BidMinIncrement.IsNegative() {
		return fmt.Errorf("BID_MIN_INCREMENT must not be negative")
	}
	if err := c.Timing().Validate(); err != nil {
		return err
	}
	return c.Fees().Validate()
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.PostgresPassword != "" {
		c.PostgresPassword = "***"
	}
	return c
}

func (c *Config) Timing() sales.TimingConfig {
	return sales.TimingConfig{
		MaxSaleDuration:       c.MaxSaleDuration,
		MinSaleDuration:       c.MinSaleDuration,
		MinTimeDifference:     c.MinTimeDifference,
		ExtensionDuration:     c.ExtensionDuration,
		MinSaleUpdateDuration: c.MinSaleUpdateDuration,
	}
}

func (c *Config) Fees() fees.Config {
	return fees.Config{
		PrimaryFeeBps:           c.PrimarySaleFeeBps,
		SecondaryFeeBps:         c.SecondarySaleFeeBps,
		UpperCapPrimaryFeeBps:   c.UppercapPrimarySaleFeeBps,
		UpperCapSecondaryFeeBps: c.UppercapSecondarySaleFeeBps,
	}
}
