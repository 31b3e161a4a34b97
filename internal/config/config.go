package config

import (
	"fmt"
	"time"

	env "github.com/caarlos0/env/v11"
)

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	JWTExpiryH  int    `env:"JWT_EXPIRY_HOURS" envDefault:"24"`
	Port        int    `env:"PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	AppEnv      string `env:"APP_ENV" envDefault:"production"`

	DefaultDailyTransferLimit int64 `env:"DEFAULT_DAILY_TRANSFER_LIMIT" envDefault:"500000"`
	DefaultCreditLimit        int64 `env:"DEFAULT_CREDIT_LIMIT" envDefault:"100000"`
	MaxCreditLimit            int64 `env:"MAX_CREDIT_LIMIT" envDefault:"1000000"`
	WithdrawalFee             int64 `env:"WITHDRAWAL_FEE" envDefault:"50"`

	TransferRequestTTLHours int `env:"TRANSFER_REQUEST_TTL_HOURS" envDefault:"168"`
	AcceptTimeoutS          int `env:"DTP_ACCEPT_TIMEOUT_S" envDefault:"30"`

	DBMaxOpenConns     int `env:"DB_MAX_OPEN_CONNS" envDefault:"25"`
	DBMaxIdleConns     int `env:"DB_MAX_IDLE_CONNS" envDefault:"10"`
	DBConnMaxLifetimeS int `env:"DB_CONN_MAX_LIFETIME_S" envDefault:"300"`
	DBConnMaxIdleTimeS int `env:"DB_CONN_MAX_IDLE_TIME_S" envDefault:"60"`
}

func Load() (*Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

func (c *Config) JWTExpiry() time.Duration {
	return time.Duration(c.JWTExpiryH) * time.Hour
}

func (c *Config) TransferRequestTTL() time.Duration {
	return time.Duration(c.TransferRequestTTLHours) * time.Hour
}

func (c *Config) AcceptTimeout() time.Duration {
	return time.Duration(c.AcceptTimeoutS) * time.Second
}
