package config

import (
	"golang-crypto-trader/pkg/config"
)

// Telegram holds configuration for the Telegram notifier.
type Telegram struct {
	BotToken string `mapstructure:"bot_token"`
	ChatID   int64  `mapstructure:"chat_id"`
}

// Exchange holds the configuration for the trading exchange API.
type Exchange struct {
	BaseURL             string `mapstructure:"base_url"`
	APIKey              string `mapstructure:"api_key"`
	APISecret           string `mapstructure:"api_secret"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
}

// MarketData holds the configuration for the OHLCV data source.
type MarketData struct {
	BaseURL             string `mapstructure:"base_url"`
	MaxRequestPerMinute int    `mapstructure:"max_request_per_minute"`
	CacheTTL            string `mapstructure:"cache_ttl"`
}

// Storage holds object-storage settings.
type Storage struct {
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Scheduler holds cron expressions for the trade service.
type Scheduler struct {
	AutoTradeCron string `mapstructure:"auto_trade_cron"`
	RetrainCron   string `mapstructure:"retrain_cron"`
}

// Config holds the full configuration for the trader services.
type Config struct {
	App        config.App      `mapstructure:"app"`
	Logger     config.Logger   `mapstructure:"logger"`
	Database   config.Database `mapstructure:"database"`
	Redis      config.Redis    `mapstructure:"redis"`
	API        config.API      `mapstructure:"api"`
	Telegram   Telegram        `mapstructure:"telegram"`
	Exchange   Exchange        `mapstructure:"exchange"`
	MarketData MarketData      `mapstructure:"market_data"`
	Storage    Storage         `mapstructure:"storage"`
	Scheduler  Scheduler       `mapstructure:"scheduler"`
}

// Load loads the trader configuration from the given path.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := config.Load(path, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
