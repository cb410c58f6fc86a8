package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config carries everything the bot needs at startup. Values come from a
// config.yaml next to the binary when present, overridden by environment
// variables (TELEGRAM_TOKEN, TELEGRAM_CHANNEL, ...).
type Config struct {
	Token          string
	Channel        string // Public channel username, e.g. "@CrushYaabGUT"
	AccountsPath   string
	ContentPath    string
	RequestTimeout time.Duration
	LogLevel       string
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("storage.accounts", "accounts.json")
	v.SetDefault("storage.content", "content.json")
	v.SetDefault("telegram.timeout", "30s")
	v.SetDefault("log.level", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := &Config{
		Token:          v.GetString("telegram.token"),
		Channel:        v.GetString("telegram.channel"),
		AccountsPath:   v.GetString("storage.accounts"),
		ContentPath:    v.GetString("storage.content"),
		RequestTimeout: v.GetDuration("telegram.timeout"),
		LogLevel:       v.GetString("log.level"),
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN not set")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("TELEGRAM_CHANNEL not set")
	}
	return cfg, nil
}
