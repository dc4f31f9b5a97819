package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	TelegramBotToken string        `mapstructure:"TELEGRAM_BOT_TOKEN"`
	AdminsID         string        `mapstructure:"ADMINS_ID"`
	DBDriver         string        `mapstructure:"DB_DRIVER"`
	DB_URL           string        `mapstructure:"DB_URL"`
	ClearTime        string        `mapstructure:"CLEAR_TIME"`
	Timezone         string        `mapstructure:"TIMEZONE"`
	PaymentInterval  time.Duration `mapstructure:"PAYMENT_INTERVAL"`
	ServiceName      string        `mapstructure:"SERVICE_NAME"`
	WorkTime         string        `mapstructure:"WORK_TIME"`
	DefaultPrice     string        `mapstructure:"DEFAULT_PRICE"`
	DefaultHoldTime  int           `mapstructure:"DEFAULT_HOLD_TIME"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	MetricsAddr      string        `mapstructure:"METRICS_ADDR"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
}

var defaults = map[string]any{
	"TELEGRAM_BOT_TOKEN": "",
	"ADMINS_ID":          "",
	"DB_DRIVER":          "postgres",
	"DB_URL":             "",
	"CLEAR_TIME":         "00:00",
	"TIMEZONE":           "Local",
	"PAYMENT_INTERVAL":   "60s",
	"SERVICE_NAME":       "Number Rent",
	"WORK_TIME":          "10:00 - 22:00",
	"DEFAULT_PRICE":      "2.0",
	"DEFAULT_HOLD_TIME":  5,
	"REDIS_URL":          "",
	"METRICS_ADDR":       "",
	"LOG_LEVEL":          "debug",
}

func LoadConfig(path string) (config Config, err error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return config, fmt.Errorf("ошибка получения абсолютного пути: %w", err)
	}

	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AddConfigPath(filepath.Dir(absPath))
	v.SetConfigName(filepath.Base(absPath))
	v.SetConfigType("env")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return config, fmt.Errorf("ошибка чтения конфигурации: %w", err)
		}
	}

	if err := v.Unmarshal(&config); err != nil {
		return config, fmt.Errorf("ошибка преобразования конфига: %w", err)
	}

	if _, _, err := config.ClearHourMinute(); err != nil {
		return config, err
	}
	if _, err := config.AdminIDs(); err != nil {
		return config, err
	}

	return config, nil
}

// AdminIDs parses ADMINS_ID ("1,2,3").
func (c Config) AdminIDs() ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(c.AdminsID, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("неверный ADMINS_ID %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ClearHourMinute parses CLEAR_TIME in HH:MM form.
func (c Config) ClearHourMinute() (uint, uint, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(c.ClearTime))
	if err != nil {
		return 0, 0, fmt.Errorf("неверный CLEAR_TIME %q: %w", c.ClearTime, err)
	}
	return uint(t.Hour()), uint(t.Minute()), nil
}

func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("неверный TIMEZONE %q: %w", c.Timezone, err)
	}
	return loc, nil
}
