package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Telegram  TelegramConfig
	Kraken    KrakenConfig
	Custody   CustodyConfig
	Poller    PollerConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Path string
}

type TelegramConfig struct {
	Token string
}

type KrakenConfig struct {
	APIKey    string
	APISecret string // base64, as issued by the exchange
	BaseURL   string
	Timeout   time.Duration
}

type CustodyConfig struct {
	BaseURL string
	Timeout time.Duration
}

type PollerConfig struct {
	Interval time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond int
	BurstSize         int
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  time.Duration(getEnvAsInt("READ_TIMEOUT", 10)) * time.Second,
			WriteTimeout: time.Duration(getEnvAsInt("WRITE_TIMEOUT", 10)) * time.Second,
		},
		Database: DatabaseConfig{
			Path: getEnv("DB_PATH", "./coinlocker.db"),
		},
		Telegram: TelegramConfig{
			Token: getEnv("TELEGRAM_BOT_TOKEN", ""),
		},
		Kraken: KrakenConfig{
			APIKey:    getEnv("KRAKEN_API_KEY", ""),
			APISecret: getEnv("KRAKEN_API_SECRET", ""),
			BaseURL:   getEnv("KRAKEN_API_URL", "https://api.kraken.com"),
			Timeout:   time.Duration(getEnvAsInt("KRAKEN_TIMEOUT", 15)) * time.Second,
		},
		Custody: CustodyConfig{
			BaseURL: getEnv("CUSTODY_URL", "http://localhost:8081"),
			Timeout: time.Duration(getEnvAsInt("CUSTODY_TIMEOUT", 10)) * time.Second,
		},
		Poller: PollerConfig{
			Interval: time.Duration(getEnvAsInt("POLL_INTERVAL", 60)) * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: getEnvAsInt("RATE_LIMIT_RPS", 5),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 10),
		},
	}
}

func getEnv(key string, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultVal
}
