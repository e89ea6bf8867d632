package config

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Providers ProvidersConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// CacheConfig controls cache lifetimes. SearchTTL applies to search
// results; popular listings use min(SearchTTL, PopularTTL). URLTTL is
// much longer because purchase URLs change far less often than prices.
type CacheConfig struct {
	SearchTTL  time.Duration
	PopularTTL time.Duration
	URLTTL     time.Duration
}

type ProvidersConfig struct {
	// Structured marketplace API
	MarketAPIBaseURL string
	MarketAPIToken   string
	MarketCampaignID string

	// HTML scraper
	ScraperBaseURL string
	ScraperTimeout time.Duration

	// Browser automation
	BrowserEnabled bool
	BrowserTimeout time.Duration
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		d.User, d.Password, d.Host, d.Port, d.Database, d.Schema)
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_ENABLED", true)
	viper.SetDefault("CACHE_TTL", "3h")
	viper.SetDefault("POPULAR_CACHE_TTL", "1h")
	viper.SetDefault("URL_CACHE_TTL", "168h")
	viper.SetDefault("MARKET_API_BASE_URL", "https://api.partner.market.yandex.ru")
	viper.SetDefault("SCRAPER_BASE_URL", "https://market.yandex.ru")
	viper.SetDefault("SCRAPER_TIMEOUT", "15s")
	viper.SetDefault("BROWSER_ENABLED", false)
	viper.SetDefault("BROWSER_TIMEOUT", "60s")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			Enabled:  viper.GetBool("REDIS_ENABLED"),
		},
		Cache: CacheConfig{
			SearchTTL:  viper.GetDuration("CACHE_TTL"),
			PopularTTL: viper.GetDuration("POPULAR_CACHE_TTL"),
			URLTTL:     viper.GetDuration("URL_CACHE_TTL"),
		},
		Providers: ProvidersConfig{
			MarketAPIBaseURL: viper.GetString("MARKET_API_BASE_URL"),
			MarketAPIToken:   viper.GetString("MARKET_API_TOKEN"),
			MarketCampaignID: viper.GetString("MARKET_CAMPAIGN_ID"),
			ScraperBaseURL:   viper.GetString("SCRAPER_BASE_URL"),
			ScraperTimeout:   viper.GetDuration("SCRAPER_TIMEOUT"),
			BrowserEnabled:   viper.GetBool("BROWSER_ENABLED"),
			BrowserTimeout:   viper.GetDuration("BROWSER_TIMEOUT"),
		},
	}
}
