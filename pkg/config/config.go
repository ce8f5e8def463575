package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// App
	Env  string
	Port string

	// Postgres
	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	// Assets
	AssetRoot    string // durable asset storage root
	DownloadDir  string // remote fetch cache, keyed by URL hash
	FetchTimeout time.Duration

	// Viewer
	PageLimit int // default page size for message listings

	// Discord (sync bot only)
	DiscordBotToken string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file, but don't fail if it doesn't exist
	_ = godotenv.Load()

	cfg := &Config{
		Env:             getEnv("ENV", "development"),
		Port:            getEnv("PORT", "8080"),
		DBHost:          getEnv("DB_HOST", "localhost"),
		DBPort:          getEnv("DB_PORT", "5432"),
		DBUser:          getEnv("DB_USER", "postgres"),
		DBPass:          getEnv("DB_PASSWORD", "password"),
		DBName:          getEnv("DB_NAME", "chatvault"),
		AssetRoot:       getEnv("ASSET_ROOT", "assets"),
		DownloadDir:     getEnv("DOWNLOAD_DIR", "downloads"),
		FetchTimeout:    getEnvDuration("FETCH_TIMEOUT", 30*time.Second),
		PageLimit:       getEnvInt("PAGE_LIMIT", 50),
		DiscordBotToken: getEnv("DISCORD_BOT_TOKEN", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration values are set
func (c *Config) Validate() error {
	if c.DBHost == "" || c.DBName == "" {
		return fmt.Errorf("database host and name are required")
	}
	if c.AssetRoot == "" {
		return fmt.Errorf("ASSET_ROOT is required")
	}
	return nil
}

// PostgresDSN builds the connection string for the relational store
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPass, c.DBName, c.DBPort,
	)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := strconv.Atoi(value); err == nil {
			return v
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if v, err := time.ParseDuration(value); err == nil {
			return v
		}
	}
	return fallback
}
