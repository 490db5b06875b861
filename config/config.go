package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// defaultDealResultLimit is how many deals a report carries when
// DEAL_RESULT_LIMIT is unset or unusable.
const defaultDealResultLimit = 10

type Config struct {
	ServerPort  string
	DatabaseURL string
	AdminToken  string
	LogLevel    string

	CatalogBaseURL      string
	DealResultLimit     int
	ScrapeIntervalHours int

	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	EmailFrom    string
	// Space-separated recipient list, e.g. "a@foo.bar b@foo.bar"
	DealRecipients []string
}

// ScraperConfig holds catalog scraping configuration
type ScraperConfig struct {
	RequestTimeout   time.Duration `json:"request_timeout"`
	MaxRetryAttempts int           `json:"max_retry_attempts"`
	PolitenessDelay  time.Duration `json:"politeness_delay"`
	HeadlessFallback bool          `json:"headless_fallback"`
}

// DefaultScraperConfig returns default scraping configuration for politeness
func DefaultScraperConfig() *ScraperConfig {
	return &ScraperConfig{
		RequestTimeout:   30 * time.Second,
		MaxRetryAttempts: 3,                      // Per-product fetch attempts before the product is skipped
		PolitenessDelay:  500 * time.Millisecond, // Delay between product detail requests
		HeadlessFallback: true,
	}
}

// GetScrapeInterval returns the interval between deal update runs
func (c *Config) GetScrapeInterval() time.Duration {
	return time.Duration(c.ScrapeIntervalHours) * time.Hour
}

func LoadConfig() *Config {
	err := godotenv.Load()
	if err != nil {
		logrus.Warn("Error loading .env file, using system environment variables")
	}

	cfg := &Config{
		ServerPort:  getEnv("SERVER_PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		AdminToken:  getEnv("ADMIN_TOKEN", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		CatalogBaseURL:      getEnv("CATALOG_BASE_URL", "https://www.o2.co.uk"),
		DealResultLimit:     getEnvInt("DEAL_RESULT_LIMIT", defaultDealResultLimit),
		ScrapeIntervalHours: getEnvInt("SCRAPE_INTERVAL_HOURS", 8),

		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnv("SMTP_PORT", "587"),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		EmailFrom:      getEnv("EMAIL_FROM", "deals@foo.bar"),
		DealRecipients: strings.Fields(getEnv("DEAL_EMAILS", "")),
	}

	// A limit below 1 would make every run report nothing.
	if cfg.DealResultLimit < 1 {
		logrus.Warnf("Invalid DEAL_RESULT_LIMIT value: %d, using default %d", cfg.DealResultLimit, defaultDealResultLimit)
		cfg.DealResultLimit = defaultDealResultLimit
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, exists := os.LookupEnv(key); exists {
		n, err := strconv.Atoi(value)
		if err != nil {
			logrus.Warnf("Invalid %s value: %s, using default %d", key, value, fallback)
			return fallback
		}
		return n
	}
	return fallback
}
