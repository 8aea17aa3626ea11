package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env        string
	ListenAddr string

	DatabaseURL      string
	DiscoveryWorkers int

	ProviderAPIKey  string
	ProviderBaseURL string

	CrawlMode       string
	ChromiumPath    string
	BrowserHeadless bool
	BrowserMaxPages int
	CrawlDelayMin   time.Duration
	CrawlDelayMax   time.Duration
	CrawlTimeout    time.Duration

	MinCrawledContacts int
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.Atoi(v); err == nil {
			return out
		}
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.ParseBool(v); err == nil {
			return out
		}
	}
	return def
}

func getenvSeconds(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if out, err := strconv.ParseFloat(v, 64); err == nil {
			return time.Duration(out * float64(time.Second))
		}
	}
	return def
}

// Load reads configuration from the environment, after sourcing an optional
// .env file. A missing DATABASE_URL is reported as an error value so callers
// can decide whether running without persistence is acceptable.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Env:        getenv("APP_ENV", "development"),
		ListenAddr: getenv("LISTEN_ADDR", ":8080"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		DiscoveryWorkers: getenvInt("DISCOVERY_WORKERS", 0),

		ProviderAPIKey:  os.Getenv("PROVIDER_API_KEY"),
		ProviderBaseURL: getenv("PROVIDER_BASE_URL", "https://api.apollo.io/v1"),

		CrawlMode:       getenv("CRAWL_MODE", "browser"),
		ChromiumPath:    os.Getenv("CHROMIUM_PATH"),
		BrowserHeadless: getenvBool("BROWSER_HEADLESS", true),
		BrowserMaxPages: getenvInt("BROWSER_MAX_PAGES", 3),
		CrawlDelayMin:   getenvSeconds("CRAWL_DELAY_MIN", 1500*time.Millisecond),
		CrawlDelayMax:   getenvSeconds("CRAWL_DELAY_MAX", 3000*time.Millisecond),
		CrawlTimeout:    getenvSeconds("CRAWL_TIMEOUT", 30*time.Second),

		MinCrawledContacts: getenvInt("MIN_CRAWLED_CONTACTS", 2),
	}
	if cfg.DatabaseURL == "" {
		return cfg, fmt.Errorf("DATABASE_URL not set")
	}
	return cfg, nil
}

// HasProvider reports whether a data-provider API key is configured.
func (c Config) HasProvider() bool { return c.ProviderAPIKey != "" }
