package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and defaults.
// Priority (highest to lowest): env vars > config file > defaults.
// A .env file in the working directory is loaded first, if present.
func Load(configPath string) (*Config, error) {
	// Mirrors the original deployment's dotenv workflow; missing file is fine.
	_ = godotenv.Load()

	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	setDefaults(v, cfg)

	v.SetEnvPrefix("KINDERSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Secrets keep their conventional environment names.
	bindSecret(v, "analysis.api_key", "OPENAI_API_KEY")
	bindSecret(v, "bot.token", "TELEGRAM_BOT_TOKEN")
	bindSecret(v, "search.api_key", "SERPAPI_KEY")
	bindSecret(v, "store.sheets_id", "GOOGLE_SHEETS_ID")
	bindSecret(v, "store.service_account_email", "GOOGLE_SERVICE_ACCOUNT_EMAIL")
	bindSecret(v, "store.private_key", "GOOGLE_PRIVATE_KEY")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("kinderscout")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".kinderscout"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Service-account keys arrive with literal \n from env files.
	cfg.Store.PrivateKey = strings.ReplaceAll(cfg.Store.PrivateKey, `\n`, "\n")

	return cfg, nil
}

func bindSecret(v *viper.Viper, key, env string) {
	_ = v.BindEnv(key, env)
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("crawler.page_budget", cfg.Crawler.PageBudget)
	v.SetDefault("crawler.min_content_length", cfg.Crawler.MinContentLength)
	v.SetDefault("crawler.respect_robots", cfg.Crawler.RespectRobots)
	v.SetDefault("crawler.crawl_deadline", cfg.Crawler.CrawlDeadline)
	v.SetDefault("crawler.concurrency", cfg.Crawler.Concurrency)
	v.SetDefault("crawler.skip_extensions", cfg.Crawler.SkipExtensions)
	v.SetDefault("crawler.priority_keywords", cfg.Crawler.PriorityKeywords)

	v.SetDefault("fetcher.request_timeout", cfg.Fetcher.RequestTimeout)
	v.SetDefault("fetcher.user_agent", cfg.Fetcher.UserAgent)
	v.SetDefault("fetcher.max_body_size", cfg.Fetcher.MaxBodySize)
	v.SetDefault("fetcher.max_redirects", cfg.Fetcher.MaxRedirects)
	v.SetDefault("fetcher.max_idle_conns", cfg.Fetcher.MaxIdleConns)
	v.SetDefault("fetcher.idle_conn_timeout", cfg.Fetcher.IdleConnTimeout)

	v.SetDefault("alive.concurrency", cfg.Alive.Concurrency)
	v.SetDefault("alive.timeout", cfg.Alive.Timeout)

	v.SetDefault("analysis.endpoint", cfg.Analysis.Endpoint)
	v.SetDefault("analysis.model", cfg.Analysis.Model)
	v.SetDefault("analysis.temperature", cfg.Analysis.Temperature)
	v.SetDefault("analysis.max_content_chars", cfg.Analysis.MaxContentChars)

	v.SetDefault("geo.home_address", cfg.Geo.HomeAddress)
	v.SetDefault("geo.nominatim_url", cfg.Geo.NominatimURL)
	v.SetDefault("geo.osrm_url", cfg.Geo.OSRMURL)
	v.SetDefault("geo.user_agent", cfg.Geo.UserAgent)
	v.SetDefault("geo.request_timeout", cfg.Geo.RequestTimeout)

	v.SetDefault("search.endpoint", cfg.Search.Endpoint)
	v.SetDefault("search.location", cfg.Search.Location)
	v.SetDefault("search.language", cfg.Search.Language)
	v.SetDefault("search.country", cfg.Search.Country)
	v.SetDefault("search.pages", cfg.Search.Pages)

	v.SetDefault("store.backend", cfg.Store.Backend)
	v.SetDefault("store.mongo_database", cfg.Store.MongoDatabase)
	v.SetDefault("store.mongo_collection", cfg.Store.MongoCollection)
	v.SetDefault("store.data_dir", cfg.Store.DataDir)

	v.SetDefault("logging.level", cfg.Logging.Level)
}
