package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for kinderscout.
type Config struct {
	Crawler  CrawlerConfig  `mapstructure:"crawler"  yaml:"crawler"`
	Fetcher  FetcherConfig  `mapstructure:"fetcher"  yaml:"fetcher"`
	Alive    AliveConfig    `mapstructure:"alive"    yaml:"alive"`
	Analysis AnalysisConfig `mapstructure:"analysis" yaml:"analysis"`
	Geo      GeoConfig      `mapstructure:"geo"      yaml:"geo"`
	Search   SearchConfig   `mapstructure:"search"   yaml:"search"`
	Store    StoreConfig    `mapstructure:"store"    yaml:"store"`
	Bot      BotConfig      `mapstructure:"bot"      yaml:"bot"`
	Logging  LoggingConfig  `mapstructure:"logging"  yaml:"logging"`
}

// CrawlerConfig controls the bounded one-hop crawl engine.
type CrawlerConfig struct {
	PageBudget       int           `mapstructure:"page_budget"        yaml:"page_budget"`
	MinContentLength int           `mapstructure:"min_content_length" yaml:"min_content_length"`
	RespectRobots    bool          `mapstructure:"respect_robots"     yaml:"respect_robots"`
	CrawlDeadline    time.Duration `mapstructure:"crawl_deadline"     yaml:"crawl_deadline"`
	Concurrency      int           `mapstructure:"concurrency"        yaml:"concurrency"`
	SkipExtensions   []string      `mapstructure:"skip_extensions"    yaml:"skip_extensions"`
	PriorityKeywords []string      `mapstructure:"priority_keywords"  yaml:"priority_keywords"`
}

// FetcherConfig controls the HTTP fetcher.
type FetcherConfig struct {
	RequestTimeout  time.Duration `mapstructure:"request_timeout"   yaml:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"        yaml:"user_agent"`
	MaxBodySize     int64         `mapstructure:"max_body_size"     yaml:"max_body_size"`
	MaxRedirects    int           `mapstructure:"max_redirects"     yaml:"max_redirects"`
	TLSInsecure     bool          `mapstructure:"tls_insecure"      yaml:"tls_insecure"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"    yaml:"max_idle_conns"`
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout" yaml:"idle_conn_timeout"`
}

// AliveConfig controls the bulk liveness checker.
type AliveConfig struct {
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout"     yaml:"timeout"`
}

// AnalysisConfig controls the LLM content analysis.
type AnalysisConfig struct {
	APIKey          string  `mapstructure:"api_key"           yaml:"api_key"`
	Endpoint        string  `mapstructure:"endpoint"          yaml:"endpoint"`
	Model           string  `mapstructure:"model"             yaml:"model"`
	Temperature     float64 `mapstructure:"temperature"       yaml:"temperature"`
	MaxContentChars int     `mapstructure:"max_content_chars" yaml:"max_content_chars"`
}

// GeoConfig controls geocoding and route lookups.
type GeoConfig struct {
	HomeAddress    string        `mapstructure:"home_address"    yaml:"home_address"`
	NominatimURL   string        `mapstructure:"nominatim_url"   yaml:"nominatim_url"`
	OSRMURL        string        `mapstructure:"osrm_url"        yaml:"osrm_url"`
	UserAgent      string        `mapstructure:"user_agent"      yaml:"user_agent"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
}

// SearchConfig controls SERP ingestion.
type SearchConfig struct {
	APIKey   string `mapstructure:"api_key"  yaml:"api_key"`
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	Location string `mapstructure:"location" yaml:"location"`
	Language string `mapstructure:"language" yaml:"language"`
	Country  string `mapstructure:"country"  yaml:"country"`
	Pages    int    `mapstructure:"pages"    yaml:"pages"`
}

// StoreConfig controls catalogue persistence.
type StoreConfig struct {
	Backend string `mapstructure:"backend" yaml:"backend"` // sheets, mongo, file

	SheetsID            string `mapstructure:"sheets_id"             yaml:"sheets_id"`
	ServiceAccountEmail string `mapstructure:"service_account_email" yaml:"service_account_email"`
	PrivateKey          string `mapstructure:"private_key"           yaml:"private_key"`

	MongoURI        string `mapstructure:"mongo_uri"        yaml:"mongo_uri"`
	MongoDatabase   string `mapstructure:"mongo_database"   yaml:"mongo_database"`
	MongoCollection string `mapstructure:"mongo_collection" yaml:"mongo_collection"`

	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// BotConfig controls the Telegram bot.
type BotConfig struct {
	Token string `mapstructure:"token" yaml:"token"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Crawler: CrawlerConfig{
			PageBudget:       10,
			MinContentLength: 100,
			RespectRobots:    true,
			CrawlDeadline:    2 * time.Minute,
			Concurrency:      1,
			SkipExtensions: []string{
				".pdf", ".jpg", ".jpeg", ".png", ".gif", ".css", ".js", ".xml", ".ico",
			},
			PriorityKeywords: []string{
				"kontakt", "contact",
				"preise", "prices", "eintritt", "admission", "tickets",
				"öffnungszeiten", "opening", "hours", "zeiten",
				"anfahrt", "directions", "adresse", "address",
				"angebot", "leistungen", "services",
				"about", "über", "info",
			},
		},
		Fetcher: FetcherConfig{
			RequestTimeout:  10 * time.Second,
			UserAgent:       "Mozilla/5.0 (compatible; KinderScoutBot/1.0)",
			MaxBodySize:     10 * 1024 * 1024, // 10MB
			MaxRedirects:    10,
			MaxIdleConns:    100,
			IdleConnTimeout: 90 * time.Second,
		},
		Alive: AliveConfig{
			Concurrency: 10,
			Timeout:     10 * time.Second,
		},
		Analysis: AnalysisConfig{
			Endpoint:        "https://api.openai.com/v1",
			Model:           "gpt-4o-mini",
			Temperature:     0.3,
			MaxContentChars: 100_000,
		},
		Geo: GeoConfig{
			HomeAddress:    "Nuss-Anger 8, 85591 Vaterstetten, Germany",
			NominatimURL:   "https://nominatim.openstreetmap.org/search",
			OSRMURL:        "http://router.project-osrm.org/route/v1",
			UserAgent:      "KinderScout/1.0",
			RequestTimeout: 15 * time.Second,
		},
		Search: SearchConfig{
			Endpoint: "https://serpapi.com/search.json",
			Location: "Vaterstetten, Bavaria, Germany",
			Language: "de",
			Country:  "de",
			Pages:    10,
		},
		Store: StoreConfig{
			Backend:         "file",
			MongoDatabase:   "kinderscout",
			MongoCollection: "activities",
			DataDir:         "./data",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}
