package config

import (
	"fmt"
	"net/url"
)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Crawler.PageBudget < 1 {
		return fmt.Errorf("crawler.page_budget must be >= 1, got %d", cfg.Crawler.PageBudget)
	}
	if cfg.Crawler.MinContentLength < 0 {
		return fmt.Errorf("crawler.min_content_length must be >= 0, got %d", cfg.Crawler.MinContentLength)
	}
	if cfg.Crawler.CrawlDeadline < 0 {
		return fmt.Errorf("crawler.crawl_deadline must be >= 0")
	}
	if cfg.Crawler.Concurrency < 1 {
		return fmt.Errorf("crawler.concurrency must be >= 1, got %d", cfg.Crawler.Concurrency)
	}

	if cfg.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be > 0")
	}
	if cfg.Fetcher.MaxBodySize <= 0 {
		return fmt.Errorf("fetcher.max_body_size must be > 0")
	}
	if cfg.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be >= 0")
	}

	if cfg.Alive.Concurrency < 1 {
		return fmt.Errorf("alive.concurrency must be >= 1, got %d", cfg.Alive.Concurrency)
	}

	if cfg.Analysis.MaxContentChars < 1000 {
		return fmt.Errorf("analysis.max_content_chars must be >= 1000, got %d", cfg.Analysis.MaxContentChars)
	}
	if cfg.Analysis.Temperature < 0 || cfg.Analysis.Temperature > 2 {
		return fmt.Errorf("analysis.temperature must be in [0, 2], got %v", cfg.Analysis.Temperature)
	}

	validBackends := map[string]bool{
		"sheets": true, "mongo": true, "file": true,
	}
	if !validBackends[cfg.Store.Backend] {
		return fmt.Errorf("store.backend %q is not supported (valid: sheets, mongo, file)", cfg.Store.Backend)
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}

	return nil
}

// ValidateURL checks if a URL string is valid for crawling.
func ValidateURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}
	return nil
}
