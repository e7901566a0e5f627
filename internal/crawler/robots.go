package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

// Robots evaluates robots.txt rules with a per-host cache.
type Robots struct {
	client    *http.Client
	userAgent string
	respect   bool

	mu    sync.RWMutex
	cache map[string]*robotstxt.RobotsData
}

// NewRobots constructs a robots gate. A nil client falls back to a default
// with a 10 second timeout.
func NewRobots(userAgent string, respect bool, client *http.Client) *Robots {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Robots{
		client:    client,
		userAgent: userAgent,
		respect:   respect,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the target URL is permitted. Robots errors
// fail open, matching common crawler practice.
func (r *Robots) Allowed(ctx context.Context, target *url.URL) bool {
	if target == nil || !target.IsAbs() {
		return false
	}
	if !r.respect {
		return true
	}

	rules, err := r.rules(ctx, target)
	if err != nil {
		return true
	}

	group := rules.FindGroup(r.userAgent)
	if group == nil {
		group = rules.FindGroup("*")
		if group == nil {
			return true
		}
	}
	path := target.Path
	if path == "" {
		path = "/"
	}
	return group.Test(path)
}

func (r *Robots) rules(ctx context.Context, target *url.URL) (*robotstxt.RobotsData, error) {
	host := strings.ToLower(target.Host)

	r.mu.RLock()
	rules, ok := r.cache[host]
	r.mu.RUnlock()
	if ok {
		return rules, nil
	}

	robotsURL := target.Scheme + "://" + target.Host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build robots request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	data, err := robotstxt.FromResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.mu.Lock()
	r.cache[host] = data
	r.mu.Unlock()

	return data, nil
}
