package alive

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"kinderscout/internal/config"
	"kinderscout/internal/fetcher"
	"kinderscout/internal/types"
)

// contentTypeLabels maps Content-Type patterns to registry labels, in match
// order. Only "website" entries are eligible for analysis later.
var contentTypeLabels = []struct {
	pattern string
	label   string
}{
	{"text/html", "website"},
	{"application/pdf", "pdf"},
	{"application/json", "json"},
	{"text/plain", "text"},
	{"image/", "image"},
	{"video/", "video"},
	{"audio/", "audio"},
	{"application/xml", "xml"},
	{"text/xml", "xml"},
}

// ContentTypeLabel reduces a Content-Type header to a simple label.
func ContentTypeLabel(contentType string) string {
	if contentType == "" {
		return "unknown"
	}
	ct := strings.TrimSpace(strings.ToLower(strings.SplitN(contentType, ";", 2)[0]))
	for _, m := range contentTypeLabels {
		if strings.Contains(ct, m.pattern) {
			return m.label
		}
	}
	return "other"
}

// Result is the outcome of checking one URL.
type Result struct {
	URL         string
	Alive       bool
	StatusCode  *int
	ContentType string
}

// Checker probes URLs for liveness in bulk.
type Checker struct {
	fetcher *fetcher.Fetcher
	cfg     *config.AliveConfig
	logger  *slog.Logger
}

// NewChecker creates a liveness checker on top of the shared fetcher.
func NewChecker(cfg *config.Config, f *fetcher.Fetcher, logger *slog.Logger) *Checker {
	return &Checker{
		fetcher: f,
		cfg:     &cfg.Alive,
		logger:  logger.With("component", "alive"),
	}
}

// Check probes one URL. It tries HEAD first and falls back to GET when HEAD
// fails at the transport level or the server rejects the method, since many
// sites answer 405 to HEAD while serving GET fine. A URL counts as alive when
// the final status is below 400.
func (c *Checker) Check(ctx context.Context, rawURL string) Result {
	res := Result{URL: rawURL, ContentType: "unknown"}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.fetcher.Head(ctx, rawURL)
	if err != nil || resp.StatusCode == 405 || resp.StatusCode == 501 {
		resp, err = c.fetcher.Fetch(ctx, rawURL)
	}
	if err != nil {
		c.logger.Debug("check failed", "url", rawURL, "error", err)
		return res
	}

	status := resp.StatusCode
	res.StatusCode = &status
	res.Alive = status < 400
	res.ContentType = ContentTypeLabel(resp.ContentType())
	return res
}

// CheckAll probes every registry entry with bounded concurrency and updates
// each entry's alive flag and content type label in place.
func (c *Checker) CheckAll(ctx context.Context, entries []types.URLEntry) []types.URLEntry {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.Concurrency)

	for i := range entries {
		i := i
		g.Go(func() error {
			res := c.Check(ctx, entries[i].URL)
			alive := res.Alive
			entries[i].Alive = &alive
			entries[i].ContentType = res.ContentType
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.Warn("liveness check aborted", "error", err)
	}

	aliveCount := 0
	for i := range entries {
		if entries[i].Alive != nil && *entries[i].Alive {
			aliveCount++
		}
	}
	c.logger.Info("liveness check complete",
		"total", len(entries),
		"alive", aliveCount,
		"dead", len(entries)-aliveCount,
	)
	return entries
}
