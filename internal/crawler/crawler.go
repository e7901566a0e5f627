package crawler

import (
	"bytes"
	"context"
	"log/slog"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"kinderscout/internal/config"
	"kinderscout/internal/fetcher"
	"kinderscout/internal/types"
)

// Crawler drives the bounded one-hop traversal of a single website: fetch the
// seed page, extract its content, discover and prioritize its internal links,
// then fetch up to budget-1 of them. Fetches within one crawl are strictly
// sequential as a politeness guarantee toward the target site.
//
// A Crawler is stateless between invocations and safe for concurrent use;
// each Crawl call owns its visited set and page list.
type Crawler struct {
	cfg     *config.CrawlerConfig
	fetcher *fetcher.Fetcher
	robots  *Robots
	logger  *slog.Logger
}

// New creates a Crawler using the given fetcher.
func New(cfg *config.Config, f *fetcher.Fetcher, logger *slog.Logger) *Crawler {
	return &Crawler{
		cfg:     &cfg.Crawler,
		fetcher: f,
		robots:  NewRobots(cfg.Fetcher.UserAgent, cfg.Crawler.RespectRobots, nil),
		logger:  logger.With("component", "crawler"),
	}
}

// Crawl runs one traversal from the seed URL and returns its outcome.
// Only seed-level unreachability populates the outcome's error; follow-up
// failures are absorbed and the affected link is simply omitted.
func (c *Crawler) Crawl(ctx context.Context, seedURL string) *types.CrawlOutcome {
	outcome := &types.CrawlOutcome{URL: seedURL, Pages: []types.PageRecord{}}

	seed, err := url.Parse(seedURL)
	if err != nil || seed.Hostname() == "" {
		outcome.Error = "invalid seed URL"
		return outcome
	}
	seedHost := seed.Hostname()

	if c.cfg.CrawlDeadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.CrawlDeadline)
		defer cancel()
	}

	if !c.robots.Allowed(ctx, seed) {
		outcome.Error = types.ErrBlocked.Error()
		return outcome
	}

	resp, err := c.fetcher.Fetch(ctx, seedURL)
	if err != nil {
		c.logger.Debug("seed fetch failed", "url", seedURL, "error", err)
		if fe, ok := err.(*types.FetchError); ok && fe.StatusCode > 0 {
			status := fe.StatusCode
			outcome.StatusCode = &status
		}
		outcome.Error = err.Error()
		return outcome
	}

	status := resp.StatusCode
	outcome.StatusCode = &status
	outcome.Available = status < 400

	visited := make(map[string]struct{}, c.cfg.PageBudget)
	visited[CanonicalKey(seed)] = struct{}{}

	// Any status reaches extraction; a custom 404 page may still carry
	// inspectable content even though the site counts as unavailable.
	text, err := ExtractText(resp.Body)
	if err != nil {
		outcome.Error = (&types.ParseError{URL: seedURL, Err: err}).Error()
		return outcome
	}
	if utf8.RuneCountInString(text) > c.cfg.MinContentLength {
		outcome.Pages = append(outcome.Pages, types.PageRecord{
			URL:     seedURL,
			Content: text,
			IsMain:  true,
		})
	}

	// An empty main page still triggers follow-up crawling: informative
	// content may live on linked pages.
	base := seed
	if final, err := url.Parse(resp.FinalURL); err == nil {
		base = final
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		c.logger.Debug("seed parse failed, skipping link discovery", "url", seedURL, "error", err)
		return outcome
	}

	candidates := Prioritize(
		ExtractLinks(doc, base, seedHost, c.cfg.SkipExtensions),
		c.cfg.PriorityKeywords,
	)

	for _, link := range candidates {
		if len(visited) >= c.cfg.PageBudget {
			break
		}
		if _, seen := visited[link]; seen {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		visited[link] = struct{}{}

		if page, ok := c.fetchFollowup(ctx, link, seedHost); ok {
			outcome.Pages = append(outcome.Pages, page)
		}
	}

	c.logger.Info("crawl complete",
		"url", seedURL,
		"status", status,
		"visited", len(visited),
		"pages", len(outcome.Pages),
	)
	return outcome
}

// fetchFollowup fetches one selected link and extracts its content. Links on
// follow-up pages are never discovered; traversal depth is capped at one hop.
// All failures here are non-fatal: the link is dropped from the results.
func (c *Crawler) fetchFollowup(ctx context.Context, link, seedHost string) (types.PageRecord, bool) {
	target, err := url.Parse(link)
	if err != nil {
		return types.PageRecord{}, false
	}
	if !c.robots.Allowed(ctx, target) {
		c.logger.Debug("followup disallowed by robots", "url", link)
		return types.PageRecord{}, false
	}

	resp, err := c.fetcher.Fetch(ctx, link)
	if err != nil {
		c.logger.Debug("followup fetch failed", "url", link, "error", err)
		return types.PageRecord{}, false
	}
	if resp.StatusCode >= 400 {
		return types.PageRecord{}, false
	}

	// A follow-up whose redirect chain lands on another host is treated as
	// unreachable rather than silently crawled off-site.
	if final, err := url.Parse(resp.FinalURL); err == nil {
		if !strings.EqualFold(final.Hostname(), seedHost) {
			c.logger.Debug("followup redirected off-site", "url", link, "final", resp.FinalURL)
			return types.PageRecord{}, false
		}
	}

	text, err := ExtractText(resp.Body)
	if err != nil {
		return types.PageRecord{}, false
	}
	if utf8.RuneCountInString(text) <= c.cfg.MinContentLength {
		return types.PageRecord{}, false
	}

	return types.PageRecord{URL: link, Content: text, IsMain: false}, true
}
