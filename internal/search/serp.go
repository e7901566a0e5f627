package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"kinderscout/internal/config"
	"kinderscout/internal/types"
)

// BaseQuery is the fixed weekly discovery query; GenerateQuery produces
// randomized variations around it.
const BaseQuery = "Kinder Aktivitäten München und Umgebung"

var (
	keywordsAudience = []string{"Kinder", "mit Kindern", "Familie"}
	keywordsActivity = []string{"Aktivitäten", "Freizeit", "Ausflüge", "Tipps"}
	keywordsRegion   = []string{"München", "Umgebung München", "Bayern"}
	extraFilters     = []string{"Indoor", "Geheimtipps", "Wochenende", "Kleinkinder", "kostenlos"}
)

// GenerateQuery builds a randomized discovery query by combining one keyword
// from each group.
func GenerateQuery() string {
	return fmt.Sprintf("%s %s %s %s",
		keywordsAudience[rand.Intn(len(keywordsAudience))],
		keywordsActivity[rand.Intn(len(keywordsActivity))],
		keywordsRegion[rand.Intn(len(keywordsRegion))],
		extraFilters[rand.Intn(len(extraFilters))],
	)
}

// Result is one organic search hit.
type Result struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// Client queries SerpAPI's Google engine for candidate activity sites.
type Client struct {
	cfg    *config.SearchConfig
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a SERP client.
func NewClient(cfg *config.Config, logger *slog.Logger) *Client {
	return &Client{
		cfg: &cfg.Search,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger.With("component", "search"),
	}
}

// Search runs one query across the configured number of result pages,
// ten hits per page. Paging stops early once a page comes back empty.
func (c *Client) Search(ctx context.Context, query string) ([]Result, error) {
	if c.cfg.APIKey == "" {
		return nil, types.ErrMissingKey
	}

	var all []Result
	for page := 0; page < c.cfg.Pages; page++ {
		results, err := c.searchPage(ctx, query, page)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			break
		}
		all = append(all, results...)
	}

	c.logger.Info("search complete", "query", query, "results", len(all))
	return all, nil
}

func (c *Client) searchPage(ctx context.Context, query string, page int) ([]Result, error) {
	q := url.Values{}
	q.Set("engine", "google")
	q.Set("q", query)
	q.Set("location", c.cfg.Location)
	q.Set("hl", c.cfg.Language)
	q.Set("gl", c.cfg.Country)
	q.Set("num", "10")
	q.Set("start", strconv.Itoa(page*10))
	q.Set("api_key", c.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("serp request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("serp: unexpected status %d", resp.StatusCode)
	}

	var payload struct {
		OrganicResults []Result `json:"organic_results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode serp response: %w", err)
	}
	return payload.OrganicResults, nil
}

// Discover runs the base query plus the given number of randomized
// variations and returns all hits, deduplicated by link.
func (c *Client) Discover(ctx context.Context, variations int) ([]Result, error) {
	seen := make(map[string]struct{})
	var all []Result

	queries := []string{BaseQuery}
	for i := 0; i < variations; i++ {
		queries = append(queries, GenerateQuery())
	}

	for _, q := range queries {
		results, err := c.Search(ctx, q)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			if r.Link == "" {
				continue
			}
			if _, dup := seen[r.Link]; dup {
				continue
			}
			seen[r.Link] = struct{}{}
			all = append(all, r)
		}
	}
	return all, nil
}

// Merge folds search results into the URL registry: new links become fresh
// entries, known links have their title and snippet refreshed. Returns the
// merged registry and the number of newly added entries.
func Merge(entries []types.URLEntry, results []Result) ([]types.URLEntry, int) {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.URL] = i
	}

	added := 0
	for _, r := range results {
		if r.Link == "" {
			continue
		}
		if i, ok := index[r.Link]; ok {
			if r.Title != "" {
				entries[i].Title = r.Title
			}
			if r.Snippet != "" {
				entries[i].Snippet = r.Snippet
			}
			continue
		}
		entries = append(entries, types.URLEntry{
			URL:     r.Link,
			Title:   r.Title,
			Snippet: r.Snippet,
			Source:  "serp",
			AddedAt: time.Now().Format("2006-01-02"),
		})
		index[r.Link] = len(entries) - 1
		added++
	}
	return entries, added
}
