package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"kinderscout/internal/crawler"
	"kinderscout/internal/geo"
	"kinderscout/internal/types"
)

// jsShellDescription is recorded for reachable sites whose pages yielded no
// extractable text, typically single-page apps rendered entirely in the
// browser.
const jsShellDescription = "Website uses JavaScript rendering - automatic content extraction was not possible. Please visit the website directly for details."

// Analyser runs the full per-URL pipeline: crawl the site, extract structured
// attributes with the LLM, then estimate the commute when an address was
// found.
type Analyser struct {
	crawler *crawler.Crawler
	llm     *LLMClient
	router  *geo.Router
	logger  *slog.Logger
}

// NewAnalyser wires the pipeline stages together. A nil router disables
// commute estimation.
func NewAnalyser(c *crawler.Crawler, llm *LLMClient, router *geo.Router, logger *slog.Logger) *Analyser {
	return &Analyser{
		crawler: c,
		llm:     llm,
		router:  router,
		logger:  logger.With("component", "analyser"),
	}
}

// CombineContent merges crawled pages into a single labeled document for the
// model. The main page is labeled as such; followups carry their URL. No
// length limit is applied here; the LLM client truncates for the API.
func CombineContent(pages []types.PageRecord) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		label := p.URL
		if p.IsMain {
			label = "Main Page"
		}
		parts = append(parts, fmt.Sprintf("=== %s (%s) ===\n%s", label, p.URL, p.Content))
	}
	return strings.Join(parts, "\n\n")
}

// AnalyseURL processes one URL end to end. The result always carries the
// crawl's availability verdict; analysis and commute failures degrade the
// result instead of failing it.
func (a *Analyser) AnalyseURL(ctx context.Context, rawURL string) *types.ActivityResult {
	a.logger.Info("analysing url", "url", rawURL)

	outcome := a.crawler.Crawl(ctx, rawURL)
	result := &types.ActivityResult{
		URL:        rawURL,
		Available:  outcome.Available,
		StatusCode: outcome.StatusCode,
	}

	if !outcome.Available {
		result.Error = outcome.Error
		if result.Error == "" {
			result.Error = "crawl failed"
		}
		return result
	}

	if len(outcome.Pages) == 0 {
		result.Description = jsShellDescription
		return result
	}

	content := CombineContent(outcome.Pages)
	a.logger.Debug("content combined", "url", rawURL, "pages", len(outcome.Pages), "chars", len(content))

	analysis, err := a.llm.Analyse(ctx, rawURL, content)
	if err != nil {
		a.logger.Warn("llm analysis failed", "url", rawURL, "error", err)
		result.Error = fmt.Sprintf("Analysis failed: %v", err)
		return result
	}
	result.Analysis = *analysis

	if a.router != nil && analysis.Address != "" {
		travel, err := a.router.TravelFromHome(ctx, analysis.Address)
		if err != nil {
			// Commute is best effort; a failed lookup leaves the fields unset.
			a.logger.Debug("distance calculation skipped", "url", rawURL, "error", err)
		} else {
			result.DrivingMinutes = &travel.DrivingMinutes
			result.TransitMinutes = &travel.TransitMinutes
			result.DistanceKm = &travel.DistanceKm
		}
	}

	return result
}
