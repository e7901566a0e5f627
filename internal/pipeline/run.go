package pipeline

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"kinderscout/internal/alive"
	"kinderscout/internal/analysis"
	"kinderscout/internal/config"
	"kinderscout/internal/search"
	"kinderscout/internal/store"
	"kinderscout/internal/types"
)

// searchVariations is the number of randomized queries run on top of the
// base query during discovery.
const searchVariations = 3

// Pipeline runs the periodic ingestion flow: discover candidate URLs via
// search, merge them into the registry, probe liveness, then analyse and
// store every alive website not yet in the catalogue.
type Pipeline struct {
	cfg      *config.Config
	searcher *search.Client
	checker  *alive.Checker
	analyser *analysis.Analyser
	registry *store.Registry
	store    store.ActivityStore
	logger   *slog.Logger

	// crawlSem caps how many sites are analysed at once; per-site fetches
	// stay sequential inside the crawler.
	crawlSem *semaphore.Weighted
}

// New assembles the pipeline.
func New(cfg *config.Config, searcher *search.Client, checker *alive.Checker, analyser *analysis.Analyser, registry *store.Registry, activities store.ActivityStore, logger *slog.Logger) *Pipeline {
	concurrency := cfg.Crawler.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pipeline{
		cfg:      cfg,
		searcher: searcher,
		checker:  checker,
		analyser: analyser,
		registry: registry,
		store:    activities,
		logger:   logger.With("component", "pipeline"),
		crawlSem: semaphore.NewWeighted(int64(concurrency)),
	}
}

// Stats summarizes one pipeline run.
type Stats struct {
	Discovered int
	Added      int
	Checked    int
	Analysed   int
	Saved      int
	Failed     int
}

// Run executes all four stages. Stage failures are logged and the run
// continues with whatever the earlier stages produced.
func (p *Pipeline) Run(ctx context.Context) (*Stats, error) {
	stats := &Stats{}
	start := time.Now()

	// Stage 1: discover candidate URLs.
	p.logger.Info("stage 1/4: searching for new urls")
	results, err := p.searcher.Discover(ctx, searchVariations)
	if err != nil {
		p.logger.Warn("search failed, continuing with registry", "error", err)
	}
	stats.Discovered = len(results)

	// Stage 2: merge into the registry.
	p.logger.Info("stage 2/4: merging search results")
	entries, err := p.registry.Load()
	if err != nil {
		return stats, err
	}
	entries, added := search.Merge(entries, results)
	stats.Added = added
	if err := p.registry.Save(entries); err != nil {
		return stats, err
	}

	// Stage 3: liveness check.
	p.logger.Info("stage 3/4: checking liveness", "urls", len(entries))
	entries = p.checker.CheckAll(ctx, entries)
	stats.Checked = len(entries)
	if err := p.registry.Save(entries); err != nil {
		return stats, err
	}

	// Stage 4: analyse new websites.
	p.logger.Info("stage 4/4: analysing new urls")
	if err := p.analyseNew(ctx, entries, stats); err != nil {
		return stats, err
	}

	p.logger.Info("pipeline complete",
		"discovered", stats.Discovered,
		"added", stats.Added,
		"analysed", stats.Analysed,
		"saved", stats.Saved,
		"failed", stats.Failed,
		"duration", time.Since(start),
	)
	return stats, nil
}

// analyseNew processes every alive website entry that is not yet in the
// catalogue and marks it visited in the registry afterwards, successful
// or not, so broken sites are not retried on every run.
func (p *Pipeline) analyseNew(ctx context.Context, entries []types.URLEntry, stats *Stats) error {
	existing, err := p.store.Load(ctx)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(existing))
	for _, a := range existing {
		known[store.NormalizeURL(a.URL)] = struct{}{}
	}

	// mu guards stats, the entries slice, and the registry file; analyses
	// themselves run concurrently up to the semaphore's weight.
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		semErr error
	)
	for i := range entries {
		e := &entries[i]
		if e.ContentType != "website" {
			continue
		}
		if e.Alive == nil || !*e.Alive {
			continue
		}
		if _, ok := known[store.NormalizeURL(e.URL)]; ok {
			continue
		}
		if e.Visited {
			continue
		}

		if err := p.crawlSem.Acquire(ctx, 1); err != nil {
			semErr = err
			break
		}
		wg.Add(1)
		go func(e *types.URLEntry) {
			defer wg.Done()
			defer p.crawlSem.Release(1)

			result := p.analyser.AnalyseURL(ctx, e.URL)

			mu.Lock()
			defer mu.Unlock()
			stats.Analysed++
			e.Visited = true
			if err := p.registry.Save(entries); err != nil {
				p.logger.Warn("registry save failed", "error", err)
			}

			if !result.Available || result.Error != "" {
				stats.Failed++
				p.logger.Warn("analysis skipped", "url", e.URL, "error", result.Error)
				return
			}

			fallback := e.Title
			if fallback == "" {
				fallback = e.URL
			}
			activity := types.ActivityFromResult(result, fallback)
			if _, err := p.store.Upsert(ctx, activity); err != nil {
				stats.Failed++
				p.logger.Error("store upsert failed", "url", e.URL, "error", err)
				return
			}
			stats.Saved++
		}(e)
	}
	wg.Wait()
	return semErr
}
