package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"kinderscout/internal/alive"
	"kinderscout/internal/analysis"
	"kinderscout/internal/config"
	"kinderscout/internal/crawler"
	"kinderscout/internal/fetcher"
	"kinderscout/internal/search"
	"kinderscout/internal/store"
	"kinderscout/internal/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestPipelineRun(t *testing.T) {
	// A candidate activity site with enough content to analyse.
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>"+strings.Repeat("Wildpark mit Streichelzoo für Familien. ", 10)+"</p></body></html>")
	}))
	defer site.Close()

	// SERP returns the site once, then empty pages.
	serp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			fmt.Fprint(w, `{"organic_results": []}`)
			return
		}
		fmt.Fprintf(w, `{"organic_results": [{"title": "Wildpark", "link": %q, "snippet": "Tiere"}]}`, site.URL)
	}))
	defer serp.Close()

	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"category": "zoo", "shortName": "Wildpark", "description": "A wildlife park."}`}},
			},
		})
		w.Write(body)
	}))
	defer llm.Close()

	cfg := config.DefaultConfig()
	cfg.Crawler.RespectRobots = false
	cfg.Crawler.CrawlDeadline = 0
	cfg.Search.APIKey = "k"
	cfg.Search.Endpoint = serp.URL
	cfg.Search.Pages = 2
	cfg.Analysis.APIKey = "k"
	cfg.Analysis.Endpoint = llm.URL
	cfg.Store.DataDir = t.TempDir()

	f := fetcher.New(cfg, discard)
	registry, err := store.NewRegistry(cfg.Store.DataDir)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	activities, err := store.NewFileStore(&cfg.Store, discard)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	p := New(cfg,
		search.NewClient(cfg, discard),
		alive.NewChecker(cfg, f, discard),
		analysis.NewAnalyser(crawler.New(cfg, f, discard), analysis.NewLLMClient(cfg, discard), nil, discard),
		registry, activities, discard,
	)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if stats.Discovered != 1 || stats.Added != 1 {
		t.Errorf("discovered=%d added=%d, want 1/1", stats.Discovered, stats.Added)
	}
	if stats.Analysed != 1 || stats.Saved != 1 || stats.Failed != 0 {
		t.Errorf("analysed=%d saved=%d failed=%d", stats.Analysed, stats.Saved, stats.Failed)
	}

	// The activity landed in the catalogue.
	all, err := activities.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all) != 1 || all[0].ShortName != "Wildpark" || all[0].Category != "zoo" {
		t.Errorf("catalogue = %+v", all)
	}

	// The registry entry was checked and marked visited.
	entries, err := registry.Load()
	if err != nil {
		t.Fatalf("registry Load: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("registry has %d entries", len(entries))
	}
	if entries[0].Alive == nil || !*entries[0].Alive || entries[0].ContentType != "website" {
		t.Errorf("entry not checked: %+v", entries[0])
	}
	if !entries[0].Visited {
		t.Error("entry not marked visited")
	}

	// A second run has nothing new to analyse.
	stats, err = p.Run(context.Background())
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stats.Analysed != 0 {
		t.Errorf("second run analysed %d, want 0", stats.Analysed)
	}
}

func TestPipelineAnalysesConcurrently(t *testing.T) {
	// Three slow sites share an in-flight counter over their crawl GETs.
	// With a pool of three the analyses must overlap.
	var (
		mu          sync.Mutex
		inFlight    int
		maxInFlight int
	)
	slowSite := func() *httptest.Server {
		return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				mu.Lock()
				inFlight++
				if inFlight > maxInFlight {
					maxInFlight = inFlight
				}
				mu.Unlock()
				time.Sleep(150 * time.Millisecond)
				mu.Lock()
				inFlight--
				mu.Unlock()
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, "<html><body><p>"+strings.Repeat("Kletterwald mit Hochseilgarten für Familien. ", 10)+"</p></body></html>")
		}))
	}
	sites := []*httptest.Server{slowSite(), slowSite(), slowSite()}
	for _, s := range sites {
		defer s.Close()
	}

	serp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			fmt.Fprint(w, `{"organic_results": []}`)
			return
		}
		fmt.Fprintf(w, `{"organic_results": [
			{"title": "Wald 1", "link": %q},
			{"title": "Wald 2", "link": %q},
			{"title": "Wald 3", "link": %q}
		]}`, sites[0].URL, sites[1].URL, sites[2].URL)
	}))
	defer serp.Close()

	llm := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := json.Marshal(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": `{"category": "hiking", "shortName": "Kletterwald", "description": "A climbing forest."}`}},
			},
		})
		w.Write(body)
	}))
	defer llm.Close()

	cfg := config.DefaultConfig()
	cfg.Crawler.RespectRobots = false
	cfg.Crawler.CrawlDeadline = 0
	cfg.Crawler.Concurrency = 3
	cfg.Search.APIKey = "k"
	cfg.Search.Endpoint = serp.URL
	cfg.Search.Pages = 1
	cfg.Analysis.APIKey = "k"
	cfg.Analysis.Endpoint = llm.URL
	cfg.Store.DataDir = t.TempDir()

	f := fetcher.New(cfg, discard)
	registry, err := store.NewRegistry(cfg.Store.DataDir)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	activities, err := store.NewFileStore(&cfg.Store, discard)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}

	p := New(cfg,
		search.NewClient(cfg, discard),
		alive.NewChecker(cfg, f, discard),
		analysis.NewAnalyser(crawler.New(cfg, f, discard), analysis.NewLLMClient(cfg, discard), nil, discard),
		registry, activities, discard,
	)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Analysed != 3 || stats.Saved != 3 || stats.Failed != 0 {
		t.Fatalf("analysed=%d saved=%d failed=%d, want 3/3/0", stats.Analysed, stats.Saved, stats.Failed)
	}

	mu.Lock()
	got := maxInFlight
	mu.Unlock()
	if got < 2 {
		t.Errorf("max concurrent crawls = %d, want at least 2", got)
	}

	all, err := activities.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("catalogue has %d entries, want 3", len(all))
	}
}

func TestPipelineSkipsDeadAndNonWebsite(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer dead.Close()
	pdf := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
	}))
	defer pdf.Close()

	serp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("start") != "0" {
			fmt.Fprint(w, `{"organic_results": []}`)
			return
		}
		fmt.Fprintf(w, `{"organic_results": [
			{"title": "Tot", "link": %q},
			{"title": "Flyer", "link": %q}
		]}`, dead.URL, pdf.URL)
	}))
	defer serp.Close()

	cfg := config.DefaultConfig()
	cfg.Crawler.RespectRobots = false
	cfg.Search.APIKey = "k"
	cfg.Search.Endpoint = serp.URL
	cfg.Search.Pages = 1
	cfg.Analysis.APIKey = "k"
	cfg.Analysis.Endpoint = "http://unused.invalid"
	cfg.Store.DataDir = t.TempDir()

	f := fetcher.New(cfg, discard)
	registry, _ := store.NewRegistry(cfg.Store.DataDir)
	activities, _ := store.NewFileStore(&cfg.Store, discard)

	p := New(cfg,
		search.NewClient(cfg, discard),
		alive.NewChecker(cfg, f, discard),
		analysis.NewAnalyser(crawler.New(cfg, f, discard), analysis.NewLLMClient(cfg, discard), nil, discard),
		registry, activities, discard,
	)

	stats, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Analysed != 0 {
		t.Errorf("analysed = %d, want 0", stats.Analysed)
	}

	all, _ := activities.Load(context.Background())
	if len(all) != 0 {
		t.Errorf("catalogue should be empty, got %+v", all)
	}

	var entries []types.URLEntry
	entries, _ = registry.Load()
	if len(entries) != 2 {
		t.Fatalf("registry has %d entries, want 2", len(entries))
	}
	for _, e := range entries {
		if e.ContentType == "website" && e.Alive != nil && *e.Alive {
			t.Errorf("entry %q should not be an alive website", e.URL)
		}
	}
}
