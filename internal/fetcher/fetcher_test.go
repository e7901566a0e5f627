package fetcher

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"

	"kinderscout/internal/config"
	"kinderscout/internal/types"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestFetcher(mutate func(*config.Config)) *Fetcher {
	cfg := config.DefaultConfig()
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg, discard)
}

func TestFetchPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("User-Agent"); !strings.Contains(got, "KinderScoutBot") {
			t.Errorf("User-Agent = %q", got)
		}
		fmt.Fprint(w, "<html><body>hallo</body></html>")
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	resp, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "hallo") {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestFetchDecompression(t *testing.T) {
	const payload = "<html><body>komprimierter Inhalt</body></html>"

	tests := []struct {
		encoding string
		compress func(io.Writer) io.WriteCloser
	}{
		{"gzip", func(w io.Writer) io.WriteCloser { return gzip.NewWriter(w) }},
		{"br", func(w io.Writer) io.WriteCloser { return brotli.NewWriter(w) }},
	}

	for _, tt := range tests {
		t.Run(tt.encoding, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Encoding", tt.encoding)
				cw := tt.compress(w)
				io.WriteString(cw, payload)
				cw.Close()
			}))
			defer srv.Close()

			f := newTestFetcher(nil)
			resp, err := f.Fetch(context.Background(), srv.URL)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if string(resp.Body) != payload {
				t.Errorf("Body = %q, want %q", resp.Body, payload)
			}
		})
	}
}

func TestFetchErrorStatusIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "wartungsmodus")
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	resp, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("non-2xx status must not be a fetch error: %v", err)
	}
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if !strings.Contains(string(resp.Body), "wartungsmodus") {
		t.Errorf("Body = %q", resp.Body)
	}
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	f := newTestFetcher(nil)
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected a transport error")
	}
	var fe *types.FetchError
	if !errors.As(err, &fe) {
		t.Errorf("error type = %T, want *types.FetchError", err)
	}
}

func TestFetchFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/alt", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/neu", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/neu", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "angekommen")
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := newTestFetcher(nil)
	resp, err := f.Fetch(context.Background(), srv.URL+"/alt")
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if !strings.HasSuffix(resp.FinalURL, "/neu") {
		t.Errorf("FinalURL = %q, want /neu", resp.FinalURL)
	}
}

func TestFetchMaxRedirects(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	f := newTestFetcher(func(cfg *config.Config) { cfg.Fetcher.MaxRedirects = 3 })
	_, err := f.Fetch(context.Background(), srv.URL+"/")
	if err == nil {
		t.Fatal("expected an error after exceeding max redirects")
	}
}

func TestFetchBodySizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, strings.Repeat("a", 4096))
	}))
	defer srv.Close()

	f := newTestFetcher(func(cfg *config.Config) { cfg.Fetcher.MaxBodySize = 1024 })
	resp, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(resp.Body) != 1024 {
		t.Errorf("len(Body) = %d, want 1024", len(resp.Body))
	}
}

func TestHeadHasNoBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if r.Method == http.MethodGet {
			fmt.Fprint(w, "inhalt")
		}
	}))
	defer srv.Close()

	f := newTestFetcher(nil)
	resp, err := f.Head(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if len(resp.Body) != 0 {
		t.Errorf("HEAD body length = %d, want 0", len(resp.Body))
	}
	if got := resp.ContentType(); !strings.HasPrefix(got, "text/html") {
		t.Errorf("ContentType = %q", got)
	}
}
