package fetcher

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/andybalholm/brotli"

	"kinderscout/internal/config"
	"kinderscout/internal/types"
)

// Response is the result of fetching a URL. FinalURL is the URL after any
// redirects; StatusCode is the final response's status.
type Response struct {
	StatusCode    int
	Header        http.Header
	Body          []byte
	FinalURL      string
	FetchDuration time.Duration
}

// ContentType returns the response's MIME type header.
func (r *Response) ContentType() string {
	return r.Header.Get("Content-Type")
}

// Fetcher issues polite sequential HTTP requests with decompression support.
type Fetcher struct {
	client    *http.Client
	cfg       *config.FetcherConfig
	userAgent string
	logger    *slog.Logger
}

// New creates a new Fetcher.
func New(cfg *config.Config, logger *slog.Logger) *Fetcher {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        cfg.Fetcher.MaxIdleConns,
		MaxIdleConnsPerHost: cfg.Fetcher.MaxIdleConns / 2,
		IdleConnTimeout:     cfg.Fetcher.IdleConnTimeout,
		TLSHandshakeTimeout: 10 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.Fetcher.TLSInsecure,
		},
		DisableCompression: true, // we handle decompression ourselves (including brotli)
	}

	maxRedirects := cfg.Fetcher.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Fetcher.RequestTimeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("max redirects (%d) reached", maxRedirects)
			}
			return nil
		},
	}

	return &Fetcher{
		client:    client,
		cfg:       &cfg.Fetcher,
		userAgent: cfg.Fetcher.UserAgent,
		logger:    logger.With("component", "fetcher"),
	}
}

// Fetch issues a GET request and returns the decompressed response body.
// Any response, regardless of status code, is returned without error; only
// transport-level failures produce a *types.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Response, error) {
	return f.do(ctx, http.MethodGet, rawURL)
}

// Head issues a HEAD request. The response body is always empty.
func (f *Fetcher) Head(ctx context.Context, rawURL string) (*Response, error) {
	return f.do(ctx, http.MethodHead, rawURL)
}

func (f *Fetcher) do(ctx context.Context, method, rawURL string) (*Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}

	httpReq.Header.Set("User-Agent", f.userAgent)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.8")
	httpReq.Header.Set("Accept-Encoding", "gzip, deflate, br")

	start := time.Now()
	httpResp, err := f.client.Do(httpReq)
	duration := time.Since(start)

	if err != nil {
		return nil, &types.FetchError{URL: rawURL, Err: err}
	}
	defer httpResp.Body.Close()

	var body []byte
	if method != http.MethodHead {
		var reader io.Reader = httpResp.Body
		if f.cfg.MaxBodySize > 0 {
			reader = io.LimitReader(reader, f.cfg.MaxBodySize)
		}

		reader, err = decompressReader(httpResp, reader)
		if err != nil {
			return nil, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: err}
		}

		body, err = io.ReadAll(reader)
		if err != nil {
			return nil, &types.FetchError{URL: rawURL, StatusCode: httpResp.StatusCode, Err: err}
		}
	}

	resp := &Response{
		StatusCode:    httpResp.StatusCode,
		Header:        httpResp.Header,
		Body:          body,
		FinalURL:      httpResp.Request.URL.String(),
		FetchDuration: duration,
	}

	f.logger.Debug("fetch complete",
		"url", rawURL,
		"status", resp.StatusCode,
		"size", len(body),
		"duration", duration,
	)

	return resp, nil
}

// decompressReader wraps a reader with the appropriate decompressor.
// Handles gzip, deflate, and brotli (br) encodings.
func decompressReader(resp *http.Response, reader io.Reader) (io.Reader, error) {
	switch resp.Header.Get("Content-Encoding") {
	case "gzip":
		return gzip.NewReader(reader)
	case "deflate":
		return flate.NewReader(reader), nil
	case "br":
		return brotli.NewReader(reader), nil
	default:
		return reader, nil
	}
}

// Close releases idle connections.
func (f *Fetcher) Close() {
	f.client.CloseIdleConnections()
}
