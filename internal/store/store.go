package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"kinderscout/internal/config"
	"kinderscout/internal/types"
)

// ActivityStore is the persistence interface for the activity catalogue.
// Entries are keyed by normalized URL; Load excludes user-removed entries.
type ActivityStore interface {
	Load(ctx context.Context) ([]types.Activity, error)
	Get(ctx context.Context, rawURL string) (*types.Activity, error)
	// Upsert inserts or replaces the entry for the activity's URL and
	// reports whether an existing entry was updated.
	Upsert(ctx context.Context, activity types.Activity) (bool, error)
	Close(ctx context.Context) error
}

// Open constructs the configured store backend.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (ActivityStore, error) {
	switch cfg.Store.Backend {
	case "file":
		return NewFileStore(&cfg.Store, logger)
	case "sheets":
		return NewSheetsStore(ctx, &cfg.Store, logger)
	case "mongo":
		return NewMongoStore(ctx, &cfg.Store, logger)
	default:
		return nil, fmt.Errorf("unknown store backend: %s", cfg.Store.Backend)
	}
}

// NormalizeURL canonicalizes a URL for catalogue comparison: scheme and host
// lowercased, trailing slash trimmed, query preserved.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return strings.TrimRight(strings.ToLower(rawURL), "/")
	}
	s := strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host) + strings.TrimRight(u.Path, "/")
	if u.RawQuery != "" {
		s += "?" + u.RawQuery
	}
	return s
}
