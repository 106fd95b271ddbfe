package cmd

import (
	"context"
	"errors"
	"fmt"

	"faceclock/internal/attendance"
	"faceclock/internal/config"
	"faceclock/internal/extractor"
	"faceclock/internal/location"
	"faceclock/internal/match"
	"faceclock/internal/recognize"
	"faceclock/internal/store"
	"faceclock/internal/store/mysql"
	"faceclock/internal/store/postgres"
	"faceclock/internal/store/sqlite"
)

// openBackend opens the storage backend selected by DATABASE_DRIVER.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, error) {
	if cfg.Database.URL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	switch cfg.Database.Driver {
	case "postgres":
		return postgres.Open(ctx, &cfg.Database)
	case "mysql":
		return mysql.Open(ctx, &cfg.Database)
	case "sqlite":
		return sqlite.Open(ctx, cfg.Database.URL)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// newMatcher builds the matcher selected by MATCHER_STRATEGY. The
// linear and hnsw strategies hold all enrollments in memory; pgvector
// delegates each probe to the database.
func newMatcher(ctx context.Context, cfg *config.Config, backend store.Backend) (recognize.Matcher, error) {
	threshold := cfg.MatchThreshold()

	switch cfg.Matcher.Strategy {
	case "linear":
		cache := match.NewCache(backend.Enrollments())
		if err := cache.Reload(ctx); err != nil {
			return nil, fmt.Errorf("warm enrollment cache: %w", err)
		}
		fmt.Printf("Matcher: linear scan over %d enrollments (threshold %.2f)\n", cache.Len(), threshold)
		return &recognize.CacheMatcher{Cache: cache, Threshold: threshold}, nil

	case "hnsw":
		all, err := backend.Enrollments().GetAll(ctx)
		if err != nil {
			return nil, fmt.Errorf("load enrollments: %w", err)
		}
		ix := match.NewIndex()
		ix.Build(all)
		fmt.Printf("Matcher: HNSW index over %d enrollments (threshold %.2f)\n", ix.Len(), threshold)
		return &recognize.IndexMatcher{Index: ix, Threshold: threshold}, nil

	case "pgvector":
		pg, ok := backend.(*postgres.Backend)
		if !ok {
			return nil, errors.New("pgvector matcher requires the postgres driver")
		}
		fmt.Printf("Matcher: pgvector nearest-neighbor queries (threshold %.2f)\n", threshold)
		return &recognize.StoreMatcher{Searcher: pg.Searcher(), Threshold: threshold}, nil

	default:
		return nil, fmt.Errorf("unknown matcher strategy %q", cfg.Matcher.Strategy)
	}
}

// newRecognizer assembles the recognition service from its parts.
func newRecognizer(cfg *config.Config, matcher recognize.Matcher, backend store.Backend) *recognize.Service {
	ext := extractor.New(cfg.Extractor.URL, cfg.Extractor.Timeout, cfg.Extractor.Dim)

	var locator attendance.Locator
	if cfg.Location.URL != "" {
		locator = location.New(cfg.Location.URL, cfg.Location.Timeout)
	}
	att := attendance.NewService(backend.Attendance(), locator)

	return recognize.NewService(ext, matcher, att, backend.Enrollments(), cfg.Extractor.MaxImageSize)
}
