package postgres

import (
	"context"
	"fmt"

	"faceclock/internal/config"
	"faceclock/internal/store"
)

// Backend bundles the PostgreSQL repositories behind store.Backend.
type Backend struct {
	pool        *Pool
	enrollments *EnrollmentRepository
	ledger      *LedgerRepository
}

var _ store.Backend = (*Backend)(nil)

// Open connects to PostgreSQL, runs pending migrations and returns the
// ready backend.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (*Backend, error) {
	pool, err := NewPool(cfg)
	if err != nil {
		return nil, err
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Backend{
		pool:        pool,
		enrollments: NewEnrollmentRepository(pool),
		ledger:      NewLedgerRepository(pool),
	}, nil
}

func (b *Backend) Enrollments() store.EnrollmentStore { return b.enrollments }

func (b *Backend) Attendance() store.AttendanceLedger { return b.ledger }

// Searcher exposes the database-side nearest-neighbor search.
func (b *Backend) Searcher() store.NearestSearcher { return b.enrollments }

func (b *Backend) Close() error { return b.pool.Close() }
