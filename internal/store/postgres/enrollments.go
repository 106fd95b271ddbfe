package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/pgvector/pgvector-go"

	"faceclock/internal/store"
)

// EnrollmentRepository provides PostgreSQL-backed enrollment storage.
// It also answers nearest-enrollment queries in the database via the
// pgvector L2 distance operator.
type EnrollmentRepository struct {
	pool *Pool
}

var _ store.EnrollmentStore = (*EnrollmentRepository)(nil)
var _ store.NearestSearcher = (*EnrollmentRepository)(nil)

// NewEnrollmentRepository creates a new PostgreSQL enrollment repository.
func NewEnrollmentRepository(pool *Pool) *EnrollmentRepository {
	return &EnrollmentRepository{pool: pool}
}

func (r *EnrollmentRepository) GetAll(ctx context.Context) ([]store.Enrollment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT identity_id, display_name, embedding, created_at
		FROM enrollments
		ORDER BY identity_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var enrollments []store.Enrollment
	for rows.Next() {
		var e store.Enrollment
		var vec pgvector.Vector
		if err := rows.Scan(&e.IdentityID, &e.DisplayName, &vec, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		e.Embedding = vec.Slice()
		enrollments = append(enrollments, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return enrollments, nil
}

func (r *EnrollmentRepository) Get(ctx context.Context, identityID string) (*store.Enrollment, error) {
	var e store.Enrollment
	var vec pgvector.Vector
	err := r.pool.QueryRow(ctx, `
		SELECT identity_id, display_name, embedding, created_at
		FROM enrollments
		WHERE identity_id = $1
	`, identityID).Scan(&e.IdentityID, &e.DisplayName, &vec, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query enrollment: %w", err)
	}
	e.Embedding = vec.Slice()
	return &e, nil
}

func (r *EnrollmentRepository) Upsert(ctx context.Context, e store.Enrollment) error {
	vec := pgvector.NewVector(e.Embedding)
	_, err := r.pool.Exec(ctx, `
		INSERT INTO enrollments (identity_id, display_name, embedding, created_at)
		VALUES ($1, $2, $3::vector, $4)
		ON CONFLICT (identity_id) DO UPDATE SET
			display_name = EXCLUDED.display_name,
			embedding    = EXCLUDED.embedding,
			created_at   = EXCLUDED.created_at
	`, e.IdentityID, e.DisplayName, vec, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}
	return nil
}

// FindNearest returns the enrollment closest to the probe by L2
// distance. An empty table yields (nil, +Inf, nil).
func (r *EnrollmentRepository) FindNearest(ctx context.Context, probe []float32) (*store.Enrollment, float64, error) {
	vec := pgvector.NewVector(probe)

	var e store.Enrollment
	var stored pgvector.Vector
	var distance float64
	err := r.pool.QueryRow(ctx, `
		SELECT identity_id, display_name, embedding, created_at,
		       embedding <-> $1::vector AS distance
		FROM enrollments
		ORDER BY distance
		LIMIT 1
	`, vec).Scan(&e.IdentityID, &e.DisplayName, &stored, &e.CreatedAt, &distance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, math.Inf(1), nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("query nearest enrollment: %w", err)
	}
	e.Embedding = stored.Slice()
	return &e, distance, nil
}

// Count returns the total number of enrollments stored.
func (r *EnrollmentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, "SELECT COUNT(*) FROM enrollments").Scan(&count); err != nil {
		return 0, fmt.Errorf("count enrollments: %w", err)
	}
	return count, nil
}
