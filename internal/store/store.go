package store

import (
	"context"
	"time"
)

// EnrollmentStore persists identity enrollments. Upsert is
// last-writer-wins by identity ID.
type EnrollmentStore interface {
	// GetAll returns every enrollment, ordered by identity ID.
	GetAll(ctx context.Context) ([]Enrollment, error)
	// Get returns the enrollment for an identity, or nil if none exists.
	Get(ctx context.Context, identityID string) (*Enrollment, error)
	// Upsert creates or replaces the enrollment for e.IdentityID.
	Upsert(ctx context.Context, e Enrollment) error
}

// NearestSearcher is implemented by backends that can answer
// nearest-enrollment queries themselves (pgvector). The contract
// matches the in-memory matcher: L2 distance, ascending.
type NearestSearcher interface {
	FindNearest(ctx context.Context, probe []float32) (*Enrollment, float64, error)
}

// AttendanceLedger persists per-day attendance records. InsertLogin and
// SetLogout are conditional writes: backends must make them atomic per
// (identity, date) via a unique constraint so concurrent callers cannot
// both succeed.
type AttendanceLedger interface {
	// GetRecord returns the record for (identityID, date), or nil if none.
	GetRecord(ctx context.Context, identityID, date string) (*AttendanceRecord, error)
	// InsertLogin creates the day's record if and only if none exists yet.
	// Returns false without error when a record already exists.
	InsertLogin(ctx context.Context, rec AttendanceRecord) (bool, error)
	// SetLogout closes the day's record if and only if it is open
	// (login set, logout unset). Returns false without error otherwise.
	SetLogout(ctx context.Context, identityID, date string, logoutTime time.Time) (bool, error)
	// ListByIdentity returns up to limit records for an identity, newest first.
	ListByIdentity(ctx context.Context, identityID string, limit int) ([]AttendanceRecord, error)
	// MonthlyLoginCount counts days with a login in the given month.
	MonthlyLoginCount(ctx context.Context, identityID string, year, month int) (int, error)
}

// Backend bundles both stores of one database so commands can open
// them together and close them once.
type Backend interface {
	Enrollments() EnrollmentStore
	Attendance() AttendanceLedger
	Close() error
}
