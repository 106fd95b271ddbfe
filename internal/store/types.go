// Package store defines the persistence interfaces and shared row types
// for enrollments and attendance records. Concrete backends live in the
// postgres, mysql, sqlite and memory subpackages.
package store

import "time"

// DateFormat is the calendar-day key format used by the attendance
// ledger. Records are keyed by (identity, date) in the server's local
// time zone.
const DateFormat = "2006-01-02"

// Enrollment is the stored reference embedding plus display metadata
// for one identity. It is replaced wholesale on re-registration, never
// partially mutated.
type Enrollment struct {
	IdentityID  string
	DisplayName string
	Embedding   []float32
	CreatedAt   time.Time
}

// AttendanceRecord is one day's login/logout state for one identity.
// LogoutTime is set only after LoginTime; once both are set the record
// is closed for the day.
type AttendanceRecord struct {
	ID         string
	IdentityID string
	Date       string
	LoginTime  *time.Time
	LogoutTime *time.Time
	Location   string
}

// Closed reports whether the record has both login and logout set.
func (r *AttendanceRecord) Closed() bool {
	return r.LoginTime != nil && r.LogoutTime != nil
}
