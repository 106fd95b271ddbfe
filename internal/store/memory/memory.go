// Package memory provides an in-memory store backend for unit tests
// and local experiments. The ledger serializes conditional writes with
// a mutex so it honors the same per-(identity, date) atomicity contract
// as the SQL backends.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"faceclock/internal/store"
)

// Store implements store.Backend entirely in memory.
type Store struct {
	mu          sync.Mutex
	enrollments map[string]store.Enrollment
	records     map[string]store.AttendanceRecord // keyed by identityID + "/" + date

	// Error injection for tests.
	GetAllErr error
	UpsertErr error
	LedgerErr error
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		enrollments: make(map[string]store.Enrollment),
		records:     make(map[string]store.AttendanceRecord),
	}
}

func (s *Store) Enrollments() store.EnrollmentStore { return (*enrollmentStore)(s) }
func (s *Store) Attendance() store.AttendanceLedger { return (*ledger)(s) }
func (s *Store) Close() error                       { return nil }

type enrollmentStore Store

func (s *enrollmentStore) GetAll(ctx context.Context) ([]store.Enrollment, error) {
	if s.GetAllErr != nil {
		return nil, s.GetAllErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]store.Enrollment, 0, len(s.enrollments))
	for _, e := range s.enrollments {
		out = append(out, cloneEnrollment(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IdentityID < out[j].IdentityID })
	return out, nil
}

func (s *enrollmentStore) Get(ctx context.Context, identityID string) (*store.Enrollment, error) {
	if s.GetAllErr != nil {
		return nil, s.GetAllErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.enrollments[identityID]
	if !ok {
		return nil, nil
	}
	c := cloneEnrollment(e)
	return &c, nil
}

func (s *enrollmentStore) Upsert(ctx context.Context, e store.Enrollment) error {
	if s.UpsertErr != nil {
		return s.UpsertErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enrollments[e.IdentityID] = cloneEnrollment(e)
	return nil
}

type ledger Store

func recordKey(identityID, date string) string { return identityID + "/" + date }

func (s *ledger) GetRecord(ctx context.Context, identityID, date string) (*store.AttendanceRecord, error) {
	if s.LedgerErr != nil {
		return nil, s.LedgerErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[recordKey(identityID, date)]
	if !ok {
		return nil, nil
	}
	c := cloneRecord(rec)
	return &c, nil
}

func (s *ledger) InsertLogin(ctx context.Context, rec store.AttendanceRecord) (bool, error) {
	if s.LedgerErr != nil {
		return false, s.LedgerErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(rec.IdentityID, rec.Date)
	if _, exists := s.records[key]; exists {
		return false, nil
	}
	s.records[key] = cloneRecord(rec)
	return true, nil
}

func (s *ledger) SetLogout(ctx context.Context, identityID, date string, logoutTime time.Time) (bool, error) {
	if s.LedgerErr != nil {
		return false, s.LedgerErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := recordKey(identityID, date)
	rec, ok := s.records[key]
	if !ok || rec.LoginTime == nil || rec.LogoutTime != nil {
		return false, nil
	}
	t := logoutTime
	rec.LogoutTime = &t
	s.records[key] = rec
	return true, nil
}

func (s *ledger) ListByIdentity(ctx context.Context, identityID string, limit int) ([]store.AttendanceRecord, error) {
	if s.LedgerErr != nil {
		return nil, s.LedgerErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []store.AttendanceRecord
	for _, rec := range s.records {
		if rec.IdentityID == identityID {
			out = append(out, cloneRecord(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *ledger) MonthlyLoginCount(ctx context.Context, identityID string, year, month int) (int, error) {
	if s.LedgerErr != nil {
		return 0, s.LedgerErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, rec := range s.records {
		if rec.IdentityID != identityID || rec.LoginTime == nil {
			continue
		}
		d, err := time.Parse(store.DateFormat, rec.Date)
		if err != nil {
			continue
		}
		if d.Year() == year && int(d.Month()) == month {
			count++
		}
	}
	return count, nil
}

func cloneEnrollment(e store.Enrollment) store.Enrollment {
	c := e
	c.Embedding = append([]float32(nil), e.Embedding...)
	return c
}

func cloneRecord(rec store.AttendanceRecord) store.AttendanceRecord {
	c := rec
	if rec.LoginTime != nil {
		t := *rec.LoginTime
		c.LoginTime = &t
	}
	if rec.LogoutTime != nil {
		t := *rec.LogoutTime
		c.LogoutTime = &t
	}
	return c
}

// Interface compliance.
var _ store.Backend = (*Store)(nil)
var _ store.EnrollmentStore = (*enrollmentStore)(nil)
var _ store.AttendanceLedger = (*ledger)(nil)
