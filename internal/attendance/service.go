package attendance

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"faceclock/internal/store"
)

// Locator resolves a human-readable location for new login records.
// Implementations are best-effort: they return a sentinel string on
// failure and never error.
type Locator interface {
	Lookup(ctx context.Context) string
}

// Result is the outcome of one mark request.
type Result struct {
	Accepted bool
	Reason   Reason
	Mode     Mode
	Time     time.Time
	Record   *store.AttendanceRecord
}

// Service drives the attendance state machine on top of a ledger's
// conditional write primitives.
type Service struct {
	ledger  store.AttendanceLedger
	locator Locator
	now     func() time.Time
}

// NewService creates an attendance service. locator may be nil, in
// which case login records carry the Unknown location.
func NewService(ledger store.AttendanceLedger, locator Locator) *Service {
	return &Service{
		ledger:  ledger,
		locator: locator,
		now:     time.Now,
	}
}

// SetClock overrides the time source, for tests.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Mark applies a login or logout for identityID. The timestamp and date
// are captured here, at the moment of acceptance, so a retried request
// does not carry a stale time. Rejections (duplicate, no open login)
// are reported through Result, never as errors; only ledger failures
// return an error.
func (s *Service) Mark(ctx context.Context, identityID string, mode Mode) (Result, error) {
	now := s.now()
	date := now.Format(store.DateFormat)

	switch mode {
	case ModeLogin:
		return s.markLogin(ctx, identityID, date, now)
	case ModeLogout:
		return s.markLogout(ctx, identityID, date, now)
	default:
		return Result{}, fmt.Errorf("invalid mode %q", mode)
	}
}

func (s *Service) markLogin(ctx context.Context, identityID, date string, now time.Time) (Result, error) {
	location := "Unknown"
	if s.locator != nil {
		location = s.locator.Lookup(ctx)
	}

	rec := store.AttendanceRecord{
		ID:         uuid.NewString(),
		IdentityID: identityID,
		Date:       date,
		LoginTime:  &now,
		Location:   location,
	}

	inserted, err := s.ledger.InsertLogin(ctx, rec)
	if err != nil {
		return Result{}, fmt.Errorf("insert login: %w", err)
	}
	if !inserted {
		return Result{Reason: ReasonAlreadyMarked, Mode: ModeLogin, Time: now}, nil
	}
	return Result{Accepted: true, Reason: ReasonMarked, Mode: ModeLogin, Time: now, Record: &rec}, nil
}

func (s *Service) markLogout(ctx context.Context, identityID, date string, now time.Time) (Result, error) {
	updated, err := s.ledger.SetLogout(ctx, identityID, date, now)
	if err != nil {
		return Result{}, fmt.Errorf("set logout: %w", err)
	}
	if updated {
		rec, err := s.ledger.GetRecord(ctx, identityID, date)
		if err != nil {
			// The logout was applied; reporting the record is best-effort.
			rec = nil
		}
		return Result{Accepted: true, Reason: ReasonMarked, Mode: ModeLogout, Time: now, Record: rec}, nil
	}

	// Distinguish "never logged in" from "already closed".
	rec, err := s.ledger.GetRecord(ctx, identityID, date)
	if err != nil {
		return Result{}, fmt.Errorf("get record: %w", err)
	}
	if rec == nil {
		return Result{Reason: ReasonNoOpenLogin, Mode: ModeLogout, Time: now}, nil
	}
	return Result{Reason: ReasonAlreadyMarked, Mode: ModeLogout, Time: now, Record: rec}, nil
}
