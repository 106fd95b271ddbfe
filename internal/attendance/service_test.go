package attendance

import (
	"context"
	"sync"
	"testing"
	"time"

	"faceclock/internal/store/memory"
)

type fixedLocator string

func (l fixedLocator) Lookup(ctx context.Context) string { return string(l) }

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	backend := memory.New()
	svc := NewService(backend.Attendance(), fixedLocator("Prague, CZ"))
	svc.SetClock(func() time.Time {
		return time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	})
	return svc, backend
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"Login", ModeLogin, false},
		{"login", ModeLogin, false},
		{"LOGOUT", ModeLogout, false},
		{" logout ", ModeLogout, false},
		{"", "", true},
		{"lunch", "", true},
	}

	for _, tc := range tests {
		got, err := ParseMode(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseMode(%q) should fail", tc.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseMode(%q) failed: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseMode(%q) = %v; want %v", tc.in, got, tc.want)
		}
	}
}

func TestDuplicateLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	first, err := svc.Mark(ctx, "E1", ModeLogin)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if !first.Accepted || first.Reason != ReasonMarked {
		t.Fatalf("first login = (%v, %s); want accepted/marked", first.Accepted, first.Reason)
	}
	if first.Record == nil || first.Record.Location != "Prague, CZ" {
		t.Errorf("login record missing location: %+v", first.Record)
	}

	second, err := svc.Mark(ctx, "E1", ModeLogin)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if second.Accepted || second.Reason != ReasonAlreadyMarked {
		t.Errorf("second login = (%v, %s); want rejected/already marked", second.Accepted, second.Reason)
	}
}

func TestLogoutWithoutLogin(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.Mark(context.Background(), "E1", ModeLogout)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if res.Accepted || res.Reason != ReasonNoOpenLogin {
		t.Errorf("logout without login = (%v, %s); want rejected/no login found", res.Accepted, res.Reason)
	}
}

func TestLoginLogoutLogout(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	steps := []struct {
		mode     Mode
		accepted bool
		reason   Reason
	}{
		{ModeLogin, true, ReasonMarked},
		{ModeLogout, true, ReasonMarked},
		{ModeLogout, false, ReasonAlreadyMarked},
		{ModeLogin, false, ReasonAlreadyMarked}, // closed day is terminal
	}

	for i, step := range steps {
		res, err := svc.Mark(ctx, "E1", step.mode)
		if err != nil {
			t.Fatalf("step %d: Mark failed: %v", i, err)
		}
		if res.Accepted != step.accepted || res.Reason != step.reason {
			t.Errorf("step %d (%s) = (%v, %s); want (%v, %s)",
				i, step.mode, res.Accepted, res.Reason, step.accepted, step.reason)
		}
	}

	rec, err := backend.Attendance().GetRecord(ctx, "E1", "2026-08-28")
	if err != nil {
		t.Fatalf("GetRecord failed: %v", err)
	}
	if rec == nil || !rec.Closed() {
		t.Errorf("expected a closed record, got %+v", rec)
	}
}

func TestIndependentDays(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	day := time.Date(2026, 8, 28, 9, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return day })

	if res, err := svc.Mark(ctx, "E1", ModeLogin); err != nil || !res.Accepted {
		t.Fatalf("day 1 login = (%v, %v)", res, err)
	}

	day = day.AddDate(0, 0, 1)
	res, err := svc.Mark(ctx, "E1", ModeLogin)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if !res.Accepted {
		t.Error("login on the next day should be independent of the previous day")
	}

	records, err := backend.Attendance().ListByIdentity(ctx, "E1", 0)
	if err != nil {
		t.Fatalf("ListByIdentity failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("got %d records; want 2", len(records))
	}
}

func TestConcurrentLoginsSingleWinner(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	const n = 32
	var wg sync.WaitGroup
	accepted := make(chan bool, n)

	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Mark(ctx, "E1", ModeLogin)
			if err != nil {
				t.Errorf("Mark failed: %v", err)
				return
			}
			accepted <- res.Accepted
		}()
	}
	wg.Wait()
	close(accepted)

	wins := 0
	for ok := range accepted {
		if ok {
			wins++
		}
	}
	if wins != 1 {
		t.Errorf("%d concurrent logins were accepted; want exactly 1", wins)
	}
}

func TestNilLocatorFallsBackToUnknown(t *testing.T) {
	backend := memory.New()
	svc := NewService(backend.Attendance(), nil)

	res, err := svc.Mark(context.Background(), "E1", ModeLogin)
	if err != nil {
		t.Fatalf("Mark failed: %v", err)
	}
	if res.Record == nil || res.Record.Location != "Unknown" {
		t.Errorf("expected Unknown location, got %+v", res.Record)
	}
}

func TestMonthlyLoginCount(t *testing.T) {
	svc, backend := newTestService(t)
	ctx := context.Background()

	day := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)
	svc.SetClock(func() time.Time { return day })

	for range 3 {
		if _, err := svc.Mark(ctx, "E1", ModeLogin); err != nil {
			t.Fatalf("Mark failed: %v", err)
		}
		day = day.AddDate(0, 0, 1)
	}
	// One login in another month must not count.
	day = time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	if _, err := svc.Mark(ctx, "E1", ModeLogin); err != nil {
		t.Fatalf("Mark failed: %v", err)
	}

	count, err := backend.Attendance().MonthlyLoginCount(ctx, "E1", 2026, 8)
	if err != nil {
		t.Fatalf("MonthlyLoginCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("monthly count = %d; want 3", count)
	}
}
