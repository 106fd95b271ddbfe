package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"faceclock/internal/store"
)

// LedgerRepository provides PostgreSQL-backed attendance storage. The
// UNIQUE (identity_id, date) constraint makes the conditional writes
// atomic across concurrent callers.
type LedgerRepository struct {
	pool *Pool
}

var _ store.AttendanceLedger = (*LedgerRepository)(nil)

// NewLedgerRepository creates a new PostgreSQL attendance repository.
func NewLedgerRepository(pool *Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) GetRecord(ctx context.Context, identityID, date string) (*store.AttendanceRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, identity_id, date, login_time, logout_time, location
		FROM attendance
		WHERE identity_id = $1 AND date = $2
	`, identityID, date)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query attendance record: %w", err)
	}
	return rec, nil
}

func (r *LedgerRepository) InsertLogin(ctx context.Context, rec store.AttendanceRecord) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO attendance (id, identity_id, date, login_time, location)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (identity_id, date) DO NOTHING
	`, rec.ID, rec.IdentityID, rec.Date, rec.LoginTime, rec.Location)
	if err != nil {
		return false, fmt.Errorf("insert login: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert login rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *LedgerRepository) SetLogout(ctx context.Context, identityID, date string, logoutTime time.Time) (bool, error) {
	result, err := r.pool.Exec(ctx, `
		UPDATE attendance
		SET logout_time = $1
		WHERE identity_id = $2 AND date = $3
		  AND login_time IS NOT NULL AND logout_time IS NULL
	`, logoutTime, identityID, date)
	if err != nil {
		return false, fmt.Errorf("set logout: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("set logout rows affected: %w", err)
	}
	return n == 1, nil
}

func (r *LedgerRepository) ListByIdentity(ctx context.Context, identityID string, limit int) ([]store.AttendanceRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, identity_id, date, login_time, logout_time, location
		FROM attendance
		WHERE identity_id = $1
		ORDER BY date DESC
		LIMIT $2
	`, identityID, limit)
	if err != nil {
		return nil, fmt.Errorf("query attendance records: %w", err)
	}
	defer rows.Close()

	var records []store.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance records: %w", err)
	}
	return records, nil
}

func (r *LedgerRepository) MonthlyLoginCount(ctx context.Context, identityID string, year, month int) (int, error) {
	prefix := fmt.Sprintf("%04d-%02d-%%", year, month)

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM attendance
		WHERE identity_id = $1 AND date LIKE $2 AND login_time IS NOT NULL
	`, identityID, prefix).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count monthly logins: %w", err)
	}
	return count, nil
}

// scanner covers both sql.Row and sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*store.AttendanceRecord, error) {
	var rec store.AttendanceRecord
	var login, logout sql.NullTime
	if err := s.Scan(&rec.ID, &rec.IdentityID, &rec.Date, &login, &logout, &rec.Location); err != nil {
		return nil, err
	}
	if login.Valid {
		t := login.Time
		rec.LoginTime = &t
	}
	if logout.Valid {
		t := logout.Time
		rec.LogoutTime = &t
	}
	return &rec, nil
}
