// Package sqlite implements the store interfaces on SQLite via the
// pure-Go modernc driver. It is the zero-dependency deployment option;
// matching runs in process like the mysql backend.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"faceclock/internal/store"
)

// Backend manages a SQLite database and implements store.Backend.
type Backend struct {
	db *sql.DB
}

var _ store.Backend = (*Backend)(nil)
var _ store.EnrollmentStore = (*enrollments)(nil)
var _ store.AttendanceLedger = (*ledger)(nil)

// Open opens a SQLite database at the given path and ensures the
// schema exists. It enables WAL mode and foreign keys.
func Open(ctx context.Context, dbPath string) (*Backend, error) {
	if dbPath == "" {
		return nil, errors.New("database path is required")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	// Enable foreign key enforcement.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	// Single writer; the driver serializes access anyway.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	b := &Backend{db: db}
	if err := b.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

func (b *Backend) migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS enrollments (
			identity_id  TEXT PRIMARY KEY,
			display_name TEXT NOT NULL,
			embedding    BLOB NOT NULL,
			created_at   TIMESTAMP NOT NULL
		);

		CREATE TABLE IF NOT EXISTS attendance (
			id           TEXT PRIMARY KEY,
			identity_id  TEXT NOT NULL,
			date         TEXT NOT NULL,
			login_time   TIMESTAMP,
			logout_time  TIMESTAMP,
			location     TEXT NOT NULL DEFAULT 'Unknown',
			UNIQUE (identity_id, date)
		);

		CREATE INDEX IF NOT EXISTS attendance_identity_idx ON attendance (identity_id);
	`
	if _, err := b.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (b *Backend) Enrollments() store.EnrollmentStore { return (*enrollments)(b) }

func (b *Backend) Attendance() store.AttendanceLedger { return (*ledger)(b) }

func (b *Backend) Close() error {
	if b.db != nil {
		if err := b.db.Close(); err != nil {
			return fmt.Errorf("closing database: %w", err)
		}
	}
	return nil
}

type enrollments Backend

func (s *enrollments) GetAll(ctx context.Context) ([]store.Enrollment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT identity_id, display_name, embedding, created_at
		FROM enrollments
		ORDER BY identity_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var all []store.Enrollment
	for rows.Next() {
		var e store.Enrollment
		var blob []byte
		if err := rows.Scan(&e.IdentityID, &e.DisplayName, &blob, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		if e.Embedding, err = store.DecodeVector(blob); err != nil {
			return nil, fmt.Errorf("decode embedding for %s: %w", e.IdentityID, err)
		}
		all = append(all, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate enrollments: %w", err)
	}
	return all, nil
}

func (s *enrollments) Get(ctx context.Context, identityID string) (*store.Enrollment, error) {
	var e store.Enrollment
	var blob []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT identity_id, display_name, embedding, created_at
		FROM enrollments
		WHERE identity_id = ?
	`, identityID).Scan(&e.IdentityID, &e.DisplayName, &blob, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query enrollment: %w", err)
	}
	if e.Embedding, err = store.DecodeVector(blob); err != nil {
		return nil, fmt.Errorf("decode embedding for %s: %w", identityID, err)
	}
	return &e, nil
}

func (s *enrollments) Upsert(ctx context.Context, e store.Enrollment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO enrollments (identity_id, display_name, embedding, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (identity_id) DO UPDATE SET
			display_name = excluded.display_name,
			embedding    = excluded.embedding,
			created_at   = excluded.created_at
	`, e.IdentityID, e.DisplayName, store.EncodeVector(e.Embedding), e.CreatedAt)
	if err != nil {
		return fmt.Errorf("upsert enrollment: %w", err)
	}
	return nil
}

type ledger Backend

func (s *ledger) GetRecord(ctx context.Context, identityID, date string) (*store.AttendanceRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, identity_id, date, login_time, logout_time, location
		FROM attendance
		WHERE identity_id = ? AND date = ?
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

func (s *ledger) InsertLogin(ctx context.Context, rec store.AttendanceRecord) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO attendance (id, identity_id, date, login_time, location)
		VALUES (?, ?, ?, ?, ?)
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

func (s *ledger) SetLogout(ctx context.Context, identityID, date string, logoutTime time.Time) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE attendance
		SET logout_time = ?
		WHERE identity_id = ? AND date = ?
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

func (s *ledger) ListByIdentity(ctx context.Context, identityID string, limit int) ([]store.AttendanceRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, identity_id, date, login_time, logout_time, location
		FROM attendance
		WHERE identity_id = ?
		ORDER BY date DESC
		LIMIT ?
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

func (s *ledger) MonthlyLoginCount(ctx context.Context, identityID string, year, month int) (int, error) {
	prefix := fmt.Sprintf("%04d-%02d-%%", year, month)

	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM attendance
		WHERE identity_id = ? AND date LIKE ? AND login_time IS NOT NULL
	`, identityID, prefix).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count monthly logins: %w", err)
	}
	return count, nil
}

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
