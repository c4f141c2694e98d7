// Package sqlite implements all module storage interfaces over a single
// SQLite database.
package sqlite

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/Anuraj-dev/student-erp/internal/admissions"
	"github.com/Anuraj-dev/student-erp/internal/auth"
	"github.com/Anuraj-dev/student-erp/internal/courses"
	"github.com/Anuraj-dev/student-erp/internal/exams"
	"github.com/Anuraj-dev/student-erp/internal/fees"
	"github.com/Anuraj-dev/student-erp/internal/hostel"
	"github.com/Anuraj-dev/student-erp/internal/library"
	"github.com/Anuraj-dev/student-erp/internal/mailer"
	sqlitemigrate "github.com/Anuraj-dev/student-erp/internal/platform/storage/sqlitemigrate"
	"github.com/Anuraj-dev/student-erp/internal/staff"
	"github.com/Anuraj-dev/student-erp/internal/storage/sqlite/migrations"
	"github.com/Anuraj-dev/student-erp/internal/students"
)

// toMillis normalizes timestamps into millisecond precision for storage.
func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

// fromMillis restores millisecond precision and keeps UTC normalization.
func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// toMillisPtr converts an optional timestamp for storage.
func toMillisPtr(value *time.Time) any {
	if value == nil {
		return nil
	}
	return toMillis(*value)
}

// fromMillisPtr restores an optional timestamp.
func fromMillisPtr(value sql.NullInt64) *time.Time {
	if !value.Valid {
		return nil
	}
	t := fromMillis(value.Int64)
	return &t
}

// Store implements module persistence over SQLite.
//
// A single SQLite file backs the whole institution so cross-module reads
// (dashboard, reports) share one transaction and visibility boundary.
type Store struct {
	sqlDB *sql.DB
}

// Interface assertions keep the store honest against every consumer.
var (
	_ courses.Store        = (*Store)(nil)
	_ students.Store       = (*Store)(nil)
	_ staff.Store          = (*Store)(nil)
	_ admissions.Store     = (*Store)(nil)
	_ fees.Store           = (*Store)(nil)
	_ library.Store        = (*Store)(nil)
	_ hostel.Store         = (*Store)(nil)
	_ exams.Store          = (*Store)(nil)
	_ auth.RevocationStore = (*Store)(nil)
	_ mailer.Store         = (*Store)(nil)
)

// DB returns the raw database handle for maintenance callers.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sqlDB
}

// Open opens the SQLite store and applies bundled migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}

	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &Store{sqlDB: sqlDB}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// runMigrations applies embedded DDL snapshots for known schema versions.
func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

// isUniqueViolation detects SQLite unique constraint failures.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// violatesUnique reports whether err is a unique constraint failure on
// the given column. SQLite names the column in the error message.
func violatesUnique(err error, column string) bool {
	return isUniqueViolation(err) && strings.Contains(err.Error(), column)
}
