// Package sqlite provides the durable record store backing persistent scopes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/orba/jobtracker/internal/board/domain"
	"github.com/orba/jobtracker/internal/board/identity"
	"github.com/orba/jobtracker/internal/board/storage"
	"github.com/orba/jobtracker/internal/board/storage/sqlite/migrations"
	apperrors "github.com/orba/jobtracker/internal/platform/errors"
	"github.com/orba/jobtracker/internal/platform/id"
	sqlitemigrate "github.com/orba/jobtracker/internal/platform/storage/sqlitemigrate"
	_ "modernc.org/sqlite"
)

// Store provides SQLite-backed persistence for board records and profiles.
type Store struct {
	sqlDB       *sql.DB
	clock       func() time.Time
	idGenerator func() (string, error)
}

// Open opens and migrates a board SQLite store.
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

	store := &Store{sqlDB: sqlDB, clock: time.Now, idGenerator: id.NewID}
	if err := store.runMigrations(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return store, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// runMigrations applies embedded SQL migrations in filename order.
func (s *Store) runMigrations() error {
	return sqlitemigrate.ApplyMigrations(s.sqlDB, migrations.FS, "")
}

// List implements storage.RecordStore.
func (s *Store) List(ctx context.Context, scope identity.Scope) ([]domain.Application, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, scope_key, company, job_title, company_description, url, submission_date, status, created_at
		 FROM applications
		 WHERE scope_key = ?
		 ORDER BY created_at, id`,
		scope.Key(),
	)
	if err != nil {
		return nil, unavailable("list applications", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var out []domain.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, app)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	return out, nil
}

// Create implements storage.RecordStore.
func (s *Store) Create(ctx context.Context, scope identity.Scope, app domain.Application) (string, error) {
	if s == nil || s.sqlDB == nil {
		return "", fmt.Errorf("storage is not configured")
	}

	recordID, err := s.idGenerator()
	if err != nil {
		return "", fmt.Errorf("generate record id: %w", err)
	}
	createdAt := app.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.clock().UTC()
	}

	var submission *int64
	if app.SubmissionDate != nil {
		millis := app.SubmissionDate.UTC().UnixMilli()
		submission = &millis
	}

	_, err = s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO applications
		 (id, scope_key, company, job_title, company_description, url, submission_date, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		recordID,
		scope.Key(),
		app.Company,
		app.JobTitle,
		app.CompanyDescription,
		app.URL,
		submission,
		string(app.Status),
		createdAt.UnixMilli(),
	)
	if err != nil {
		return "", unavailable("insert application", err)
	}
	return recordID, nil
}

// Update implements storage.RecordStore.
func (s *Store) Update(ctx context.Context, scope identity.Scope, recordID string, patch domain.Patch) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	var sets []string
	var args []any
	if patch.Company != nil {
		sets = append(sets, "company = ?")
		args = append(args, strings.TrimSpace(*patch.Company))
	}
	if patch.JobTitle != nil {
		sets = append(sets, "job_title = ?")
		args = append(args, strings.TrimSpace(*patch.JobTitle))
	}
	if patch.URL != nil {
		sets = append(sets, "url = ?")
		args = append(args, strings.TrimSpace(*patch.URL))
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	if patch.CompanyDescription != nil {
		sets = append(sets, "company_description = ?")
		args = append(args, *patch.CompanyDescription)
	}
	if len(sets) == 0 {
		return domain.ErrEmptyPatch
	}

	args = append(args, recordID, scope.Key())
	result, err := s.sqlDB.ExecContext(
		ctx,
		"UPDATE applications SET "+strings.Join(sets, ", ")+" WHERE id = ? AND scope_key = ?",
		args...,
	)
	if err != nil {
		return unavailable("update application", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete implements storage.RecordStore.
func (s *Store) Delete(ctx context.Context, scope identity.Scope, recordID string) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		"DELETE FROM applications WHERE id = ? AND scope_key = ?",
		recordID,
		scope.Key(),
	)
	if err != nil {
		return unavailable("delete application", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// PutProfile implements storage.ProfileStore.
func (s *Store) PutProfile(ctx context.Context, profile domain.Profile) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(profile.UserID) == "" {
		return fmt.Errorf("user id is required")
	}
	updatedAt := profile.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = s.clock().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO profiles (user_id, first_name, last_name, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   first_name = excluded.first_name,
		   last_name = excluded.last_name,
		   updated_at = excluded.updated_at`,
		profile.UserID,
		strings.TrimSpace(profile.FirstName),
		strings.TrimSpace(profile.LastName),
		updatedAt.UnixMilli(),
	)
	if err != nil {
		return unavailable("put profile", err)
	}
	return nil
}

// GetProfile implements storage.ProfileStore.
func (s *Store) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	if s == nil || s.sqlDB == nil {
		return domain.Profile{}, fmt.Errorf("storage is not configured")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		"SELECT user_id, first_name, last_name, updated_at FROM profiles WHERE user_id = ?",
		userID,
	)

	var profile domain.Profile
	var updatedAt int64
	if err := row.Scan(&profile.UserID, &profile.FirstName, &profile.LastName, &updatedAt); err != nil {
		if err == sql.ErrNoRows {
			return domain.Profile{}, storage.ErrNotFound
		}
		return domain.Profile{}, fmt.Errorf("get profile: %w", err)
	}
	profile.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return profile, nil
}

// unavailable wraps a driver failure so callers can match it against
// storage.ErrUnavailable while keeping the cause in the chain.
func unavailable(op string, err error) error {
	return apperrors.Wrap(apperrors.CodeUnavailable, op+": store unavailable", err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (domain.Application, error) {
	var app domain.Application
	var submission sql.NullInt64
	var status string
	var createdAt int64
	if err := row.Scan(
		&app.ID,
		&app.OwnerScope,
		&app.Company,
		&app.JobTitle,
		&app.CompanyDescription,
		&app.URL,
		&submission,
		&status,
		&createdAt,
	); err != nil {
		return domain.Application{}, err
	}
	if submission.Valid {
		value := time.UnixMilli(submission.Int64).UTC()
		app.SubmissionDate = &value
	}
	app.Status = domain.Stage(status)
	app.CreatedAt = time.UnixMilli(createdAt).UTC()
	return app, nil
}
