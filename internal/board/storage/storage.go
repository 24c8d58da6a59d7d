// Package storage defines the remote store adapter contract the board engine
// persists through, scoped by identity.
package storage

import (
	"context"

	"github.com/orba/jobtracker/internal/board/domain"
	"github.com/orba/jobtracker/internal/board/identity"
	apperrors "github.com/orba/jobtracker/internal/platform/errors"
)

var (
	// ErrNotFound indicates a requested record is missing.
	ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")
	// ErrPermissionDenied indicates the scope may not touch the record.
	ErrPermissionDenied = apperrors.New(apperrors.CodePermissionDenied, "scope may not access this record")
	// ErrUnavailable indicates the backing store could not be reached.
	ErrUnavailable = apperrors.New(apperrors.CodeUnavailable, "record store is unavailable")
)

// RecordStore persists application records partitioned by scope. Ephemeral
// scopes may be backed by non-durable storage; callers must not assume
// persistence for them.
type RecordStore interface {
	// List returns every record under scope.
	List(ctx context.Context, scope identity.Scope) ([]domain.Application, error)
	// Create assigns an id and creation timestamp, persists the record, and
	// returns the assigned id.
	Create(ctx context.Context, scope identity.Scope, app domain.Application) (string, error)
	// Update applies a partial update to an existing record.
	Update(ctx context.Context, scope identity.Scope, id string, patch domain.Patch) error
	// Delete removes a record.
	Delete(ctx context.Context, scope identity.Scope, id string) error
}

// Purger drops every record under a scope at once. Ephemeral stores
// implement it so guest data can be reclaimed when the session ends.
type Purger interface {
	Purge(scope identity.Scope)
}

// ProfileStore persists the display-name profile of authenticated users.
type ProfileStore interface {
	PutProfile(ctx context.Context, profile domain.Profile) error
	GetProfile(ctx context.Context, userID string) (domain.Profile, error)
}
