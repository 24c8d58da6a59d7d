// Package memory provides a session-local record store for ephemeral scopes.
// Guest boards live here and vanish with the process, which is the documented
// contract for guest identities.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/orba/jobtracker/internal/board/domain"
	"github.com/orba/jobtracker/internal/board/identity"
	"github.com/orba/jobtracker/internal/board/storage"
	"github.com/orba/jobtracker/internal/platform/id"
)

// Store keeps records in process memory partitioned by scope key.
type Store struct {
	mu          sync.Mutex
	scopes      map[string]map[string]domain.Application
	clock       func() time.Time
	idGenerator func() (string, error)
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		scopes:      make(map[string]map[string]domain.Application),
		clock:       time.Now,
		idGenerator: id.NewID,
	}
}

// NewWithDeps creates a store with an injected clock and id generator.
func NewWithDeps(clock func() time.Time, idGenerator func() (string, error)) *Store {
	s := New()
	if clock != nil {
		s.clock = clock
	}
	if idGenerator != nil {
		s.idGenerator = idGenerator
	}
	return s
}

// List implements storage.RecordStore.
func (s *Store) List(ctx context.Context, scope identity.Scope) ([]domain.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.scopes[scope.Key()]
	out := make([]domain.Application, 0, len(records))
	for _, app := range records {
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Create implements storage.RecordStore.
func (s *Store) Create(ctx context.Context, scope identity.Scope, app domain.Application) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	recordID, err := s.idGenerator()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := scope.Key()
	if s.scopes[key] == nil {
		s.scopes[key] = make(map[string]domain.Application)
	}

	app.ID = recordID
	app.OwnerScope = key
	if app.CreatedAt.IsZero() {
		app.CreatedAt = s.clock().UTC()
	}
	s.scopes[key][recordID] = app
	return recordID, nil
}

// Update implements storage.RecordStore.
func (s *Store) Update(ctx context.Context, scope identity.Scope, recordID string, patch domain.Patch) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.scopes[scope.Key()]
	app, ok := records[recordID]
	if !ok {
		return storage.ErrNotFound
	}
	records[recordID] = patch.ApplyTo(app)
	return nil
}

// Delete implements storage.RecordStore.
func (s *Store) Delete(ctx context.Context, scope identity.Scope, recordID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	records := s.scopes[scope.Key()]
	if _, ok := records[recordID]; !ok {
		return storage.ErrNotFound
	}
	delete(records, recordID)
	return nil
}

// Purge discards every record under scope. Used when a guest session ends.
func (s *Store) Purge(scope identity.Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.scopes, scope.Key())
}
