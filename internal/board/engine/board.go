// Package engine owns the in-memory board state for one identity and
// coordinates optimistic mutations against the remote record store.
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/orba/jobtracker/internal/board/domain"
	"github.com/orba/jobtracker/internal/board/identity"
	"github.com/orba/jobtracker/internal/board/storage"
)

// Mutation is a structural change to the in-memory record set. Applying a
// mutation never touches the network.
type Mutation interface {
	isMutation()
}

// Insert adds a record to the set.
type Insert struct {
	Record domain.Application
}

// Update merges a patch into an existing record. Unknown ids are ignored so a
// late gesture cannot resurrect a record hydration already dropped.
type Update struct {
	ID    string
	Patch domain.Patch
}

// Remove drops a record from the set.
type Remove struct {
	ID string
}

func (Insert) isMutation() {}
func (Update) isMutation() {}
func (Remove) isMutation() {}

// Board is the single source of truth for what the current identity's board
// looks like right now. All structural changes flow through Apply.
type Board struct {
	mu         sync.Mutex
	scope      identity.Scope
	records    map[string]domain.Application
	generation uint64
	fetch      storage.RecordStore
}

// NewBoard creates an empty board that hydrates through fetch.
func NewBoard(fetch storage.RecordStore) *Board {
	return &Board{
		records: make(map[string]domain.Application),
		fetch:   fetch,
	}
}

// Scope returns the identity scope the board is currently bound to.
func (b *Board) Scope() identity.Scope {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.scope
}

// List returns a snapshot of the current record set, ordered by creation time
// for deterministic iteration. Reading never triggers I/O.
func (b *Board) List() []domain.Application {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]domain.Application, 0, len(b.records))
	for _, app := range b.records {
		out = append(out, app)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Get returns the record with the given id, if present.
func (b *Board) Get(recordID string) (domain.Application, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	app, ok := b.records[recordID]
	return app, ok
}

// Apply performs a structural change on the in-memory set only. It is the
// single mutation point so every reader observes consistent state.
func (b *Board) Apply(m Mutation) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch mut := m.(type) {
	case Insert:
		b.records[mut.Record.ID] = mut.Record
	case Update:
		if app, ok := b.records[mut.ID]; ok {
			b.records[mut.ID] = mut.Patch.ApplyTo(app)
		}
	case Remove:
		delete(b.records, mut.ID)
	}
}

// Hydrate replaces the record set with a fresh fetch for scope.
//
// Scope changes drop the old records immediately so no records from the
// previous identity are ever visible under the new one. If the fetch fails
// while the scope is unchanged, the previous snapshot is kept: a failed
// refresh degrades to stale data, never to an empty board.
//
// Concurrent hydrations follow last-scope-wins: a slow fetch for an older
// scope that resolves after a newer hydration must not overwrite it.
func (b *Board) Hydrate(ctx context.Context, scope identity.Scope) error {
	if scope.IsZero() {
		return fmt.Errorf("scope is required")
	}

	b.mu.Lock()
	b.generation++
	generation := b.generation
	if b.scope != scope {
		b.scope = scope
		b.records = make(map[string]domain.Application)
	}
	b.mu.Unlock()

	ctx, span := startStoreSpan(ctx, "board.hydrate", scope)
	records, err := b.fetch.List(ctx, scope)
	endDispatchSpan(span, err)
	if err != nil {
		return fmt.Errorf("hydrate %s: %w", scope.Key(), err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.generation != generation {
		// A newer hydration or reset superseded this fetch.
		return nil
	}
	fresh := make(map[string]domain.Application, len(records))
	for _, app := range records {
		fresh[app.ID] = app
	}
	b.records = fresh
	return nil
}

// Clear drops the record set and unbinds the scope. Used when the identity
// becomes none.
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.generation++
	b.scope = identity.Scope{}
	b.records = make(map[string]domain.Application)
}
