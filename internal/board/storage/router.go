package storage

import (
	"context"
	"fmt"

	"github.com/orba/jobtracker/internal/board/domain"
	"github.com/orba/jobtracker/internal/board/identity"
)

// Router directs record operations to a backing store by scope kind:
// persistent scopes to durable storage, ephemeral scopes to session-local
// storage.
type Router struct {
	Persistent RecordStore
	Ephemeral  RecordStore
}

func (r Router) storeFor(scope identity.Scope) (RecordStore, error) {
	switch scope.Kind {
	case identity.ScopePersistent:
		if r.Persistent == nil {
			return nil, fmt.Errorf("persistent store is not configured")
		}
		return r.Persistent, nil
	case identity.ScopeEphemeral:
		if r.Ephemeral == nil {
			return nil, fmt.Errorf("ephemeral store is not configured")
		}
		return r.Ephemeral, nil
	default:
		return nil, fmt.Errorf("no store for scope kind %q", scope.Kind)
	}
}

// List implements RecordStore.
func (r Router) List(ctx context.Context, scope identity.Scope) ([]domain.Application, error) {
	store, err := r.storeFor(scope)
	if err != nil {
		return nil, err
	}
	return store.List(ctx, scope)
}

// Create implements RecordStore.
func (r Router) Create(ctx context.Context, scope identity.Scope, app domain.Application) (string, error) {
	store, err := r.storeFor(scope)
	if err != nil {
		return "", err
	}
	return store.Create(ctx, scope, app)
}

// Update implements RecordStore.
func (r Router) Update(ctx context.Context, scope identity.Scope, id string, patch domain.Patch) error {
	store, err := r.storeFor(scope)
	if err != nil {
		return err
	}
	return store.Update(ctx, scope, id, patch)
}

// Delete implements RecordStore.
func (r Router) Delete(ctx context.Context, scope identity.Scope, id string) error {
	store, err := r.storeFor(scope)
	if err != nil {
		return err
	}
	return store.Delete(ctx, scope, id)
}
