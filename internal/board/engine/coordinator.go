package engine

import (
	"context"
	"sync"
	"time"

	"github.com/orba/jobtracker/internal/board/domain"
	"github.com/orba/jobtracker/internal/board/identity"
	"github.com/orba/jobtracker/internal/board/storage"
	apperrors "github.com/orba/jobtracker/internal/platform/errors"
	"github.com/orba/jobtracker/internal/platform/timeouts"
)

// Op names a remote dispatch kind for outcome reporting.
type Op string

const (
	OpMove        Op = "move"
	OpQuickReject Op = "quick_reject"
	OpEdit        Op = "edit"
	OpDelete      Op = "delete"
	OpCreate      Op = "create"
)

// Outcome describes how a remote dispatch resolved. Failed dispatches are
// reported but never revert the in-memory state.
type Outcome struct {
	Op       Op
	Scope    identity.Scope
	RecordID string
	Err      error
}

// Reporter receives dispatch outcomes, typically for logging and metrics.
type Reporter func(Outcome)

const defaultDispatchTimeout = timeouts.Dispatch

// Coordinator applies user gestures to the board optimistically and
// dispatches the matching remote write in the background. Remote failures are
// surfaced through the Reporter; the local state is the user's truth until
// the next hydration.
type Coordinator struct {
	board  *Board
	store  storage.RecordStore
	report Reporter

	clock           func() time.Time
	dispatchTimeout time.Duration

	mu             sync.Mutex
	pendingDeletes map[string]struct{}

	wg sync.WaitGroup
}

// NewCoordinator wires a coordinator over board and store. A nil reporter
// discards outcomes.
func NewCoordinator(board *Board, store storage.RecordStore, report Reporter) *Coordinator {
	return NewCoordinatorWithDeps(board, store, report, time.Now, defaultDispatchTimeout)
}

// NewCoordinatorWithDeps creates a coordinator with an injected clock and
// dispatch timeout for deterministic tests.
func NewCoordinatorWithDeps(board *Board, store storage.RecordStore, report Reporter, clock func() time.Time, dispatchTimeout time.Duration) *Coordinator {
	if report == nil {
		report = func(Outcome) {}
	}
	if clock == nil {
		clock = time.Now
	}
	if dispatchTimeout <= 0 {
		dispatchTimeout = defaultDispatchTimeout
	}
	return &Coordinator{
		board:           board,
		store:           store,
		report:          report,
		clock:           clock,
		dispatchTimeout: dispatchTimeout,
		pendingDeletes:  make(map[string]struct{}),
	}
}

// Board exposes the underlying state store for read access.
func (c *Coordinator) Board() *Board {
	return c.board
}

// Wait blocks until all in-flight remote dispatches have resolved. Used on
// shutdown so queued writes are not abandoned.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// SetIdentity binds the board to the scope derived from ident. Switching
// scope drops the current records and hydrates the new scope's; pending
// delete confirmations do not survive the switch. Setting the same scope
// again is a no-op. A none identity clears the board.
func (c *Coordinator) SetIdentity(ctx context.Context, ident identity.Identity, sessionID string) error {
	scope, ok := identity.ScopeFor(ident, sessionID)
	if !ok {
		c.board.Clear()
		c.resetPendingDeletes()
		return nil
	}
	if c.board.Scope() == scope {
		return nil
	}
	c.resetPendingDeletes()
	return c.board.Hydrate(ctx, scope)
}

// Rehydrate refreshes the current scope's records from the store. Without a
// bound scope it reports an error instead of fetching.
func (c *Coordinator) Rehydrate(ctx context.Context) error {
	scope := c.board.Scope()
	if scope.IsZero() {
		return apperrors.New(apperrors.CodeUnauthenticated, "no identity bound to board")
	}
	return c.board.Hydrate(ctx, scope)
}

// Create validates the draft, writes it to the store, and only then inserts
// the stored record into the board. Creation is the one non-optimistic
// operation: a record without a store-assigned id has no stable handle for
// later gestures.
func (c *Coordinator) Create(ctx context.Context, draft domain.Draft) (domain.Application, error) {
	scope := c.board.Scope()
	if scope.IsZero() {
		return domain.Application{}, apperrors.New(apperrors.CodeUnauthenticated, "no identity bound to board")
	}

	app, err := domain.NewApplication(draft, scope.Key())
	if err != nil {
		return domain.Application{}, err
	}
	app.CreatedAt = c.clock()

	ctx, span := startStoreSpan(ctx, "board.create", scope)
	id, err := c.store.Create(ctx, scope, app)
	endDispatchSpan(span, err)
	if err != nil {
		return domain.Application{}, err
	}
	app.ID = id

	c.board.Apply(Insert{Record: app})
	return app, nil
}

// MoveStatus transitions a record to any pipeline stage. The board updates
// immediately; the remote write follows in the background.
func (c *Coordinator) MoveStatus(recordID string, to domain.Stage) error {
	if !domain.IsValidStage(to) {
		return domain.ErrInvalidStage
	}
	app, ok := c.board.Get(recordID)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeNotFound, "application not found", map[string]string{"id": recordID})
	}
	if app.Status == to {
		return nil
	}

	patch := domain.Patch{Status: &to}
	c.board.Apply(Update{ID: recordID, Patch: patch})
	c.dispatch(OpMove, recordID, patch)
	return nil
}

// QuickReject collapses a submitted application straight to rejected without
// response. Records past the submitted stage are not eligible.
func (c *Coordinator) QuickReject(recordID string) error {
	app, ok := c.board.Get(recordID)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeNotFound, "application not found", map[string]string{"id": recordID})
	}
	to, ok := domain.QuickRejectTarget(app.Status)
	if !ok {
		return apperrors.WithMetadata(apperrors.CodeApplicationInvalidTransition, "quick reject only applies to submitted applications", map[string]string{
			"id":     recordID,
			"status": string(app.Status),
		})
	}

	patch := domain.Patch{Status: &to}
	c.board.Apply(Update{ID: recordID, Patch: patch})
	c.dispatch(OpQuickReject, recordID, patch)
	return nil
}

// Edit merges the patch into the record optimistically and dispatches it.
func (c *Coordinator) Edit(recordID string, patch domain.Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}
	if _, ok := c.board.Get(recordID); !ok {
		return apperrors.WithMetadata(apperrors.CodeNotFound, "application not found", map[string]string{"id": recordID})
	}

	c.board.Apply(Update{ID: recordID, Patch: patch})
	c.dispatch(OpEdit, recordID, patch)
	return nil
}

// RequestDelete marks a record for deletion. Nothing changes until the
// request is confirmed, and a second request for the same record is an error
// so the confirmation surface stays unambiguous.
func (c *Coordinator) RequestDelete(recordID string) error {
	if _, ok := c.board.Get(recordID); !ok {
		return apperrors.WithMetadata(apperrors.CodeNotFound, "application not found", map[string]string{"id": recordID})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, queued := c.pendingDeletes[recordID]; queued {
		return apperrors.WithMetadata(apperrors.CodeDeleteAlreadyQueued, "delete already awaiting confirmation", map[string]string{"id": recordID})
	}
	c.pendingDeletes[recordID] = struct{}{}
	return nil
}

// CancelDelete withdraws a pending delete request. The record is untouched.
func (c *Coordinator) CancelDelete(recordID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, queued := c.pendingDeletes[recordID]; !queued {
		return apperrors.WithMetadata(apperrors.CodeDeleteNotRequested, "no delete awaiting confirmation", map[string]string{"id": recordID})
	}
	delete(c.pendingDeletes, recordID)
	return nil
}

// ConfirmDelete removes the record from the board and dispatches the remote
// delete. It fails unless a delete request is pending for the record.
func (c *Coordinator) ConfirmDelete(recordID string) error {
	c.mu.Lock()
	if _, queued := c.pendingDeletes[recordID]; !queued {
		c.mu.Unlock()
		return apperrors.WithMetadata(apperrors.CodeDeleteNotRequested, "no delete awaiting confirmation", map[string]string{"id": recordID})
	}
	delete(c.pendingDeletes, recordID)
	c.mu.Unlock()

	if _, ok := c.board.Get(recordID); !ok {
		return apperrors.WithMetadata(apperrors.CodeNotFound, "application not found", map[string]string{"id": recordID})
	}

	c.board.Apply(Remove{ID: recordID})
	c.dispatchDelete(recordID)
	return nil
}

// PendingDelete reports whether a delete request is awaiting confirmation.
func (c *Coordinator) PendingDelete(recordID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, queued := c.pendingDeletes[recordID]
	return queued
}

func (c *Coordinator) resetPendingDeletes() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingDeletes = make(map[string]struct{})
}

// dispatch sends a patch to the store in the background. The scope is
// captured at dispatch time so a later identity switch cannot redirect the
// write. Failures are reported, never reverted.
func (c *Coordinator) dispatch(op Op, recordID string, patch domain.Patch) {
	scope := c.board.Scope()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.dispatchTimeout)
		defer cancel()
		ctx, span := startDispatchSpan(ctx, op, scope, recordID)

		err := c.store.Update(ctx, scope, recordID, patch)
		endDispatchSpan(span, err)
		c.report(Outcome{Op: op, Scope: scope, RecordID: recordID, Err: err})
	}()
}

func (c *Coordinator) dispatchDelete(recordID string) {
	scope := c.board.Scope()
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.dispatchTimeout)
		defer cancel()
		ctx, span := startDispatchSpan(ctx, OpDelete, scope, recordID)

		err := c.store.Delete(ctx, scope, recordID)
		endDispatchSpan(span, err)
		c.report(Outcome{Op: OpDelete, Scope: scope, RecordID: recordID, Err: err})
	}()
}
