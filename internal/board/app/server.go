// Package app exposes the board engine over HTTP: session management,
// board reads, and the optimistic application gestures.
package app

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/orba/jobtracker/internal/board/engine"
	"github.com/orba/jobtracker/internal/board/identity"
	"github.com/orba/jobtracker/internal/board/storage"
	"github.com/orba/jobtracker/internal/platform/timeouts"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Records  storage.RecordStore
	Profiles storage.ProfileStore
	Tokens   identity.TokenConfig

	// Purger reclaims ephemeral records when a guest session ends, whether
	// by explicit logout or expiry. Nil skips reclamation.
	Purger storage.Purger

	// Report receives dispatch outcomes from every session's coordinator.
	// Nil falls back to logging failures.
	Report engine.Reporter

	// Clock is injectable for tests; nil means time.Now.
	Clock func() time.Time
}

type handler struct {
	records  storage.RecordStore
	profiles storage.ProfileStore
	tokens   identity.TokenConfig
	purger   storage.Purger
	sessions *sessionStore
	report   engine.Reporter
	clock    func() time.Time
}

func (h *handler) newCoordinator() *engine.Coordinator {
	return engine.NewCoordinator(engine.NewBoard(h.records), h.records, h.report)
}

// purgeGuest reclaims a guest session's ephemeral records. Authenticated
// scopes are durable and stay untouched.
func (h *handler) purgeGuest(ident identity.Identity, sessionID string) {
	if h.purger == nil || ident.Kind != identity.KindGuest {
		return
	}
	scope, ok := identity.ScopeFor(ident, sessionID)
	if !ok {
		return
	}
	h.purger.Purge(scope)
}

// drain waits for every session's in-flight remote dispatches to resolve.
func (h *handler) drain() {
	for _, sess := range h.sessions.all() {
		sess.coordinator.Wait()
	}
}

// NewHandler assembles the HTTP routes over the given dependencies.
func NewHandler(deps Dependencies) http.Handler {
	_, mux := buildHandler(deps)
	return mux
}

func buildHandler(deps Dependencies) (*handler, http.Handler) {
	report := deps.Report
	if report == nil {
		report = logReporter
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}

	h := &handler{
		records:  deps.Records,
		profiles: deps.Profiles,
		tokens:   deps.Tokens,
		purger:   deps.Purger,
		report:   report,
		clock:    clock,
	}
	h.sessions = newSessionStore(func(id string, sess *session) {
		h.purgeGuest(sess.identity, id)
	})

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.HandleFunc("/api/session/guest", h.handleSessionGuest)
	mux.HandleFunc("/api/session/token", h.handleSessionToken)
	mux.HandleFunc("/api/session", h.handleSessionDelete)
	mux.HandleFunc("/api/board", h.handleBoard)
	mux.HandleFunc("/api/applications", h.handleApplications)
	mux.HandleFunc("/api/applications/", h.handleApplicationDetail)
	mux.HandleFunc("/api/profile", h.handleProfile)
	return h, withRequestLog(mux)
}

// logReporter is the default dispatch outcome sink.
func logReporter(o engine.Outcome) {
	if o.Err != nil {
		log.Printf("dispatch %s for %s in %s failed: %v", o.Op, o.RecordID, o.Scope.Key(), o.Err)
		return
	}
	log.Printf("dispatch %s for %s in %s ok", o.Op, o.RecordID, o.Scope.Key())
}

// Server wraps the HTTP server with bounded shutdown.
type Server struct {
	addr       string
	handler    *handler
	httpServer *http.Server
}

// NewServer builds a board server listening on addr.
func NewServer(addr string, deps Dependencies) *Server {
	h, mux := buildHandler(deps)
	return &Server{
		addr:    addr,
		handler: h,
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
	}
}

// ListenAndServe runs the HTTP server until the context ends.
//
// On cancellation, it performs a bounded shutdown so in-flight requests are
// drained before hard close.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	serveErr := make(chan error, 1)
	log.Printf("board listening on %s", s.addr)
	go func() {
		serveErr <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return err
		}
		// Queued remote writes outlive their requests; drain them before
		// the caller closes the stores.
		s.handler.drain()
		return nil
	}
}
