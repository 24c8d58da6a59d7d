package app

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"sync"
	"time"

	"github.com/orba/jobtracker/internal/board/engine"
	"github.com/orba/jobtracker/internal/board/identity"
)

const sessionCookieName = "orba_session"

const sessionTTL = 24 * time.Hour

// session binds a browser session to an identity and its board coordinator.
// Each session owns its own board so scopes never share in-memory state.
type session struct {
	identity    identity.Identity
	coordinator *engine.Coordinator
	expiresAt   time.Time
}

// sessionStore is a thread-safe in-memory session store. Expired sessions
// are evicted lazily on lookup and swept whenever every session is listed;
// the evict callback runs once per expired session, outside the store lock.
type sessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*session
	evict    func(id string, sess *session)
}

// newSessionStore creates an empty session store. evict may be nil.
func newSessionStore(evict func(id string, sess *session)) *sessionStore {
	if evict == nil {
		evict = func(string, *session) {}
	}
	return &sessionStore{sessions: make(map[string]*session), evict: evict}
}

// put stores a session under a pre-generated id.
func (s *sessionStore) put(id string, sess *session) {
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
}

// get returns a session by ID, or nil if missing or expired.
func (s *sessionStore) get(id string) *session {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	if time.Now().After(sess.expiresAt) {
		s.expire(id)
		return nil
	}
	return sess
}

// expire removes a session that passed its deadline and notifies the evict
// callback. Re-checks under the write lock so concurrent callers evict once.
func (s *sessionStore) expire(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if ok {
		s.evict(id, sess)
	}
}

// all returns every live session, sweeping out expired ones as it goes.
func (s *sessionStore) all() []*session {
	now := time.Now()
	s.mu.RLock()
	out := make([]*session, 0, len(s.sessions))
	var expired []string
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			expired = append(expired, id)
			continue
		}
		out = append(out, sess)
	}
	s.mu.RUnlock()
	for _, id := range expired {
		s.expire(id)
	}
	return out
}

// delete removes a session by ID.
func (s *sessionStore) delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// setSessionCookie writes the session cookie to the response.
func setSessionCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearSessionCookie expires the session cookie.
func clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// sessionFromRequest reads the session cookie and looks up the session.
func sessionFromRequest(r *http.Request, store *sessionStore) (string, *session) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", nil
	}
	return cookie.Value, store.get(cookie.Value)
}

// randomHex generates a cryptographically random hex string of n bytes.
func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
