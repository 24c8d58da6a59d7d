// Package identity translates the current user identity into the scope token
// that partitions board records.
package identity

// Kind classifies the current identity.
type Kind string

const (
	// KindNone means no identity is present (logged out).
	KindNone Kind = "none"
	// KindGuest is an anonymous identity whose data lives only for the session.
	KindGuest Kind = "guest"
	// KindAuthenticated is a durable identity backed by a user account.
	KindAuthenticated Kind = "authenticated"
)

// Identity is the current value of the identity context.
type Identity struct {
	Kind   Kind
	UserID string // set only for KindAuthenticated
}

// None returns the logged-out identity.
func None() Identity {
	return Identity{Kind: KindNone}
}

// Guest returns an anonymous identity.
func Guest() Identity {
	return Identity{Kind: KindGuest}
}

// Authenticated returns a durable identity for userID.
func Authenticated(userID string) Identity {
	return Identity{Kind: KindAuthenticated, UserID: userID}
}

// ScopeKind distinguishes durable from session-only scopes.
type ScopeKind string

const (
	// ScopePersistent scopes records to a durable user id.
	ScopePersistent ScopeKind = "persistent"
	// ScopeEphemeral scopes records to a session id; nothing under it is
	// guaranteed to survive the session.
	ScopeEphemeral ScopeKind = "ephemeral"
)

// Scope is the identity-qualified namespace that partitions records.
type Scope struct {
	Kind ScopeKind
	ID   string
}

// IsZero reports whether the scope is unset.
func (s Scope) IsZero() bool {
	return s.Kind == "" && s.ID == ""
}

// Key returns the path-like storage key for this scope.
func (s Scope) Key() string {
	if s.IsZero() {
		return ""
	}
	return string(s.Kind) + "/" + s.ID + "/applications"
}

// ScopeFor derives the storage scope for an identity. Guests are scoped to
// the supplied session id; authenticated users to their user id. The second
// return value is false when no scope applies (identity none).
func ScopeFor(id Identity, sessionID string) (Scope, bool) {
	switch id.Kind {
	case KindAuthenticated:
		return Scope{Kind: ScopePersistent, ID: id.UserID}, true
	case KindGuest:
		return Scope{Kind: ScopeEphemeral, ID: sessionID}, true
	default:
		return Scope{}, false
	}
}
