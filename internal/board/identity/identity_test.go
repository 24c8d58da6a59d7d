package identity

import "testing"

func TestScopeKey(t *testing.T) {
	tests := []struct {
		name  string
		scope Scope
		want  string
	}{
		{"persistent", Scope{Kind: ScopePersistent, ID: "u1"}, "persistent/u1/applications"},
		{"ephemeral", Scope{Kind: ScopeEphemeral, ID: "s9"}, "ephemeral/s9/applications"},
		{"zero", Scope{}, ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.scope.Key(); got != tc.want {
				t.Fatalf("expected key %q, got %q", tc.want, got)
			}
		})
	}
}

func TestScopeFor(t *testing.T) {
	scope, ok := ScopeFor(Authenticated("u1"), "session-1")
	if !ok {
		t.Fatal("expected a scope for an authenticated identity")
	}
	if scope.Kind != ScopePersistent || scope.ID != "u1" {
		t.Fatalf("unexpected scope %+v", scope)
	}

	scope, ok = ScopeFor(Guest(), "session-1")
	if !ok {
		t.Fatal("expected a scope for a guest identity")
	}
	if scope.Kind != ScopeEphemeral || scope.ID != "session-1" {
		t.Fatalf("unexpected scope %+v", scope)
	}

	if _, ok := ScopeFor(None(), "session-1"); ok {
		t.Fatal("expected no scope for identity none")
	}
}

func TestScopeForDistinguishesUsers(t *testing.T) {
	a, _ := ScopeFor(Authenticated("u1"), "s")
	b, _ := ScopeFor(Authenticated("u2"), "s")
	if a == b {
		t.Fatal("different users must map to different scopes")
	}
	if a.Key() == b.Key() {
		t.Fatal("different users must map to different scope keys")
	}
}
