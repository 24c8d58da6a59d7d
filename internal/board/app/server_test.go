package app

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/orba/jobtracker/internal/board/domain"
	"github.com/orba/jobtracker/internal/board/engine"
	"github.com/orba/jobtracker/internal/board/identity"
	"github.com/orba/jobtracker/internal/board/storage"
	"github.com/orba/jobtracker/internal/board/storage/memory"
)

type fakeProfileStore struct {
	mu       sync.Mutex
	profiles map[string]domain.Profile
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[string]domain.Profile)}
}

func (f *fakeProfileStore) PutProfile(ctx context.Context, profile domain.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[profile.UserID] = profile
	return nil
}

func (f *fakeProfileStore) GetProfile(ctx context.Context, userID string) (domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.profiles[userID]
	if !ok {
		return domain.Profile{}, storage.ErrNotFound
	}
	return profile, nil
}

type testServer struct {
	server *httptest.Server
	client *http.Client
}

func newTestServer(t *testing.T, tokens identity.TokenConfig) *testServer {
	t.Helper()
	handler := NewHandler(Dependencies{
		Records:  memory.New(),
		Profiles: newFakeProfileStore(),
		Tokens:   tokens,
		Report:   func(engine.Outcome) {},
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jar := newCookieJar()
	return &testServer{
		server: server,
		client: &http.Client{Jar: jar},
	}
}

// newCookieJar returns a jar that keeps session cookies across requests.
func newCookieJar() http.CookieJar {
	jar, _ := cookiejar.New(nil)
	return jar
}

func (ts *testServer) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	resp, err := ts.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func (ts *testServer) startGuest(t *testing.T) {
	t.Helper()
	resp, _ := ts.do(t, http.MethodPost, "/api/session/guest", nil)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("guest session status = %d, want 201", resp.StatusCode)
	}
}

func (ts *testServer) createApplication(t *testing.T, company, jobTitle string) string {
	t.Helper()
	resp, body := ts.do(t, http.MethodPost, "/api/applications", map[string]string{
		"company":  company,
		"jobTitle": jobTitle,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d, body %s", resp.StatusCode, body)
	}
	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.Status != string(domain.StageSubmitted) {
		t.Fatalf("created status = %q, want %q", created.Status, domain.StageSubmitted)
	}
	return created.ID
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, identity.TokenConfig{})
	resp, body := ts.do(t, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestRequestsWithoutSessionAreRejected(t *testing.T) {
	ts := newTestServer(t, identity.TokenConfig{})
	for _, path := range []string{"/api/board", "/api/applications", "/api/profile"} {
		resp, _ := ts.do(t, http.MethodGet, path, nil)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without session = %d, want 401", path, resp.StatusCode)
		}
	}
}

func TestGuestBoardLifecycle(t *testing.T) {
	ts := newTestServer(t, identity.TokenConfig{})
	ts.startGuest(t)

	id := ts.createApplication(t, "Acme", "Engineer")

	resp, body := ts.do(t, http.MethodGet, "/api/board", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("board status = %d", resp.StatusCode)
	}
	var board struct {
		Columns []struct {
			Stage string `json:"stage"`
			Count int    `json:"count"`
		} `json:"columns"`
	}
	if err := json.Unmarshal(body, &board); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if len(board.Columns) != len(domain.Stages()) {
		t.Fatalf("board has %d columns, want %d", len(board.Columns), len(domain.Stages()))
	}
	if board.Columns[0].Stage != string(domain.StageSubmitted) || board.Columns[0].Count != 1 {
		t.Errorf("submitted column = %+v, want 1 card", board.Columns[0])
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/applications/"+id+"/move", map[string]string{
		"status": string(domain.StageTechnicalInterview),
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("move status = %d, want 202", resp.StatusCode)
	}

	resp, body = ts.do(t, http.MethodGet, "/api/applications/"+id, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get application status = %d", resp.StatusCode)
	}
	var record struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(body, &record); err != nil {
		t.Fatalf("decode application: %v", err)
	}
	if record.Status != string(domain.StageTechnicalInterview) {
		t.Errorf("status after move = %q, want %q", record.Status, domain.StageTechnicalInterview)
	}
}

func TestQuickRejectOverHTTP(t *testing.T) {
	ts := newTestServer(t, identity.TokenConfig{})
	ts.startGuest(t)

	id := ts.createApplication(t, "Acme", "Engineer")
	resp, _ := ts.do(t, http.MethodPost, "/api/applications/"+id+"/quick-reject", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("quick-reject status = %d, want 202", resp.StatusCode)
	}

	// Already rejected; a second quick reject conflicts.
	resp, body := ts.do(t, http.MethodPost, "/api/applications/"+id+"/quick-reject", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("repeat quick-reject status = %d, body %s, want 409", resp.StatusCode, body)
	}
}

func TestEditOverHTTP(t *testing.T) {
	ts := newTestServer(t, identity.TokenConfig{})
	ts.startGuest(t)

	id := ts.createApplication(t, "Acme", "Engineer")
	resp, _ := ts.do(t, http.MethodPatch, "/api/applications/"+id, map[string]string{
		"jobTitle": "Staff Engineer",
	})
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("edit status = %d, want 202", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodPatch, "/api/applications/"+id, map[string]string{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty edit status = %d, want 400", resp.StatusCode)
	}
}

func TestTwoPhaseDeleteOverHTTP(t *testing.T) {
	ts := newTestServer(t, identity.TokenConfig{})
	ts.startGuest(t)

	id := ts.createApplication(t, "Acme", "Engineer")

	resp, _ := ts.do(t, http.MethodPost, "/api/applications/"+id+"/delete-confirm", nil)
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("confirm before request status = %d, want 409", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodPost, "/api/applications/"+id+"/delete-request", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("delete-request status = %d, want 202", resp.StatusCode)
	}
	resp, _ = ts.do(t, http.MethodPost, "/api/applications/"+id+"/delete-confirm", nil)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("delete-confirm status = %d, want 202", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodGet, "/api/applications/"+id, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestTokenSessionAndProfile(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	now := time.Now()
	tokens := identity.TokenConfig{
		Issuer:   "https://auth.orba.test",
		Audience: "jobtracker-board",
		Key:      pub,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodEdDSA, jwt.RegisteredClaims{
		Issuer:    "https://auth.orba.test",
		Audience:  jwt.ClaimStrings{"jobtracker-board"},
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
	}).SignedString(priv)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	ts := newTestServer(t, tokens)
	resp, body := ts.do(t, http.MethodPost, "/api/session/token", map[string]string{"token": signed})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("token session status = %d, body %s", resp.StatusCode, body)
	}
	var created struct {
		Identity string `json:"identity"`
		UserID   string `json:"userId"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode session response: %v", err)
	}
	if created.Identity != string(identity.KindAuthenticated) || created.UserID != "user-1" {
		t.Fatalf("session response = %+v, want authenticated user-1", created)
	}

	resp, _ = ts.do(t, http.MethodGet, "/api/profile", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("profile before put status = %d, want 404", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodPut, "/api/profile", map[string]string{
		"firstName": "Ada",
		"lastName":  "Lovelace",
	})
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("put profile status = %d, want 204", resp.StatusCode)
	}

	resp, body = ts.do(t, http.MethodGet, "/api/profile", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get profile status = %d", resp.StatusCode)
	}
	var profile struct {
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	}
	if err := json.Unmarshal(body, &profile); err != nil {
		t.Fatalf("decode profile: %v", err)
	}
	if profile.FirstName != "Ada" || profile.LastName != "Lovelace" {
		t.Errorf("profile = %+v, want Ada Lovelace", profile)
	}
}

func TestTokenSessionRejectsInvalidToken(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key pair: %v", err)
	}
	ts := newTestServer(t, identity.TokenConfig{
		Issuer:   "https://auth.orba.test",
		Audience: "jobtracker-board",
		Key:      pub,
	})

	resp, _ := ts.do(t, http.MethodPost, "/api/session/token", map[string]string{"token": "not-a-token"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("invalid token status = %d, want 401", resp.StatusCode)
	}
}

func TestGuestProfileIsForbidden(t *testing.T) {
	ts := newTestServer(t, identity.TokenConfig{})
	ts.startGuest(t)

	resp, _ := ts.do(t, http.MethodGet, "/api/profile", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("guest profile status = %d, want 403", resp.StatusCode)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	ts := newTestServer(t, identity.TokenConfig{})
	ts.startGuest(t)
	ts.createApplication(t, "Acme", "Engineer")

	resp, _ := ts.do(t, http.MethodDelete, "/api/session", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", resp.StatusCode)
	}

	resp, _ = ts.do(t, http.MethodGet, "/api/board", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("board after logout status = %d, want 401", resp.StatusCode)
	}
}

// guestScope derives the ephemeral scope bound to the client's session cookie.
func (ts *testServer) guestScope(t *testing.T) identity.Scope {
	t.Helper()
	serverURL, err := url.Parse(ts.server.URL)
	if err != nil {
		t.Fatalf("parse server url: %v", err)
	}
	for _, cookie := range ts.client.Jar.Cookies(serverURL) {
		if cookie.Name == sessionCookieName {
			scope, _ := identity.ScopeFor(identity.Guest(), cookie.Value)
			return scope
		}
	}
	t.Fatal("no session cookie in jar")
	return identity.Scope{}
}

func TestLogoutPurgesGuestRecords(t *testing.T) {
	store := memory.New()
	handler := NewHandler(Dependencies{
		Records:  store,
		Profiles: newFakeProfileStore(),
		Purger:   store,
		Report:   func(engine.Outcome) {},
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	ts := &testServer{server: server, client: &http.Client{Jar: newCookieJar()}}
	ts.startGuest(t)
	ts.createApplication(t, "Acme", "Engineer")
	scope := ts.guestScope(t)

	records, err := store.List(context.Background(), scope)
	if err != nil || len(records) != 1 {
		t.Fatalf("List() before logout = %d records, err %v, want 1", len(records), err)
	}

	resp, _ := ts.do(t, http.MethodDelete, "/api/session", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("logout status = %d, want 204", resp.StatusCode)
	}

	records, err = store.List(context.Background(), scope)
	if err != nil {
		t.Fatalf("List() after logout: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("guest records after logout = %d, want 0", len(records))
	}
}

func TestGuestScopesAreIsolated(t *testing.T) {
	handler := NewHandler(Dependencies{
		Records:  memory.New(),
		Profiles: newFakeProfileStore(),
		Report:   func(engine.Outcome) {},
	})
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	first := &testServer{server: server, client: &http.Client{Jar: newCookieJar()}}
	second := &testServer{server: server, client: &http.Client{Jar: newCookieJar()}}

	first.startGuest(t)
	second.startGuest(t)
	first.createApplication(t, "Acme", "Engineer")

	resp, body := second.do(t, http.MethodGet, "/api/applications", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("applications status = %d", resp.StatusCode)
	}
	var list struct {
		Applications []applicationPayload `json:"applications"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode applications: %v", err)
	}
	if len(list.Applications) != 0 {
		t.Errorf("second guest sees %d applications, want 0", len(list.Applications))
	}
}
