package app

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/orba/jobtracker/internal/board/domain"
	"github.com/orba/jobtracker/internal/board/identity"
	"github.com/orba/jobtracker/internal/board/projection"
	"github.com/orba/jobtracker/internal/board/storage"
	apperrors "github.com/orba/jobtracker/internal/platform/errors"
)

const submissionDateLayout = "2006-01-02"

type applicationPayload struct {
	ID                 string `json:"id"`
	Company            string `json:"company"`
	JobTitle           string `json:"jobTitle"`
	CompanyDescription string `json:"companyDescription,omitempty"`
	URL                string `json:"url,omitempty"`
	SubmissionDate     string `json:"submissionDate,omitempty"`
	Status             string `json:"status"`
	CreatedAt          string `json:"createdAt"`
}

func toPayload(app domain.Application) applicationPayload {
	p := applicationPayload{
		ID:                 app.ID,
		Company:            app.Company,
		JobTitle:           app.JobTitle,
		CompanyDescription: app.CompanyDescription,
		URL:                app.URL,
		Status:             string(app.Status),
		CreatedAt:          app.CreatedAt.UTC().Format(time.RFC3339),
	}
	if app.SubmissionDate != nil {
		p.SubmissionDate = app.SubmissionDate.UTC().Format(submissionDateLayout)
	}
	return p
}

// parseSubmissionDate converts a date string into a timestamp. Empty or
// unparseable dates degrade to unknown rather than failing the request.
func parseSubmissionDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	at, err := time.Parse(submissionDateLayout, value)
	if err != nil {
		return nil
	}
	return &at
}

type draftRequest struct {
	Company            string `json:"company"`
	JobTitle           string `json:"jobTitle"`
	CompanyDescription string `json:"companyDescription"`
	URL                string `json:"url"`
	SubmissionDate     string `json:"submissionDate"`
}

type patchRequest struct {
	Company            *string `json:"company"`
	JobTitle           *string `json:"jobTitle"`
	URL                *string `json:"url"`
	Status             *string `json:"status"`
	CompanyDescription *string `json:"companyDescription"`
}

func (p patchRequest) toDomain() domain.Patch {
	patch := domain.Patch{
		Company:            p.Company,
		JobTitle:           p.JobTitle,
		URL:                p.URL,
		CompanyDescription: p.CompanyDescription,
	}
	if p.Status != nil {
		stage := domain.Stage(*p.Status)
		patch.Status = &stage
	}
	return patch
}

func (h *handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleSessionGuest starts an anonymous session with an empty ephemeral
// board. Guest records live only as long as the session.
func (h *handler) handleSessionGuest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID := randomHex(16)
	coordinator := h.newCoordinator()
	ident := identity.Guest()
	if err := coordinator.SetIdentity(r.Context(), ident, sessionID); err != nil {
		writeJSONError(w, err)
		return
	}

	h.sessions.put(sessionID, &session{
		identity:    ident,
		coordinator: coordinator,
		expiresAt:   h.clock().Add(sessionTTL),
	})
	setSessionCookie(w, sessionID)
	writeJSON(w, http.StatusCreated, map[string]string{"identity": string(identity.KindGuest)})
}

// handleSessionToken exchanges a signed session token for an authenticated
// session and hydrates the user's persistent board.
func (h *handler) handleSessionToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	ident, err := identity.VerifyToken(req.Token, h.tokens)
	if err != nil {
		writeJSONError(w, err)
		return
	}

	sessionID := randomHex(16)
	coordinator := h.newCoordinator()
	if err := coordinator.SetIdentity(r.Context(), ident, sessionID); err != nil {
		writeJSONError(w, err)
		return
	}

	h.sessions.put(sessionID, &session{
		identity:    ident,
		coordinator: coordinator,
		expiresAt:   h.clock().Add(sessionTTL),
	})
	setSessionCookie(w, sessionID)
	writeJSON(w, http.StatusCreated, map[string]string{
		"identity": string(identity.KindAuthenticated),
		"userId":   ident.UserID,
	})
}

// handleSessionDelete logs out: the board is cleared before the session is
// dropped so no records linger in memory.
func (h *handler) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	sessionID, sess := sessionFromRequest(r, h.sessions)
	if sess != nil {
		_ = sess.coordinator.SetIdentity(r.Context(), identity.None(), "")
		h.sessions.delete(sessionID)
		h.purgeGuest(sess.identity, sessionID)
	}
	clearSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// requireSession resolves the request's session or writes a 401.
func (h *handler) requireSession(w http.ResponseWriter, r *http.Request) *session {
	_, sess := sessionFromRequest(r, h.sessions)
	if sess == nil {
		writeJSONError(w, apperrors.New(apperrors.CodeIdentityNoSession, "no active session"))
		return nil
	}
	return sess
}

// handleBoard returns the board grouped into pipeline columns. Reads are
// served from memory; pass refresh=1 to hydrate from the store first.
func (h *handler) handleBoard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	if r.URL.Query().Get("refresh") == "1" {
		if err := sess.coordinator.Rehydrate(r.Context()); err != nil {
			writeJSONError(w, err)
			return
		}
	}

	columns := projection.GroupByStage(sess.coordinator.Board().List())
	payload := make([]map[string]any, 0, len(columns))
	for _, col := range columns {
		cards := make([]applicationPayload, 0, len(col.Cards))
		for _, card := range col.Cards {
			cards = append(cards, toPayload(card))
		}
		payload = append(payload, map[string]any{
			"stage": string(col.Stage),
			"count": col.Count,
			"cards": cards,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"columns": payload})
}

func (h *handler) handleApplications(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	switch r.Method {
	case http.MethodGet:
		records := sess.coordinator.Board().List()
		payload := make([]applicationPayload, 0, len(records))
		for _, app := range records {
			payload = append(payload, toPayload(app))
		}
		writeJSON(w, http.StatusOK, map[string]any{"applications": payload})
	case http.MethodPost:
		var req draftRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		created, err := sess.coordinator.Create(r.Context(), domain.Draft{
			Company:            req.Company,
			JobTitle:           req.JobTitle,
			CompanyDescription: req.CompanyDescription,
			URL:                req.URL,
			SubmissionDate:     parseSubmissionDate(req.SubmissionDate),
		})
		if err != nil {
			writeJSONError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, toPayload(created))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleApplicationDetail routes /api/applications/{id} and its gesture
// subpaths: move, quick-reject, delete-request, delete-confirm, delete-cancel.
func (h *handler) handleApplicationDetail(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/applications/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "application id required", http.StatusBadRequest)
		return
	}
	recordID := parts[0]

	if len(parts) == 1 {
		h.handleApplicationRecord(w, r, sess, recordID)
		return
	}
	if len(parts) != 2 || r.Method != http.MethodPost {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}

	var err error
	switch parts[1] {
	case "move":
		var req struct {
			Status string `json:"status"`
		}
		if decodeErr := json.NewDecoder(r.Body).Decode(&req); decodeErr != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		err = sess.coordinator.MoveStatus(recordID, domain.Stage(req.Status))
	case "quick-reject":
		err = sess.coordinator.QuickReject(recordID)
	case "delete-request":
		err = sess.coordinator.RequestDelete(recordID)
	case "delete-confirm":
		err = sess.coordinator.ConfirmDelete(recordID)
	case "delete-cancel":
		err = sess.coordinator.CancelDelete(recordID)
	default:
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeJSONError(w, err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) handleApplicationRecord(w http.ResponseWriter, r *http.Request, sess *session, recordID string) {
	switch r.Method {
	case http.MethodGet:
		app, ok := sess.coordinator.Board().Get(recordID)
		if !ok {
			writeJSONError(w, storage.ErrNotFound)
			return
		}
		writeJSON(w, http.StatusOK, toPayload(app))
	case http.MethodPatch:
		var req patchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := sess.coordinator.Edit(recordID, req.toDomain()); err != nil {
			writeJSONError(w, err)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleProfile reads and writes the display-name profile of the
// authenticated user. Guests have no profile.
func (h *handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	sess := h.requireSession(w, r)
	if sess == nil {
		return
	}
	if sess.identity.Kind != identity.KindAuthenticated {
		writeJSONError(w, apperrors.New(apperrors.CodePermissionDenied, "profiles require an authenticated identity"))
		return
	}

	switch r.Method {
	case http.MethodGet:
		profile, err := h.profiles.GetProfile(r.Context(), sess.identity.UserID)
		if err != nil {
			writeJSONError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{
			"firstName": profile.FirstName,
			"lastName":  profile.LastName,
		})
	case http.MethodPut:
		var req struct {
			FirstName string `json:"firstName"`
			LastName  string `json:"lastName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		profile := domain.Profile{
			UserID:    sess.identity.UserID,
			FirstName: strings.TrimSpace(req.FirstName),
			LastName:  strings.TrimSpace(req.LastName),
			UpdatedAt: h.clock(),
		}
		if err := h.profiles.PutProfile(r.Context(), profile); err != nil {
			writeJSONError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// writeJSON writes JSON responses with a consistent content type.
func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	_ = encoder.Encode(payload)
}

// writeJSONError maps a domain error to its HTTP status and writes the code
// and message as a JSON body.
func writeJSONError(w http.ResponseWriter, err error) {
	code := apperrors.CodeOf(err)
	message := "internal error"
	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	if code == apperrors.CodeUnknown {
		log.Printf("unhandled error: %v", err)
	}
	writeJSON(w, code.HTTPStatus(), map[string]any{
		"error": map[string]string{
			"code":    string(code),
			"message": message,
		},
	})
}
