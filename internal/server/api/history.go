package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/palmgate/internal/store"
)

const defaultHistoryLimit = 50

// HistoryHandler serves recorded sessions and attempts.
type HistoryHandler struct {
	store *store.Store
}

// NewHistoryHandler creates a HistoryHandler backed by s.
func NewHistoryHandler(s *store.Store) *HistoryHandler {
	return &HistoryHandler{store: s}
}

type sessionResponse struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	PhotoMode bool   `json:"photo_mode"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Error     string `json:"error,omitempty"`
}

type attemptResponse struct {
	ID        string  `json:"id"`
	SessionID string  `json:"session_id"`
	Score     float64 `json:"score"`
	Accepted  bool    `json:"accepted"`
	Bounds    rect    `json:"bounds"`
	CreatedAt string  `json:"created_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

type sessionDetailResponse struct {
	sessionResponse
	Stats    store.AttemptStats `json:"stats"`
	Attempts []attemptResponse  `json:"attempts"`
}

type listAttemptsResponse struct {
	Attempts []attemptResponse `json:"attempts"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	resp := sessionResponse{
		ID:        s.ID,
		Source:    s.Source,
		PhotoMode: s.PhotoMode,
		StartedAt: formatTime(s.StartedAt),
		Error:     s.Error,
	}
	if s.EndedAt != nil {
		resp.EndedAt = formatTime(*s.EndedAt)
	}
	return resp
}

func toAttemptResponses(attempts []*store.Attempt) []attemptResponse {
	out := make([]attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, attemptResponse{
			ID:        a.ID,
			SessionID: a.SessionID,
			Score:     a.Score,
			Accepted:  a.Accepted,
			Bounds:    fromRectangle(a.Bounds),
			CreatedAt: formatTime(a.CreatedAt),
		})
	}
	return out
}

// ListSessions handles GET /api/sessions.
func (h *HistoryHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.Sessions().List(queryLimit(r, defaultHistoryLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	resp := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		resp.Sessions = append(resp.Sessions, toSessionResponse(s))
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSession handles GET /api/sessions/{id}.
func (h *HistoryHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	sess, err := h.store.Sessions().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return
	}

	attempts, err := h.store.Attempts().ListBySession(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attempts")
		return
	}
	stats, err := h.store.Attempts().Stats(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to summarize attempts")
		return
	}

	writeJSON(w, http.StatusOK, sessionDetailResponse{
		sessionResponse: toSessionResponse(sess),
		Stats:           stats,
		Attempts:        toAttemptResponses(attempts),
	})
}

// ListAttempts handles GET /api/attempts.
func (h *HistoryHandler) ListAttempts(w http.ResponseWriter, r *http.Request) {
	attempts, err := h.store.Attempts().Recent(queryLimit(r, defaultHistoryLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list attempts")
		return
	}
	writeJSON(w, http.StatusOK, listAttemptsResponse{Attempts: toAttemptResponses(attempts)})
}
