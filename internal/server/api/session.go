package api

import (
	"encoding/json"
	"errors"
	"image"
	"net/http"

	"github.com/ayusman/palmgate/internal/pipeline"
)

// Controller starts and stops capture sessions on behalf of HTTP clients.
type Controller interface {
	// Start launches a session in the background.
	Start() error
	// Stop asks the running session to close.
	Stop()
	// Enroll saves the last packaged candidate as the reference silhouette.
	Enroll() (image.Rectangle, error)
	// SetParams applies and persists new tunables.
	SetParams(p pipeline.Params) error
}

// ErrNoCandidate is returned by Controller.Enroll when no candidate exists yet.
var ErrNoCandidate = errors.New("no candidate silhouette available")

// SessionHandler exposes the capture session: lifecycle, tunables, photo
// mode and enrollment.
type SessionHandler struct {
	scheduler *pipeline.Scheduler
	control   Controller
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(s *pipeline.Scheduler, c Controller) *SessionHandler {
	return &SessionHandler{scheduler: s, control: c}
}

// rect is the wire form of a rectangle.
type rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

func fromRectangle(r image.Rectangle) rect {
	return rect{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

func (r rect) rectangle() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

type statusResponse struct {
	State        string `json:"state"`
	Running      bool   `json:"running"`
	Session      string `json:"session,omitempty"`
	PhotoMode    bool   `json:"photo_mode"`
	HasReference bool   `json:"has_reference"`
}

type photoModeRequest struct {
	Enabled bool `json:"enabled"`
}

type resultResponse struct {
	Bounds   rect    `json:"bounds"`
	Compared bool    `json:"compared"`
	Score    float64 `json:"score"`
	Accepted bool    `json:"accepted"`
}

type resultsResponse struct {
	Cycle   uint64           `json:"cycle"`
	Results []resultResponse `json:"results"`
}

func (h *SessionHandler) status() statusResponse {
	return statusResponse{
		State:        h.scheduler.State().String(),
		Running:      h.scheduler.Running(),
		Session:      h.scheduler.Session(),
		PhotoMode:    h.scheduler.PhotoMode(),
		HasReference: h.scheduler.HasReference(),
	}
}

// Status handles GET /api/session.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status())
}

// Start handles POST /api/session.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	if err := h.control.Start(); err != nil {
		if errors.Is(err, pipeline.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "Session already running")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, h.status())
}

// Stop handles DELETE /api/session.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	if !h.scheduler.Running() {
		writeError(w, http.StatusConflict, "No session running")
		return
	}
	h.control.Stop()
	w.WriteHeader(http.StatusNoContent)
}

// GetParams handles GET /api/params.
func (h *SessionHandler) GetParams(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.scheduler.Params())
}

// UpdateParams handles PUT /api/params. Omitted fields keep their values.
func (h *SessionHandler) UpdateParams(w http.ResponseWriter, r *http.Request) {
	p := h.scheduler.Params()
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if err := h.control.SetParams(p); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, h.scheduler.Params())
}

// SetPhotoMode handles PUT /api/photo/mode.
func (h *SessionHandler) SetPhotoMode(w http.ResponseWriter, r *http.Request) {
	var req photoModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	h.scheduler.SetPhotoMode(req.Enabled)
	writeJSON(w, http.StatusOK, h.status())
}

// TriggerPhoto handles POST /api/photo/trigger with the skin sample rectangle.
func (h *SessionHandler) TriggerPhoto(w http.ResponseWriter, r *http.Request) {
	var req rect
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !h.scheduler.PhotoMode() {
		writeError(w, http.StatusConflict, "Photo mode is off")
		return
	}

	err := h.scheduler.TriggerPhoto(req.rectangle())
	switch {
	case errors.Is(err, pipeline.ErrEmptyRegion):
		writeError(w, http.StatusBadRequest, pipeline.MsgDrawRect)
	case errors.Is(err, pipeline.ErrNotRunning):
		writeError(w, http.StatusConflict, "No session running")
	case err != nil:
		writeError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusAccepted)
	}
}

// Results handles GET /api/results with the last cycle's candidates.
func (h *SessionHandler) Results(w http.ResponseWriter, r *http.Request) {
	results, seq := h.scheduler.Artifacts().Results()
	resp := resultsResponse{Cycle: seq, Results: make([]resultResponse, 0, len(results))}
	for _, res := range results {
		resp.Results = append(resp.Results, resultResponse{
			Bounds:   fromRectangle(res.Bounds),
			Compared: res.Compared,
			Score:    res.Score,
			Accepted: res.Accepted,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Enroll handles POST /api/reference.
func (h *SessionHandler) Enroll(w http.ResponseWriter, r *http.Request) {
	bounds, err := h.control.Enroll()
	if err != nil {
		if errors.Is(err, ErrNoCandidate) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"bounds": fromRectangle(bounds)})
}
