package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/safedistance/internal/capture"
	"github.com/ayusman/safedistance/internal/store"
)

// Session is the detection session controlled through the API.
type Session interface {
	IsRunning() bool
	IsEnabled() bool
	SetEnabled(enabled bool)
	Orientation() (rotation int, facing capture.Facing)
	SetFacing(f capture.Facing) error
	SetRotation(rotation int) error
	ActiveAlert() *store.AlertEvent
}

// SessionHandler exposes the session state and camera controls.
type SessionHandler struct {
	session Session
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(s Session) *SessionHandler {
	return &SessionHandler{session: s}
}

type sessionResponse struct {
	Running     bool              `json:"running"`
	Enabled     bool              `json:"enabled"`
	Rotation    int               `json:"rotation"`
	Facing      capture.Facing    `json:"facing"`
	ActiveAlert *store.AlertEvent `json:"active_alert"`
}

type updateSessionRequest struct {
	Enabled  *bool   `json:"enabled"`
	Facing   *string `json:"facing"`
	Rotation *int    `json:"rotation"`
}

// ServeHTTP handles GET and PUT on /api/session.
func (h *SessionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.state())
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SessionHandler) update(w http.ResponseWriter, r *http.Request) {
	var req updateSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var facing capture.Facing
	if req.Facing != nil {
		f, err := capture.ParseFacing(*req.Facing)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		facing = f
	}
	if req.Rotation != nil {
		if err := h.session.SetRotation(*req.Rotation); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	if facing != "" {
		if err := h.session.SetFacing(facing); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}
	if req.Enabled != nil {
		h.session.SetEnabled(*req.Enabled)
	}

	writeJSON(w, http.StatusOK, h.state())
}

func (h *SessionHandler) state() sessionResponse {
	rotation, facing := h.session.Orientation()
	return sessionResponse{
		Running:     h.session.IsRunning(),
		Enabled:     h.session.IsEnabled(),
		Rotation:    rotation,
		Facing:      facing,
		ActiveAlert: h.session.ActiveAlert(),
	}
}
