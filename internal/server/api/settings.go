package api

import (
	"encoding/json"
	"net/http"

	"github.com/ayusman/safedistance/internal/alert"
	"github.com/ayusman/safedistance/internal/monitoring"
	"github.com/ayusman/safedistance/internal/settings"
	"github.com/ayusman/safedistance/internal/store"
	"github.com/ayusman/safedistance/internal/units"
)

// SettingsHandler reads and updates the live pipeline settings.
// Accepted updates take effect on the next processed frame.
type SettingsHandler struct {
	live  *settings.Live
	store *store.Store
}

// NewSettingsHandler creates a SettingsHandler. The store is optional; when
// set, accepted updates are persisted.
func NewSettingsHandler(live *settings.Live, s *store.Store) *SettingsHandler {
	return &SettingsHandler{live: live, store: s}
}

type settingsResponse struct {
	Settings        settings.Settings `json:"settings"`
	ThresholdMeters float64           `json:"threshold_meters"`
	Units           []string          `json:"units"`
}

// ServeHTTP handles GET and PUT on /api/settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut, http.MethodPatch:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.response(h.live.Snapshot()))
}

// update applies the request body over the current settings, so fields
// left out keep their value.
func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	next := h.live.Snapshot()
	if err := json.NewDecoder(r.Body).Decode(&next); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	unit, err := units.Parse(next.SafeDistance.Unit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	next.SafeDistance.Unit = unit

	if err := next.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// A failed save leaves the live settings unchanged.
	if h.store != nil {
		if err := h.store.Settings().Save(next); err != nil {
			monitoring.Logf("Error saving settings: %v", err)
			writeError(w, http.StatusInternalServerError, "Failed to save settings")
			return
		}
	}

	if err := h.live.Update(next); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, h.response(next))
}

func (h *SettingsHandler) response(s settings.Settings) settingsResponse {
	threshold, _ := alert.Threshold(s.SafeDistance)
	return settingsResponse{
		Settings:        s,
		ThresholdMeters: threshold,
		Units:           units.ValidUnits,
	}
}
