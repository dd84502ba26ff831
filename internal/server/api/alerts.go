package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/safedistance/internal/store"
)

// DefaultAlertLimit is the page size used when no limit is given.
const DefaultAlertLimit = 50

// AlertsHandler serves the recorded alert history.
type AlertsHandler struct {
	store *store.Store
}

// NewAlertsHandler creates a new AlertsHandler with the given store.
func NewAlertsHandler(s *store.Store) *AlertsHandler {
	return &AlertsHandler{store: s}
}

type listAlertsResponse struct {
	Alerts []*store.AlertEvent `json:"alerts"`
}

// ServeHTTP routes /api/alerts and /api/alerts/{id}.
func (h *AlertsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	id := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/api/alerts"), "/")
	if id == "" {
		h.list(w, r)
		return
	}
	h.get(w, r, id)
}

// list handles GET /api/alerts?limit=N, newest first.
func (h *AlertsHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultAlertLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := h.store.Alerts().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alerts")
		return
	}
	if events == nil {
		events = []*store.AlertEvent{}
	}

	writeJSON(w, http.StatusOK, listAlertsResponse{Alerts: events})
}

func (h *AlertsHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	e, err := h.store.Alerts().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Alert not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get alert")
		return
	}
	writeJSON(w, http.StatusOK, e)
}
