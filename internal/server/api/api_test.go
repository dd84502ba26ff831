package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/safedistance/internal/capture"
	"github.com/ayusman/safedistance/internal/settings"
	"github.com/ayusman/safedistance/internal/store"
	"github.com/ayusman/safedistance/internal/units"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestSettingsHandler_Get(t *testing.T) {
	handler := NewSettingsHandler(settings.NewLive(settings.Default()), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/settings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected Content-Type application/json, got %s", ct)
	}

	var response settingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if response.Settings != settings.Default() {
		t.Errorf("expected default settings, got %+v", response.Settings)
	}
	if response.ThresholdMeters != 2 {
		t.Errorf("expected threshold 2m, got %v", response.ThresholdMeters)
	}
	if len(response.Units) != len(units.ValidUnits) {
		t.Errorf("expected units %v, got %v", units.ValidUnits, response.Units)
	}
}

func TestSettingsHandler_Update(t *testing.T) {
	s := newTestStore(t)
	live := settings.NewLive(settings.Default())
	handler := NewSettingsHandler(live, s)

	body := `{"safe_distance":{"value":6.5,"unit":"Feet"},"show_distance":false}`
	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var response settingsResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got := response.ThresholdMeters; got < 1.981 || got > 1.982 {
		t.Errorf("expected threshold ~1.9812m, got %v", got)
	}

	want := settings.Settings{
		SafeDistance: settings.SafeDistance{Value: 6.5, Unit: units.Feet},
		ShowDistance: false,
		VisualizeZ:   true,
		RescaleZ:     true,
	}
	if got := live.Snapshot(); got != want {
		t.Errorf("live settings = %+v, want %+v", got, want)
	}

	stored, err := s.Settings().Load(settings.Default())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if stored != want {
		t.Errorf("stored settings = %+v, want %+v", stored, want)
	}
}

func TestSettingsHandler_UpdateLegacyUnit(t *testing.T) {
	live := settings.NewLive(settings.Default())
	handler := NewSettingsHandler(live, nil)

	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(`{"safe_distance":{"value":3,"unit":"Feat"}}`))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if got := live.Snapshot().SafeDistance.Unit; got != units.Feet {
		t.Errorf("expected legacy unit to be stored as %q, got %q", units.Feet, got)
	}
}

func TestSettingsHandler_UpdateRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `{not json`},
		{"zero distance", `{"safe_distance":{"value":0,"unit":"Meter"}}`},
		{"negative distance", `{"safe_distance":{"value":-1,"unit":"Meter"}}`},
		{"unknown unit", `{"safe_distance":{"value":2,"unit":"Cubits"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			live := settings.NewLive(settings.Default())
			handler := NewSettingsHandler(live, nil)

			req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			if live.Snapshot() != settings.Default() {
				t.Errorf("rejected update changed settings to %+v", live.Snapshot())
			}
		})
	}
}

func TestSettingsHandler_SaveFailureKeepsSettings(t *testing.T) {
	s := newTestStore(t)
	live := settings.NewLive(settings.Default())
	handler := NewSettingsHandler(live, s)

	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	body := `{"safe_distance":{"value":5,"unit":"Meter"}}`
	req := httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, rec.Code)
	}
	if live.Snapshot() != settings.Default() {
		t.Errorf("unsaved update reached the live settings: %+v", live.Snapshot())
	}
}

func TestSettingsHandler_MethodNotAllowed(t *testing.T) {
	handler := NewSettingsHandler(settings.NewLive(settings.Default()), nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/settings", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status %d, got %d", http.StatusMethodNotAllowed, rec.Code)
	}
}

func TestAlertsHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewAlertsHandler(s)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		e := &store.AlertEvent{
			StartedAt:       base.Add(time.Duration(i) * time.Minute),
			PeakSpan:        float64(100 + i),
			SafeDistance:    2,
			Unit:            units.Meter,
			ThresholdMeters: 2,
		}
		if err := s.Alerts().Create(e); err != nil {
			t.Fatalf("failed to create alert: %v", err)
		}
	}

	t.Run("newest first", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
		}

		var response listAlertsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Alerts) != 3 {
			t.Fatalf("expected 3 alerts, got %d", len(response.Alerts))
		}
		if response.Alerts[0].PeakSpan != 102 {
			t.Errorf("expected newest alert first, got peak %v", response.Alerts[0].PeakSpan)
		}
	})

	t.Run("limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/alerts?limit=2", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var response listAlertsResponse
		if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(response.Alerts) != 2 {
			t.Errorf("expected 2 alerts, got %d", len(response.Alerts))
		}
	})

	t.Run("invalid limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/alerts?limit=abc", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
		}
	})
}

func TestAlertsHandler_ListEmpty(t *testing.T) {
	handler := NewAlertsHandler(newTestStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/alerts", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if body := strings.TrimSpace(rec.Body.String()); body != `{"alerts":[]}` {
		t.Errorf("expected empty list, got %s", body)
	}
}

func TestAlertsHandler_Get(t *testing.T) {
	s := newTestStore(t)
	handler := NewAlertsHandler(s)

	e := &store.AlertEvent{PeakSpan: 150, SafeDistance: 2, Unit: units.Meter, ThresholdMeters: 2}
	if err := s.Alerts().Create(e); err != nil {
		t.Fatalf("failed to create alert: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/alerts/"+e.ID, nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	var got store.AlertEvent
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got.ID != e.ID || !got.Active() {
		t.Errorf("unexpected alert %+v", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/alerts/missing", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d", http.StatusNotFound, rec.Code)
	}
}

type fakeSession struct {
	running  bool
	enabled  bool
	rotation int
	facing   capture.Facing
	active   *store.AlertEvent
}

func (f *fakeSession) IsRunning() bool                    { return f.running }
func (f *fakeSession) IsEnabled() bool                    { return f.enabled }
func (f *fakeSession) SetEnabled(enabled bool)            { f.enabled = enabled }
func (f *fakeSession) Orientation() (int, capture.Facing) { return f.rotation, f.facing }
func (f *fakeSession) ActiveAlert() *store.AlertEvent     { return f.active }

func (f *fakeSession) SetFacing(facing capture.Facing) error {
	f.facing = facing
	return nil
}

func (f *fakeSession) SetRotation(rotation int) error {
	switch rotation {
	case 0, 90, 180, 270:
		f.rotation = rotation
		return nil
	}
	return errors.New("invalid rotation")
}

func TestSessionHandler_Get(t *testing.T) {
	session := &fakeSession{running: true, enabled: true, rotation: 90, facing: capture.FacingFront}
	handler := NewSessionHandler(session)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	var response sessionResponse
	if err := json.NewDecoder(rec.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if !response.Running || !response.Enabled || response.Rotation != 90 || response.Facing != capture.FacingFront {
		t.Errorf("unexpected session state %+v", response)
	}
	if response.ActiveAlert != nil {
		t.Errorf("expected no active alert, got %+v", response.ActiveAlert)
	}
}

func TestSessionHandler_Update(t *testing.T) {
	session := &fakeSession{facing: capture.FacingBack}
	handler := NewSessionHandler(session)

	body := `{"enabled":true,"facing":"front","rotation":270}`
	req := httptest.NewRequest(http.MethodPut, "/api/session", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	if !session.enabled || session.facing != capture.FacingFront || session.rotation != 270 {
		t.Errorf("session not updated: %+v", session)
	}
}

func TestSessionHandler_UpdateRejected(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"invalid json", `nope`},
		{"unknown facing", `{"facing":"sideways"}`},
		{"invalid rotation", `{"rotation":45}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session := &fakeSession{facing: capture.FacingBack}
			handler := NewSessionHandler(session)

			req := httptest.NewRequest(http.MethodPut, "/api/session", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
			if session.facing != capture.FacingBack || session.rotation != 0 {
				t.Errorf("rejected update changed session: %+v", session)
			}
		})
	}
}
