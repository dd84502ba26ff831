// Package plugin discovers and runs alert hooks: external executables that
// are told when an alert starts or ends.
package plugin

import (
	"encoding/json"
	"slices"
	"time"
)

// Events a hook can subscribe to.
const (
	EventAlertStarted = "alert.started"
	EventAlertEnded   = "alert.ended"
)

// Manifest describes a plugin's metadata and the events it handles.
type Manifest struct {
	Name         string          `json:"name"`
	Version      string          `json:"version"`
	Description  string          `json:"description"`
	Executable   string          `json:"executable"`
	Events       []string        `json:"events"`
	Config       json.RawMessage `json:"config,omitempty"`
	ConfigSchema json.RawMessage `json:"configSchema,omitempty"`
}

// Request is written to the plugin's stdin as JSON.
type Request struct {
	Event           string          `json:"event"`
	AlertID         string          `json:"alert_id"`
	Timestamp       time.Time       `json:"timestamp"`
	Span            float64         `json:"span"`
	PeakSpan        float64         `json:"peak_span"`
	SafeDistance    float64         `json:"safe_distance"`
	Unit            string          `json:"unit"`
	ThresholdMeters float64         `json:"threshold_meters"`
	Config          json.RawMessage `json:"config,omitempty"`
}

// Response represents the response from a plugin execution.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Plugin represents a discovered plugin with its manifest and location.
type Plugin struct {
	Manifest   Manifest
	Path       string
	Executable string
}

// Handles reports whether the plugin subscribed to event.
func (p *Plugin) Handles(event string) bool {
	return slices.Contains(p.Manifest.Events, event)
}
