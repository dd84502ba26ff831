// Package main provides an alert hook that raises a desktop notification and
// optionally appends each alert event to a log file.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"
)

// Request represents the input from the plugin executor.
type Request struct {
	Event           string          `json:"event"`
	AlertID         string          `json:"alert_id"`
	Timestamp       time.Time       `json:"timestamp"`
	Span            float64         `json:"span"`
	PeakSpan        float64         `json:"peak_span"`
	SafeDistance    float64         `json:"safe_distance"`
	Unit            string          `json:"unit"`
	ThresholdMeters float64         `json:"threshold_meters"`
	Config          json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the hook configuration from plugin.json.
type Config struct {
	Desktop bool   `json:"desktop"`
	LogFile string `json:"log_file"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	title, body, err := message(req)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	if cfg.LogFile != "" {
		if err := appendLog(cfg.LogFile, req); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to write log: %v", err))
			return
		}
	}

	notified := false
	if cfg.Desktop {
		// Desktop notifications are best effort; a headless host still logs.
		notified = notify(title, body) == nil
	}

	data, _ := json.Marshal(map[string]any{"title": title, "body": body, "notified": notified})
	writeSuccessResponse(data)
}

// message builds the notification text for an event.
func message(req Request) (string, string, error) {
	switch req.Event {
	case "alert.started":
		return "Safe distance alert",
			fmt.Sprintf("Body span %.1f exceeds the safe distance of %g %s", req.Span, req.SafeDistance, req.Unit),
			nil
	case "alert.ended":
		return "Safe distance restored",
			fmt.Sprintf("Alert cleared (peak span %.1f)", req.PeakSpan),
			nil
	default:
		return "", "", fmt.Errorf("unknown event: %s", req.Event)
	}
}

// appendLog writes req as one JSON line.
func appendLog(path string, req Request) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()

	req.Config = nil
	return json.NewEncoder(f).Encode(req)
}

// notify shows a desktop notification using the platform's tool.
func notify(title, body string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %q with title %q", body, title)
		cmd = exec.Command("osascript", "-e", script)
	case "linux":
		cmd = exec.Command("notify-send", "--urgency=critical", title, body)
	default:
		return fmt.Errorf("notifications not supported on %s", runtime.GOOS)
	}

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, string(output))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}
