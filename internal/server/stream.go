package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/ayusman/safedistance/internal/app"
)

// streamPoll is how often the stream checks for a new frame.
const streamPoll = 33 * time.Millisecond

// FrameSource provides the most recent annotated frame.
type FrameSource interface {
	Latest() *app.Frame
}

// StreamHandler serves the annotated frames as MJPEG.
type StreamHandler struct {
	source FrameSource
}

// NewStreamHandler creates a new StreamHandler reading from source.
func NewStreamHandler(source FrameSource) *StreamHandler {
	return &StreamHandler{source: source}
}

// ServeHTTP streams MJPEG frames to connected clients. Each published frame
// is sent once; skipped frames carry no image and are not sent.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(streamPoll)
	defer ticker.Stop()

	var lastSeq uint64
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}

		f := h.source.Latest()
		if f == nil || f.Seq == lastSeq || f.JPEG == nil {
			continue
		}
		lastSeq = f.Seq

		fmt.Fprintf(w, "--frame\r\n")
		fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
		fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(f.JPEG))
		if _, err := w.Write(f.JPEG); err != nil {
			return
		}
		fmt.Fprintf(w, "\r\n")

		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
	}
}
