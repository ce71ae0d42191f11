package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"gocv.io/x/gocv"

	"github.com/ayusman/palmgate/internal/pipeline"
)

// StreamHandler serves pipeline artifacts as MJPEG streams and JPEG snapshots.
type StreamHandler struct {
	artifacts *pipeline.Artifacts
	interval  time.Duration
}

// NewStreamHandler creates a StreamHandler polling artifacts every interval.
func NewStreamHandler(a *pipeline.Artifacts, interval time.Duration) *StreamHandler {
	return &StreamHandler{artifacts: a, interval: interval}
}

func artifactParam(w http.ResponseWriter, r *http.Request) (pipeline.Artifact, bool) {
	name := pipeline.Artifact(chi.URLParam(r, "artifact"))
	if !name.Valid() {
		http.Error(w, "Unknown artifact", http.StatusNotFound)
		return "", false
	}
	return name, true
}

// encode returns the JPEG bytes of the latest artifact and its sequence number.
func (h *StreamHandler) encode(name pipeline.Artifact) ([]byte, uint64, bool) {
	m, seq, ok := h.artifacts.Snapshot(name)
	if !ok {
		return nil, 0, false
	}
	defer m.Close()

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, m)
	if err != nil {
		return nil, 0, false
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), seq, true
}

// Snapshot handles GET /api/snapshot/{artifact}.
func (h *StreamHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	name, ok := artifactParam(w, r)
	if !ok {
		return
	}
	data, _, ok := h.encode(name)
	if !ok {
		http.Error(w, "Artifact not available", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

// Stream handles GET /api/stream/{artifact}. A frame is written whenever the
// artifact changes.
func (h *StreamHandler) Stream(w http.ResponseWriter, r *http.Request) {
	name, ok := artifactParam(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "multipart/x-mixed-replace; boundary=frame")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	var last uint64
	for {
		if seq := h.artifacts.Seq(name); seq != last {
			data, seq, ok := h.encode(name)
			if ok {
				last = seq
				fmt.Fprintf(w, "--frame\r\n")
				fmt.Fprintf(w, "Content-Type: image/jpeg\r\n")
				fmt.Fprintf(w, "Content-Length: %d\r\n\r\n", len(data))
				if _, err := w.Write(data); err != nil {
					return
				}
				fmt.Fprintf(w, "\r\n")
				if f, ok := w.(http.Flusher); ok {
					f.Flush()
				}
			}
		}

		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
		}
	}
}
