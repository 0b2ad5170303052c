package utils

import (
	"encoding/json"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
)

// WriteSSE writes payload as one "data: <json>\n\n" frame and flushes it.
func WriteSSE(w http.ResponseWriter, flusher http.Flusher, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return goerr.Wrap(err, "failed to marshal sse payload")
	}

	frame := make([]byte, 0, len(data)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, data...)
	frame = append(frame, "\n\n"...)
	if _, err := w.Write(frame); err != nil {
		return goerr.Wrap(err, "failed to write sse frame")
	}
	flusher.Flush()
	return nil
}

// SetupSSEHeaders prepares w for a Server-Sent Events response.
func SetupSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}
