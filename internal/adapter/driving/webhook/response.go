package webhook

import (
	"encoding/json"
	"net/http"

	"github.com/ericfisherdev/prbridge/internal/application"
)

// writeJSON marshals v to JSON and writes it to the response with the given
// status code. If marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status     string                          `json:"status"`
	QueueDepth int                             `json:"queue_depth"`
	Jobs       map[string]application.JobStats `json:"jobs"`
	Time       string                          `json:"time"`
}

// commandResponse is the JSON body returned to a slash command invocation.
type commandResponse struct {
	ResponseType string `json:"response_type"`
	Text         string `json:"text"`
}
