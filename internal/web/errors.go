package web

// errors.go writes the JSON status envelope used by every API response.
//
// Failures are logged server-side with the request ID and the coded message
// from core.MapError; clients get the envelope:
//
//	{"message": "...", "status": 500, "error": "...", "code": "DB004"}

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JonMunkholm/intake/internal/core"
	"github.com/JonMunkholm/intake/internal/logging"
)

// envelope is the JSON body of every API response.
type envelope struct {
	Message string   `json:"message"`
	Status  int      `json:"status"`
	Error   string   `json:"error,omitempty"`
	Code    string   `json:"code,omitempty"`
	Fields  []string `json:"fields,omitempty"`
}

// writeEnvelope writes env with the given status. env.Status is filled in.
func writeEnvelope(w http.ResponseWriter, status int, env envelope) {
	env.Status = status
	writeJSONStatus(w, status, env)
}

// respondError logs err and writes an error envelope carrying message.
// The technical error text is included only for server errors.
func respondError(w http.ResponseWriter, r *http.Request, err error, status int, message string) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err,
		"code", userMsg.Code,
	)

	if message == "" {
		message = userMsg.Message
	}
	env := envelope{Message: message, Code: userMsg.Code}
	if status >= http.StatusInternalServerError {
		env.Error = err.Error()
	}
	writeEnvelope(w, status, env)
}

// writeJSONStatus encodes v as JSON with the given status code.
func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
