package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"runtime/debug"
)

// errorResponse is the body of every error reply.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// writeError writes the JSON error shape. detail is only exposed when
// expose is set.
func writeError(w http.ResponseWriter, status int, message string, detail error, expose bool) {
	body := errorResponse{Message: message}
	if expose && detail != nil {
		body.Error = detail.Error()
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// panicError carries a recovered panic value.
type panicError struct{ value any }

func (e panicError) Error() string {
	if err, ok := e.value.(error); ok {
		return err.Error()
	}
	if s, ok := e.value.(string); ok {
		return s
	}
	return "panic"
}

// recoverMiddleware turns a handler panic into a 500 reply.
func recoverMiddleware(logger *slog.Logger, dev bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.Error("http_panic",
					"rid", RequestIDFromContext(r.Context()),
					"path", r.URL.Path,
					"panic", rec,
					"stack", string(debug.Stack()),
				)
				writeError(w, http.StatusInternalServerError, "Something went wrong", panicError{rec}, dev)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
