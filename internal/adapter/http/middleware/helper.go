package middleware

import (
	"encoding/json"
	"net/http"
)

type envelope map[string]any

// errorResponse writes a JSON error. The request id, once assigned, is echoed
// in the body so clients can quote it.
func errorResponse(w http.ResponseWriter, status int, message any) {
	env := envelope{"error": message}
	if id := w.Header().Get(HeaderRequestID); id != "" {
		env["request_id"] = id
	}

	js, err := json.Marshal(env)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(js)
}
