package responder

import (
	"net/http"

	"github.com/leeforge/extcore/json"
)

var encodeFailed = []byte("{\"error\":{\"code\":500,\"message\":\"encode failed\"}}")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	raw, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(encodeFailed)
		return
	}
	w.WriteHeader(status)
	_, _ = w.Write(raw)
}

// Write sends a success response with data
func Write(w http.ResponseWriter, status int, data any, opts ...Option) {
	writeJSON(w, status, &Response{Data: data, Meta: *NewMeta(opts...)})
}

// WriteError sends an error response
func WriteError(w http.ResponseWriter, status int, err Error, opts ...Option) {
	writeJSON(w, status, &Response{Error: &err, Meta: *NewMeta(opts...)})
}

func OK(w http.ResponseWriter, data any, opts ...Option) {
	Write(w, http.StatusOK, data, opts...)
}

// NoContent responds with 204 and only the trace header.
func NoContent(w http.ResponseWriter, opts ...Option) {
	if meta := NewMeta(opts...); meta.TraceId != "" {
		w.Header().Set("X-Trace-ID", meta.TraceId)
	}
	w.WriteHeader(http.StatusNoContent)
}

func BadRequest(w http.ResponseWriter, message string, opts ...Option) {
	WriteError(w, http.StatusBadRequest, NewError(ErrCodeBadRequest, message), opts...)
}

func NotFound(w http.ResponseWriter, message string, opts ...Option) {
	WriteError(w, http.StatusNotFound, NewError(ErrCodeNotFound, message), opts...)
}

// BindError responds with 400 for undecodable bodies.
func BindError(w http.ResponseWriter, details any, opts ...Option) {
	WriteError(w, http.StatusBadRequest, NewErrorWithDetails(ErrCodeBindFailed, "", details), opts...)
}

// ValidationError responds with 400 and per-field details.
func ValidationError(w http.ResponseWriter, details any, opts ...Option) {
	WriteError(w, http.StatusBadRequest, NewErrorWithDetails(ErrCodeValidationFailed, "", details), opts...)
}

// Err responds with the status FromError chooses for err.
func Err(w http.ResponseWriter, err error, opts ...Option) {
	status, payload := FromError(err)
	WriteError(w, status, payload, opts...)
}
