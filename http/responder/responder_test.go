package responder

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	perrors "github.com/leeforge/extcore/errors"
)

func decode(t *testing.T, rr *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return resp
}

func TestWrite(t *testing.T) {
	rr := httptest.NewRecorder()

	Write(rr, http.StatusCreated, "hello", WithTraceID("trace"), WithTook(42))

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d", http.StatusCreated, rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected content-type application/json, got %q", ct)
	}

	resp := decode(t, rr)
	if data, ok := resp.Data.(string); !ok || data != "hello" {
		t.Fatalf("unexpected data payload: %+v", resp.Data)
	}
	if resp.Error != nil {
		t.Fatalf("expected nil error, got %+v", resp.Error)
	}
	if resp.Meta.TraceId != "trace" || resp.Meta.Took != 42 {
		t.Fatalf("unexpected meta: %+v", resp.Meta)
	}
}

func TestWriteError(t *testing.T) {
	rr := httptest.NewRecorder()

	BadRequest(rr, "", WithTraceID("trace-err"))

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rr.Code)
	}
	resp := decode(t, rr)
	if resp.Error == nil || resp.Error.Code != ErrCodeBadRequest || resp.Error.Message != "Bad Request" {
		t.Fatalf("unexpected error payload: %+v", resp.Error)
	}
	if resp.Meta.TraceId != "trace-err" {
		t.Fatalf("unexpected meta: %+v", resp.Meta)
	}
}

func TestWriteFallbackOnMarshalError(t *testing.T) {
	rr := httptest.NewRecorder()

	OK(rr, map[string]any{"unsupported": make(chan int)})

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected fallback status 500, got %d", rr.Code)
	}
	if body := rr.Body.String(); body != string(encodeFailed) {
		t.Fatalf("unexpected fallback body: %s", body)
	}
}

func TestNoContent(t *testing.T) {
	rr := httptest.NewRecorder()

	NoContent(rr, WithTraceID("t-1"))

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rr.Code)
	}
	if rr.Header().Get("X-Trace-ID") != "t-1" {
		t.Fatalf("missing trace header")
	}
	if rr.Body.Len() != 0 {
		t.Fatalf("expected empty body, got %q", rr.Body.String())
	}
}

func TestValidationError(t *testing.T) {
	rr := httptest.NewRecorder()

	ValidationError(rr, map[string]string{"rules": "is required"})

	resp := decode(t, rr)
	if rr.Code != http.StatusBadRequest || resp.Error.Code != ErrCodeValidationFailed {
		t.Fatalf("unexpected response: %d %+v", rr.Code, resp.Error)
	}
	details, ok := resp.Error.Details.(map[string]any)
	if !ok || details["rules"] != "is required" {
		t.Fatalf("unexpected details: %+v", resp.Error.Details)
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   int
	}{
		{"not found", perrors.New(perrors.ErrorTypeNotFound, "p", "missing"), http.StatusNotFound, ErrCodeNotFound},
		{"collision", perrors.New(perrors.ErrorTypeNameCollision, "p", "dup"), http.StatusConflict, ErrCodeConflict},
		{"contract", perrors.New(perrors.ErrorTypeContract, "p", "bad"), http.StatusConflict, ErrCodeConflict},
		{"resource", perrors.New(perrors.ErrorTypeResource, "p", "disk"), http.StatusUnprocessableEntity, ErrCodeResource},
		{"unload", perrors.New(perrors.ErrorTypeUnload, "p", "stuck"), http.StatusInternalServerError, ErrCodePlugin},
		{"plain", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, payload := FromError(tt.err)
			if status != tt.status || payload.Code != tt.code {
				t.Fatalf("FromError() = %d/%d, want %d/%d", status, payload.Code, tt.status, tt.code)
			}
			if payload.Message != tt.err.Error() {
				t.Fatalf("message = %q, want %q", payload.Message, tt.err.Error())
			}
		})
	}
}

func TestErrIncludesPluginDetails(t *testing.T) {
	rr := httptest.NewRecorder()

	Err(rr, perrors.New(perrors.ErrorTypeNotFound, "SmartLogPlugin", "not loaded"))

	resp := decode(t, rr)
	details, ok := resp.Error.Details.(map[string]any)
	if !ok || details["plugin"] != "SmartLogPlugin" || details["type"] != "not_found" {
		t.Fatalf("unexpected details: %+v", resp.Error.Details)
	}
}
