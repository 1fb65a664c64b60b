package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leeforge/extcore/http/responder"
	"github.com/leeforge/extcore/smartlog"
)

type rulesRequest struct {
	Rules string `json:"rules" validate:"required"`
}

type rulesResponse struct {
	Rules string `json:"rules"`
}

type categoryRequest struct {
	Level   string `json:"level" validate:"omitempty,oneof=debug info warning critical fatal"`
	Enabled *bool  `json:"enabled"`
}

type outputRequest struct {
	Console *bool `json:"console"`
	JSON    *bool `json:"json"`
	// File enables file output at the path, or disables it when empty.
	File *string `json:"file"`
}

type testLogRequest struct {
	Category string `json:"category"`
	Level    string `json:"level" validate:"omitempty,oneof=debug info warning critical fatal"`
	Message  string `json:"message" validate:"max=4096"`
}

func (h *handler) getRules(w http.ResponseWriter, r *http.Request) {
	if !h.logs.Available() {
		responder.Err(w, smartlog.ErrNotLoaded, meta(r)...)
		return
	}
	responder.OK(w, rulesResponse{Rules: h.logs.CurrentRules()}, meta(r)...)
}

func (h *handler) putRules(w http.ResponseWriter, r *http.Request) {
	var req rulesRequest
	if !bind(w, r, &req) {
		return
	}
	if err := h.logs.SetGlobalRules(req.Rules); err != nil {
		responder.Err(w, err, meta(r)...)
		return
	}
	responder.OK(w, rulesResponse{Rules: h.logs.CurrentRules()}, meta(r)...)
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats := h.logs.AvailableCategories()
	out := make([]smartlog.CategoryConfig, 0, len(cats))
	for _, cat := range cats {
		cfg, err := h.logs.CategoryConfig(cat)
		if err != nil {
			responder.Err(w, err, meta(r)...)
			return
		}
		cfg.Rules = ""
		out = append(out, cfg)
	}
	responder.OK(w, out, meta(r)...)
}

func (h *handler) putCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	var req categoryRequest
	if !bind(w, r, &req) {
		return
	}
	if req.Level == "" && req.Enabled == nil {
		responder.BadRequest(w, "level or enabled is required", meta(r)...)
		return
	}

	if req.Level != "" {
		if err := h.logs.SetLogLevel(category, req.Level); err != nil {
			responder.Err(w, err, meta(r)...)
			return
		}
	}
	if req.Enabled != nil {
		if err := h.logs.EnableCategory(category, *req.Enabled); err != nil {
			responder.Err(w, err, meta(r)...)
			return
		}
	}

	cfg, err := h.logs.CategoryConfig(category)
	if err != nil {
		responder.Err(w, err, meta(r)...)
		return
	}
	responder.OK(w, cfg, meta(r)...)
}

func (h *handler) putOutput(w http.ResponseWriter, r *http.Request) {
	var req outputRequest
	if !bind(w, r, &req) {
		return
	}

	steps := []func() error{}
	if req.Console != nil {
		steps = append(steps, func() error { return h.logs.EnableConsoleLogging(*req.Console) })
	}
	if req.JSON != nil {
		steps = append(steps, func() error { return h.logs.SetJSONFormat(*req.JSON) })
	}
	if req.File != nil {
		if *req.File == "" {
			steps = append(steps, h.logs.DisableFileLogging)
		} else {
			steps = append(steps, func() error { return h.logs.EnableFileLogging(*req.File) })
		}
	}
	if len(steps) == 0 {
		responder.BadRequest(w, "nothing to change", meta(r)...)
		return
	}

	for _, step := range steps {
		if err := step(); err != nil {
			responder.Err(w, err, meta(r)...)
			return
		}
	}
	responder.NoContent(w, meta(r)...)
}

func (h *handler) testLog(w http.ResponseWriter, r *http.Request) {
	var req testLogRequest
	if !bind(w, r, &req) {
		return
	}
	if err := h.logs.TestLog(req.Category, req.Level, req.Message); err != nil {
		responder.Err(w, err, meta(r)...)
		return
	}
	responder.NoContent(w, meta(r)...)
}
