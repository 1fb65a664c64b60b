// Package admin serves the diagnostics panel: plugin inventory and
// lifecycle, plugin settings, and live logging rules.
package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/leeforge/extcore/http/binding"
	"github.com/leeforge/extcore/http/middleware"
	"github.com/leeforge/extcore/http/responder"
	"github.com/leeforge/extcore/logging"
	"github.com/leeforge/extcore/metrics"
	"github.com/leeforge/extcore/plugin"
	"github.com/leeforge/extcore/runtime"
	"github.com/leeforge/extcore/smartlog"
	"go.uber.org/zap"
)

type Options struct {
	Manager    *runtime.Manager
	Controller *smartlog.Controller
	Logger     logging.Logger
	// Bootstrap is passed to plugins initialized through the panel.
	Bootstrap plugin.Config
	// Metrics, when set, records panel requests and serves GET /metrics.
	Metrics *metrics.Collector
}

type handler struct {
	manager   *runtime.Manager
	logs      *smartlog.Controller
	bootstrap plugin.Config
}

// NewHandler builds the panel's router.
func NewHandler(opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = logging.FromZap(zap.NewNop())
	}
	if opts.Bootstrap == nil {
		opts.Bootstrap = plugin.EmptyConfig()
	}
	if opts.Controller == nil {
		opts.Controller = smartlog.NewController(opts.Manager, opts.Manager.Host())
	}
	h := &handler{manager: opts.Manager, logs: opts.Controller, bootstrap: opts.Bootstrap}

	r := chi.NewRouter()
	r.Use(middleware.Trace)
	r.Use(logging.RecoveryMiddleware(opts.Logger))
	r.Use(logging.HTTPMiddleware(opts.Logger))
	r.Use(chimw.CleanPath)
	if opts.Metrics != nil {
		r.Use(metrics.Middleware(opts.Metrics))
		r.Method(http.MethodGet, "/metrics", metrics.Handler(opts.Metrics))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		responder.WriteError(w, http.StatusNotFound, responder.NewError(responder.ErrCodeNotFound, "route not found"), meta(r)...)
	})

	r.Get("/healthz", h.health)
	r.Route("/api", func(r chi.Router) {
		r.Route("/plugins", func(r chi.Router) {
			r.Get("/", h.listPlugins)
			r.Route("/{name}", func(r chi.Router) {
				r.Get("/", h.getPlugin)
				r.Delete("/", h.unloadPlugin)
				r.Post("/initialize", h.initializePlugin)
				r.Get("/settings", h.getSettings)
				r.Put("/settings", h.putSettings)
			})
		})
		r.Route("/logging", func(r chi.Router) {
			r.Get("/rules", h.getRules)
			r.Put("/rules", h.putRules)
			r.Get("/categories", h.listCategories)
			r.Put("/categories/{category}", h.putCategory)
			r.Put("/output", h.putOutput)
			r.Post("/test", h.testLog)
		})
	})
	return r
}

func meta(r *http.Request) []responder.Option {
	return []responder.Option{
		responder.WithTraceID(middleware.TraceID(r.Context())),
		responder.WithTook(middleware.Took(r.Context())),
	}
}

// bind decodes the request body and writes the 400 itself on failure.
func bind(w http.ResponseWriter, r *http.Request, v any) bool {
	err := binding.JSON(r, v)
	if err == nil {
		return true
	}
	if ve, ok := err.(binding.ValidationErrors); ok {
		responder.ValidationError(w, ve.Fields(), meta(r)...)
		return false
	}
	responder.BindError(w, err.Error(), meta(r)...)
	return false
}

type healthResponse struct {
	Status  string `json:"status"`
	Plugins int    `json:"plugins"`
	Logging bool   `json:"logging"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	responder.OK(w, healthResponse{
		Status:  "ok",
		Plugins: len(h.manager.Names()),
		Logging: h.logs.Available(),
	}, meta(r)...)
}
