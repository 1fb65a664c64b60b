package admin

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	perrors "github.com/leeforge/extcore/errors"
	"github.com/leeforge/extcore/http/responder"
	"github.com/leeforge/extcore/plugin"
	"github.com/leeforge/extcore/runtime"
)

func (h *handler) listPlugins(w http.ResponseWriter, r *http.Request) {
	names := h.manager.Names()
	infos := make([]runtime.Info, 0, len(names))
	for _, name := range names {
		if info := h.manager.PluginInfo(name); !info.IsZero() {
			infos = append(infos, info)
		}
	}
	responder.OK(w, infos, meta(r)...)
}

func (h *handler) getPlugin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	info := h.manager.PluginInfo(name)
	if info.IsZero() {
		responder.Err(w, notFound(name), meta(r)...)
		return
	}
	responder.OK(w, info, meta(r)...)
}

func (h *handler) unloadPlugin(w http.ResponseWriter, r *http.Request) {
	if err := h.manager.UnloadPlugin(chi.URLParam(r, "name")); err != nil {
		responder.Err(w, err, meta(r)...)
		return
	}
	responder.NoContent(w, meta(r)...)
}

func (h *handler) initializePlugin(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.manager.InitializePlugin(name, h.bootstrap); err != nil {
		responder.Err(w, err, meta(r)...)
		return
	}
	responder.OK(w, h.manager.PluginInfo(name), meta(r)...)
}

func (h *handler) settingsProvider(name string) (plugin.SettingsProvider, error) {
	return runtime.Resolve[plugin.SettingsProvider](h.manager, name)
}

func (h *handler) getSettings(w http.ResponseWriter, r *http.Request) {
	sp, err := h.settingsProvider(chi.URLParam(r, "name"))
	if err != nil {
		responder.Err(w, err, meta(r)...)
		return
	}
	responder.OK(w, sp.Settings(), meta(r)...)
}

func (h *handler) putSettings(w http.ResponseWriter, r *http.Request) {
	sp, err := h.settingsProvider(chi.URLParam(r, "name"))
	if err != nil {
		responder.Err(w, err, meta(r)...)
		return
	}

	var settings map[string]any
	if !bind(w, r, &settings) {
		return
	}
	if err := sp.SetSettings(settings); err != nil {
		responder.Err(w, err, meta(r)...)
		return
	}
	responder.OK(w, sp.Settings(), meta(r)...)
}

func notFound(name string) error {
	return perrors.New(perrors.ErrorTypeNotFound, name, "plugin not loaded")
}
