// Package httpapi exposes a viewer over HTTP and a websocket event stream.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/dmytro-yemelianov/twin-sub001/internal/metrics"
	"github.com/dmytro-yemelianov/twin-sub001/internal/store"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/script"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/viewer"
)

// ReloadFunc fetches current facility data and loads it into the viewer.
type ReloadFunc func(ctx context.Context) error

type Handler struct {
	log     zerolog.Logger
	viewer  *viewer.Viewer
	reload  ReloadFunc
	metrics *metrics.Metrics
}

func NewHandler(log zerolog.Logger, v *viewer.Viewer, reload ReloadFunc, m *metrics.Metrics) *Handler {
	return &Handler{log: log, viewer: v, reload: reload, metrics: m}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.accessLog)

	r.Get("/healthz", h.handleHealthz)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		// The event stream is long-lived and must not be cut by the timeout.
		r.Get("/events", h.handleEvents)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/scene", h.handleScene)
			r.Post("/scene/reload", h.handleReload)
			r.Get("/findings", h.handleFindings)

			r.Put("/phase", h.handlePhase)
			r.Put("/toggles", h.handleToggles)
			r.Put("/color-mode", h.handleColorMode)

			r.Put("/selection", h.handleSelect)
			r.Delete("/selection", h.handleClearSelection)
			r.Post("/pick", h.handlePick)

			r.Route("/camera", func(r chi.Router) {
				r.Put("/view", h.handleCameraView)
				r.Post("/fit", h.handleCameraFit)
				r.Post("/input", h.handleCameraInput)
			})

			r.Get("/hierarchy", h.handleHierarchy)
			r.Get("/hierarchy.dot", h.handleHierarchyDOT)
			r.Post("/hierarchy/{id}/toggle", h.handleToggleCollapse)

			r.Get("/meshes", h.handleMeshes)
		})
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		h.metrics.ObserveHTTPRequest(r.Method, path, ww.Status(), time.Since(start))
		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

// writeViewerError maps domain errors to HTTP statuses.
func (h *Handler) writeViewerError(w http.ResponseWriter, err error) {
	var evalErrs store.EvalErrors
	switch {
	case errors.As(err, &evalErrs):
		lines := make([]map[string]any, 0, len(evalErrs))
		for _, e := range evalErrs {
			lines = append(lines, map[string]any{"line": e.Line, "message": e.Message})
		}
		h.writeError(w, http.StatusUnprocessableEntity, "script_error", "facility script failed to evaluate",
			map[string]any{"errors": lines})
	case errors.Is(err, viewer.ErrNoScene):
		h.writeError(w, http.StatusConflict, "no_scene", "no scene loaded", nil)
	case errors.Is(err, viewer.ErrSuperseded):
		h.writeError(w, http.StatusConflict, "superseded", "a newer load replaced this one", nil)
	case errors.Is(err, viewer.ErrUnknownEntity):
		h.writeError(w, http.StatusNotFound, "unknown_entity", err.Error(), nil)
	case errors.Is(err, store.ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", err.Error(), nil)
	case errors.Is(err, viewer.ErrInvalid):
		h.writeError(w, http.StatusBadRequest, "invalid_argument", err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, script.ErrTimeout):
		h.writeError(w, http.StatusGatewayTimeout, "timeout", err.Error(), nil)
	default:
		h.log.Error().Err(err).Msg("request failed")
		h.writeError(w, http.StatusInternalServerError, "internal", "internal error", nil)
	}
}

func decodeJSONStrict(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected extra data after JSON body")
		}
		return err
	}
	return nil
}

// decode reads the body into dst, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := decodeJSONStrict(r, dst); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_body", "invalid JSON body", map[string]any{"error": err.Error()})
		return false
	}
	return true
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}
