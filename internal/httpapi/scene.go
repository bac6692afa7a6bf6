package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/camera"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/hiergraph"
)

// maxInputFrames bounds how many animation frames one input request runs.
const maxInputFrames = 120

func (h *Handler) handleScene(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.viewer.Snapshot())
}

func (h *Handler) handleReload(w http.ResponseWriter, r *http.Request) {
	if h.reload == nil {
		h.writeError(w, http.StatusServiceUnavailable, "no_source", "no scene source configured", nil)
		return
	}
	if err := h.reload(r.Context()); err != nil {
		h.writeViewerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.viewer.Snapshot())
}

func (h *Handler) handleFindings(w http.ResponseWriter, r *http.Request) {
	fs, err := h.viewer.Findings()
	if err != nil {
		h.writeViewerError(w, err)
		return
	}
	switch r.URL.Query().Get("severity") {
	case "":
	case "error":
		fs = fs.Errors()
	case "warning":
		fs = fs.Warnings()
	default:
		h.writeError(w, http.StatusBadRequest, "invalid_argument", "severity must be error or warning", nil)
		return
	}
	if fs == nil {
		fs = facility.Findings{}
	}
	h.writeJSON(w, http.StatusOK, fs)
}

type phaseRequest struct {
	Phase string `json:"phase"`
}

func (h *Handler) handlePhase(w http.ResponseWriter, r *http.Request) {
	var req phaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	p, err := facility.ParsePhase(req.Phase)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid_phase", err.Error(), nil)
		return
	}
	if err := h.viewer.SetPhase(p); err != nil {
		h.writeViewerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.viewer.Snapshot().State)
}

type togglesRequest struct {
	Toggles map[string]bool `json:"toggles"`
}

func (h *Handler) handleToggles(w http.ResponseWriter, r *http.Request) {
	var req togglesRequest
	if !h.decode(w, r, &req) {
		return
	}
	t := make(facility.Toggles, len(req.Toggles))
	for name, on := range req.Toggles {
		s, err := facility.ParseStatus4D(name)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_status", err.Error(), nil)
			return
		}
		t[s] = on
	}
	if err := h.viewer.SetToggles(t); err != nil {
		h.writeViewerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.viewer.Snapshot().State)
}

type colorModeRequest struct {
	Mode string `json:"mode"`
}

func (h *Handler) handleColorMode(w http.ResponseWriter, r *http.Request) {
	var req colorModeRequest
	if !h.decode(w, r, &req) {
		return
	}
	mode := h.viewer.SetColorMode(req.Mode)
	h.writeJSON(w, http.StatusOK, map[string]any{"colorMode": mode})
}

type selectRequest struct {
	ID string `json:"id"`
}

func (h *Handler) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.ID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_argument", "id is required", nil)
		return
	}
	if err := h.viewer.Select(req.ID); err != nil {
		h.writeViewerError(w, err)
		return
	}
	s := h.viewer.Snapshot()
	h.writeJSON(w, http.StatusOK, map[string]any{"selected": s.State.Selected, "related": s.Related})
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	h.viewer.ClearSelection()
	w.WriteHeader(http.StatusNoContent)
}

type pickRequest struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  int     `json:"width,omitempty"`
	Height int     `json:"height,omitempty"`
}

func (h *Handler) handlePick(w http.ResponseWriter, r *http.Request) {
	var req pickRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Width != 0 || req.Height != 0 {
		if err := h.viewer.SetViewport(req.Width, req.Height); err != nil {
			h.writeViewerError(w, err)
			return
		}
	}
	res, err := h.viewer.PickAt(req.X, req.Y)
	if err != nil {
		h.writeViewerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

type viewRequest struct {
	View string `json:"view"`
}

func (h *Handler) handleCameraView(w http.ResponseWriter, r *http.Request) {
	var req viewRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.viewer.SetView(camera.View(req.View)); err != nil {
		h.writeViewerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.viewer.Camera())
}

type fitRequest struct {
	FocusSelected bool `json:"focusSelected,omitempty"`
}

func (h *Handler) handleCameraFit(w http.ResponseWriter, r *http.Request) {
	var req fitRequest
	if r.ContentLength != 0 && !h.decode(w, r, &req) {
		return
	}
	if req.FocusSelected {
		if err := h.viewer.FocusSelected(); err != nil {
			h.writeViewerError(w, err)
			return
		}
	} else {
		h.viewer.Fit()
	}
	h.writeJSON(w, http.StatusOK, h.viewer.Camera())
}

type inputRequest struct {
	Rotate mgl64.Vec2 `json:"rotate"`
	Pan    mgl64.Vec2 `json:"pan"`
	Zoom   float64    `json:"zoom"`
	// Frames is the number of animation frames to advance, 1 by default.
	Frames int `json:"frames"`
}

func (h *Handler) handleCameraInput(w http.ResponseWriter, r *http.Request) {
	var req inputRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.Frames < 0 || req.Frames > maxInputFrames {
		h.writeError(w, http.StatusBadRequest, "invalid_argument", "frames out of range", map[string]any{"max": maxInputFrames})
		return
	}
	if req.Frames == 0 {
		req.Frames = 1
	}
	if req.Rotate != (mgl64.Vec2{}) {
		h.viewer.Orbit(req.Rotate[0], req.Rotate[1])
	}
	if req.Pan != (mgl64.Vec2{}) {
		h.viewer.Pan(req.Pan[0], req.Pan[1])
	}
	if req.Zoom != 0 {
		h.viewer.Zoom(req.Zoom)
	}
	for i := 0; i < req.Frames; i++ {
		if !h.viewer.Tick() {
			break
		}
	}
	h.writeJSON(w, http.StatusOK, h.viewer.Camera())
}

func (h *Handler) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	if m := r.URL.Query().Get("mode"); m != "" {
		mode, err := hiergraph.ParseMode(m)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_argument", err.Error(), nil)
			return
		}
		h.viewer.SetLayoutMode(mode)
	}
	g, err := h.viewer.Hierarchy()
	if err != nil {
		h.writeViewerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, g)
}

func (h *Handler) handleHierarchyDOT(w http.ResponseWriter, r *http.Request) {
	dot, err := h.viewer.HierarchyDOT()
	if err != nil {
		h.writeViewerError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(dot))
}

func (h *Handler) handleToggleCollapse(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	collapsed, err := h.viewer.ToggleCollapse(id)
	if err != nil {
		h.writeViewerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"id": id, "collapsed": collapsed})
}

func (h *Handler) handleMeshes(w http.ResponseWriter, r *http.Request) {
	items, err := h.viewer.Meshes(r.Context())
	if err != nil {
		h.writeViewerError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, items)
}
