package main

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dmytro-yemelianov/twin-sub001/internal/config"
	"github.com/dmytro-yemelianov/twin-sub001/internal/httpapi"
	"github.com/dmytro-yemelianov/twin-sub001/internal/metrics"
	"github.com/dmytro-yemelianov/twin-sub001/internal/store"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/assets"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/camera"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel/sdfx"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/primitive"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/projector"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/script"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/synth"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/viewer"
)

// App owns the viewer and feeds it from either the configured scene source
// or a facility script handed to Evaluate.
type App struct {
	cfg     *config.Config
	log     zerolog.Logger
	metrics *metrics.Metrics
	source  store.Source
	engine  *script.Engine
	viewer  *viewer.Viewer
}

// MeshData is the JSON-serializable mesh format sent to a renderer.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	EntityID string    `json:"entityId,omitempty"`
	Color    string    `json:"color"`
	Opacity  float64   `json:"opacity"`
}

// EvalErrorData is a JSON-serializable script error or warning.
type EvalErrorData struct {
	Line     int    `json:"line"`
	EntityID string `json:"entityId,omitempty"`
	Message  string `json:"message"`
}

// EvalResult is the full result of evaluating a facility script.
type EvalResult struct {
	Meshes   []MeshData      `json:"meshes"`
	Errors   []EvalErrorData `json:"errors"`
	Warnings []EvalErrorData `json:"warnings"`
}

// NewApp builds the synthesis pipeline described by cfg. src may be nil
// when scenes only arrive through Evaluate; m may be nil.
func NewApp(cfg *config.Config, log zerolog.Logger, m *metrics.Metrics, src store.Source) *App {
	factory := primitive.New(newKernel(cfg.Synth), dimensions(cfg.Layout))

	models := assets.NewService(
		assets.DefaultRouter(cfg.Assets.BaseDir, cfg.Assets.HTTPTimeout),
		assets.WithLogger(log),
		assets.WithObserver(m.IncModelLoad),
	)
	s := synth.New(factory,
		synth.WithModels(models),
		synth.WithLoadConcurrency(cfg.Synth.LoadConcurrency),
		synth.WithFallback(cfg.FallbackPolicy()),
		synth.WithLogger(log),
	)

	st := projector.DefaultState()
	st.Phase = cfg.Phase()
	st.ColorMode = cfg.ColorMode()

	vopts := []viewer.Option{
		viewer.WithLogger(log),
		viewer.WithTimeout(cfg.Synth.Timeout),
		viewer.WithCamera(cameraOptions(cfg.Camera)),
		viewer.WithState(st),
	}
	if m != nil {
		vopts = append(vopts, viewer.WithMetrics(m))
	}

	return &App{
		cfg:     cfg,
		log:     log,
		metrics: m,
		source:  src,
		engine:  script.NewEngine(script.WithTimeout(cfg.Source.ScriptTimeout), script.WithLogger(log)),
		viewer:  viewer.New(s, vopts...),
	}
}

func newKernel(c config.SynthConfig) kernel.Kernel {
	if c.Kernel == config.KernelBox {
		return kernel.NewBoxKernel()
	}
	var opts []sdfx.Option
	if c.MeshCells > 0 {
		opts = append(opts, sdfx.WithMeshCells(c.MeshCells))
	}
	return sdfx.New(opts...)
}

func dimensions(c config.LayoutConfig) primitive.Dimensions {
	d := primitive.DefaultDimensions()
	if c.RackHeight > 0 {
		d.RackHeight = c.RackHeight
	}
	if c.RackWidth > 0 {
		d.RackWidth = c.RackWidth
	}
	if c.RackDepth > 0 {
		d.RackDepth = c.RackDepth
	}
	return d
}

// Viewer returns the viewer the app drives.
func (a *App) Viewer() *viewer.Viewer { return a.viewer }

// Reload pulls the current scene from the configured source into the viewer.
func (a *App) Reload(ctx context.Context) error {
	if a.source == nil {
		return fmt.Errorf("%w: no scene source configured", store.ErrNotFound)
	}
	snap, err := a.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("load %s: %w", a.source.Describe(), err)
	}
	return a.viewer.Load(ctx, snap.Config, snap.Catalog)
}

// Handler returns the HTTP API over the app's viewer.
func (a *App) Handler() http.Handler {
	var reload httpapi.ReloadFunc
	if a.source != nil {
		reload = a.Reload
	}
	return httpapi.NewHandler(a.log, a.viewer, reload, a.metrics).Router()
}

// Close releases the viewer's scene.
func (a *App) Close() { a.viewer.Close() }

// Evaluate takes facility script source, loads the resulting scene into the
// viewer and returns the visible meshes plus any errors and warnings.
func (a *App) Evaluate(source string) EvalResult {
	return a.EvaluateContext(context.Background(), source)
}

// EvaluateContext is Evaluate bounded by ctx.
func (a *App) EvaluateContext(ctx context.Context, source string) EvalResult {
	result := EvalResult{
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	res, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.log.Error().Err(err).Msg("script evaluation failed")
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{Line: e.Line, Message: e.Message})
		}
		return result
	}
	for _, w := range res.Warnings {
		result.Warnings = append(result.Warnings, EvalErrorData{EntityID: w.EntityID, Message: w.Message})
	}

	if err := a.viewer.Load(ctx, res.Config, res.Catalog); err != nil {
		a.log.Error().Err(err).Msg("scene load failed")
		result.Errors = append(result.Errors, EvalErrorData{Message: "scene synthesis failed: " + err.Error()})
		return result
	}
	if fs, err := a.viewer.Findings(); err == nil {
		for _, f := range fs {
			result.Warnings = append(result.Warnings, findingData(f))
		}
	}

	items, err := a.viewer.Meshes(ctx)
	if err != nil {
		a.log.Error().Err(err).Msg("tessellation failed")
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	for _, it := range items {
		md := MeshData{
			Vertices: it.Mesh.Vertices,
			Normals:  it.Mesh.Normals,
			Indices:  it.Mesh.Indices,
			PartName: it.Mesh.Name,
			Color:    it.Color.Hex(),
			Opacity:  it.Opacity,
		}
		if it.Tag != nil {
			md.EntityID = it.Tag.EntityID
		}
		result.Meshes = append(result.Meshes, md)
	}
	return result
}

func findingData(f facility.Finding) EvalErrorData {
	return EvalErrorData{
		EntityID: f.EntityID,
		Message:  fmt.Sprintf("%s %s: %s", f.Severity, f.Code, f.Message),
	}
}

func cameraOptions(c config.CameraConfig) camera.Options {
	o := camera.DefaultOptions()
	o.FOV = c.FOV
	o.DistanceFactor = c.DistanceFactor
	o.MinRadius = c.MinRadius
	o.MaxRadius = c.MaxRadius
	o.Damping = c.Damping
	return o
}
