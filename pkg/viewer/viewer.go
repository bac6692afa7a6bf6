// Package viewer owns one rendered facility scene and everything that is a
// function of it: the projection state, the camera and the hierarchy graph
// view. All mutation of the node graph goes through a Viewer, which re-runs
// the full projection after every state change.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/camera"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/hiergraph"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/projector"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/scene"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/synth"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/tessellate"
)

var (
	// ErrSuperseded is returned by Load when a newer Load started before
	// this one finished. The stale scene is disposed, never attached.
	ErrSuperseded = errors.New("viewer: superseded by a newer load")
	// ErrNoScene is returned by operations that need a loaded scene.
	ErrNoScene = errors.New("viewer: no scene loaded")
	// ErrUnknownEntity is returned for ids the current scene does not contain.
	ErrUnknownEntity = errors.New("viewer: unknown entity")
	// ErrInvalid is returned for malformed arguments (unknown phase, view...).
	ErrInvalid = errors.New("viewer: invalid argument")
)

// Synthesis outcomes reported to Metrics.
const (
	OutcomeOK         = "ok"
	OutcomeSuperseded = "superseded"
	OutcomeTimeout    = "timeout"
	OutcomeError      = "error"
)

// DefaultTimeout bounds one synthesis.
const DefaultTimeout = 10 * time.Second

// Metrics receives viewer measurements. *metrics.Metrics implements it.
type Metrics interface {
	ObserveSynth(outcome string, duration time.Duration)
	SetScene(devices, errors, warnings int)
	AddSubscribers(delta int)
}

type nopMetrics struct{}

func (nopMetrics) ObserveSynth(string, time.Duration) {}
func (nopMetrics) SetScene(int, int, int)             {}
func (nopMetrics) AddSubscribers(int)                 {}

// Viewport is the pixel size used for picking and aspect ratio.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Aspect returns width over height, 1 for a degenerate viewport.
func (v Viewport) Aspect() float64 {
	if v.Width <= 0 || v.Height <= 0 {
		return 1
	}
	return float64(v.Width) / float64(v.Height)
}

// Option configures a Viewer.
type Option func(*Viewer)

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(v *Viewer) { v.log = l }
}

// WithMetrics reports synthesis outcomes and scene sizes to m.
func WithMetrics(m Metrics) Option {
	return func(v *Viewer) {
		if m != nil {
			v.metrics = m
		}
	}
}

// WithTimeout bounds each Load. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(v *Viewer) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// WithCamera sets the camera options.
func WithCamera(o camera.Options) Option {
	return func(v *Viewer) { v.camOpts = o }
}

// WithLayout sets the hierarchy graph options.
func WithLayout(o hiergraph.Options) Option {
	return func(v *Viewer) { v.layoutOpts = o }
}

// WithState sets the initial projection state.
func WithState(st projector.State) Option {
	return func(v *Viewer) { v.state = st }
}

// WithViewport sets the initial viewport.
func WithViewport(w, h int) Option {
	return func(v *Viewer) {
		if w > 0 && h > 0 {
			v.viewport = Viewport{Width: w, Height: h}
		}
	}
}

// Viewer is safe for concurrent use. Event handlers run after the lock is
// released and may call back into the Viewer.
type Viewer struct {
	synth      *synth.Synthesizer
	log        zerolog.Logger
	metrics    Metrics
	timeout    time.Duration
	camOpts    camera.Options
	layoutOpts hiergraph.Options

	mu       sync.Mutex
	gen      uint64
	loaded   uint64
	world    *scene.Node
	objs     *synth.SceneObjects
	edges    *scene.Node
	state    projector.State
	result   projector.Result
	cam      *camera.Controller
	layout   *hiergraph.Layout
	viewport Viewport
	loadedAt time.Time
	pending  []Event

	events bus
}

// New returns a Viewer that builds scenes with s.
func New(s *synth.Synthesizer, opts ...Option) *Viewer {
	v := &Viewer{
		synth:      s,
		log:        zerolog.Nop(),
		metrics:    nopMetrics{},
		timeout:    DefaultTimeout,
		camOpts:    camera.DefaultOptions(),
		layoutOpts: hiergraph.DefaultOptions(hiergraph.Mode2D),
		world:      scene.NewNode("world"),
		state:      projector.DefaultState(),
		viewport:   Viewport{Width: 1280, Height: 720},
	}
	for _, o := range opts {
		o(v)
	}
	if v.state.Toggles == nil {
		v.state.Toggles = facility.DefaultToggles()
	}
	v.events.onSize = v.metrics.AddSubscribers
	v.cam = camera.NewController(v.camOpts)
	v.cam.OnViewChange(func(view camera.View) {
		e := newEvent(EventCameraViewChange)
		e.View = view
		v.pending = append(v.pending, e)
	})
	v.layout = hiergraph.New(nil, v.layoutOpts)
	return v
}

// Subscribe registers fn for every future event and returns a function that
// removes it.
func (v *Viewer) Subscribe(fn func(Event)) func() {
	return v.events.subscribe(fn)
}

// Subscribers returns the number of registered handlers.
func (v *Viewer) Subscribers() int { return v.events.len() }

// locked runs fn under the lock and publishes the events it queued once the
// lock is released.
func (v *Viewer) locked(fn func() error) error {
	v.mu.Lock()
	err := fn()
	events := v.pending
	v.pending = nil
	v.mu.Unlock()
	v.events.publish(events)
	return err
}

func (v *Viewer) emit(e Event) { v.pending = append(v.pending, e) }

// Load synthesizes cfg and, unless a newer Load started meanwhile, replaces
// the current scene with it. The previous graph is detached and disposed
// before the new one is attached. A stale result is disposed and Load
// returns ErrSuperseded.
func (v *Viewer) Load(ctx context.Context, cfg *facility.SceneConfig, catalog facility.Catalog) error {
	start := time.Now()
	v.mu.Lock()
	v.gen++
	gen := v.gen
	v.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	objs, err := v.synth.Synthesize(ctx, cfg, catalog)
	if err != nil {
		outcome := OutcomeError
		if errors.Is(err, context.DeadlineExceeded) {
			outcome = OutcomeTimeout
		}
		v.metrics.ObserveSynth(outcome, time.Since(start))
		v.log.Warn().Err(err).Uint64("generation", gen).Msg("scene synthesis failed")
		return fmt.Errorf("viewer: load: %w", err)
	}

	err = v.locked(func() error {
		if gen != v.gen {
			return ErrSuperseded
		}
		v.attach(objs, gen)
		return nil
	})
	if errors.Is(err, ErrSuperseded) {
		released := objs.Dispose()
		v.metrics.ObserveSynth(OutcomeSuperseded, time.Since(start))
		v.log.Debug().
			Uint64("generation", gen).
			Int("released", released).
			Msg("discarding superseded scene")
		return err
	}

	v.metrics.ObserveSynth(OutcomeOK, time.Since(start))
	v.metrics.SetScene(len(objs.Devices), len(objs.Findings.Errors()), len(objs.Findings.Warnings()))
	v.log.Info().
		Uint64("generation", gen).
		Str("site_id", objs.Index.Root()).
		Int("devices", len(objs.Devices)).
		Int("findings", len(objs.Findings)).
		Dur("took", time.Since(start)).
		Msg("scene loaded")
	return nil
}

// attach swaps in objs. Caller holds the lock.
func (v *Viewer) attach(objs *synth.SceneObjects, gen uint64) {
	if v.objs != nil {
		v.objs.Dispose()
	}
	v.objs = objs
	v.loaded = gen
	v.loadedAt = time.Now().UTC()
	v.world.Add(objs.Root)

	if v.state.Selected != "" {
		if _, ok := objs.Devices[v.state.Selected]; !ok {
			v.state.Selected = ""
		}
	}
	v.layout.SetIndex(objs.Index)
	v.reproject()
	v.frame()

	e := newEvent(EventSceneLoaded)
	e.EntityID = objs.Index.Root()
	e.EntityType = facility.EntitySite.String()
	e.Generation = gen
	e.Devices = len(objs.Devices)
	v.emit(e)
}

// frame points the camera at the whole scene, keeping a named view.
func (v *Viewer) frame() {
	b := v.sceneBounds()
	if view := v.cam.View(); view.Valid() {
		_ = v.cam.SetView(view, b)
	}
	v.cam.FocusOn(b, v.viewport.Aspect())
}

func (v *Viewer) sceneBounds() kernel.AABB {
	if v.objs == nil {
		return kernel.Empty()
	}
	return v.objs.Bounds()
}

// reproject recomputes visibility, color, highlight and edges for every
// device from the current state. Caller holds the lock.
func (v *Viewer) reproject() {
	if v.objs == nil {
		v.result = projector.Result{}
		return
	}
	v.result = projector.Project(v.objs.Devices, v.objs.Index, v.state)
	if v.edges != nil {
		scene.Dispose(v.edges)
	}
	v.edges = projector.EdgeNodes(v.result.Edges)
	v.world.Add(v.edges)
}

// Close disposes the current scene.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.gen++
	if v.objs != nil {
		v.objs.Dispose()
		v.objs = nil
	}
	if v.edges != nil {
		scene.Dispose(v.edges)
		v.edges = nil
	}
	v.result = projector.Result{}
}

// SetPhase changes the temporal lens.
func (v *Viewer) SetPhase(p facility.Phase) error {
	if !p.Valid() {
		return fmt.Errorf("%w: phase %q", ErrInvalid, p)
	}
	return v.locked(func() error {
		v.state.Phase = p
		v.reproject()
		return nil
	})
}

// SetStatusVisible switches one status on or off.
func (v *Viewer) SetStatusVisible(s facility.Status4D, on bool) error {
	return v.SetToggles(facility.Toggles{s: on})
}

// SetToggles applies every switch in t. Statuses absent from t keep their
// current setting.
func (v *Viewer) SetToggles(t facility.Toggles) error {
	for s := range t {
		if !s.Valid() {
			return fmt.Errorf("%w: status %q", ErrInvalid, s)
		}
	}
	return v.locked(func() error {
		next := v.state.Toggles.Clone()
		for s, on := range t {
			next[s] = on
		}
		v.state.Toggles = next
		v.reproject()
		return nil
	})
}

// SetColorMode selects the coloring by name. Unknown names select neutral
// coloring. It returns the mode in effect.
func (v *Viewer) SetColorMode(name string) projector.ColorMode {
	mode, ok := projector.ParseColorMode(name)
	if !ok {
		v.log.Debug().Str("mode", name).Msg("unknown color mode, using neutral")
	}
	_ = v.locked(func() error {
		v.state.ColorMode = mode
		v.reproject()
		return nil
	})
	return mode
}

// Select marks device id selected, highlights its logical group and
// focuses the camera on it.
func (v *Viewer) Select(id string) error {
	return v.locked(func() error {
		if v.objs == nil {
			return ErrNoScene
		}
		n, ok := v.objs.Devices[id]
		if !ok {
			return fmt.Errorf("%w: device %q", ErrUnknownEntity, id)
		}
		v.selectLocked(id)
		v.cam.FocusOn(nodeBounds(n), v.viewport.Aspect())
		return nil
	})
}

func (v *Viewer) selectLocked(id string) {
	changed := v.state.Selected != id
	v.state.Selected = id
	v.reproject()
	if changed {
		e := newEvent(EventSelectionChanged)
		e.EntityID = id
		if id != "" {
			e.EntityType = facility.EntityDevice.String()
		}
		v.emit(e)
	}
}

// ClearSelection removes any selection and related highlight.
func (v *Viewer) ClearSelection() {
	_ = v.locked(func() error {
		v.selectLocked("")
		return nil
	})
}

// nodeBounds returns n's world bounds, falling back to its own geometry
// when the node is hidden by the current phase.
func nodeBounds(n *scene.Node) kernel.AABB {
	b := n.WorldBounds()
	if b.IsEmpty() && n.Renderable != nil {
		b = n.Renderable.Bounds().Transform(n.WorldMatrix())
	}
	return b
}

// PickResult describes what a click hit.
type PickResult struct {
	Hit        bool                `json:"hit"`
	EntityID   string              `json:"entityId,omitempty"`
	EntityType facility.EntityType `json:"entityType"`
	Distance   float64             `json:"distance,omitempty"`
}

// PickAt casts a ray through viewport pixel (x, y). A device hit becomes the
// selection; any hit emits a pick event. A miss changes nothing.
func (v *Viewer) PickAt(x, y float64) (PickResult, error) {
	var res PickResult
	err := v.locked(func() error {
		if v.objs == nil {
			return ErrNoScene
		}
		ray, err := v.cam.Ray(x, y, v.viewport.Width, v.viewport.Height)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		hit, ok := scene.Pick(v.objs.Root, ray)
		if !ok {
			return nil
		}
		res = PickResult{Hit: true, EntityID: hit.Tag.EntityID, EntityType: hit.Tag.EntityType, Distance: hit.Distance}
		e := newEvent(EventPick)
		e.EntityID = res.EntityID
		e.EntityType = res.EntityType.String()
		v.emit(e)
		if hit.Tag.EntityType == facility.EntityDevice {
			v.selectLocked(hit.Tag.EntityID)
			if n, ok := v.objs.Devices[hit.Tag.EntityID]; ok {
				v.cam.FocusOn(nodeBounds(n), v.viewport.Aspect())
			}
		}
		return nil
	})
	return res, err
}

// SetView moves the camera to a canonical view of the scene.
func (v *Viewer) SetView(view camera.View) error {
	return v.locked(func() error {
		if err := v.cam.SetView(view, v.sceneBounds()); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return nil
	})
}

// Fit frames the whole scene without changing the viewing direction.
func (v *Viewer) Fit() {
	_ = v.locked(func() error {
		v.cam.FitToBounds(v.sceneBounds(), v.viewport.Aspect())
		return nil
	})
}

// FocusSelected re-centers the camera on the selected device, or frames the
// scene when nothing is selected.
func (v *Viewer) FocusSelected() error {
	return v.locked(func() error {
		if v.objs == nil {
			return ErrNoScene
		}
		if n, ok := v.objs.Devices[v.state.Selected]; ok {
			v.cam.FocusOn(nodeBounds(n), v.viewport.Aspect())
			return nil
		}
		v.cam.FocusOn(v.sceneBounds(), v.viewport.Aspect())
		return nil
	})
}

// Orbit accumulates a rotate drag in pixels.
func (v *Viewer) Orbit(dx, dy float64) {
	_ = v.locked(func() error { v.cam.Rotate(dx, dy); return nil })
}

// Pan accumulates a pan drag in pixels.
func (v *Viewer) Pan(dx, dy float64) {
	_ = v.locked(func() error { v.cam.Pan(dx, dy); return nil })
}

// Zoom accumulates wheel delta.
func (v *Viewer) Zoom(delta float64) {
	_ = v.locked(func() error { v.cam.Zoom(delta); return nil })
}

// Tick advances camera animation by one frame and reports whether it moved.
func (v *Viewer) Tick() bool {
	moved := false
	_ = v.locked(func() error {
		moved = v.cam.Update()
		return nil
	})
	return moved
}

// SetViewport changes the pixel size used for picking and fitting.
func (v *Viewer) SetViewport(w, h int) error {
	if w <= 0 || h <= 0 {
		return fmt.Errorf("%w: viewport %dx%d", ErrInvalid, w, h)
	}
	return v.locked(func() error {
		v.viewport = Viewport{Width: w, Height: h}
		return nil
	})
}

// Camera returns the camera state.
func (v *Viewer) Camera() camera.State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.cam.State()
}

// ToggleCollapse flips the collapsed state of a hierarchy graph node and
// reports the new state.
func (v *Viewer) ToggleCollapse(id string) (bool, error) {
	var collapsed bool
	err := v.locked(func() error {
		if v.objs == nil {
			return ErrNoScene
		}
		c, ok := v.layout.Toggle(id)
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownEntity, id)
		}
		collapsed = c
		v.reproject()
		return nil
	})
	return collapsed, err
}

// SetLayoutMode switches the hierarchy graph between 2D and 3D placement.
func (v *Viewer) SetLayoutMode(m hiergraph.Mode) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.layout.SetMode(m)
}

// Hierarchy computes the hierarchy graph for the current scene.
func (v *Viewer) Hierarchy() (*hiergraph.Graph, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.objs == nil {
		return nil, ErrNoScene
	}
	return v.layout.Compute(), nil
}

// HierarchyDOT renders the hierarchy graph as Graphviz DOT.
func (v *Viewer) HierarchyDOT() (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.objs == nil {
		return "", ErrNoScene
	}
	return v.layout.DOT(), nil
}

// Findings returns the data-quality findings of the current scene.
func (v *Viewer) Findings() (facility.Findings, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.objs == nil {
		return nil, ErrNoScene
	}
	return v.objs.Findings, nil
}

// Meshes tessellates every visible renderable of the scene into world-space
// triangle meshes, connection lines excluded.
func (v *Viewer) Meshes(ctx context.Context) ([]tessellate.Item, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.objs == nil {
		return nil, ErrNoScene
	}
	items, err := tessellate.Tessellate(ctx, v.objs.Root, v.synth.Factory().Kernel())
	if err != nil {
		return nil, fmt.Errorf("viewer: meshes: %w", err)
	}
	return items, nil
}
