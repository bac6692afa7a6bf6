// Package synth turns a SceneConfig and device-type catalog into a rendered
// node graph mirroring the facility hierarchy, with one node map per entity
// class for the projector and camera to work from.
package synth

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/assets"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/hierarchy"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/primitive"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/scene"
)

// DefaultLoadConcurrency bounds parallel model fetches.
const DefaultLoadConcurrency = 8

// Placement records where a device was put inside its rack.
type Placement struct {
	DeviceID string     `json:"deviceId"`
	RackID   string     `json:"rackId"`
	Offset   float64    `json:"offset"`
	Vertical bool       `json:"vertical"`
	Position mgl64.Vec3 `json:"position"`
	Model    string     `json:"model,omitempty"`
}

// SceneObjects is the output of one synthesis. Every node it references is
// reachable from Root, so disposing Root releases everything.
type SceneObjects struct {
	Root      *scene.Node
	Building  *scene.Node
	Buildings map[string]*scene.Node
	Floors    map[string]*scene.Node
	Rooms     map[string]*scene.Node
	Racks     map[string]*scene.Node
	Devices   map[string]*scene.Node

	Index      *hierarchy.Index
	Findings   facility.Findings
	Placements map[string]Placement
	Catalog    facility.Catalog
}

// Node returns the node rendered for an entity of any class.
func (s *SceneObjects) Node(id string) (*scene.Node, bool) {
	for _, m := range []map[string]*scene.Node{s.Devices, s.Racks, s.Rooms, s.Floors, s.Buildings} {
		if n, ok := m[id]; ok {
			return n, true
		}
	}
	if s.Root != nil && s.Root.Tag != nil && s.Root.Tag.EntityID == id {
		return s.Root, true
	}
	return nil, false
}

// Bounds returns the world bounds of everything currently visible.
func (s *SceneObjects) Bounds() kernel.AABB {
	if s == nil || s.Root == nil {
		return kernel.Empty()
	}
	return s.Root.WorldBounds()
}

// Dispose detaches the graph and releases all geometry. It returns the
// number of renderables released.
func (s *SceneObjects) Dispose() int {
	if s == nil {
		return 0
	}
	return scene.Dispose(s.Root)
}

// Synthesizer builds SceneObjects.
type Synthesizer struct {
	factory     *primitive.Factory
	models      *assets.Service
	concurrency int
	fallback    hierarchy.FallbackPolicy
	log         zerolog.Logger
}

// Option configures a Synthesizer.
type Option func(*Synthesizer)

// WithModels enables external model loading for device types with a model
// reference.
func WithModels(m *assets.Service) Option {
	return func(s *Synthesizer) { s.models = m }
}

// WithLoadConcurrency bounds parallel model loads.
func WithLoadConcurrency(n int) Option {
	return func(s *Synthesizer) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithFallback selects how unresolved parents are re-homed.
func WithFallback(p hierarchy.FallbackPolicy) Option {
	return func(s *Synthesizer) { s.fallback = p }
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Synthesizer) { s.log = l }
}

// New returns a Synthesizer drawing primitives from f.
func New(f *primitive.Factory, opts ...Option) *Synthesizer {
	s := &Synthesizer{
		factory:     f,
		concurrency: DefaultLoadConcurrency,
		log:         zerolog.Nop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Factory returns the primitive factory.
func (s *Synthesizer) Factory() *primitive.Factory { return s.factory }

// Synthesize builds the node graph for cfg. Data-shape problems degrade to
// fallbacks and findings; the only error is ctx ending while models load.
// Identical inputs yield structurally identical graphs.
func (s *Synthesizer) Synthesize(ctx context.Context, cfg *facility.SceneConfig, catalog facility.Catalog) (*SceneObjects, error) {
	start := time.Now()
	if cfg == nil {
		cfg = &facility.SceneConfig{}
	}

	idx := hierarchy.Build(cfg, hierarchy.WithFallback(s.fallback), hierarchy.WithLogger(s.log))
	out := &SceneObjects{
		Buildings:  make(map[string]*scene.Node),
		Floors:     make(map[string]*scene.Node),
		Rooms:      make(map[string]*scene.Node),
		Racks:      make(map[string]*scene.Node),
		Devices:    make(map[string]*scene.Node),
		Index:      idx,
		Findings:   facility.Validate(cfg, catalog),
		Placements: make(map[string]Placement),
		Catalog:    catalog,
	}

	models, err := s.loadModels(ctx, cfg, catalog)
	if err != nil {
		return nil, err
	}

	b := &build{s: s, idx: idx, out: out, catalog: catalog, models: models}
	out.Root = b.node(idx.Root(), nil)
	if ids := idx.Entities(facility.EntityBuilding); len(ids) > 0 {
		out.Building = out.Buildings[ids[0]]
	}

	s.log.Debug().
		Int("rooms", len(out.Rooms)).
		Int("racks", len(out.Racks)).
		Int("devices", len(out.Devices)).
		Int("findings", len(out.Findings)).
		Dur("took", time.Since(start)).
		Msg("scene synthesized")
	return out, nil
}

// loadModels fetches every distinct model reference used by a slotted device.
func (s *Synthesizer) loadModels(ctx context.Context, cfg *facility.SceneConfig, catalog facility.Catalog) (map[string]*kernel.Mesh, error) {
	if s.models == nil {
		return nil, ctx.Err()
	}
	var uris []string
	seen := make(map[string]bool)
	for _, d := range cfg.Devices {
		t, ok := catalog.Lookup(d.DeviceTypeID)
		if !ok || t.ModelRef == "" || d.IsVertical() || seen[t.ModelRef] {
			continue
		}
		seen[t.ModelRef] = true
		uris = append(uris, t.ModelRef)
	}

	results := make([]assets.Model, len(uris))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, uri := range uris {
		g.Go(func() error {
			results[i] = s.models.Load(gctx, uri)
			return nil
		})
	}
	_ = g.Wait() // loads never fail
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("synthesize: model loading interrupted: %w", err)
	}

	out := make(map[string]*kernel.Mesh, len(uris))
	for _, m := range results {
		if !m.Fallback {
			out[m.URI] = m.Mesh
		}
	}
	return out, nil
}

type build struct {
	s       *Synthesizer
	idx     *hierarchy.Index
	out     *SceneObjects
	catalog facility.Catalog
	models  map[string]*kernel.Mesh
}

// node creates the subtree for id under parent, walking children in input
// order.
func (b *build) node(id string, parent *scene.Node) *scene.Node {
	e, ok := b.idx.Get(id)
	if !ok {
		return nil
	}
	tag := scene.Tag{EntityType: e.Type, EntityID: e.ID, Synthetic: e.Synthetic}

	var n *scene.Node
	switch e.Type {
	case facility.EntityRack:
		n = b.rack(e, tag)
	case facility.EntityDevice:
		n = b.device(e, tag)
	default:
		n = scene.NewTagged(e.Name, tag)
		scene.Apply(n, e.Transform())
		if e.Room != nil {
			if slab := b.s.factory.RoomFloor(*e.Room, tag); slab != nil {
				n.Add(slab)
			}
		}
	}
	if n == nil {
		return nil
	}
	if parent != nil {
		parent.Add(n)
	}
	b.record(e.Type, e.ID, n)

	for _, c := range b.idx.Children(id) {
		b.node(c, n)
	}
	return n
}

func (b *build) record(t facility.EntityType, id string, n *scene.Node) {
	switch t {
	case facility.EntityBuilding:
		b.out.Buildings[id] = n
	case facility.EntityFloor:
		b.out.Floors[id] = n
	case facility.EntityRoom:
		b.out.Rooms[id] = n
	case facility.EntityRack:
		b.out.Racks[id] = n
	case facility.EntityDevice:
		b.out.Devices[id] = n
	}
}

func rackOf(e *hierarchy.Entity) facility.Rack {
	if e.Rack != nil {
		return *e.Rack
	}
	return facility.Rack{ID: e.ID, Name: e.Name, UHeight: facility.DefaultRackUnits}
}

func (b *build) rack(e *hierarchy.Entity, tag scene.Tag) *scene.Node {
	r := rackOf(e)
	tag.Category = facility.CategoryRack
	n := b.s.factory.Rack(r, tag)
	scene.Apply(n, r.Transform)
	return n
}

func (b *build) device(e *hierarchy.Entity, tag scene.Tag) *scene.Node {
	d := *e.Device
	rackEntity, _ := b.idx.Get(e.ParentID)
	rackU := facility.DefaultRackUnits
	if rackEntity != nil {
		rackU = rackOf(rackEntity).Units()
	}

	dt, known := b.catalog.Lookup(d.DeviceTypeID)
	cat := b.catalog.CategoryOf(d)
	if !known {
		b.s.log.Warn().
			Str("entity_type", facility.EntityDevice.String()).
			Str("entity_id", d.ID).
			Str("device_type_id", d.DeviceTypeID).
			Msg("unknown device type, rendering generic chassis")
	}
	tag.Status = d.Status
	tag.LogicalID = d.LogicalEquipmentID
	tag.Category = cat

	f := b.s.factory
	p := Placement{DeviceID: d.ID, RackID: e.ParentID}
	var n *scene.Node
	if d.IsVertical() {
		n = f.VerticalStrip(d, cat, tag)
		p.Vertical = true
	} else {
		n = f.Chassis(d, cat, rackU, tag)
		p.Offset = f.SlotOffset(d.UStart, rackU)
		if mesh, ok := b.models[dt.ModelRef]; ok && known {
			n.Renderable = primitive.FitModel(dt.ModelRef, mesh, f.ChassisSize(d.UHeight, rackU), primitive.CategoryColor(cat))
			p.Model = dt.ModelRef
		}
	}
	p.Position = n.Transform.Position
	b.out.Placements[d.ID] = p
	return n
}
