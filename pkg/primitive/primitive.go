// Package primitive builds the reusable 3D pieces of a facility scene: rack
// frames with unit ticks, device chassis per category, side-mounted strips,
// floor slabs and text labels.
//
// Rack-local frame: origin at the rack's bottom-left-rear corner, X across the
// width, Y up, Z toward the front.
package primitive

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/scene"
)

// Part names for decorative child nodes.
const (
	PartFrame = "frame"
	PartLabel = "label"
	PartTick  = "tick"
	PartFloor = "floor"
)

// Dimensions are the scene-unit sizes used for every primitive.
type Dimensions struct {
	RackHeight  float64 // height of a full rack, whatever its unit count
	RackWidth   float64
	RackDepth   float64
	PostSize    float64
	RailInset   float64 // gap between frame side and chassis
	LabelHeight float64
	TickHeight  float64
	StripWidth  float64
	StripDepth  float64
	SlabDepth   float64
}

// DefaultDimensions returns a 42U rack two units tall, 0.6 wide and 1.0 deep.
func DefaultDimensions() Dimensions {
	return Dimensions{
		RackHeight:  2.0,
		RackWidth:   0.6,
		RackDepth:   1.0,
		PostSize:    0.03,
		RailInset:   0.04,
		LabelHeight: 0.12,
		TickHeight:  0.025,
		StripWidth:  0.05,
		StripDepth:  0.08,
		SlabDepth:   0.02,
	}
}

// Factory builds primitives from a kernel. Geometry depends only on the
// parameters, so identical requests share one cached kernel solid. A Factory
// is safe for concurrent use.
type Factory struct {
	k    kernel.Kernel
	dims Dimensions

	mu     sync.Mutex
	cache  map[string]kernel.Solid
	hits   int
	misses int
}

// New returns a Factory. Non-positive dimensions fall back to defaults.
func New(k kernel.Kernel, dims Dimensions) *Factory {
	def := DefaultDimensions()
	fill := func(v *float64, d float64) {
		if *v <= 0 {
			*v = d
		}
	}
	fill(&dims.RackHeight, def.RackHeight)
	fill(&dims.RackWidth, def.RackWidth)
	fill(&dims.RackDepth, def.RackDepth)
	fill(&dims.PostSize, def.PostSize)
	fill(&dims.RailInset, def.RailInset)
	fill(&dims.LabelHeight, def.LabelHeight)
	fill(&dims.TickHeight, def.TickHeight)
	fill(&dims.StripWidth, def.StripWidth)
	fill(&dims.StripDepth, def.StripDepth)
	fill(&dims.SlabDepth, def.SlabDepth)
	return &Factory{k: k, dims: dims, cache: make(map[string]kernel.Solid)}
}

// Dimensions returns the sizes in use.
func (f *Factory) Dimensions() Dimensions { return f.dims }

// Kernel returns the geometry kernel.
func (f *Factory) Kernel() kernel.Kernel { return f.k }

// CacheStats reports solid cache hits and misses.
func (f *Factory) CacheStats() (hits, misses int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits, f.misses
}

func (f *Factory) cached(key string, build func() kernel.Solid) kernel.Solid {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.cache[key]; ok {
		f.hits++
		return s
	}
	f.misses++
	s := build()
	f.cache[key] = s
	return s
}

// UnitHeight is the scene height of one rack unit.
func (f *Factory) UnitHeight(rackU int) float64 {
	return f.dims.RackHeight / float64(units(rackU))
}

// SlotOffset is the vertical offset of a device starting at uStart:
// uStart × (rackHeight / rackU). It depends on nothing else.
func (f *Factory) SlotOffset(uStart, rackU int) float64 {
	return float64(uStart) * (f.dims.RackHeight / float64(units(rackU)))
}

func units(rackU int) int {
	if rackU <= 0 {
		return facility.DefaultRackUnits
	}
	return rackU
}

// TickUnits returns the unit positions that get a tick label: the first
// unit, every multiple of ten, and the last unit.
func TickUnits(rackU int) []int {
	u := units(rackU)
	out := []int{1}
	for i := 10; i < u; i += 10 {
		out = append(out, i)
	}
	if u > 1 {
		out = append(out, u)
	}
	return out
}

// Label returns a text sprite node tagged as a decoration of owner.
func (f *Factory) Label(text string, owner scene.Tag, c scene.Color) *scene.Node {
	n := scene.NewTagged(text, owner.WithPart(PartLabel))
	n.Renderable = scene.NewLabel(text, f.dims.LabelHeight, c)
	return n
}

// Rack builds a rack frame sized by its unit count with tick labels and a
// name label above it. The returned node carries no transform; callers apply
// the rack's placement.
func (f *Factory) Rack(r facility.Rack, tag scene.Tag) *scene.Node {
	u := r.Units()
	d := f.dims
	name := r.Name
	if name == "" {
		name = r.ID
	}

	n := scene.NewTagged(name, tag)
	frame := f.cached(fmt.Sprintf("rack:%d", u), func() kernel.Solid {
		return f.rackFrame()
	})
	n.Renderable = scene.NewSolid(frame, FrameColor)

	for _, tu := range TickUnits(u) {
		tick := scene.NewTagged("U"+strconv.Itoa(tu), tag.WithPart(PartTick))
		tick.Renderable = scene.NewLabel(strconv.Itoa(tu), d.TickHeight, TickColor)
		tick.Transform = scene.At(mgl64.Vec3{-d.TickHeight, f.SlotOffset(tu, u), d.RackDepth})
		n.Add(tick)
	}

	label := f.Label(name, tag, LabelColor)
	label.Transform = scene.At(mgl64.Vec3{d.RackWidth / 2, d.RackHeight + d.LabelHeight/2, d.RackDepth / 2})
	n.Add(label)
	return n
}

// rackFrame is four posts, top and bottom plates, and two pairs of mounting
// rails just inside the front and rear posts.
func (f *Factory) rackFrame() kernel.Solid {
	d := f.dims
	k := f.k
	post := func(x, z float64) kernel.Solid {
		return k.Translate(k.Box(mgl64.Vec3{d.PostSize, d.RackHeight, d.PostSize}), mgl64.Vec3{x, 0, z})
	}
	plate := func(y float64) kernel.Solid {
		return k.Translate(k.Box(mgl64.Vec3{d.RackWidth, d.PostSize, d.RackDepth}), mgl64.Vec3{0, y, 0})
	}
	rail := func(x, z float64) kernel.Solid {
		return k.Translate(k.Box(mgl64.Vec3{d.PostSize / 2, d.RackHeight, d.PostSize / 2}), mgl64.Vec3{x, 0, z})
	}
	xr := d.RackWidth - d.PostSize
	zf := d.RackDepth - d.PostSize
	railX := d.RailInset - d.PostSize/2
	return k.Union(
		post(0, 0), post(xr, 0), post(0, zf), post(xr, zf),
		plate(0), plate(d.RackHeight-d.PostSize),
		rail(railX, zf-d.PostSize), rail(d.RackWidth-d.RailInset, zf-d.PostSize),
		rail(railX, d.PostSize), rail(d.RackWidth-d.RailInset, d.PostSize),
	)
}

// ChassisSize is the box a slotted device of uHeight units occupies.
func (f *Factory) ChassisSize(uHeight, rackU int) mgl64.Vec3 {
	d := f.dims
	h := float64(uHeight) * f.UnitHeight(rackU)
	gap := f.UnitHeight(rackU) * 0.05
	if h > 2*gap {
		h -= gap
	}
	return mgl64.Vec3{d.RackWidth - 2*d.RailInset, h, d.RackDepth - 2*d.PostSize}
}

// Chassis builds a slotted device body placed at its unit slot.
func (f *Factory) Chassis(dev facility.Device, cat facility.Category, rackU int, tag scene.Tag) *scene.Node {
	size := f.ChassisSize(dev.UHeight, rackU)
	key := fmt.Sprintf("chassis:%s:%d:%d", variant(cat), dev.UHeight, units(rackU))
	solid := f.cached(key, func() kernel.Solid {
		return f.chassis(size, variant(cat))
	})
	n := scene.NewTagged(deviceName(dev), tag)
	n.Renderable = scene.NewSolid(solid, CategoryColor(cat))
	n.Transform = scene.At(f.ChassisOrigin(dev.UStart, rackU))
	return n
}

// ChassisOrigin is the rack-local position of a slotted device.
func (f *Factory) ChassisOrigin(uStart, rackU int) mgl64.Vec3 {
	return mgl64.Vec3{f.dims.RailInset, f.SlotOffset(uStart, rackU), f.dims.PostSize}
}

type chassisVariant string

const (
	variantBezel chassisVariant = "bezel" // recessed front panel
	variantPorts chassisVariant = "ports" // raised port row on the front
	variantPlain chassisVariant = "plain"
)

func variant(c facility.Category) chassisVariant {
	switch c {
	case facility.CategoryServer, facility.CategoryGPUServer, facility.CategoryStorage,
		facility.CategoryBlade, facility.CategoryUPS:
		return variantBezel
	case facility.CategorySwitch, facility.CategoryNetwork:
		return variantPorts
	default:
		return variantPlain
	}
}

func (f *Factory) chassis(size mgl64.Vec3, v chassisVariant) kernel.Solid {
	k := f.k
	body := k.Box(size)
	switch v {
	case variantBezel:
		inset := size[0] * 0.05
		recess := k.Box(mgl64.Vec3{size[0] - 2*inset, size[1] * 0.8, size[2] * 0.02})
		return k.Difference(body, k.Translate(recess, mgl64.Vec3{inset, size[1] * 0.1, size[2] * 0.99}))
	case variantPorts:
		ports := k.Box(mgl64.Vec3{size[0] * 0.8, size[1] * 0.4, size[2] * 0.02})
		return k.Union(body, k.Translate(ports, mgl64.Vec3{size[0] * 0.1, size[1] * 0.3, size[2]}))
	default:
		return body
	}
}

// VerticalStrip builds a side-mounted device (zero-U PDU and the like) that
// spans the rack's full height along its rear right post. The node carries
// its final rack-local position.
func (f *Factory) VerticalStrip(dev facility.Device, cat facility.Category, tag scene.Tag) *scene.Node {
	d := f.dims
	solid := f.cached("strip", func() kernel.Solid {
		return f.k.Box(mgl64.Vec3{d.StripWidth, d.RackHeight, d.StripDepth})
	})
	n := scene.NewTagged(deviceName(dev), tag)
	n.Renderable = scene.NewSolid(solid, CategoryColor(cat))
	n.Transform = scene.At(f.StripOrigin())
	return n
}

// StripOrigin is the rack-local position of a side-mounted strip.
func (f *Factory) StripOrigin() mgl64.Vec3 {
	d := f.dims
	return mgl64.Vec3{d.RackWidth - d.PostSize - d.StripWidth, 0, d.PostSize}
}

// RoomFloor builds a floor slab spanning the room footprint, just below y=0.
// Rooms without dimensions get no slab.
func (f *Factory) RoomFloor(room facility.Room, owner scene.Tag) *scene.Node {
	dim := room.Dimensions
	if dim.X <= 0 || dim.Z <= 0 {
		return nil
	}
	key := fmt.Sprintf("floor:%g:%g", dim.X, dim.Z)
	solid := f.cached(key, func() kernel.Solid {
		return f.k.Box(mgl64.Vec3{dim.X, f.dims.SlabDepth, dim.Z})
	})
	n := scene.NewTagged(PartFloor, owner.WithPart(PartFloor))
	n.Renderable = scene.NewSolid(solid, FloorColor)
	n.Transform = scene.At(mgl64.Vec3{0, -f.dims.SlabDepth, 0})
	return n
}

// FitModel wraps a loaded mesh so that its bounds fill size, with the mesh's
// minimum corner at the node origin.
func FitModel(uri string, m *kernel.Mesh, size mgl64.Vec3, c scene.Color) scene.Renderable {
	b := m.Bounds()
	s := b.Size()
	scale := mgl64.Vec3{1, 1, 1}
	for i := 0; i < 3; i++ {
		if s[i] > 0 {
			scale[i] = size[i] / s[i]
		}
	}
	fit := mgl64.Scale3D(scale[0], scale[1], scale[2]).Mul4(mgl64.Translate3D(-b.Min[0], -b.Min[1], -b.Min[2]))
	return scene.NewModel(uri, m.Transformed(fit), c)
}

func deviceName(d facility.Device) string {
	if d.Name != "" {
		return d.Name
	}
	return d.ID
}
