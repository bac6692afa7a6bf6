package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
)

// Renderable is the fixed capability set every drawable exposes. It is a
// closed union: Solid, Model, Label and Line are the only implementations.
type Renderable interface {
	SetColor(Color)
	SetEmissive(Color)
	SetVisible(bool)
	// Bounds returns the axis-aligned bounds in the owning node's local frame.
	Bounds() kernel.AABB
	// Dispose releases geometry. A disposed renderable keeps answering but
	// reports empty bounds.
	Dispose()
	Disposed() bool
	Surface() *Material

	isRenderable()
}

// Material holds the appearance state shared by all renderables.
type Material struct {
	Color    Color   `json:"color"`
	Emissive Color   `json:"emissive"`
	Opacity  float64 `json:"opacity"`
	Visible  bool    `json:"visible"`

	disposed bool
}

// NewMaterial returns an opaque, visible material.
func NewMaterial(c Color) Material {
	return Material{Color: c, Opacity: 1, Visible: true}
}

func (m *Material) SetColor(c Color)    { m.Color = c }
func (m *Material) SetEmissive(c Color) { m.Emissive = c }
func (m *Material) SetVisible(v bool)   { m.Visible = v }
func (m *Material) Disposed() bool      { return m.disposed }
func (m *Material) Surface() *Material  { return m }

// Solid is kernel geometry: rack frames, chassis, floor slabs.
type Solid struct {
	Material
	Geometry kernel.Solid
}

// NewSolid wraps kernel geometry with a material of color c.
func NewSolid(g kernel.Solid, c Color) *Solid {
	return &Solid{Material: NewMaterial(c), Geometry: g}
}

func (s *Solid) Bounds() kernel.AABB {
	if s.Geometry == nil {
		return kernel.Empty()
	}
	return s.Geometry.Bounds()
}

func (s *Solid) Dispose() {
	s.Geometry = nil
	s.disposed = true
}

func (*Solid) isRenderable() {}

// Model is a mesh loaded from an external asset.
type Model struct {
	Material
	URI  string
	Mesh *kernel.Mesh

	bounds kernel.AABB
}

// NewModel wraps a loaded mesh.
func NewModel(uri string, m *kernel.Mesh, c Color) *Model {
	return &Model{Material: NewMaterial(c), URI: uri, Mesh: m, bounds: m.Bounds()}
}

func (m *Model) Bounds() kernel.AABB {
	if m.Mesh == nil {
		return kernel.Empty()
	}
	return m.bounds
}

func (m *Model) Dispose() {
	m.Mesh = nil
	m.disposed = true
}

func (*Model) isRenderable() {}

// labelAspect approximates glyph width relative to text height.
const labelAspect = 0.6

// Label is a camera-facing text sprite, centered horizontally on its origin
// with its baseline at y=0.
type Label struct {
	Material
	Text   string
	Height float64
}

// NewLabel returns a label of the given text height.
func NewLabel(text string, height float64, c Color) *Label {
	return &Label{Material: NewMaterial(c), Text: text, Height: height}
}

func (l *Label) Bounds() kernel.AABB {
	if l.disposed {
		return kernel.Empty()
	}
	w := float64(len([]rune(l.Text))) * l.Height * labelAspect
	return kernel.AABB{
		Min: mgl64.Vec3{-w / 2, 0, 0},
		Max: mgl64.Vec3{w / 2, l.Height, 0},
	}
}

func (l *Label) Dispose() { l.disposed = true }

func (*Label) isRenderable() {}

// Line is a polyline, used for connection edges.
type Line struct {
	Material
	Points []mgl64.Vec3
	Width  float64
}

// NewLine returns a polyline through points.
func NewLine(points []mgl64.Vec3, width float64, c Color) *Line {
	return &Line{Material: NewMaterial(c), Points: points, Width: width}
}

func (l *Line) Bounds() kernel.AABB {
	b := kernel.Empty()
	for _, p := range l.Points {
		b = b.Extend(p)
	}
	return b
}

// Length returns the total polyline length.
func (l *Line) Length() float64 {
	total := 0.0
	for i := 1; i < len(l.Points); i++ {
		total += l.Points[i].Sub(l.Points[i-1]).Len()
	}
	return total
}

func (l *Line) Dispose() {
	l.Points = nil
	l.disposed = true
}

func (*Line) isRenderable() {}

// Compile-time checks.
var (
	_ Renderable = (*Solid)(nil)
	_ Renderable = (*Model)(nil)
	_ Renderable = (*Label)(nil)
	_ Renderable = (*Line)(nil)
)
