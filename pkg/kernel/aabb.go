package kernel

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// AABB is an axis-aligned bounding box. The zero value is a degenerate box at
// the origin; use Empty for an accumulator.
type AABB struct {
	Min mgl64.Vec3 `json:"min"`
	Max mgl64.Vec3 `json:"max"`
}

// Empty returns an inverted box that any Extend or Union replaces.
func Empty() AABB {
	inf := math.Inf(1)
	return AABB{
		Min: mgl64.Vec3{inf, inf, inf},
		Max: mgl64.Vec3{-inf, -inf, -inf},
	}
}

// NewAABB builds a box from two opposite corners in any order.
func NewAABB(a, b mgl64.Vec3) AABB {
	return AABB{
		Min: mgl64.Vec3{math.Min(a[0], b[0]), math.Min(a[1], b[1]), math.Min(a[2], b[2])},
		Max: mgl64.Vec3{math.Max(a[0], b[0]), math.Max(a[1], b[1]), math.Max(a[2], b[2])},
	}
}

// IsEmpty reports whether the box encloses nothing.
func (b AABB) IsEmpty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// Extend grows the box to contain p.
func (b AABB) Extend(p mgl64.Vec3) AABB {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
	return b
}

// Union returns the smallest box containing both b and o.
func (b AABB) Union(o AABB) AABB {
	if o.IsEmpty() {
		return b
	}
	if b.IsEmpty() {
		return o
	}
	return b.Extend(o.Min).Extend(o.Max)
}

// Size returns the edge lengths.
func (b AABB) Size() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Center returns the midpoint.
func (b AABB) Center() mgl64.Vec3 {
	if b.IsEmpty() {
		return mgl64.Vec3{}
	}
	return b.Min.Add(b.Max).Mul(0.5)
}

// MaxDim returns the largest edge length.
func (b AABB) MaxDim() float64 {
	s := b.Size()
	return math.Max(s[0], math.Max(s[1], s[2]))
}

// Corners returns the eight corner points.
func (b AABB) Corners() [8]mgl64.Vec3 {
	var out [8]mgl64.Vec3
	for i := 0; i < 8; i++ {
		out[i] = mgl64.Vec3{
			pick(i&1 != 0, b.Max[0], b.Min[0]),
			pick(i&2 != 0, b.Max[1], b.Min[1]),
			pick(i&4 != 0, b.Max[2], b.Min[2]),
		}
	}
	return out
}

// Transform returns the box enclosing b after applying m.
func (b AABB) Transform(m mgl64.Mat4) AABB {
	if b.IsEmpty() {
		return b
	}
	out := Empty()
	for _, c := range b.Corners() {
		out = out.Extend(mgl64.TransformCoordinate(c, m))
	}
	return out
}

// Contains reports whether p lies inside or on the box.
func (b AABB) Contains(p mgl64.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Ray is a half-line used for picking.
type Ray struct {
	Origin mgl64.Vec3
	Dir    mgl64.Vec3
}

// At returns the point at parameter t.
func (r Ray) At(t float64) mgl64.Vec3 {
	return r.Origin.Add(r.Dir.Mul(t))
}

// IntersectRay returns the entry distance of r into b using the slab method.
// A ray starting inside the box reports t = 0.
func (b AABB) IntersectRay(r Ray) (float64, bool) {
	if b.IsEmpty() {
		return 0, false
	}
	tmin, tmax := 0.0, math.Inf(1)
	for i := 0; i < 3; i++ {
		if math.Abs(r.Dir[i]) < 1e-12 {
			if r.Origin[i] < b.Min[i] || r.Origin[i] > b.Max[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / r.Dir[i]
		t1 := (b.Min[i] - r.Origin[i]) * inv
		t2 := (b.Max[i] - r.Origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

func pick(cond bool, a, b float64) float64 {
	if cond {
		return a
	}
	return b
}
