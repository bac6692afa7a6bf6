package kernel

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Compile-time interface check.
var _ Kernel = (*BoxKernel)(nil)

// boxSolid is a set of oriented boxes, each stored as a unit cube mapped
// through a matrix.
type boxSolid struct {
	parts []mgl64.Mat4
}

func (s *boxSolid) Bounds() AABB {
	b := Empty()
	unit := AABB{Max: mgl64.Vec3{1, 1, 1}}
	for _, m := range s.parts {
		b = b.Union(unit.Transform(m))
	}
	return b
}

// BoxKernel is an analytic kernel that represents every solid as a set of
// cuboids. Cylinders become their bounding prisms and differences keep the
// minuend. It meshes instantly, which suits tests and large sites where the
// SDF kernel's marching cubes would be too slow.
type BoxKernel struct{}

// NewBoxKernel returns a BoxKernel.
func NewBoxKernel() *BoxKernel {
	return &BoxKernel{}
}

func (k *BoxKernel) unwrap(s Solid) *boxSolid {
	if b, ok := s.(*boxSolid); ok {
		return b
	}
	// Foreign solids are approximated by their bounds.
	bb := s.Bounds()
	return &boxSolid{parts: []mgl64.Mat4{boxMatrix(bb.Min, bb.Size())}}
}

func boxMatrix(min, size mgl64.Vec3) mgl64.Mat4 {
	return mgl64.Translate3D(min[0], min[1], min[2]).Mul4(mgl64.Scale3D(size[0], size[1], size[2]))
}

// Box returns a box with its minimum corner at the origin.
func (k *BoxKernel) Box(size mgl64.Vec3) Solid {
	return &boxSolid{parts: []mgl64.Mat4{boxMatrix(mgl64.Vec3{}, size)}}
}

// Cylinder returns the bounding prism of a Y-up cylinder centered on the origin.
func (k *BoxKernel) Cylinder(height, radius float64) Solid {
	min := mgl64.Vec3{-radius, -height / 2, -radius}
	return &boxSolid{parts: []mgl64.Mat4{boxMatrix(min, mgl64.Vec3{2 * radius, height, 2 * radius})}}
}

func (k *BoxKernel) Union(solids ...Solid) Solid {
	out := &boxSolid{}
	for _, s := range solids {
		out.parts = append(out.parts, k.unwrap(s).parts...)
	}
	return out
}

func (k *BoxKernel) Difference(a, _ Solid) Solid {
	return k.unwrap(a)
}

func (k *BoxKernel) Translate(s Solid, offset mgl64.Vec3) Solid {
	return k.apply(s, mgl64.Translate3D(offset[0], offset[1], offset[2]))
}

func (k *BoxKernel) Rotate(s Solid, euler mgl64.Vec3) Solid {
	return k.apply(s, mgl64.AnglesToQuat(euler[0], euler[1], euler[2], mgl64.XYZ).Mat4())
}

func (k *BoxKernel) apply(s Solid, m mgl64.Mat4) Solid {
	src := k.unwrap(s)
	out := &boxSolid{parts: make([]mgl64.Mat4, len(src.parts))}
	for i, p := range src.parts {
		out.parts[i] = m.Mul4(p)
	}
	return out
}

// cubeFaces lists each face of the unit cube as four corner indices in
// counter-clockwise order seen from outside, plus its outward normal.
var cubeFaces = []struct {
	corners [4]int
	normal  mgl64.Vec3
}{
	{[4]int{0, 4, 6, 2}, mgl64.Vec3{-1, 0, 0}},
	{[4]int{1, 3, 7, 5}, mgl64.Vec3{1, 0, 0}},
	{[4]int{0, 1, 5, 4}, mgl64.Vec3{0, -1, 0}},
	{[4]int{2, 6, 7, 3}, mgl64.Vec3{0, 1, 0}},
	{[4]int{0, 2, 3, 1}, mgl64.Vec3{0, 0, -1}},
	{[4]int{4, 5, 7, 6}, mgl64.Vec3{0, 0, 1}},
}

// ToMesh emits 12 triangles per box.
func (k *BoxKernel) ToMesh(s Solid) (*Mesh, error) {
	src := k.unwrap(s)
	unit := AABB{Max: mgl64.Vec3{1, 1, 1}}.Corners()
	out := &Mesh{}
	for _, m := range src.parts {
		face := &Mesh{}
		for _, f := range cubeFaces {
			base := uint32(face.VertexCount())
			for _, ci := range f.corners {
				p := unit[ci]
				face.Vertices = append(face.Vertices, float32(p[0]), float32(p[1]), float32(p[2]))
				face.Normals = append(face.Normals, float32(f.normal[0]), float32(f.normal[1]), float32(f.normal[2]))
			}
			face.Indices = append(face.Indices, base, base+1, base+2, base, base+2, base+3)
		}
		out.Append(face.Transformed(m))
	}
	return out, nil
}
