// Package sdfx implements the kernel.Kernel interface using the
// github.com/deadsy/sdfx SDF-based CAD library.
package sdfx

import (
	"fmt"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
)

// Compile-time interface check.
var _ kernel.Kernel = (*SdfxKernel)(nil)

// DefaultMeshCells controls marching cubes tessellation resolution along the
// longest axis of a solid.
const DefaultMeshCells = 64

// minExtent keeps degenerate primitives (zero-depth labels, zero-height
// strips) representable as SDFs.
const minExtent = 1e-4

// sdfxSolid wraps an sdf.SDF3 to implement kernel.Solid.
type sdfxSolid struct {
	s sdf.SDF3
}

// Bounds returns the axis-aligned bounding box.
func (s *sdfxSolid) Bounds() kernel.AABB {
	bb := s.s.BoundingBox()
	return kernel.AABB{
		Min: mgl64.Vec3{bb.Min.X, bb.Min.Y, bb.Min.Z},
		Max: mgl64.Vec3{bb.Max.X, bb.Max.Y, bb.Max.Z},
	}
}

// SdfxKernel implements kernel.Kernel using sdfx.
type SdfxKernel struct {
	cells int
}

// Option configures an SdfxKernel.
type Option func(*SdfxKernel)

// WithMeshCells sets the marching cubes resolution.
func WithMeshCells(n int) Option {
	return func(k *SdfxKernel) {
		if n > 0 {
			k.cells = n
		}
	}
}

// New returns a new SdfxKernel.
func New(opts ...Option) *SdfxKernel {
	k := &SdfxKernel{cells: DefaultMeshCells}
	for _, o := range opts {
		o(k)
	}
	return k
}

// unwrap extracts the underlying sdf.SDF3 from a kernel.Solid.
func unwrap(s kernel.Solid) sdf.SDF3 {
	return s.(*sdfxSolid).s
}

// wrap creates a kernel.Solid from an sdf.SDF3.
func wrap(s sdf.SDF3) kernel.Solid {
	return &sdfxSolid{s: s}
}

func vec(v mgl64.Vec3) v3.Vec {
	return v3.Vec{X: v[0], Y: v[1], Z: v[2]}
}

func clampExtent(x float64) float64 {
	if x < minExtent {
		return minExtent
	}
	return x
}

// Box creates a box with the given dimensions. The resulting solid has its
// minimum corner at the origin so that a device's placement offset is its
// bottom face. sdf.Box3D centers the box at the origin, so we translate by
// half-dimensions.
func (k *SdfxKernel) Box(size mgl64.Vec3) kernel.Solid {
	x, y, z := clampExtent(size[0]), clampExtent(size[1]), clampExtent(size[2])
	s, err := sdf.Box3D(v3.Vec{X: x, Y: y, Z: z}, 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Box3D: %v", err))
	}
	// Shift from center-origin to min-corner-origin.
	m := sdf.Translate3d(v3.Vec{X: x / 2, Y: y / 2, Z: z / 2})
	return wrap(sdf.Transform3D(s, m))
}

// Cylinder creates a Y-up cylinder centered on the origin. sdfx builds
// cylinders along Z, so the result is rotated a quarter turn about X.
func (k *SdfxKernel) Cylinder(height, radius float64) kernel.Solid {
	s, err := sdf.Cylinder3D(clampExtent(height), clampExtent(radius), 0)
	if err != nil {
		panic(fmt.Sprintf("sdfx.Cylinder3D: %v", err))
	}
	return wrap(sdf.Transform3D(s, sdf.RotateX(sdf.DtoR(90))))
}

// Union returns the union of the given solids.
func (k *SdfxKernel) Union(solids ...kernel.Solid) kernel.Solid {
	parts := make([]sdf.SDF3, len(solids))
	for i, s := range solids {
		parts[i] = unwrap(s)
	}
	return wrap(sdf.Union3D(parts...))
}

// Difference returns the difference a - b.
func (k *SdfxKernel) Difference(a, b kernel.Solid) kernel.Solid {
	return wrap(sdf.Difference3D(unwrap(a), unwrap(b)))
}

// Translate moves a solid by offset.
func (k *SdfxKernel) Translate(s kernel.Solid, offset mgl64.Vec3) kernel.Solid {
	return wrap(sdf.Transform3D(unwrap(s), sdf.Translate3d(vec(offset))))
}

// Rotate rotates a solid by XYZ Euler angles in radians.
func (k *SdfxKernel) Rotate(s kernel.Solid, euler mgl64.Vec3) kernel.Solid {
	m := sdf.RotateZ(euler[2]).Mul(sdf.RotateY(euler[1])).Mul(sdf.RotateX(euler[0]))
	return wrap(sdf.Transform3D(unwrap(s), m))
}

// ToMesh converts a solid to a triangle mesh using marching cubes.
func (k *SdfxKernel) ToMesh(s kernel.Solid) (*kernel.Mesh, error) {
	sdf3 := unwrap(s)

	renderer := render.NewMarchingCubesUniform(k.cells)
	triangles := render.ToTriangles(sdf3, renderer)
	if len(triangles) == 0 {
		return nil, fmt.Errorf("sdfx: marching cubes produced no triangles at %d cells", k.cells)
	}

	numVerts := len(triangles) * 3
	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		// Compute face normal.
		n := tri.Normal()
		nx := float32(n.X)
		ny := float32(n.Y)
		nz := float32(n.Z)

		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
	}, nil
}
