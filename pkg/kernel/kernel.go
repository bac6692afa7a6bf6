// Package kernel defines the abstract geometry kernel the scene engine builds
// its primitives with. Implementations (sdfx) provide solid modeling and
// boolean operations behind this interface, so the primitive factory never
// depends on a particular backend.
package kernel

import "github.com/go-gl/mathgl/mgl64"

// Solid is an opaque handle to a geometry kernel solid.
// Implementations wrap their internal representation.
type Solid interface {
	// Bounds returns the axis-aligned bounding box in the solid's local frame.
	Bounds() AABB
}

// Kernel is the abstract geometry kernel interface.
type Kernel interface {
	// Box returns a box whose minimum corner sits at the origin.
	Box(size mgl64.Vec3) Solid
	// Cylinder returns a Y-up cylinder centered on the origin.
	Cylinder(height, radius float64) Solid

	Union(solids ...Solid) Solid
	Difference(a, b Solid) Solid

	Translate(s Solid, offset mgl64.Vec3) Solid
	// Rotate applies XYZ Euler angles in radians.
	Rotate(s Solid, euler mgl64.Vec3) Solid

	// ToMesh tessellates a solid into triangles.
	ToMesh(s Solid) (*Mesh, error)
}
