package sdfx

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

// Low resolution keeps marching cubes fast in tests.
func newTestKernel() *SdfxKernel {
	return New(WithMeshCells(24))
}

func TestBox(t *testing.T) {
	k := newTestKernel()
	box := k.Box(mgl64.Vec3{0.6, 2.0, 1.0})
	mesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	triCount := mesh.TriangleCount()
	if triCount == 0 {
		t.Fatal("expected non-zero triangle count")
	}
	// Verify vertex and index array sizes are consistent.
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if len(mesh.Indices) != triCount*3 {
		t.Fatalf("indices length %d != triCount*3 %d", len(mesh.Indices), triCount*3)
	}
}

func TestBoxMinCornerOrigin(t *testing.T) {
	k := newTestKernel()
	b := k.Box(mgl64.Vec3{100, 50, 25}).Bounds()

	const tol = 0.01
	expectMin := mgl64.Vec3{0, 0, 0}
	expectMax := mgl64.Vec3{100, 50, 25}
	for i := 0; i < 3; i++ {
		if math.Abs(b.Min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected %f", i, b.Min[i], expectMin[i])
		}
		if math.Abs(b.Max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected %f", i, b.Max[i], expectMax[i])
		}
	}
}

func TestDegenerateBox(t *testing.T) {
	k := newTestKernel()
	b := k.Box(mgl64.Vec3{1, 0, 1}).Bounds()
	if b.Size()[1] <= 0 {
		t.Errorf("zero-height box should be clamped to a thin slab, got %v", b)
	}
}

func TestCylinderIsYUp(t *testing.T) {
	k := newTestKernel()
	b := k.Cylinder(2, 0.25).Bounds()
	size := b.Size()
	const tol = 0.01
	if math.Abs(size[1]-2) > tol {
		t.Errorf("cylinder Y extent = %f, expected 2", size[1])
	}
	if math.Abs(size[0]-0.5) > tol || math.Abs(size[2]-0.5) > tol {
		t.Errorf("cylinder XZ extents = %f,%f, expected 0.5", size[0], size[2])
	}
	if !b.Center().ApproxEqualThreshold(mgl64.Vec3{}, tol) {
		t.Errorf("cylinder center = %v, expected origin", b.Center())
	}
}

func TestDifference(t *testing.T) {
	k := newTestKernel()

	box := k.Box(mgl64.Vec3{100, 100, 100})
	boxMesh, err := k.ToMesh(box)
	if err != nil {
		t.Fatalf("ToMesh(box) failed: %v", err)
	}

	hole := k.Translate(k.Cylinder(120, 20), mgl64.Vec3{50, 50, 50})
	diff := k.Difference(box, hole)
	diffMesh, err := k.ToMesh(diff)
	if err != nil {
		t.Fatalf("ToMesh(diff) failed: %v", err)
	}
	// A box with a hole should have more triangles than a plain box.
	if diffMesh.TriangleCount() <= boxMesh.TriangleCount() {
		t.Fatalf("difference (%d triangles) should have more triangles than box (%d triangles)",
			diffMesh.TriangleCount(), boxMesh.TriangleCount())
	}
}

func TestUnion(t *testing.T) {
	k := newTestKernel()
	box1 := k.Box(mgl64.Vec3{50, 50, 50})
	box2 := k.Translate(k.Box(mgl64.Vec3{50, 50, 50}), mgl64.Vec3{30, 0, 0})
	box3 := k.Translate(k.Box(mgl64.Vec3{50, 50, 50}), mgl64.Vec3{0, 30, 0})
	u := k.Union(box1, box2, box3)

	b := u.Bounds()
	if math.Abs(b.Max[0]-80) > 0.5 || math.Abs(b.Max[1]-80) > 0.5 {
		t.Errorf("union bounds = %v, expected max (80,80,50)", b)
	}
	mesh, err := k.ToMesh(u)
	if err != nil {
		t.Fatalf("ToMesh failed: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("union mesh is empty")
	}
}

func TestTranslate(t *testing.T) {
	k := newTestKernel()
	box := k.Box(mgl64.Vec3{10, 10, 10})
	b := k.Translate(box, mgl64.Vec3{100, 200, 300}).Bounds()

	const tol = 0.5
	expectMin := mgl64.Vec3{100, 200, 300}
	expectMax := mgl64.Vec3{110, 210, 310}
	for i := 0; i < 3; i++ {
		if math.Abs(b.Min[i]-expectMin[i]) > tol {
			t.Errorf("min[%d] = %f, expected ~%f", i, b.Min[i], expectMin[i])
		}
		if math.Abs(b.Max[i]-expectMax[i]) > tol {
			t.Errorf("max[%d] = %f, expected ~%f", i, b.Max[i], expectMax[i])
		}
	}
}

func TestRotate(t *testing.T) {
	k := newTestKernel()
	box := k.Box(mgl64.Vec3{100, 10, 10})

	// A long box along X rotated a quarter turn around Z should extend along Y instead.
	rotated := k.Rotate(box, mgl64.Vec3{0, 0, math.Pi / 2})
	size := rotated.Bounds().Size()

	const tol = 1.0
	if math.Abs(size[0]-10) > tol {
		t.Errorf("rotated X extent = %f, expected ~10", size[0])
	}
	if math.Abs(size[1]-100) > tol {
		t.Errorf("rotated Y extent = %f, expected ~100", size[1])
	}
}
