package camera

import (
	"math"
	"slices"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
)

// --------------------------------------------------------------------------
// Helpers
// --------------------------------------------------------------------------

func box(min, max mgl64.Vec3) kernel.AABB {
	return kernel.AABB{Min: min, Max: max}
}

// cube10 is a 10m cube centered at (5,5,5).
var cube10 = box(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{10, 10, 10})

func assertVec(t *testing.T, want, got mgl64.Vec3, msg string) {
	t.Helper()
	if !want.ApproxEqualThreshold(got, 1e-6) {
		t.Errorf("%s: want %v, got %v", msg, want, got)
	}
}

func near(t *testing.T, want, got float64, msg string) {
	t.Helper()
	if math.Abs(want-got) > 1e-9 {
		t.Errorf("%s: want %v, got %v", msg, want, got)
	}
}

func mustSetView(t *testing.T, c *Controller, v View) {
	t.Helper()
	if err := c.SetView(v, cube10); err != nil {
		t.Fatalf("SetView(%s): %v", v, err)
	}
}

// --------------------------------------------------------------------------
// ViewPose
// --------------------------------------------------------------------------

func TestViewPoseTopOfCube(t *testing.T) {
	p := ViewPose(ViewTop, cube10, 2)
	assertVec(t, mgl64.Vec3{5, 25, 5}, p.Position, "position")
	assertVec(t, mgl64.Vec3{5, 5, 5}, p.Target, "target")
	assertVec(t, mgl64.Vec3{0, 0, -1}, p.Up, "up")
}

func TestViewPoseCanonicalDirections(t *testing.T) {
	tests := []struct {
		view View
		dir  mgl64.Vec3
		up   mgl64.Vec3
	}{
		{ViewTop, mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, -1}},
		{ViewBottom, mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, 0, 1}},
		{ViewFront, mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0}},
		{ViewBack, mgl64.Vec3{0, 0, -1}, mgl64.Vec3{0, 1, 0}},
		{ViewLeft, mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{0, 1, 0}},
		{ViewRight, mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}},
		{ViewIsometric, mgl64.Vec3{1, 1, 1}.Normalize(), mgl64.Vec3{0, 1, 0}},
	}
	for _, tt := range tests {
		t.Run(string(tt.view), func(t *testing.T) {
			p := ViewPose(tt.view, cube10, 2)
			assertVec(t, tt.dir, p.Direction(), "direction")
			assertVec(t, tt.up, p.Up, "up")
			near(t, 20, p.Position.Sub(p.Target).Len(), "distance")
		})
	}
}

func TestViewPoseIsPure(t *testing.T) {
	for _, v := range CanonicalViews {
		a := ViewPose(v, cube10, 2)
		b := ViewPose(v, cube10, 2)
		if a != b {
			t.Errorf("%s: ViewPose is not deterministic", v)
		}
	}
}

func TestViewPoseDefaults(t *testing.T) {
	// Non-positive factor falls back to the default.
	p := ViewPose(ViewFront, cube10, 0)
	near(t, 10*DefaultDistanceFactor, p.Position.Sub(p.Target).Len(), "default factor")

	// Empty bounds frame a unit box at the origin.
	p = ViewPose(ViewFront, kernel.Empty(), 2)
	assertVec(t, mgl64.Vec3{0, 0, 2}, p.Position, "empty bounds")

	// Unknown view behaves as isometric.
	if ViewPose(ViewIsometric, cube10, 2) != ViewPose("sideways", cube10, 2) {
		t.Error("unknown view should behave as isometric")
	}
}

func TestFitDistance(t *testing.T) {
	d := FitDistance(cube10, 60, 1)
	r := math.Sqrt(300) / 2
	near(t, r/math.Sin(mgl64.DegToRad(30)), d, "fit distance")

	// Narrow viewports need more distance.
	if FitDistance(cube10, 60, 0.5) <= d {
		t.Error("narrow viewport should need more distance")
	}
	// Wider field of view needs less.
	if FitDistance(cube10, 90, 1) >= d {
		t.Error("wider field of view should need less distance")
	}
}

// --------------------------------------------------------------------------
// Controller
// --------------------------------------------------------------------------

func TestControllerSetViewMatchesViewPose(t *testing.T) {
	c := NewController(DefaultOptions())
	for _, v := range CanonicalViews {
		mustSetView(t, c, v)
		want := ViewPose(v, cube10, DefaultDistanceFactor)
		got := c.Pose()
		assertVec(t, want.Position, got.Position, string(v)+" position")
		assertVec(t, want.Target, got.Target, string(v)+" target")
		assertVec(t, want.Up, got.Up, string(v)+" up")
		if c.View() != v {
			t.Errorf("view = %s, want %s", c.View(), v)
		}
	}
}

func TestControllerSetViewUnknown(t *testing.T) {
	c := NewController(DefaultOptions())
	mustSetView(t, c, ViewFront)
	before := c.Pose()
	if err := c.SetView("diagonal", cube10); err == nil {
		t.Error("expected an error for an unknown view")
	}
	if c.Pose() != before || c.View() != ViewFront {
		t.Error("a rejected view must not move the camera")
	}
}

func TestControllerFitPreservesDirection(t *testing.T) {
	c := NewController(DefaultOptions())
	mustSetView(t, c, ViewIsometric)
	dir := c.Pose().Direction()
	target := c.Target()

	small := box(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 2, 2})
	c.FitToBounds(small, 1)

	assertVec(t, dir, c.Pose().Direction(), "direction")
	assertVec(t, target, c.Target(), "target")
	near(t, FitDistance(small, DefaultFOV, 1), c.Radius(), "radius")
}

func TestControllerFocusOnRecenters(t *testing.T) {
	c := NewController(DefaultOptions())
	mustSetView(t, c, ViewFront)

	rack := box(mgl64.Vec3{1, 0, 1}, mgl64.Vec3{1.6, 2, 2})
	c.FocusOn(rack, 1)

	assertVec(t, rack.Center(), c.Target(), "target")
	assertVec(t, mgl64.Vec3{0, 0, 1}, c.Pose().Direction(), "direction")
	if c.View() != ViewFront {
		t.Errorf("focus does not leave the named view, got %s", c.View())
	}
}

func TestControllerViewChangeCallback(t *testing.T) {
	c := NewController(DefaultOptions())
	var got []View
	c.OnViewChange(func(v View) { got = append(got, v) })

	mustSetView(t, c, ViewTop)
	mustSetView(t, c, ViewTop) // unchanged name, no event
	c.Rotate(10, 0)
	c.Rotate(10, 0) // already orbiting
	mustSetView(t, c, ViewFront)

	if !slices.Equal(got, []View{ViewTop, ViewOrbit, ViewFront}) {
		t.Errorf("view changes = %v", got)
	}
}

func TestControllerOrbitFromTopClampsPitch(t *testing.T) {
	c := NewController(DefaultOptions())
	mustSetView(t, c, ViewTop)
	c.Rotate(0, 10000)
	if !c.Update() {
		t.Fatal("rotate did not move the camera")
	}

	_, pitch := c.Angles()
	near(t, mgl64.DegToRad(DefaultMaxPitch), pitch, "pitch")
	assertVec(t, mgl64.Vec3{0, 1, 0}, c.Pose().Up, "orbit restores +Y up")
}

func TestControllerRotateYaw(t *testing.T) {
	opts := DefaultOptions()
	opts.RotateSpeed = 0.01
	c := NewController(opts)
	mustSetView(t, c, ViewFront)

	c.Rotate(-100, 0) // yaw += 1 rad
	if !c.Update() {
		t.Fatal("rotate did not move the camera")
	}
	yaw, _ := c.Angles()
	near(t, 1.0, yaw, "yaw")
	near(t, 20, c.Pose().Position.Sub(c.Target()).Len(), "radius is preserved")
}

func TestControllerZoomClamps(t *testing.T) {
	opts := DefaultOptions()
	opts.MinRadius = 1
	opts.MaxRadius = 50
	c := NewController(opts)
	mustSetView(t, c, ViewFront)

	c.Zoom(1e6)
	c.Update()
	near(t, 50, c.Radius(), "max radius")

	c.Zoom(-1e6)
	c.Update()
	near(t, 1, c.Radius(), "min radius")
}

func TestControllerPanMovesTarget(t *testing.T) {
	opts := DefaultOptions()
	opts.PanSpeed = 0.01
	c := NewController(opts)
	mustSetView(t, c, ViewFront)
	before := c.Target()

	c.Pan(10, 0) // drag right moves the scene right, so the target moves left
	if !c.Update() {
		t.Fatal("pan did not move the camera")
	}
	delta := c.Target().Sub(before)
	if delta[0] >= 0 {
		t.Errorf("target x moved by %v, want negative", delta[0])
	}
	near(t, 0, delta[1], "target y")
	near(t, 0, delta[2], "target z")
}

func TestControllerDamping(t *testing.T) {
	opts := DefaultOptions()
	opts.Damping = 0.5
	opts.RotateSpeed = 0.01
	c := NewController(opts)
	mustSetView(t, c, ViewFront)

	c.Rotate(-100, 0)
	c.Update()
	yaw, _ := c.Angles()
	near(t, 0.5, yaw, "half applied on the first frame")
	if !c.Pending() {
		t.Fatal("input should remain after one damped frame")
	}

	for i := 0; i < 64 && c.Pending(); i++ {
		c.Update()
	}
	if c.Pending() {
		t.Error("input never settled")
	}
	yaw, _ = c.Angles()
	if math.Abs(yaw-1.0) > 1e-6 {
		t.Errorf("settled yaw = %v, want 1", yaw)
	}
	if c.Update() {
		t.Error("idle frame does not move")
	}
}

func TestControllerRayThroughCenter(t *testing.T) {
	c := NewController(DefaultOptions())
	mustSetView(t, c, ViewFront)

	ray, err := c.Ray(400, 300, 800, 600)
	if err != nil {
		t.Fatalf("Ray: %v", err)
	}
	assertVec(t, mgl64.Vec3{0, 0, -1}, ray.Dir, "center ray looks at the target")

	if d, ok := cube10.IntersectRay(ray); !ok || d <= 0 {
		t.Errorf("center ray intersect = %v, %v", d, ok)
	}

	if _, err := c.Ray(0, 0, 0, 600); err == nil {
		t.Error("expected an error for a zero-width viewport")
	}
}

func TestControllerRayOffCenter(t *testing.T) {
	c := NewController(DefaultOptions())
	mustSetView(t, c, ViewFront)

	left, err := c.Ray(0, 300, 800, 600)
	if err != nil {
		t.Fatalf("Ray: %v", err)
	}
	top, err := c.Ray(400, 0, 800, 600)
	if err != nil {
		t.Fatalf("Ray: %v", err)
	}
	if left.Dir[0] >= 0 {
		t.Errorf("left ray x = %v, want negative", left.Dir[0])
	}
	if top.Dir[1] <= 0 {
		t.Errorf("top ray y = %v, want positive (screen y grows downward)", top.Dir[1])
	}
}

func TestOptionsDefaults(t *testing.T) {
	o := Options{Damping: 2}.withDefaults()
	if o.FOV != DefaultFOV || o.Damping != 0 || o.MaxRadius != DefaultMaxRadius {
		t.Errorf("defaults = %+v", o)
	}

	o = Options{MinRadius: 10, MaxRadius: 5}.withDefaults()
	if o.MaxRadius <= o.MinRadius {
		t.Errorf("max radius %v not above min %v", o.MaxRadius, o.MinRadius)
	}
}
