// Package camera computes camera poses for canonical views and bounds
// fitting, and runs an orbit controller driven by accumulated pointer input.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
)

// View names a canonical camera placement, or the free orbit state.
type View string

const (
	ViewTop         View = "top"
	ViewBottom      View = "bottom"
	ViewFront       View = "front"
	ViewBack        View = "back"
	ViewLeft        View = "left"
	ViewRight       View = "right"
	ViewIsometric   View = "isometric"
	ViewPerspective View = "perspective"

	// ViewOrbit is entered whenever the user drags.
	ViewOrbit View = "orbit"
)

// CanonicalViews lists the views SetView accepts.
var CanonicalViews = []View{
	ViewTop, ViewBottom, ViewFront, ViewBack, ViewLeft, ViewRight, ViewIsometric, ViewPerspective,
}

type viewDef struct {
	dir mgl64.Vec3 // from target toward camera
	up  mgl64.Vec3
}

var yUp = mgl64.Vec3{0, 1, 0}

// Top and bottom look along ±Y, so "up" on screen is taken from Z to keep
// north consistent.
var views = map[View]viewDef{
	ViewTop:         {mgl64.Vec3{0, 1, 0}, mgl64.Vec3{0, 0, -1}},
	ViewBottom:      {mgl64.Vec3{0, -1, 0}, mgl64.Vec3{0, 0, 1}},
	ViewFront:       {mgl64.Vec3{0, 0, 1}, yUp},
	ViewBack:        {mgl64.Vec3{0, 0, -1}, yUp},
	ViewLeft:        {mgl64.Vec3{-1, 0, 0}, yUp},
	ViewRight:       {mgl64.Vec3{1, 0, 0}, yUp},
	ViewIsometric:   {mgl64.Vec3{1, 1, 1}.Normalize(), yUp},
	ViewPerspective: {mgl64.Vec3{0.6, 0.5, 1}.Normalize(), yUp},
}

// Valid reports whether v is a canonical view.
func (v View) Valid() bool {
	_, ok := views[v]
	return ok
}

// Pose is a camera placement.
type Pose struct {
	Position mgl64.Vec3 `json:"position"`
	Target   mgl64.Vec3 `json:"target"`
	Up       mgl64.Vec3 `json:"up"`
}

// Direction returns the unit vector from target to position.
func (p Pose) Direction() mgl64.Vec3 {
	d := p.Position.Sub(p.Target)
	if d.Len() == 0 {
		return mgl64.Vec3{0, 0, 1}
	}
	return d.Normalize()
}

// DefaultDistanceFactor places canonical cameras this many bounds-lengths away.
const DefaultDistanceFactor = 2.0

// boundsFrame returns the center and largest dimension of b, substituting a
// unit box at the origin when b is empty.
func boundsFrame(b kernel.AABB) (mgl64.Vec3, float64) {
	if b.IsEmpty() {
		return mgl64.Vec3{}, 1
	}
	d := b.MaxDim()
	if d <= 0 {
		d = 1
	}
	return b.Center(), d
}

// ViewPose returns the pose for a canonical view of bounds: looking at the
// bounds' center from factor × its largest dimension along the view's
// direction. It depends on nothing but its arguments. Unknown views are
// treated as isometric; a non-positive factor uses DefaultDistanceFactor.
func ViewPose(v View, bounds kernel.AABB, factor float64) Pose {
	def, ok := views[v]
	if !ok {
		def = views[ViewIsometric]
	}
	if factor <= 0 {
		factor = DefaultDistanceFactor
	}
	center, dim := boundsFrame(bounds)
	return Pose{
		Position: center.Add(def.dir.Mul(dim * factor)),
		Target:   center,
		Up:       def.up,
	}
}

// FitDistance is the distance at which a camera with vertical field of view
// fovDeg and the given aspect ratio sees the bounds' enclosing sphere.
func FitDistance(bounds kernel.AABB, fovDeg, aspect float64) float64 {
	_, dim := boundsFrame(bounds)
	r := dim / 2
	if !bounds.IsEmpty() {
		if s := bounds.Size().Len() / 2; s > 0 {
			r = s
		}
	}
	if fovDeg <= 0 || fovDeg >= 180 {
		fovDeg = DefaultFOV
	}
	half := mgl64.DegToRad(fovDeg) / 2
	if aspect > 0 && aspect < 1 {
		// Narrow viewports are limited by the horizontal field of view.
		half = math.Atan(math.Tan(half) * aspect)
	}
	return r / math.Sin(half)
}
