package camera

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
)

// Defaults for Options.
const (
	DefaultFOV       = 50.0
	DefaultMinRadius = 0.5
	DefaultMaxRadius = 500.0
	DefaultMaxPitch  = 89.0
)

// Options tunes the orbit controller.
type Options struct {
	FOV            float64 // vertical, degrees
	Near, Far      float64
	DistanceFactor float64
	MinRadius      float64
	MaxRadius      float64
	MaxPitch       float64 // degrees
	RotateSpeed    float64 // radians per pixel
	PanSpeed       float64 // radius fraction per pixel
	ZoomSpeed      float64 // log-radius per wheel unit
	// Damping is the share of pending input left for later frames, in [0,1).
	// Zero applies all accumulated input on the next Update.
	Damping float64
}

// DefaultOptions returns the stock controller tuning.
func DefaultOptions() Options {
	return Options{
		FOV:            DefaultFOV,
		Near:           0.01,
		Far:            5000,
		DistanceFactor: DefaultDistanceFactor,
		MinRadius:      DefaultMinRadius,
		MaxRadius:      DefaultMaxRadius,
		MaxPitch:       DefaultMaxPitch,
		RotateSpeed:    0.005,
		PanSpeed:       0.001,
		ZoomSpeed:      0.001,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	pos := func(v *float64, def float64) {
		if *v <= 0 {
			*v = def
		}
	}
	pos(&o.FOV, d.FOV)
	pos(&o.Near, d.Near)
	pos(&o.Far, d.Far)
	pos(&o.DistanceFactor, d.DistanceFactor)
	pos(&o.MinRadius, d.MinRadius)
	pos(&o.MaxRadius, d.MaxRadius)
	pos(&o.MaxPitch, d.MaxPitch)
	pos(&o.RotateSpeed, d.RotateSpeed)
	pos(&o.PanSpeed, d.PanSpeed)
	pos(&o.ZoomSpeed, d.ZoomSpeed)
	if o.Damping < 0 || o.Damping >= 1 {
		o.Damping = 0
	}
	if o.MaxRadius <= o.MinRadius {
		o.MaxRadius = o.MinRadius * 1000
	}
	return o
}

// Controller is an orbit camera. The camera sits on a sphere of radius
// around target at (yaw, pitch); canonical views set those directly and
// pointer input moves them. It is not safe for concurrent use.
type Controller struct {
	opts Options

	target mgl64.Vec3
	radius float64
	yaw    float64 // about +Y, zero looks from +Z
	pitch  float64 // elevation
	up     mgl64.Vec3
	view   View

	pendRotate mgl64.Vec2
	pendPan    mgl64.Vec2
	pendZoom   float64

	onChange func(View)
}

// NewController returns a controller at the isometric view of a unit box.
func NewController(opts Options) *Controller {
	c := &Controller{opts: opts.withDefaults()}
	c.SetView(ViewIsometric, kernel.AABB{Min: mgl64.Vec3{-0.5, -0.5, -0.5}, Max: mgl64.Vec3{0.5, 0.5, 0.5}})
	return c
}

// Options returns the effective options.
func (c *Controller) Options() Options { return c.opts }

// OnViewChange registers fn to run whenever the named view changes,
// including entering the orbit state.
func (c *Controller) OnViewChange(fn func(View)) { c.onChange = fn }

func (c *Controller) setViewName(v View) {
	changed := c.view != v
	c.view = v
	if changed && c.onChange != nil {
		c.onChange(v)
	}
}

// View returns the current view name.
func (c *Controller) View() View { return c.view }

// Target returns the orbit center.
func (c *Controller) Target() mgl64.Vec3 { return c.target }

// Radius returns the orbit radius.
func (c *Controller) Radius() float64 { return c.radius }

// Angles returns yaw and pitch in radians.
func (c *Controller) Angles() (yaw, pitch float64) { return c.yaw, c.pitch }

func (c *Controller) clampRadius(r float64) float64 {
	return mgl64.Clamp(r, c.opts.MinRadius, c.opts.MaxRadius)
}

func (c *Controller) maxPitch() float64 {
	return mgl64.DegToRad(c.opts.MaxPitch)
}

// SetView jumps to a canonical view of bounds. Unknown names report an
// error and leave the camera unchanged.
func (c *Controller) SetView(v View, bounds kernel.AABB) error {
	if !v.Valid() {
		return fmt.Errorf("unknown camera view %q", v)
	}
	p := ViewPose(v, bounds, c.opts.DistanceFactor)
	c.setPose(p)
	c.clearPending()
	c.setViewName(v)
	return nil
}

// setPose adopts p exactly, deriving spherical coordinates from it. The
// radius is clamped only from below, so canonical poses stay reproducible.
func (c *Controller) setPose(p Pose) {
	d := p.Position.Sub(p.Target)
	c.target = p.Target
	c.radius = math.Max(d.Len(), c.opts.MinRadius)
	dir := p.Direction()
	c.pitch = math.Asin(mgl64.Clamp(dir[1], -1, 1))
	c.yaw = math.Atan2(dir[0], dir[2])
	if math.Abs(dir[1]) > 1-1e-9 {
		c.yaw = 0
	}
	c.up = p.Up
}

// Pose returns the current camera placement.
func (c *Controller) Pose() Pose {
	cp := math.Cos(c.pitch)
	dir := mgl64.Vec3{cp * math.Sin(c.yaw), math.Sin(c.pitch), cp * math.Cos(c.yaw)}
	return Pose{Position: c.target.Add(dir.Mul(c.radius)), Target: c.target, Up: c.up}
}

// FitToBounds moves the camera along its current direction to the distance
// that frames bounds. Direction and target are unchanged.
func (c *Controller) FitToBounds(bounds kernel.AABB, aspect float64) {
	c.radius = c.clampRadius(FitDistance(bounds, c.opts.FOV, aspect))
}

// FocusOn re-centers the orbit on bounds and fits to it.
func (c *Controller) FocusOn(bounds kernel.AABB, aspect float64) {
	if !bounds.IsEmpty() {
		c.target = bounds.Center()
	}
	c.FitToBounds(bounds, aspect)
}

// Rotate accumulates a drag in pixels. Horizontal drags change yaw,
// vertical drags change pitch.
func (c *Controller) Rotate(dx, dy float64) {
	c.pendRotate = c.pendRotate.Add(mgl64.Vec2{dx, dy})
	c.enterOrbit()
}

// Pan accumulates a drag in pixels that moves the target in the camera's
// right/up plane.
func (c *Controller) Pan(dx, dy float64) {
	c.pendPan = c.pendPan.Add(mgl64.Vec2{dx, dy})
	c.enterOrbit()
}

// Zoom accumulates wheel delta; positive moves away.
func (c *Controller) Zoom(delta float64) {
	c.pendZoom += delta
}

// enterOrbit leaves a canonical view. The up vector returns to +Y and pitch
// is pulled off the poles so yaw stays meaningful.
func (c *Controller) enterOrbit() {
	if c.view == ViewOrbit {
		return
	}
	c.up = yUp
	mp := c.maxPitch()
	c.pitch = mgl64.Clamp(c.pitch, -mp, mp)
	c.setViewName(ViewOrbit)
}

func (c *Controller) clearPending() {
	c.pendRotate = mgl64.Vec2{}
	c.pendPan = mgl64.Vec2{}
	c.pendZoom = 0
}

// pendingEpsilon is the input magnitude below which leftovers are dropped.
const pendingEpsilon = 1e-3

// Update applies the share (1 - Damping) of accumulated input and reports
// whether the camera moved. Call it once per animation frame.
func (c *Controller) Update() bool {
	share := 1 - c.opts.Damping
	rot := c.pendRotate.Mul(share)
	pan := c.pendPan.Mul(share)
	zoom := c.pendZoom * share
	c.pendRotate = c.pendRotate.Sub(rot)
	c.pendPan = c.pendPan.Sub(pan)
	c.pendZoom -= zoom
	if c.pendRotate.Len() < pendingEpsilon {
		rot = rot.Add(c.pendRotate)
		c.pendRotate = mgl64.Vec2{}
	}
	if c.pendPan.Len() < pendingEpsilon {
		pan = pan.Add(c.pendPan)
		c.pendPan = mgl64.Vec2{}
	}
	if math.Abs(c.pendZoom) < pendingEpsilon {
		zoom += c.pendZoom
		c.pendZoom = 0
	}

	moved := false
	if rot.Len() > 0 {
		mp := c.maxPitch()
		c.yaw -= rot[0] * c.opts.RotateSpeed
		c.pitch = mgl64.Clamp(c.pitch+rot[1]*c.opts.RotateSpeed, -mp, mp)
		moved = true
	}
	if pan.Len() > 0 {
		right, up := c.basis()
		scale := c.opts.PanSpeed * c.radius
		c.target = c.target.Add(right.Mul(-pan[0] * scale)).Add(up.Mul(pan[1] * scale))
		moved = true
	}
	if zoom != 0 {
		c.radius = c.clampRadius(c.radius * math.Exp(zoom*c.opts.ZoomSpeed))
		moved = true
	}
	return moved
}

// Pending reports whether accumulated input remains.
func (c *Controller) Pending() bool {
	return c.pendRotate.Len() > 0 || c.pendPan.Len() > 0 || c.pendZoom != 0
}

// basis returns the camera's right and up unit vectors.
func (c *Controller) basis() (right, up mgl64.Vec3) {
	p := c.Pose()
	fwd := p.Target.Sub(p.Position).Normalize()
	right = fwd.Cross(p.Up)
	if right.Len() < 1e-9 {
		right = mgl64.Vec3{1, 0, 0}
	}
	right = right.Normalize()
	up = right.Cross(fwd).Normalize()
	return right, up
}

// ViewMatrix returns the look-at matrix of the current pose.
func (c *Controller) ViewMatrix() mgl64.Mat4 {
	p := c.Pose()
	return mgl64.LookAtV(p.Position, p.Target, p.Up)
}

// Projection returns the perspective matrix for a viewport aspect ratio.
func (c *Controller) Projection(aspect float64) mgl64.Mat4 {
	if aspect <= 0 {
		aspect = 1
	}
	return mgl64.Perspective(mgl64.DegToRad(c.opts.FOV), aspect, c.opts.Near, c.opts.Far)
}

// Ray returns the world-space pick ray through pixel (x, y) of a width×height
// viewport whose origin is the top-left corner.
func (c *Controller) Ray(x, y float64, width, height int) (kernel.Ray, error) {
	if width <= 0 || height <= 0 {
		return kernel.Ray{}, fmt.Errorf("invalid viewport %dx%d", width, height)
	}
	view := c.ViewMatrix()
	proj := c.Projection(float64(width) / float64(height))
	winY := float64(height) - y
	near, err := mgl64.UnProject(mgl64.Vec3{x, winY, 0}, view, proj, 0, 0, width, height)
	if err != nil {
		return kernel.Ray{}, fmt.Errorf("unproject near: %w", err)
	}
	far, err := mgl64.UnProject(mgl64.Vec3{x, winY, 1}, view, proj, 0, 0, width, height)
	if err != nil {
		return kernel.Ray{}, fmt.Errorf("unproject far: %w", err)
	}
	return kernel.Ray{Origin: near, Dir: far.Sub(near).Normalize()}, nil
}

// State is a JSON-ready snapshot of the controller.
type State struct {
	View   View    `json:"view"`
	Pose   Pose    `json:"pose"`
	Radius float64 `json:"radius"`
	Yaw    float64 `json:"yaw"`
	Pitch  float64 `json:"pitch"`
	FOV    float64 `json:"fov"`
}

// State returns the current snapshot.
func (c *Controller) State() State {
	return State{
		View:   c.view,
		Pose:   c.Pose(),
		Radius: c.radius,
		Yaw:    c.yaw,
		Pitch:  c.pitch,
		FOV:    c.opts.FOV,
	}
}
