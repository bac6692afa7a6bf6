package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
)

// Transform is a node's placement in its parent's frame. Rotation holds XYZ
// Euler angles in radians.
type Transform struct {
	Position mgl64.Vec3 `json:"position"`
	Rotation mgl64.Vec3 `json:"rotation"`
	Scale    mgl64.Vec3 `json:"scale"`
}

// Identity returns the transform that leaves a node where its parent is.
func Identity() Transform {
	return Transform{Scale: mgl64.Vec3{1, 1, 1}}
}

// At returns an identity transform translated to p.
func At(p mgl64.Vec3) Transform {
	t := Identity()
	t.Position = p
	return t
}

// FromFacility converts exported placement data. An omitted scale becomes
// unit scale.
func FromFacility(t facility.Transform) Transform {
	t = t.Normalized()
	return Transform{
		Position: mgl64.Vec3{t.Position.X, t.Position.Y, t.Position.Z},
		Rotation: mgl64.Vec3{t.Rotation.X, t.Rotation.Y, t.Rotation.Z},
		Scale:    mgl64.Vec3{t.Scale.X, t.Scale.Y, t.Scale.Z},
	}
}

// Quat returns the rotation as a quaternion.
func (t Transform) Quat() mgl64.Quat {
	return mgl64.AnglesToQuat(t.Rotation[0], t.Rotation[1], t.Rotation[2], mgl64.XYZ)
}

// Matrix composes T·R·S.
func (t Transform) Matrix() mgl64.Mat4 {
	tr := mgl64.Translate3D(t.Position[0], t.Position[1], t.Position[2])
	rot := t.Quat().Mat4()
	sc := mgl64.Scale3D(t.Scale[0], t.Scale[1], t.Scale[2])
	return tr.Mul4(rot).Mul4(sc)
}

// Apply sets n's local transform from facility placement data and returns n.
func Apply(n *Node, t facility.Transform) *Node {
	if n != nil {
		n.Transform = FromFacility(t)
	}
	return n
}
