package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
)

// Hit is the result of a successful pick.
type Hit struct {
	Node     *Node
	Tag      Tag
	Distance float64
	Point    mgl64.Vec3
}

// Pick casts ray into the subtree at root and returns the best visible tagged
// hit. Lines are never pickable. Inner entities win over their containers
// (device over rack over room) and nearer hits win within a class.
// Decorative parts resolve to their owner's tag.
func Pick(root *Node, ray kernel.Ray) (Hit, bool) {
	var best Hit
	found := false
	if root == nil {
		return best, false
	}
	if l := ray.Dir.Len(); l > 0 {
		ray.Dir = ray.Dir.Mul(1 / l)
	} else {
		return best, false
	}

	var visit func(n *Node, parent mgl64.Mat4)
	visit = func(n *Node, parent mgl64.Mat4) {
		if n.hidden {
			return
		}
		m := parent.Mul4(n.Transform.Matrix())
		if n.Tag != nil && n.Renderable != nil && n.Renderable.Surface().Visible {
			if _, isLine := n.Renderable.(*Line); !isLine {
				wb := n.Renderable.Bounds().Transform(m)
				if t, ok := wb.IntersectRay(ray); ok {
					h := Hit{Node: n, Tag: *n.Tag, Distance: t, Point: ray.At(t)}
					if !found || better(h, best) {
						best, found = h, true
					}
				}
			}
		}
		for _, c := range n.children {
			visit(c, m)
		}
	}
	parent := mgl64.Ident4()
	if root.parent != nil {
		parent = root.parent.WorldMatrix()
	}
	visit(root, parent)
	if found {
		best.Tag.Part = ""
	}
	return best, found
}

func better(a, b Hit) bool {
	if a.Tag.EntityType != b.Tag.EntityType {
		return a.Tag.EntityType > b.Tag.EntityType
	}
	return a.Distance < b.Distance
}
