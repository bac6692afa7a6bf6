package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
)

// Highlight is the interaction state the projector assigns to a node.
type Highlight int

const (
	HighlightNone Highlight = iota
	HighlightSelected
	HighlightRelated
)

func (h Highlight) String() string {
	switch h {
	case HighlightSelected:
		return "selected"
	case HighlightRelated:
		return "related"
	default:
		return "none"
	}
}

// MarshalText renders the highlight by name.
func (h Highlight) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Tag links a node back to the facility entity it represents. Decorative
// parts (posts, labels, ticks) carry their owner's tag with Part set.
type Tag struct {
	EntityType facility.EntityType `json:"entityType"`
	EntityID   string              `json:"entityId"`
	Part       string              `json:"part,omitempty"`
	Status     facility.Status4D   `json:"status4D,omitempty"`
	LogicalID  string              `json:"logicalEquipmentId,omitempty"`
	Category   facility.Category   `json:"category,omitempty"`
	Synthetic  bool                `json:"synthetic,omitempty"`
}

// IsBody reports whether the tag names the entity itself rather than one of
// its decorations.
func (t Tag) IsBody() bool { return t.Part == "" }

// WithPart returns a copy of t marked as decoration part.
func (t Tag) WithPart(part string) Tag {
	t.Part = part
	return t
}

// Node is one element of the rendered graph.
type Node struct {
	Name       string
	Tag        *Tag
	Transform  Transform
	Renderable Renderable
	Highlight  Highlight

	parent   *Node
	children []*Node
	hidden   bool
}

// NewNode returns an empty node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: Identity()}
}

// NewTagged returns an empty node tagged with tag.
func NewTagged(name string, tag Tag) *Node {
	n := NewNode(name)
	n.Tag = &tag
	return n
}

// Parent returns the containing node, or nil for a root.
func (n *Node) Parent() *Node { return n.parent }

// Children returns the direct children. The slice must not be modified.
func (n *Node) Children() []*Node { return n.children }

// Add attaches child under n, detaching it from any previous parent. Adding
// n itself or one of its ancestors is refused and reported as false.
func (n *Node) Add(child *Node) bool {
	if child == nil {
		return false
	}
	for p := n; p != nil; p = p.parent {
		if p == child {
			return false
		}
	}
	child.Detach()
	child.parent = n
	n.children = append(n.children, child)
	return true
}

// Detach removes n from its parent.
func (n *Node) Detach() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// SetVisible toggles the node and its renderable. Children keep their own
// flag but are not drawn while an ancestor is hidden.
func (n *Node) SetVisible(v bool) {
	n.hidden = !v
	if n.Renderable != nil {
		n.Renderable.SetVisible(v)
	}
}

// Visible reports the node's own flag.
func (n *Node) Visible() bool { return !n.hidden }

// EffectivelyVisible reports whether n and every ancestor are visible.
func (n *Node) EffectivelyVisible() bool {
	for p := n; p != nil; p = p.parent {
		if p.hidden {
			return false
		}
	}
	return true
}

// SetColor forwards to the renderable, if any.
func (n *Node) SetColor(c Color) {
	if n.Renderable != nil {
		n.Renderable.SetColor(c)
	}
}

// SetEmissive forwards to the renderable, if any.
func (n *Node) SetEmissive(c Color) {
	if n.Renderable != nil {
		n.Renderable.SetEmissive(c)
	}
}

// Path returns the chain of nodes from the root down to n.
func (n *Node) Path() []*Node {
	var rev []*Node
	for p := n; p != nil; p = p.parent {
		rev = append(rev, p)
	}
	out := make([]*Node, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out
}

// WorldMatrix returns root·…·parent·local.
func (n *Node) WorldMatrix() mgl64.Mat4 {
	m := mgl64.Ident4()
	for _, p := range n.Path() {
		m = m.Mul4(p.Transform.Matrix())
	}
	return m
}

// WorldPosition returns the node origin in world space.
func (n *Node) WorldPosition() mgl64.Vec3 {
	return mgl64.TransformCoordinate(mgl64.Vec3{}, n.WorldMatrix())
}

// WorldBounds returns the world-space bounds of the visible renderables in
// the subtree rooted at n. Hidden subtrees are skipped.
func (n *Node) WorldBounds() kernel.AABB {
	b := kernel.Empty()
	if !n.EffectivelyVisible() {
		return b
	}
	var visit func(x *Node, parent mgl64.Mat4)
	visit = func(x *Node, parent mgl64.Mat4) {
		if x.hidden {
			return
		}
		m := parent.Mul4(x.Transform.Matrix())
		if x.Renderable != nil {
			b = b.Union(x.Renderable.Bounds().Transform(m))
		}
		for _, c := range x.children {
			visit(c, m)
		}
	}
	parent := mgl64.Ident4()
	if n.parent != nil {
		parent = n.parent.WorldMatrix()
	}
	visit(n, parent)
	return b
}

// Walk visits n and its descendants depth-first in child order. Returning
// false from fn skips that node's children.
func Walk(n *Node, fn func(*Node) bool) {
	if n == nil {
		return
	}
	if !fn(n) {
		return
	}
	for _, c := range n.children {
		Walk(c, fn)
	}
}

// Count returns the number of nodes in the subtree.
func Count(n *Node) int {
	total := 0
	Walk(n, func(*Node) bool {
		total++
		return true
	})
	return total
}

// Dispose detaches root and releases every renderable beneath it, returning
// how many were released.
func Dispose(root *Node) int {
	if root == nil {
		return 0
	}
	root.Detach()
	released := 0
	Walk(root, func(n *Node) bool {
		if n.Renderable != nil && !n.Renderable.Disposed() {
			n.Renderable.Dispose()
			released++
		}
		return true
	})
	return released
}
