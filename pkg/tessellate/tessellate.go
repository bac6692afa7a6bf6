// Package tessellate walks a scene graph and produces world-space triangle
// meshes using a geometry kernel. One mesh is produced per visible solid or
// model.
package tessellate

import (
	"context"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/scene"
)

// Item is one tessellated renderable with its material.
type Item struct {
	Mesh     *kernel.Mesh `json:"mesh"`
	Tag      *scene.Tag   `json:"tag,omitempty"`
	Color    scene.Color  `json:"color"`
	Emissive scene.Color  `json:"emissive"`
	Opacity  float64      `json:"opacity"`
}

// transformStack accumulates node matrices during traversal.
type transformStack struct {
	mats []mgl64.Mat4
}

func newTransformStack(base mgl64.Mat4) *transformStack {
	return &transformStack{mats: []mgl64.Mat4{base}}
}

func (ts *transformStack) push(local mgl64.Mat4) {
	ts.mats = append(ts.mats, ts.top().Mul4(local))
}

func (ts *transformStack) pop() {
	if len(ts.mats) > 1 {
		ts.mats = ts.mats[:len(ts.mats)-1]
	}
}

func (ts *transformStack) top() mgl64.Mat4 {
	return ts.mats[len(ts.mats)-1]
}

// Option configures a tessellation.
type Option func(*walker)

// WithHidden includes hidden nodes.
func WithHidden() Option {
	return func(w *walker) { w.hidden = true }
}

type walker struct {
	ctx    context.Context
	k      kernel.Kernel
	hidden bool
	ts     *transformStack
	// Solids are shared between nodes by the primitive cache, so local
	// meshes are cached per solid.
	local map[kernel.Solid]*kernel.Mesh
}

// Tessellate walks the subtree at root and returns one world-space mesh per
// solid or model renderable. Labels and lines carry no kernel geometry and
// are skipped. The tessellator is read-only and never mutates the graph.
func Tessellate(ctx context.Context, root *scene.Node, k kernel.Kernel, opts ...Option) ([]Item, error) {
	if root == nil {
		return nil, nil
	}
	base := mgl64.Ident4()
	if p := root.Parent(); p != nil {
		base = p.WorldMatrix()
	}
	w := &walker{ctx: ctx, k: k, ts: newTransformStack(base), local: make(map[kernel.Solid]*kernel.Mesh)}
	for _, o := range opts {
		o(w)
	}
	var items []Item
	if err := w.walk(root, &items); err != nil {
		return nil, fmt.Errorf("tessellate: %w", err)
	}
	return items, nil
}

func (w *walker) walk(n *scene.Node, items *[]Item) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	if !n.Visible() && !w.hidden {
		return nil
	}
	w.ts.push(n.Transform.Matrix())
	defer w.ts.pop()

	if n.Renderable != nil && !n.Renderable.Disposed() {
		item, ok, err := w.handle(n)
		if err != nil {
			return err
		}
		if ok {
			*items = append(*items, item)
		}
	}
	for _, c := range n.Children() {
		if err := w.walk(c, items); err != nil {
			return err
		}
	}
	return nil
}

// handle tessellates the renderable on n at the current stack matrix.
func (w *walker) handle(n *scene.Node) (Item, bool, error) {
	surf := n.Renderable.Surface()
	if !surf.Visible && !w.hidden {
		return Item{}, false, nil
	}
	var local *kernel.Mesh
	switch r := n.Renderable.(type) {
	case *scene.Solid:
		if r.Geometry == nil {
			return Item{}, false, nil
		}
		m, err := w.solidMesh(r.Geometry)
		if err != nil {
			return Item{}, false, fmt.Errorf("node %s: %w", n.Name, err)
		}
		local = m
	case *scene.Model:
		if r.Mesh == nil || r.Mesh.IsEmpty() {
			return Item{}, false, nil
		}
		local = r.Mesh
	default:
		return Item{}, false, nil
	}

	mesh := local.Transformed(w.ts.top())
	mesh.Name = n.Name
	return Item{
		Mesh:     mesh,
		Tag:      n.Tag,
		Color:    surf.Color,
		Emissive: surf.Emissive,
		Opacity:  surf.Opacity,
	}, true, nil
}

func (w *walker) solidMesh(s kernel.Solid) (*kernel.Mesh, error) {
	if m, ok := w.local[s]; ok {
		return m, nil
	}
	m, err := w.k.ToMesh(s)
	if err != nil {
		return nil, fmt.Errorf("ToMesh failed: %w", err)
	}
	w.local[s] = m
	return m, nil
}

// Merge concatenates the meshes of items into one.
func Merge(items []Item, name string) *kernel.Mesh {
	out := &kernel.Mesh{Name: name}
	for _, it := range items {
		out.Append(it.Mesh)
	}
	return out
}
