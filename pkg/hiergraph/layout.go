// Package hiergraph lays out the entity hierarchy as a node-link graph in
// 2D (layered tree) or 3D (radial rings), with per-node collapse.
//
// Collapsing a node hides exactly its descendants as reported by the
// hierarchy index. The collapsed node itself stays visible and is marked.
package hiergraph

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/hierarchy"
)

// Mode selects the layout geometry.
type Mode int

const (
	Mode2D Mode = iota
	Mode3D
)

func (m Mode) String() string {
	if m == Mode3D {
		return "3d"
	}
	return "2d"
}

// MarshalText encodes m as its name.
func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseMode accepts "2d" or "3d".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "2d", "2D", "":
		return Mode2D, nil
	case "3d", "3D":
		return Mode3D, nil
	}
	return Mode2D, fmt.Errorf("unknown layout mode %q", s)
}

// Node is a laid-out hierarchy entity.
type Node struct {
	ID        string              `json:"id"`
	Label     string              `json:"label"`
	Type      facility.EntityType `json:"type"`
	Depth     int                 `json:"depth"`
	Position  mgl64.Vec3          `json:"position"`
	Collapsed bool                `json:"collapsed,omitempty"`
	Synthetic bool                `json:"synthetic,omitempty"`
	// HiddenCount is the number of descendants a collapse is hiding.
	HiddenCount int `json:"hiddenCount,omitempty"`
}

// Edge links a parent to a child.
type Edge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Graph is one computed layout.
type Graph struct {
	Mode  Mode   `json:"mode"`
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Node returns the laid-out node with id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// Options tunes spacing.
type Options struct {
	Mode       Mode
	LevelGap   float64 // between depths
	SiblingGap float64 // between leaf slots in 2D
	RingGap    float64 // between rings in 3D
}

// DefaultOptions returns the stock spacing for mode.
func DefaultOptions(mode Mode) Options {
	return Options{Mode: mode, LevelGap: 2, SiblingGap: 1.5, RingGap: 3}
}

// Layout owns the collapsed set for one hierarchy index. It is safe for
// concurrent use.
type Layout struct {
	mu        sync.Mutex
	idx       *hierarchy.Index
	opts      Options
	collapsed map[string]bool
}

// New returns a layout over idx with nothing collapsed.
func New(idx *hierarchy.Index, opts Options) *Layout {
	d := DefaultOptions(opts.Mode)
	if opts.LevelGap <= 0 {
		opts.LevelGap = d.LevelGap
	}
	if opts.SiblingGap <= 0 {
		opts.SiblingGap = d.SiblingGap
	}
	if opts.RingGap <= 0 {
		opts.RingGap = d.RingGap
	}
	return &Layout{idx: idx, opts: opts, collapsed: make(map[string]bool)}
}

// SetIndex swaps the hierarchy, keeping collapse state for ids that still
// exist.
func (l *Layout) SetIndex(idx *hierarchy.Index) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.idx = idx
	for id := range l.collapsed {
		if _, ok := idx.Get(id); !ok {
			delete(l.collapsed, id)
		}
	}
}

// SetMode switches between 2D and 3D.
func (l *Layout) SetMode(m Mode) {
	l.mu.Lock()
	l.opts.Mode = m
	l.mu.Unlock()
}

// Mode returns the current mode.
func (l *Layout) Mode() Mode {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.opts.Mode
}

// Toggle flips the collapse state of id and returns the new state. The
// second result is false when id is not in the hierarchy.
func (l *Layout) Toggle(id string) (collapsed, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.idx.Get(id); !ok {
		return false, false
	}
	if l.collapsed[id] {
		delete(l.collapsed, id)
		return false, true
	}
	l.collapsed[id] = true
	return true, true
}

// Collapse hides the descendants of id.
func (l *Layout) Collapse(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.idx.Get(id); !ok {
		return false
	}
	l.collapsed[id] = true
	return true
}

// Expand restores the descendants of id, except those under another
// collapsed node.
func (l *Layout) Expand(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.idx.Get(id); !ok {
		return false
	}
	delete(l.collapsed, id)
	return true
}

// IsCollapsed reports whether id is collapsed.
func (l *Layout) IsCollapsed(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.collapsed[id]
}

// Collapsed returns the collapsed ids, sorted.
func (l *Layout) Collapsed() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedKeys(l.collapsed)
}

// Hidden returns the ids hidden by collapse, sorted.
func (l *Layout) Hidden() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return sortedKeys(l.hiddenLocked())
}

func (l *Layout) hiddenLocked() map[string]bool {
	hidden := make(map[string]bool)
	for id := range l.collapsed {
		for _, d := range l.idx.Descendants(id) {
			hidden[d] = true
		}
	}
	return hidden
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Compute lays out the visible part of the hierarchy. Nodes come in
// depth-first pre-order from the site; edges follow their child node.
func (l *Layout) Compute() *Graph {
	l.mu.Lock()
	defer l.mu.Unlock()

	g := &Graph{Mode: l.opts.Mode}
	root := l.idx.Root()
	if _, ok := l.idx.Get(root); !ok {
		return g
	}
	hidden := l.hiddenLocked()

	// First pass: visible tree in pre-order, with leaf slots. A collapsed
	// node counts as a leaf.
	type slot struct {
		node     Node
		children []int
		lo, hi   float64
	}
	var tree []slot
	visited := map[string]bool{}
	leaves := 0
	var visit func(id string, depth int) int
	visit = func(id string, depth int) int {
		visited[id] = true
		e, _ := l.idx.Get(id)
		label := e.Name
		if label == "" {
			label = e.ID
		}
		n := Node{ID: id, Label: label, Type: e.Type, Depth: depth, Synthetic: e.Synthetic}
		if l.collapsed[id] {
			n.Collapsed = true
			n.HiddenCount = len(l.idx.Descendants(id))
		}
		at := len(tree)
		tree = append(tree, slot{node: n})
		if !n.Collapsed {
			for _, c := range l.idx.Children(id) {
				if visited[c] || hidden[c] {
					continue
				}
				ci := visit(c, depth+1)
				tree[at].children = append(tree[at].children, ci)
				g.Edges = append(g.Edges, Edge{From: id, To: c})
			}
		}
		if len(tree[at].children) == 0 {
			tree[at].lo = float64(leaves)
			tree[at].hi = tree[at].lo
			leaves++
		} else {
			tree[at].lo = tree[tree[at].children[0]].lo
			tree[at].hi = tree[tree[at].children[len(tree[at].children)-1]].hi
		}
		return at
	}
	visit(root, 0)

	// Second pass: coordinates. Parents center over their leaf span.
	for _, s := range tree {
		mid := (s.lo + s.hi) / 2
		y := -float64(s.node.Depth) * l.opts.LevelGap
		switch l.opts.Mode {
		case Mode3D:
			theta := 0.0
			if leaves > 0 {
				theta = 2 * math.Pi * mid / float64(leaves)
			}
			r := float64(s.node.Depth) * l.opts.RingGap
			s.node.Position = mgl64.Vec3{r * math.Cos(theta), y, r * math.Sin(theta)}
		default:
			x := (mid - float64(leaves-1)/2) * l.opts.SiblingGap
			s.node.Position = mgl64.Vec3{x, y, 0}
		}
		g.Nodes = append(g.Nodes, s.node)
	}
	return g
}
