// Package scene is the rendered node graph: a tree of nodes, each carrying a
// local Transform, an optional Renderable and the facility Tag it stands for.
//
// The graph is owned by a single writer. Nothing here is safe for concurrent
// mutation; callers serialize access the way the viewer does.
package scene
