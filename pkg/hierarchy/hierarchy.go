// Package hierarchy indexes a flat SceneConfig into the facility tree:
// id lookup, parent→children adjacency and logical-equipment groups.
//
// Unresolvable parent references never fail a build. They are re-homed under
// a fallback parent according to the configured policy and recorded.
package hierarchy

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
)

// Entity is one node of the facility tree. Exactly one of the typed payload
// pointers is set for non-synthetic entities of that class.
type Entity struct {
	Type      facility.EntityType
	ID        string
	Name      string
	ParentID  string
	Synthetic bool

	Building *facility.Building
	Floor    *facility.Floor
	Room     *facility.Room
	Rack     *facility.Rack
	Device   *facility.Device
}

// Transform returns the entity's placement relative to its parent.
func (e *Entity) Transform() facility.Transform {
	switch {
	case e.Building != nil:
		return e.Building.Transform
	case e.Floor != nil:
		return e.Floor.Transform
	case e.Room != nil:
		return e.Room.Transform
	case e.Rack != nil:
		return e.Rack.Transform
	default:
		return facility.Transform{}
	}
}

// FallbackPolicy decides where an entity with an unresolved parent goes.
type FallbackPolicy int

const (
	// FallbackSynthetic re-homes orphans under "<Type>-default" parents,
	// created on demand and chained up to the site.
	FallbackSynthetic FallbackPolicy = iota
	// FallbackFirst re-homes orphans under the first entity of the parent
	// class in input order, falling back to a synthetic parent when the
	// class is empty.
	FallbackFirst
)

// ParseFallbackPolicy maps "synthetic" and "first" to a policy.
func ParseFallbackPolicy(s string) (FallbackPolicy, bool) {
	switch s {
	case "", "synthetic":
		return FallbackSynthetic, true
	case "first":
		return FallbackFirst, true
	default:
		return FallbackSynthetic, false
	}
}

// Fallback records one re-homed entity.
type Fallback struct {
	EntityType       facility.EntityType `json:"entityType"`
	EntityID         string              `json:"entityId"`
	MissingParentID  string              `json:"missingParentId"`
	ResolvedParentID string              `json:"resolvedParentId"`
}

// Option configures Build.
type Option func(*builder)

// WithFallback selects the orphan policy.
func WithFallback(p FallbackPolicy) Option {
	return func(b *builder) { b.policy = p }
}

// WithLogger sets the logger used to report fallbacks.
func WithLogger(l zerolog.Logger) Option {
	return func(b *builder) { b.log = l }
}

// SyntheticID returns the id used for a synthetic entity of type t.
func SyntheticID(t facility.EntityType) string {
	return t.Title() + "-default"
}

// Index is the built hierarchy. It is immutable after Build except for the
// lazily filled descendant cache, which is guarded.
type Index struct {
	siteID     string
	byID       map[string]*Entity
	children   map[string][]string
	byType     map[facility.EntityType][]string
	groups     map[string][]string
	groupOrder []string
	groupOf    map[string]string
	fallbacks  []Fallback

	mu          sync.Mutex
	descendants map[string][]string
}

// Root returns the site id. A nil Index has no root.
func (x *Index) Root() string {
	if x == nil {
		return ""
	}
	return x.siteID
}

// Len returns the number of entities, including the site and synthetics.
func (x *Index) Len() int { return len(x.byID) }

// Get returns the entity with id.
func (x *Index) Get(id string) (*Entity, bool) {
	if x == nil {
		return nil, false
	}
	e, ok := x.byID[id]
	return e, ok
}

// Children returns the direct children of id in input order.
func (x *Index) Children(id string) []string {
	return append([]string(nil), x.children[id]...)
}

// Entities returns the ids of every entity of type t in input order, with
// synthetic entities after the real ones.
func (x *Index) Entities(t facility.EntityType) []string {
	return append([]string(nil), x.byType[t]...)
}

// Fallbacks returns every re-homed entity in build order.
func (x *Index) Fallbacks() []Fallback {
	return append([]Fallback(nil), x.fallbacks...)
}

// LogicalGroupKeys returns group keys in first-seen order.
func (x *Index) LogicalGroupKeys() []string {
	return append([]string(nil), x.groupOrder...)
}

// LogicalGroup returns the device ids of a group in accumulation order.
func (x *Index) LogicalGroup(key string) []string {
	return append([]string(nil), x.groups[key]...)
}

// LogicalGroups returns a copy of the whole grouping.
func (x *Index) LogicalGroups() map[string][]string {
	out := make(map[string][]string, len(x.groups))
	for k, v := range x.groups {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// GroupOf returns the logical group key of a device.
func (x *Index) GroupOf(deviceID string) (string, bool) {
	k, ok := x.groupOf[deviceID]
	return k, ok
}

// Related returns the other members of deviceID's logical group in
// accumulation order. Unknown devices and singletons yield nil.
func (x *Index) Related(deviceID string) []string {
	key, ok := x.groupOf[deviceID]
	if !ok {
		return nil
	}
	var out []string
	for _, id := range x.groups[key] {
		if id != deviceID {
			out = append(out, id)
		}
	}
	return out
}

// Descendants returns every transitive child of id in depth-first pre-order,
// excluding id itself. The result is computed once per id and cached. A
// malformed cycle terminates the walk rather than looping.
func (x *Index) Descendants(id string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	if d, ok := x.descendants[id]; ok {
		return append([]string(nil), d...)
	}
	visited := map[string]bool{id: true}
	var out []string
	var walk func(string)
	walk = func(p string) {
		for _, c := range x.children[p] {
			if visited[c] {
				continue
			}
			visited[c] = true
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	if x.descendants == nil {
		x.descendants = make(map[string][]string)
	}
	x.descendants[id] = out
	return append([]string(nil), out...)
}

// Ancestors returns the parents of id from the nearest up to the site.
func (x *Index) Ancestors(id string) []string {
	var out []string
	seen := map[string]bool{id: true}
	e, ok := x.byID[id]
	for ok && e.ParentID != "" && !seen[e.ParentID] {
		seen[e.ParentID] = true
		out = append(out, e.ParentID)
		e, ok = x.byID[e.ParentID]
	}
	return out
}

// Path returns the ids from the site down to id, inclusive. Unknown ids
// yield nil.
func (x *Index) Path(id string) []string {
	if _, ok := x.byID[id]; !ok {
		return nil
	}
	anc := x.Ancestors(id)
	out := make([]string, 0, len(anc)+1)
	for i := len(anc) - 1; i >= 0; i-- {
		out = append(out, anc[i])
	}
	return append(out, id)
}

// DevicesIn returns the device descendants of id in pre-order.
func (x *Index) DevicesIn(id string) []string {
	var out []string
	for _, d := range x.Descendants(id) {
		if e := x.byID[d]; e != nil && e.Type == facility.EntityDevice {
			out = append(out, d)
		}
	}
	return out
}

// IsAncestor reports whether anc is a strict ancestor of id.
func (x *Index) IsAncestor(anc, id string) bool {
	for _, a := range x.Ancestors(id) {
		if a == anc {
			return true
		}
	}
	return false
}
