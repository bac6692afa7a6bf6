package hierarchy

import (
	"github.com/rs/zerolog"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
)

type builder struct {
	policy FallbackPolicy
	log    zerolog.Logger
	x      *Index
}

// Build indexes cfg. A nil cfg yields an index holding only a synthetic site.
func Build(cfg *facility.SceneConfig, opts ...Option) *Index {
	b := &builder{
		log: zerolog.Nop(),
		x: &Index{
			byID:     make(map[string]*Entity),
			children: make(map[string][]string),
			byType:   make(map[facility.EntityType][]string),
			groups:   make(map[string][]string),
			groupOf:  make(map[string]string),
		},
	}
	for _, o := range opts {
		o(b)
	}
	if cfg == nil {
		cfg = &facility.SceneConfig{}
	}
	x := b.x

	site := &Entity{Type: facility.EntitySite, ID: cfg.SiteID, Name: cfg.SiteName}
	if site.ID == "" {
		site.ID = SyntheticID(facility.EntitySite)
		site.Synthetic = true
	}
	if site.Name == "" {
		site.Name = site.ID
	}
	x.siteID = site.ID
	x.byID[site.ID] = site
	x.byType[facility.EntitySite] = []string{site.ID}

	for i := range cfg.Buildings {
		bl := &cfg.Buildings[i]
		// Buildings always hang off the indexed site; a mismatched site id
		// is a data-quality finding, not a reason to re-home.
		b.add(&Entity{Type: facility.EntityBuilding, ID: bl.ID, Name: bl.Name, Building: bl}, site.ID)
	}
	for i := range cfg.Floors {
		f := &cfg.Floors[i]
		b.add(&Entity{Type: facility.EntityFloor, ID: f.ID, Name: f.Name, Floor: f}, f.BuildingID)
	}
	for i := range cfg.Rooms {
		r := &cfg.Rooms[i]
		b.add(&Entity{Type: facility.EntityRoom, ID: r.ID, Name: r.Name, Room: r}, r.FloorID)
	}
	for i := range cfg.Racks {
		r := &cfg.Racks[i]
		b.add(&Entity{Type: facility.EntityRack, ID: r.ID, Name: r.Name, Rack: r}, r.RoomID)
	}
	for i := range cfg.Devices {
		d := &cfg.Devices[i]
		if b.add(&Entity{Type: facility.EntityDevice, ID: d.ID, Name: d.Name, Device: d}, d.RackID) {
			key := d.LogicalKey()
			if _, ok := x.groups[key]; !ok {
				x.groupOrder = append(x.groupOrder, key)
			}
			x.groups[key] = append(x.groups[key], d.ID)
			x.groupOf[d.ID] = key
		}
	}
	return x
}

// add inserts e under parentID, re-homing it when parentID does not name an
// entity of the containing class. Duplicate ids are dropped.
func (b *builder) add(e *Entity, parentID string) bool {
	x := b.x
	if e.ID == "" {
		b.log.Warn().Str("entity_type", e.Type.String()).Msg("entity without id skipped")
		return false
	}
	if prev, dup := x.byID[e.ID]; dup {
		b.log.Warn().
			Str("entity_type", e.Type.String()).
			Str("entity_id", e.ID).
			Str("existing_type", prev.Type.String()).
			Msg("duplicate entity id skipped")
		return false
	}
	if e.Name == "" {
		e.Name = e.ID
	}

	want, _ := e.Type.ParentType()
	resolved := parentID
	if p, ok := x.byID[parentID]; !ok || p.Type != want {
		resolved = b.fallbackParent(want)
		x.fallbacks = append(x.fallbacks, Fallback{
			EntityType:       e.Type,
			EntityID:         e.ID,
			MissingParentID:  parentID,
			ResolvedParentID: resolved,
		})
		b.log.Warn().
			Str("entity_type", e.Type.String()).
			Str("entity_id", e.ID).
			Str("parent_id", parentID).
			Str("fallback_parent_id", resolved).
			Msg("unresolved parent, using fallback")
	}
	b.link(e, resolved)
	return true
}

func (b *builder) link(e *Entity, parentID string) {
	x := b.x
	e.ParentID = parentID
	x.byID[e.ID] = e
	x.children[parentID] = append(x.children[parentID], e.ID)
	x.byType[e.Type] = append(x.byType[e.Type], e.ID)
}

// fallbackParent returns the id of an entity of class t to adopt an orphan.
func (b *builder) fallbackParent(t facility.EntityType) string {
	x := b.x
	if t == facility.EntitySite {
		return x.siteID
	}
	if b.policy == FallbackFirst {
		for _, id := range x.byType[t] {
			if !x.byID[id].Synthetic {
				return id
			}
		}
	}
	return b.synthetic(t)
}

// synthetic returns the "<Type>-default" entity of class t, creating it on
// first use. Its own parent is chosen by the same policy.
func (b *builder) synthetic(t facility.EntityType) string {
	x := b.x
	id := SyntheticID(t)
	if e, ok := x.byID[id]; ok && e.Type != t {
		// A real entity of another class already uses the synthetic id.
		id = id + "-" + t.String()
	}
	if _, ok := x.byID[id]; ok {
		return id
	}
	pt, _ := t.ParentType()
	parent := x.siteID
	if pt != facility.EntitySite {
		parent = b.fallbackParent(pt)
	}
	b.link(&Entity{Type: t, ID: id, Name: id, Synthetic: true}, parent)
	return id
}
