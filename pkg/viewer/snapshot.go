package viewer

import (
	"sort"
	"time"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/camera"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/projector"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/synth"
)

// DeviceView is the projected state of one device.
type DeviceView struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	RackID    string            `json:"rackId"`
	Status    facility.Status4D `json:"status4D"`
	Category  facility.Category `json:"category"`
	LogicalID string            `json:"logicalEquipmentId,omitempty"`
	Visible   bool              `json:"visible"`
	Highlight string            `json:"highlight"`
	Placement synth.Placement   `json:"placement"`
}

// Snapshot is a JSON-ready copy of the viewer state.
type Snapshot struct {
	Loaded     bool             `json:"loaded"`
	Generation uint64           `json:"generation"`
	LoadedAt   time.Time        `json:"loadedAt,omitempty"`
	SiteID     string           `json:"siteId,omitempty"`
	State      projector.State  `json:"state"`
	Visible    int              `json:"visible"`
	Related    []string         `json:"related"`
	Edges      []projector.Edge `json:"edges"`
	Devices    []DeviceView     `json:"devices"`
	Racks      int              `json:"racks"`
	Rooms      int              `json:"rooms"`
	Findings   int              `json:"findings"`
	Collapsed  []string         `json:"collapsed"`
	Bounds     *kernel.AABB     `json:"bounds,omitempty"`
	Camera     camera.State     `json:"camera"`
	Viewport   Viewport         `json:"viewport"`
}

// Snapshot copies the current state. Devices are sorted by id.
func (v *Viewer) Snapshot() Snapshot {
	v.mu.Lock()
	defer v.mu.Unlock()

	st := v.state
	st.Toggles = v.state.Toggles.Clone()
	s := Snapshot{
		State:     st,
		Related:   append([]string{}, v.result.Related...),
		Edges:     append([]projector.Edge{}, v.result.Edges...),
		Devices:   []DeviceView{},
		Collapsed: v.layout.Collapsed(),
		Camera:    v.cam.State(),
		Viewport:  v.viewport,
	}
	if v.objs == nil {
		return s
	}
	s.Loaded = true
	s.Generation = v.loaded
	s.LoadedAt = v.loadedAt
	s.SiteID = v.objs.Index.Root()
	s.Visible = v.result.Visible
	s.Racks = len(v.objs.Racks)
	s.Rooms = len(v.objs.Rooms)
	s.Findings = len(v.objs.Findings)
	if b := v.objs.Bounds(); !b.IsEmpty() {
		s.Bounds = &b
	}

	for id, n := range v.objs.Devices {
		dv := DeviceView{
			ID:        id,
			Name:      n.Name,
			Visible:   n.EffectivelyVisible(),
			Highlight: n.Highlight.String(),
			Placement: v.objs.Placements[id],
		}
		if n.Tag != nil {
			dv.Status = n.Tag.Status
			dv.Category = n.Tag.Category
			dv.LogicalID = n.Tag.LogicalID
		}
		dv.RackID = dv.Placement.RackID
		s.Devices = append(s.Devices, dv)
	}
	sort.Slice(s.Devices, func(i, j int) bool { return s.Devices[i].ID < s.Devices[j].ID })
	return s
}
