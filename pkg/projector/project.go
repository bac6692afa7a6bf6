package projector

import (
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/scene"
)

// State is everything the projected scene is a function of.
type State struct {
	Phase     facility.Phase   `json:"phase"`
	Toggles   facility.Toggles `json:"toggles"`
	ColorMode ColorMode        `json:"colorMode"`
	Selected  string           `json:"selected,omitempty"`
}

// DefaultState shows the TO_BE phase with every status on, colored by status.
func DefaultState() State {
	return State{
		Phase:     facility.PhaseToBe,
		Toggles:   facility.DefaultToggles(),
		ColorMode: ColorByStatus,
	}
}

// Result summarizes one full projection.
type Result struct {
	Visible  int
	Selected *scene.Node
	Related  []string
	Edges    []Edge
}

// Project applies every projection in a fixed order: visibility, color,
// selection, related highlight, then edges (which read visibility).
func Project(devices map[string]*scene.Node, groups Groups, st State) Result {
	var r Result
	r.Visible = ApplyVisibility(devices, st.Phase, st.Toggles)
	ApplyColorMode(devices, st.ColorMode)
	r.Selected, _ = ApplySelection(devices, st.Selected)
	sel := st.Selected
	if r.Selected == nil {
		sel = ""
	}
	r.Related = ApplyRelatedHighlight(devices, groups, sel)
	r.Edges = BuildConnectionEdges(devices, groups, sel)
	return r
}
