// Package projector maps {phase, status toggles, color mode, selection} onto
// the device nodes of a synthesized scene. Every function recomputes its
// output for all devices from its inputs alone, so calling them in any order
// with the same inputs converges on the same scene state.
package projector

import (
	"strings"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/primitive"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/scene"
)

// ColorMode selects how device bodies are colored.
type ColorMode string

const (
	ColorByStatus   ColorMode = "status"
	ColorByCategory ColorMode = "category"
	ColorNeutral    ColorMode = "neutral"
)

// ColorModes lists the implemented modes.
var ColorModes = []ColorMode{ColorByStatus, ColorByCategory, ColorNeutral}

// ParseColorMode maps a name to a mode. Unknown names map to ColorNeutral
// and report false.
func ParseColorMode(s string) (ColorMode, bool) {
	m := ColorMode(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range ColorModes {
		if m == v {
			return m, true
		}
	}
	return ColorNeutral, false
}

// Fixed palette.
const (
	NeutralColor      scene.Color = primitive.NeutralColor
	SelectedEmissive  scene.Color = 0xffd54f
	RelatedEmissive   scene.Color = 0x4fc3f7
	EdgeColor         scene.Color = 0x90a4ae
	EdgeSelectedColor scene.Color = 0xff9800
)

var statusColors = map[facility.Status4D]scene.Color{
	facility.StatusExistingRetained: 0x6c8ebf,
	facility.StatusExistingRemoved:  0xd9534f,
	facility.StatusProposed:         0x5cb85c,
	facility.StatusModified:         0xf0ad4e,
	facility.StatusFuture:           0x9b59b6,
}

// StatusColor returns the color for s under ColorByStatus.
func StatusColor(s facility.Status4D) scene.Color {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return NeutralColor
}

// Groups is the logical-equipment grouping the projector reads.
// *hierarchy.Index implements it.
type Groups interface {
	GroupOf(deviceID string) (string, bool)
	LogicalGroup(key string) []string
	LogicalGroupKeys() []string
}

func tagOf(n *scene.Node) scene.Tag {
	if n == nil || n.Tag == nil {
		return scene.Tag{}
	}
	return *n.Tag
}

// ApplyVisibility sets every device visible iff its status is eligible in
// phase and toggled on. It returns the number of visible devices.
func ApplyVisibility(devices map[string]*scene.Node, phase facility.Phase, toggles facility.Toggles) int {
	visible := 0
	for _, n := range devices {
		v := facility.Visible(tagOf(n).Status, phase, toggles)
		n.SetVisible(v)
		if v {
			visible++
		}
	}
	return visible
}

// ApplyColorMode recolors every device. Unknown modes color neutrally.
func ApplyColorMode(devices map[string]*scene.Node, mode ColorMode) {
	for _, n := range devices {
		tag := tagOf(n)
		switch mode {
		case ColorByStatus:
			n.SetColor(StatusColor(tag.Status))
		case ColorByCategory:
			n.SetColor(primitive.CategoryColor(tag.Category))
		default:
			n.SetColor(NeutralColor)
		}
	}
}

// paint derives the emissive channel from the highlight state.
func paint(n *scene.Node) {
	switch n.Highlight {
	case scene.HighlightSelected:
		n.SetEmissive(SelectedEmissive)
	case scene.HighlightRelated:
		n.SetEmissive(RelatedEmissive)
	default:
		n.SetEmissive(scene.Black)
	}
}

// ApplySelection marks at most one device selected. An empty or unknown id
// clears the selection. It returns the selected node.
func ApplySelection(devices map[string]*scene.Node, selectedID string) (*scene.Node, bool) {
	var sel *scene.Node
	for id, n := range devices {
		switch {
		case id == selectedID:
			n.Highlight = scene.HighlightSelected
			sel = n
		case n.Highlight == scene.HighlightSelected:
			n.Highlight = scene.HighlightNone
		}
		paint(n)
	}
	return sel, sel != nil
}

// RelatedTo returns the other members of selectedID's logical group in
// accumulation order.
func RelatedTo(groups Groups, selectedID string) []string {
	if groups == nil || selectedID == "" {
		return nil
	}
	key, ok := groups.GroupOf(selectedID)
	if !ok {
		return nil
	}
	var out []string
	for _, id := range groups.LogicalGroup(key) {
		if id != selectedID {
			out = append(out, id)
		}
	}
	return out
}

// ApplyRelatedHighlight marks every other member of the selected device's
// logical group as related and returns every non-selected device to neutral.
// The selected device itself is left alone. It returns the related ids.
func ApplyRelatedHighlight(devices map[string]*scene.Node, groups Groups, selectedID string) []string {
	related := RelatedTo(groups, selectedID)
	set := make(map[string]bool, len(related))
	for _, id := range related {
		set[id] = true
	}
	for id, n := range devices {
		if id == selectedID && n.Highlight == scene.HighlightSelected {
			continue
		}
		if set[id] {
			n.Highlight = scene.HighlightRelated
		} else {
			n.Highlight = scene.HighlightNone
		}
		paint(n)
	}
	return related
}
