package projector

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/scene"
)

// Edge links two consecutive snapshots of one piece of logical equipment.
type Edge struct {
	LogicalID   string     `json:"logicalEquipmentId"`
	FromID      string     `json:"fromId"`
	ToID        string     `json:"toId"`
	From        mgl64.Vec3 `json:"from"`
	To          mgl64.Vec3 `json:"to"`
	Visible     bool       `json:"visible"`
	Highlighted bool       `json:"highlighted"`
}

// worldCenter returns the center of n's geometry in world space, whether or
// not n is currently shown.
func worldCenter(n *scene.Node) mgl64.Vec3 {
	m := n.WorldMatrix()
	if n.Renderable != nil {
		if b := n.Renderable.Bounds(); !b.IsEmpty() {
			return mgl64.TransformCoordinate(b.Center(), m)
		}
	}
	return mgl64.TransformCoordinate(mgl64.Vec3{}, m)
}

// BuildConnectionEdges returns one edge per consecutive pair of rendered
// members of every logical group with at least two members, in the group's
// accumulation order. An edge is visible when both endpoints are, and
// highlighted when its group contains selectedID.
func BuildConnectionEdges(devices map[string]*scene.Node, groups Groups, selectedID string) []Edge {
	if groups == nil {
		return nil
	}
	selectedGroup := ""
	if selectedID != "" {
		selectedGroup, _ = groups.GroupOf(selectedID)
	}

	var edges []Edge
	for _, key := range groups.LogicalGroupKeys() {
		var members []string
		for _, id := range groups.LogicalGroup(key) {
			if _, ok := devices[id]; ok {
				members = append(members, id)
			}
		}
		for i := 1; i < len(members); i++ {
			a, b := devices[members[i-1]], devices[members[i]]
			edges = append(edges, Edge{
				LogicalID:   key,
				FromID:      members[i-1],
				ToID:        members[i],
				From:        worldCenter(a),
				To:          worldCenter(b),
				Visible:     a.EffectivelyVisible() && b.EffectivelyVisible(),
				Highlighted: selectedGroup != "" && key == selectedGroup,
			})
		}
	}
	return edges
}

// EdgeWidth is the drawn width of connection lines.
const EdgeWidth = 0.01

// EdgeNodes builds a container of line renderables for edges. Highlighted
// edges use a distinct color and width.
func EdgeNodes(edges []Edge) *scene.Node {
	root := scene.NewNode("connections")
	for _, e := range edges {
		color, width := EdgeColor, EdgeWidth
		if e.Highlighted {
			color, width = EdgeSelectedColor, EdgeWidth*2
		}
		n := scene.NewNode(e.LogicalID + ":" + e.FromID + "->" + e.ToID)
		n.Renderable = scene.NewLine([]mgl64.Vec3{e.From, e.To}, width, color)
		n.SetVisible(e.Visible)
		root.Add(n)
	}
	return root
}
