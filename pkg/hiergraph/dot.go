package hiergraph

import (
	"fmt"
	"strings"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
)

// TypeColors are DOT fill colors per entity type.
var TypeColors = map[facility.EntityType]string{
	facility.EntitySite:     "#cfd8dc",
	facility.EntityBuilding: "#bbdefb",
	facility.EntityFloor:    "#c8e6c9",
	facility.EntityRoom:     "#fff9c4",
	facility.EntityRack:     "#ffe0b2",
	facility.EntityDevice:   "#f8bbd0",
}

// DOT renders g as a Graphviz digraph. Nodes carry their entity type's fill
// color; collapsed nodes are dashed and show how many descendants they hide.
// A legend lists the types present.
func DOT(g *Graph) string {
	var sb strings.Builder
	sb.WriteString("digraph hierarchy {\n")
	sb.WriteString("  rankdir=\"TB\";\n")
	sb.WriteString("  node [shape=box, style=filled];\n\n")

	present := make(map[facility.EntityType]bool)
	for _, n := range g.Nodes {
		present[n.Type] = true
		label := n.Label
		style := "filled"
		if n.Collapsed {
			label = fmt.Sprintf("%s (+%d)", label, n.HiddenCount)
			style = "filled,dashed"
		}
		if n.Synthetic {
			style += ",dotted"
		}
		sb.WriteString(fmt.Sprintf("  %q [label=%q, fillcolor=%q, style=%q];\n",
			n.ID, label, TypeColors[n.Type], style))
	}
	sb.WriteString("\n")
	for _, e := range g.Edges {
		sb.WriteString(fmt.Sprintf("  %q -> %q;\n", e.From, e.To))
	}

	sb.WriteString("\n  \"legend\" [shape=plaintext, style=\"\", label=<\n")
	sb.WriteString("    <TABLE BORDER=\"0\" CELLBORDER=\"1\" CELLSPACING=\"0\" CELLPADDING=\"4\">\n")
	for t := facility.EntitySite; t <= facility.EntityDevice; t++ {
		if !present[t] {
			continue
		}
		sb.WriteString(fmt.Sprintf("    <TR><TD BGCOLOR=\"%s\">    </TD><TD>%s</TD></TR>\n", TypeColors[t], t.Title()))
	}
	sb.WriteString("    </TABLE>\n  >];\n")
	sb.WriteString("}\n")
	return sb.String()
}

// DOT renders the current layout.
func (l *Layout) DOT() string {
	return DOT(l.Compute())
}
