package projector_test

import (
	"context"
	"math"
	"slices"
	"testing"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility/facilitytest"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/primitive"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/projector"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/scene"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/synth"
)

func synthesize(t *testing.T, cfg *facility.SceneConfig) *synth.SceneObjects {
	t.Helper()
	s := synth.New(primitive.New(kernel.NewBoxKernel(), primitive.DefaultDimensions()))
	objs, err := s.Synthesize(context.Background(), cfg, facilitytest.Catalog())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	return objs
}

func emissive(n *scene.Node) scene.Color {
	return n.Renderable.Surface().Emissive
}

func TestVisibilityIsPhaseAndToggle(t *testing.T) {
	objs := synthesize(t, facilitytest.TwoRacksSixDevices())

	toggleSets := []facility.Toggles{
		facility.DefaultToggles(),
		{facility.StatusExistingRetained: true, facility.StatusProposed: true},
		{facility.StatusFuture: true},
		{},
	}
	for _, phase := range append(facility.AllPhases, facility.Phase("BOGUS")) {
		for _, toggles := range toggleSets {
			projector.ApplyVisibility(objs.Devices, phase, toggles)
			for id, n := range objs.Devices {
				status := n.Tag.Status
				want := facility.Eligible(status, phase) && toggles[status]
				if n.Visible() != want {
					t.Errorf("%s %s toggles=%v: visible = %v, want %v", id, phase, toggles, n.Visible(), want)
				}
			}
		}
	}
}

func TestProposedHiddenInAsIsEvenWhenToggledOn(t *testing.T) {
	objs := synthesize(t, facilitytest.Relocation())
	toggles := facility.Toggles{facility.StatusExistingRetained: true, facility.StatusProposed: true}

	n := projector.ApplyVisibility(objs.Devices, facility.PhaseAsIs, toggles)
	if objs.Devices["dev-new"].Visible() {
		t.Error("PROPOSED device visible in AS_IS")
	}
	if !objs.Devices["dev-other"].Visible() {
		t.Error("EXISTING_RETAINED device hidden in AS_IS")
	}
	if n != 1 {
		t.Errorf("visible count = %d, want 1", n)
	}
}

func TestSingleDeviceVisibleAsIs(t *testing.T) {
	objs := synthesize(t, facilitytest.SingleDevice())
	projector.ApplyVisibility(objs.Devices, facility.PhaseAsIs, facility.Toggles{facility.StatusExistingRetained: true})
	if !objs.Devices["dev-1"].Visible() {
		t.Error("dev-1 should be visible")
	}
}

func TestRelocationEdge(t *testing.T) {
	objs := synthesize(t, facilitytest.Relocation())
	projector.ApplyVisibility(objs.Devices, facility.PhaseToBe, facility.DefaultToggles())

	if !objs.Devices["dev-old"].Visible() || !objs.Devices["dev-new"].Visible() {
		t.Fatal("both relocation endpoints should be visible in TO_BE")
	}

	edges := projector.BuildConnectionEdges(objs.Devices, objs.Index, "")
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	e := edges[0]
	if e.LogicalID != "eq-1" || e.FromID != "dev-old" || e.ToID != "dev-new" {
		t.Errorf("edge = %s %s->%s, want eq-1 dev-old->dev-new", e.LogicalID, e.FromID, e.ToID)
	}
	if !e.Visible || e.Highlighted {
		t.Errorf("edge visible=%v highlighted=%v", e.Visible, e.Highlighted)
	}
	// Endpoints sit inside their racks, which are three units apart.
	if e.From[0] >= 2.0 || e.To[0] <= 4.0 {
		t.Errorf("endpoints x = %.2f, %.2f", e.From[0], e.To[0])
	}

	projector.ApplyVisibility(objs.Devices, facility.PhaseAsIs, facility.DefaultToggles())
	edges = projector.BuildConnectionEdges(objs.Devices, objs.Index, "")
	if len(edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(edges))
	}
	if edges[0].Visible {
		t.Error("edge to a hidden endpoint is not drawn")
	}
}

func TestEdgesFollowAccumulationOrder(t *testing.T) {
	cfg := facilitytest.Relocation()
	cfg.Devices = append(cfg.Devices, facility.Device{
		ID: "dev-future", RackID: "rack-a", DeviceTypeID: "dt-2u", LogicalEquipmentID: "eq-1",
		UStart: 30, UHeight: 2, Status: facility.StatusFuture,
	})
	objs := synthesize(t, cfg)
	edges := projector.BuildConnectionEdges(objs.Devices, objs.Index, "")
	if len(edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(edges))
	}
	want := [][2]string{{"dev-old", "dev-new"}, {"dev-new", "dev-future"}}
	for i, w := range want {
		if got := [2]string{edges[i].FromID, edges[i].ToID}; got != w {
			t.Errorf("edge %d = %v, want %v", i, got, w)
		}
	}
}

func TestSelectionAndRelated(t *testing.T) {
	objs := synthesize(t, facilitytest.Relocation())

	sel, ok := projector.ApplySelection(objs.Devices, "dev-new")
	if !ok || sel != objs.Devices["dev-new"] {
		t.Fatalf("ApplySelection = %v, %v", sel, ok)
	}

	related := projector.ApplyRelatedHighlight(objs.Devices, objs.Index, "dev-new")
	if !slices.Equal(related, []string{"dev-old"}) {
		t.Errorf("related = %v, want [dev-old]", related)
	}

	highlights := map[string]scene.Highlight{
		"dev-new":   scene.HighlightSelected,
		"dev-old":   scene.HighlightRelated,
		"dev-other": scene.HighlightNone,
	}
	for id, want := range highlights {
		if got := objs.Devices[id].Highlight; got != want {
			t.Errorf("%s highlight = %v, want %v", id, got, want)
		}
	}
	emissives := map[string]scene.Color{
		"dev-new":   projector.SelectedEmissive,
		"dev-old":   projector.RelatedEmissive,
		"dev-other": scene.Black,
	}
	for id, want := range emissives {
		if got := emissive(objs.Devices[id]); got != want {
			t.Errorf("%s emissive = %v, want %v", id, got, want)
		}
	}

	edges := projector.BuildConnectionEdges(objs.Devices, objs.Index, "dev-new")
	if len(edges) != 1 || !edges[0].Highlighted {
		t.Errorf("edges = %+v, want one highlighted edge", edges)
	}

	// Symmetry.
	if got := projector.RelatedTo(objs.Index, "dev-old"); !slices.Equal(got, []string{"dev-new"}) {
		t.Errorf("RelatedTo(dev-old) = %v", got)
	}
	if got := projector.RelatedTo(objs.Index, "dev-other"); len(got) != 0 {
		t.Errorf("RelatedTo(dev-other) = %v, want none", got)
	}
}

func TestDeselectClearsEverything(t *testing.T) {
	objs := synthesize(t, facilitytest.Relocation())
	projector.ApplySelection(objs.Devices, "dev-new")
	projector.ApplyRelatedHighlight(objs.Devices, objs.Index, "dev-new")

	if _, ok := projector.ApplySelection(objs.Devices, ""); ok {
		t.Error("empty selection reported as selected")
	}
	projector.ApplyRelatedHighlight(objs.Devices, objs.Index, "")

	for id, n := range objs.Devices {
		if n.Highlight != scene.HighlightNone || emissive(n) != scene.Black {
			t.Errorf("%s still highlighted: %v emissive %v", id, n.Highlight, emissive(n))
		}
	}
}

func TestSelectionOrderIndependent(t *testing.T) {
	a := synthesize(t, facilitytest.Relocation())
	b := synthesize(t, facilitytest.Relocation())

	projector.ApplySelection(a.Devices, "dev-old")
	projector.ApplyRelatedHighlight(a.Devices, a.Index, "dev-old")

	projector.ApplyRelatedHighlight(b.Devices, b.Index, "dev-old")
	projector.ApplySelection(b.Devices, "dev-old")

	for id := range a.Devices {
		if a.Devices[id].Highlight != b.Devices[id].Highlight {
			t.Errorf("%s highlight differs: %v vs %v", id, a.Devices[id].Highlight, b.Devices[id].Highlight)
		}
		if emissive(a.Devices[id]) != emissive(b.Devices[id]) {
			t.Errorf("%s emissive differs", id)
		}
	}
}

func TestColorModes(t *testing.T) {
	objs := synthesize(t, facilitytest.Relocation())
	color := func(id string) scene.Color { return objs.Devices[id].Renderable.Surface().Color }

	projector.ApplyColorMode(objs.Devices, projector.ColorByStatus)
	if got, want := color("dev-new"), projector.StatusColor(facility.StatusProposed); got != want {
		t.Errorf("dev-new = %v, want %v", got, want)
	}
	if got, want := color("dev-old"), projector.StatusColor(facility.StatusExistingRemoved); got != want {
		t.Errorf("dev-old = %v, want %v", got, want)
	}
	if color("dev-new") == color("dev-old") {
		t.Error("PROPOSED and EXISTING_REMOVED share a color")
	}

	projector.ApplyColorMode(objs.Devices, projector.ColorByCategory)
	if got, want := color("dev-new"), primitive.CategoryColor(facility.CategoryServer); got != want {
		t.Errorf("category color = %v, want %v", got, want)
	}

	projector.ApplyColorMode(objs.Devices, projector.ColorMode("heatmap"))
	for id := range objs.Devices {
		if color(id) != projector.NeutralColor {
			t.Errorf("%s = %v, want neutral", id, color(id))
		}
	}

	tests := []struct {
		in   string
		want projector.ColorMode
		ok   bool
	}{
		{"Category", projector.ColorByCategory, true},
		{"heatmap", projector.ColorNeutral, false},
	}
	for _, tt := range tests {
		m, ok := projector.ParseColorMode(tt.in)
		if m != tt.want || ok != tt.ok {
			t.Errorf("ParseColorMode(%q) = %v, %v; want %v, %v", tt.in, m, ok, tt.want, tt.ok)
		}
	}
}

func TestProjectAndEdgeNodes(t *testing.T) {
	objs := synthesize(t, facilitytest.Relocation())
	st := projector.DefaultState()
	st.Selected = "dev-old"

	r := projector.Project(objs.Devices, objs.Index, st)
	if r.Visible != 3 {
		t.Errorf("visible = %d, want 3", r.Visible)
	}
	if r.Selected != objs.Devices["dev-old"] {
		t.Errorf("selected = %v, want dev-old", r.Selected)
	}
	if !slices.Equal(r.Related, []string{"dev-new"}) {
		t.Errorf("related = %v, want [dev-new]", r.Related)
	}
	if len(r.Edges) != 1 {
		t.Fatalf("got %d edges, want 1", len(r.Edges))
	}

	container := projector.EdgeNodes(r.Edges)
	if len(container.Children()) != 1 {
		t.Fatalf("got %d edge nodes, want 1", len(container.Children()))
	}
	line, ok := container.Children()[0].Renderable.(*scene.Line)
	if !ok {
		t.Fatalf("edge node renderable is %T", container.Children()[0].Renderable)
	}
	if line.Color != projector.EdgeSelectedColor {
		t.Errorf("line color = %v, want selected", line.Color)
	}
	if want := r.Edges[0].To.Sub(r.Edges[0].From).Len(); math.Abs(line.Length()-want) > 1e-9 {
		t.Errorf("line length = %v, want %v", line.Length(), want)
	}

	// Unknown selection projects as no selection.
	st.Selected = "ghost"
	r = projector.Project(objs.Devices, objs.Index, st)
	if r.Selected != nil || len(r.Related) != 0 {
		t.Errorf("ghost selection = %v related %v", r.Selected, r.Related)
	}
	if r.Edges[0].Highlighted {
		t.Error("edge highlighted without a selection")
	}
}
