package synth_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/assets"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility/facilitytest"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/kernel"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/primitive"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/scene"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/synth"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func newSynth(opts ...synth.Option) *synth.Synthesizer {
	f := primitive.New(kernel.NewBoxKernel(), primitive.DefaultDimensions())
	return synth.New(f, opts...)
}

func mustSynthesize(t *testing.T, s *synth.Synthesizer, cfg *facility.SceneConfig) *synth.SceneObjects {
	t.Helper()
	objs, err := s.Synthesize(context.Background(), cfg, facilitytest.Catalog())
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	return objs
}

// positions maps every tagged entity body to its world position.
func positions(objs *synth.SceneObjects) map[string]mgl64.Vec3 {
	out := make(map[string]mgl64.Vec3)
	scene.Walk(objs.Root, func(n *scene.Node) bool {
		if n.Tag != nil && n.Tag.IsBody() {
			out[n.Tag.EntityID] = n.WorldPosition()
		}
		return true
	})
	return out
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestSingleDevicePlacement(t *testing.T) {
	objs := mustSynthesize(t, newSynth(), facilitytest.SingleDevice())

	dev, ok := objs.Devices["dev-1"]
	if !ok {
		t.Fatal("device node missing")
	}
	want := 10 * (2.0 / 42)
	if got := dev.Transform.Position[1]; math.Abs(got-want) > 1e-12 {
		t.Fatalf("device Y offset = %v, want %v", got, want)
	}
	if math.Abs(want-0.476) > 0.001 {
		t.Fatalf("sanity: %v", want)
	}
	if dev.Parent() != objs.Racks["rack-a"] {
		t.Error("device should hang under its rack")
	}
	if objs.Racks["rack-a"].Parent() != objs.Rooms["room-1"] {
		t.Error("rack should hang under its room")
	}
	if objs.Building == nil || objs.Building != objs.Buildings["bld-1"] {
		t.Error("Building should be the first building node")
	}
	p := objs.Placements["dev-1"]
	if p.Vertical || math.Abs(p.Offset-want) > 1e-12 || p.RackID != "rack-a" {
		t.Errorf("placement = %+v", p)
	}
	tag := dev.Tag
	if tag.Status != facility.StatusExistingRetained || tag.Category != facility.CategoryServer {
		t.Errorf("device tag = %+v", tag)
	}
}

func TestPlacementIgnoresOtherDevices(t *testing.T) {
	base := mustSynthesize(t, newSynth(), facilitytest.SingleDevice())

	cfg := facilitytest.SingleDevice()
	// Overlapping neighbours must not shift the device.
	cfg.Devices = append(cfg.Devices,
		facility.Device{ID: "dev-2", RackID: "rack-a", DeviceTypeID: "dt-2u", UStart: 9, UHeight: 2, Status: facility.StatusExistingRetained},
		facility.Device{ID: "dev-3", RackID: "rack-a", DeviceTypeID: "dt-2u", UStart: 10, UHeight: 2, Status: facility.StatusExistingRetained},
	)
	objs := mustSynthesize(t, newSynth(), cfg)

	if objs.Placements["dev-1"] != base.Placements["dev-1"] {
		t.Errorf("placement changed: %+v vs %+v", objs.Placements["dev-1"], base.Placements["dev-1"])
	}
	if objs.Findings.Count(facility.CodeSlotOverlap) == 0 {
		t.Error("overlap should be reported as a finding")
	}
	if objs.Placements["dev-3"].Offset != objs.Placements["dev-1"].Offset {
		t.Error("overlapping devices are rendered at their declared slots")
	}
}

func TestSynthesizeIsIdempotent(t *testing.T) {
	s := newSynth()
	for name, cfg := range map[string]func() *facility.SceneConfig{
		"relocation": facilitytest.Relocation,
		"two racks":  facilitytest.TwoRacksSixDevices,
	} {
		t.Run(name, func(t *testing.T) {
			a := positions(mustSynthesize(t, s, cfg()))
			b := positions(mustSynthesize(t, s, cfg()))
			if len(a) != len(b) || len(a) == 0 {
				t.Fatalf("node counts differ: %d vs %d", len(a), len(b))
			}
			for id, pa := range a {
				if pb, ok := b[id]; !ok || !pa.ApproxEqual(pb) {
					t.Errorf("%s: %v vs %v", id, pa, pb)
				}
			}
		})
	}
}

func TestStructureMatchesAcrossRuns(t *testing.T) {
	s := newSynth()
	a := mustSynthesize(t, s, facilitytest.TwoRacksSixDevices())
	b := mustSynthesize(t, s, facilitytest.TwoRacksSixDevices())
	var na, nb []string
	scene.Walk(a.Root, func(n *scene.Node) bool { na = append(na, n.Name); return true })
	scene.Walk(b.Root, func(n *scene.Node) bool { nb = append(nb, n.Name); return true })
	if strings.Join(na, "/") != strings.Join(nb, "/") {
		t.Errorf("walk order differs:\n%v\n%v", na, nb)
	}
}

func TestRackTransformApplied(t *testing.T) {
	objs := mustSynthesize(t, newSynth(), facilitytest.Relocation())
	got := objs.Racks["rack-b"].WorldPosition()
	if !got.ApproxEqual(mgl64.Vec3{4, 0, 1}) {
		t.Errorf("rack-b world position = %v", got)
	}
	dev := objs.Devices["dev-new"].WorldPosition()
	if math.Abs(dev[1]-5*(2.0/42)) > 1e-9 || dev[0] < 4 {
		t.Errorf("dev-new world position = %v", dev)
	}
}

func TestVerticalMountStrip(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Devices = append(cfg.Devices, facility.Device{
		ID: "pdu-1", RackID: "rack-a", DeviceTypeID: "dt-pdu", UStart: 10, UHeight: 0,
		Status: facility.StatusExistingRetained,
	})
	objs := mustSynthesize(t, newSynth(), cfg)
	p := objs.Placements["pdu-1"]
	if !p.Vertical || p.Offset != 0 {
		t.Errorf("strip placement = %+v", p)
	}
	h := objs.Devices["pdu-1"].Renderable.Bounds().Size()[1]
	if h != 2.0 {
		t.Errorf("strip height = %v, want full rack height", h)
	}
	if objs.Findings.Count(facility.CodeSlotOverlap) != 0 {
		t.Error("vertical mount must be exempt from overlap checks")
	}
}

func TestDegradesOnBadData(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Devices = append(cfg.Devices,
		facility.Device{ID: "orphan", RackID: "rack-missing", DeviceTypeID: "dt-server", UStart: 3, UHeight: 1, Status: facility.StatusProposed},
		facility.Device{ID: "mystery", RackID: "rack-a", DeviceTypeID: "dt-nope", UStart: 30, UHeight: 1, Status: facility.StatusProposed},
	)
	objs := mustSynthesize(t, newSynth(), cfg)

	orphan, ok := objs.Devices["orphan"]
	if !ok {
		t.Fatal("orphan device should still render")
	}
	rack := orphan.Parent()
	if rack == nil || rack.Tag.EntityID != "Rack-default" || !rack.Tag.Synthetic {
		t.Errorf("orphan parent = %+v", rack.Tag)
	}
	mystery := objs.Devices["mystery"]
	if mystery.Tag.Category != facility.CategoryUnknown {
		t.Errorf("unknown type category = %s", mystery.Tag.Category)
	}
	if mystery.Renderable.Surface().Color != primitive.NeutralColor {
		t.Errorf("unknown type color = %v", mystery.Renderable.Surface().Color)
	}
	if objs.Findings.Count(facility.CodeUnknownDeviceType) != 1 || objs.Findings.Count(facility.CodeUnresolvedParent) != 1 {
		t.Errorf("findings = %v", objs.Findings)
	}
}

func TestModelsReplaceChassis(t *testing.T) {
	catalog := facilitytest.Catalog()
	dt := catalog["dt-2u"]
	dt.ModelRef = "models/2u.json"
	catalog["dt-2u"] = dt

	mesh := &kernel.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 1},
		Normals:  make([]float32, 9),
		Indices:  []uint32{0, 1, 2},
	}
	svc := assets.NewService(assets.FetcherFunc(func(ctx context.Context, uri string) (*kernel.Mesh, error) {
		if uri == "models/2u.json" {
			return mesh, nil
		}
		return nil, errors.New("not found")
	}))
	s := newSynth(synth.WithModels(svc))
	objs, err := s.Synthesize(context.Background(), facilitytest.Relocation(), catalog)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if _, ok := objs.Devices["dev-old"].Renderable.(*scene.Model); !ok {
		t.Errorf("dev-old renderable = %T, want *scene.Model", objs.Devices["dev-old"].Renderable)
	}
	if _, ok := objs.Devices["dev-other"].Renderable.(*scene.Solid); !ok {
		t.Errorf("device without model should keep its chassis, got %T", objs.Devices["dev-other"].Renderable)
	}
	if objs.Placements["dev-new"].Model != "models/2u.json" {
		t.Errorf("placement model = %q", objs.Placements["dev-new"].Model)
	}
}

func TestBrokenModelFallsBack(t *testing.T) {
	catalog := facilitytest.Catalog()
	dt := catalog["dt-2u"]
	dt.ModelRef = "missing.json"
	catalog["dt-2u"] = dt

	svc := assets.NewService(assets.FileFetcher{BaseDir: t.TempDir()})
	objs, err := newSynth(synth.WithModels(svc)).Synthesize(context.Background(), facilitytest.SingleDevice(), catalog)
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	if _, ok := objs.Devices["dev-1"].Renderable.(*scene.Solid); !ok {
		t.Errorf("failed load should keep the primitive chassis, got %T", objs.Devices["dev-1"].Renderable)
	}
}

func TestCancelledSynthesis(t *testing.T) {
	catalog := facilitytest.Catalog()
	dt := catalog["dt-2u"]
	dt.ModelRef = "slow.json"
	catalog["dt-2u"] = dt

	ctx, cancel := context.WithCancel(context.Background())
	svc := assets.NewService(assets.FetcherFunc(func(ctx context.Context, uri string) (*kernel.Mesh, error) {
		cancel()
		<-ctx.Done()
		return nil, ctx.Err()
	}))
	_, err := newSynth(synth.WithModels(svc)).Synthesize(ctx, facilitytest.SingleDevice(), catalog)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDisposeReleasesAllNodes(t *testing.T) {
	objs := mustSynthesize(t, newSynth(), facilitytest.TwoRacksSixDevices())
	renderables := 0
	scene.Walk(objs.Root, func(n *scene.Node) bool {
		if n.Renderable != nil {
			renderables++
		}
		return true
	})
	if got := objs.Dispose(); got != renderables {
		t.Errorf("Dispose released %d, want %d", got, renderables)
	}
	if !objs.Bounds().IsEmpty() {
		t.Error("disposed scene should have empty bounds")
	}
}

func TestNodeLookup(t *testing.T) {
	objs := mustSynthesize(t, newSynth(), facilitytest.Relocation())
	for _, id := range []string{"site-1", "bld-1", "flr-1", "room-1", "rack-a", "dev-new"} {
		if _, ok := objs.Node(id); !ok {
			t.Errorf("Node(%s) missing", id)
		}
	}
	if _, ok := objs.Node("nope"); ok {
		t.Error("Node(nope) should miss")
	}
}
