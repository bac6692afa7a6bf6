package hierarchy

import (
	"reflect"
	"testing"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility/facilitytest"
)

func TestBuildAdjacency(t *testing.T) {
	x := Build(facilitytest.TwoRacksSixDevices())

	if x.Root() != "site-1" {
		t.Fatalf("Root = %q", x.Root())
	}
	if got := x.Children("room-1"); !reflect.DeepEqual(got, []string{"rack-a", "rack-b"}) {
		t.Errorf("Children(room-1) = %v", got)
	}
	if got := x.Children("rack-a"); len(got) != 3 {
		t.Errorf("Children(rack-a) = %v", got)
	}
	e, ok := x.Get("rack-b-dev-2")
	if !ok || e.Type != facility.EntityDevice || e.ParentID != "rack-b" || e.Device == nil {
		t.Errorf("Get(rack-b-dev-2) = %+v, %v", e, ok)
	}
	if n := x.Len(); n != 1+1+1+1+2+6 {
		t.Errorf("Len = %d", n)
	}
	if len(x.Fallbacks()) != 0 {
		t.Errorf("unexpected fallbacks %v", x.Fallbacks())
	}
}

func TestDescendantsOfRoom(t *testing.T) {
	x := Build(facilitytest.TwoRacksSixDevices())
	got := x.Descendants("room-1")
	want := []string{
		"rack-a", "rack-a-dev-1", "rack-a-dev-2", "rack-a-dev-3",
		"rack-b", "rack-b-dev-1", "rack-b-dev-2", "rack-b-dev-3",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Descendants(room-1) = %v, want %v", got, want)
	}
	// Cached copies are independent.
	got[0] = "mutated"
	if x.Descendants("room-1")[0] != "rack-a" {
		t.Error("Descendants returned the cached slice")
	}
	if d := x.Descendants("rack-a-dev-1"); len(d) != 0 {
		t.Errorf("leaf descendants = %v", d)
	}
	if d := x.DevicesIn("site-1"); len(d) != 6 {
		t.Errorf("DevicesIn(site) = %v", d)
	}
}

func TestDescendantsCycleSafe(t *testing.T) {
	x := &Index{
		byID: map[string]*Entity{
			"a": {ID: "a"}, "b": {ID: "b", ParentID: "a"}, "c": {ID: "c", ParentID: "b"},
		},
		children: map[string][]string{
			"a": {"b"},
			"b": {"c"},
			"c": {"a", "b"},
		},
	}
	got := x.Descendants("a")
	if !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Fatalf("Descendants(a) = %v", got)
	}
	x.byID["a"].ParentID = "c"
	if anc := x.Ancestors("c"); !reflect.DeepEqual(anc, []string{"b", "a"}) {
		t.Errorf("Ancestors(c) = %v", anc)
	}
}

func TestLogicalGroups(t *testing.T) {
	x := Build(facilitytest.Relocation())

	if got := x.LogicalGroup("eq-1"); !reflect.DeepEqual(got, []string{"dev-old", "dev-new"}) {
		t.Errorf("group eq-1 = %v", got)
	}
	if got := x.LogicalGroupKeys(); !reflect.DeepEqual(got, []string{"eq-1", "eq-2"}) {
		t.Errorf("group keys = %v", got)
	}
	// Symmetry of the related relation.
	if got := x.Related("dev-old"); !reflect.DeepEqual(got, []string{"dev-new"}) {
		t.Errorf("Related(dev-old) = %v", got)
	}
	if got := x.Related("dev-new"); !reflect.DeepEqual(got, []string{"dev-old"}) {
		t.Errorf("Related(dev-new) = %v", got)
	}
	if got := x.Related("dev-other"); len(got) != 0 {
		t.Errorf("unique equipment should have no related devices, got %v", got)
	}
	if got := x.Related("nope"); got != nil {
		t.Errorf("unknown device related = %v", got)
	}
}

func TestEmptyLogicalIDFormsSingleton(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Devices = append(cfg.Devices, facility.Device{ID: "dev-2", RackID: "rack-a", UStart: 20, UHeight: 1})
	x := Build(cfg)
	if k, _ := x.GroupOf("dev-1"); k != "dev-1" {
		t.Errorf("GroupOf(dev-1) = %q, want its own id", k)
	}
	if len(x.Related("dev-1")) != 0 || len(x.Related("dev-2")) != 0 {
		t.Error("devices without logical ids must not relate to each other")
	}
}

func TestSyntheticFallbackChain(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Racks = append(cfg.Racks, facility.Rack{ID: "rack-lost", RoomID: "room-missing", UHeight: 42})
	cfg.Devices = append(cfg.Devices, facility.Device{ID: "dev-lost", RackID: "rack-missing", UStart: 1, UHeight: 1})

	x := Build(cfg)

	rack, _ := x.Get("rack-lost")
	if rack.ParentID != "Room-default" {
		t.Fatalf("rack-lost parent = %q, want Room-default", rack.ParentID)
	}
	want := []string{"site-1", "Building-default", "Floor-default", "Room-default", "rack-lost"}
	if got := x.Path("rack-lost"); !reflect.DeepEqual(got, want) {
		t.Errorf("Path(rack-lost) = %v, want %v", got, want)
	}
	dev, _ := x.Get("dev-lost")
	if dev.ParentID != "Rack-default" {
		t.Errorf("dev-lost parent = %q", dev.ParentID)
	}
	if p := x.Path("dev-lost"); p[3] != "Room-default" {
		t.Errorf("synthetic rack should reuse the synthetic room, path %v", p)
	}
	syn, _ := x.Get("Building-default")
	if !syn.Synthetic || syn.Type != facility.EntityBuilding {
		t.Errorf("Building-default = %+v", syn)
	}

	fb := x.Fallbacks()
	if len(fb) != 2 || fb[0].EntityID != "rack-lost" || fb[0].MissingParentID != "room-missing" {
		t.Errorf("Fallbacks = %+v", fb)
	}
}

func TestFallbackFirst(t *testing.T) {
	cfg := facilitytest.Relocation()
	cfg.Devices = append(cfg.Devices, facility.Device{ID: "dev-lost", RackID: "", UStart: 30, UHeight: 1})

	x := Build(cfg, WithFallback(FallbackFirst))
	dev, _ := x.Get("dev-lost")
	if dev.ParentID != "rack-a" {
		t.Errorf("FallbackFirst parent = %q, want first rack", dev.ParentID)
	}

	// With no rooms at all, FallbackFirst degrades to a synthetic parent.
	cfg = facilitytest.SingleDevice()
	cfg.Rooms = nil
	x = Build(cfg, WithFallback(FallbackFirst))
	rack, _ := x.Get("rack-a")
	if rack.ParentID != "Room-default" {
		t.Errorf("rack parent = %q, want Room-default", rack.ParentID)
	}
	if room, _ := x.Get("Room-default"); room.ParentID != "flr-1" {
		t.Errorf("synthetic room parent = %q, want first real floor", room.ParentID)
	}
}

func TestWrongParentTypeIsUnresolved(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Racks[0].RoomID = "flr-1" // a floor, not a room
	x := Build(cfg)
	rack, _ := x.Get("rack-a")
	if rack.ParentID == "flr-1" {
		t.Fatal("rack attached to a floor")
	}
}

func TestDuplicateIDsKeepFirst(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Devices = append(cfg.Devices, facility.Device{ID: "dev-1", RackID: "rack-a", UStart: 30, UHeight: 1})
	x := Build(cfg)
	if got := x.Children("rack-a"); len(got) != 1 {
		t.Errorf("duplicate device indexed twice: %v", got)
	}
	d, _ := x.Get("dev-1")
	if d.Device.UStart != 10 {
		t.Errorf("first occurrence should win, got uStart %d", d.Device.UStart)
	}
}

func TestBuildNilConfig(t *testing.T) {
	x := Build(nil)
	if x.Root() != "Site-default" || x.Len() != 1 {
		t.Errorf("nil config index root=%q len=%d", x.Root(), x.Len())
	}
}
