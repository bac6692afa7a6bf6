package facility_test

import (
	"strings"
	"testing"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility/facilitytest"
)

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

func findingFor(fs facility.Findings, code, id string) (facility.Finding, bool) {
	for _, f := range fs {
		if f.Code == code && f.EntityID == id {
			return f, true
		}
	}
	return facility.Finding{}, false
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestValidateCleanFixture(t *testing.T) {
	for name, cfg := range map[string]*facility.SceneConfig{
		"single":     facilitytest.SingleDevice(),
		"relocation": facilitytest.Relocation(),
		"two racks":  facilitytest.TwoRacksSixDevices(),
	} {
		t.Run(name, func(t *testing.T) {
			if fs := facility.Validate(cfg, facilitytest.Catalog()); len(fs) != 0 {
				t.Fatalf("expected no findings, got %v", fs)
			}
		})
	}
}

func TestValidateNilConfig(t *testing.T) {
	if fs := facility.Validate(nil, nil); fs != nil {
		t.Fatalf("expected nil findings, got %v", fs)
	}
}

func TestValidateUnresolvedParent(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Racks[0].RoomID = "room-missing"
	cfg.Devices = append(cfg.Devices, facility.Device{
		ID: "dev-orphan", RackID: "rack-nowhere", DeviceTypeID: "dt-server",
		UStart: 1, UHeight: 1, Status: facility.StatusExistingRetained,
	})

	fs := facility.Validate(cfg, facilitytest.Catalog())
	f, ok := findingFor(fs, facility.CodeUnresolvedParent, "rack-a")
	if !ok {
		t.Fatalf("missing unresolved_parent for rack-a in %v", fs)
	}
	if f.Severity != facility.SeverityWarning {
		t.Errorf("severity = %s, want warning", f.Severity)
	}
	if !strings.Contains(f.Message, "room-missing") {
		t.Errorf("message %q does not name the missing parent", f.Message)
	}
	if _, ok := findingFor(fs, facility.CodeUnresolvedParent, "dev-orphan"); !ok {
		t.Errorf("missing unresolved_parent for dev-orphan in %v", fs)
	}
}

func TestValidateUnknownDeviceType(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Devices[0].DeviceTypeID = "dt-unknown"
	fs := facility.Validate(cfg, facilitytest.Catalog())
	if _, ok := findingFor(fs, facility.CodeUnknownDeviceType, "dev-1"); !ok {
		t.Fatalf("missing unknown_device_type in %v", fs)
	}
}

func TestValidateDuplicateID(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Devices = append(cfg.Devices, facility.Device{
		ID: "rack-a", RackID: "rack-a", DeviceTypeID: "dt-server",
		UStart: 30, UHeight: 1, Status: facility.StatusExistingRetained,
	})
	fs := facility.Validate(cfg, facilitytest.Catalog())
	errs := fs.Errors()
	if len(errs) != 1 || errs[0].Code != facility.CodeDuplicateID {
		t.Fatalf("expected one duplicate_id error, got %v", errs)
	}
}

func TestValidateSlotOverlap(t *testing.T) {
	tests := []struct {
		name    string
		second  facility.Device
		overlap bool
	}{
		{
			name: "overlapping retained devices",
			second: facility.Device{ID: "dev-2", RackID: "rack-a", DeviceTypeID: "dt-server",
				UStart: 11, UHeight: 1, Status: facility.StatusExistingRetained},
			overlap: true,
		},
		{
			name: "adjacent devices",
			second: facility.Device{ID: "dev-2", RackID: "rack-a", DeviceTypeID: "dt-server",
				UStart: 12, UHeight: 1, Status: facility.StatusExistingRetained},
		},
		{
			name: "vertical mount exempt",
			second: facility.Device{ID: "dev-2", RackID: "rack-a", DeviceTypeID: "dt-pdu",
				UStart: 10, UHeight: 0, Status: facility.StatusExistingRetained},
		},
		{
			name: "explicit vertical flag exempt",
			second: facility.Device{ID: "dev-2", RackID: "rack-a", DeviceTypeID: "dt-pdu",
				UStart: 10, UHeight: 2, VerticalMount: true, Status: facility.StatusExistingRetained},
		},
		{
			name: "removal frees the slot",
			second: facility.Device{ID: "dev-2", RackID: "rack-a", DeviceTypeID: "dt-2u",
				UStart: 10, UHeight: 2, Status: facility.StatusProposed},
		},
		{
			name: "same logical equipment",
			second: facility.Device{ID: "dev-2", RackID: "rack-a", DeviceTypeID: "dt-2u",
				LogicalEquipmentID: "dev-1", UStart: 10, UHeight: 2, Status: facility.StatusModified},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := facilitytest.SingleDevice()
			if tt.name == "removal frees the slot" {
				cfg.Devices[0].Status = facility.StatusExistingRemoved
			}
			cfg.Devices = append(cfg.Devices, tt.second)
			fs := facility.Validate(cfg, facilitytest.Catalog())
			got := fs.Count(facility.CodeSlotOverlap) > 0
			if got != tt.overlap {
				t.Fatalf("overlap = %v, want %v (findings %v)", got, tt.overlap, fs)
			}
		})
	}
}

func TestValidateSlotOutOfRange(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Devices[0].UStart = 41
	cfg.Devices[0].UHeight = 3
	fs := facility.Validate(cfg, facilitytest.Catalog())
	if _, ok := findingFor(fs, facility.CodeSlotOutOfRange, "dev-1"); !ok {
		t.Fatalf("missing slot_out_of_range in %v", fs)
	}

	cfg.Devices[0].UStart = 0
	cfg.Devices[0].UHeight = 1
	fs = facility.Validate(cfg, facilitytest.Catalog())
	if _, ok := findingFor(fs, facility.CodeSlotOutOfRange, "dev-1"); !ok {
		t.Fatalf("uStart 0 should be out of range, got %v", fs)
	}
}

func TestValidatePowerOverLimit(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Racks[0].PowerKwLimit = 1.0
	cfg.Devices = append(cfg.Devices, facility.Device{
		ID: "dev-gpu", RackID: "rack-a", DeviceTypeID: "dt-gpu",
		UStart: 20, UHeight: 4, Status: facility.StatusProposed, PowerKw: 3.2,
	})

	fs := facility.Validate(cfg, facilitytest.Catalog())
	f, ok := findingFor(fs, facility.CodePowerOverLimit, "rack-a")
	if !ok {
		t.Fatalf("missing power_over_limit in %v", fs)
	}
	// AS_IS only draws 0.8 kW; TO_BE adds the proposed GPU node.
	if !strings.HasPrefix(f.Message, "TO_BE") {
		t.Errorf("expected TO_BE to be the first phase over limit, got %q", f.Message)
	}
	if fs.Count(facility.CodePowerOverLimit) != 1 {
		t.Errorf("expected a single power finding per rack, got %d", fs.Count(facility.CodePowerOverLimit))
	}

	cfg.Racks[0].PowerKwLimit = 0
	if n := facility.Validate(cfg, facilitytest.Catalog()).Count(facility.CodePowerOverLimit); n != 0 {
		t.Errorf("zero limit should mean unlimited, got %d findings", n)
	}
}

func TestValidateUnknownStatus(t *testing.T) {
	cfg := facilitytest.SingleDevice()
	cfg.Devices[0].Status = facility.Status4D("RETIRED")
	fs := facility.Validate(cfg, facilitytest.Catalog())
	f, ok := findingFor(fs, facility.CodeUnknownStatus, "dev-1")
	if !ok {
		t.Fatalf("missing unknown_status in %v", fs)
	}
	if f.Severity != facility.SeverityWarning {
		t.Errorf("severity = %s, want warning", f.Severity)
	}
	if f.EntityType != facility.EntityDevice {
		t.Errorf("entity type = %s, want device", f.EntityType)
	}
	if !strings.Contains(f.Message, "RETIRED") {
		t.Errorf("message %q does not name the status", f.Message)
	}

	cfg.Devices[0].Status = facility.StatusExistingRetained
	if n := facility.Validate(cfg, facilitytest.Catalog()).Count(facility.CodeUnknownStatus); n != 0 {
		t.Errorf("known status flagged %d times", n)
	}
}
