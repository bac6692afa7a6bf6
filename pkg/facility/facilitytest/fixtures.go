// Package facilitytest provides small SceneConfig fixtures shared by tests
// across the engine packages.
package facilitytest

import "github.com/dmytro-yemelianov/twin-sub001/pkg/facility"

// Catalog returns a catalog covering the common categories.
func Catalog() facility.Catalog {
	return facility.NewCatalog([]facility.DeviceType{
		{ID: "dt-server", Name: "1U server", Category: facility.CategoryServer, UHeight: 1, PowerKw: 0.4},
		{ID: "dt-2u", Name: "2U server", Category: facility.CategoryServer, UHeight: 2, PowerKw: 0.8},
		{ID: "dt-gpu", Name: "GPU node", Category: facility.CategoryGPUServer, UHeight: 4, PowerKw: 3.2},
		{ID: "dt-switch", Name: "ToR switch", Category: facility.CategorySwitch, UHeight: 1, PowerKw: 0.3},
		{ID: "dt-storage", Name: "Storage shelf", Category: facility.CategoryStorage, UHeight: 2, PowerKw: 0.9},
		{ID: "dt-pdu", Name: "Vertical PDU", Category: facility.CategoryPDU, UHeight: 0, PowerKw: 0},
	})
}

// skeleton returns a site with one building, floor and room.
func skeleton() *facility.SceneConfig {
	return &facility.SceneConfig{
		SiteID:   "site-1",
		SiteName: "Test Site",
		Buildings: []facility.Building{
			{ID: "bld-1", Name: "Building 1", SiteID: "site-1"},
		},
		Floors: []facility.Floor{
			{ID: "flr-1", Name: "Ground", BuildingID: "bld-1"},
		},
		Rooms: []facility.Room{
			{
				ID: "room-1", Name: "Hall A", FloorID: "flr-1",
				Dimensions: facility.Vec3{X: 10, Y: 3, Z: 8},
			},
		},
	}
}

// SingleDevice is one 42U rack holding one 2U device at U10.
func SingleDevice() *facility.SceneConfig {
	cfg := skeleton()
	cfg.Racks = []facility.Rack{
		{ID: "rack-a", Name: "A01", RoomID: "room-1", UHeight: 42, PowerKwLimit: 10},
	}
	cfg.Devices = []facility.Device{
		{
			ID: "dev-1", Name: "web-01", RackID: "rack-a", DeviceTypeID: "dt-2u",
			UStart: 10, UHeight: 2, Status: facility.StatusExistingRetained, PowerKw: 0.8,
		},
	}
	return cfg
}

// Relocation is one piece of equipment moving from rack A to rack B: an
// EXISTING_REMOVED row in A and a PROPOSED row in B sharing "eq-1", plus an
// unrelated retained device.
func Relocation() *facility.SceneConfig {
	cfg := skeleton()
	cfg.Racks = []facility.Rack{
		{
			ID: "rack-a", Name: "A01", RoomID: "room-1", UHeight: 42,
			Transform: facility.Transform{Position: facility.Vec3{X: 1, Z: 1}},
		},
		{
			ID: "rack-b", Name: "B01", RoomID: "room-1", UHeight: 42,
			Transform: facility.Transform{Position: facility.Vec3{X: 4, Z: 1}},
		},
	}
	cfg.Devices = []facility.Device{
		{
			ID: "dev-old", Name: "db-01", RackID: "rack-a", DeviceTypeID: "dt-2u",
			LogicalEquipmentID: "eq-1", UStart: 20, UHeight: 2,
			Status: facility.StatusExistingRemoved, PowerKw: 0.8,
		},
		{
			ID: "dev-new", Name: "db-01", RackID: "rack-b", DeviceTypeID: "dt-2u",
			LogicalEquipmentID: "eq-1", UStart: 5, UHeight: 2,
			Status: facility.StatusProposed, PowerKw: 0.8,
		},
		{
			ID: "dev-other", Name: "app-07", RackID: "rack-a", DeviceTypeID: "dt-server",
			LogicalEquipmentID: "eq-2", UStart: 2, UHeight: 1,
			Status: facility.StatusExistingRetained, PowerKw: 0.4,
		},
	}
	return cfg
}

// TwoRacksSixDevices is one room with two racks of three devices each.
func TwoRacksSixDevices() *facility.SceneConfig {
	cfg := skeleton()
	cfg.Racks = []facility.Rack{
		{ID: "rack-a", Name: "A01", RoomID: "room-1", UHeight: 42},
		{
			ID: "rack-b", Name: "A02", RoomID: "room-1", UHeight: 42,
			Transform: facility.Transform{Position: facility.Vec3{X: 0.8}},
		},
	}
	statuses := []facility.Status4D{
		facility.StatusExistingRetained,
		facility.StatusProposed,
		facility.StatusFuture,
	}
	for r, rack := range []string{"rack-a", "rack-b"} {
		for i := 0; i < 3; i++ {
			id := rack + "-dev-" + string(rune('1'+i))
			cfg.Devices = append(cfg.Devices, facility.Device{
				ID: id, Name: id, RackID: rack, DeviceTypeID: "dt-server",
				UStart: 1 + i*4 + r, UHeight: 1, Status: statuses[i], PowerKw: 0.4,
			})
		}
	}
	return cfg
}
