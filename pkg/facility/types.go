package facility

import (
	"fmt"
	"strings"
)

// EntityType enumerates the classes of facility hierarchy nodes.
type EntityType int

const (
	EntitySite EntityType = iota
	EntityBuilding
	EntityFloor
	EntityRoom
	EntityRack
	EntityDevice
)

func (t EntityType) String() string {
	switch t {
	case EntitySite:
		return "site"
	case EntityBuilding:
		return "building"
	case EntityFloor:
		return "floor"
	case EntityRoom:
		return "room"
	case EntityRack:
		return "rack"
	case EntityDevice:
		return "device"
	default:
		return "unknown"
	}
}

// Title is the capitalized form used for synthetic ids ("Building-default").
func (t EntityType) Title() string {
	s := t.String()
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

// ParentType returns the class that must contain t. Sites have no parent and
// report themselves with ok=false.
func (t EntityType) ParentType() (EntityType, bool) {
	switch t {
	case EntityBuilding:
		return EntitySite, true
	case EntityFloor:
		return EntityBuilding, true
	case EntityRoom:
		return EntityFloor, true
	case EntityRack:
		return EntityRoom, true
	case EntityDevice:
		return EntityRack, true
	default:
		return EntitySite, false
	}
}

// Vec3 is a plain 3-component vector as it appears in exported data.
type Vec3 struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
	Z float64 `json:"z" yaml:"z"`
}

// IsZero reports whether all components are zero.
func (v Vec3) IsZero() bool {
	return v.X == 0 && v.Y == 0 && v.Z == 0
}

// Transform places a node relative to its parent's local frame.
// Rotation holds XYZ Euler angles in radians.
type Transform struct {
	Position Vec3 `json:"position" yaml:"position"`
	Rotation Vec3 `json:"rotation" yaml:"rotation"`
	Scale    Vec3 `json:"scale" yaml:"scale"`
}

// Normalized returns t with an omitted (all-zero) scale replaced by unit scale.
// Exported data frequently leaves scale out.
func (t Transform) Normalized() Transform {
	if t.Scale.IsZero() {
		t.Scale = Vec3{X: 1, Y: 1, Z: 1}
	}
	return t
}

// Building belongs to a site.
type Building struct {
	ID        string    `json:"id" yaml:"id"`
	Name      string    `json:"name" yaml:"name"`
	SiteID    string    `json:"siteId,omitempty" yaml:"siteId,omitempty"`
	Transform Transform `json:"transform" yaml:"transform"`
}

// Floor belongs to a building. Elevation is informational (labels, graph view);
// placement uses Transform.
type Floor struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	BuildingID string    `json:"buildingId" yaml:"buildingId"`
	Level      int       `json:"level" yaml:"level"`
	Elevation  float64   `json:"elevation,omitempty" yaml:"elevation,omitempty"`
	Transform  Transform `json:"transform" yaml:"transform"`
}

// Room belongs to a floor. Transform is expressed in the building frame; floors
// carry identity transforms unless a dataset says otherwise.
type Room struct {
	ID         string    `json:"id" yaml:"id"`
	Name       string    `json:"name" yaml:"name"`
	FloorID    string    `json:"floorId" yaml:"floorId"`
	Transform  Transform `json:"transformInBuilding" yaml:"transformInBuilding"`
	Dimensions Vec3      `json:"dimensions" yaml:"dimensions"`
}

// DefaultRackUnits is the rack capacity assumed when a rack declares none.
const DefaultRackUnits = 42

// Rack belongs to a room.
type Rack struct {
	ID           string    `json:"id" yaml:"id"`
	Name         string    `json:"name" yaml:"name"`
	RoomID       string    `json:"roomId" yaml:"roomId"`
	UHeight      int       `json:"uHeight" yaml:"uHeight"`
	Transform    Transform `json:"positionInRoom" yaml:"positionInRoom"`
	PowerKwLimit float64   `json:"powerKwLimit" yaml:"powerKwLimit"`
}

// Units returns the rack capacity, substituting DefaultRackUnits for a
// missing or non-positive value.
func (r Rack) Units() int {
	if r.UHeight <= 0 {
		return DefaultRackUnits
	}
	return r.UHeight
}

// Device is one lifecycle snapshot of a piece of equipment mounted in a rack.
// Rows sharing LogicalEquipmentID describe the same physical asset.
type Device struct {
	ID                 string   `json:"id" yaml:"id"`
	Name               string   `json:"name" yaml:"name"`
	RackID             string   `json:"rackId" yaml:"rackId"`
	DeviceTypeID       string   `json:"deviceTypeId" yaml:"deviceTypeId"`
	LogicalEquipmentID string   `json:"logicalEquipmentId,omitempty" yaml:"logicalEquipmentId,omitempty"`
	UStart             int      `json:"uStart" yaml:"uStart"`
	UHeight            int      `json:"uHeight" yaml:"uHeight"`
	Status             Status4D `json:"status4D" yaml:"status4D"`
	PowerKw            float64  `json:"powerKw" yaml:"powerKw"`
	VerticalMount      bool     `json:"verticalMount,omitempty" yaml:"verticalMount,omitempty"`
}

// IsVertical reports whether the device is side-mounted and therefore exempt
// from unit-slot arithmetic.
func (d Device) IsVertical() bool {
	return d.VerticalMount || d.UHeight == 0
}

// LogicalKey returns the key used to group lifecycle snapshots. A device
// without a logical equipment id forms a group of its own.
func (d Device) LogicalKey() string {
	if d.LogicalEquipmentID != "" {
		return d.LogicalEquipmentID
	}
	return d.ID
}

// SceneConfig is the flattened export of one site's hierarchy and the sole
// input of scene synthesis.
type SceneConfig struct {
	SiteID    string     `json:"siteId" yaml:"siteId"`
	SiteName  string     `json:"siteName,omitempty" yaml:"siteName,omitempty"`
	Buildings []Building `json:"buildings" yaml:"buildings"`
	Floors    []Floor    `json:"floors" yaml:"floors"`
	Rooms     []Room     `json:"rooms" yaml:"rooms"`
	Racks     []Rack     `json:"racks" yaml:"racks"`
	Devices   []Device   `json:"devices" yaml:"devices"`
}

// RackByID returns the rack with the given id.
func (c *SceneConfig) RackByID(id string) (Rack, bool) {
	for _, r := range c.Racks {
		if r.ID == id {
			return r, true
		}
	}
	return Rack{}, false
}

// DeviceByID returns the device with the given id.
func (c *SceneConfig) DeviceByID(id string) (Device, bool) {
	for _, d := range c.Devices {
		if d.ID == id {
			return d, true
		}
	}
	return Device{}, false
}

// EntityCount returns the number of entities, excluding the implicit site.
func (c *SceneConfig) EntityCount() int {
	return len(c.Buildings) + len(c.Floors) + len(c.Rooms) + len(c.Racks) + len(c.Devices)
}

// MarshalText renders the entity type by name in JSON payloads.
func (t EntityType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseEntityType accepts an entity class name in any case.
func ParseEntityType(s string) (EntityType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for t := EntitySite; t <= EntityDevice; t++ {
		if t.String() == name {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown entity type %q", s)
}

func (t *EntityType) UnmarshalText(b []byte) error {
	v, err := ParseEntityType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}
