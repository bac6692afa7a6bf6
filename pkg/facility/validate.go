package facility

import (
	"fmt"
	"sort"
	"strings"
)

// Severity indicates whether a finding should block publication of a dataset
// or is merely advisory. Rendering never blocks on either.
type Severity int

const (
	SeverityError   Severity = iota // dataset is inconsistent
	SeverityWarning                 // rendered best-effort
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// MarshalText renders the severity by name in JSON payloads.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ParseSeverity accepts "error" or "warning" in any case.
func ParseSeverity(s string) (Severity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return SeverityError, nil
	case "warning":
		return SeverityWarning, nil
	}
	return 0, fmt.Errorf("unknown severity %q", s)
}

func (s *Severity) UnmarshalText(b []byte) error {
	v, err := ParseSeverity(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Finding codes.
const (
	CodeUnresolvedParent  = "unresolved_parent"
	CodeUnknownDeviceType = "unknown_device_type"
	CodeDuplicateID       = "duplicate_id"
	CodeSlotOutOfRange    = "slot_out_of_range"
	CodeSlotOverlap       = "slot_overlap"
	CodePowerOverLimit    = "power_over_limit"
	CodeUnknownStatus     = "unknown_status"
)

// Finding is one data-quality observation about a SceneConfig.
type Finding struct {
	Severity   Severity   `json:"severity"`
	EntityType EntityType `json:"entityType"`
	EntityID   string     `json:"entityId"`
	Code       string     `json:"code"`
	Message    string     `json:"message"`
}

func (f Finding) Error() string {
	if f.EntityID == "" {
		return fmt.Sprintf("[%s] %s", f.Severity, f.Message)
	}
	return fmt.Sprintf("[%s] %s %s: %s", f.Severity, f.EntityType, f.EntityID, f.Message)
}

// Findings is a list of findings with severity filters.
type Findings []Finding

// Errors returns the blocking findings.
func (fs Findings) Errors() Findings { return fs.filter(SeverityError) }

// Warnings returns the advisory findings.
func (fs Findings) Warnings() Findings { return fs.filter(SeverityWarning) }

// Count returns how many findings carry code.
func (fs Findings) Count(code string) int {
	n := 0
	for _, f := range fs {
		if f.Code == code {
			n++
		}
	}
	return n
}

func (fs Findings) filter(sev Severity) Findings {
	var out Findings
	for _, f := range fs {
		if f.Severity == sev {
			out = append(out, f)
		}
	}
	return out
}

// Validate runs every data-quality check against cfg and returns the findings
// in a deterministic order. It is read-only and never fails.
func Validate(cfg *SceneConfig, catalog Catalog) Findings {
	if cfg == nil {
		return nil
	}
	var out Findings
	out = append(out, validateDuplicateIDs(cfg)...)
	out = append(out, validateParents(cfg)...)
	out = append(out, validateDeviceTypes(cfg, catalog)...)
	out = append(out, validateStatuses(cfg)...)
	out = append(out, validateSlots(cfg)...)
	out = append(out, validatePower(cfg)...)
	return out
}

// validateStatuses flags devices whose status is not a known Status4D. Such
// devices are never eligible in any phase.
func validateStatuses(cfg *SceneConfig) Findings {
	var out Findings
	for _, d := range cfg.Devices {
		if d.Status.Valid() {
			continue
		}
		out = append(out, Finding{
			Severity:   SeverityWarning,
			EntityType: EntityDevice,
			EntityID:   d.ID,
			Code:       CodeUnknownStatus,
			Message:    fmt.Sprintf("unknown status4D %q; the device is hidden in every phase", string(d.Status)),
		})
	}
	return out
}

// validateDuplicateIDs checks id uniqueness across all entity classes.
func validateDuplicateIDs(cfg *SceneConfig) Findings {
	var out Findings
	seen := make(map[string]EntityType)
	check := func(t EntityType, id string) {
		if prev, ok := seen[id]; ok {
			out = append(out, Finding{
				Severity:   SeverityError,
				EntityType: t,
				EntityID:   id,
				Code:       CodeDuplicateID,
				Message:    fmt.Sprintf("id %q already used by a %s", id, prev),
			})
			return
		}
		seen[id] = t
	}
	if cfg.SiteID != "" {
		check(EntitySite, cfg.SiteID)
	}
	for _, b := range cfg.Buildings {
		check(EntityBuilding, b.ID)
	}
	for _, f := range cfg.Floors {
		check(EntityFloor, f.ID)
	}
	for _, r := range cfg.Rooms {
		check(EntityRoom, r.ID)
	}
	for _, r := range cfg.Racks {
		check(EntityRack, r.ID)
	}
	for _, d := range cfg.Devices {
		check(EntityDevice, d.ID)
	}
	return out
}

// validateParents reports references that do not resolve to an entity of the
// containing class. Buildings may omit their site id.
func validateParents(cfg *SceneConfig) Findings {
	buildings := idSet(len(cfg.Buildings), func(i int) string { return cfg.Buildings[i].ID })
	floors := idSet(len(cfg.Floors), func(i int) string { return cfg.Floors[i].ID })
	rooms := idSet(len(cfg.Rooms), func(i int) string { return cfg.Rooms[i].ID })
	racks := idSet(len(cfg.Racks), func(i int) string { return cfg.Racks[i].ID })

	var out Findings
	report := func(t EntityType, id, parent string) {
		pt, _ := t.ParentType()
		out = append(out, Finding{
			Severity:   SeverityWarning,
			EntityType: t,
			EntityID:   id,
			Code:       CodeUnresolvedParent,
			Message:    fmt.Sprintf("%s %q not found", pt, parent),
		})
	}
	for _, b := range cfg.Buildings {
		if b.SiteID != "" && cfg.SiteID != "" && b.SiteID != cfg.SiteID {
			report(EntityBuilding, b.ID, b.SiteID)
		}
	}
	for _, f := range cfg.Floors {
		if !buildings[f.BuildingID] {
			report(EntityFloor, f.ID, f.BuildingID)
		}
	}
	for _, r := range cfg.Rooms {
		if !floors[r.FloorID] {
			report(EntityRoom, r.ID, r.FloorID)
		}
	}
	for _, r := range cfg.Racks {
		if !rooms[r.RoomID] {
			report(EntityRack, r.ID, r.RoomID)
		}
	}
	for _, d := range cfg.Devices {
		if !racks[d.RackID] {
			report(EntityDevice, d.ID, d.RackID)
		}
	}
	return out
}

func validateDeviceTypes(cfg *SceneConfig, catalog Catalog) Findings {
	var out Findings
	for _, d := range cfg.Devices {
		if _, ok := catalog.Lookup(d.DeviceTypeID); !ok {
			out = append(out, Finding{
				Severity:   SeverityWarning,
				EntityType: EntityDevice,
				EntityID:   d.ID,
				Code:       CodeUnknownDeviceType,
				Message:    fmt.Sprintf("device type %q not in catalog", d.DeviceTypeID),
			})
		}
	}
	return out
}

// validateSlots checks range and overlap of unit slots per rack. Snapshots of
// the same logical equipment never collide with each other.
func validateSlots(cfg *SceneConfig) Findings {
	var out Findings
	byRack := make(map[string][]Device)
	var order []string
	for _, d := range cfg.Devices {
		if _, ok := byRack[d.RackID]; !ok {
			order = append(order, d.RackID)
		}
		byRack[d.RackID] = append(byRack[d.RackID], d)
	}

	for _, rackID := range order {
		rack, hasRack := cfg.RackByID(rackID)
		units := DefaultRackUnits
		if hasRack {
			units = rack.Units()
		}
		devices := byRack[rackID]

		var slotted []Device
		for _, d := range devices {
			if d.IsVertical() {
				continue
			}
			if d.UStart < 1 || d.UStart+d.UHeight-1 > units {
				out = append(out, Finding{
					Severity:   SeverityWarning,
					EntityType: EntityDevice,
					EntityID:   d.ID,
					Code:       CodeSlotOutOfRange,
					Message: fmt.Sprintf("slots U%d-U%d outside rack %q (1-%d)",
						d.UStart, d.UStart+d.UHeight-1, rackID, units),
				})
			}
			slotted = append(slotted, d)
		}

		sort.SliceStable(slotted, func(i, j int) bool { return slotted[i].UStart < slotted[j].UStart })
		for i := 0; i < len(slotted); i++ {
			a := slotted[i]
			for j := i + 1; j < len(slotted); j++ {
				b := slotted[j]
				if b.UStart >= a.UStart+a.UHeight {
					break
				}
				if a.LogicalKey() == b.LogicalKey() || !coVisible(a.Status, b.Status) {
					continue
				}
				out = append(out, Finding{
					Severity:   SeverityWarning,
					EntityType: EntityDevice,
					EntityID:   b.ID,
					Code:       CodeSlotOverlap,
					Message: fmt.Sprintf("slots U%d-U%d overlap device %q (U%d-U%d) in rack %q",
						b.UStart, b.UStart+b.UHeight-1, a.ID, a.UStart, a.UStart+a.UHeight-1, rackID),
				})
			}
		}
	}
	return out
}

// coVisible reports whether two snapshots in the same slot conflict. Removed
// equipment frees its slot for whatever replaces it.
func coVisible(a, b Status4D) bool {
	return isRemoval(a) == isRemoval(b)
}

func isRemoval(s Status4D) bool {
	return s == StatusExistingRemoved
}

// validatePower sums eligible device power per phase and reports the first
// phase whose total exceeds the rack limit. A limit <= 0 means unlimited.
func validatePower(cfg *SceneConfig) Findings {
	var out Findings
	for _, rack := range cfg.Racks {
		if rack.PowerKwLimit <= 0 {
			continue
		}
		for _, phase := range AllPhases {
			total := 0.0
			for _, d := range cfg.Devices {
				if d.RackID == rack.ID && Eligible(d.Status, phase) {
					total += d.PowerKw
				}
			}
			if total > rack.PowerKwLimit {
				out = append(out, Finding{
					Severity:   SeverityWarning,
					EntityType: EntityRack,
					EntityID:   rack.ID,
					Code:       CodePowerOverLimit,
					Message: fmt.Sprintf("%s draw %.2f kW exceeds limit %.2f kW",
						phase, total, rack.PowerKwLimit),
				})
				break
			}
		}
	}
	return out
}

func idSet(n int, id func(int) string) map[string]bool {
	m := make(map[string]bool, n)
	for i := 0; i < n; i++ {
		m[id(i)] = true
	}
	return m
}
