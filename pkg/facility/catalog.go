package facility

import (
	"fmt"
	"sort"
)

// Category classifies a device type for palette and chassis selection.
type Category string

const (
	CategoryServer    Category = "SERVER"
	CategoryGPUServer Category = "GPU_SERVER"
	CategoryStorage   Category = "STORAGE"
	CategorySwitch    Category = "SWITCH"
	CategoryNetwork   Category = "NETWORK"
	CategoryPDU       Category = "PDU"
	CategoryUPS       Category = "UPS"
	CategoryBlade     Category = "BLADE"
	CategoryRack      Category = "RACK"

	// CategoryUnknown marks devices whose type could not be resolved.
	CategoryUnknown Category = "UNKNOWN"
)

// AllCategories lists the catalog categories, excluding CategoryUnknown.
var AllCategories = []Category{
	CategoryServer,
	CategoryGPUServer,
	CategoryStorage,
	CategorySwitch,
	CategoryNetwork,
	CategoryPDU,
	CategoryUPS,
	CategoryBlade,
	CategoryRack,
}

// Valid reports whether c is a known catalog category.
func (c Category) Valid() bool {
	for _, v := range AllCategories {
		if c == v {
			return true
		}
	}
	return false
}

func (c Category) String() string { return string(c) }

// ParseCategory accepts any case and either '-' or '_' as separator.
func ParseCategory(s string) (Category, error) {
	v := Category(normalizeEnum(s))
	if !v.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return v, nil
}

// DeviceType is a site-independent catalog entry.
type DeviceType struct {
	ID       string   `json:"id" yaml:"id"`
	Name     string   `json:"name,omitempty" yaml:"name,omitempty"`
	Category Category `json:"category" yaml:"category"`
	UHeight  int      `json:"uHeight" yaml:"uHeight"`
	PowerKw  float64  `json:"powerKw" yaml:"powerKw"`
	ModelRef string   `json:"modelRef,omitempty" yaml:"modelRef,omitempty"`
}

// Catalog maps device type id to its entry. It is shared across sites and
// treated as read-only once built.
type Catalog map[string]DeviceType

// NewCatalog indexes types by id. Later duplicates win.
func NewCatalog(types []DeviceType) Catalog {
	c := make(Catalog, len(types))
	for _, t := range types {
		c[t.ID] = t
	}
	return c
}

// Lookup returns the device type for id.
func (c Catalog) Lookup(id string) (DeviceType, bool) {
	if c == nil {
		return DeviceType{}, false
	}
	t, ok := c[id]
	return t, ok
}

// CategoryOf resolves a device's category, reporting CategoryUnknown when
// the type is missing from the catalog.
func (c Catalog) CategoryOf(d Device) Category {
	if t, ok := c.Lookup(d.DeviceTypeID); ok && t.Category != "" {
		return t.Category
	}
	return CategoryUnknown
}

// Types returns the catalog entries sorted by id.
func (c Catalog) Types() []DeviceType {
	out := make([]DeviceType, 0, len(c))
	for _, t := range c {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// UnmarshalText normalizes case and separators. Unknown categories are kept
// and rendered with the fallback palette.
func (c *Category) UnmarshalText(b []byte) error {
	*c = Category(normalizeEnum(string(b)))
	return nil
}
