package script

import (
	"fmt"
	"math"
	"sort"
	"strings"

	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
)

// ---------------------------------------------------------------------------
// Custom Sexp types
// ---------------------------------------------------------------------------

// sexpVec3 carries a vector between builtins.
type sexpVec3 struct {
	vec facility.Vec3
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("expected whole number, got %g", f)
	}
	return int(f), nil
}

// toText accepts a string or a keyword, returning the keyword's bare name.
func toText(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected string or keyword, got %s", s.SexpString(nil))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toBool(s zygo.Sexp) (bool, error) {
	if b, ok := s.(*zygo.SexpBool); ok {
		return b.Val, nil
	}
	if s == zygo.SexpNull {
		return true, nil // bare trailing keyword acts as a flag
	}
	return false, fmt.Errorf("expected true or false, got %s", s.SexpString(nil))
}

// toVec3 accepts (vec3 x y z), a list or an array of three numbers.
func toVec3(s zygo.Sexp) (facility.Vec3, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	var items []zygo.Sexp
	switch v := s.(type) {
	case *zygo.SexpPair:
		arr, err := zygo.ListToArray(v)
		if err != nil {
			return facility.Vec3{}, err
		}
		items = arr
	case *zygo.SexpArray:
		items = v.Val
	default:
		return facility.Vec3{}, fmt.Errorf("expected vec3, got %s", s.SexpString(nil))
	}
	if len(items) != 3 {
		return facility.Vec3{}, fmt.Errorf("expected 3 components, got %d", len(items))
	}
	var c [3]float64
	for i, it := range items {
		f, err := toFloat64(it)
		if err != nil {
			return facility.Vec3{}, err
		}
		c[i] = f
	}
	return facility.Vec3{X: c[0], Y: c[1], Z: c[2]}, nil
}

// ---------------------------------------------------------------------------
// Form argument parsing
// ---------------------------------------------------------------------------

// form is one builtin call: a leading id plus keyword arguments. Accessors
// record the first failure; close reports it along with unknown keywords.
type form struct {
	name string
	id   string
	kw   map[string]zygo.Sexp
	used map[string]bool
	err  error
}

func openForm(name string, args []zygo.Sexp) (*form, error) {
	f := &form{name: name, kw: make(map[string]zygo.Sexp), used: make(map[string]bool)}
	var positional []zygo.Sexp
	for i := 0; i < len(args); i++ {
		if s, ok := args[i].(*zygo.SexpStr); ok && strings.HasPrefix(s.S, kwPrefix) {
			key := s.S[len(kwPrefix):]
			if i+1 < len(args) {
				f.kw[key] = args[i+1]
				i++
			} else {
				f.kw[key] = zygo.SexpNull
			}
			continue
		}
		positional = append(positional, args[i])
	}
	if len(positional) != 1 {
		return nil, fmt.Errorf("%s: expected one id argument, got %d", name, len(positional))
	}
	id, err := toText(positional[0])
	if err != nil || strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("%s: id must be a non-empty string", name)
	}
	f.id = id
	return f, nil
}

func (f *form) take(key string) (zygo.Sexp, bool) {
	v, ok := f.kw[key]
	if ok {
		f.used[key] = true
	}
	return v, ok && f.err == nil
}

func (f *form) fail(key string, err error) {
	if f.err == nil {
		f.err = fmt.Errorf("%s %q: %s: %w", f.name, f.id, key, err)
	}
}

func (f *form) text(key string, dst *string) bool {
	v, ok := f.take(key)
	if !ok {
		return false
	}
	s, err := toText(v)
	if err != nil {
		f.fail(key, err)
		return false
	}
	*dst = s
	return true
}

func (f *form) float(key string, dst *float64) bool {
	v, ok := f.take(key)
	if !ok {
		return false
	}
	n, err := toFloat64(v)
	if err != nil {
		f.fail(key, err)
		return false
	}
	*dst = n
	return true
}

func (f *form) integer(key string, dst *int) bool {
	v, ok := f.take(key)
	if !ok {
		return false
	}
	n, err := toInt(v)
	if err != nil {
		f.fail(key, err)
		return false
	}
	*dst = n
	return true
}

func (f *form) flag(key string, dst *bool) {
	v, ok := f.take(key)
	if !ok {
		return
	}
	b, err := toBool(v)
	if err != nil {
		f.fail(key, err)
		return
	}
	*dst = b
}

func (f *form) vec(key string, dst *facility.Vec3) {
	v, ok := f.take(key)
	if !ok {
		return
	}
	vec, err := toVec3(v)
	if err != nil {
		f.fail(key, err)
		return
	}
	*dst = vec
}

// transform reads :at (meters) and :rotate (degrees).
func (f *form) transform(dst *facility.Transform) {
	f.vec("at", &dst.Position)
	var deg facility.Vec3
	f.vec("rotate", &deg)
	dst.Rotation = facility.Vec3{
		X: mgl64.DegToRad(deg.X),
		Y: mgl64.DegToRad(deg.Y),
		Z: mgl64.DegToRad(deg.Z),
	}
}

func (f *form) close() error {
	if f.err != nil {
		return f.err
	}
	var unknown []string
	for k := range f.kw {
		if !f.used[k] {
			unknown = append(unknown, ":"+k)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%s %q: unknown keyword %s", f.name, f.id, strings.Join(unknown, ", "))
	}
	return nil
}

// ---------------------------------------------------------------------------
// Builder
// ---------------------------------------------------------------------------

// builder accumulates entities as builtins run.
type builder struct {
	cfg      facility.SceneConfig
	types    []facility.DeviceType
	typeIdx  map[string]int
	siteSet  bool
	warnings []EvalWarning
}

func newBuilder() *builder {
	return &builder{typeIdx: make(map[string]int)}
}

func (b *builder) warn(id, format string, args ...any) {
	b.warnings = append(b.warnings, EvalWarning{EntityID: id, Message: fmt.Sprintf(format, args...)})
}

func (b *builder) result() *Result {
	cfg := b.cfg
	return &Result{
		Config:   &cfg,
		Catalog:  facility.NewCatalog(b.types),
		Warnings: b.warnings,
	}
}

type builtin func(f *form) error

// register installs the facility builtins. Hyphenated form names are
// registered in the snake_case spelling preprocessSource produces.
func (b *builder) register(env *zygo.Zlisp) {
	forms := map[string]builtin{
		"site":        b.site,
		"building":    b.building,
		"floor":       b.floor,
		"room":        b.room,
		"rack":        b.rack,
		"device_type": b.deviceType,
		"device":      b.device,
	}
	for name, fn := range forms {
		fn := fn
		display := strings.ReplaceAll(name, "_", "-")
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			f, err := openForm(display, args)
			if err != nil {
				return zygo.SexpNull, err
			}
			if err := fn(f); err != nil {
				return zygo.SexpNull, err
			}
			return &zygo.SexpStr{S: f.id}, nil
		})
	}

	// (vec3 1 2 3)
	env.AddFunction("vec3", func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
		if len(args) != 3 {
			return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
		}
		v, err := toVec3(&zygo.SexpArray{Val: args})
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %w", err)
		}
		return &sexpVec3{vec: v}, nil
	})
}

// (site "campus" :name "Main Campus")
func (b *builder) site(f *form) error {
	name := ""
	f.text("name", &name)
	if err := f.close(); err != nil {
		return err
	}
	if b.siteSet {
		b.warn(f.id, "site redefined, replacing %q", b.cfg.SiteID)
	}
	b.siteSet = true
	b.cfg.SiteID = f.id
	b.cfg.SiteName = name
	return nil
}

// (building "b1" :name "North" :site "campus" :at (vec3 0 0 0) :rotate (vec3 0 90 0))
func (b *builder) building(f *form) error {
	bl := facility.Building{ID: f.id}
	f.text("name", &bl.Name)
	f.text("site", &bl.SiteID)
	f.transform(&bl.Transform)
	if err := f.close(); err != nil {
		return err
	}
	b.cfg.Buildings = append(b.cfg.Buildings, bl)
	return nil
}

// (floor "f1" :building "b1" :level 0 :elevation 0)
func (b *builder) floor(f *form) error {
	fl := facility.Floor{ID: f.id}
	f.text("name", &fl.Name)
	f.text("building", &fl.BuildingID)
	f.integer("level", &fl.Level)
	f.float("elevation", &fl.Elevation)
	f.transform(&fl.Transform)
	if err := f.close(); err != nil {
		return err
	}
	b.cfg.Floors = append(b.cfg.Floors, fl)
	return nil
}

// (room "r1" :floor "f1" :name "Hall A" :at (vec3 0 0 0) :size (vec3 12 3 8))
func (b *builder) room(f *form) error {
	r := facility.Room{ID: f.id}
	f.text("name", &r.Name)
	f.text("floor", &r.FloorID)
	f.transform(&r.Transform)
	f.vec("size", &r.Dimensions)
	if err := f.close(); err != nil {
		return err
	}
	b.cfg.Rooms = append(b.cfg.Rooms, r)
	return nil
}

// (rack "A01" :room "r1" :u 42 :at (vec3 1 0 1) :power-limit 8)
func (b *builder) rack(f *form) error {
	r := facility.Rack{ID: f.id, UHeight: facility.DefaultRackUnits}
	f.text("name", &r.Name)
	f.text("room", &r.RoomID)
	f.integer("u", &r.UHeight)
	f.float("power-limit", &r.PowerKwLimit)
	f.transform(&r.Transform)
	if err := f.close(); err != nil {
		return err
	}
	b.cfg.Racks = append(b.cfg.Racks, r)
	return nil
}

// (device-type "dt-1u" :category :server :u 1 :power 0.35 :model "file://srv.json")
func (b *builder) deviceType(f *form) error {
	dt := facility.DeviceType{ID: f.id, Category: facility.CategoryUnknown}
	f.text("name", &dt.Name)
	var cat string
	if f.text("category", &cat) {
		c, err := facility.ParseCategory(cat)
		if err != nil {
			f.fail("category", err)
		}
		dt.Category = c
	}
	f.integer("u", &dt.UHeight)
	f.float("power", &dt.PowerKw)
	f.text("model", &dt.ModelRef)
	if err := f.close(); err != nil {
		return err
	}
	if i, dup := b.typeIdx[dt.ID]; dup {
		b.warn(dt.ID, "device type redefined")
		b.types[i] = dt
		return nil
	}
	b.typeIdx[dt.ID] = len(b.types)
	b.types = append(b.types, dt)
	return nil
}

// (device "srv-1" :rack "A01" :type "dt-1u" :u-start 10 :status :proposed :logical "eq-7")
//
// :u and :power default from a device type declared earlier; :status
// defaults to EXISTING_RETAINED.
func (b *builder) device(f *form) error {
	d := facility.Device{ID: f.id, Status: facility.StatusExistingRetained}
	f.text("name", &d.Name)
	f.text("rack", &d.RackID)
	f.text("type", &d.DeviceTypeID)
	f.text("logical", &d.LogicalEquipmentID)
	f.integer("u-start", &d.UStart)
	hasU := f.integer("u", &d.UHeight)
	hasPower := f.float("power", &d.PowerKw)
	f.flag("vertical", &d.VerticalMount)
	var status string
	if f.text("status", &status) {
		s, err := facility.ParseStatus4D(status)
		if err != nil {
			f.fail("status", err)
		}
		d.Status = s
	}
	if err := f.close(); err != nil {
		return err
	}

	if i, ok := b.typeIdx[d.DeviceTypeID]; ok {
		dt := b.types[i]
		if !hasU {
			d.UHeight = dt.UHeight
		}
		if !hasPower {
			d.PowerKw = dt.PowerKw
		}
	} else if !hasU {
		d.UHeight = 1
		if d.DeviceTypeID != "" {
			b.warn(d.ID, "device type %q not declared before use, assuming 1U", d.DeviceTypeID)
		}
	}
	if d.Name == "" {
		d.Name = d.ID
	}
	b.cfg.Devices = append(b.cfg.Devices, d)
	return nil
}
