// Package config loads process configuration from a YAML file with
// environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"

	"github.com/dmytro-yemelianov/twin-sub001/pkg/facility"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/hierarchy"
	"github.com/dmytro-yemelianov/twin-sub001/pkg/projector"
)

// Source kinds.
const (
	SourceFile     = "file"
	SourceScript   = "script"
	SourcePostgres = "postgres"
)

// Kernel names.
const (
	KernelSDFX = "sdfx"
	KernelBox  = "box"
)

// Config holds all configuration for the twin server.
// Environment variables always override YAML values.
type Config struct {
	HTTPAddr    string `yaml:"http_addr" env:"HTTP_ADDR" env-default:":8081"`
	LogLevel    string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	DatabaseURL string `yaml:"database_url" env:"DATABASE_URL"`

	Source SourceConfig `yaml:"source"`
	Assets AssetsConfig `yaml:"assets"`
	Synth  SynthConfig  `yaml:"synth"`
	Layout LayoutConfig `yaml:"layout"`
	Camera CameraConfig `yaml:"camera"`
	Viewer ViewerConfig `yaml:"viewer"`
}

// SourceConfig selects where the scene comes from.
type SourceConfig struct {
	// Kind is file, script or postgres.
	Kind string `yaml:"kind" env:"SCENE_SOURCE" env-default:"file"`
	// Path is the scene file (JSON/YAML) or facility script.
	Path string `yaml:"path" env:"SCENE_PATH"`
	// CatalogPath is the device type catalog for file sources.
	CatalogPath string `yaml:"catalog_path" env:"CATALOG_PATH"`
	// SiteID selects the site for postgres sources.
	SiteID        string        `yaml:"site_id" env:"SITE_ID"`
	ScriptTimeout time.Duration `yaml:"script_timeout" env:"SCRIPT_TIMEOUT" env-default:"5s"`
}

// AssetsConfig configures model fetching.
type AssetsConfig struct {
	BaseDir     string        `yaml:"base_dir" env:"ASSETS_DIR" env-default:"."`
	HTTPTimeout time.Duration `yaml:"http_timeout" env:"ASSETS_HTTP_TIMEOUT" env-default:"5s"`
}

// SynthConfig configures scene synthesis.
type SynthConfig struct {
	Timeout         time.Duration `yaml:"timeout" env:"SYNTH_TIMEOUT" env-default:"10s"`
	LoadConcurrency int           `yaml:"load_concurrency" env:"SYNTH_LOAD_CONCURRENCY" env-default:"8"`
	// Kernel is sdfx or box.
	Kernel    string `yaml:"kernel" env:"SYNTH_KERNEL" env-default:"sdfx"`
	MeshCells int    `yaml:"mesh_cells" env:"SYNTH_MESH_CELLS" env-default:"64"`
	// Fallback is synthetic or first.
	Fallback string `yaml:"fallback" env:"SYNTH_FALLBACK" env-default:"synthetic"`
}

// LayoutConfig holds rack dimensions in meters.
type LayoutConfig struct {
	RackHeight float64 `yaml:"rack_height" env:"LAYOUT_RACK_HEIGHT" env-default:"2.0"`
	RackWidth  float64 `yaml:"rack_width" env:"LAYOUT_RACK_WIDTH" env-default:"0.6"`
	RackDepth  float64 `yaml:"rack_depth" env:"LAYOUT_RACK_DEPTH" env-default:"1.0"`
}

// CameraConfig tunes the orbit camera.
type CameraConfig struct {
	FOV            float64 `yaml:"fov" env:"CAMERA_FOV" env-default:"50"`
	DistanceFactor float64 `yaml:"distance_factor" env:"CAMERA_DISTANCE_FACTOR" env-default:"2.0"`
	MinRadius      float64 `yaml:"min_radius" env:"CAMERA_MIN_RADIUS" env-default:"0.5"`
	MaxRadius      float64 `yaml:"max_radius" env:"CAMERA_MAX_RADIUS" env-default:"500"`
	Damping        float64 `yaml:"damping" env:"CAMERA_DAMPING" env-default:"0"`
}

// ViewerConfig holds the initial projection state.
type ViewerConfig struct {
	DefaultPhase string `yaml:"default_phase" env:"DEFAULT_PHASE" env-default:"TO_BE"`
	ColorMode    string `yaml:"color_mode" env:"COLOR_MODE" env-default:"status"`
}

// Load reads path if it exists, applies environment overrides and
// validates. An empty or missing path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
			return cfg, cfg.Validate()
		}
	}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	switch c.Source.Kind {
	case SourceFile, SourceScript:
		if c.Source.Path == "" {
			errs = append(errs, fmt.Errorf("source.path is required for %s sources", c.Source.Kind))
		}
	case SourcePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database_url is required for postgres sources"))
		}
		if c.Source.SiteID == "" {
			errs = append(errs, errors.New("source.site_id is required for postgres sources"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown source.kind %q", c.Source.Kind))
	}
	switch c.Synth.Kernel {
	case KernelSDFX, KernelBox:
	default:
		errs = append(errs, fmt.Errorf("unknown synth.kernel %q", c.Synth.Kernel))
	}
	if _, ok := hierarchy.ParseFallbackPolicy(c.Synth.Fallback); !ok {
		errs = append(errs, fmt.Errorf("unknown synth.fallback %q", c.Synth.Fallback))
	}
	if c.Synth.LoadConcurrency < 1 {
		errs = append(errs, errors.New("synth.load_concurrency must be at least 1"))
	}
	if c.Synth.Timeout <= 0 {
		errs = append(errs, errors.New("synth.timeout must be positive"))
	}
	if c.Layout.RackHeight <= 0 || c.Layout.RackWidth <= 0 || c.Layout.RackDepth <= 0 {
		errs = append(errs, errors.New("layout rack dimensions must be positive"))
	}
	if c.Camera.MinRadius <= 0 || c.Camera.MinRadius >= c.Camera.MaxRadius {
		errs = append(errs, fmt.Errorf("camera radius range [%g, %g] is invalid", c.Camera.MinRadius, c.Camera.MaxRadius))
	}
	if c.Camera.FOV <= 0 || c.Camera.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera.fov %g out of range", c.Camera.FOV))
	}
	if _, err := facility.ParsePhase(c.Viewer.DefaultPhase); err != nil {
		errs = append(errs, fmt.Errorf("viewer.default_phase: %w", err))
	}
	return errors.Join(errs...)
}

// Phase returns the validated default phase.
func (c *Config) Phase() facility.Phase {
	p, err := facility.ParsePhase(c.Viewer.DefaultPhase)
	if err != nil {
		return facility.PhaseToBe
	}
	return p
}

// ColorMode returns the configured color mode. Unknown names mean neutral.
func (c *Config) ColorMode() projector.ColorMode {
	m, _ := projector.ParseColorMode(c.Viewer.ColorMode)
	return m
}

// FallbackPolicy returns the configured hierarchy fallback.
func (c *Config) FallbackPolicy() hierarchy.FallbackPolicy {
	p, _ := hierarchy.ParseFallbackPolicy(c.Synth.Fallback)
	return p
}

// Redacted returns a copy safe to log.
func (c Config) Redacted() Config {
	if c.DatabaseURL != "" {
		if i := strings.Index(c.DatabaseURL, "@"); i >= 0 {
			c.DatabaseURL = "postgres://***" + c.DatabaseURL[i:]
		} else {
			c.DatabaseURL = "***"
		}
	}
	return c
}
