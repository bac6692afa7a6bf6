package facility

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format names a serialization of SceneConfig and catalog documents.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatForPath picks a format from a file extension, defaulting to JSON.
func FormatForPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DecodeJSON reads a SceneConfig from JSON.
func DecodeJSON(r io.Reader) (*SceneConfig, error) {
	var cfg SceneConfig
	if err := json.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode scene config json: %w", err)
	}
	return &cfg, nil
}

// DecodeYAML reads a SceneConfig from YAML.
func DecodeYAML(r io.Reader) (*SceneConfig, error) {
	var cfg SceneConfig
	if err := yaml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode scene config yaml: %w", err)
	}
	return &cfg, nil
}

// Decode reads a SceneConfig in the given format.
func Decode(r io.Reader, f Format) (*SceneConfig, error) {
	if f == FormatYAML {
		return DecodeYAML(r)
	}
	return DecodeJSON(r)
}

// catalogDoc accepts either a bare list or {"deviceTypes": [...]}.
type catalogDoc struct {
	DeviceTypes []DeviceType `json:"deviceTypes" yaml:"deviceTypes"`
}

// DecodeCatalog reads a device-type catalog in the given format.
func DecodeCatalog(r io.Reader, f Format) (Catalog, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var list []DeviceType
	switch f {
	case FormatYAML:
		if err := yaml.Unmarshal(raw, &list); err != nil {
			var doc catalogDoc
			if err2 := yaml.Unmarshal(raw, &doc); err2 != nil {
				return nil, fmt.Errorf("decode catalog yaml: %w", err)
			}
			list = doc.DeviceTypes
		}
	default:
		if err := json.Unmarshal(raw, &list); err != nil {
			var doc catalogDoc
			if err2 := json.Unmarshal(raw, &doc); err2 != nil {
				return nil, fmt.Errorf("decode catalog json: %w", err)
			}
			list = doc.DeviceTypes
		}
	}
	return NewCatalog(list), nil
}
