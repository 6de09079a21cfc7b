// Package config decodes a ProcessConfig from YAML via gopkg.in/yaml.v3,
// the same dependency cmd/geo already uses for its OpenAPI spec export.
// It covers the field table: process, input, output, zoom_levels,
// baselevels, bounds, mode and process/output pyramid.
package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/joeblew999/geopyramid/internal/bounds"
	"github.com/joeblew999/geopyramid/internal/mcerrors"
	"github.com/joeblew999/geopyramid/internal/pyramid"
)

// Mode is the run mode a TileTask is executed under.
type Mode string

const (
	ModeMemory    Mode = "memory"
	ModeContinue  Mode = "continue"
	ModeOverwrite Mode = "overwrite"
)

// Valid reports whether m is one of the three recognized run modes.
func (m Mode) Valid() bool {
	switch m {
	case ModeMemory, ModeContinue, ModeOverwrite:
		return true
	default:
		return false
	}
}

// CacheSpec is an input binding's optional preprocessing cache: either the
// bare string "memory", or a {path, format, keep} object.
type CacheSpec struct {
	Memory bool
	Path   string
	Format string
	Keep   bool
}

// UnmarshalYAML accepts either the scalar "memory" or a mapping.
func (c *CacheSpec) UnmarshalYAML(value *yaml.Node) error {
	var asString string
	if err := value.Decode(&asString); err == nil {
		if asString != "memory" {
			return &mcerrors.ConfigError{Field: "input.cache", Reason: "string form must be \"memory\""}
		}
		c.Memory = true
		return nil
	}

	var asMap struct {
		Path   string `yaml:"path"`
		Format string `yaml:"format"`
		Keep   bool   `yaml:"keep"`
	}
	if err := value.Decode(&asMap); err != nil {
		return &mcerrors.ConfigError{Field: "input.cache", Reason: "must be \"memory\" or {path, format, keep}"}
	}
	c.Path = asMap.Path
	c.Format = asMap.Format
	c.Keep = asMap.Keep
	return nil
}

// InputSpec binds one input key to a source path/format plus optional cache.
type InputSpec struct {
	Path   string     `yaml:"path"`
	Format string     `yaml:"format"`
	Cache  *CacheSpec `yaml:"cache,omitempty"`
}

// OutputSpec is the writer configuration: format plus geometry/raster
// schema, pixelbuffer and metatiling.
type OutputSpec struct {
	Type        string   `yaml:"type"` // "geodetic" | "mercator"
	Format      string   `yaml:"format"`
	Path        string   `yaml:"path"`
	Pixelbuffer int      `yaml:"pixelbuffer"`
	Metatiling  int      `yaml:"metatiling"`
	Schema      string   `yaml:"schema,omitempty"` // vector: target geometry type
	Dtype       string   `yaml:"dtype,omitempty"`   // raster
	Bands       int      `yaml:"bands,omitempty"`
	Nodata      *float64 `yaml:"nodata,omitempty"`
}

// Baselevels describes the zoom range that is produced by process
// execution; zooms outside this range are interpolated from neighbors.
type Baselevels struct {
	Zooms       []int  `yaml:"zooms"`
	Lower       string `yaml:"lower"` // resampling method used reading from children
	Higher      string `yaml:"higher"`
	TilePyramid string `yaml:"tile_pyramid,omitempty"`
}

// MinZoom and MaxZoom bound the configured baselevel zooms. Callers must
// not call these on a zero-value Baselevels; check len(Zooms) first.
func (b Baselevels) MinZoom() int {
	min := b.Zooms[0]
	for _, z := range b.Zooms[1:] {
		if z < min {
			min = z
		}
	}
	return min
}

func (b Baselevels) MaxZoom() int {
	max := b.Zooms[0]
	for _, z := range b.Zooms[1:] {
		if z > max {
			max = z
		}
	}
	return max
}

// rawConfig is the literal YAML shape; ProcessConfig adds derived fields
// (parsed pyramids, a Baselevels-or-nil pointer) on top of it.
type rawConfig struct {
	Process        string               `yaml:"process"`
	Input          map[string]InputSpec `yaml:"input"`
	Output         OutputSpec           `yaml:"output"`
	ZoomLevels     []int                `yaml:"zoom_levels"`
	Baselevels     *Baselevels          `yaml:"baselevels,omitempty"`
	Bounds         []float64            `yaml:"bounds,omitempty"`
	Mode           Mode                 `yaml:"mode"`
	ProcessPyramid string               `yaml:"process_pyramid"`
	OutputPyramid  string               `yaml:"output_pyramid,omitempty"`
	Metatiling     int                  `yaml:"metatiling,omitempty"`
}

// ProcessConfig is the fully decoded and validated configuration a
// scheduler run is built from.
type ProcessConfig struct {
	Process    string
	Input      map[string]InputSpec
	Output     OutputSpec
	ZoomLevels []int
	Baselevels *Baselevels
	Bounds     *bounds.Bounds
	Mode       Mode

	ProcessPyramid *pyramid.TilePyramid
	OutputPyramid  *pyramid.TilePyramid
}

// Load reads and decodes path into a validated ProcessConfig.
func Load(path string) (*ProcessConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &mcerrors.IOError{Path: path, Err: err}
	}
	return Parse(data)
}

// Parse decodes and validates raw YAML bytes into a ProcessConfig.
func Parse(data []byte) (*ProcessConfig, error) {
	var raw rawConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &mcerrors.ConfigError{Field: "<root>", Reason: err.Error()}
	}
	return fromRaw(raw)
}

func fromRaw(raw rawConfig) (*ProcessConfig, error) {
	if raw.Process == "" {
		return nil, &mcerrors.ConfigError{Field: "process", Reason: "required"}
	}
	if len(raw.ZoomLevels) == 0 {
		return nil, &mcerrors.ConfigError{Field: "zoom_levels", Reason: "required, must list at least one zoom"}
	}
	if raw.Mode == "" {
		raw.Mode = ModeContinue
	}
	if !raw.Mode.Valid() {
		return nil, &mcerrors.ConfigError{Field: "mode", Reason: "must be one of memory, continue, overwrite"}
	}

	processGrid, err := parseGridType(raw.ProcessPyramid, "process_pyramid")
	if err != nil {
		return nil, err
	}
	metatiling := raw.Metatiling
	if metatiling < 1 {
		metatiling = 1
	}
	processPyramid, err := pyramid.New(processGrid, metatiling)
	if err != nil {
		return nil, &mcerrors.ConfigError{Field: "process_pyramid", Reason: err.Error()}
	}

	outputPyramid := processPyramid
	if raw.OutputPyramid != "" {
		outputGrid, err := parseGridType(raw.OutputPyramid, "output_pyramid")
		if err != nil {
			return nil, err
		}
		outputPyramid, err = pyramid.New(outputGrid, metatiling)
		if err != nil {
			return nil, &mcerrors.ConfigError{Field: "output_pyramid", Reason: err.Error()}
		}
	}

	if raw.Output.Format == "" {
		return nil, &mcerrors.ConfigError{Field: "output.format", Reason: "required"}
	}
	if raw.Output.Path == "" {
		return nil, &mcerrors.ConfigError{Field: "output.path", Reason: "required"}
	}

	if raw.Baselevels != nil && len(raw.Baselevels.Zooms) == 0 {
		return nil, &mcerrors.ConfigError{Field: "baselevels.zooms", Reason: "required when baselevels is given"}
	}

	var regionBounds *bounds.Bounds
	if len(raw.Bounds) > 0 {
		if len(raw.Bounds) != 4 {
			return nil, &mcerrors.ConfigError{Field: "bounds", Reason: "must have exactly 4 values: left, bottom, right, top"}
		}
		b, err := bounds.New(raw.Bounds[0], raw.Bounds[1], raw.Bounds[2], raw.Bounds[3], true, "")
		if err != nil {
			return nil, &mcerrors.ConfigError{Field: "bounds", Reason: err.Error()}
		}
		regionBounds = &b
	}

	return &ProcessConfig{
		Process:        raw.Process,
		Input:          raw.Input,
		Output:         raw.Output,
		ZoomLevels:     raw.ZoomLevels,
		Baselevels:     raw.Baselevels,
		Bounds:         regionBounds,
		Mode:           raw.Mode,
		ProcessPyramid: processPyramid,
		OutputPyramid:  outputPyramid,
	}, nil
}

func parseGridType(s, field string) (pyramid.GridType, error) {
	switch s {
	case "geodetic":
		return pyramid.Geodetic, nil
	case "mercator":
		return pyramid.Mercator, nil
	case "":
		return "", &mcerrors.ConfigError{Field: field, Reason: "required"}
	default:
		return "", &mcerrors.ConfigError{Field: field, Reason: "must be \"geodetic\" or \"mercator\", got " + s}
	}
}

// HasZoom reports whether zoom is among the configured process zoom levels.
func (c *ProcessConfig) HasZoom(zoom int) bool {
	for _, z := range c.ZoomLevels {
		if z == zoom {
			return true
		}
	}
	return false
}
