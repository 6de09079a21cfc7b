package config

import (
	"errors"
	"testing"

	"github.com/joeblew999/geopyramid/internal/mcerrors"
)

const validYAML = `
process: my_process.py
input:
  dem:
    path: dem.tif
    format: raster_file
  clc:
    path: clc.geojson
    format: GeoJSON
    cache: memory
output:
  type: geodetic
  format: GTiff
  path: out
  pixelbuffer: 5
  metatiling: 2
  dtype: float32
  bands: 1
zoom_levels: [5, 6, 7, 8]
baselevels:
  zooms: [6, 7]
  lower: nearest
  higher: cubic
bounds: [10.0, 45.0, 12.0, 47.0]
mode: continue
process_pyramid: geodetic
`

func TestLoadDecodesValidConfig(t *testing.T) {
	cfg, err := Parse([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Process != "my_process.py" {
		t.Fatalf("expected process name, got %q", cfg.Process)
	}
	if len(cfg.Input) != 2 {
		t.Fatalf("expected 2 inputs, got %d", len(cfg.Input))
	}
	if !cfg.Input["clc"].Cache.Memory {
		t.Fatalf("expected clc cache to be memory mode")
	}
	if cfg.Output.Path != "out" || cfg.Output.Bands != 1 {
		t.Fatalf("unexpected output spec: %+v", cfg.Output)
	}
	if !cfg.HasZoom(6) || cfg.HasZoom(99) {
		t.Fatalf("HasZoom behaved unexpectedly")
	}
	if cfg.Baselevels == nil || cfg.Baselevels.MinZoom() != 6 || cfg.Baselevels.MaxZoom() != 7 {
		t.Fatalf("unexpected baselevels: %+v", cfg.Baselevels)
	}
	if cfg.Bounds == nil || cfg.Bounds.Left != 10.0 {
		t.Fatalf("unexpected bounds: %+v", cfg.Bounds)
	}
	if cfg.Mode != ModeContinue {
		t.Fatalf("expected mode continue, got %v", cfg.Mode)
	}
	if cfg.ProcessPyramid == nil || cfg.ProcessPyramid.Grid != "geodetic" {
		t.Fatalf("expected geodetic process pyramid, got %+v", cfg.ProcessPyramid)
	}
	if cfg.OutputPyramid != cfg.ProcessPyramid {
		t.Fatalf("expected output pyramid to default to process pyramid")
	}
}

func TestParseRejectsMissingProcess(t *testing.T) {
	_, err := Parse([]byte(`
zoom_levels: [1]
process_pyramid: geodetic
output:
  format: GTiff
  path: out
`))
	var cfgErr *mcerrors.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "process" {
		t.Fatalf("expected ConfigError on field process, got %v", err)
	}
}

func TestParseRejectsMissingZoomLevels(t *testing.T) {
	_, err := Parse([]byte(`
process: p.py
process_pyramid: geodetic
output:
  format: GTiff
  path: out
`))
	var cfgErr *mcerrors.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "zoom_levels" {
		t.Fatalf("expected ConfigError on field zoom_levels, got %v", err)
	}
}

func TestParseRejectsInvalidMode(t *testing.T) {
	_, err := Parse([]byte(`
process: p.py
zoom_levels: [1]
process_pyramid: geodetic
mode: bogus
output:
  format: GTiff
  path: out
`))
	var cfgErr *mcerrors.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "mode" {
		t.Fatalf("expected ConfigError on field mode, got %v", err)
	}
}

func TestParseDefaultsModeToContinue(t *testing.T) {
	cfg, err := Parse([]byte(`
process: p.py
zoom_levels: [1]
process_pyramid: mercator
output:
  format: GTiff
  path: out
`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Mode != ModeContinue {
		t.Fatalf("expected default mode continue, got %v", cfg.Mode)
	}
}

func TestParseRejectsBogusCacheSpec(t *testing.T) {
	_, err := Parse([]byte(`
process: p.py
zoom_levels: [1]
process_pyramid: geodetic
input:
  dem:
    path: dem.tif
    format: raster_file
    cache: bogus
output:
  format: GTiff
  path: out
`))
	var cfgErr *mcerrors.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestParseRejectsBadBoundsArity(t *testing.T) {
	_, err := Parse([]byte(`
process: p.py
zoom_levels: [1]
process_pyramid: geodetic
bounds: [1.0, 2.0, 3.0]
output:
  format: GTiff
  path: out
`))
	var cfgErr *mcerrors.ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Field != "bounds" {
		t.Fatalf("expected ConfigError on field bounds, got %v", err)
	}
}

func TestLoadMissingFileReturnsIOError(t *testing.T) {
	_, err := Load("/nonexistent/path/to/config.yaml")
	var ioErr *mcerrors.IOError
	if !errors.As(err, &ioErr) {
		t.Fatalf("expected IOError, got %v", err)
	}
}
