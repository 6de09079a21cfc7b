// Package builtin supplies a handful of named ProcessFuncs a YAML
// ProcessConfig's "process" field can select by name. spec.md rules out
// a process-plugin discovery system, so there is no mechanism to load an
// arbitrary user module by path the way mapchete's config.process does;
// in its place this package is the closed set of processes cmd/geo knows
// how to run, selected by Registry lookup.
package builtin

import (
	"fmt"

	"github.com/joeblew999/geopyramid/internal/features"
	"github.com/joeblew999/geopyramid/internal/pyramid"
	"github.com/joeblew999/geopyramid/internal/rasterio"
	"github.com/joeblew999/geopyramid/internal/task"
)

// RasterSource is the subset of a concrete InputBinding that a process
// needing pixel data can type-assert for; task.InputBinding itself only
// guarantees SetPreprocessingTaskResult; reading is an external
// collaborator concern spec.md leaves to the caller's binding type.
type RasterSource interface {
	Read(tile pyramid.Tile) (rasterio.Array, error)
}

// VectorSource is RasterSource's vector-domain counterpart: the subset
// of a concrete InputBinding a process needing features can type-assert
// for, e.g. internal/memcache.Input for a cache: memory input.
type VectorSource interface {
	Read(tile pyramid.Tile) ([]features.Feature, error)
}

// Registry maps a ProcessConfig's process name to the function that
// runs it.
var Registry = map[string]task.ProcessFunc{
	"fill":               Fill,
	"passthrough":        Passthrough,
	"vector-passthrough": VectorPassthrough,
}

// Lookup resolves name through Registry, erroring for anything unknown
// rather than attempting to load a plugin.
func Lookup(name string) (task.ProcessFunc, error) {
	fn, ok := Registry[name]
	if !ok {
		return nil, fmt.Errorf("builtin: no registered process %q (known: fill, passthrough, vector-passthrough)", name)
	}
	return fn, nil
}

// Fill writes a uniform-value tile, reading the fill value from the
// process's "value" parameter (default 0). Useful for exercising the
// scheduler and output writers without a real data source wired up.
func Fill(mp *task.MapcheteProcess, params map[string]any) (any, error) {
	value, _ := params["value"].(float64)
	size := mp.Tile.Pyramid.TileSizePx
	if size == 0 {
		size = 256
	}
	out := rasterio.NewArray(size, size)
	for i := range out.Data {
		out.Data[i] = value
		out.Mask[i] = false
	}
	return out, nil
}

// Passthrough returns the first raster input's tile window unmodified,
// or the empty sentinel if no bound input supports reading.
func Passthrough(mp *task.MapcheteProcess, params map[string]any) (any, error) {
	for _, in := range mp.Input {
		if rs, ok := in.(RasterSource); ok {
			return rs.Read(mp.Tile)
		}
	}
	return task.Empty, nil
}

// VectorPassthrough returns the first vector input's features
// intersecting this tile, or the empty sentinel if no bound input
// supports reading. Exercises a cache: memory input bound to
// internal/memcache.Input the same way Passthrough exercises a raster
// input.
func VectorPassthrough(mp *task.MapcheteProcess, params map[string]any) (any, error) {
	for _, in := range mp.Input {
		if vs, ok := in.(VectorSource); ok {
			return vs.Read(mp.Tile)
		}
	}
	return task.Empty, nil
}
