// Package memcache implements the memory-cache input scenario: an input
// bound with cache: memory loads its source once, up front, into a
// features.IndexedFeatures shared by every tile in the run instead of
// reopening the source file per tile. One preprocessing task per such
// input, with id "<inputKey>:index" (see NewPreprocessingTask), loads the
// source into an IndexedFeatures; each TileTask receives it through its
// dependencies and filters it to the tile's bounds. Built on
// internal/features.IndexedFeatures, the Go port of
// mapchete/io/vector/indexed_features.py.
package memcache

import (
	"context"
	"fmt"

	"github.com/joeblew999/geopyramid/internal/features"
	"github.com/joeblew999/geopyramid/internal/pyramid"
	"github.com/joeblew999/geopyramid/internal/task"
	"github.com/joeblew999/geopyramid/internal/vectorio"
)

// TaskKey is the preprocessing dependency subkey a memory-cache task's
// result is stored under, so tt.Input[inpKey].SetPreprocessingTaskResult
// routes it into an Input.
const TaskKey = "index"

// Input is a task.InputBinding backed by a features.IndexedFeatures
// populated once by a preprocessing task and shared by every TileTask
// bound to the same input key.
type Input struct {
	idx *features.IndexedFeatures
}

// NewInput returns an Input with nothing cached yet; the preprocessing
// task this binding is paired with must run before any tile reads it.
func NewInput() *Input {
	return &Input{}
}

// SetPreprocessingTaskResult stores result if it's the index the
// memory-cache preprocessing task produces; any other key or result type
// is ignored, since this binding only ever hands back indexed features.
func (i *Input) SetPreprocessingTaskResult(taskKey string, result any) {
	if taskKey != TaskKey {
		return
	}
	if idx, ok := result.(*features.IndexedFeatures); ok {
		i.idx = idx
	}
}

// Read filters the cached index down to tile's bounds, mirroring the
// per-tile read of a memory-cached vector input.
func (i *Input) Read(tile pyramid.Tile) ([]features.Feature, error) {
	if i.idx == nil {
		return nil, fmt.Errorf("memcache: no preprocessing result cached for this input yet")
	}
	return i.idx.Filter(tile.GridBounds()), nil
}

// NewPreprocessingTask builds the single preprocessing task a memory-cached
// input needs: read every feature out of path once, reprojecting into
// pyramidCRS, and index it for repeated per-tile Filter calls. id must be
// "<inputKey>:index" so the scheduler routes its result back to the
// matching Input via SetPreprocessingTaskResult.
func NewPreprocessingTask(inputKey, path string, driver vectorio.Driver, g vectorio.GridLike, pyramidCRS string) (*task.Task, error) {
	fn := func(map[string]task.TaskResult) (any, error) {
		feats, err := vectorio.ReadVectorWindow(context.Background(), []string{path}, driver, g, vectorio.DefaultReadOptions())
		if err != nil {
			return nil, err
		}
		return features.New(feats, pyramidCRS, true)
	}
	return task.NewTask(inputKey+":"+TaskKey, fn, nil, nil)
}
