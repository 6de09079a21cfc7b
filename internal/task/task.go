// Package task implements the generic task graph: Task, TaskBatch, and
// their tile-aware specializations TileTask and TileTaskBatch. Grounded
// on mapchete/_tasks.py (Task, TaskBatch, TileTask, TileTaskBatch,
// TaskResult, _interpolate_from_baselevel).
package task

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb"

	"github.com/joeblew999/geopyramid/internal/bounds"
	"github.com/joeblew999/geopyramid/internal/config"
	"github.com/joeblew999/geopyramid/internal/mcerrors"
	"github.com/joeblew999/geopyramid/internal/pyramid"
	"github.com/joeblew999/geopyramid/internal/rasterio"
)

// TaskResult is what a Task.Execute produces: the value downstream tasks
// read through their Dependencies map. Duration is how long Execute took
// to run, mirroring mapchete's _timer.py Timer used around process
// execution and baselevel interpolation.
type TaskResult struct {
	TaskID    string
	Tile      *pyramid.Tile
	Processed bool
	Message   string
	Data      any
	Duration  time.Duration
}

// TaskFunc is a generic task body; it receives the already-resolved
// dependency results keyed by producer task id.
type TaskFunc func(dependencies map[string]TaskResult) (any, error)

// Task is the generic processing unit: an id, a body, and optional
// spatial extent (at most one of Bounds/Geometry set) used to wire
// dependencies between batches.
type Task struct {
	ID           string
	Func         TaskFunc
	Bounds       *bounds.Bounds
	Geometry     orb.Geometry
	Dependencies map[string]TaskResult
}

// NewTask builds a Task. Exactly one of b or geom may be non-nil; the
// other is derived from it (geometry's envelope equals bounds, per
// spec.md §3's Task invariant). An empty id is replaced with a fresh
// uuid4 hex string, mirroring uuid4().hex upstream.
func NewTask(id string, fn TaskFunc, b *bounds.Bounds, geom orb.Geometry) (*Task, error) {
	if b != nil && geom != nil {
		return nil, fmt.Errorf("only provide one of either bounds or geometry")
	}
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	t := &Task{ID: id, Func: fn, Dependencies: map[string]TaskResult{}}
	switch {
	case geom != nil:
		t.Geometry = geom
		gb := geom.Bound()
		bb, err := bounds.New(gb.Min[0], gb.Min[1], gb.Max[0], gb.Max[1], false, "")
		if err != nil {
			return nil, err
		}
		t.Bounds = &bb
	case b != nil:
		t.Bounds = b
		t.Geometry = boundsPolygon(*b)
	}
	return t, nil
}

func boundsPolygon(b bounds.Bounds) orb.Polygon {
	ring := b.Ring()
	r := make(orb.Ring, len(ring))
	for i, p := range ring {
		r[i] = orb.Point{p[0], p[1]}
	}
	return orb.Polygon{r}
}

// HasGeometry reports whether t carries spatial extent.
func (t *Task) HasGeometry() bool { return t.Geometry != nil }

// AddDependencies merges extra into t.Dependencies.
func (t *Task) AddDependencies(extra map[string]TaskResult) {
	for k, v := range extra {
		t.Dependencies[k] = v
	}
}

// Execute runs t.Func with the given dependencies, the generic
// (non-tile) execution path.
func (t *Task) Execute(dependencies map[string]TaskResult) (any, error) {
	if t.Func == nil {
		return nil, fmt.Errorf("task %s has no function", t.ID)
	}
	return t.Func(dependencies)
}

// TaskBatch is an unordered collection of Tasks, filterable by spatial
// extent via Intersection. The batch holds no execution function of its
// own; each Task runs its own Func.
type TaskBatch struct {
	ID     string
	Tasks  map[string]*Task
	Bounds *bounds.Bounds
}

// NewTaskBatch builds a batch from tasks, computing the running bounds
// union the way IndexedFeatures does upstream.
func NewTaskBatch(id string, tasks []*Task) (*TaskBatch, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("TaskBatch requires at least one Task")
	}
	if id == "" {
		id = uuid.NewString()
	}
	b := &TaskBatch{ID: id, Tasks: make(map[string]*Task, len(tasks))}
	for _, t := range tasks {
		b.Tasks[t.ID] = t
		if t.Bounds == nil {
			continue
		}
		if b.Bounds == nil {
			union := *t.Bounds
			b.Bounds = &union
		} else {
			union := b.Bounds.Union(*t.Bounds)
			b.Bounds = &union
		}
	}
	return b, nil
}

// Len returns the number of tasks in the batch.
func (b *TaskBatch) Len() int { return len(b.Tasks) }

// Intersection returns the tasks in b whose bounds intersect other's
// extent, matching TaskBatch.intersection's two accepted argument shapes.
func (b *TaskBatch) Intersection(other *Task) ([]*Task, error) {
	if other == nil || other.Bounds == nil {
		return nil, fmt.Errorf("intersection only works against a Task with bounds")
	}
	return b.IntersectionBounds(*other.Bounds), nil
}

// IntersectionBounds returns every task in b whose bounds intersect qb.
func (b *TaskBatch) IntersectionBounds(qb bounds.Bounds) []*Task {
	var out []*Task
	for _, t := range b.Tasks {
		if t.Bounds != nil && t.Bounds.Intersects(qb) {
			out = append(out, t)
		}
	}
	return out
}

// InputBinding is what a TileTask's process function sees for one
// configured input: a spatial read plus any preprocessing results
// surfaced by the preprocessing TaskBatch.
type InputBinding interface {
	// SetPreprocessingTaskResult attaches a preprocessing task's output
	// under taskKey, mirroring input.set_preprocessing_task_result.
	SetPreprocessingTaskResult(taskKey string, result any)
}

// MapcheteProcess is the object passed into a user process function: the
// tile being processed, its resolved parameters, its bound inputs, and
// the configured output parameters.
type MapcheteProcess struct {
	Tile         pyramid.Tile
	Params       map[string]any
	Input        map[string]InputBinding
	OutputParams map[string]any
}

// ProcessFunc is a user process: it reads from mp.Input, does work, and
// returns either a raster/feature result, the sentinel Empty value, or
// an error.
type ProcessFunc func(mp *MapcheteProcess, params map[string]any) (any, error)

// emptyResult is the sentinel a ProcessFunc returns for "no data",
// mirroring the Python process function's `return "empty"` convention.
type emptyResult struct{}

// Empty is the sentinel value a ProcessFunc returns to signal "no data
// for this tile" without it being treated as an error.
var Empty any = emptyResult{}

// OutputReader is the narrow surface TileTask needs from the output
// writer/store to interpolate baselevel zooms: read an already-written
// tile's array back for resampling.
type OutputReader interface {
	Pyramid() *pyramid.TilePyramid
	PixelBuffer() int
	Nodata() float64
	Read(tile pyramid.Tile) (rasterio.Array, error)
}

// TileTask ties a Task to a specific Tile plus the configuration
// snapshot needed to execute it: zoom levels, baselevels, input
// bindings, the process function, output reader, and run mode.
type TileTask struct {
	Task

	Tile  pyramid.Tile
	Skip  bool
	Mode  config.Mode
	Input map[string]InputBinding

	zoomLevels   []int
	baselevels   *config.Baselevels
	processFunc  ProcessFunc
	funcParams   map[string]any
	outputParams map[string]any
	outputReader OutputReader
}

// NewTileTask builds a TileTask bound to tile. skip=true produces a
// TileTask with no execution state (all config fields left zero),
// mirroring the upstream `skip=True` shortcut.
func NewTileTask(tile pyramid.Tile, cfg *config.ProcessConfig, processFunc ProcessFunc, input map[string]InputBinding, funcParams map[string]any, outputReader OutputReader, skip bool) (*TileTask, error) {
	id := tile.ID()
	base, err := NewTask(id, nil, nil, boundsPolygonFromTile(tile))
	if err != nil {
		return nil, err
	}

	tt := &TileTask{Task: *base, Tile: tile, Skip: skip}
	if skip {
		return tt, nil
	}

	tt.zoomLevels = cfg.ZoomLevels
	tt.baselevels = cfg.Baselevels
	tt.Mode = cfg.Mode
	tt.processFunc = processFunc
	tt.funcParams = funcParams
	tt.outputParams = outputReader_OutputParams(outputReader)
	tt.outputReader = outputReader

	inZoomLevels := tt.inZoomLevels()
	inBaselevel := tt.inBaselevelRange()
	if !inZoomLevels || inBaselevel {
		tt.Input = map[string]InputBinding{}
	} else {
		tt.Input = input
	}
	return tt, nil
}

func outputReader_OutputParams(r OutputReader) map[string]any {
	if r == nil {
		return map[string]any{}
	}
	return map[string]any{"nodata": r.Nodata()}
}

func boundsPolygonFromTile(tile pyramid.Tile) orb.Geometry {
	b, err := tile.Bounds()
	if err != nil {
		return nil
	}
	return boundsPolygon(b)
}

func (tt *TileTask) inZoomLevels() bool {
	for _, z := range tt.zoomLevels {
		if z == tt.Tile.Zoom {
			return true
		}
	}
	return false
}

func (tt *TileTask) inBaselevelRange() bool {
	if tt.baselevels == nil || len(tt.baselevels.Zooms) == 0 {
		return false
	}
	for _, z := range tt.baselevels.Zooms {
		if z == tt.Tile.Zoom {
			return true
		}
	}
	return false
}

// Execute runs the TileTask: validates mode, checks zoom membership,
// interpolates from a neighboring baselevel if configured, otherwise
// invokes the user process function. Returns mcerrors.NodataTile for the
// "empty" sentinel and out-of-zoom tiles, mcerrors.ProcessOutputError for
// a nil process return, and mcerrors.ProcessException for a process
// error.
func (tt *TileTask) Execute(dependencies map[string]TaskResult) (any, error) {
	if tt.Skip {
		return nil, &mcerrors.NodataTile{Reason: "task is marked skip"}
	}
	if !tt.Mode.Valid() {
		return nil, &mcerrors.ConfigError{Field: "mode", Reason: "must be memory, continue or overwrite"}
	}
	if !tt.inZoomLevels() {
		return nil, &mcerrors.NodataTile{Reason: fmt.Sprintf("zoom %d not configured", tt.Tile.Zoom)}
	}

	data, err := tt.executeInner(dependencies)
	if err != nil {
		return nil, err
	}
	if _, empty := data.(emptyResult); empty {
		return nil, &mcerrors.NodataTile{Reason: "process returned empty"}
	}
	if data == nil {
		return nil, &mcerrors.ProcessOutputError{TaskID: tt.ID}
	}
	return data, nil
}

func (tt *TileTask) executeInner(dependencies map[string]TaskResult) (any, error) {
	if tt.baselevels != nil {
		if tt.Tile.Zoom < tt.baselevels.MinZoom() {
			return tt.interpolateFromBaselevel("lower", dependencies)
		}
		if tt.Tile.Zoom > tt.baselevels.MaxZoom() {
			return tt.interpolateFromBaselevel("higher", dependencies)
		}
	}

	for taskKey, result := range dependencies {
		inpKey, subKey, ok := splitPreprocessingKey(taskKey)
		if !ok {
			continue
		}
		if input, ok := tt.Input[inpKey]; ok {
			input.SetPreprocessingTaskResult(subKey, result.Data)
		}
	}

	data, err := tt.processFunc(&MapcheteProcess{
		Tile:         tt.Tile,
		Params:       tt.funcParams,
		Input:        tt.Input,
		OutputParams: tt.outputParams,
	}, tt.funcParams)
	if err != nil {
		return nil, &mcerrors.ProcessException{TaskID: tt.ID, Cause: err}
	}
	return data, nil
}

// splitPreprocessingKey splits a dependency key of the form
// "<inp_key>:<task_key>" the way _execute does, skipping keys that are
// themselves tile task ids (those are baselevel dependencies, not
// preprocessing results).
func splitPreprocessingKey(taskKey string) (inpKey, subKey string, ok bool) {
	if len(taskKey) >= len("tile_task") && taskKey[:len("tile_task")] == "tile_task" {
		return "", "", false
	}
	for i := 0; i < len(taskKey); i++ {
		if taskKey[i] == ':' {
			return taskKey[:i], taskKey[i+1:], true
		}
	}
	return "", "", false
}

func (tt *TileTask) interpolateFromBaselevel(direction string, dependencies map[string]TaskResult) (any, error) {
	if tt.outputReader == nil {
		return nil, fmt.Errorf("baselevel interpolation requires an output reader")
	}
	nodata := tt.outputReader.Nodata()

	switch direction {
	case "higher":
		parent, ok := tt.Tile.GetParent()
		if !ok {
			return nil, fmt.Errorf("tile %s has no parent to interpolate from", tt.Tile.ID())
		}
		parentData, err := tt.outputReader.Read(parent)
		if err != nil {
			return nil, err
		}
		parentBounds, err := parent.Bounds()
		if err != nil {
			return nil, err
		}
		outBounds, err := tt.Tile.Bounds()
		if err != nil {
			return nil, err
		}
		width, height := tt.Tile.WidthHeight()
		return rasterio.ResampleFromArray(parentData, parentBounds, outBounds, width, height, rasterio.Resampling(""), nodata), nil

	case "lower":
		var pieces []rasterio.MosaicPiece
		for _, result := range dependencies {
			if result.Tile == nil || result.Data == nil {
				continue
			}
			arr, ok := result.Data.(rasterio.Array)
			if !ok {
				continue
			}
			tb, err := result.Tile.Bounds()
			if err != nil {
				continue
			}
			pieces = append(pieces, rasterio.MosaicPiece{Bounds: tb, Array: arr})
		}
		if len(pieces) == 0 {
			return nil, &mcerrors.NodataTile{Reason: "no child results available to interpolate from"}
		}
		mosaic, mosaicBounds, err := rasterio.CreateMosaic(pieces, nodata)
		if err != nil {
			return nil, err
		}
		outBounds, err := tt.Tile.Bounds()
		if err != nil {
			return nil, err
		}
		width, height := tt.Tile.WidthHeight()
		return rasterio.ResampleFromArray(mosaic, mosaicBounds, outBounds, width, height, tt.lowerResampling(), nodata), nil

	default:
		return nil, fmt.Errorf("unknown baselevel direction %q", direction)
	}
}

func (tt *TileTask) lowerResampling() rasterio.Resampling {
	if tt.baselevels == nil {
		return rasterio.ResamplingNearest
	}
	return rasterio.Resampling(tt.baselevels.Lower)
}

// TileTaskBatch constrains its members to one pyramid and one zoom
// level, enabling the parent/children intersection rule baselevel
// dependency wiring needs.
type TileTaskBatch struct {
	ID    string
	Tasks map[pyramid.Tile]*TileTask
	Zoom  int
}

// NewTileTaskBatch validates that every task shares one pyramid and one
// zoom level and builds the lookup table Intersection needs.
func NewTileTaskBatch(id string, tasks []*TileTask) (*TileTaskBatch, error) {
	if len(tasks) == 0 {
		return nil, fmt.Errorf("TileTaskBatch requires at least one TileTask")
	}
	if id == "" {
		id = uuid.NewString()
	}
	zoom := tasks[0].Tile.Zoom
	byTile := make(map[pyramid.Tile]*TileTask, len(tasks))
	for _, t := range tasks {
		if t.Tile.Zoom != zoom {
			return nil, fmt.Errorf("all TileTasks must lie on the same zoom level")
		}
		if t.Tile.Pyramid != tasks[0].Tile.Pyramid {
			return nil, fmt.Errorf("all TileTasks must share the same pyramid")
		}
		byTile[t.Tile] = t
	}
	return &TileTaskBatch{ID: id, Tasks: byTile, Zoom: zoom}, nil
}

// Len returns the number of tile tasks in the batch.
func (b *TileTaskBatch) Len() int { return len(b.Tasks) }

// Intersection returns the batch's tasks whose tile is a child of
// other's tile — the baselevel-lower dependency rule — when other is one
// zoom level above this batch; otherwise it falls back to a bounds
// filter.
func (b *TileTaskBatch) Intersection(other *TileTask) ([]*TileTask, error) {
	if other.Tile.Zoom+1 == b.Zoom {
		var out []*TileTask
		for _, child := range other.Tile.GetChildren() {
			if t, ok := b.Tasks[child]; ok {
				out = append(out, t)
			}
		}
		return out, nil
	}
	if other.Bounds == nil {
		return nil, fmt.Errorf("intersection requires either a one-zoom-above tile or bounds")
	}
	return b.IntersectionBounds(*other.Bounds), nil
}

// IntersectionBounds returns every tile task in b whose tile bounds
// intersect qb.
func (b *TileTaskBatch) IntersectionBounds(qb bounds.Bounds) []*TileTask {
	var out []*TileTask
	for tile, t := range b.Tasks {
		tb, err := tile.Bounds()
		if err != nil {
			continue
		}
		if tb.Intersects(qb) {
			out = append(out, t)
		}
	}
	return out
}
