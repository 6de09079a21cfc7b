// Package scheduler turns a ProcessConfig and a region of interest into
// a sequence of task batches and drives them through an Executor,
// wiring dependencies between adjacent zoom batches and surfacing
// TaskResults. Grounded on spec.md §4.8 (job.py in the original source
// is pseudocode only and contributes no usable Go pattern; the scheduler
// contract comes from spec.md directly, backed by _tasks.py's
// TileTaskBatch.intersection rule already implemented in internal/task).
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joeblew999/geopyramid/internal/bounds"
	"github.com/joeblew999/geopyramid/internal/config"
	"github.com/joeblew999/geopyramid/internal/executor"
	"github.com/joeblew999/geopyramid/internal/logging"
	"github.com/joeblew999/geopyramid/internal/mcerrors"
	"github.com/joeblew999/geopyramid/internal/pyramid"
	"github.com/joeblew999/geopyramid/internal/task"
)

// OutputWriter persists a TileTask's result and lets the scheduler skip
// tiles already written under mode=continue.
type OutputWriter interface {
	Exists(tile pyramid.Tile) (bool, error)
	Write(tile pyramid.Tile, data any) error
}

// InputsForTile resolves the input bindings a tile's process function
// sees; config.get_inputs_for_tile's external-collaborator role upstream.
type InputsForTile func(tile pyramid.Tile) map[string]task.InputBinding

// ParamsForZoom resolves a zoom level's process function parameters;
// config.get_process_func_params's external-collaborator role upstream.
type ParamsForZoom func(zoom int) map[string]any

// Scheduler orchestrates one run of a ProcessConfig over a region.
type Scheduler struct {
	Config   *config.ProcessConfig
	Executor *executor.Executor
}

// New builds a Scheduler bound to cfg, running work through exec.
func New(cfg *config.ProcessConfig, exec *executor.Executor) *Scheduler {
	return &Scheduler{Config: cfg, Executor: exec}
}

// RunResult collects everything a run produced: every TaskResult in
// completion order, and whether the run was cut short by cancellation.
type RunResult struct {
	Results   []task.TaskResult
	Cancelled bool
}

// Run builds the preprocessing TaskBatch (if any), then one
// TileTaskBatch per configured zoom from highest to lowest, wiring each
// batch's dependencies from the previous (higher) zoom batch's
// intersecting results plus every preprocessing result. Matches
// spec.md §4.8 steps 1-3. onResult, if non-nil, is called once per tile
// TaskResult as it lands — the hook internal/monitor uses to stream live
// job progress; preprocessing results are not passed to it and appear
// only in the RunResult. Callers that only need the final RunResult pass
// nil.
func (s *Scheduler) Run(
	ctx context.Context,
	region bounds.Bounds,
	processFunc task.ProcessFunc,
	inputsForTile InputsForTile,
	paramsForZoom ParamsForZoom,
	preprocessing []*task.Task,
	outputReader task.OutputReader,
	outputWriter OutputWriter,
	onResult func(task.TaskResult),
) (*RunResult, error) {
	logger := logging.FromContext(ctx)
	result := &RunResult{}

	preprocessingResults, err := s.runPreprocessing(ctx, preprocessing, logger)
	if err != nil {
		return result, err
	}
	result.Results = append(result.Results, valuesOf(preprocessingResults)...)

	zooms := append([]int(nil), s.Config.ZoomLevels...)
	sort.Sort(sort.Reverse(sort.IntSlice(zooms)))

	var previousBatch *task.TileTaskBatch

	for _, zoom := range zooms {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}

		tiles, err := s.Config.ProcessPyramid.TilesFromBounds(region, zoom)
		if err != nil {
			return result, err
		}
		if len(tiles) == 0 {
			continue
		}

		var funcParams map[string]any
		if paramsForZoom != nil {
			funcParams = paramsForZoom(zoom)
		}

		tileTasks := make([]*task.TileTask, 0, len(tiles))
		depsByID := make(map[string]map[string]task.TaskResult, len(tiles))

		for _, tile := range tiles {
			skip, err := s.shouldSkip(tile, outputWriter)
			if err != nil {
				return result, err
			}

			var input map[string]task.InputBinding
			if inputsForTile != nil {
				input = inputsForTile(tile)
			}
			tt, err := task.NewTileTask(tile, s.Config, processFunc, input, funcParams, outputReader, skip)
			if err != nil {
				return result, err
			}
			tileTasks = append(tileTasks, tt)

			deps := map[string]task.TaskResult{}
			for k, v := range preprocessingResults {
				deps[k] = v
			}
			if previousBatch != nil {
				if ancestors, err := previousBatch.Intersection(tt); err == nil {
					for _, ancestor := range ancestors {
						if ancestorResult, ok := findResult(result.Results, ancestor.ID); ok {
							deps[ancestor.ID] = ancestorResult
						}
					}
				}
			}
			depsByID[tt.ID] = deps
		}

		batch, err := task.NewTileTaskBatch(fmt.Sprintf("zoom-%d", zoom), tileTasks)
		if err != nil {
			return result, err
		}

		items := make([]any, len(tileTasks))
		for i, tt := range tileTasks {
			items[i] = tt
		}

		var durationsMu sync.Mutex
		durations := make(map[string]time.Duration, len(tileTasks))

		finished := s.Executor.AsCompleted(ctx, func(ctx context.Context, item any) (any, error) {
			tt := item.(*task.TileTask)
			start := time.Now()
			data, err := tt.Execute(depsByID[tt.ID])
			durationsMu.Lock()
			durations[tt.ID] = time.Since(start)
			durationsMu.Unlock()
			return data, err
		}, items)

		for ft := range finished {
			tt := ft.Item.(*task.TileTask)
			tr := task.TaskResult{TaskID: tt.ID, Tile: &tt.Tile, Duration: durations[tt.ID]}

			switch {
			case ft.Err == nil:
				tr.Processed = true
				tr.Data = ft.Value
				if outputWriter != nil && s.Config.Mode != config.ModeMemory {
					if werr := outputWriter.Write(tt.Tile, ft.Value); werr != nil {
						tr.Processed = false
						tr.Message = werr.Error()
					}
				}
			default:
				var nodata *mcerrors.NodataTile
				if errors.As(ft.Err, &nodata) {
					tr.Processed = false
					tr.Message = nodata.Error()
				} else {
					tr.Message = ft.Err.Error()
					if s.Config.Mode != config.ModeContinue {
						return result, ft.Err
					}
				}
			}
			logger.WithFields(logrus.Fields{
				"task_id":  tr.TaskID,
				"duration": tr.Duration,
			}).Debug("tile task finished")

			result.Results = append(result.Results, tr)
			if onResult != nil {
				onResult(tr)
			}
		}

		previousBatch = batch
	}
	if ctx.Err() != nil {
		result.Cancelled = true
	}

	return result, nil
}

func (s *Scheduler) runPreprocessing(ctx context.Context, preprocessing []*task.Task, logger *logrus.Entry) (map[string]task.TaskResult, error) {
	results := map[string]task.TaskResult{}
	if len(preprocessing) == 0 {
		return results, nil
	}

	items := make([]any, len(preprocessing))
	for i, t := range preprocessing {
		items[i] = t
	}

	var durationsMu sync.Mutex
	durations := make(map[string]time.Duration, len(preprocessing))

	finished := s.Executor.Run(ctx, func(ctx context.Context, item any) (any, error) {
		t := item.(*task.Task)
		start := time.Now()
		data, err := t.Execute(t.Dependencies)
		durationsMu.Lock()
		durations[t.ID] = time.Since(start)
		durationsMu.Unlock()
		return data, err
	}, items)

	for _, ft := range finished {
		t := ft.Item.(*task.Task)
		if ft.Err != nil {
			logger.WithField("task_id", t.ID).WithError(ft.Err).Error("preprocessing task failed")
			return nil, ft.Err
		}
		results[t.ID] = task.TaskResult{TaskID: t.ID, Processed: true, Data: ft.Value, Duration: durations[t.ID]}
	}
	return results, nil
}

// shouldSkip reports whether a tile's TileTask should run with Skip=true:
// mode=continue and the output already exists.
func (s *Scheduler) shouldSkip(tile pyramid.Tile, outputWriter OutputWriter) (bool, error) {
	if s.Config.Mode != config.ModeContinue || outputWriter == nil {
		return false, nil
	}
	return outputWriter.Exists(tile)
}

func valuesOf(m map[string]task.TaskResult) []task.TaskResult {
	out := make([]task.TaskResult, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func findResult(results []task.TaskResult, id string) (task.TaskResult, bool) {
	for _, r := range results {
		if r.TaskID == id {
			return r, true
		}
	}
	return task.TaskResult{}, false
}
