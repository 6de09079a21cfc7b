// Package runner wires a YAML ProcessConfig into a runnable scheduler
// job: it resolves the process function, opens the tile output store,
// and records every TaskResult into the catalog ledger as the run
// progresses. Shared by cmd/geo's "run" subcommand (one-shot CLI) and
// its root command's monitor server (HTTP job submission via
// internal/monitor) so both paths build a job the same way.
package runner

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/joeblew999/geopyramid/internal/bounds"
	"github.com/joeblew999/geopyramid/internal/builtin"
	"github.com/joeblew999/geopyramid/internal/catalog"
	"github.com/joeblew999/geopyramid/internal/config"
	"github.com/joeblew999/geopyramid/internal/executor"
	"github.com/joeblew999/geopyramid/internal/grid"
	"github.com/joeblew999/geopyramid/internal/memcache"
	"github.com/joeblew999/geopyramid/internal/monitor"
	"github.com/joeblew999/geopyramid/internal/pyramid"
	"github.com/joeblew999/geopyramid/internal/scheduler"
	"github.com/joeblew999/geopyramid/internal/task"
	"github.com/joeblew999/geopyramid/internal/tileio"
	"github.com/joeblew999/geopyramid/internal/vectorio"
)

// Options configures how Build resolves a config path into a run.
type Options struct {
	Workers   int
	CacheSize int
	Ledger    *catalog.Ledger // optional; nil disables catalog recording
}

// Build loads configPath and returns the (process, mode, RunFunc) triple
// a monitor.JobManager or a direct CLI call can run. It satisfies
// monitor.RunBuilder's shape so it can be passed straight into
// monitor.New.
func Build(opts Options) monitor.RunBuilder {
	return func(configPath string) (string, string, monitor.RunFunc, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return "", "", nil, fmt.Errorf("runner: loading config: %w", err)
		}
		processFunc, err := builtin.Lookup(cfg.Process)
		if err != nil {
			return "", "", nil, err
		}

		nodata := 0.0
		if cfg.Output.Nodata != nil {
			nodata = *cfg.Output.Nodata
		}
		store, err := tileio.Open(cfg.Output.Path, cfg.OutputPyramid, nodata, cfg.Output.Pixelbuffer, opts.CacheSize)
		if err != nil {
			return "", "", nil, fmt.Errorf("runner: opening output store: %w", err)
		}

		workers := opts.Workers
		if workers < 1 {
			workers = 4
		}
		sched := scheduler.New(cfg, executor.New(workers, ""))

		region := cfg.ProcessPyramid.Bounds()
		if cfg.Bounds != nil {
			region = *cfg.Bounds
		}

		preprocessing, sharedInputs, err := memoryCacheInputs(cfg, region)
		if err != nil {
			return "", "", nil, err
		}
		var inputsForTile scheduler.InputsForTile
		if len(sharedInputs) > 0 {
			inputsForTile = func(pyramid.Tile) map[string]task.InputBinding {
				bound := make(map[string]task.InputBinding, len(sharedInputs))
				for k, v := range sharedInputs {
					bound[k] = v
				}
				return bound
			}
		}

		runID := uuid.NewString()
		run := func(ctx context.Context, onResult func(task.TaskResult)) (*scheduler.RunResult, error) {
			if opts.Ledger != nil {
				if err := opts.Ledger.StartRun(runID, cfg.Process, string(cfg.Mode)); err != nil {
					return nil, fmt.Errorf("runner: starting catalog run: %w", err)
				}
			}

			result, err := sched.Run(ctx, region, processFunc, inputsForTile, nil, preprocessing, store, store, func(tr task.TaskResult) {
				if opts.Ledger != nil {
					_ = opts.Ledger.RecordResult(runID, tr)
				}
				onResult(tr)
			})

			cancelled := result != nil && result.Cancelled
			if opts.Ledger != nil {
				_ = opts.Ledger.FinishRun(runID, cancelled)
			}
			if err != nil {
				return nil, err
			}
			if flushErr := store.Flush(); flushErr != nil {
				return result, fmt.Errorf("runner: flushing output store: %w", flushErr)
			}
			return result, nil
		}

		return cfg.Process, string(cfg.Mode), run, nil
	}
}

// memoryCacheInputs builds one memcache.Input plus its preprocessing
// task for every configured input bound with cache: memory, keyed by
// input name. Inputs with any other (or no) cache config are left
// unbound here; a process function sees nothing for them.
func memoryCacheInputs(cfg *config.ProcessConfig, region bounds.Bounds) ([]*task.Task, map[string]*memcache.Input, error) {
	var preprocessing []*task.Task
	inputs := map[string]*memcache.Input{}

	g := grid.FromBounds(region, 1, 1, cfg.ProcessPyramid.CRS().String())
	driver := vectorio.NewGeoJSONDriver()

	for key, spec := range cfg.Input {
		if spec.Cache == nil || !spec.Cache.Memory {
			continue
		}
		t, err := memcache.NewPreprocessingTask(key, spec.Path, driver, g, cfg.ProcessPyramid.CRS().String())
		if err != nil {
			return nil, nil, fmt.Errorf("runner: building memory-cache preprocessing task for input %q: %w", key, err)
		}
		preprocessing = append(preprocessing, t)
		inputs[key] = memcache.NewInput()
	}
	return preprocessing, inputs, nil
}
