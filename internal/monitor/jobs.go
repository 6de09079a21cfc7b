// Package monitor exposes a Scheduler run's live status over HTTP: job
// submission/listing via Huma-documented JSON endpoints, and per-tile
// progress over a Datastar SSE stream. Adapted from the teacher's
// internal/server + internal/api + internal/api/editor web stack, kept
// to the same huma/humago + datastar wiring but rewired from
// "layers/sources/tiles" CRUD onto "jobs/tasks" run status — the
// teacher's interactive map-layer editor has no equivalent here, so the
// hypermedia form-rendering machinery (internal/humastar,
// internal/templates) those handlers depended on was not carried over;
// see DESIGN.md.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/geopyramid/internal/scheduler"
	"github.com/joeblew999/geopyramid/internal/task"
)

// JobStatus is a Job's lifecycle state.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// RunFunc is a scheduler run already bound to its process function,
// input bindings, and output store; onResult is wired by the JobManager
// to stream progress onto the event bus.
type RunFunc func(ctx context.Context, onResult func(task.TaskResult)) (*scheduler.RunResult, error)

// RunBuilder resolves a submitted config path into a runnable job: the
// process/mode labels for display, and the RunFunc closure over the
// config, scheduler and output store that cmd/geo assembles. Kept out of
// JobManager/Server so this package never needs to import config,
// scheduler construction details, or a tile store implementation.
type RunBuilder func(configPath string) (process, mode string, run RunFunc, err error)

// Job is one submitted run's tracked state.
type Job struct {
	ID        string
	Process   string
	Mode      string
	Status    JobStatus
	StartedAt time.Time
	Error     string
	Result    *scheduler.RunResult

	cancel context.CancelFunc
}

// JobManager tracks every submitted job and fans out progress events.
type JobManager struct {
	mu   sync.RWMutex
	jobs map[string]*Job
	Bus  *EventBus
}

// NewJobManager builds an empty JobManager with its own event bus.
func NewJobManager() *JobManager {
	return &JobManager{jobs: map[string]*Job{}, Bus: NewEventBus()}
}

// Submit registers a job and runs it in a new goroutine, streaming each
// TaskResult onto the bus as it lands and recording the final outcome.
func (m *JobManager) Submit(ctx context.Context, process, mode string, run RunFunc) *Job {
	job := &Job{
		ID:        uuid.NewString(),
		Process:   process,
		Mode:      mode,
		Status:    JobRunning,
		StartedAt: time.Now(),
	}
	runCtx, cancel := context.WithCancel(ctx)
	job.cancel = cancel

	m.mu.Lock()
	m.jobs[job.ID] = job
	m.mu.Unlock()

	m.Bus.Publish(Event{JobID: job.ID, Kind: "started", Message: process})

	go func() {
		result, err := run(runCtx, func(tr task.TaskResult) {
			ev := Event{JobID: job.ID, Kind: "result", OK: tr.Processed, Message: tr.Message}
			if tr.Tile != nil {
				ev.TileID = tr.TaskID
				ev.Zoom = tr.Tile.Zoom
			}
			m.Bus.Publish(ev)
		})

		m.mu.Lock()
		job.Result = result
		if err != nil {
			job.Status = JobFailed
			job.Error = err.Error()
		} else {
			job.Status = JobSucceeded
		}
		m.mu.Unlock()

		m.Bus.Publish(Event{JobID: job.ID, Kind: "finished", OK: err == nil, Message: job.Error})
	}()

	return job
}

// Cancel cancels a running job's context; the scheduler observes it at
// its next zoom-batch boundary (spec.md §5's cooperative cancellation).
func (m *JobManager) Cancel(id string) error {
	m.mu.RLock()
	job, ok := m.jobs[id]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %s not found", id)
	}
	job.cancel()
	return nil
}

// Get returns a job snapshot by id.
func (m *JobManager) Get(id string) (Job, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	job, ok := m.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// List returns every tracked job, most recently started first.
func (m *JobManager) List() []Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Job, 0, len(m.jobs))
	for _, j := range m.jobs {
		out = append(out, *j)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].StartedAt.After(out[j-1].StartedAt); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
