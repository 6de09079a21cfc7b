package monitor

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/starfederation/datastar-go/datastar"
)

// Config configures the monitor's HTTP surface.
type Config struct {
	Host string
	Port int
}

// Server serves job status over Huma-documented JSON endpoints plus one
// Datastar SSE stream for live per-tile progress.
type Server struct {
	config  Config
	mux     *http.ServeMux
	humaAPI huma.API
	jobs    *JobManager
	build   RunBuilder
}

// New builds a monitor Server bound to jobs. build resolves a submitted
// config path into a runnable job; pass nil to serve a read-only status
// API with job submission disabled.
func New(cfg Config, jobs *JobManager, build RunBuilder) *Server {
	mux := http.NewServeMux()

	humaConfig := huma.DefaultConfig("geopyramid monitor", "1.0.0")
	humaConfig.Info.Description = "Run status for tiled geospatial processing jobs."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%d", cfg.Host, cfg.Port), Description: "Local server"},
	}
	humaAPI := humago.New(mux, humaConfig)

	s := &Server{config: cfg, mux: mux, humaAPI: humaAPI, jobs: jobs, build: build}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// OpenAPI returns the generated spec, for the `spec` CLI subcommand.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

func (s *Server) routes() {
	huma.Get(s.humaAPI, "/healthz", s.health)
	huma.Get(s.humaAPI, "/api/v1/jobs", s.listJobs)
	huma.Post(s.humaAPI, "/api/v1/jobs", s.submitJob)
	huma.Get(s.humaAPI, "/api/v1/jobs/{id}", s.getJob)
	huma.Post(s.humaAPI, "/api/v1/jobs/{id}/cancel", s.cancelJob)
	huma.Get(s.humaAPI, "/api/v1/jobs/{id}/events", s.jobEvents)
}

type submitJobInput struct {
	Body struct {
		ConfigPath string `json:"config_path" doc:"Path to a YAML process config" example:"configs/hillshade.yaml"`
	}
}

type submitJobOutput struct {
	Body jobSummary
}

func (s *Server) submitJob(ctx context.Context, input *submitJobInput) (*submitJobOutput, error) {
	if s.build == nil {
		return nil, huma.Error400BadRequest("job submission is disabled on this server")
	}
	process, mode, run, err := s.build(input.Body.ConfigPath)
	if err != nil {
		return nil, huma.Error400BadRequest(err.Error())
	}
	job := s.jobs.Submit(ctx, process, mode, run)
	return &submitJobOutput{Body: summarize(*job)}, nil
}

type healthOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func (s *Server) health(ctx context.Context, _ *struct{}) (*healthOutput, error) {
	out := &healthOutput{}
	out.Body.Status = "ok"
	return out, nil
}

type jobSummary struct {
	ID        string    `json:"id"`
	Process   string    `json:"process"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
	Error     string    `json:"error,omitempty"`
	Total     int       `json:"total"`
	Processed int       `json:"processed"`
}

func summarize(j Job) jobSummary {
	s := jobSummary{
		ID:        j.ID,
		Process:   j.Process,
		Mode:      j.Mode,
		Status:    string(j.Status),
		StartedAt: j.StartedAt,
		Error:     j.Error,
	}
	if j.Result != nil {
		s.Total = len(j.Result.Results)
		for _, r := range j.Result.Results {
			if r.Processed {
				s.Processed++
			}
		}
	}
	return s
}

type listJobsOutput struct {
	Body struct {
		Jobs []jobSummary `json:"jobs"`
	}
}

func (s *Server) listJobs(ctx context.Context, _ *struct{}) (*listJobsOutput, error) {
	out := &listJobsOutput{}
	for _, j := range s.jobs.List() {
		out.Body.Jobs = append(out.Body.Jobs, summarize(j))
	}
	return out, nil
}

type jobIDInput struct {
	ID string `path:"id"`
}

type getJobOutput struct {
	Body jobSummary
}

func (s *Server) getJob(ctx context.Context, input *jobIDInput) (*getJobOutput, error) {
	job, ok := s.jobs.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound("job not found")
	}
	return &getJobOutput{Body: summarize(job)}, nil
}

type cancelJobOutput struct {
	Body struct {
		Cancelled bool `json:"cancelled"`
	}
}

func (s *Server) cancelJob(ctx context.Context, input *jobIDInput) (*cancelJobOutput, error) {
	if err := s.jobs.Cancel(input.ID); err != nil {
		return nil, huma.Error404NotFound(err.Error())
	}
	out := &cancelJobOutput{}
	out.Body.Cancelled = true
	return out, nil
}

// jobEvents streams live progress for one job as Datastar signal
// patches, grounded on the teacher's editor SSE handlers
// (internal/api/editor/sse.go's NewSSEContext/MarshalAndPatchSignals)
// but pushing structured job/tile signals instead of HTML fragments.
func (s *Server) jobEvents(ctx context.Context, input *jobIDInput) (*huma.StreamResponse, error) {
	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			r, w := humago.Unwrap(humaCtx)
			sse := datastar.NewSSE(w, r)

			ch := s.jobs.Bus.Subscribe()
			defer s.jobs.Bus.Unsubscribe(ch)

			for {
				select {
				case <-r.Context().Done():
					return
				case ev, ok := <-ch:
					if !ok {
						return
					}
					if ev.JobID != input.ID {
						continue
					}
					sse.MarshalAndPatchSignals(map[string]any{
						"kind":    ev.Kind,
						"tile":    ev.TileID,
						"zoom":    ev.Zoom,
						"ok":      ev.OK,
						"message": ev.Message,
					})
					if ev.Kind == "finished" {
						return
					}
				}
			}
		},
	}, nil
}
