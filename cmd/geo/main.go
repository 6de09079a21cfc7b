package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/geopyramid/internal/catalog"
	"github.com/joeblew999/geopyramid/internal/monitor"
	"github.com/joeblew999/geopyramid/internal/runner"
	"github.com/joeblew999/geopyramid/internal/task"
)

// Options defines all CLI flags and env vars for the geo command.
// Flags: --host, --port, --data-dir, --workers, --cache-size
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_WORKERS, SERVICE_CACHE_SIZE
type Options struct {
	Host      string `doc:"Host to bind to" default:"0.0.0.0"`
	Port      int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir   string `doc:"Directory for the catalog database" default:".data"`
	Workers   int    `doc:"Worker pool size for scheduler runs" default:"4"`
	CacheSize int    `doc:"LRU entries cached per output store" default:"256"`
}

func newLedger(opts *Options) (*catalog.Ledger, error) {
	db, err := catalog.Open(catalog.Config{DataDir: opts.DataDir, DBName: "geopyramid"})
	if err != nil {
		return nil, err
	}
	return catalog.NewLedger(db), nil
}

func newMonitorServer(opts *Options) (*monitor.Server, error) {
	ledger, err := newLedger(opts)
	if err != nil {
		return nil, err
	}
	jobs := monitor.NewJobManager()
	build := runner.Build(runner.Options{Workers: opts.Workers, CacheSize: opts.CacheSize, Ledger: ledger})
	return monitor.New(monitor.Config{Host: opts.Host, Port: opts.Port}, jobs, build), nil
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		srv, err := newMonitorServer(opts)
		if err != nil {
			log.Fatalf("failed to start monitor: %v", err)
		}

		hooks.OnStart(func() {
			addr := fmt.Sprintf("%s:%d", opts.Host, opts.Port)
			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)

			fmt.Println()
			fmt.Printf("geopyramid monitor starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", opts.DataDir)
			fmt.Println()
			fmt.Printf("  Jobs:    %s/api/v1/jobs\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Println()

			if err := http.ListenAndServe(addr, srv); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})
	})

	cli.Root().Use = "geo"
	cli.Root().Short = "Tiled geospatial processing engine"
	cli.Root().Version = "0.1.0"

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv, err := newMonitorServer(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error building server: %v\n", err)
				os.Exit(1)
			}
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// run subcommand: execute a ProcessConfig once, blocking until done,
	// without standing up the monitor's HTTP surface. spec.md rules out
	// a process-plugin discovery system, so "process" in the config must
	// name one of internal/builtin's registered functions.
	runCmd := &cobra.Command{
		Use:   "run <config.yaml>",
		Short: "Run a process config once and exit",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			ledger, err := newLedger(opts)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error opening catalog: %v\n", err)
				os.Exit(1)
			}
			build := runner.Build(runner.Options{Workers: opts.Workers, CacheSize: opts.CacheSize, Ledger: ledger})

			process, mode, run, err := build(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error building run: %v\n", err)
				os.Exit(1)
			}

			fmt.Printf("running %s (mode=%s)...\n", process, mode)
			var processed, total int
			result, err := run(cmd.Context(), func(tr task.TaskResult) {
				total++
				if tr.Processed {
					processed++
				}
			})
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error running process: %v\n", err)
				os.Exit(1)
			}
			if result.Cancelled {
				fmt.Printf("cancelled after %d/%d tiles\n", processed, total)
				os.Exit(1)
			}
			fmt.Printf("done: %d/%d tiles processed\n", processed, total)
		}),
	}
	cli.Root().AddCommand(runCmd)

	cli.Run()
}
