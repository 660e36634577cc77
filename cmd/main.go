package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"gopkg.in/yaml.v3"

	app "github.com/okian/pitchtrack/internal/app"
	"github.com/okian/pitchtrack/internal/config"
	"github.com/okian/pitchtrack/internal/domain/types"
	"github.com/okian/pitchtrack/pkg/logger"
	"github.com/okian/pitchtrack/pkg/metrics"
)

// report is the YAML document printed for each loaded file.
type report struct {
	Summary types.Summary       `yaml:"summary"`
	Events  map[string][]string `yaml:"available_events"`
	Metrics map[string]float64  `yaml:"metrics,omitempty"`
}

type options struct {
	configPath  string
	annotations string
	metrics     bool
	paths       []string
}

var errUsage = errors.New("usage: pitchtrack [-config file] [-annotations file] [-metrics] <file.pkl|file.jsonl.bz2>...")

func parseArgs(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("pitchtrack", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{}
	fs.StringVar(&o.configPath, "config", os.Getenv(config.EnvFile), "YAML config file")
	fs.StringVar(&o.annotations, "annotations", "", "Annotations document for .jsonl.bz2 files")
	fs.BoolVar(&o.metrics, "metrics", false, "Append ingestion metrics to the report")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	o.paths = fs.Args()
	if len(o.paths) == 0 {
		return nil, errUsage
	}
	return o, nil
}

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			os.Stderr.WriteString(err.Error() + "\n")
		}
		stop()
		os.Exit(1) //nolint:gocritic // context released above
	}
}

// run loads every path and writes one YAML report per file to stdout.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	opts, err := parseArgs(args, stderr)
	if err != nil {
		return err
	}

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.Get()
	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	svc := app.New(
		app.WithLogger(log),
		app.WithConfig(cfg),
		app.WithAnnotationsPath(opts.annotations),
	)
	if err := svc.Start(ctx); err != nil {
		return fmt.Errorf("failed to start service: %w", err)
	}
	defer svc.Stop()

	enc := yaml.NewEncoder(stdout)
	enc.SetIndent(2)
	defer enc.Close()

	for _, path := range opts.paths {
		res, err := svc.Load(ctx, path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		r, err := svc.ReaderFor(path)
		if err != nil {
			return err
		}

		doc := report{Summary: res.Summary, Events: map[string][]string{}}
		for split, labels := range r.AvailableEvents(res.Dataset) {
			doc.Events[split] = labels.Sorted()
		}
		if opts.metrics {
			if doc.Metrics, err = metrics.Gather(); err != nil {
				return fmt.Errorf("gather metrics: %w", err)
			}
		}
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	return nil
}
