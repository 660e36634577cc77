package testevents

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/okian/pitchtrack/pkg/logger"
)

const logFilePermission = 0600

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetupLogging initializes the global logger on stderr and, when logFile is
// set, on that file as well. The returned closer releases the file.
func SetupLogging(logFile string, verbose bool) (io.Closer, error) {
	var (
		w      io.Writer = os.Stderr
		closer io.Closer = nopCloser{}
	)
	if logFile != "" {
		file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
		if err != nil {
			return nil, fmt.Errorf("failed to create log file: %w", err)
		}
		w, closer = io.MultiWriter(os.Stderr, file), file
	}

	if err := logger.InitWithWriter(w); err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		logger.SetLevel(slog.LevelDebug)
	}
	if logFile != "" {
		logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	}
	return closer, nil
}

// ShowHelp prints usage information for the generator.
func ShowHelp() {
	os.Stdout.WriteString(`Synthetic Tracking Generator
============================

Writes a synthetic {game}.jsonl.bz2 tracking file with a matching
annotations.json document, and optionally a {game}.pkl window archive.

Usage:
  go run ./cmd/gen-tracking [options]

Options:
  -out string
        Output directory (default ".")
  -game string
        Game id (default "10502")
  -frames int
        Number of tracking frames (default 600)
  -step int
        Milliseconds between frames (default 40)
  -players int
        Players per side (default 11)
  -annotations int
        Number of annotated moments (default 6)
  -segment int
        Frames per game_event_id segment (default 25)
  -seed uint
        Random seed (default 1)
  -pkl
        Also write a pickled window archive
  -log string
        Log file (default: stderr only)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Small default game in the current directory
  go run ./cmd/gen-tracking

  # Longer game with a window archive
  go run ./cmd/gen-tracking -out testdata -frames 5000 -annotations 40 -pkl
`)
}
