package main

import (
	"context"
	"flag"
	"os"
	"time"

	"github.com/okian/pitchtrack/internal/testevents"
)

const defaultRunTimeout = 5 * time.Minute

func main() {
	def := testevents.DefaultConfig()
	var (
		outDir      = flag.String("out", def.OutDir, "Output directory")
		gameID      = flag.String("game", def.GameID, "Game id")
		frames      = flag.Int("frames", def.Frames, "Number of tracking frames")
		step        = flag.Int64("step", def.StepMS, "Milliseconds between frames")
		players     = flag.Int("players", def.Players, "Players per side")
		annotations = flag.Int("annotations", def.Annotations, "Number of annotated moments")
		segment     = flag.Int("segment", def.SegmentFrames, "Frames per game_event_id segment")
		seed        = flag.Uint64("seed", def.Seed, "Random seed")
		pkl         = flag.Bool("pkl", false, "Also write a pickled window archive")
		logFile     = flag.String("log", "", "Log file (default: stderr only)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		testevents.ShowHelp()
		return
	}

	closer, err := testevents.SetupLogging(*logFile, *verbose)
	if err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer closer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &testevents.Config{
		OutDir:        *outDir,
		GameID:        *gameID,
		Frames:        *frames,
		StepMS:        *step,
		Players:       *players,
		Annotations:   *annotations,
		Labels:        def.Labels,
		SegmentFrames: *segment,
		Seed:          *seed,
		PKL:           *pkl,
		LogFile:       *logFile,
		Verbose:       *verbose,
	}

	if _, err := testevents.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Generation failed: " + err.Error() + "\n")
		closer.Close()
		cancel()
		os.Exit(1) //nolint:gocritic // resources released above
	}
}
