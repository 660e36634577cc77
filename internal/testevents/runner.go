package testevents

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/okian/pitchtrack/pkg/logger"
)

// AnnotationsFile is the name of the generated annotations document.
const AnnotationsFile = "annotations.json"

// Run generates a synthetic game and writes its files into config.OutDir.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	start := time.Now()
	log := logger.Get().Named("gen-tracking")

	log.Info(ctx, "generating synthetic tracking data",
		logger.String("game", config.GameID),
		logger.Int("frames", config.Frames),
		logger.Int64("stepMs", config.StepMS),
		logger.Int("players", config.Players),
		logger.Int("annotations", config.Annotations),
		logger.String("outDir", config.OutDir),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Generate the game
	game, err := Generate(config)
	if err != nil {
		return nil, fmt.Errorf("game generation failed: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := &Stats{
		Frames:       len(game.Frames),
		Segments:     len(game.Segments),
		Annotations:  len(game.Annotations),
		TrackingPath: filepath.Join(config.OutDir, config.GameID+".jsonl.bz2"),
		AnnotPath:    filepath.Join(config.OutDir, AnnotationsFile),
	}

	// Step 2: Write tracking lines
	if err := WriteJSONLBZ2(stats.TrackingPath, game.Frames); err != nil {
		return nil, fmt.Errorf("tracking file write failed: %w", err)
	}
	log.Debug(ctx, "wrote tracking file", logger.String("path", stats.TrackingPath))

	// Step 3: Write annotations
	if err := WriteAnnotations(stats.AnnotPath, game.Doc()); err != nil {
		return nil, fmt.Errorf("annotations write failed: %w", err)
	}
	log.Debug(ctx, "wrote annotations", logger.String("path", stats.AnnotPath))

	// Step 4: Optional window archive
	if config.PKL {
		windows := game.Windows()
		stats.Windows = len(windows)
		stats.PKLPath = filepath.Join(config.OutDir, config.GameID+".pkl")
		if err := WritePKL(stats.PKLPath, map[string]any{"windows": windows}); err != nil {
			return nil, fmt.Errorf("pkl write failed: %w", err)
		}
		log.Debug(ctx, "wrote pkl archive", logger.String("path", stats.PKLPath))
	}

	log.Info(ctx, "generation completed",
		logger.Int("frames", stats.Frames),
		logger.Int("segments", stats.Segments),
		logger.Int("annotations", stats.Annotations),
		logger.Int("windows", stats.Windows),
		logger.Duration("duration", time.Since(start)))
	return stats, nil
}
