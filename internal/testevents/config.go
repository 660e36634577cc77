package testevents

// Config holds configuration for synthetic tracking generation.
type Config struct {
	OutDir        string   // Directory receiving the generated files
	GameID        string   // Game id; names {GameID}.jsonl.bz2
	Frames        int      // Number of tracking frames
	StepMS        int64    // Milliseconds between frames
	StartMS       int64    // Timestamp of the first frame
	Players       int      // Players per side
	Annotations   int      // Number of labeled moments
	Labels        []string // Label vocabulary cycled through by annotations
	SegmentFrames int      // Frames per game_event_id segment
	Seed          uint64   // Seed for reproducible positions
	PKL           bool     // Also write a {GameID}.pkl window archive
	LogFile       string   // Log file for generator output
	Verbose       bool     // Enable verbose logging
}

// DefaultConfig returns a small, reproducible game.
func DefaultConfig() *Config {
	return &Config{
		OutDir:        ".",
		GameID:        "10502",
		Frames:        600,
		StepMS:        40,
		Players:       11,
		Annotations:   6,
		Labels:        []string{"PASS", "DRIVE", "SHOT", "CROSS"},
		SegmentFrames: 25,
		Seed:          1,
	}
}

// Stats summarizes one generation run.
type Stats struct {
	Frames       int
	Segments     int
	Annotations  int
	Windows      int
	TrackingPath string
	AnnotPath    string
	PKLPath      string
}
