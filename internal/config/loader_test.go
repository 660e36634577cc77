package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/pitchtrack/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WindowMS, convey.ShouldEqual, 2000)
				convey.So(cfg.MinFallbackFrames, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("PITCHTRACK_WINDOW_MS", "1500")
			_ = os.Setenv("PITCHTRACK_MIN_FALLBACK_FRAMES", "4")
			_ = os.Setenv("PITCHTRACK_ANNOTATIONS_PATH", "/data/train.json")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WindowMS, convey.ShouldEqual, 1500)
				convey.So(cfg.MinFallbackFrames, convey.ShouldEqual, 4)
				convey.So(cfg.AnnotationsPath, convey.ShouldEqual, "/data/train.json")
			})
		})

		convey.Convey("When loading config with a YAML file and env overrides", func() {
			tmpFile := createTempConfigFile(t, `
window_ms: 3000
pitch_length: 100
pitch_width: 64
extract_workers: 2
`)
			_ = os.Setenv("PITCHTRACK_CONFIG", tmpFile)
			_ = os.Setenv("PITCHTRACK_EXTRACT_WORKERS", "6")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then env wins over file and file wins over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.WindowMS, convey.ShouldEqual, 3000)
				convey.So(cfg.PitchLength, convey.ShouldEqual, 100.0)
				convey.So(cfg.PitchWidth, convey.ShouldEqual, 64.0)
				convey.So(cfg.ExtractWorkers, convey.ShouldEqual, 6)
				convey.So(cfg.MinFallbackFrames, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			tmpFile := createTempConfigFile(t, `invalid: yaml: content: [`)
			_ = os.Setenv("PITCHTRACK_CONFIG", tmpFile)
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			cfg, err := config.LoadFile("/non/existent/file.yaml")

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("PITCHTRACK_WINDOW_MS", "soon")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with an out-of-range value", func() {
			_ = os.Setenv("PITCHTRACK_WINDOW_MS", "0")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "window_ms")
			})
		})
	})
}

func clearConfigEnvVars() {
	for _, name := range []string{
		"PITCHTRACK_CONFIG",
		"PITCHTRACK_LOG_LEVEL",
		"PITCHTRACK_WINDOW_MS",
		"PITCHTRACK_MIN_FALLBACK_FRAMES",
		"PITCHTRACK_PITCH_LENGTH",
		"PITCHTRACK_PITCH_WIDTH",
		"PITCHTRACK_ANNOTATION_CACHE_SIZE",
		"PITCHTRACK_EXTRACT_WORKERS",
		"PITCHTRACK_ANNOTATIONS_PATH",
		"PITCHTRACK_SPLIT",
	} {
		_ = os.Unsetenv(name)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pitchtrack.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}
