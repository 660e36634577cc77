package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/smartystreets/goconvey/convey"
	"gopkg.in/yaml.v3"

	"github.com/okian/pitchtrack/internal/adapters/reader"
	"github.com/okian/pitchtrack/internal/config"
	"github.com/okian/pitchtrack/internal/testevents"
	"github.com/okian/pitchtrack/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func fixtures(t *testing.T) *testevents.Stats {
	t.Helper()
	cfg := testevents.DefaultConfig()
	cfg.OutDir = t.TempDir()
	cfg.PKL = true
	stats, err := testevents.Run(context.Background(), cfg)
	if err != nil {
		t.Fatalf("generate fixtures: %v", err)
	}
	return stats
}

func TestParseArgs(t *testing.T) {
	convey.Convey("Given command line arguments", t, func() {
		convey.Convey("When no file is given", func() {
			_, err := parseArgs([]string{"-metrics"}, &bytes.Buffer{})

			convey.Convey("Then usage is reported", func() {
				convey.So(errors.Is(err, errUsage), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When flags and files are given", func() {
			o, err := parseArgs([]string{"-annotations", "a.json", "-metrics", "x.pkl", "y.jsonl.bz2"}, &bytes.Buffer{})

			convey.Convey("Then they are parsed", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(o.annotations, convey.ShouldEqual, "a.json")
				convey.So(o.metrics, convey.ShouldBeTrue)
				convey.So(o.paths, convey.ShouldResemble, []string{"x.pkl", "y.jsonl.bz2"})
			})
		})
	})
}

func TestRun(t *testing.T) {
	convey.Convey("Given generated tracking files", t, func() {
		stats := fixtures(t)
		var out bytes.Buffer

		convey.Convey("When summarizing the tracking file with annotations", func() {
			err := run(context.Background(), []string{"-annotations", stats.AnnotPath, "-metrics", stats.TrackingPath}, &out, &bytes.Buffer{})
			convey.So(err, convey.ShouldBeNil)

			var doc report
			convey.So(yaml.Unmarshal(out.Bytes(), &doc), convey.ShouldBeNil)

			convey.Convey("Then the report describes the load", func() {
				convey.So(doc.Summary.Game, convey.ShouldEqual, "10502")
				convey.So(doc.Summary.Annotations, convey.ShouldEqual, stats.Annotations)
				convey.So(doc.Summary.Splits[0].Events, convey.ShouldEqual, stats.Annotations)
				convey.So(doc.Events["default"], convey.ShouldResemble, []string{"CROSS", "DRIVE", "PASS", "SHOT"})
				convey.So(doc.Metrics, convey.ShouldNotBeEmpty)
			})
		})

		convey.Convey("When summarizing the window archive", func() {
			err := run(context.Background(), []string{stats.PKLPath}, &out, &bytes.Buffer{})
			convey.So(err, convey.ShouldBeNil)

			var doc report
			convey.So(yaml.Unmarshal(out.Bytes(), &doc), convey.ShouldBeNil)

			convey.Convey("Then every window is reported", func() {
				convey.So(doc.Summary.Format, convey.ShouldEqual, "pkl")
				convey.So(doc.Summary.Splits[0].Events, convey.ShouldEqual, stats.Windows)
				convey.So(doc.Metrics, convey.ShouldBeEmpty)
			})
		})

		convey.Convey("When the file type is unsupported", func() {
			err := run(context.Background(), []string{filepath.Join(t.TempDir(), "match.csv")}, &out, &bytes.Buffer{})

			convey.Convey("Then the format error is returned", func() {
				convey.So(errors.Is(err, reader.ErrUnsupportedFormat), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the environment configures a split", func() {
			_ = os.Setenv(config.EnvPrefix+"SPLIT", "eval")
			defer func() { _ = os.Unsetenv(config.EnvPrefix + "SPLIT") }()

			err := run(context.Background(), []string{stats.PKLPath}, &out, &bytes.Buffer{})
			convey.So(err, convey.ShouldBeNil)

			var doc report
			convey.So(yaml.Unmarshal(out.Bytes(), &doc), convey.ShouldBeNil)

			convey.Convey("Then events are reported under it", func() {
				convey.So(doc.Summary.Splits[0].Name, convey.ShouldEqual, "eval")
				convey.So(doc.Events, convey.ShouldContainKey, "eval")
			})
		})

		convey.Convey("When the config is invalid", func() {
			_ = os.Setenv(config.EnvPrefix+"WINDOW_MS", "0")
			defer func() { _ = os.Unsetenv(config.EnvPrefix + "WINDOW_MS") }()

			err := run(context.Background(), []string{stats.PKLPath}, &out, &bytes.Buffer{})

			convey.Convey("Then loading fails", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
