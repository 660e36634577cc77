package logger

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoggerInit(t *testing.T) {
	Convey("Given the global logger", t, func() {
		So(Init(), ShouldBeNil)
		defer func() { _ = Sync() }()

		Convey("Then Get returns an initialized logger", func() {
			So(Initialized(), ShouldBeTrue)
			So(Get(), ShouldNotBeNil)
			So(Named("reader"), ShouldNotBeNil)
		})

		Convey("And log calls do not panic", func() {
			So(func() { Get().Info(context.Background(), "test message", String("k", "v")) }, ShouldNotPanic)
		})
	})
}

func TestStandaloneLogger(t *testing.T) {
	Convey("Given a standalone logger writing to a buffer", t, func() {
		var buf bytes.Buffer
		log := New(&buf, slog.LevelInfo).Named("jsonl")
		ctx := context.Background()

		Convey("When logging at info with fields", func() {
			log.Info(ctx, "loaded frames", Int("frames", 12), Int64("first_ms", 3000), Bool("annotated", true))

			Convey("Then the record carries the message, fields and component", func() {
				out := buf.String()
				So(out, ShouldContainSubstring, "loaded frames")
				So(out, ShouldContainSubstring, "frames=12")
				So(out, ShouldContainSubstring, "first_ms=3000")
				So(out, ShouldContainSubstring, "component=jsonl")
				So(out, ShouldContainSubstring, "source=")
			})
		})

		Convey("When logging below the level", func() {
			log.Debug(ctx, "hidden")

			Convey("Then nothing is written", func() {
				So(buf.Len(), ShouldEqual, 0)
			})
		})

		Convey("When logging an error field", func() {
			log.Warn(ctx, "skipped line", Error(errors.New("bad json")))

			Convey("Then the error text is present", func() {
				So(buf.String(), ShouldContainSubstring, "bad json")
			})
		})
	})
}

func TestSetLevelString(t *testing.T) {
	Convey("Given level strings", t, func() {
		So(Init(), ShouldBeNil)

		Convey("Then known levels are accepted", func() {
			for _, lvl := range []string{"debug", "info", "", "warn", "WARNING", "error"} {
				So(SetLevelString(lvl), ShouldBeNil)
			}
		})

		Convey("And unknown levels are rejected", func() {
			So(SetLevelString("verbose"), ShouldNotBeNil)
		})

		Reset(func() { _ = SetLevelString("info") })
	})
}

func TestNop(t *testing.T) {
	Convey("Nop swallows every level", t, func() {
		So(func() {
			l := Nop()
			l.Error(context.Background(), "x")
			l.Named("y").Info(context.Background(), "z")
		}, ShouldNotPanic)
	})
}
