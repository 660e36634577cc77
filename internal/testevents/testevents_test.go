package testevents

import (
	"bytes"
	"context"
	"errors"
	"os"
	"testing"

	gopickle "github.com/nlpodyssey/gopickle/pickle"

	"github.com/okian/pitchtrack/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given the default config", t, func() {
		cfg := DefaultConfig()

		Convey("When generating twice with the same seed", func() {
			a, err := Generate(cfg)
			So(err, ShouldBeNil)
			b, err := Generate(cfg)
			So(err, ShouldBeNil)

			Convey("Then the games are identical", func() {
				So(a.Frames, ShouldResemble, b.Frames)
				So(a.Annotations, ShouldResemble, b.Annotations)
			})

			Convey("And frames are evenly spaced", func() {
				So(a.Frames, ShouldHaveLength, cfg.Frames)
				So(a.Frames[1].VideoTimeMS-a.Frames[0].VideoTimeMS, ShouldEqual, cfg.StepMS)
				So(a.Frames[0].Home, ShouldHaveLength, cfg.Players)
			})

			Convey("And every fourth segment has no game_event_id", func() {
				So(a.Segments, ShouldHaveLength, cfg.Frames/cfg.SegmentFrames)
				So(a.Segments[3], ShouldBeEmpty)
				So(a.Segments[0], ShouldNotBeEmpty)
				So(a.Frames[3*cfg.SegmentFrames].GameEventID, ShouldBeEmpty)
			})

			Convey("And annotations cycle through the labels", func() {
				So(a.Annotations, ShouldHaveLength, cfg.Annotations)
				for i, ann := range a.Annotations {
					So(ann.Label, ShouldEqual, cfg.Labels[i%len(cfg.Labels)])
					So(ann.GameEventID != "" || ann.PossessionEventID != "", ShouldBeTrue)
				}
			})
		})

		Convey("When the seed changes", func() {
			other := *cfg
			other.Seed = 99
			a, _ := Generate(cfg)
			b, _ := Generate(&other)

			Convey("Then positions differ", func() {
				So(*a.Frames[10].Ball.X, ShouldNotEqual, *b.Frames[10].Ball.X)
			})
		})
	})

	Convey("Given invalid configs", t, func() {
		for _, mutate := range []func(*Config){
			func(c *Config) { c.GameID = "" },
			func(c *Config) { c.Frames = 0 },
			func(c *Config) { c.StepMS = 0 },
			func(c *Config) { c.SegmentFrames = 0 },
			func(c *Config) { c.Labels = nil },
		} {
			cfg := DefaultConfig()
			mutate(cfg)
			_, err := Generate(cfg)
			So(errors.Is(err, ErrInvalidConfig), ShouldBeTrue)
		}
	})
}

func TestWindows(t *testing.T) {
	Convey("Given a generated game", t, func() {
		g, err := Generate(DefaultConfig())
		So(err, ShouldBeNil)

		Convey("Then there is one window per annotation", func() {
			windows := g.Windows()
			So(windows, ShouldHaveLength, len(g.Annotations))

			w := windows[0].(map[string]any)
			arr := w["features"].(*NDArray)
			So(arr.Shape[1], ShouldEqual, 1+2*DefaultConfig().Players)
			So(arr.Shape[2], ShouldEqual, pklChannels)
			So(len(arr.Data), ShouldEqual, arr.Shape[0]*arr.Shape[1]*arr.Shape[2])
		})
	})
}

// pyCall records a pickled global call instead of running it.
type pyCall struct {
	global string
	args   []interface{}
}

type recorder string

func (r recorder) Call(args ...interface{}) (interface{}, error) {
	return pyCall{global: string(r), args: args}, nil
}

func unpickleRecorded(t *testing.T, data []byte) interface{} {
	t.Helper()
	u := gopickle.NewUnpickler(bytes.NewReader(data))
	u.FindClass = func(module, name string) (interface{}, error) {
		return recorder(module + "." + name), nil
	}
	v, err := u.Load()
	if err != nil {
		t.Fatalf("unpickle: %v", err)
	}
	return v
}

type pyIndexed interface {
	Len() int
	Get(i int) interface{}
}

type pyKeyed interface {
	Get(key interface{}) (interface{}, bool)
}

func items(v interface{}) []interface{} {
	s, ok := v.(pyIndexed)
	if !ok {
		return nil
	}
	out := make([]interface{}, s.Len())
	for i := range out {
		out[i] = s.Get(i)
	}
	return out
}

func TestEncodePickle(t *testing.T) {
	Convey("Given a document of plain values", t, func() {
		var buf bytes.Buffer
		doc := map[string]any{"windows": []any{map[string]any{"event_id": "e1", "n": 3, "ok": true}}}
		So(EncodePickle(&buf, doc), ShouldBeNil)

		Convey("Then it decodes to the same structure", func() {
			root, ok := unpickleRecorded(t, buf.Bytes()).(pyKeyed)
			So(ok, ShouldBeTrue)
			windows, found := root.Get("windows")
			So(found, ShouldBeTrue)
			list := items(windows)
			So(list, ShouldHaveLength, 1)
			w := list[0].(pyKeyed)
			id, _ := w.Get("event_id")
			n, _ := w.Get("n")
			flag, _ := w.Get("ok")
			So(id, ShouldEqual, "e1")
			So(n, ShouldEqual, 3)
			So(flag, ShouldEqual, true)
		})
	})

	Convey("Given a column-major numpy 2 array", t, func() {
		var buf bytes.Buffer
		arr := &NDArray{Shape: []int{2, 3}, Dtype: ">i2", Fortran: true, Modern: true, Data: []float64{1, 2, 3, 4, 5, 6}}
		So(EncodePickle(&buf, []any{arr}), ShouldBeNil)

		Convey("Then it is rebuilt through _frombuffer", func() {
			list := items(unpickleRecorded(t, buf.Bytes()))
			So(list, ShouldHaveLength, 1)
			call := list[0].(pyCall)
			So(call.global, ShouldEqual, "numpy._core.numeric._frombuffer")
			So(call.args, ShouldHaveLength, 4)

			So(call.args[0], ShouldResemble, []byte{0, 1, 0, 4, 0, 2, 0, 5, 0, 3, 0, 6})
			dtype := call.args[1].(pyCall)
			So(dtype.global, ShouldEqual, "numpy.dtype")
			So(dtype.args, ShouldResemble, []interface{}{">i2", false, true})
			So(items(call.args[2]), ShouldResemble, []interface{}{2, 3})
			So(call.args[3], ShouldEqual, "F")
		})
	})

	Convey("Given an array whose data does not fit its shape", t, func() {
		err := EncodePickle(&bytes.Buffer{}, map[string]any{"features": &NDArray{Shape: []int{2, 2}, Dtype: "<f8", Data: []float64{1}}})
		So(err, ShouldNotBeNil)
	})

	Convey("Given an unsupported dtype", t, func() {
		err := EncodePickle(&bytes.Buffer{}, &NDArray{Shape: []int{1}, Dtype: "<c16", Data: []float64{1}})
		So(err, ShouldNotBeNil)
	})

	Convey("Given a column-major layout", t, func() {
		shape := []int{2, 3}
		got := make([]int, 6)
		for i := range got {
			got[i] = fortranIndex(i, shape)
		}
		So(got, ShouldResemble, []int{0, 2, 4, 1, 3, 5})
	})
}

func TestRun(t *testing.T) {
	Convey("Given an output directory", t, func() {
		cfg := DefaultConfig()
		cfg.OutDir = t.TempDir()
		cfg.PKL = true

		Convey("When running the generator", func() {
			stats, err := Run(context.Background(), cfg)
			So(err, ShouldBeNil)

			Convey("Then all files are written", func() {
				for _, p := range []string{stats.TrackingPath, stats.AnnotPath, stats.PKLPath} {
					info, err := os.Stat(p)
					So(err, ShouldBeNil)
					So(info.Size(), ShouldBeGreaterThan, 0)
				}
				So(stats.Frames, ShouldEqual, cfg.Frames)
				So(stats.Windows, ShouldEqual, cfg.Annotations)
			})
		})
	})
}
