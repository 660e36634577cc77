package reader

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestParseDtype(t *testing.T) {
	Convey("Given numpy type descriptors", t, func() {
		cases := []struct {
			descr     string
			kind      byte
			size      int
			bigEndian bool
		}{
			{"<f8", 'f', 8, false},
			{">f4", 'f', 4, true},
			{"f8", 'f', 8, false},
			{"|b1", 'b', 1, false},
			{"<i2", 'i', 2, false},
			{">u4", 'u', 4, true},
		}
		for _, tc := range cases {
			d, err := parseDtype(tc.descr)
			So(err, ShouldBeNil)
			So(d.kind, ShouldEqual, tc.kind)
			So(d.size, ShouldEqual, tc.size)
			So(d.bigEndian, ShouldEqual, tc.bigEndian)
		}
	})

	Convey("Given unsupported descriptors", t, func() {
		for _, descr := range []string{"", "<c16", "f2", "<U10", "O"} {
			_, err := parseDtype(descr)
			So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)
		}
	})
}

func TestDtypeDecode(t *testing.T) {
	Convey("Given raw little and big endian values", t, func() {
		le, _ := parseDtype("<i2")
		be, _ := parseDtype(">i2")
		So(le.decode([]byte{0xfe, 0xff}), ShouldEqual, -2.0)
		So(be.decode([]byte{0xff, 0xfe}), ShouldEqual, -2.0)

		u, _ := parseDtype("|u1")
		So(u.decode([]byte{200}), ShouldEqual, 200.0)

		b, _ := parseDtype("|b1")
		So(b.decode([]byte{3}), ShouldEqual, 1.0)
	})
}

func TestCodecsEncode(t *testing.T) {
	Convey("Given a latin1 string produced by a protocol 2 pickle", t, func() {
		out, err := codecsEncode{}.Call("\u0000ÿA", "latin1")
		So(err, ShouldBeNil)
		So(out, ShouldResemble, []byte{0x00, 0xff, 0x41})
	})

	Convey("Given no arguments", t, func() {
		_, err := codecsEncode{}.Call()
		So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)
	})
}

func TestFindClass(t *testing.T) {
	Convey("Given globals a feature archive may reference", t, func() {
		for _, name := range [][2]string{
			{"numpy.core.multiarray", "_reconstruct"},
			{"numpy._core.multiarray", "_reconstruct"},
			{"numpy.core.numeric", "_frombuffer"},
			{"numpy", "ndarray"},
			{"numpy", "dtype"},
			{"_codecs", "encode"},
		} {
			v, err := findClass(name[0], name[1])
			So(err, ShouldBeNil)
			So(v, ShouldNotBeNil)
		}
	})

	Convey("Given an arbitrary global", t, func() {
		_, err := findClass("os", "system")
		So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)
	})
}

func TestNdarrayShapeBounds(t *testing.T) {
	f8, _ := parseDtype("<f8")

	Convey("Given arrays whose shape does not describe their buffer", t, func() {
		cases := []struct {
			name  string
			shape []int
			raw   int
		}{
			{"negative dimensions with a matching product", []int{-2, -4, 1}, 64},
			{"a product that wraps to zero", []int{1 << 32, 1 << 32, 1}, 0},
			{"a product that wraps past the item size", []int{1 << 31, 1 << 31, 4}, 0},
		}
		for _, tc := range cases {
			a := &ndarray{shape: tc.shape, dtype: f8, raw: make([]byte, tc.raw)}
			_, err := a.tensor()
			So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)
		}
	})

	Convey("Given an empty array", t, func() {
		a := &ndarray{shape: []int{0, 3, 5}, dtype: f8}
		tensor, err := a.tensor()

		Convey("Then it converts to an empty tensor", func() {
			So(err, ShouldBeNil)
			So(tensor.Data, ShouldBeEmpty)
		})
	})

	Convey("Given pickled shape tuples", t, func() {
		_, err := intSequence([]interface{}{int64(2), int64(-1), int64(5)})
		So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)

		_, err = intSequence([]interface{}{2.5})
		So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)

		_, err = intSequence([]interface{}{int64(1) << 40})
		So(errors.Is(err, ErrMalformedInput), ShouldBeTrue)

		shape, err := intSequence([]interface{}{int64(2), 3, 5.0})
		So(err, ShouldBeNil)
		So(shape, ShouldResemble, []int{2, 3, 5})
	})
}
