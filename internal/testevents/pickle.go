package testevents

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"

	pickle "github.com/kisielk/og-rek"
)

const pickleProtocol = 3

// NDArray is pickled the way numpy 1.x and 2.x pickle an ndarray through
// _frombuffer. Data is given in row-major order regardless of Fortran.
type NDArray struct {
	Shape   []int
	Dtype   string // numpy descriptor with byte order, e.g. "<f8", ">f4", "|b1"
	Fortran bool
	Data    []float64

	// Modern uses the numpy._core module paths of numpy 2.
	Modern bool
}

// EncodePickle writes v as a protocol 3 pickle. NDArray values anywhere
// inside maps and slices are replaced by the numpy call rebuilding them;
// everything else is handed to the encoder as is.
func EncodePickle(w io.Writer, v any) error {
	pv, err := pickleValue(v)
	if err != nil {
		return err
	}
	enc := pickle.NewEncoderWithConfig(w, &pickle.EncoderConfig{Protocol: pickleProtocol})
	if err := enc.Encode(pv); err != nil {
		return fmt.Errorf("pickle: %w", err)
	}
	return nil
}

func pickleValue(v any) (any, error) {
	switch x := v.(type) {
	case NDArray:
		return x.call()
	case *NDArray:
		return x.call()
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, item := range x {
			pv, err := pickleValue(item)
			if err != nil {
				return nil, fmt.Errorf("pickle %q: %w", k, err)
			}
			out[k] = pv
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			pv, err := pickleValue(item)
			if err != nil {
				return nil, fmt.Errorf("pickle [%d]: %w", i, err)
			}
			out[i] = pv
		}
		return out, nil
	}
	return v, nil
}

// call returns numpy's _frombuffer(buffer, dtype, shape, order).
func (a *NDArray) call() (pickle.Call, error) {
	order, descr := splitDtype(a.Dtype)
	raw, err := a.raw(order, descr)
	if err != nil {
		return pickle.Call{}, err
	}
	shape := make(pickle.Tuple, len(a.Shape))
	for i, n := range a.Shape {
		shape[i] = n
	}
	core := "numpy.core"
	if a.Modern {
		core = "numpy._core"
	}
	layout := "C"
	if a.Fortran {
		layout = "F"
	}
	dtype := pickle.Call{
		Callable: pickle.Class{Module: "numpy", Name: "dtype"},
		Args:     pickle.Tuple{string(order) + descr, false, true},
	}
	return pickle.Call{
		Callable: pickle.Class{Module: core + ".numeric", Name: "_frombuffer"},
		Args:     pickle.Tuple{pickle.Bytes(raw), dtype, shape, layout},
	}, nil
}

func splitDtype(d string) (byte, string) {
	if d == "" {
		return '<', "f8"
	}
	switch d[0] {
	case '<', '>', '|', '=':
		return d[0], d[1:]
	}
	return '<', d
}

// raw serializes Data in the array's memory order.
func (a *NDArray) raw(order byte, descr string) ([]byte, error) {
	n := 1
	for _, s := range a.Shape {
		n *= s
	}
	if n != len(a.Data) {
		return nil, fmt.Errorf("pickle: shape %v needs %d values, got %d", a.Shape, n, len(a.Data))
	}
	if len(descr) < 2 {
		return nil, fmt.Errorf("pickle: bad dtype %q", a.Dtype)
	}
	size, err := strconv.Atoi(descr[1:])
	if err != nil {
		return nil, fmt.Errorf("pickle: bad dtype %q", a.Dtype)
	}
	var bo binary.ByteOrder = binary.LittleEndian
	if order == '>' {
		bo = binary.BigEndian
	}

	out := make([]byte, n*size)
	for i, v := range a.Data {
		dst := i
		if a.Fortran {
			dst = fortranIndex(i, a.Shape)
		}
		b := out[dst*size : (dst+1)*size]
		switch {
		case descr == "f8":
			bo.PutUint64(b, math.Float64bits(v))
		case descr == "f4":
			bo.PutUint32(b, math.Float32bits(float32(v)))
		case descr == "b1":
			if v != 0 {
				b[0] = 1
			}
		case descr[0] == 'i' || descr[0] == 'u':
			putInt(bo, b, int64(v))
		default:
			return nil, fmt.Errorf("pickle: unsupported dtype %q", a.Dtype)
		}
	}
	return out, nil
}

func putInt(bo binary.ByteOrder, b []byte, v int64) {
	switch len(b) {
	case 1:
		b[0] = byte(v)
	case 2:
		bo.PutUint16(b, uint16(v))
	case 4:
		bo.PutUint32(b, uint32(v))
	default:
		bo.PutUint64(b, uint64(v))
	}
}

// fortranIndex maps a row-major linear index to its column-major position.
func fortranIndex(i int, shape []int) int {
	idx := make([]int, len(shape))
	for d := len(shape) - 1; d >= 0; d-- {
		idx[d] = i % shape[d]
		i /= shape[d]
	}
	out, stride := 0, 1
	for d := range shape {
		out += idx[d] * stride
		stride *= shape[d]
	}
	return out
}
