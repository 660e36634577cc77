package reader

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/nlpodyssey/gopickle/pickle"
)

// unpickle decodes one pickled object, resolving the numpy globals needed
// to rebuild ndarrays.
func unpickle(r io.Reader) (interface{}, error) {
	u := pickle.NewUnpickler(r)
	u.FindClass = findClass
	return u.Load()
}

func findClass(module, name string) (interface{}, error) {
	switch module + "." + name {
	case "numpy.core.multiarray._reconstruct", "numpy._core.multiarray._reconstruct":
		return reconstructFunc{}, nil
	case "numpy.core.numeric._frombuffer", "numpy._core.numeric._frombuffer":
		return frombufferFunc{}, nil
	case "numpy.ndarray":
		return ndarrayClass{}, nil
	case "numpy.dtype":
		return dtypeClass{}, nil
	case "_codecs.encode":
		return codecsEncode{}, nil
	}
	return nil, fmt.Errorf("%w: unsupported pickled global %s.%s", ErrMalformedInput, module, name)
}

type ndarrayClass struct{}

type reconstructFunc struct{}

// Call builds an empty array; BUILD fills it through PySetState.
func (reconstructFunc) Call(_ ...interface{}) (interface{}, error) {
	return &ndarray{}, nil
}

type frombufferFunc struct{}

// Call handles _frombuffer(buffer, dtype, shape, order).
func (frombufferFunc) Call(args ...interface{}) (interface{}, error) {
	if len(args) != 4 {
		return nil, fmt.Errorf("%w: _frombuffer expects 4 arguments, got %d", ErrMalformedInput, len(args))
	}
	a := &ndarray{}
	dt, ok := args[1].(*dtype)
	if !ok {
		return nil, fmt.Errorf("%w: _frombuffer dtype is %T", ErrMalformedInput, args[1])
	}
	a.dtype = dt
	shape, err := intSequence(args[2])
	if err != nil {
		return nil, err
	}
	a.shape = shape
	order, _ := args[3].(string)
	a.fortran = order == "F"
	if a.raw, err = rawBytes(args[0]); err != nil {
		return nil, err
	}
	return a, nil
}

type codecsEncode struct{}

// Call mirrors _codecs.encode(str, "latin1"), which protocol 2 pickles use
// for Python 3 bytes.
func (codecsEncode) Call(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: _codecs.encode without arguments", ErrMalformedInput)
	}
	s, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: _codecs.encode of %T", ErrMalformedInput, args[0])
	}
	out := make([]byte, 0, len(s))
	for _, r := range s {
		out = append(out, byte(r))
	}
	return out, nil
}

type dtypeClass struct{}

// Call handles dtype(descr, align, copy).
func (dtypeClass) Call(args ...interface{}) (interface{}, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: dtype without descriptor", ErrMalformedInput)
	}
	descr, ok := args[0].(string)
	if !ok {
		return nil, fmt.Errorf("%w: dtype descriptor is %T", ErrMalformedInput, args[0])
	}
	return parseDtype(descr)
}

type dtype struct {
	kind      byte // f, i, u, b
	size      int
	bigEndian bool
}

func parseDtype(descr string) (*dtype, error) {
	d := &dtype{}
	switch {
	case strings.HasPrefix(descr, ">"):
		d.bigEndian = true
		descr = descr[1:]
	case strings.HasPrefix(descr, "<"), strings.HasPrefix(descr, "|"), strings.HasPrefix(descr, "="):
		descr = descr[1:]
	}
	if len(descr) < 2 {
		return nil, fmt.Errorf("%w: unsupported dtype %q", ErrMalformedInput, descr)
	}
	size, err := strconv.Atoi(descr[1:])
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported dtype %q", ErrMalformedInput, descr)
	}
	d.kind, d.size = descr[0], size
	switch {
	case d.kind == 'f' && (size == 4 || size == 8):
	case (d.kind == 'i' || d.kind == 'u') && (size == 1 || size == 2 || size == 4 || size == 8):
	case d.kind == 'b' && size == 1:
	default:
		return nil, fmt.Errorf("%w: unsupported dtype %q", ErrMalformedInput, descr)
	}
	return d, nil
}

// PySetState reads the byte order from the dtype state tuple
// (version, byteorder, ...).
func (d *dtype) PySetState(state interface{}) error {
	items, err := sequence(state)
	if err != nil || len(items) < 2 {
		return fmt.Errorf("%w: dtype state %T", ErrMalformedInput, state)
	}
	if order, ok := items[1].(string); ok {
		d.bigEndian = order == ">"
	}
	return nil
}

func (d *dtype) decode(b []byte) float64 {
	var order binary.ByteOrder = binary.LittleEndian
	if d.bigEndian {
		order = binary.BigEndian
	}
	switch d.kind {
	case 'f':
		if d.size == 4 {
			return float64(math.Float32frombits(order.Uint32(b)))
		}
		return math.Float64frombits(order.Uint64(b))
	case 'b':
		if b[0] != 0 {
			return 1
		}
		return 0
	case 'u':
		switch d.size {
		case 1:
			return float64(b[0])
		case 2:
			return float64(order.Uint16(b))
		case 4:
			return float64(order.Uint32(b))
		}
		return float64(order.Uint64(b))
	}
	switch d.size {
	case 1:
		return float64(int8(b[0]))
	case 2:
		return float64(int16(order.Uint16(b)))
	case 4:
		return float64(int32(order.Uint32(b)))
	}
	return float64(int64(order.Uint64(b)))
}

type ndarray struct {
	shape   []int
	dtype   *dtype
	fortran bool
	raw     []byte
}

// PySetState consumes (version, shape, dtype, is_fortran, rawdata); the
// version field is absent in very old pickles.
func (a *ndarray) PySetState(state interface{}) error {
	items, err := sequence(state)
	if err != nil {
		return err
	}
	if len(items) == 5 {
		items = items[1:]
	}
	if len(items) != 4 {
		return fmt.Errorf("%w: ndarray state has %d fields", ErrMalformedInput, len(items))
	}
	if a.shape, err = intSequence(items[0]); err != nil {
		return err
	}
	dt, ok := items[1].(*dtype)
	if !ok {
		return fmt.Errorf("%w: ndarray dtype is %T", ErrMalformedInput, items[1])
	}
	a.dtype = dt
	a.fortran, _ = items[2].(bool)
	a.raw, err = rawBytes(items[3])
	return err
}

// tensor converts a rank-3 array into a row-major Tensor.
func (a *ndarray) tensor() (*Tensor, error) {
	if a.dtype == nil {
		return nil, fmt.Errorf("%w: ndarray without dtype", ErrMalformedInput)
	}
	if len(a.shape) != 3 {
		return nil, fmt.Errorf("%w: features must be rank 3, got shape %v", ErrMalformedInput, a.shape)
	}
	fr, ob, ch := a.shape[0], a.shape[1], a.shape[2]
	need, err := byteCount(a.shape, a.dtype.size)
	if err != nil {
		return nil, err
	}
	if len(a.raw) != need {
		return nil, fmt.Errorf("%w: ndarray holds %d bytes, shape %v needs %d", ErrMalformedInput, len(a.raw), a.shape, need)
	}
	t := NewTensor(fr, ob, ch)
	for f := 0; f < fr; f++ {
		for o := 0; o < ob; o++ {
			for c := 0; c < ch; c++ {
				src := (f*ob+o)*ch + c
				if a.fortran {
					src = f + fr*(o+ob*c)
				}
				t.Data[(f*ob+o)*ch+c] = a.dtype.decode(a.raw[src*a.dtype.size:])
			}
		}
	}
	return t, nil
}

// indexed is satisfied by gopickle lists and tuples.
type indexed interface {
	Len() int
	Get(i int) interface{}
}

// keyed is satisfied by gopickle dicts.
type keyed interface {
	Get(key interface{}) (interface{}, bool)
}

func sequence(v interface{}) ([]interface{}, error) {
	switch s := v.(type) {
	case []interface{}:
		return s, nil
	case indexed:
		out := make([]interface{}, s.Len())
		for i := range out {
			out[i] = s.Get(i)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: expected a sequence, got %T", ErrMalformedInput, v)
}

func intSequence(v interface{}) ([]int, error) {
	items, err := sequence(v)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(items))
	for i, it := range items {
		f, ok := number(it)
		if !ok {
			return nil, fmt.Errorf("%w: shape entry %T", ErrMalformedInput, it)
		}
		if f < 0 || f > math.MaxInt32 || f != math.Trunc(f) {
			return nil, fmt.Errorf("%w: shape entry %v", ErrMalformedInput, f)
		}
		out[i] = int(f)
	}
	return out, nil
}

// byteCount returns the buffer size of an array of shape, rejecting
// negative dimensions and products that overflow int.
func byteCount(shape []int, itemSize int) (int, error) {
	n := itemSize
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("%w: negative dimension in shape %v", ErrMalformedInput, shape)
		}
		if d != 0 && n > math.MaxInt/d {
			return 0, fmt.Errorf("%w: shape %v overflows", ErrMalformedInput, shape)
		}
		n *= d
	}
	return n, nil
}

func dictGet(v interface{}, key string) (interface{}, bool) {
	if d, ok := v.(keyed); ok {
		return d.Get(key)
	}
	if m, ok := v.(map[interface{}]interface{}); ok {
		val, found := m[key]
		return val, found
	}
	return nil, false
}

func number(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func rawBytes(v interface{}) ([]byte, error) {
	switch b := v.(type) {
	case []byte:
		return b, nil
	case string:
		return []byte(b), nil
	}
	return nil, fmt.Errorf("%w: array data is %T", ErrMalformedInput, v)
}

// featureTensor accepts an ndarray or nested sequences of numbers.
func featureTensor(v interface{}) (*Tensor, error) {
	if a, ok := v.(*ndarray); ok {
		return a.tensor()
	}
	frames, err := sequence(v)
	if err != nil {
		return nil, err
	}
	nested := make([][][]float64, len(frames))
	for f, fv := range frames {
		objects, err := sequence(fv)
		if err != nil {
			return nil, err
		}
		nested[f] = make([][]float64, len(objects))
		for o, ov := range objects {
			channels, err := sequence(ov)
			if err != nil {
				return nil, err
			}
			vec := make([]float64, len(channels))
			for c, cv := range channels {
				x, ok := number(cv)
				if !ok {
					return nil, fmt.Errorf("%w: feature value %T", ErrMalformedInput, cv)
				}
				vec[c] = x
			}
			nested[f][o] = vec
		}
	}
	return tensorFromNested(nested)
}

// displayString renders a scalar as Python's str() would for ids and times.
func displayString(v interface{}) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case []byte:
		return string(s), true
	}
	return fmt.Sprint(v), true
}
