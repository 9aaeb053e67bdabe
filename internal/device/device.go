package device

import (
	"math"

	"github.com/23skdu/longbow-windage/internal/dtype"
)

// Array is a flat, single-kind collection of floating-point values.
// The 16-bit kinds store raw bit patterns; the wide kinds store native
// floats. Operations allocate fresh output arrays and never mutate their
// inputs.
type Array struct {
	kind dtype.Kind
	data interface{} // []uint16, []float32 or []float64
}

// New returns a zero-filled array of n elements.
func New(kind dtype.Kind, n int) *Array {
	var data interface{}
	switch kind.Size() {
	case 2:
		data = make([]uint16, n)
	case 4:
		data = make([]float32, n)
	default:
		data = make([]float64, n)
	}
	return &Array{kind: kind, data: data}
}

// FromFloat64s quantizes vals into a fresh array, rounding to nearest even.
func FromFloat64s(kind dtype.Kind, vals []float64) *Array {
	a := New(kind, len(vals))
	for i, v := range vals {
		a.Set(i, v)
	}
	return a
}

// Full returns an n-element array with every element set to v, quantized.
func Full(kind dtype.Kind, v float64, n int) *Array {
	a := New(kind, n)
	if n == 0 {
		return a
	}
	a.Set(0, v)
	switch d := a.data.(type) {
	case []uint16:
		for i := 1; i < n; i++ {
			d[i] = d[0]
		}
	case []float32:
		for i := 1; i < n; i++ {
			d[i] = d[0]
		}
	case []float64:
		for i := 1; i < n; i++ {
			d[i] = d[0]
		}
	}
	return a
}

func (a *Array) Kind() dtype.Kind { return a.kind }

func (a *Array) Len() int {
	switch d := a.data.(type) {
	case []uint16:
		return len(d)
	case []float32:
		return len(d)
	case []float64:
		return len(d)
	}
	return 0
}

// Clone returns a deep copy.
func (a *Array) Clone() *Array {
	out := New(a.kind, a.Len())
	switch d := a.data.(type) {
	case []uint16:
		copy(out.data.([]uint16), d)
	case []float32:
		copy(out.data.([]float32), d)
	case []float64:
		copy(out.data.([]float64), d)
	}
	return out
}

// Get reads element i widened to float64. Widening is exact for every kind.
func (a *Array) Get(i int) float64 {
	switch a.kind {
	case dtype.Float16:
		return float64(f16ToF32(a.u16()[i]))
	case dtype.BFloat16:
		return float64(bf16ToF32(a.u16()[i]))
	case dtype.Float32:
		return float64(a.f32()[i])
	default:
		return a.f64()[i]
	}
}

// Set stores v at index i, rounded to nearest even in the array's kind.
func (a *Array) Set(i int, v float64) {
	switch a.kind {
	case dtype.Float16:
		a.u16()[i] = f32ToF16(float32(v))
	case dtype.BFloat16:
		a.u16()[i] = f32ToBF16(float32(v))
	case dtype.Float32:
		a.f32()[i] = float32(v)
	default:
		a.f64()[i] = v
	}
}

// Float64s returns a widened copy of the contents. Exact for every kind.
func (a *Array) Float64s() []float64 {
	out := make([]float64, a.Len())
	for i := range out {
		out[i] = a.Get(i)
	}
	return out
}

// Bits returns each element's raw encoding zero-extended to 64 bits. This is
// the reinterpretation primitive the hash decision source is built on; it has
// no other consumers.
func (a *Array) Bits() []uint64 {
	out := make([]uint64, a.Len())
	switch a.kind {
	case dtype.Float16, dtype.BFloat16:
		for i, b := range a.u16() {
			out[i] = uint64(b)
		}
	case dtype.Float32:
		for i, v := range a.f32() {
			out[i] = uint64(math.Float32bits(v))
		}
	default:
		for i, v := range a.f64() {
			out[i] = math.Float64bits(v)
		}
	}
	return out
}

// F32s exposes the backing slice of a Float32 array. Panics on other kinds;
// callers are expected to have dispatched on Kind already.
func (a *Array) F32s() []float32 { return a.f32() }

// F64s exposes the backing slice of a Float64 array.
func (a *Array) F64s() []float64 { return a.f64() }

// U16s exposes the backing bit patterns of a 16-bit array.
func (a *Array) U16s() []uint16 { return a.u16() }

func (a *Array) u16() []uint16 { return a.data.([]uint16) }

func (a *Array) f32() []float32 { return a.data.([]float32) }

func (a *Array) f64() []float64 { return a.data.([]float64) }
