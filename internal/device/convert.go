package device

import (
	"math"

	"github.com/x448/float16"

	"github.com/23skdu/longbow-windage/internal/dtype"
)

// Scalar conversions between the 16-bit kinds and float32. Arithmetic on the
// 16-bit kinds widens to float32, operates once, and narrows once; the wide
// significand is at least 2p+2 bits for every narrow kind, so the double
// rounding is exact round-to-nearest-even in the narrow kind.

func f16ToF32(bits uint16) float32 {
	return float16.Frombits(bits).Float32()
}

func f32ToF16(f float32) uint16 {
	return float16.Fromfloat32(f).Bits()
}

func bf16ToF32(bits uint16) float32 {
	return math.Float32frombits(uint32(bits) << 16)
}

// f32ToBF16 rounds to nearest even. The round-up bias carries out of the
// mantissa into the exponent exactly when rounding requires it, so normals,
// subnormals and overflow-to-Inf all fall out of the same addition.
func f32ToBF16(f float32) uint16 {
	u := math.Float32bits(f)
	if f != f {
		return uint16(u>>16)&0x8000 | 0x7FC0
	}
	lsb := (u >> 16) & 1
	u += 0x7FFF + lsb
	return uint16(u >> 16)
}

// Round quantizes v to kind with round-to-nearest-even and widens it back.
func Round(kind dtype.Kind, v float64) float64 {
	switch kind {
	case dtype.Float16:
		return float64(f16ToF32(f32ToF16(float32(v))))
	case dtype.BFloat16:
		return float64(bf16ToF32(f32ToBF16(float32(v))))
	case dtype.Float32:
		return float64(float32(v))
	default:
		return v
	}
}

// BitsOf returns the kind's raw encoding of v, zero-extended to 64 bits.
// v is quantized to the kind first.
func BitsOf(kind dtype.Kind, v float64) uint64 {
	switch kind {
	case dtype.Float16:
		return uint64(f32ToF16(float32(v)))
	case dtype.BFloat16:
		return uint64(f32ToBF16(float32(v)))
	case dtype.Float32:
		return uint64(math.Float32bits(float32(v)))
	default:
		return math.Float64bits(v)
	}
}

// Convert returns a copy of a in the target kind. Widening along the
// promotion chain is exact; narrowing rounds to nearest even.
func Convert(a *Array, to dtype.Kind) *Array {
	if a.kind == to {
		return a.Clone()
	}
	n := a.Len()
	out := New(to, n)
	parallelFor(n, func(start, end int) {
		for i := start; i < end; i++ {
			out.Set(i, a.Get(i))
		}
	})
	return out
}
