package device

import (
	"math"

	"github.com/23skdu/longbow-windage/internal/dtype"
	"github.com/23skdu/longbow-windage/internal/metrics"
)

// Nextafter steps each element to the adjacent representable value in the
// direction given by dir: positive toward +Inf, negative toward -Inf, zero
// keeps the value. Stepping outward from the finite range saturates to the
// matching infinity; NaN propagates.
func Nextafter(a *Array, dir []int) (*Array, error) {
	n := a.Len()
	if len(dir) != n {
		metrics.RecordValidationError("nextafter", "shape_mismatch")
		return nil, ErrShapeMismatch
	}
	out := New(a.kind, n)
	switch a.kind {
	case dtype.Float16:
		av, ov := a.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = stepBits16(av[i], dir[i], f16ExpMask)
			}
		})
	case dtype.BFloat16:
		av, ov := a.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = stepBits16(av[i], dir[i], bf16ExpMask)
			}
		})
	case dtype.Float32:
		av, ov := a.f32(), out.f32()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				switch {
				case dir[i] > 0:
					ov[i] = math.Nextafter32(av[i], float32(math.Inf(1)))
				case dir[i] < 0:
					ov[i] = math.Nextafter32(av[i], float32(math.Inf(-1)))
				default:
					ov[i] = av[i]
				}
			}
		})
	default:
		av, ov := a.f64(), out.f64()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				switch {
				case dir[i] > 0:
					ov[i] = math.Nextafter(av[i], math.Inf(1))
				case dir[i] < 0:
					ov[i] = math.Nextafter(av[i], math.Inf(-1))
				default:
					ov[i] = av[i]
				}
			}
		})
	}
	return out, nil
}

// Step is the scalar form of Nextafter for a single kind-quantized value.
func Step(kind dtype.Kind, v float64, dir int) float64 {
	if dir == 0 {
		return Round(kind, v)
	}
	switch kind {
	case dtype.Float16:
		return float64(f16ToF32(stepBits16(f32ToF16(float32(v)), dir, f16ExpMask)))
	case dtype.BFloat16:
		return float64(bf16ToF32(stepBits16(f32ToBF16(float32(v)), dir, bf16ExpMask)))
	case dtype.Float32:
		if dir > 0 {
			return float64(math.Nextafter32(float32(v), float32(math.Inf(1))))
		}
		return float64(math.Nextafter32(float32(v), float32(math.Inf(-1))))
	default:
		if dir > 0 {
			return math.Nextafter(v, math.Inf(1))
		}
		return math.Nextafter(v, math.Inf(-1))
	}
}

const (
	f16ExpMask  uint16 = 0x7C00
	bf16ExpMask uint16 = 0x7F80
)

// stepBits16 moves a 16-bit IEEE-style encoding to its neighbor by pure bit
// arithmetic: the magnitude ordering of the encodings matches the value
// ordering, so one increment or decrement of the magnitude crosses exponent
// boundaries, subnormals and the saturation to Inf correctly. expMask is the
// kind's exponent field, whose all-ones pattern with zero mantissa is Inf.
func stepBits16(b uint16, dir int, expMask uint16) uint16 {
	mag := b & 0x7FFF
	if mag > expMask || dir == 0 {
		return b // NaN or no movement
	}
	neg := b&0x8000 != 0
	if dir > 0 {
		switch {
		case mag == 0:
			return 0x0001 // +0 or -0 steps to the smallest positive
		case neg:
			return b - 1
		case mag == expMask:
			return b // +Inf stays
		default:
			return b + 1
		}
	}
	switch {
	case mag == 0:
		return 0x8001 // +0 or -0 steps to the smallest negative
	case neg:
		if mag == expMask {
			return b // -Inf stays
		}
		return b + 1
	default:
		return b - 1
	}
}
