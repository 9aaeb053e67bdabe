package device

import (
	"math"

	"github.com/23skdu/longbow-windage/internal/dtype"
	"github.com/23skdu/longbow-windage/internal/metrics"
	"github.com/23skdu/longbow-windage/internal/simd"
)

// Add returns the elementwise round-to-nearest-even sum.
func Add(a, b *Array) (*Array, error) {
	if err := checkPair("add", a, b); err != nil {
		return nil, err
	}
	n := a.Len()
	out := New(a.kind, n)
	switch a.kind {
	case dtype.Float16:
		av, bv, ov := a.u16(), b.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f32ToF16(f16ToF32(av[i]) + f16ToF32(bv[i]))
			}
		})
	case dtype.BFloat16:
		av, bv, ov := a.u16(), b.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f32ToBF16(bf16ToF32(av[i]) + bf16ToF32(bv[i]))
			}
		})
	case dtype.Float32:
		av, bv, ov := a.f32(), b.f32(), out.f32()
		parallelFor(n, func(start, end int) {
			simd.AddF32(ov[start:end], av[start:end], bv[start:end])
		})
	default:
		av, bv, ov := a.f64(), b.f64(), out.f64()
		parallelFor(n, func(start, end int) {
			simd.AddF64(ov[start:end], av[start:end], bv[start:end])
		})
	}
	metrics.RecordElements("add", n)
	return out, nil
}

// Sub returns the elementwise round-to-nearest-even difference.
func Sub(a, b *Array) (*Array, error) {
	if err := checkPair("sub", a, b); err != nil {
		return nil, err
	}
	n := a.Len()
	out := New(a.kind, n)
	switch a.kind {
	case dtype.Float16:
		av, bv, ov := a.u16(), b.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f32ToF16(f16ToF32(av[i]) - f16ToF32(bv[i]))
			}
		})
	case dtype.BFloat16:
		av, bv, ov := a.u16(), b.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f32ToBF16(bf16ToF32(av[i]) - bf16ToF32(bv[i]))
			}
		})
	case dtype.Float32:
		av, bv, ov := a.f32(), b.f32(), out.f32()
		parallelFor(n, func(start, end int) {
			simd.SubF32(ov[start:end], av[start:end], bv[start:end])
		})
	default:
		av, bv, ov := a.f64(), b.f64(), out.f64()
		parallelFor(n, func(start, end int) {
			simd.SubF64(ov[start:end], av[start:end], bv[start:end])
		})
	}
	metrics.RecordElements("sub", n)
	return out, nil
}

// Div returns the elementwise round-to-nearest-even quotient. IEEE special
// cases (division by zero, Inf, NaN) propagate untouched.
func Div(a, b *Array) (*Array, error) {
	if err := checkPair("div", a, b); err != nil {
		return nil, err
	}
	n := a.Len()
	out := New(a.kind, n)
	switch a.kind {
	case dtype.Float16:
		av, bv, ov := a.u16(), b.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f32ToF16(f16ToF32(av[i]) / f16ToF32(bv[i]))
			}
		})
	case dtype.BFloat16:
		av, bv, ov := a.u16(), b.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f32ToBF16(bf16ToF32(av[i]) / bf16ToF32(bv[i]))
			}
		})
	case dtype.Float32:
		av, bv, ov := a.f32(), b.f32(), out.f32()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = av[i] / bv[i]
			}
		})
	default:
		av, bv, ov := a.f64(), b.f64(), out.f64()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = av[i] / bv[i]
			}
		})
	}
	metrics.RecordElements("div", n)
	return out, nil
}

// Scale multiplies elementwise by a scalar carried in the array's own
// precision: s is quantized to the kind before the multiply.
func Scale(a *Array, s float64) *Array {
	n := a.Len()
	out := New(a.kind, n)
	switch a.kind {
	case dtype.Float16:
		sv := f16ToF32(f32ToF16(float32(s)))
		av, ov := a.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f32ToF16(f16ToF32(av[i]) * sv)
			}
		})
	case dtype.BFloat16:
		sv := bf16ToF32(f32ToBF16(float32(s)))
		av, ov := a.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f32ToBF16(bf16ToF32(av[i]) * sv)
			}
		})
	case dtype.Float32:
		sv := float32(s)
		av, ov := a.f32(), out.f32()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = av[i] * sv
			}
		})
	default:
		av, ov := a.f64(), out.f64()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = av[i] * s
			}
		})
	}
	metrics.RecordElements("scale", n)
	return out
}

// FusedDivAdd computes x + (a/b)*s elementwise in the kind's wide internal
// precision with a single final narrowing. The Float64 path uses the hardware
// fused multiply-add for the last two operations.
func FusedDivAdd(x, a, b *Array, s float64) (*Array, error) {
	if err := checkPair("fused_div_add", x, a); err != nil {
		return nil, err
	}
	if err := checkPair("fused_div_add", x, b); err != nil {
		return nil, err
	}
	n := x.Len()
	out := New(x.kind, n)
	switch x.kind {
	case dtype.Float16:
		sv := float32(s)
		xv, av, bv, ov := x.u16(), a.u16(), b.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f32ToF16(f16ToF32(xv[i]) + f16ToF32(av[i])/f16ToF32(bv[i])*sv)
			}
		})
	case dtype.BFloat16:
		sv := float32(s)
		xv, av, bv, ov := x.u16(), a.u16(), b.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = f32ToBF16(bf16ToF32(xv[i]) + bf16ToF32(av[i])/bf16ToF32(bv[i])*sv)
			}
		})
	case dtype.Float32:
		xv, av, bv, ov := x.f32(), a.f32(), b.f32(), out.f32()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = float32(float64(xv[i]) + float64(av[i])/float64(bv[i])*s)
			}
		})
	default:
		xv, av, bv, ov := x.f64(), a.f64(), b.f64(), out.f64()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				ov[i] = math.FMA(av[i]/bv[i], s, xv[i])
			}
		})
	}
	metrics.RecordElements("fused_div_add", n)
	return out, nil
}

// Select picks elementwise between two same-kind arrays: true takes onTrue.
func Select(mask []bool, onTrue, onFalse *Array) (*Array, error) {
	if err := checkPair("select", onTrue, onFalse); err != nil {
		return nil, err
	}
	if len(mask) != onTrue.Len() {
		metrics.RecordValidationError("select", "shape_mismatch")
		return nil, ErrShapeMismatch
	}
	n := onTrue.Len()
	out := New(onTrue.kind, n)
	switch onTrue.kind {
	case dtype.Float16, dtype.BFloat16:
		tv, fv, ov := onTrue.u16(), onFalse.u16(), out.u16()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				if mask[i] {
					ov[i] = tv[i]
				} else {
					ov[i] = fv[i]
				}
			}
		})
	case dtype.Float32:
		tv, fv, ov := onTrue.f32(), onFalse.f32(), out.f32()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				if mask[i] {
					ov[i] = tv[i]
				} else {
					ov[i] = fv[i]
				}
			}
		})
	default:
		tv, fv, ov := onTrue.f64(), onFalse.f64(), out.f64()
		parallelFor(n, func(start, end int) {
			for i := start; i < end; i++ {
				if mask[i] {
					ov[i] = tv[i]
				} else {
					ov[i] = fv[i]
				}
			}
		})
	}
	metrics.RecordElements("select", n)
	return out, nil
}
