package engine

import (
	"fmt"

	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/dtype"
	"github.com/23skdu/longbow-windage/internal/metrics"
	"github.com/23skdu/longbow-windage/internal/simd"
)

// ComputeResidual returns the exact signed difference x + y - result for a
// result produced by round-to-nearest addition, using only arithmetic in the
// operands' own precision. The five TwoSum steps are branch-free and correct
// for any relative magnitude of x and y; their order is load-bearing and must
// not be reassociated.
func ComputeResidual(x, y, result *device.Array) (*device.Array, error) {
	if err := sameKind("compute_residual", x, y, result); err != nil {
		return nil, err
	}
	if err := sameLen("compute_residual", x, y, result); err != nil {
		return nil, err
	}

	switch x.Kind() {
	case dtype.Float32:
		residual := device.New(dtype.Float32, x.Len())
		simd.TwoSumF32(x.F32s(), y.F32s(), result.F32s(), residual.F32s())
		return residual, nil
	case dtype.Float64:
		residual := device.New(dtype.Float64, x.Len())
		simd.TwoSumF64(x.F64s(), y.F64s(), result.F64s(), residual.F64s())
		return residual, nil
	}

	// 16-bit kinds: five individually rounded narrow operations.
	y2, err := device.Sub(result, x)
	if err != nil {
		return nil, err
	}
	x2, err := device.Sub(result, y2)
	if err != nil {
		return nil, err
	}
	ey, err := device.Sub(y, y2)
	if err != nil {
		return nil, err
	}
	ex, err := device.Sub(x, x2)
	if err != nil {
		return nil, err
	}
	return device.Add(ex, ey)
}

// ComputeResidualReference recomputes x + y in the next wider kind and
// subtracts the widened result, then narrows the difference back. It is the
// testing oracle for ComputeResidual and is valid whenever the exact sum fits
// the wide significand; the TwoSum itself carries no such restriction.
func ComputeResidualReference(x, y, result *device.Array) (*device.Array, error) {
	if err := sameKind("compute_residual_reference", x, y, result); err != nil {
		return nil, err
	}
	if err := sameLen("compute_residual_reference", x, y, result); err != nil {
		return nil, err
	}
	wide, ok := x.Kind().Wider()
	if !ok {
		metrics.RecordValidationError("compute_residual_reference", "precision_exhausted")
		return nil, fmt.Errorf("reference residual for %s: %w", x.Kind(), ErrPrecisionExhausted)
	}

	xw := device.Convert(x, wide)
	yw := device.Convert(y, wide)
	rw := device.Convert(result, wide)
	sum, err := device.Add(xw, yw)
	if err != nil {
		return nil, err
	}
	diff, err := device.Sub(sum, rw)
	if err != nil {
		return nil, err
	}
	return device.Convert(diff, x.Kind()), nil
}
