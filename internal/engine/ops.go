package engine

import (
	"fmt"

	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/metrics"
)

// roundOutcome carries everything a rounding pipeline produced. The free
// functions return only the selected array; the Rounder keeps the rest for
// its debug hooks.
type roundOutcome struct {
	selected    *device.Array
	result      *device.Array
	alternative *device.Array
	residual    *device.Array
	mask        []bool
}

// finish runs the shared tail of every pipeline: candidate construction,
// policy decision, elementwise select. hashX and hashY are the operands the
// hashed policy keys on; they are already in the result's kind.
func finish(p Policy, hashX, hashY, result, residual *device.Array) (*roundOutcome, error) {
	alternative, err := MisroundedCandidate(result, residual)
	if err != nil {
		return nil, err
	}
	mask, err := p.Choose(hashX, hashY, result, alternative, residual)
	if err != nil {
		return nil, err
	}
	selected, err := selectByMask(p.Name(), mask, result, alternative)
	if err != nil {
		return nil, err
	}
	return &roundOutcome{
		selected:    selected,
		result:      result,
		alternative: alternative,
		residual:    residual,
		mask:        mask,
	}, nil
}

func addPipeline(p Policy, x, y *device.Array) (*roundOutcome, error) {
	if err := sameKind("add", x, y); err != nil {
		return nil, err
	}
	if err := sameLen("add", x, y); err != nil {
		return nil, err
	}
	result, err := device.Add(x, y)
	if err != nil {
		return nil, err
	}
	residual, err := ComputeResidual(x, y, result)
	if err != nil {
		return nil, err
	}
	return finish(p, x, y, result, residual)
}

func mixedPipeline(p Policy, x, yWide *device.Array) (*roundOutcome, error) {
	if !yWide.Kind().StrictlyWider(x.Kind()) {
		metrics.RecordValidationError("add_mixed_precision", "precision_ordering")
		return nil, fmt.Errorf("add_mixed_precision: %w: x is %s, y is %s",
			ErrPrecisionOrdering, x.Kind(), yWide.Kind())
	}
	if err := sameLen("add_mixed_precision", x, yWide); err != nil {
		return nil, err
	}

	wide := yWide.Kind()
	wideSum, err := device.Add(device.Convert(x, wide), yWide)
	if err != nil {
		return nil, err
	}
	result := device.Convert(wideSum, x.Kind())

	// The narrowing error is exactly representable in the wide kind and the
	// subtraction is exact, so this residual needs no TwoSum. It stays wide:
	// only its sign and magnitude are consumed downstream.
	residual, err := device.Sub(wideSum, device.Convert(result, wide))
	if err != nil {
		return nil, err
	}

	metrics.RecordMixedPrecisionAdd()
	return finish(p, x, device.Convert(yWide, x.Kind()), result, residual)
}

func fusedPipeline(p Policy, x, a, b *device.Array, scale float64) (*roundOutcome, error) {
	if err := sameKind("fused_divide_add", x, a, b); err != nil {
		return nil, err
	}
	if err := sameLen("fused_divide_add", x, a, b); err != nil {
		return nil, err
	}

	result, err := device.FusedDivAdd(x, a, b, scale)
	if err != nil {
		return nil, err
	}
	// The reference addend redoes the divide and scale with per-operation
	// rounding in the nominal kind. result is not the rounding of x + y, so
	// the TwoSum residual is an approximation here; it still points at the
	// neighbor the fused rounding discarded.
	quot, err := device.Div(a, b)
	if err != nil {
		return nil, err
	}
	y := device.Scale(quot, scale)
	residual, err := ComputeResidual(x, y, result)
	if err != nil {
		return nil, err
	}

	metrics.RecordFusedDivideAdd()
	return finish(p, x, y, result, residual)
}

// Add rounds x + y elementwise under p's decision policy.
func Add(x, y *device.Array, p Policy) (*device.Array, error) {
	out, err := addPipeline(p, x, y)
	if err != nil {
		return nil, err
	}
	return out.selected, nil
}

// AddMixedPrecision adds a wide addend into narrow values: the sum is taken
// in yWide's kind, narrowed to x's kind, and the narrowing error drives the
// rounding decision. yWide's kind must sit strictly above x's on the widening
// chain; equal kinds must use Add.
func AddMixedPrecision(x, yWide *device.Array, p Policy) (*device.Array, error) {
	out, err := mixedPipeline(p, x, yWide)
	if err != nil {
		return nil, err
	}
	return out.selected, nil
}

// FusedDivideAdd rounds x + (a/b)*scale computed with one final narrowing,
// then lets p decide between that fused result and its misrounded neighbor.
func FusedDivideAdd(x, a, b *device.Array, scale float64, p Policy) (*device.Array, error) {
	out, err := fusedPipeline(p, x, a, b, scale)
	if err != nil {
		return nil, err
	}
	return out.selected, nil
}
