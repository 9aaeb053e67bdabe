package engine

import (
	"math"

	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/metrics"
)

// RandomSource supplies uniform draws in [0,1). *math/rand.Rand satisfies it.
// Implementations need not be goroutine-safe; policies draw serially.
type RandomSource interface {
	Float64() float64
}

// Policy decides, per element, whether to keep the round-to-nearest result
// (true) or take the misrounded candidate (false). x and y are the original
// operands; only the hashed policy reads them.
type Policy interface {
	Name() string
	Choose(x, y, result, alternative, residual *device.Array) ([]bool, error)
}

// Nearest always keeps the round-to-nearest result. It is the baseline the
// stochastic policies are measured against.
type Nearest struct{}

func (Nearest) Name() string { return "nearest" }

func (Nearest) Choose(_, _, result, _, _ *device.Array) ([]bool, error) {
	mask := make([]bool, result.Len())
	for i := range mask {
		mask[i] = true
	}
	return mask, nil
}

// Uniform flips an unweighted coin per element: draws at or above 0.5 keep
// the result. The residual plays no part; a zero residual still yields the
// result because the candidate then equals it.
type Uniform struct {
	Src RandomSource
}

func (Uniform) Name() string { return "uniform" }

func (u Uniform) Choose(_, _, result, _, _ *device.Array) ([]bool, error) {
	mask := make([]bool, result.Len())
	for i := range mask {
		mask[i] = u.Src.Float64() >= 0.5
	}
	return mask, nil
}

// ErrorWeighted keeps the result with probability 1 - |residual|/ulp, where
// ulp is the width of the interval between result and candidate. Over many
// operations the expected selected value equals the true sum.
type ErrorWeighted struct {
	Src RandomSource
}

func (ErrorWeighted) Name() string { return "weighted" }

func (w ErrorWeighted) Choose(_, _, result, alternative, residual *device.Array) ([]bool, error) {
	if err := sameLen("choose_error_weighted", result, alternative, residual); err != nil {
		return nil, err
	}
	return weightedMask(func(int) float64 { return w.Src.Float64() }, result, alternative, residual), nil
}

// Hashed feeds the error-weighted comparison with deterministic draws from a
// DecisionSource keyed on the operand bit patterns. Same operands and seed
// always produce the same selection.
type Hashed struct {
	Src *DecisionSource
}

func (Hashed) Name() string { return "hashed" }

func (h Hashed) Choose(x, y, result, alternative, residual *device.Array) ([]bool, error) {
	if err := sameLen("choose_hashed", result, alternative, residual); err != nil {
		return nil, err
	}
	draws, err := h.Src.UniformDraws(x, y)
	if err != nil {
		return nil, err
	}
	if len(draws) != result.Len() {
		metrics.RecordValidationError("choose_hashed", "shape_mismatch")
		return nil, device.ErrShapeMismatch
	}
	return weightedMask(func(i int) float64 { return draws[i] }, result, alternative, residual), nil
}

// weightedMask applies the error-weighted comparison draw*ulp > |residual|.
// A zero ulp (exact result) short-circuits to the result without consuming a
// draw. A saturated candidate makes ulp infinite: any positive draw keeps the
// result, and a draw of exactly zero takes the infinite candidate because
// 0*Inf compares as NaN.
func weightedMask(draw func(i int) float64, result, alternative, residual *device.Array) []bool {
	n := result.Len()
	mask := make([]bool, n)
	zeros := 0
	for i := 0; i < n; i++ {
		ulp := math.Abs(alternative.Get(i) - result.Get(i))
		if ulp == 0 {
			mask[i] = true
			zeros++
			continue
		}
		mask[i] = draw(i)*ulp > math.Abs(residual.Get(i))
	}
	if zeros > 0 {
		metrics.RecordZeroResiduals(zeros)
	}
	return mask
}

// selectByMask materializes a decision mask into the selected array and
// counts the outcome under the policy's label.
func selectByMask(policy string, mask []bool, result, alternative *device.Array) (*device.Array, error) {
	selected, err := device.Select(mask, result, alternative)
	if err != nil {
		return nil, err
	}
	kept := 0
	for _, m := range mask {
		if m {
			kept++
		}
	}
	metrics.RecordDecisions(policy, kept, len(mask)-kept)
	return selected, nil
}

// ChooseUniform selects between result and the misrounded candidate with one
// unweighted coin flip per element.
func ChooseUniform(src RandomSource, result, alternative *device.Array) (*device.Array, error) {
	if err := sameKind("choose_uniform", result, alternative); err != nil {
		return nil, err
	}
	if err := sameLen("choose_uniform", result, alternative); err != nil {
		return nil, err
	}
	p := Uniform{Src: src}
	mask, err := p.Choose(nil, nil, result, alternative, nil)
	if err != nil {
		return nil, err
	}
	return selectByMask(p.Name(), mask, result, alternative)
}

// ChooseErrorWeighted selects between result and the misrounded candidate
// with probability proportional to how far the true sum sits from the result.
func ChooseErrorWeighted(src RandomSource, result, alternative, residual *device.Array) (*device.Array, error) {
	if err := sameKind("choose_error_weighted", result, alternative); err != nil {
		return nil, err
	}
	if err := sameLen("choose_error_weighted", result, alternative, residual); err != nil {
		return nil, err
	}
	p := ErrorWeighted{Src: src}
	mask, err := p.Choose(nil, nil, result, alternative, residual)
	if err != nil {
		return nil, err
	}
	return selectByMask(p.Name(), mask, result, alternative)
}
