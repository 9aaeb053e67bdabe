package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/dtype"
	"github.com/23skdu/longbow-windage/internal/metrics"
)

// DecisionSource derives rounding decisions from the operands themselves: a
// multiply-shift hash of the operand bit patterns under a stored odd seed.
// The same operands under the same seed always decide the same way, which
// makes runs replayable without recording a draw stream. The source is an
// immutable value; re-seeding means constructing a new one.
type DecisionSource struct {
	kind dtype.Kind
	seed uint64
}

// NewDecisionSource builds a source for the given kind. A zero seed picks one
// from the clock. The effective seed is sanitized to the kind's integer
// width: sign bit cleared, low bit forced on (an even multiplier would throw
// away operand bits).
func NewDecisionSource(kind dtype.Kind, seed int64) (*DecisionSource, error) {
	switch kind.Bits() {
	case 16, 32, 64:
	default:
		metrics.RecordValidationError("decision_source", "unsupported_precision")
		return nil, fmt.Errorf("decision source for %s: %w", kind, ErrUnsupportedPrecision)
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &DecisionSource{kind: kind, seed: sanitizeSeed(uint64(seed), kind.Bits())}, nil
}

func sanitizeSeed(seed uint64, bits int) uint64 {
	mask := uint64(1)<<(bits-1) - 1
	return seed&mask | 1
}

func (s *DecisionSource) Kind() dtype.Kind { return s.kind }

// Seed returns the sanitized seed in use.
func (s *DecisionSource) Seed() uint64 { return s.seed }

// hashBits multiplies the XOR of the operand encodings by the seed with
// wraparound in the kind's signed integer width, returning the product
// sign-extended to 64 bits.
func (s *DecisionSource) hashBits(xBits, yBits uint64) int64 {
	combined := xBits ^ yBits
	switch s.kind.Bits() {
	case 16:
		return int64(int16(uint16(s.seed)) * int16(uint16(combined)))
	case 32:
		return int64(int32(uint32(s.seed)) * int32(uint32(combined)))
	default:
		return int64(s.seed) * int64(combined)
	}
}

// boolFromHash reads the hash's sign bit via an arithmetic shift by width-1.
func (s *DecisionSource) boolFromHash(h int64) bool {
	return h>>(uint(s.kind.Bits())-1) != 0
}

// floatFromHash maps the hash to [0,1) in the source's kind: |hash| over the
// width's max signed integer, quantized to the kind and clamped strictly
// below 1. The magnitude negation is done in uint64 so the width's minimum
// integer does not wrap.
func (s *DecisionSource) floatFromHash(h int64) float64 {
	mag := uint64(h)
	if h < 0 {
		mag = -mag
	}
	var maxInt float64
	switch s.kind.Bits() {
	case 16:
		maxInt = math.MaxInt16
	case 32:
		maxInt = math.MaxInt32
	default:
		maxInt = math.MaxInt64
	}
	v := device.Round(s.kind, float64(mag)/maxInt)
	if v >= 1 {
		v = device.Step(s.kind, 1, -1)
	}
	return v
}

// DecideBoolean hashes one operand pair to a coin flip. The scalars are
// quantized to the source's kind before their bits are read.
func (s *DecisionSource) DecideBoolean(x, y float64) bool {
	return s.boolFromHash(s.hashBits(device.BitsOf(s.kind, x), device.BitsOf(s.kind, y)))
}

// DecideUniformFloat hashes one operand pair to a draw in [0,1), quantized to
// the source's kind.
func (s *DecisionSource) DecideUniformFloat(x, y float64) float64 {
	return s.floatFromHash(s.hashBits(device.BitsOf(s.kind, x), device.BitsOf(s.kind, y)))
}

func (s *DecisionSource) checkOperands(op string, x, y *device.Array) error {
	if err := sameKind(op, x, y); err != nil {
		return err
	}
	if x.Kind() != s.kind {
		metrics.RecordValidationError(op, "type_mismatch")
		return fmt.Errorf("%s: %w: source is %s, operands are %s", op, ErrTypeMismatch, s.kind, x.Kind())
	}
	return sameLen(op, x, y)
}

// DecisionMask hashes each operand pair to a boolean.
func (s *DecisionSource) DecisionMask(x, y *device.Array) ([]bool, error) {
	if err := s.checkOperands("decision_mask", x, y); err != nil {
		return nil, err
	}
	xb, yb := x.Bits(), y.Bits()
	mask := make([]bool, len(xb))
	for i := range mask {
		mask[i] = s.boolFromHash(s.hashBits(xb[i], yb[i]))
	}
	metrics.RecordHashDraws(len(mask))
	return mask, nil
}

// UniformDraws hashes each operand pair to a draw in [0,1).
func (s *DecisionSource) UniformDraws(x, y *device.Array) ([]float64, error) {
	if err := s.checkOperands("uniform_draws", x, y); err != nil {
		return nil, err
	}
	xb, yb := x.Bits(), y.Bits()
	draws := make([]float64, len(xb))
	for i := range draws {
		draws[i] = s.floatFromHash(s.hashBits(xb[i], yb[i]))
	}
	metrics.RecordHashDraws(len(draws))
	return draws, nil
}
