package engine

import (
	"errors"
	"fmt"

	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/metrics"
)

// All errors below report caller misuse. They are synchronous and
// non-retryable, and every operation checks its preconditions before
// allocating output, so a failed call produces nothing.
var (
	// ErrTypeMismatch reports same-precision operands of differing kinds.
	ErrTypeMismatch = errors.New("operand kinds differ")

	// ErrPrecisionOrdering reports a mixed-precision call whose operands are
	// not strictly ordered by precision.
	ErrPrecisionOrdering = errors.New("operands not strictly ordered in precision")

	// ErrUnsupportedPrecision reports a decision source requested for an
	// encoding outside the supported 16/32/64-bit set.
	ErrUnsupportedPrecision = errors.New("unsupported precision")

	// ErrPrecisionExhausted reports a reference residual requested at the
	// widest supported precision.
	ErrPrecisionExhausted = errors.New("no wider precision available")
)

func sameKind(op string, arrays ...*device.Array) error {
	first := arrays[0]
	for _, a := range arrays[1:] {
		if a.Kind() != first.Kind() {
			metrics.RecordValidationError(op, "type_mismatch")
			return fmt.Errorf("%s: %w: %s vs %s", op, ErrTypeMismatch, first.Kind(), a.Kind())
		}
	}
	return nil
}

func sameLen(op string, arrays ...*device.Array) error {
	first := arrays[0]
	for _, a := range arrays[1:] {
		if a.Len() != first.Len() {
			metrics.RecordValidationError(op, "shape_mismatch")
			return fmt.Errorf("%s: %w: %d vs %d elements", op, device.ErrShapeMismatch, first.Len(), a.Len())
		}
	}
	return nil
}
