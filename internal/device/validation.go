package device

import (
	"errors"
	"fmt"
	"math"

	"github.com/23skdu/longbow-windage/internal/metrics"
)

var (
	// ErrShapeMismatch reports operands with differing element counts.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrKindMismatch reports operands with differing float kinds.
	ErrKindMismatch = errors.New("kind mismatch")
)

func checkPair(op string, a, b *Array) error {
	if a.kind != b.kind {
		metrics.RecordValidationError(op, "kind_mismatch")
		return fmt.Errorf("%s: %w: %s vs %s", op, ErrKindMismatch, a.kind, b.kind)
	}
	if a.Len() != b.Len() {
		metrics.RecordValidationError(op, "shape_mismatch")
		return fmt.Errorf("%s: %w: %d vs %d elements", op, ErrShapeMismatch, a.Len(), b.Len())
	}
	return nil
}

// CountNonFinite scans a for NaN and Inf elements and records them. Used by
// the debug paths; nonzero counts are expected near saturation, so this
// reports rather than fails.
func CountNonFinite(a *Array) (nans, infs int) {
	for i, n := 0, a.Len(); i < n; i++ {
		v := a.Get(i)
		if math.IsNaN(v) {
			nans++
		} else if math.IsInf(v, 0) {
			infs++
		}
	}
	if nans > 0 || infs > 0 {
		metrics.RecordNonFinite(a.kind.String(), nans, infs)
	}
	return nans, infs
}
