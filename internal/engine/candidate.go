package engine

import (
	"math"

	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/metrics"
)

// MisroundedCandidate returns, per element, the representable neighbor of
// result on the side the residual points to: the value round-to-nearest
// discarded. A zero residual means the result was exact and the candidate is
// the result itself. Stepping outward from the largest finite value saturates
// to the matching infinity, which is a legitimate candidate.
//
// Only the residual's sign is consumed, so its kind may differ from the
// result's (the mixed-precision path keeps it wide).
func MisroundedCandidate(result, residual *device.Array) (*device.Array, error) {
	if err := sameLen("misrounded_candidate", result, residual); err != nil {
		return nil, err
	}
	n := result.Len()
	dir := make([]int, n)
	for i := 0; i < n; i++ {
		switch r := residual.Get(i); {
		case r > 0:
			dir[i] = 1
		case r < 0:
			dir[i] = -1
		}
	}
	alternative, err := device.Nextafter(result, dir)
	if err != nil {
		return nil, err
	}

	saturated := 0
	for i := 0; i < n; i++ {
		if math.IsInf(alternative.Get(i), 0) && !math.IsInf(result.Get(i), 0) {
			saturated++
		}
	}
	if saturated > 0 {
		metrics.RecordSaturation(saturated)
	}
	return alternative, nil
}
