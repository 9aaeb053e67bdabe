package engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/dtype"
)

// randomOperands fills two arrays with values of magnitude in [0.5, 1.5) and
// random sign. The bounded exponent span keeps every exact pairwise sum
// representable in the next wider kind, so the reference oracle is exact.
func randomOperands(kind dtype.Kind, n int, rng *rand.Rand) (*device.Array, *device.Array) {
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = 0.5 + rng.Float64()
		ys[i] = 0.5 + rng.Float64()
		if rng.Intn(2) == 0 {
			ys[i] = -ys[i]
		}
	}
	return device.FromFloat64s(kind, xs), device.FromFloat64s(kind, ys)
}

func TestComputeResidualWorkedExamplesFloat16(t *testing.T) {
	testCases := []struct {
		name     string
		x, y     float64
		result   float64
		residual float64
	}{
		// 2048 has a 2-wide spacing in float16: 2049.5 rounds up to 2050
		// and the residual points back down.
		{"round up", 2048, 1.5, 2050, -0.5},
		// 2049 ties between 2048 and 2050; even mantissa wins and the
		// discarded half ulp shows up as a positive residual.
		{"tie to even", 2048, 1, 2048, 1},
		{"exact", 2048, 2, 2050, 0},
		{"small magnitudes", 0.5, 0.25, 0.75, 0},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x := device.FromFloat64s(dtype.Float16, []float64{tc.x})
			y := device.FromFloat64s(dtype.Float16, []float64{tc.y})
			result, err := device.Add(x, y)
			if err != nil {
				t.Fatalf("add failed: %v", err)
			}
			if got := result.Get(0); got != tc.result {
				t.Fatalf("result: expected %g, got %g", tc.result, got)
			}
			residual, err := ComputeResidual(x, y, result)
			if err != nil {
				t.Fatalf("residual failed: %v", err)
			}
			if got := residual.Get(0); got != tc.residual {
				t.Errorf("residual: expected %g, got %g", tc.residual, got)
			}
		})
	}
}

func TestComputeResidualWideKinds(t *testing.T) {
	testCases := []struct {
		name     string
		kind     dtype.Kind
		x, y     float64
		residual float64
	}{
		{"f32 absorbed addend", dtype.Float32, 1, 0x1p-24, 0x1p-24},
		{"f32 exact", dtype.Float32, 1.5, 0.25, 0},
		{"f64 absorbed addend", dtype.Float64, 1, 0x1p-53, 0x1p-53},
		{"f64 cancellation", dtype.Float64, 1, -0x1p-53, -0x1p-53},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x := device.FromFloat64s(tc.kind, []float64{tc.x})
			y := device.FromFloat64s(tc.kind, []float64{tc.y})
			result, err := device.Add(x, y)
			if err != nil {
				t.Fatalf("add failed: %v", err)
			}
			residual, err := ComputeResidual(x, y, result)
			if err != nil {
				t.Fatalf("residual failed: %v", err)
			}
			if got := residual.Get(0); got != tc.residual {
				t.Errorf("residual: expected %g, got %g", tc.residual, got)
			}
		})
	}
}

func TestComputeResidualMatchesReference(t *testing.T) {
	// The wider-precision recomputation is exact for these operand ranges,
	// so the same-precision TwoSum must reproduce it bit for bit.
	kinds := []dtype.Kind{dtype.Float16, dtype.BFloat16, dtype.Float32}
	rng := rand.New(rand.NewSource(3))

	for _, kind := range kinds {
		t.Run(kind.String(), func(t *testing.T) {
			x, y := randomOperands(kind, 2000, rng)
			result, err := device.Add(x, y)
			if err != nil {
				t.Fatalf("add failed: %v", err)
			}
			got, err := ComputeResidual(x, y, result)
			if err != nil {
				t.Fatalf("residual failed: %v", err)
			}
			want, err := ComputeResidualReference(x, y, result)
			if err != nil {
				t.Fatalf("reference failed: %v", err)
			}
			for i := 0; i < got.Len(); i++ {
				if got.Get(i) != want.Get(i) {
					t.Fatalf("element %d (%g + %g = %g): expected residual %g, got %g",
						i, x.Get(i), y.Get(i), result.Get(i), want.Get(i), got.Get(i))
				}
			}
		})
	}
}

func TestComputeResidualOrderIndependence(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	x, y := randomOperands(dtype.Float16, 1000, rng)
	result, err := device.Add(x, y)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	fwd, err := ComputeResidual(x, y, result)
	if err != nil {
		t.Fatalf("residual failed: %v", err)
	}
	rev, err := ComputeResidual(y, x, result)
	if err != nil {
		t.Fatalf("residual failed: %v", err)
	}
	for i := 0; i < fwd.Len(); i++ {
		if fwd.Get(i) != rev.Get(i) {
			t.Fatalf("element %d: residual %g changed to %g after operand swap",
				i, fwd.Get(i), rev.Get(i))
		}
	}
}

func TestComputeResidualReferenceFloat64(t *testing.T) {
	x := device.FromFloat64s(dtype.Float64, []float64{1})
	y := device.FromFloat64s(dtype.Float64, []float64{2})
	result, _ := device.Add(x, y)
	_, err := ComputeResidualReference(x, y, result)
	if !errors.Is(err, ErrPrecisionExhausted) {
		t.Errorf("expected ErrPrecisionExhausted, got %v", err)
	}
}

func TestComputeResidualValidation(t *testing.T) {
	f16 := device.FromFloat64s(dtype.Float16, []float64{1, 2})
	f32 := device.FromFloat64s(dtype.Float32, []float64{1, 2})
	short := device.FromFloat64s(dtype.Float16, []float64{1})

	if _, err := ComputeResidual(f16, f32, f16); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := ComputeResidual(f16, short, f16); !errors.Is(err, device.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}
