package engine

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/dtype"
)

func TestAddNearestMatchesDeviceAdd(t *testing.T) {
	rng := rand.New(rand.NewSource(41))
	for _, kind := range []dtype.Kind{dtype.Float16, dtype.BFloat16, dtype.Float32, dtype.Float64} {
		t.Run(kind.String(), func(t *testing.T) {
			x, y := randomOperands(kind, 512, rng)
			want, err := device.Add(x, y)
			if err != nil {
				t.Fatalf("device add failed: %v", err)
			}
			got, err := Add(x, y, Nearest{})
			if err != nil {
				t.Fatalf("engine add failed: %v", err)
			}
			for i := 0; i < got.Len(); i++ {
				if got.Get(i) != want.Get(i) {
					t.Fatalf("element %d: expected %g, got %g", i, want.Get(i), got.Get(i))
				}
			}
		})
	}
}

func TestAddWeightedForcedDraws(t *testing.T) {
	testCases := []struct {
		name string
		x, y float64
		draw float64
		want float64
	}{
		// 2048 + 1.5 rounds to 2050 with the alternative at 2048 and
		// P(alternative) = 0.25.
		{"keep rounded-up result", 2048, 1.5, 0.3, 2050},
		{"take alternative below", 2048, 1.5, 0.2, 2048},
		// 2048 + 1 ties to even 2048 with the alternative at 2050 and
		// P(alternative) = 0.5.
		{"keep tie result", 2048, 1, 0.6, 2048},
		{"take alternative above", 2048, 1, 0.4, 2050},
		// Exact sums never move.
		{"exact sum", 2048, 2, 0.0001, 2050},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x := device.FromFloat64s(dtype.Float16, []float64{tc.x})
			y := device.FromFloat64s(dtype.Float16, []float64{tc.y})
			p := ErrorWeighted{Src: &fixedSource{vals: []float64{tc.draw}}}
			got, err := Add(x, y, p)
			if err != nil {
				t.Fatalf("add failed: %v", err)
			}
			if got.Get(0) != tc.want {
				t.Errorf("expected %g, got %g", tc.want, got.Get(0))
			}
		})
	}
}

func TestAddUniformExactSum(t *testing.T) {
	// 0.5 + 0.25 is exact, so the candidates coincide and even an
	// alternative-selecting draw returns the rounded sum.
	x := device.FromFloat64s(dtype.Float16, []float64{0.5})
	y := device.FromFloat64s(dtype.Float16, []float64{0.25})
	got, err := Add(x, y, Uniform{Src: &fixedSource{vals: []float64{0.1}}})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if got.Get(0) != 0.75 {
		t.Errorf("expected 0.75, got %g", got.Get(0))
	}
}

func TestAddSaturatedAlternative(t *testing.T) {
	// 65504 + 8 rounds back to max-finite float16 and the discarded 8 points
	// at +Inf. The weighted policy keeps the finite result for any positive
	// draw and crosses into +Inf only on a zero draw.
	x := device.FromFloat64s(dtype.Float16, []float64{65504})
	y := device.FromFloat64s(dtype.Float16, []float64{8})

	got, err := Add(x, y, ErrorWeighted{Src: &fixedSource{vals: []float64{0.5}}})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if got.Get(0) != 65504 {
		t.Errorf("expected 65504, got %g", got.Get(0))
	}

	got, err = Add(x, y, ErrorWeighted{Src: &fixedSource{vals: []float64{0}}})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	if !math.IsInf(got.Get(0), 1) {
		t.Errorf("expected +Inf, got %g", got.Get(0))
	}
}

func TestAddValidation(t *testing.T) {
	f16 := device.FromFloat64s(dtype.Float16, []float64{1, 2})
	f32 := device.FromFloat64s(dtype.Float32, []float64{1, 2})
	short := device.FromFloat64s(dtype.Float16, []float64{1})

	if _, err := Add(f16, f32, Nearest{}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := Add(f16, short, Nearest{}); !errors.Is(err, device.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestAddMixedPrecisionWorkedExample(t *testing.T) {
	// float16 1.0 plus float32 2^-13: the wide sum narrows back to 1.0,
	// leaving a wide residual of 2^-13 in a 2^-10 interval, so the
	// alternative 1+2^-10 is taken with probability 1/8.
	x := device.FromFloat64s(dtype.Float16, []float64{1})
	yWide := device.FromFloat64s(dtype.Float32, []float64{0x1p-13})

	out, err := mixedPipeline(ErrorWeighted{Src: &fixedSource{vals: []float64{0.2}}}, x, yWide)
	if err != nil {
		t.Fatalf("mixed add failed: %v", err)
	}
	if out.result.Kind() != dtype.Float16 || out.result.Get(0) != 1 {
		t.Fatalf("expected float16 result 1, got %s %g", out.result.Kind(), out.result.Get(0))
	}
	if out.residual.Kind() != dtype.Float32 {
		t.Fatalf("expected residual kept wide as float32, got %s", out.residual.Kind())
	}
	if out.residual.Get(0) != 0x1p-13 {
		t.Fatalf("expected residual 2^-13, got %g", out.residual.Get(0))
	}
	if out.alternative.Get(0) != 1+0x1p-10 {
		t.Fatalf("expected alternative 1+2^-10, got %g", out.alternative.Get(0))
	}
	// draw 0.2 > 1/8 keeps the result
	if out.selected.Get(0) != 1 {
		t.Errorf("expected result kept, got %g", out.selected.Get(0))
	}

	out, err = mixedPipeline(ErrorWeighted{Src: &fixedSource{vals: []float64{0.1}}}, x, yWide)
	if err != nil {
		t.Fatalf("mixed add failed: %v", err)
	}
	// draw 0.1 < 1/8 takes the alternative
	if out.selected.Get(0) != 1+0x1p-10 {
		t.Errorf("expected alternative taken, got %g", out.selected.Get(0))
	}
}

func TestAddMixedPrecisionOrdering(t *testing.T) {
	testCases := []struct {
		name  string
		xKind dtype.Kind
		yKind dtype.Kind
		ok    bool
	}{
		{"f16 up to f32", dtype.Float16, dtype.Float32, true},
		{"f16 up to f64", dtype.Float16, dtype.Float64, true},
		{"bf16 up to f32", dtype.BFloat16, dtype.Float32, true},
		{"f32 up to f64", dtype.Float32, dtype.Float64, true},
		{"equal kinds", dtype.Float16, dtype.Float16, false},
		{"inverted", dtype.Float32, dtype.Float16, false},
		{"f16 and bf16 unordered", dtype.Float16, dtype.BFloat16, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x := device.FromFloat64s(tc.xKind, []float64{1})
			y := device.FromFloat64s(tc.yKind, []float64{0.5})
			_, err := AddMixedPrecision(x, y, Nearest{})
			if tc.ok && err != nil {
				t.Errorf("expected success, got %v", err)
			}
			if !tc.ok && !errors.Is(err, ErrPrecisionOrdering) {
				t.Errorf("expected ErrPrecisionOrdering, got %v", err)
			}
		})
	}
}

func TestAddMixedPrecisionNearest(t *testing.T) {
	// With the nearest policy mixed addition is plain promote-add-narrow.
	x := device.FromFloat64s(dtype.Float16, []float64{1, 2048, 0.5})
	yWide := device.FromFloat64s(dtype.Float32, []float64{0x1p-13, 1, 0.25})

	got, err := AddMixedPrecision(x, yWide, Nearest{})
	if err != nil {
		t.Fatalf("mixed add failed: %v", err)
	}
	want := []float64{1, 2048, 0.75}
	for i, w := range want {
		if got.Get(i) != w {
			t.Errorf("element %d: expected %g, got %g", i, w, got.Get(i))
		}
	}
}

func TestFusedDivideAddWorkedExample(t *testing.T) {
	// 1 + (1/3)*1 in float16: the fused result rounds once to 1.3330078125;
	// the reference addend rounds the division separately to 0.333251953125,
	// leaving a 2^-12 residual in a 2^-10 interval: P(alternative) = 0.25.
	x := device.FromFloat64s(dtype.Float16, []float64{1})
	a := device.FromFloat64s(dtype.Float16, []float64{1})
	b := device.FromFloat64s(dtype.Float16, []float64{3})

	out, err := fusedPipeline(ErrorWeighted{Src: &fixedSource{vals: []float64{0.3}}}, x, a, b, 1)
	if err != nil {
		t.Fatalf("fused add failed: %v", err)
	}
	if out.result.Get(0) != 1.3330078125 {
		t.Fatalf("expected fused result 1.3330078125, got %g", out.result.Get(0))
	}
	if out.residual.Get(0) != 0x1p-12 {
		t.Fatalf("expected residual 2^-12, got %g", out.residual.Get(0))
	}
	if out.alternative.Get(0) != 1.333984375 {
		t.Fatalf("expected alternative 1.333984375, got %g", out.alternative.Get(0))
	}
	if out.selected.Get(0) != 1.3330078125 {
		t.Errorf("draw 0.3: expected result kept, got %g", out.selected.Get(0))
	}

	got, err := FusedDivideAdd(x, a, b, 1, ErrorWeighted{Src: &fixedSource{vals: []float64{0.2}}})
	if err != nil {
		t.Fatalf("fused add failed: %v", err)
	}
	if got.Get(0) != 1.333984375 {
		t.Errorf("draw 0.2: expected alternative taken, got %g", got.Get(0))
	}
}

func TestFusedDivideAddValidation(t *testing.T) {
	f16 := device.FromFloat64s(dtype.Float16, []float64{1, 2})
	f32 := device.FromFloat64s(dtype.Float32, []float64{1, 2})
	short := device.FromFloat64s(dtype.Float16, []float64{1})

	if _, err := FusedDivideAdd(f16, f32, f16.Clone(), 1, Nearest{}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := FusedDivideAdd(f16, f16.Clone(), short, 1, Nearest{}); !errors.Is(err, device.ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
}

func TestAddHashedDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(55))
	x, y := randomOperands(dtype.Float16, 1000, rng)

	srcA, err := NewDecisionSource(dtype.Float16, 7)
	if err != nil {
		t.Fatalf("source failed: %v", err)
	}
	srcB, err := NewDecisionSource(dtype.Float16, 7)
	if err != nil {
		t.Fatalf("source failed: %v", err)
	}

	first, err := Add(x, y, Hashed{Src: srcA})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	second, err := Add(x, y, Hashed{Src: srcA})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	fresh, err := Add(x, y, Hashed{Src: srcB})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	nearest, err := Add(x, y, Nearest{})
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}

	moved := false
	for i := 0; i < first.Len(); i++ {
		if first.Get(i) != second.Get(i) || first.Get(i) != fresh.Get(i) {
			t.Fatalf("element %d: hashed selection not reproducible", i)
		}
		if first.Get(i) != nearest.Get(i) {
			moved = true
		}
	}
	if !moved {
		t.Error("expected the hashed policy to move at least one element off the nearest result")
	}
}
