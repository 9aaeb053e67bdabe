package device

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/23skdu/longbow-windage/internal/dtype"
)

func TestAddRoundsToNearestEven(t *testing.T) {
	testCases := []struct {
		name string
		kind dtype.Kind
		x, y float64
		want float64
	}{
		{"f16 tie to even down", dtype.Float16, 2048, 1, 2048},
		{"f16 rounds up", dtype.Float16, 2048, 1.5, 2050},
		{"f16 exact", dtype.Float16, 0.5, 0.25, 0.75},
		{"f16 tie at one", dtype.Float16, 1, 0x1p-11, 1},
		{"bf16 tie to even down", dtype.BFloat16, 1, 0x1p-8, 1},
		{"bf16 absorbed", dtype.BFloat16, 256, 0.5, 256},
		{"f32 absorbed", dtype.Float32, 1, 0x1p-25, 1},
		{"f64 exact", dtype.Float64, 0.1, 0.2, 0.1 + 0.2},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			x := FromFloat64s(tc.kind, []float64{tc.x})
			y := FromFloat64s(tc.kind, []float64{tc.y})
			out, err := Add(x, y)
			if err != nil {
				t.Fatalf("add failed: %v", err)
			}
			if got := out.Get(0); got != tc.want {
				t.Errorf("expected %g, got %g", tc.want, got)
			}
		})
	}
}

func TestAddMatchesWideReference(t *testing.T) {
	// For bounded operands the float64 sum is exact, so narrowing it is the
	// round-to-nearest answer the kind arithmetic must reproduce.
	rng := rand.New(rand.NewSource(29))
	for _, kind := range []dtype.Kind{dtype.Float16, dtype.BFloat16, dtype.Float32} {
		t.Run(kind.String(), func(t *testing.T) {
			n := 2000
			xs := make([]float64, n)
			ys := make([]float64, n)
			for i := 0; i < n; i++ {
				xs[i] = 0.5 + rng.Float64()
				ys[i] = 0.5 + rng.Float64()
				if rng.Intn(2) == 0 {
					ys[i] = -ys[i]
				}
			}
			x := FromFloat64s(kind, xs)
			y := FromFloat64s(kind, ys)
			out, err := Add(x, y)
			if err != nil {
				t.Fatalf("add failed: %v", err)
			}
			for i := 0; i < n; i++ {
				want := Round(kind, x.Get(i)+y.Get(i))
				if out.Get(i) != want {
					t.Fatalf("element %d (%g + %g): expected %g, got %g",
						i, x.Get(i), y.Get(i), want, out.Get(i))
				}
			}
		})
	}
}

func TestSubExactCancellation(t *testing.T) {
	x := FromFloat64s(dtype.Float16, []float64{1, 1, 2050})
	y := FromFloat64s(dtype.Float16, []float64{1, 1 - 0x1p-11, 2048})
	out, err := Sub(x, y)
	if err != nil {
		t.Fatalf("sub failed: %v", err)
	}
	want := []float64{0, 0x1p-11, 2}
	for i, w := range want {
		if out.Get(i) != w {
			t.Errorf("element %d: expected %g, got %g", i, w, out.Get(i))
		}
	}
}

func TestDivSpecialsPropagate(t *testing.T) {
	x := FromFloat64s(dtype.Float16, []float64{1, -1, 0, 1})
	y := FromFloat64s(dtype.Float16, []float64{0, 0, 0, 3})
	out, err := Div(x, y)
	if err != nil {
		t.Fatalf("div failed: %v", err)
	}
	if !math.IsInf(out.Get(0), 1) {
		t.Errorf("1/0: expected +Inf, got %g", out.Get(0))
	}
	if !math.IsInf(out.Get(1), -1) {
		t.Errorf("-1/0: expected -Inf, got %g", out.Get(1))
	}
	if !math.IsNaN(out.Get(2)) {
		t.Errorf("0/0: expected NaN, got %g", out.Get(2))
	}
	if out.Get(3) != 0.333251953125 {
		t.Errorf("1/3: expected 0.333251953125, got %g", out.Get(3))
	}
}

func TestScaleQuantizesScalar(t *testing.T) {
	// The scalar lives in the array's precision: scaling by 0.1 in float16
	// really scales by float16(0.1).
	a := FromFloat64s(dtype.Float16, []float64{1})
	out := Scale(a, 0.1)
	if got := out.Get(0); got != 0.0999755859375 {
		t.Errorf("expected 0.0999755859375, got %g", got)
	}

	wide := FromFloat64s(dtype.Float64, []float64{3})
	if got := Scale(wide, 0.1).Get(0); got != 0.30000000000000004 {
		t.Errorf("expected float64 product, got %g", got)
	}
}

func TestFusedDivAddSingleRounding(t *testing.T) {
	x := FromFloat64s(dtype.Float16, []float64{1})
	a := FromFloat64s(dtype.Float16, []float64{1})
	b := FromFloat64s(dtype.Float16, []float64{3})
	out, err := FusedDivAdd(x, a, b, 1)
	if err != nil {
		t.Fatalf("fused failed: %v", err)
	}
	if got := out.Get(0); got != 1.3330078125 {
		t.Errorf("expected 1.3330078125, got %g", got)
	}
}

func TestFusedDivAddNearWideReference(t *testing.T) {
	// The fused path rounds once, so it must stay within one spacing of the
	// float64 computation for operands away from the range edges.
	rng := rand.New(rand.NewSource(31))
	for _, kind := range allKinds {
		t.Run(kind.String(), func(t *testing.T) {
			n := 500
			xs := make([]float64, n)
			as := make([]float64, n)
			bs := make([]float64, n)
			for i := 0; i < n; i++ {
				xs[i] = 0.5 + rng.Float64()
				as[i] = 0.5 + rng.Float64()
				bs[i] = 0.5 + rng.Float64()
			}
			x := FromFloat64s(kind, xs)
			a := FromFloat64s(kind, as)
			b := FromFloat64s(kind, bs)
			out, err := FusedDivAdd(x, a, b, 0.5)
			if err != nil {
				t.Fatalf("fused failed: %v", err)
			}
			for i := 0; i < n; i++ {
				wide := x.Get(i) + a.Get(i)/b.Get(i)*Round(kind, 0.5)
				tol := math.Abs(Step(kind, wide, 1) - Round(kind, wide))
				if math.Abs(out.Get(i)-wide) > tol {
					t.Fatalf("element %d: fused %g too far from reference %g",
						i, out.Get(i), wide)
				}
			}
		})
	}
}

func TestSelectPicksByMask(t *testing.T) {
	onTrue := FromFloat64s(dtype.Float16, []float64{1, 2, 3})
	onFalse := FromFloat64s(dtype.Float16, []float64{-1, -2, -3})
	out, err := Select([]bool{true, false, true}, onTrue, onFalse)
	if err != nil {
		t.Fatalf("select failed: %v", err)
	}
	want := []float64{1, -2, 3}
	for i, w := range want {
		if out.Get(i) != w {
			t.Errorf("element %d: expected %g, got %g", i, w, out.Get(i))
		}
	}
}

func TestSelectValidation(t *testing.T) {
	f16 := FromFloat64s(dtype.Float16, []float64{1, 2})
	f32 := FromFloat64s(dtype.Float32, []float64{1, 2})

	if _, err := Select([]bool{true}, f16, f16.Clone()); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch for short mask, got %v", err)
	}
	if _, err := Select([]bool{true, false}, f16, f32); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch, got %v", err)
	}
}

func TestPairValidation(t *testing.T) {
	f16 := FromFloat64s(dtype.Float16, []float64{1, 2})
	f32 := FromFloat64s(dtype.Float32, []float64{1, 2})
	short := FromFloat64s(dtype.Float16, []float64{1})

	if _, err := Add(f16, f32); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch, got %v", err)
	}
	if _, err := Sub(f16, short); !errors.Is(err, ErrShapeMismatch) {
		t.Errorf("expected ErrShapeMismatch, got %v", err)
	}
	if _, err := Div(f16, f32); !errors.Is(err, ErrKindMismatch) {
		t.Errorf("expected ErrKindMismatch, got %v", err)
	}
}

func TestParallelMatchesSerial(t *testing.T) {
	prev := MinParallel
	defer func() { MinParallel = prev }()

	rng := rand.New(rand.NewSource(37))
	n := 20000
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		xs[i] = 0.5 + rng.Float64()
		ys[i] = 0.5 + rng.Float64()
	}
	x := FromFloat64s(dtype.Float32, xs)
	y := FromFloat64s(dtype.Float32, ys)

	MinParallel = 64
	parallel, err := Add(x, y)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	MinParallel = n + 1
	serial, err := Add(x, y)
	if err != nil {
		t.Fatalf("add failed: %v", err)
	}
	for i := 0; i < n; i++ {
		if parallel.Get(i) != serial.Get(i) {
			t.Fatalf("element %d: parallel %g vs serial %g", i, parallel.Get(i), serial.Get(i))
		}
	}
}

func TestCountNonFinite(t *testing.T) {
	a := FromFloat64s(dtype.Float32, []float64{1, math.NaN(), math.Inf(1), math.Inf(-1), 2})
	nans, infs := CountNonFinite(a)
	if nans != 1 {
		t.Errorf("expected 1 NaN, got %d", nans)
	}
	if infs != 2 {
		t.Errorf("expected 2 Infs, got %d", infs)
	}
}
