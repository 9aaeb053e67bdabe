package simd

var (
	addF32Impl    func(dst, a, b []float32)
	addF64Impl    func(dst, a, b []float64)
	subF32Impl    func(dst, a, b []float32)
	subF64Impl    func(dst, a, b []float64)
	twoSumF32Impl func(x, y, result, residual []float32)
	twoSumF64Impl func(x, y, result, residual []float64)
)

func init() {
	addF32Impl = addF32Fallback
	addF64Impl = addF64Fallback
	subF32Impl = subF32Fallback
	subF64Impl = subF64Fallback
	twoSumF32Impl = twoSumF32Fallback
	twoSumF64Impl = twoSumF64Fallback
}

func AddF32(dst, a, b []float32) { addF32Impl(dst, a, b) }

func AddF64(dst, a, b []float64) { addF64Impl(dst, a, b) }

func SubF32(dst, a, b []float32) { subF32Impl(dst, a, b) }

func SubF64(dst, a, b []float64) { subF64Impl(dst, a, b) }

// TwoSumF32 writes the exact residual of result = x + y per element. The
// subtraction sequence is load-bearing; reordering it breaks exactness.
func TwoSumF32(x, y, result, residual []float32) { twoSumF32Impl(x, y, result, residual) }

// TwoSumF64 is the float64 counterpart of TwoSumF32.
func TwoSumF64(x, y, result, residual []float64) { twoSumF64Impl(x, y, result, residual) }

func addF32Fallback(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

func addF64Fallback(dst, a, b []float64) {
	for i := range dst {
		dst[i] = a[i] + b[i]
	}
}

func subF32Fallback(dst, a, b []float32) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

func subF64Fallback(dst, a, b []float64) {
	for i := range dst {
		dst[i] = a[i] - b[i]
	}
}

func twoSumF32Fallback(x, y, result, residual []float32) {
	for i := range residual {
		y2 := result[i] - x[i]
		x2 := result[i] - y2
		ey := y[i] - y2
		ex := x[i] - x2
		residual[i] = ex + ey
	}
}

func twoSumF64Fallback(x, y, result, residual []float64) {
	for i := range residual {
		y2 := result[i] - x[i]
		x2 := result[i] - y2
		ey := y[i] - y2
		ex := x[i] - x2
		residual[i] = ex + ey
	}
}
