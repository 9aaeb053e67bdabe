//go:build amd64 && !noasm

package simd

func init() {
	twoSumF32Impl = twoSumF32AVX2
	twoSumF64Impl = twoSumF64AVX2
}

func twoSumF32AVX2(x, y, result, residual []float32) {
	// TODO: Implement AVX2 version
	twoSumF32Fallback(x, y, result, residual)
}

func twoSumF64AVX2(x, y, result, residual []float64) {
	// TODO: Implement AVX2 version
	twoSumF64Fallback(x, y, result, residual)
}
