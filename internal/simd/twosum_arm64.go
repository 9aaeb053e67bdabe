//go:build arm64 && !noasm

package simd

func init() {
	twoSumF32Impl = twoSumF32NEON
	twoSumF64Impl = twoSumF64NEON
}

func twoSumF32NEON(x, y, result, residual []float32) {
	// TODO: Implement NEON version
	twoSumF32Fallback(x, y, result, residual)
}

func twoSumF64NEON(x, y, result, residual []float64) {
	// TODO: Implement NEON version
	twoSumF64Fallback(x, y, result, residual)
}
