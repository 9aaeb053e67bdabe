package dtype

import (
	"fmt"
	"math"
	"strings"
)

// Kind identifies a supported IEEE-754 binary floating-point encoding.
// The set is closed: every operation in this module dispatches on these
// four values and nothing else.
type Kind int

const (
	Float16 Kind = iota
	BFloat16
	Float32
	Float64
)

func (k Kind) String() string {
	switch k {
	case Float16:
		return "float16"
	case BFloat16:
		return "bfloat16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Parse maps a config or flag name to a Kind.
func Parse(name string) (Kind, error) {
	switch strings.ToLower(name) {
	case "float16", "f16", "half":
		return Float16, nil
	case "bfloat16", "bf16":
		return BFloat16, nil
	case "float32", "f32":
		return Float32, nil
	case "float64", "f64":
		return Float64, nil
	}
	return 0, fmt.Errorf("unknown float kind %q", name)
}

func (k Kind) Valid() bool {
	return k >= Float16 && k <= Float64
}

// Bits returns the storage width, which is also the width of the signed
// integer the encoding reinterprets to.
func (k Kind) Bits() int {
	switch k {
	case Float16, BFloat16:
		return 16
	case Float32:
		return 32
	case Float64:
		return 64
	}
	return 0
}

// Size returns the storage width in bytes.
func (k Kind) Size() int {
	return k.Bits() / 8
}

// Mantissa returns the significand precision in bits, counting the
// implicit leading bit.
func (k Kind) Mantissa() int {
	switch k {
	case Float16:
		return 11
	case BFloat16:
		return 8
	case Float32:
		return 24
	case Float64:
		return 53
	}
	return 0
}

// MaxFinite returns the largest finite value of the kind. Stepping past it
// lands on +Inf.
func (k Kind) MaxFinite() float64 {
	switch k {
	case Float16:
		return 65504
	case BFloat16:
		return 0x1.FEp127
	case Float32:
		return math.MaxFloat32
	case Float64:
		return math.MaxFloat64
	}
	return 0
}

// MinFinite returns the most negative finite value of the kind.
func (k Kind) MinFinite() float64 {
	return -k.MaxFinite()
}

// Epsilon returns the gap between 1 and the next representable value.
func (k Kind) Epsilon() float64 {
	switch k {
	case Float16:
		return 0x1p-10
	case BFloat16:
		return 0x1p-7
	case Float32:
		return 0x1p-23
	case Float64:
		return 0x1p-52
	}
	return 0
}

// Wider returns the next kind on the widening chain, the one mixed-precision
// promotion and the reference residual oracle compute in. Every chain ends at
// Float64, where ok is false.
func (k Kind) Wider() (Kind, bool) {
	switch k {
	case Float16, BFloat16:
		return Float32, true
	case Float32:
		return Float64, true
	}
	return k, false
}

// StrictlyWider reports whether k sits strictly above other on the widening
// chain. Float16 and BFloat16 are unordered relative to each other: neither
// can represent all values of the other.
func (k Kind) StrictlyWider(other Kind) bool {
	for {
		w, ok := other.Wider()
		if !ok {
			return false
		}
		if w == k {
			return true
		}
		other = w
	}
}
