package config

import (
	"fmt"
	"strings"

	"github.com/23skdu/longbow-windage/internal/dtype"
)

// PolicyMode selects how the final rounding of each element is decided.
type PolicyMode int

const (
	// PolicyNearest keeps the round-to-nearest result unconditionally. It is
	// the baseline the stochastic policies are audited against.
	PolicyNearest PolicyMode = iota
	// PolicyUniform flips an unweighted coin from the random source.
	PolicyUniform
	// PolicyWeighted takes the misrounded candidate with probability
	// |residual| / ulp, which removes accumulation bias in expectation.
	PolicyWeighted
	// PolicyHashed drives the weighted comparison with the deterministic
	// multiply-shift hash of the operand bit patterns.
	PolicyHashed
)

func (m PolicyMode) String() string {
	switch m {
	case PolicyNearest:
		return "nearest"
	case PolicyUniform:
		return "uniform"
	case PolicyWeighted:
		return "weighted"
	case PolicyHashed:
		return "hashed"
	default:
		return fmt.Sprintf("PolicyMode(%d)", int(m))
	}
}

func (m PolicyMode) Valid() bool {
	return m >= PolicyNearest && m <= PolicyHashed
}

// ParsePolicy maps a flag or config name to a PolicyMode.
func ParsePolicy(name string) (PolicyMode, error) {
	switch strings.ToLower(name) {
	case "nearest", "rtn":
		return PolicyNearest, nil
	case "uniform":
		return PolicyUniform, nil
	case "weighted":
		return PolicyWeighted, nil
	case "hashed", "hash":
		return PolicyHashed, nil
	}
	return 0, fmt.Errorf("unknown rounding policy %q", name)
}

// Config carries the immutable settings a Rounder is constructed from.
// Changing any field means building a new Rounder.
type Config struct {
	// Kind names the floating-point encoding the engine operates on.
	Kind string
	// Policy selects the rounding decision policy.
	Policy PolicyMode
	// Seed seeds the random source or the hash decision source. Zero asks
	// the engine to pick one from the clock.
	Seed int64
	// MinParallel is the element count above which elementwise kernels
	// split across goroutines.
	MinParallel int

	// DebugResiduals feeds every residual into the magnitude histograms.
	DebugResiduals bool
	// DebugDecisions trace-logs per-operation decision counts.
	DebugDecisions bool
	// DebugSaturation scans outputs for NaN/Inf and warns when found.
	DebugSaturation bool
}

func (c *Config) Validate() error {
	if _, err := dtype.Parse(c.Kind); err != nil {
		return fmt.Errorf("invalid kind: %w", err)
	}
	if !c.Policy.Valid() {
		return fmt.Errorf("invalid policy: %d (must be nearest, uniform, weighted or hashed)", int(c.Policy))
	}
	if c.MinParallel < 0 {
		return fmt.Errorf("invalid min_parallel: %d (must be non-negative)", c.MinParallel)
	}
	return nil
}

func Default() Config {
	return Config{
		Kind:        "float16",
		Policy:      PolicyWeighted,
		MinParallel: 4096,
	}
}
