package engine

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/23skdu/longbow-windage/internal/config"
	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/dtype"
	"github.com/23skdu/longbow-windage/internal/logger"
	"github.com/23skdu/longbow-windage/internal/metrics"
)

// Rounder binds a kind, a policy and a seed into one rounding engine. It is
// immutable after construction; changing any setting means building a new
// one. The stochastic policies draw from a private rand stream, so a Rounder
// must not be shared across goroutines.
type Rounder struct {
	cfg    config.Config
	kind   dtype.Kind
	policy Policy
	seed   int64
	log    *logger.Logger
}

// NewRounder validates cfg and assembles the policy it names. A zero seed is
// replaced with one from the clock so independent Rounders do not repeat each
// other; pass an explicit seed for replayable runs.
func NewRounder(cfg config.Config) (*Rounder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("rounder config: %w", err)
	}
	kind, _ := dtype.Parse(cfg.Kind)

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var policy Policy
	switch cfg.Policy {
	case config.PolicyNearest:
		policy = Nearest{}
	case config.PolicyUniform:
		policy = Uniform{Src: rand.New(rand.NewSource(seed))}
	case config.PolicyWeighted:
		policy = ErrorWeighted{Src: rand.New(rand.NewSource(seed))}
	case config.PolicyHashed:
		src, err := NewDecisionSource(kind, seed)
		if err != nil {
			return nil, err
		}
		policy = Hashed{Src: src}
	}

	if cfg.MinParallel > 0 {
		device.MinParallel = cfg.MinParallel
	}

	r := &Rounder{
		cfg:    cfg,
		kind:   kind,
		policy: policy,
		seed:   seed,
		log:    logger.Log.With("rounder"),
	}
	r.log.Debug("rounder constructed",
		"kind", kind.String(),
		"policy", policy.Name(),
		"seed", seed,
	)
	return r, nil
}

func (r *Rounder) Kind() dtype.Kind { return r.kind }

func (r *Rounder) PolicyName() string { return r.policy.Name() }

func (r *Rounder) Seed() int64 { return r.seed }

func (r *Rounder) Config() config.Config { return r.cfg }

// Add rounds x + y under the configured policy.
func (r *Rounder) Add(x, y *device.Array) (*device.Array, error) {
	out, err := addPipeline(r.policy, x, y)
	if err != nil {
		return nil, err
	}
	r.observe("add", out)
	return out.selected, nil
}

// AddMixedPrecision adds a strictly wider addend into x.
func (r *Rounder) AddMixedPrecision(x, yWide *device.Array) (*device.Array, error) {
	out, err := mixedPipeline(r.policy, x, yWide)
	if err != nil {
		return nil, err
	}
	r.observe("add_mixed_precision", out)
	return out.selected, nil
}

// FusedDivideAdd rounds x + (a/b)*scale under the configured policy.
func (r *Rounder) FusedDivideAdd(x, a, b *device.Array, scale float64) (*device.Array, error) {
	out, err := fusedPipeline(r.policy, x, a, b, scale)
	if err != nil {
		return nil, err
	}
	r.observe("fused_divide_add", out)
	return out.selected, nil
}

// Accumulate folds vals into a running scalar total in the Rounder's kind,
// rounding every intermediate sum. It reports the final total and publishes
// its deviation from the float64 running sum.
func (r *Rounder) Accumulate(vals []float64) (float64, error) {
	total, err := AccumulateSum(r.kind, vals, r.policy)
	if err != nil {
		return 0, err
	}
	exact := 0.0
	for _, v := range vals {
		exact += v
	}
	metrics.RecordAccumulationBias(r.policy.Name(), total-exact)
	if r.cfg.DebugDecisions {
		r.log.Debug("accumulation finished",
			"steps", len(vals),
			"total", total,
			"exact", exact,
			"bias", total-exact,
		)
	}
	return total, nil
}

// observe runs the configured debug hooks over one pipeline outcome.
func (r *Rounder) observe(op string, out *roundOutcome) {
	if r.cfg.DebugResiduals {
		n := out.result.Len()
		for i := 0; i < n; i++ {
			res := math.Abs(out.residual.Get(i))
			ulp := math.Abs(out.alternative.Get(i) - out.result.Get(i))
			ratio := 0.0
			if res > 0 && ulp > 0 && !math.IsInf(ulp, 0) {
				ratio = res / ulp
			}
			metrics.ObserveResidual(res, ratio)
		}
	}
	if r.cfg.DebugDecisions {
		kept := 0
		for _, m := range out.mask {
			if m {
				kept++
			}
		}
		r.log.Trace("rounding decisions",
			"operation", op,
			"policy", r.policy.Name(),
			"elements", len(out.mask),
			"result_kept", kept,
			"alternative_taken", len(out.mask)-kept,
		)
	}
	if r.cfg.DebugSaturation {
		nans, infs := device.CountNonFinite(out.selected)
		if nans > 0 || infs > 0 {
			r.log.Warn("non-finite outputs",
				"operation", op,
				"nan_count", nans,
				"inf_count", infs,
			)
		}
	}
}
