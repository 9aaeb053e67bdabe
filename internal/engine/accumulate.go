package engine

import (
	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/dtype"
	"github.com/23skdu/longbow-windage/internal/metrics"
)

// AccumulateSum folds vals into a single running total held in kind,
// quantizing each addend and rounding every intermediate sum under p. This is
// the workload stochastic rounding exists for: in a narrow kind a plain
// round-to-nearest accumulation stalls once the total outgrows the addend,
// while the weighted policies keep the expected total on the true sum.
func AccumulateSum(kind dtype.Kind, vals []float64, p Policy) (float64, error) {
	total := device.New(kind, 1)
	addend := device.New(kind, 1)
	for _, v := range vals {
		addend.Set(0, v)
		out, err := addPipeline(p, total, addend)
		if err != nil {
			return 0, err
		}
		total = out.selected
	}
	metrics.RecordAccumulation(p.Name(), len(vals))
	return total.Get(0), nil
}

// AccumulateTrials runs independent accumulations of the same constant
// addend, one per array lane, and returns each lane's final total. steps
// additions of value are performed in every lane.
//
// The rand-backed policies give every lane its own draw each step, so lanes
// diverge and their spread estimates the policy's variance. Under the hashed
// policy identical lanes hash identically and stay in lockstep; callers
// probing hashed accumulation must vary the addends instead (see
// AccumulateSum).
func AccumulateTrials(kind dtype.Kind, value float64, steps, trials int, p Policy) ([]float64, error) {
	total := device.New(kind, trials)
	addend := device.Full(kind, value, trials)
	for i := 0; i < steps; i++ {
		out, err := addPipeline(p, total, addend)
		if err != nil {
			return nil, err
		}
		total = out.selected
	}
	metrics.RecordAccumulation(p.Name(), steps*trials)
	return total.Float64s(), nil
}
