package main

import (
	"flag"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/23skdu/longbow-windage/internal/config"
	"github.com/23skdu/longbow-windage/internal/engine"
	"github.com/23skdu/longbow-windage/internal/logger"
)

var (
	kindName   = flag.String("kind", "float16", "Float kind: float16, bfloat16, float32, float64")
	policyName = flag.String("policy", "weighted", "Rounding policy: nearest, uniform, weighted, hashed")
	seed       = flag.Int64("seed", 0, "Seed for the rounding policy (0 picks one from the clock)")
	value      = flag.Float64("value", 0.0001, "Addend accumulated at every step")
	steps      = flag.Int("steps", 10000, "Accumulation steps per trial")
	trials     = flag.Int("trials", 32, "Independent trials to average")
	logLevel   = flag.String("log-level", "info", "Log level: trace, debug, info, warn, error")
	logFormat  = flag.String("log-format", "console", "Log format: console or json")
)

func main() {
	flag.Parse()
	logger.Setup(*logLevel, *logFormat)

	policy, err := config.ParsePolicy(*policyName)
	if err != nil {
		log.Fatalf("Invalid policy: %v", err)
	}

	cfg := config.Default()
	cfg.Kind = *kindName
	cfg.Policy = policy
	cfg.Seed = *seed

	rounder, err := engine.NewRounder(cfg)
	if err != nil {
		log.Fatalf("Failed to construct rounder: %v", err)
	}

	fmt.Printf("=== Longbow-Windage ===\n")
	fmt.Printf("Kind: %s  Policy: %s  Seed: %d\n", rounder.Kind(), rounder.PolicyName(), rounder.Seed())
	fmt.Printf("Accumulating %g for %d steps, %d trials\n\n", *value, *steps, *trials)

	vals := make([]float64, *steps)
	for i := range vals {
		vals[i] = *value
	}
	trueSum := *value * float64(*steps)

	// Round-to-nearest baseline for the same stream. With a small addend and
	// a narrow kind this stalls as soon as the addend drops below half an ulp
	// of the running total.
	nearest, err := engine.AccumulateSum(rounder.Kind(), vals, engine.Nearest{})
	if err != nil {
		log.Fatalf("Baseline accumulation failed: %v", err)
	}

	logger.Log.Info("starting trials", "policy", rounder.PolicyName(), "steps", *steps, "trials", *trials)
	start := time.Now()

	totals := make([]float64, 0, *trials)
	for i := 0; i < *trials; i++ {
		total, err := rounder.Accumulate(vals)
		if err != nil {
			log.Fatalf("Trial %d failed: %v", i, err)
		}
		totals = append(totals, total)
	}
	elapsed := time.Since(start)

	var sum float64
	low, high := math.Inf(1), math.Inf(-1)
	for _, total := range totals {
		sum += total
		low = math.Min(low, total)
		high = math.Max(high, total)
	}
	mean := sum / float64(len(totals))

	fmt.Printf("True sum:          %.9g\n", trueSum)
	fmt.Printf("Round-to-nearest:  %.9g  (bias %+.4g)\n", nearest, nearest-trueSum)
	fmt.Printf("Policy mean:       %.9g  (bias %+.4g)\n", mean, mean-trueSum)
	fmt.Printf("Trial spread:      [%.9g, %.9g]\n", low, high)

	stepsPerSec := float64(*steps) * float64(*trials) / elapsed.Seconds()
	logger.Log.Info("trials complete", "duration", elapsed, "steps_per_sec", stepsPerSec)
}
