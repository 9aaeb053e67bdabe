package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/23skdu/longbow-windage/internal/arrowio"
	"github.com/23skdu/longbow-windage/internal/config"
	"github.com/23skdu/longbow-windage/internal/engine"
	"github.com/23skdu/longbow-windage/internal/logger"
	"github.com/23skdu/longbow-windage/internal/monitoring"
)

var (
	kindName   = flag.String("kind", "float16", "Float kind: float16, bfloat16, float32, float64")
	policyName = flag.String("policy", "weighted", "Rounding policy: nearest, uniform, weighted, hashed")
	seed       = flag.Int64("seed", 0, "Seed for the rounding policy (0 picks one from the clock)")
	value      = flag.Float64("value", 0.0001, "Addend accumulated at every step")
	steps      = flag.Int("steps", 100000, "Accumulation steps per trial")
	trials     = flag.Int("trials", 100, "Number of trials to run")
	listenAddr = flag.String("listen", ":9090", "Address for the health and metrics endpoints")
	outPath    = flag.String("out", "", "Write per-trial results to this Arrow IPC file")
	hold       = flag.Bool("hold", false, "Keep serving status after the trials finish, until interrupted")
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

	fmt.Printf("=== Bias Audit ===\n")
	fmt.Printf("Kind: %s  Policy: %s  Seed: %d\n", rounder.Kind(), rounder.PolicyName(), rounder.Seed())
	fmt.Printf("%d trials of %d x %g\n", *trials, *steps, *value)

	hm := monitoring.NewHealthMonitor()
	hm.SetRounderInfo(rounder.Kind().String(), rounder.PolicyName(), rounder.Seed())
	go func() {
		if err := hm.Start(*listenAddr); err != nil {
			logger.Log.Warn("health monitor stopped", "error", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	vals := make([]float64, *steps)
	for i := range vals {
		vals[i] = *value
	}
	trueSum := *value * float64(*steps)

	results := make([]arrowio.Trial, 0, *trials)
	stopChan := make(chan struct{})
	doneChan := make(chan struct{})

	go func() {
		defer close(doneChan)
		for i := 0; i < *trials; i++ {
			select {
			case <-stopChan:
				return
			default:
			}
			start := time.Now()
			total, err := rounder.Accumulate(vals)
			if err != nil {
				logger.Log.Error("trial failed", "trial", i, "error", err)
				return
			}
			elapsed := time.Since(start)
			bias := total - trueSum

			hm.RecordTrial(*steps, bias, elapsed)
			results = append(results, arrowio.Trial{
				Index:    int64(i),
				Total:    total,
				Bias:     bias,
				Duration: elapsed,
			})

			if (i+1)%10 == 0 {
				logger.Log.Info("progress", "trial", i+1, "total", total, "bias", bias)
			}
		}
	}()

	select {
	case <-doneChan:
	case <-sigChan:
		log.Println("Interrupt received, stopping after current trial...")
		close(stopChan)
		<-doneChan
	}

	if len(results) == 0 {
		log.Fatalf("No trials completed")
	}

	var biasSum float64
	for _, tr := range results {
		biasSum += tr.Bias
	}
	meanBias := biasSum / float64(len(results))

	fmt.Printf("\n=== Complete ===\n")
	fmt.Printf("Trials:    %d\n", len(results))
	fmt.Printf("True sum:  %.9g\n", trueSum)
	fmt.Printf("Mean bias: %+.6g\n", meanBias)

	if *outPath != "" {
		info := arrowio.RunInfo{
			Kind:   rounder.Kind().String(),
			Policy: rounder.PolicyName(),
			Seed:   rounder.Seed(),
		}
		if err := arrowio.WriteTrialsFile(*outPath, info, results); err != nil {
			log.Fatalf("Failed to write %s: %v", *outPath, err)
		}
		logger.Log.Info("trials exported", "path", *outPath, "trials", len(results))
	}

	if *hold {
		logger.Log.Info("holding for status queries", "addr", *listenAddr)
		<-sigChan
	}
}
