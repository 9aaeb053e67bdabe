package main

import (
	"flag"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/dtype"
	"github.com/23skdu/longbow-windage/internal/engine"
)

var (
	kindName = flag.String("kind", "float16", "Float kind: float16, bfloat16, float32, float64")
	xList    = flag.String("x", "2048,1,0.1", "Comma-separated left operands")
	yList    = flag.String("y", "1.5,1,0.2", "Comma-separated right operands")
)

func parseFloats(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	vals := make([]float64, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("parsing %q: %w", p, err)
		}
		vals = append(vals, v)
	}
	return vals, nil
}

func main() {
	flag.Parse()

	kind, err := dtype.Parse(*kindName)
	if err != nil {
		log.Fatalf("Invalid kind: %v", err)
	}

	xVals, err := parseFloats(*xList)
	if err != nil {
		log.Fatalf("Invalid -x: %v", err)
	}
	yVals, err := parseFloats(*yList)
	if err != nil {
		log.Fatalf("Invalid -y: %v", err)
	}
	if len(xVals) != len(yVals) {
		log.Fatalf("Need the same number of operands: %d x vs %d y", len(xVals), len(yVals))
	}

	// FromFloat64s quantizes, so the printed operands are what the kind
	// actually stores, not what was typed.
	xs := device.FromFloat64s(kind, xVals)
	ys := device.FromFloat64s(kind, yVals)

	result, err := device.Add(xs, ys)
	if err != nil {
		log.Fatalf("Addition failed: %v", err)
	}
	residual, err := engine.ComputeResidual(xs, ys, result)
	if err != nil {
		log.Fatalf("Residual computation failed: %v", err)
	}
	alternative, err := engine.MisroundedCandidate(result, residual)
	if err != nil {
		log.Fatalf("Candidate construction failed: %v", err)
	}

	hexDigits := kind.Bits() / 4
	exact := 0

	fmt.Printf("=== Residual Dump (%s) ===\n", kind)
	for i := 0; i < xs.Len(); i++ {
		res := residual.Get(i)
		fmt.Printf("%14g + %-14g = %-14g [0x%0*X]  residual %-14g  alternative %-14g [0x%0*X]\n",
			xs.Get(i), ys.Get(i),
			result.Get(i), hexDigits, device.BitsOf(kind, result.Get(i)),
			res,
			alternative.Get(i), hexDigits, device.BitsOf(kind, alternative.Get(i)))
		if res == 0 {
			exact++
		}
	}
	fmt.Printf("\n%d of %d additions were exact\n", exact, xs.Len())
}
