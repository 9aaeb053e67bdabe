package main

import (
	"flag"
	"fmt"

	"github.com/23skdu/longbow-windage/internal/device"
	"github.com/23skdu/longbow-windage/internal/dtype"
)

var sample = flag.Float64("sample", 0.1, "Value to show quantized in every kind")

func main() {
	flag.Parse()

	kinds := []dtype.Kind{dtype.Float16, dtype.BFloat16, dtype.Float32, dtype.Float64}

	fmt.Printf("=== Kind Info ===\n")
	fmt.Printf("%-9s %5s %9s %13s %14s %14s %8s\n",
		"kind", "bits", "mantissa", "epsilon", "max finite", "min positive", "wider")
	for _, k := range kinds {
		wider := "-"
		if w, ok := k.Wider(); ok {
			wider = w.String()
		}
		fmt.Printf("%-9s %5d %9d %13.6g %14.7g %14.6g %8s\n",
			k, k.Bits(), k.Mantissa(), k.Epsilon(), k.MaxFinite(),
			device.Step(k, 0, 1), wider)
	}

	fmt.Printf("\n%g quantized:\n", *sample)
	for _, k := range kinds {
		q := device.Round(k, *sample)
		fmt.Printf("  %-9s %-22.17g 0x%0*X  (error %+.6g)\n",
			k, q, k.Bits()/4, device.BitsOf(k, q), q-*sample)
	}
}
