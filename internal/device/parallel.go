package device

import (
	"runtime"
	"sync"
)

// MinParallel is the element count below which elementwise loops stay on the
// calling goroutine. Set once at startup; rounding decisions are independent
// per element, so the chunk boundaries never affect results.
var MinParallel = 4096

func parallelFor(n int, fn func(start, end int)) {
	if n < MinParallel {
		fn(0, n)
		return
	}
	workers := runtime.NumCPU()
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for i := 0; i < n; i += chunk {
		end := i + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(i, end)
	}
	wg.Wait()
}
