package compute

import (
	"fmt"
	"runtime"
	"sync"
)

// minimum chunk length before work is spread over goroutines
const defaultMinChunk = 4

type CPUBackend struct {
	workers  int
	minChunk int
}

func NewCPUBackend(workers int) *CPUBackend {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &CPUBackend{
		workers:  workers,
		minChunk: defaultMinChunk,
	}
}

func (c *CPUBackend) Name() string { return fmt.Sprintf("cpu/%d", c.workers) }
func (c *CPUBackend) Workers() int { return c.workers }

func (c *CPUBackend) Range(n int, fn func(worker, start, end int)) {
	if n <= 0 {
		return
	}
	if n <= c.minChunk || c.workers <= 1 {
		fn(0, 0, n)
		return
	}

	workers := c.workers
	if n/c.minChunk < workers {
		workers = n / c.minChunk
	}
	if workers < 1 {
		workers = 1
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > n {
			end = n
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(worker, s, e int) {
			defer wg.Done()
			fn(worker, s, e)
		}(w, start, end)
	}

	wg.Wait()
}
