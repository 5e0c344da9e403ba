// Package compute provides the worker pool that spreads independent units
// of work over the available CPUs.
//
// Work is statically partitioned: [Backend.Range] splits [0, n) into one
// contiguous chunk per worker and blocks until every chunk returns, so a
// caller that writes only to the indices of its chunk needs no locking and
// every call acts as a barrier.
//
//	backend := compute.NewCPUBackend(0) // runtime.NumCPU() workers
//	backend.Range(len(rows), func(worker, start, end int) {
//	    for i := start; i < end; i++ {
//	        rows[i] = computeRow(i)
//	    }
//	})
package compute
