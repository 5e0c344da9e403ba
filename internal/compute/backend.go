package compute

type Backend interface {
	Name() string
	Workers() int
	// Range calls fn on disjoint chunks covering [0, n) and returns once
	// all of them have finished. worker is in [0, Workers()).
	Range(n int, fn func(worker, start, end int))
}

// Serial runs every chunk on the calling goroutine.
type Serial struct{}

func (Serial) Name() string { return "serial" }
func (Serial) Workers() int { return 1 }

func (Serial) Range(n int, fn func(worker, start, end int)) {
	if n > 0 {
		fn(0, 0, n)
	}
}

// New returns the serial backend for workers == 1 and a CPU backend
// otherwise; workers <= 0 selects one worker per CPU.
func New(workers int) Backend {
	if workers == 1 {
		return Serial{}
	}
	return NewCPUBackend(workers)
}
