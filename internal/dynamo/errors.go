package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for abstraction and synthesis.
var (
	// ErrInvalidBounds indicates malformed grid parameters.
	ErrInvalidBounds = errors.New("dynamo: invalid bounds")

	// ErrIntegration indicates a bound computation did not converge.
	ErrIntegration = errors.New("dynamo: integration did not converge")

	// ErrInconsistentInterval indicates an interval row no probability vector can realize.
	ErrInconsistentInterval = errors.New("dynamo: inconsistent interval row")

	// ErrMaxIterations indicates value iteration stopped before converging.
	ErrMaxIterations = errors.New("dynamo: maximum iterations exceeded")

	// ErrDimensionMismatch indicates mismatched state/input/noise dimensions.
	ErrDimensionMismatch = errors.New("dynamo: dimension mismatch")

	// ErrInvalidState indicates a dynamics result containing NaN or Inf.
	ErrInvalidState = errors.New("dynamo: invalid state (NaN or Inf detected)")
)

type InvalidBoundsError struct {
	Space  string
	Dim    int
	Lower  float64
	Upper  float64
	Step   float64
	Reason string
}

func (e *InvalidBoundsError) Error() string {
	return fmt.Sprintf("%s space, dimension %d [%g, %g] step %g: %s",
		e.Space, e.Dim, e.Lower, e.Upper, e.Step, e.Reason)
}

func (e *InvalidBoundsError) Unwrap() error {
	return ErrInvalidBounds
}

// IntegrationError identifies the (state, input, mode) unit whose Monte
// Carlo estimate did not reach the requested tolerance.
type IntegrationError struct {
	State      int
	Input      int
	Mode       int
	Iterations int
	StdErr     float64
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("state %d input %d mode %d: no convergence after %d iterations (stderr %.3g)",
		e.State, e.Input, e.Mode, e.Iterations, e.StdErr)
}

func (e *IntegrationError) Unwrap() error {
	return ErrIntegration
}

// Destination identifiers used in place of a cell index.
const (
	DestTarget = -1
	DestAvoid  = -2
	// DestRow marks an error about the row sums rather than one entry.
	DestRow = -3
)

// InconsistentIntervalError reports a row violating 0 <= lower <= upper <= 1
// or whose bounds cannot sum to one. Mode is -1 for a mixed row.
type InconsistentIntervalError struct {
	State    int
	Input    int
	Mode     int
	Dest     int
	LowerSum float64
	UpperSum float64
}

func (e *InconsistentIntervalError) Error() string {
	switch {
	case e.Dest == DestTarget:
		return fmt.Sprintf("state %d input %d mode %d: malformed target interval", e.State, e.Input, e.Mode)
	case e.Dest == DestAvoid:
		return fmt.Sprintf("state %d input %d mode %d: malformed avoid interval", e.State, e.Input, e.Mode)
	case e.Dest >= 0:
		return fmt.Sprintf("state %d input %d mode %d: malformed interval at destination %d",
			e.State, e.Input, e.Mode, e.Dest)
	}
	return fmt.Sprintf("state %d input %d mode %d: lower sum %.6g, upper sum %.6g",
		e.State, e.Input, e.Mode, e.LowerSum, e.UpperSum)
}

func (e *InconsistentIntervalError) Unwrap() error {
	return ErrInconsistentInterval
}

type MaxIterationsExceededError struct {
	Iterations int
	Residual   float64
}

func (e *MaxIterationsExceededError) Error() string {
	return fmt.Sprintf("value iteration stopped after %d iterations (residual %.3g)", e.Iterations, e.Residual)
}

func (e *MaxIterationsExceededError) Unwrap() error {
	return ErrMaxIterations
}
