package synthesis

import "fmt"

// NoInput marks target and avoid states in a policy.
const NoInput = -1

type Status int

const (
	Initialized Status = iota
	Iterating
	Converged
	HorizonReached
	MaxIterationsExceeded
	Canceled
)

func (s Status) String() string {
	switch s {
	case Initialized:
		return "initialized"
	case Iterating:
		return "iterating"
	case Converged:
		return "converged"
	case HorizonReached:
		return "horizon-reached"
	case MaxIterationsExceeded:
		return "max-iterations-exceeded"
	case Canceled:
		return "canceled"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of a synthesis run. Slices over time are indexed
// by time step t, so index 0 is the decision at the start. An
// infinite-horizon result has Horizon 0 and a single stationary entry.
type Result struct {
	Resolution Resolution
	Status     Status
	Horizon    int
	Iterations int
	// Residual is the largest value change of the last step.
	Residual float64

	// Values[t][s] is the value of state s at time t under Resolution.
	Values [][]float64
	// Policy[t][s] is the input index chosen in state s at time t.
	Policy [][]int
	// Lower and Upper bound the probability of satisfying the reach-avoid
	// property under the synthesized policy. They are unset on canceled
	// runs.
	Lower [][]float64
	Upper [][]float64

	Warning error
}

// Stationary reports whether a single policy applies at every step.
func (r *Result) Stationary() bool { return r.Horizon == 0 && len(r.Policy) == 1 }

// Value returns the certified value of s at the start.
func (r *Result) Value(s int) float64 { return r.Values[0][s] }

// Action returns the input for state s at time t. Stationary results ignore
// t. A result without any completed step returns NoInput.
func (r *Result) Action(s, t int) int {
	if len(r.Policy) == 0 {
		return NoInput
	}
	if r.Stationary() || t >= len(r.Policy) {
		t = 0
	}
	return r.Policy[t][s]
}

type ControllerEntry struct {
	State int     `json:"state"`
	Step  int     `json:"step"`
	Input int     `json:"input"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Controller flattens the policy with its bounds, one entry per state and
// time step, ordered by step then state.
func (r *Result) Controller() []ControllerEntry {
	var out []ControllerEntry
	for t, policy := range r.Policy {
		for s, a := range policy {
			e := ControllerEntry{State: s, Step: t, Input: a, Value: r.Values[t][s]}
			if r.Lower != nil {
				e.Lower, e.Upper = r.Lower[t][s], r.Upper[t][s]
			} else {
				e.Lower, e.Upper = e.Value, e.Value
			}
			out = append(out, e)
		}
	}
	return out
}
