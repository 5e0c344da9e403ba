// Package dynamo provides the core primitives shared by the abstraction and
// synthesis packages.
//
// The package defines the capabilities a user supplies to the engine and
// the error taxonomy the engine reports:
//
//   - [State], [Input]: points of the continuous state and input spaces
//   - [Dynamics]: one-step map x' = f(x, u) producing the noise-free mean
//   - [Density]: probability density of the successor around a mean
//   - [Predicate]: membership test used to label target and avoid regions
//
// Each capability has a function adapter ([DynamicsFunc], [DensityFunc],
// [PredicateFunc]) so plain functions can be passed where an interface is
// expected.
//
// # Example
//
//	dyn := dynamo.DynamicsFunc(func(x dynamo.State, u dynamo.Input) dynamo.State {
//	    return dynamo.State{0.9*x[0] + u[0]}
//	})
//	target := dynamo.PredicateFunc(func(x dynamo.State) bool { return x[0] > 1 })
//
// # Thread Safety
//
// All capabilities are called concurrently from the abstraction worker
// pool and must be safe for concurrent use. Pure functions always are.
package dynamo
