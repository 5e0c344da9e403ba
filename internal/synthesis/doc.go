// Package synthesis computes reach-avoid controllers over an IMDP by robust
// value iteration.
//
// The controller maximizes the probability of reaching the target while
// staying out of the avoid region. The interval uncertainty of every row is
// resolved either against the controller (Pessimistic) or in its favor
// (Optimistic); [Expect] performs that resolution for a single row by the
// sorting-based O-maximization.
//
// Steps are sequential; the update inside a step is spread over a
// compute.Backend. Cancellation is honored between steps only.
package synthesis
