// Package abstraction computes interval transition bounds between grid
// cells of a stochastic system x' = f(x, u) + w.
//
// For every normal source cell, every input cell and every mode the
// [Computer] bounds, over all points of the source cell, the probability of
// landing in each normal cell, in the target aggregate and in the avoid
// aggregate (avoid cells plus everything outside the state-space box).
//
// Two noise paths exist:
//
//   - Gaussian modes use closed-form box probabilities. The image of the
//     source cell under f is enclosed in a box of means, and monotonicity
//     of the Gaussian mass along each axis gives per-axis extremes whose
//     products bound every destination cell.
//   - Density modes sample source points and integrate the density over
//     each destination by Monte Carlo, widening each estimate by a normal
//     confidence margin.
//
// Units are independent and run on a [compute.Backend]; each writes only
// its own row of the preallocated [imdp.Table].
package abstraction
