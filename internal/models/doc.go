// Package models provides bundled reach-avoid problems.
//
//   - [VanDerPol]: controlled Van der Pol oscillator with Gaussian noise
//   - [SwitchedLinear]: two-mode stochastically switched linear system, in
//     closed form or as a custom mixture density
//   - [RandomWalk]: controlled 1-D walk, optionally under an unknown drift
//
// Every model implements [dynamo.Configurable] so problem files can adjust
// its parameters by name.
package models
