// Package viz renders synthesis runs in the terminal.
//
//   - [ProgressModel]: Bubble Tea view of a running pipeline, fed by a
//     [Reporter] through [RunLive]
//   - [ResidualChart], [ValueChart]: asciigraph plots of value iteration
//   - [Summary]: lipgloss panel of a stored run
package viz
