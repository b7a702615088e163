// Package ui styles the CLI's console output with lipgloss.
//
// Rendering functions return plain strings so commands can write them anywhere:
//   - [RenderResult] : Totals and failures of a finished sync run
//   - [RenderRuns] : One line per journaled run for `history runs`
//   - [RenderOutcome] : A single outcome word, colored by kind
//   - [DescribeProgress] : Short label for a progress phase, used by the progress bar
package ui
