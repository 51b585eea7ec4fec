// Package shared holds code used across packages that belongs to no single
// domain or layer.
//
// The testutil subpackage provides test helpers: a buffered slog handler for
// asserting on log output, and deterministic populations (linear consumption
// rules, finite and degenerate histories) for the savings pipeline.
package shared
