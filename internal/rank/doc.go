// Package rank estimates PageRank over a model.Graph.
//
// # Model
//
// A random surfer on page q follows one of q's links with probability d
// (the damping factor) and otherwise teleports to a page chosen uniformly
// at random. A page without links (a dangling page) always teleports.
// Transition computes that one-step distribution.
//
// # Estimators
//
//   - Sample runs one long random walk driven by Transition and returns
//     visit frequencies. It is intentionally stochastic: two runs differ
//     unless the random source is seeded with WithSeed or WithSource.
//   - Iterate applies the PageRank fixed-point equation to a full rank
//     vector until every page moves by at most the threshold in one round.
//     It is deterministic and is the ground truth the others are checked
//     against.
//   - Reference delegates to gonum's network.PageRank and serves as an
//     independent cross-check.
//
// All estimators are pure functions of their inputs: they never modify the
// graph and always return a fresh model.Distribution.
//
// # Parameters
//
// The damping factor must lie in the open interval (0, 1). Values outside
// that range are rejected with model.ErrInvalidDamping; the iteration is
// only a contraction for d < 1, so no behaviour is defined for d >= 1.
package rank
