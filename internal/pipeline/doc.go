// Package pipeline runs the ranking of a corpus as a sequence of steps.
//
// A corpus is processed through these stages: loading the link graph,
// sampling, iteration, an optional reference computation, and summarizing.
// Each stage is implemented as a Step that receives the current report and
// fills in its part.
//
// Design decision: We use a pipeline pattern instead of direct function calls
// because:
// 1. It allows easy addition/removal of steps without modifying core logic
// 2. It provides consistent error handling and logging across steps
// 3. It supports cancellation via context for long-running iterations
//
// The pipeline supports both individual corpora and batch processing with
// concurrency control using errgroup.
package pipeline
