// Package routing decides the order in which a model group's deployments
// are attempted for a request.
//
// The Router filters out deployments the health tracker reports as
// ineligible, asks a Strategy for the primary candidate, and orders the
// rest as fallbacks by priority tier and observed latency. Strategy
// implementations live in the strategies subpackage:
//
//   - simple-shuffle: weighted random by deployment weight (default)
//   - round-robin: smooth weighted round robin per model group
//   - least-busy: fewest in-flight requests
//   - latency-based-routing: lowest recent average latency
package routing
