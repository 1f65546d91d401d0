// Package monitoring provides Prometheus metrics for the bridge.
//
// Metrics cover the three layers of the system:
//   - Device operations: counts by operation and result
//   - Sessions: per-display state and connect wait durations
//   - Transport: viewer connections and updates streamed
//
// All collectors register against a caller-supplied Registerer so tests
// can use isolated registries.
package monitoring
