// Package server provides the HTTP surface of the bridge daemon.
//
// Routes:
//   - GET /health      liveness probe
//   - GET /displays    per-display session state and queue depth
//   - GET /metrics     Prometheus metrics
//   - GET /ws/:display viewer attach point (WebSocket upgrade)
//
// The server owns only routing and lifecycle; display semantics live in
// the adapter, session and transport packages.
package server
