// Package session implements the remote-display session model.
//
// A Session owns everything a connected viewer sees: the pixel surface,
// negotiated geometry and pixel format, the indexed colormap, the cached
// cursor state, and an outgoing queue of pending updates awaiting
// transmission. Sessions move through a connection state machine driven
// by the transport; device-interface operations succeed only while the
// session is Scanning.
//
// Components:
//   - Session: per-display state, guarded by a single lock
//   - State: connection lifecycle with validated transitions
//   - Queue: ordered, coalescing outgoing update queue
//   - Registry: fixed-capacity display-to-session lookup
//
// Locking:
//
// One mutex guards a session's state, geometry, colormap and cursor
// cache, so a liveness check and the read or write that follows it are
// observed together even as the transport disconnects concurrently.
// Callers never hold the lock across calls; every operation re-checks.
package session
