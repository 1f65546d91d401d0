// Package transport hosts remote viewers over WebSocket.
//
// One viewer attaches per display. The host drives the session state
// machine (listening, handshaking, scanning, teardown) and streams the
// session's outgoing update queue to the peer as typed JSON messages.
// Wire fidelity to any particular remote-display protocol is not a
// goal; the messages carry the negotiated mode, palette deltas and
// cursor deltas with their sequence numbers.
//
// The drain loop is paced with a rate limiter so a burst of device
// writes never floods a slow peer, and it never blocks the device side:
// the queue absorbs and coalesces while the peer catches up.
package transport
