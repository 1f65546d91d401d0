// Package adapter bridges the synchronous device interface to the
// asynchronous remote-display session.
//
// Every operation follows the same protocol:
//  1. Validate arguments (only plane 0 exists, ranges in bounds)
//  2. Resolve the session for the display through the registry
//  3. Require the session to be scanning, atomically with the access
//  4. Read session state, or append to its outgoing update queue
//
// An Adapter never caches the session it resolves; a viewer can
// disconnect and a new one attach between any two calls, and a cached
// reference would act on the dead instance.
//
// Components:
//   - Adapter: the device operations for one display
//   - Bridge: instance table plus the initialize / get-plane /
//     uninitialize lifecycle entry points
//   - Capability-narrowed handles: a display without colormap or cursor
//     support hands out a handle that does not expose those operations
package adapter
