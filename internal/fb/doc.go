// Package fb defines the device-facing framebuffer interface types.
//
// These are the shapes exchanged between a graphics subsystem and the
// bridge: video mode descriptions, plane (surface) descriptions, indexed
// colormaps, and hardware-cursor state.
//
// Components:
//   - VTable: the two operations every display supports
//   - ColorMapper: optional extension for indexed-color displays
//   - HWCursor: optional extension for cursor-emulating displays
//   - Sentinel errors shared by every bridge operation
//
// Capability-conditional operations are modeled as optional interfaces:
// a handle for a display without colormap support simply does not satisfy
// ColorMapper, so callers discover capabilities with a type assertion
// rather than probing for an error.
package fb
