package adapter

import "github.com/remoteframe/fbridge/internal/fb"

// Handles narrow an adapter to its configured capabilities. A caller
// asking for colormap or cursor support does a type assertion against
// fb.ColorMapper or fb.HWCursor; on a display configured without the
// capability the assertion fails instead of every call erroring.

type videoHandle struct {
	a *Adapter
}

func (h videoHandle) GetVideoInfo() (fb.VideoInfo, error) { return h.a.GetVideoInfo() }

func (h videoHandle) GetPlaneInfo(plane int) (fb.PlaneInfo, error) {
	return h.a.GetPlaneInfo(plane)
}

type cmapHandle struct {
	videoHandle
}

func (h cmapHandle) GetCmap(first int, dst []fb.Color) error { return h.a.GetCmap(first, dst) }
func (h cmapHandle) PutCmap(first int, src []fb.Color) error { return h.a.PutCmap(first, src) }

type cursorHandle struct {
	videoHandle
}

func (h cursorHandle) GetCursor() (fb.CursorAttrib, error) { return h.a.GetCursor() }
func (h cursorHandle) SetCursor(set fb.SetCursor) error    { return h.a.SetCursor(set) }

// newHandle wires the vtable for an adapter, exposing only the
// operations its capabilities include. With both extensions enabled the
// adapter itself is the handle.
func newHandle(a *Adapter) fb.VTable {
	switch {
	case a.caps.ColorMap && a.caps.Cursor:
		return a
	case a.caps.ColorMap:
		return cmapHandle{videoHandle{a}}
	case a.caps.Cursor:
		return cursorHandle{videoHandle{a}}
	default:
		return videoHandle{a}
	}
}
