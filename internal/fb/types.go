package fb

import "fmt"

// Format identifies the pixel encoding of a display surface.
type Format uint8

const (
	// FormatRGB16 is 16-bit direct color, 5/6/5 bits per channel.
	FormatRGB16 Format = iota
	// FormatRGB32 is 32-bit direct color, 8 bits per channel plus padding.
	FormatRGB32
	// FormatRGB8 is 8-bit indexed color backed by a colormap.
	FormatRGB8
)

// BitsPerPixel returns the storage width of one pixel in this format.
func (f Format) BitsPerPixel() int {
	switch f {
	case FormatRGB16:
		return 16
	case FormatRGB32:
		return 32
	case FormatRGB8:
		return 8
	default:
		return 0
	}
}

// Indexed reports whether the format resolves pixels through a colormap.
func (f Format) Indexed() bool {
	return f == FormatRGB8
}

func (f Format) String() string {
	switch f {
	case FormatRGB16:
		return "rgb16-565"
	case FormatRGB32:
		return "rgb32"
	case FormatRGB8:
		return "rgb8-indexed"
	default:
		return "unknown"
	}
}

// ParseFormat resolves a configuration string to a Format.
func ParseFormat(s string) (Format, error) {
	switch s {
	case "rgb16-565", "rgb16":
		return FormatRGB16, nil
	case "rgb32":
		return FormatRGB32, nil
	case "rgb8-indexed", "rgb8":
		return FormatRGB8, nil
	default:
		return 0, fmt.Errorf("pixel format %q: %w", s, ErrInvalidArgument)
	}
}

// VideoInfo describes the negotiated video mode of a display.
type VideoInfo struct {
	Format  Format `json:"format"`
	XRes    uint16 `json:"xres"`
	YRes    uint16 `json:"yres"`
	NPlanes int    `json:"nplanes"`
}

// PlaneInfo describes one color plane of a display. FBMem references the
// session-owned surface; it is valid only while the session is connected
// and must not be retained across operations.
type PlaneInfo struct {
	FBMem  []byte
	FBLen  int
	Stride int
	BPP    int
}

// Color is one colormap entry. Channels use the full 16-bit range
// regardless of the display depth.
type Color struct {
	R uint16 `json:"r"`
	G uint16 `json:"g"`
	B uint16 `json:"b"`
}

// CursorPos is a cursor location in surface coordinates.
type CursorPos struct {
	X uint16 `json:"x"`
	Y uint16 `json:"y"`
}

// CursorSize is a cursor extent in pixels.
type CursorSize struct {
	W uint16 `json:"w"`
	H uint16 `json:"h"`
}

// CursorImage is a cursor bitmap. Bits holds one bit per pixel in row
// order, rows padded to a byte boundary.
type CursorImage struct {
	Size CursorSize `json:"size"`
	Bits []byte     `json:"bits,omitempty"`
}

// SetCursorFlags selects which cursor fields a SetCursor call updates.
type SetCursorFlags uint8

const (
	CursorSetPosition SetCursorFlags = 1 << iota
	CursorSetSize
	CursorSetImage
)

// SetCursor carries a cursor update. Only the fields selected by Flags
// are applied; the rest of the cursor state is left as is.
type SetCursor struct {
	Flags SetCursorFlags
	Pos   CursorPos
	Size  CursorSize
	Image CursorImage
}

// CursorAttrib is a snapshot of cursor state and capability.
type CursorAttrib struct {
	Pos      CursorPos  `json:"pos"`
	Size     CursorSize `json:"size"`
	MaxSize  CursorSize `json:"max_size"`
	HasSize  bool       `json:"has_size"`
	HasImage bool       `json:"has_image"`
}

// VTable is the operation set every display handle supports.
type VTable interface {
	// GetVideoInfo returns the negotiated video mode.
	GetVideoInfo() (VideoInfo, error)
	// GetPlaneInfo returns the surface description for the given plane.
	// Only plane 0 exists.
	GetPlaneInfo(plane int) (PlaneInfo, error)
}

// ColorMapper is the optional colormap extension of a display handle.
type ColorMapper interface {
	// GetCmap copies palette entries [first, first+len(dst)) into dst.
	GetCmap(first int, dst []Color) error
	// PutCmap stores src at palette entries [first, first+len(src)) and
	// schedules the change for transmission to the remote peer.
	PutCmap(first int, src []Color) error
}

// HWCursor is the optional hardware-cursor extension of a display handle.
type HWCursor interface {
	// GetCursor returns the current cursor state and capability flags.
	GetCursor() (CursorAttrib, error)
	// SetCursor applies the selected cursor fields as one atomic update.
	SetCursor(SetCursor) error
}
