package transport

import (
	"github.com/remoteframe/fbridge/internal/session"
)

// helloMsg is the first server message after the upgrade, describing
// the display the viewer attached to.
type helloMsg struct {
	Type         string `json:"type"` // "hello"
	Display      int    `json:"display"`
	SessionID    string `json:"session_id"`
	Format       string `json:"format"`
	MaxWidth     uint16 `json:"max_width"`
	MaxHeight    uint16 `json:"max_height"`
	ColorMapSize int    `json:"colormap_size"`
}

// initMsg is the viewer's reply, requesting a geometry. Zero dimensions
// select the maximum.
type initMsg struct {
	Type   string `json:"type"` // "init"
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

// modeMsg confirms the negotiated geometry; the session is scanning
// once the viewer receives it.
type modeMsg struct {
	Type   string `json:"type"` // "mode"
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

// updateMsg carries one drained queue record.
type updateMsg struct {
	Type     string                 `json:"type"` // "colormap" or "cursor"
	Seq      uint64                 `json:"seq"`
	ColorMap *session.ColorMapDelta `json:"colormap,omitempty"`
	Cursor   *session.CursorDelta   `json:"cursor,omitempty"`
}

func newUpdateMsg(u session.Update) updateMsg {
	return updateMsg{
		Type:     u.Kind.String(),
		Seq:      u.Seq,
		ColorMap: u.ColorMap,
		Cursor:   u.Cursor,
	}
}
