package adapter

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/remoteframe/fbridge/internal/fb"
	"github.com/remoteframe/fbridge/internal/monitoring"
	"github.com/remoteframe/fbridge/internal/session"
)

// Capabilities selects which optional device operations a display
// exposes. Size and image cursor updates can be disabled independently
// of basic cursor positioning.
type Capabilities struct {
	ColorMap    bool
	Cursor      bool
	CursorSize  bool
	CursorImage bool
}

// Adapter implements the device operations for one display. It holds no
// pixel data and no session reference; each call re-resolves the session
// so a reconnected display is picked up transparently.
type Adapter struct {
	display int
	caps    Capabilities
	reg     *session.Registry
	metrics *monitoring.Metrics
	log     *zap.Logger
}

func newAdapter(display int, caps Capabilities, reg *session.Registry, m *monitoring.Metrics, log *zap.Logger) *Adapter {
	return &Adapter{
		display: display,
		caps:    caps,
		reg:     reg,
		metrics: m,
		log:     log,
	}
}

// resolve looks the session up and requires it to exist. Liveness is
// enforced by the session method that follows, under the session lock.
func (a *Adapter) resolve() (*session.Session, error) {
	s, ok := a.reg.Find(a.display)
	if !ok {
		return nil, fmt.Errorf("display %d has no session: %w", a.display, fb.ErrNotConnected)
	}
	return s, nil
}

func (a *Adapter) done(op string, err error) error {
	a.metrics.ObserveOp(op, err)
	if err != nil {
		a.log.Debug("device op failed",
			zap.Int("display", a.display),
			zap.String("op", op),
			zap.Error(err))
	}
	return err
}

// GetVideoInfo returns the negotiated video mode of the display.
func (a *Adapter) GetVideoInfo() (fb.VideoInfo, error) {
	s, err := a.resolve()
	if err != nil {
		return fb.VideoInfo{}, a.done("get_video_info", err)
	}
	info, err := s.VideoInfo()
	return info, a.done("get_video_info", err)
}

// GetPlaneInfo returns the surface description for plane 0, the only
// plane in this single-plane model.
func (a *Adapter) GetPlaneInfo(plane int) (fb.PlaneInfo, error) {
	if plane != 0 {
		return fb.PlaneInfo{}, a.done("get_plane_info",
			fmt.Errorf("plane %d: %w", plane, fb.ErrInvalidArgument))
	}
	s, err := a.resolve()
	if err != nil {
		return fb.PlaneInfo{}, a.done("get_plane_info", err)
	}
	info, err := s.PlaneInfo()
	return info, a.done("get_plane_info", err)
}

// GetCmap copies palette entries [first, first+len(dst)) into dst.
func (a *Adapter) GetCmap(first int, dst []fb.Color) error {
	if dst == nil {
		return a.done("get_cmap", fmt.Errorf("nil destination: %w", fb.ErrInvalidArgument))
	}
	s, err := a.resolve()
	if err != nil {
		return a.done("get_cmap", err)
	}
	return a.done("get_cmap", s.ReadColorMap(first, dst))
}

// PutCmap writes palette entries and schedules the change for the peer.
func (a *Adapter) PutCmap(first int, src []fb.Color) error {
	if src == nil {
		return a.done("put_cmap", fmt.Errorf("nil source: %w", fb.ErrInvalidArgument))
	}
	s, err := a.resolve()
	if err != nil {
		return a.done("put_cmap", err)
	}
	return a.done("put_cmap", s.WriteColorMap(first, src))
}

// GetCursor returns cursor state with this display's capability flags.
func (a *Adapter) GetCursor() (fb.CursorAttrib, error) {
	s, err := a.resolve()
	if err != nil {
		return fb.CursorAttrib{}, a.done("get_cursor", err)
	}
	attrib, err := s.CursorAttribs()
	if err != nil {
		return fb.CursorAttrib{}, a.done("get_cursor", err)
	}
	attrib.HasSize = a.caps.CursorSize
	attrib.HasImage = a.caps.CursorImage
	return attrib, a.done("get_cursor", nil)
}

// SetCursor applies the selected cursor fields as one atomic update.
// Fields outside the configured capabilities are rejected before any
// state changes.
func (a *Adapter) SetCursor(set fb.SetCursor) error {
	if set.Flags == 0 {
		return a.done("set_cursor", fmt.Errorf("no fields selected: %w", fb.ErrInvalidArgument))
	}
	if set.Flags&fb.CursorSetSize != 0 && !a.caps.CursorSize {
		return a.done("set_cursor", fmt.Errorf("cursor resize: %w", fb.ErrUnsupported))
	}
	if set.Flags&fb.CursorSetImage != 0 && !a.caps.CursorImage {
		return a.done("set_cursor", fmt.Errorf("cursor image: %w", fb.ErrUnsupported))
	}
	s, err := a.resolve()
	if err != nil {
		return a.done("set_cursor", err)
	}
	return a.done("set_cursor", s.ApplyCursor(set))
}
