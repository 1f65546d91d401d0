package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/remoteframe/fbridge/internal/fb"
)

// Config fixes the invariant properties of a session at creation time.
type Config struct {
	Format fb.Format
	// MaxWidth and MaxHeight bound the negotiable geometry. The surface
	// and stride are sized for the maximum so a renegotiated mode never
	// reallocates.
	MaxWidth  uint16
	MaxHeight uint16
	// ColorMapSize is the palette length for indexed formats; zero means
	// the session carries no colormap.
	ColorMapSize int
	// QueueDepth bounds the outgoing update queue.
	QueueDepth int
	// MaxCursorSize bounds cursor extents accepted by ApplyCursor.
	MaxCursorSize fb.CursorSize
}

type cursorState struct {
	pos   fb.CursorPos
	size  fb.CursorSize
	image fb.CursorImage
}

// Session is the state of one remote-display connection instance. A
// fresh Session (with a fresh ID) is created for every connection, so a
// handle resolved by display number can never act on a stale instance.
type Session struct {
	// Display is the display number this session serves. Immutable.
	Display int
	// ID distinguishes connection instances on the same display. Immutable.
	ID string

	log   *zap.Logger
	queue *Queue

	mu      sync.Mutex
	state   State
	changed chan struct{} // closed and replaced on every transition
	done    chan struct{} // closed once, on the transition to Closed

	format        fb.Format
	width, height uint16 // negotiated, fixed while Scanning
	maxWidth      uint16
	maxHeight     uint16
	stride        int
	bpp           int
	surface       []byte
	cmap          []fb.Color
	cursor        cursorState
	maxCursorSize fb.CursorSize
}

// New creates a session in the Uninitialized state with its surface
// allocated at the configured maximum geometry.
func New(display int, cfg Config, log *zap.Logger) *Session {
	bpp := cfg.Format.BitsPerPixel()
	stride := int(cfg.MaxWidth) * bpp / 8

	s := &Session{
		Display:       display,
		ID:            uuid.NewString(),
		log:           log,
		queue:         NewQueue(cfg.QueueDepth),
		state:         StateUninitialized,
		changed:       make(chan struct{}),
		done:          make(chan struct{}),
		format:        cfg.Format,
		width:         cfg.MaxWidth,
		height:        cfg.MaxHeight,
		maxWidth:      cfg.MaxWidth,
		maxHeight:     cfg.MaxHeight,
		stride:        stride,
		bpp:           bpp,
		surface:       make([]byte, stride*int(cfg.MaxHeight)),
		maxCursorSize: cfg.MaxCursorSize,
	}
	if cfg.ColorMapSize > 0 {
		s.cmap = make([]fb.Color, cfg.ColorMapSize)
	}
	return s
}

// Queue returns the outgoing update queue for the transport to drain.
func (s *Session) Queue() *Queue { return s.queue }

// State returns the current connection state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Transition moves the session to the given state, waking any waiters.
// Illegal transitions are rejected.
func (s *Session) Transition(to State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transitionLocked(to)
}

func (s *Session) transitionLocked(to State) error {
	if !legalTransition(s.state, to) {
		return fmt.Errorf("display %d: cannot move from %s to %s", s.Display, s.state, to)
	}
	s.log.Info("session state change",
		zap.Int("display", s.Display),
		zap.String("session_id", s.ID),
		zap.String("from", s.state.String()),
		zap.String("to", to.String()))
	s.state = to
	close(s.changed)
	s.changed = make(chan struct{})
	if to == StateClosed {
		close(s.done)
	}
	return nil
}

// Done is closed when the session reaches Closed. Consumers blocked on
// the update queue select on this to notice teardown.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close forces the session to Closed from any state. Idempotent.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return
	}
	if s.state == StateScanning {
		// Scanning tears down through Disconnecting so observers see an
		// orderly shutdown rather than an instant vanish.
		_ = s.transitionLocked(StateDisconnecting)
	}
	_ = s.transitionLocked(StateClosed)
}

// Negotiate fixes the session geometry during the handshake and enters
// Scanning. Dimensions of zero select the configured maximum; larger
// requests are clamped to it.
func (s *Session) Negotiate(width, height uint16) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateHandshaking {
		return fmt.Errorf("display %d: negotiate in state %s: %w", s.Display, s.state, fb.ErrNotConnected)
	}
	if width == 0 || width > s.maxWidth {
		width = s.maxWidth
	}
	if height == 0 || height > s.maxHeight {
		height = s.maxHeight
	}
	s.width = width
	s.height = height
	return s.transitionLocked(StateScanning)
}

// WaitScanning blocks until the session reaches Scanning, the timeout
// elapses, ctx is done, or the session becomes unable to ever reach
// Scanning. State changes are re-checked on every transition.
func (s *Session) WaitScanning(ctx context.Context, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.Lock()
		state := s.state
		changed := s.changed
		s.mu.Unlock()

		switch {
		case state == StateScanning:
			return nil
		case state.Terminal():
			return fmt.Errorf("display %d: session %s: %w", s.Display, state, fb.ErrNotConnected)
		}

		select {
		case <-changed:
		case <-ctx.Done():
			return fmt.Errorf("display %d: wait for session: %w", s.Display, ctx.Err())
		case <-timer.C:
			return fmt.Errorf("display %d: %w", s.Display, fb.ErrTimeout)
		}
	}
}

// requireScanningLocked verifies liveness. Callers hold s.mu, so the
// check and the access that follows are atomic with respect to a
// concurrent disconnect.
func (s *Session) requireScanningLocked() error {
	if s.state != StateScanning {
		return fmt.Errorf("display %d: session %s: %w", s.Display, s.state, fb.ErrNotConnected)
	}
	return nil
}

// VideoInfo returns the negotiated video mode.
func (s *Session) VideoInfo() (fb.VideoInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireScanningLocked(); err != nil {
		return fb.VideoInfo{}, err
	}
	return fb.VideoInfo{
		Format:  s.format,
		XRes:    s.width,
		YRes:    s.height,
		NPlanes: 1,
	}, nil
}

// PlaneInfo returns the surface description. FBLen reports the fixed
// allocation (stride times maximum height), not the currently negotiated
// height, so callers can map the surface once and survive renegotiation.
func (s *Session) PlaneInfo() (fb.PlaneInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireScanningLocked(); err != nil {
		return fb.PlaneInfo{}, err
	}
	return fb.PlaneInfo{
		FBMem:  s.surface,
		FBLen:  s.stride * int(s.maxHeight),
		Stride: s.stride,
		BPP:    s.bpp,
	}, nil
}

// ReadColorMap copies palette entries [first, first+len(dst)) into dst.
func (s *Session) ReadColorMap(first int, dst []fb.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireScanningLocked(); err != nil {
		return err
	}
	if err := s.checkCmapRangeLocked(first, len(dst)); err != nil {
		return err
	}
	copy(dst, s.cmap[first:first+len(dst)])
	return nil
}

// WriteColorMap stores src at palette entries [first, first+len(src))
// and appends a palette delta to the outgoing queue. Validation fully
// precedes mutation: a rejected write leaves both the palette and the
// queue untouched.
func (s *Session) WriteColorMap(first int, src []fb.Color) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireScanningLocked(); err != nil {
		return err
	}
	if err := s.checkCmapRangeLocked(first, len(src)); err != nil {
		return err
	}
	copy(s.cmap[first:first+len(src)], src)

	delta := &ColorMapDelta{First: first, Colors: make([]fb.Color, len(src))}
	copy(delta.Colors, src)
	s.queue.Append(Update{Kind: UpdateColorMap, ColorMap: delta})
	return nil
}

func (s *Session) checkCmapRangeLocked(first, n int) error {
	if s.cmap == nil {
		return fmt.Errorf("display %d: no colormap: %w", s.Display, fb.ErrUnsupported)
	}
	if first < 0 || n < 0 {
		return fmt.Errorf("colormap range first=%d len=%d: %w", first, n, fb.ErrInvalidArgument)
	}
	// Compared this way round so a huge first or n cannot overflow the
	// sum and sneak past the bound.
	if first > len(s.cmap) || n > len(s.cmap)-first {
		return fmt.Errorf("colormap range first=%d len=%d exceeds palette of %d: %w",
			first, n, len(s.cmap), fb.ErrOutOfRange)
	}
	return nil
}

// ColorMapSize returns the palette length, zero when not configured.
func (s *Session) ColorMapSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cmap)
}

// CursorAttribs returns a snapshot of the cached cursor state. The
// capability flags are filled in by the adapter, which owns capability
// configuration.
func (s *Session) CursorAttribs() (fb.CursorAttrib, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireScanningLocked(); err != nil {
		return fb.CursorAttrib{}, err
	}
	return fb.CursorAttrib{
		Pos:     s.cursor.pos,
		Size:    s.cursor.size,
		MaxSize: s.maxCursorSize,
	}, nil
}

// ApplyCursor applies the fields selected by set.Flags to the cursor
// cache and appends one update record carrying all of them, so the peer
// observes a multi-field change as a single consistent state.
func (s *Session) ApplyCursor(set fb.SetCursor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireScanningLocked(); err != nil {
		return err
	}
	if set.Flags&fb.CursorSetSize != 0 {
		if set.Size.W > s.maxCursorSize.W || set.Size.H > s.maxCursorSize.H {
			return fmt.Errorf("cursor size %dx%d exceeds %dx%d: %w",
				set.Size.W, set.Size.H, s.maxCursorSize.W, s.maxCursorSize.H, fb.ErrInvalidArgument)
		}
	}
	if set.Flags&fb.CursorSetImage != 0 && set.Image.Bits == nil {
		return fmt.Errorf("cursor image without bits: %w", fb.ErrInvalidArgument)
	}

	delta := &CursorDelta{Flags: set.Flags}
	if set.Flags&fb.CursorSetPosition != 0 {
		s.cursor.pos = set.Pos
		delta.Pos = set.Pos
	}
	if set.Flags&fb.CursorSetSize != 0 {
		s.cursor.size = set.Size
		delta.Size = set.Size
	}
	if set.Flags&fb.CursorSetImage != 0 {
		img := fb.CursorImage{Size: set.Image.Size, Bits: make([]byte, len(set.Image.Bits))}
		copy(img.Bits, set.Image.Bits)
		s.cursor.image = img
		delta.Image = img
	}
	if delta.Flags != 0 {
		s.queue.Append(Update{Kind: UpdateCursor, Cursor: delta})
	}
	return nil
}

// Info is a read-only snapshot for status surfaces.
type Info struct {
	Display    int    `json:"display"`
	SessionID  string `json:"session_id"`
	State      string `json:"state"`
	Format     string `json:"format"`
	Width      uint16 `json:"width"`
	Height     uint16 `json:"height"`
	Stride     int    `json:"stride"`
	BPP        int    `json:"bpp"`
	QueueDepth int    `json:"queue_depth"`
}

// Snapshot returns the session's current observable state.
func (s *Session) Snapshot() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{
		Display:    s.Display,
		SessionID:  s.ID,
		State:      s.state.String(),
		Format:     s.format.String(),
		Width:      s.width,
		Height:     s.height,
		Stride:     s.stride,
		BPP:        s.bpp,
		QueueDepth: s.queue.Len(),
	}
}
