package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/remoteframe/fbridge/internal/fb"
	"github.com/remoteframe/fbridge/internal/session"
)

func TestInitializeValidatesDisplay(t *testing.T) {
	b, _ := newTestBridge(t, allCaps(), time.Second)

	assert.ErrorIs(t, b.Initialize(context.Background(), -1), fb.ErrInvalidArgument)
	assert.ErrorIs(t, b.Initialize(context.Background(), 99), fb.ErrInvalidArgument)
}

func TestInitializeBlocksUntilScanning(t *testing.T) {
	b, reg := newTestBridge(t, allCaps(), 5*time.Second)

	const delay = 50 * time.Millisecond
	go func() {
		time.Sleep(delay)
		attachViewer(t, reg, 0, 800, 600)
	}()

	// Session must be in Listening before the helper can attach; give
	// Initialize a head start by creating it synchronously.
	start := time.Now()
	require.NoError(t, b.Initialize(context.Background(), 0))
	assert.GreaterOrEqual(t, time.Since(start), delay, "initialize returned before the session was ready")

	s, ok := reg.Find(0)
	require.True(t, ok)
	assert.Equal(t, session.StateScanning, s.State())
}

func TestInitializeConcurrentCallersShareSession(t *testing.T) {
	b, reg := newTestBridge(t, allCaps(), 5*time.Second)

	const callers = 4
	errCh := make(chan error, callers)
	for i := 0; i < callers; i++ {
		go func() {
			errCh <- b.Initialize(context.Background(), 0)
		}()
	}

	// Once any caller has installed the session, attach a viewer; every
	// caller must then return from the same wait.
	require.Eventually(t, func() bool {
		s, ok := reg.Find(0)
		return ok && s.State() == session.StateListening
	}, time.Second, 5*time.Millisecond)
	attachViewer(t, reg, 0, 800, 600)

	for i := 0; i < callers; i++ {
		select {
		case err := <-errCh:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("initialize did not return after the viewer attached")
		}
	}

	require.Len(t, reg.Snapshot(), 1, "all callers must land on one session")
}

func TestInitializeTimesOutWithoutViewer(t *testing.T) {
	b, _ := newTestBridge(t, allCaps(), 50*time.Millisecond)

	err := b.Initialize(context.Background(), 0)
	require.ErrorIs(t, err, fb.ErrTimeout)
}

func TestUninitializeAbortsBlockedInitialize(t *testing.T) {
	b, _ := newTestBridge(t, allCaps(), time.Minute)

	errCh := make(chan error, 1)
	go func() {
		errCh <- b.Initialize(context.Background(), 0)
	}()

	time.Sleep(50 * time.Millisecond)
	b.Uninitialize(0)

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, fb.ErrNotConnected)
	case <-time.After(time.Second):
		t.Fatal("initialize did not return after uninitialize")
	}
}

func TestGetVPlaneUnavailableStates(t *testing.T) {
	b, reg := newTestBridge(t, allCaps(), time.Second)

	_, ok := b.GetVPlane(0, 0)
	assert.False(t, ok, "no session yet")

	s, err := reg.Create(0, b.cfg.Session)
	require.NoError(t, err)
	require.NoError(t, s.Transition(session.StateListening))

	_, ok = b.GetVPlane(0, 0)
	assert.False(t, ok, "listening is not scanning")

	require.NoError(t, s.Transition(session.StateHandshaking))
	require.NoError(t, s.Negotiate(800, 600))

	_, ok = b.GetVPlane(0, 1)
	assert.False(t, ok, "only plane 0 exists")
	_, ok = b.GetVPlane(0, 0)
	assert.True(t, ok)
}

func TestGetVPlaneReturnsStableHandle(t *testing.T) {
	b, reg := newTestBridge(t, allCaps(), time.Second)
	s, err := reg.Create(0, b.cfg.Session)
	require.NoError(t, err)
	require.NoError(t, s.Transition(session.StateListening))
	attachViewer(t, reg, 0, 800, 600)

	h1, ok := b.GetVPlane(0, 0)
	require.True(t, ok)
	h2, ok := b.GetVPlane(0, 0)
	require.True(t, ok)
	assert.Equal(t, h1, h2, "repeated lookups reuse the wired instance")
}

func TestHandleCapabilityNarrowing(t *testing.T) {
	cases := []struct {
		name       string
		caps       Capabilities
		wantCmap   bool
		wantCursor bool
	}{
		{"all", Capabilities{ColorMap: true, Cursor: true}, true, true},
		{"colormap only", Capabilities{ColorMap: true}, true, false},
		{"cursor only", Capabilities{Cursor: true}, false, true},
		{"video only", Capabilities{}, false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b, reg := newTestBridge(t, tc.caps, time.Second)
			s, err := reg.Create(0, b.cfg.Session)
			require.NoError(t, err)
			require.NoError(t, s.Transition(session.StateListening))
			attachViewer(t, reg, 0, 800, 600)

			h, ok := b.GetVPlane(0, 0)
			require.True(t, ok)

			_, isCmap := h.(fb.ColorMapper)
			assert.Equal(t, tc.wantCmap, isCmap)
			_, isCursor := h.(fb.HWCursor)
			assert.Equal(t, tc.wantCursor, isCursor)

			// The base operations work through every handle shape.
			info, err := h.GetVideoInfo()
			require.NoError(t, err)
			assert.Equal(t, uint16(800), info.XRes)
		})
	}
}

func TestEndToEndLifecycle(t *testing.T) {
	b, reg := newTestBridge(t, allCaps(), 5*time.Second)

	// initialize(0) blocks until the simulated viewer reaches Scanning.
	require.NoError(t, b.Initialize(scanningCtx(t, reg, 0, 800, 600), 0))

	handle, ok := b.GetVPlane(0, 0)
	require.True(t, ok)

	info, err := handle.GetVideoInfo()
	require.NoError(t, err)
	assert.Equal(t, uint16(800), info.XRes)
	assert.Equal(t, uint16(600), info.YRes)

	firstID, _ := reg.Find(0)

	// Teardown: the handle goes stale until a new session connects.
	b.Uninitialize(0)
	_, ok = b.GetVPlane(0, 0)
	assert.False(t, ok, "not available after uninitialize")
	_, err = handle.GetVideoInfo()
	assert.ErrorIs(t, err, fb.ErrNotConnected)

	// Idempotent, and safe on a display that never connected.
	b.Uninitialize(0)
	b.Uninitialize(1)

	// A new viewer brings the display back with a fresh session.
	require.NoError(t, b.Initialize(scanningCtx(t, reg, 0, 800, 600), 0))
	secondID, ok := reg.Find(0)
	require.True(t, ok)
	assert.NotEqual(t, firstID.ID, secondID.ID)

	_, ok = b.GetVPlane(0, 0)
	assert.True(t, ok)
}
