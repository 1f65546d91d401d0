package transport

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/remoteframe/fbridge/internal/fb"
	"github.com/remoteframe/fbridge/internal/monitoring"
	"github.com/remoteframe/fbridge/internal/session"
)

func testSessionConfig() session.Config {
	return session.Config{
		Format:        fb.FormatRGB8,
		MaxWidth:      1024,
		MaxHeight:     768,
		ColorMapSize:  256,
		QueueDepth:    64,
		MaxCursorSize: fb.CursorSize{W: 64, H: 64},
	}
}

func newTestHost(t *testing.T) (*session.Registry, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zap.NewNop()
	reg := session.NewRegistry(2, log)
	host := NewHost(reg, monitoring.NewMetrics(prometheus.NewRegistry()), log)

	router := gin.New()
	router.GET("/ws/:display", host.HandleViewer)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return reg, srv
}

func wsURL(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func dialViewer(t *testing.T, srv *httptest.Server, display string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/"+display), nil)
	require.NoError(t, err)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestViewerRejectedWithoutSession(t *testing.T) {
	_, srv := newTestHost(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/0"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, 404, resp.StatusCode)
}

func TestViewerHandshakeReachesScanning(t *testing.T) {
	reg, srv := newTestHost(t)
	s, err := reg.Create(0, testSessionConfig())
	require.NoError(t, err)
	require.NoError(t, s.Transition(session.StateListening))

	conn := dialViewer(t, srv, "0")

	var hello helloMsg
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "hello", hello.Type)
	assert.Equal(t, 0, hello.Display)
	assert.Equal(t, s.ID, hello.SessionID)
	assert.Equal(t, uint16(1024), hello.MaxWidth)
	assert.Equal(t, 256, hello.ColorMapSize)

	require.NoError(t, conn.WriteJSON(initMsg{Type: "init", Width: 800, Height: 600}))

	var mode modeMsg
	require.NoError(t, conn.ReadJSON(&mode))
	assert.Equal(t, "mode", mode.Type)
	assert.Equal(t, uint16(800), mode.Width)
	assert.Equal(t, uint16(600), mode.Height)

	assert.Equal(t, session.StateScanning, s.State())
}

func TestViewerReceivesQueuedUpdates(t *testing.T) {
	reg, srv := newTestHost(t)
	s, err := reg.Create(0, testSessionConfig())
	require.NoError(t, err)
	require.NoError(t, s.Transition(session.StateListening))

	conn := dialViewer(t, srv, "0")

	var hello helloMsg
	require.NoError(t, conn.ReadJSON(&hello))
	require.NoError(t, conn.WriteJSON(initMsg{Type: "init"}))
	var mode modeMsg
	require.NoError(t, conn.ReadJSON(&mode))

	require.NoError(t, s.WriteColorMap(3, []fb.Color{{R: 9, G: 8, B: 7}}))
	require.NoError(t, s.ApplyCursor(fb.SetCursor{
		Flags: fb.CursorSetPosition,
		Pos:   fb.CursorPos{X: 40, Y: 30},
	}))

	var first updateMsg
	require.NoError(t, conn.ReadJSON(&first))
	assert.Equal(t, "colormap", first.Type)
	assert.Equal(t, uint64(1), first.Seq)
	require.NotNil(t, first.ColorMap)
	assert.Equal(t, 3, first.ColorMap.First)
	assert.Equal(t, []fb.Color{{R: 9, G: 8, B: 7}}, first.ColorMap.Colors)

	var second updateMsg
	require.NoError(t, conn.ReadJSON(&second))
	assert.Equal(t, "cursor", second.Type)
	assert.Equal(t, uint64(2), second.Seq)
	require.NotNil(t, second.Cursor)
	assert.Equal(t, fb.CursorPos{X: 40, Y: 30}, second.Cursor.Pos)
}

func TestViewerDisconnectClosesSession(t *testing.T) {
	reg, srv := newTestHost(t)
	s, err := reg.Create(0, testSessionConfig())
	require.NoError(t, err)
	require.NoError(t, s.Transition(session.StateListening))

	conn := dialViewer(t, srv, "0")
	var hello helloMsg
	require.NoError(t, conn.ReadJSON(&hello))
	require.NoError(t, conn.WriteJSON(initMsg{Type: "init"}))
	var mode modeMsg
	require.NoError(t, conn.ReadJSON(&mode))

	conn.Close()

	require.Eventually(t, func() bool {
		_, ok := reg.Find(0)
		return !ok
	}, 2*time.Second, 10*time.Millisecond, "detach must free the display")
	assert.Equal(t, session.StateClosed, s.State())
}

func TestSecondViewerTurnedAway(t *testing.T) {
	reg, srv := newTestHost(t)
	s, err := reg.Create(0, testSessionConfig())
	require.NoError(t, err)
	require.NoError(t, s.Transition(session.StateListening))

	conn := dialViewer(t, srv, "0")
	var hello helloMsg
	require.NoError(t, conn.ReadJSON(&hello))

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(srv, "/ws/0"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, 409, resp.StatusCode)
}

func TestSessionCloseStopsPump(t *testing.T) {
	reg, srv := newTestHost(t)
	s, err := reg.Create(0, testSessionConfig())
	require.NoError(t, err)
	require.NoError(t, s.Transition(session.StateListening))

	conn := dialViewer(t, srv, "0")
	var hello helloMsg
	require.NoError(t, conn.ReadJSON(&hello))
	require.NoError(t, conn.WriteJSON(initMsg{Type: "init"}))
	var mode modeMsg
	require.NoError(t, conn.ReadJSON(&mode))

	// Device-side teardown while the viewer is attached.
	s.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server must drop the connection once the session closes")
}
