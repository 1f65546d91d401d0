package transport

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/remoteframe/fbridge/internal/monitoring"
	"github.com/remoteframe/fbridge/internal/session"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 5 * time.Second

	// flushRate paces update delivery; bursts beyond flushBurst queue up
	// in the session rather than flooding the peer.
	flushRate  = 60
	flushBurst = 16
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // viewers connect from arbitrary origins
	},
}

// Host accepts remote viewers and binds them to display sessions.
type Host struct {
	reg     *session.Registry
	metrics *monitoring.Metrics
	log     *zap.Logger
}

// NewHost creates a viewer host over the given registry.
func NewHost(reg *session.Registry, m *monitoring.Metrics, log *zap.Logger) *Host {
	return &Host{reg: reg, metrics: m, log: log}
}

// HandleViewer upgrades the request and runs one viewer connection to
// completion. The display must be listening; a second viewer on a busy
// display is turned away before the upgrade.
func (h *Host) HandleViewer(c *gin.Context) {
	display, err := strconv.Atoi(c.Param("display"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid display"})
		return
	}

	s, ok := h.reg.Find(display)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "display not initialized"})
		return
	}
	if err := s.Transition(session.StateHandshaking); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": "display busy"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Int("display", display), zap.Error(err))
		h.teardown(display, s)
		return
	}

	h.metrics.ViewerConnections.Inc()
	defer h.metrics.ViewerConnections.Dec()

	h.serve(c.Request.Context(), conn, display, s)
}

// serve runs the handshake and then pumps updates until either side
// goes away.
func (h *Host) serve(reqCtx context.Context, conn *websocket.Conn, display int, s *session.Session) {
	defer conn.Close()
	defer h.teardown(display, s)

	if err := h.handshake(conn, display, s); err != nil {
		h.log.Warn("viewer handshake failed", zap.Int("display", display), zap.Error(err))
		return
	}

	h.metrics.SessionsActive.Inc()
	defer h.metrics.SessionsActive.Dec()

	h.log.Info("viewer scanning",
		zap.Int("display", display),
		zap.String("session_id", s.ID))

	ctx, cancel := context.WithCancel(reqCtx)
	defer cancel()

	// Reader detects the peer closing; viewers send nothing after init.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Uninitialize on the device side closes the session out from under
	// the pump.
	go func() {
		select {
		case <-s.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	h.pump(ctx, conn, s)
}

func (h *Host) handshake(conn *websocket.Conn, display int, s *session.Session) error {
	deadline := time.Now().Add(handshakeTimeout)
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return err
	}

	info := s.Snapshot()
	hello := helloMsg{
		Type:         "hello",
		Display:      display,
		SessionID:    s.ID,
		Format:       info.Format,
		MaxWidth:     info.Width,
		MaxHeight:    info.Height,
		ColorMapSize: s.ColorMapSize(),
	}
	if err := conn.WriteJSON(hello); err != nil {
		return err
	}

	var init initMsg
	if err := conn.ReadJSON(&init); err != nil {
		return err
	}
	if err := s.Negotiate(init.Width, init.Height); err != nil {
		return err
	}

	mode := s.Snapshot()
	if err := conn.WriteJSON(modeMsg{Type: "mode", Width: mode.Width, Height: mode.Height}); err != nil {
		return err
	}

	// Back to blocking reads for the close detector.
	return conn.SetReadDeadline(time.Time{})
}

// pump drains the outgoing queue to the viewer in order.
func (h *Host) pump(ctx context.Context, conn *websocket.Conn, s *session.Session) {
	limiter := rate.NewLimiter(rate.Limit(flushRate), flushBurst)
	q := s.Queue()

	for {
		u, err := q.Next(ctx)
		if err != nil {
			return
		}
		if err := limiter.Wait(ctx); err != nil {
			return
		}
		if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
			return
		}
		if err := conn.WriteJSON(newUpdateMsg(u)); err != nil {
			h.log.Warn("viewer write failed",
				zap.Int("display", s.Display),
				zap.Uint64("seq", u.Seq),
				zap.Error(err))
			return
		}
		h.metrics.UpdatesSent.WithLabelValues(u.Kind.String()).Inc()
	}
}

// teardown closes the session and frees the display for the next
// viewer. Safe to call at any point after the session left Listening.
func (h *Host) teardown(display int, s *session.Session) {
	s.Close()
	h.reg.Remove(display, s)
	h.log.Info("viewer detached",
		zap.Int("display", display),
		zap.String("session_id", s.ID))
}
