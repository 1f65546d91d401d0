package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/remoteframe/fbridge/internal/fb"
	"github.com/remoteframe/fbridge/internal/monitoring"
	"github.com/remoteframe/fbridge/internal/session"
)

// Config fixes the bridge-wide settings shared by every display.
type Config struct {
	Session        session.Config
	Caps           Capabilities
	ConnectTimeout time.Duration
}

// instance binds one adapter to its display slot. Instances are created
// lazily on first plane lookup and live for the process lifetime; only
// the initialized flag resets on uninitialize, so the slot is reused by
// the next initialize.
type instance struct {
	adapter     *Adapter
	handle      fb.VTable
	initialized bool
}

// Bridge is the adapter instance table and the lifecycle entry points
// an owning graphics subsystem calls.
type Bridge struct {
	cfg     Config
	reg     *session.Registry
	metrics *monitoring.Metrics
	log     *zap.Logger

	mu        sync.Mutex
	instances []*instance
}

// New creates a bridge over the given registry. The instance table has
// one slot per registry display.
func New(cfg Config, reg *session.Registry, m *monitoring.Metrics, log *zap.Logger) *Bridge {
	return &Bridge{
		cfg:       cfg,
		reg:       reg,
		metrics:   m,
		log:       log,
		instances: make([]*instance, reg.MaxDisplays()),
	}
}

// Initialize opens the given display for a remote viewer and blocks
// until the session starts scanning, the configured timeout elapses, or
// ctx is cancelled. A session already scanning returns immediately.
func (b *Bridge) Initialize(ctx context.Context, display int) error {
	if display < 0 || display >= len(b.instances) {
		return fmt.Errorf("display %d outside [0, %d): %w", display, len(b.instances), fb.ErrInvalidArgument)
	}

	// FindOrCreate resolves concurrent initializes for the same display
	// to a single session; everybody falls through to the same wait.
	s, err := b.reg.FindOrCreate(display, b.cfg.Session)
	if err != nil {
		return err
	}

	b.log.Info("waiting for remote session",
		zap.Int("display", display),
		zap.Duration("timeout", b.cfg.ConnectTimeout))

	start := time.Now()
	err = s.WaitScanning(ctx, b.cfg.ConnectTimeout)
	b.metrics.ConnectWait.Observe(time.Since(start).Seconds())
	return err
}

// GetVPlane returns the device handle for the given plane of a display,
// or false when the plane does not exist or the session is not
// scanning. The first successful call for a display wires its adapter;
// later calls return the same handle.
func (b *Bridge) GetVPlane(display, plane int) (fb.VTable, bool) {
	if display < 0 || display >= len(b.instances) || plane != 0 {
		return nil, false
	}

	s, ok := b.reg.Find(display)
	if !ok || s.State() != session.StateScanning {
		return nil, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	inst := b.instances[display]
	if inst == nil {
		inst = &instance{adapter: newAdapter(display, b.cfg.Caps, b.reg, b.metrics, b.log)}
		b.instances[display] = inst
	}
	if !inst.initialized {
		inst.handle = newHandle(inst.adapter)
		inst.initialized = true
		b.log.Info("adapter wired",
			zap.Int("display", display),
			zap.Bool("colormap", b.cfg.Caps.ColorMap),
			zap.Bool("cursor", b.cfg.Caps.Cursor))
	}
	return inst.handle, true
}

// Uninitialize releases the adapter-side state for a display and starts
// the session's disconnect if one is still registered. Idempotent, and
// safe before the display ever connected. A concurrently blocked
// Initialize wakes and returns an error.
func (b *Bridge) Uninitialize(display int) {
	if display < 0 || display >= len(b.instances) {
		return
	}

	b.mu.Lock()
	if inst := b.instances[display]; inst != nil {
		inst.initialized = false
		inst.handle = nil
	}
	b.mu.Unlock()

	if s, ok := b.reg.Find(display); ok {
		s.Close()
		b.reg.Remove(display, s)
	}
	b.log.Info("display uninitialized", zap.Int("display", display))
}
