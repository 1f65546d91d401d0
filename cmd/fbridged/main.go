package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/remoteframe/fbridge/internal/adapter"
	"github.com/remoteframe/fbridge/internal/config"
	"github.com/remoteframe/fbridge/internal/fb"
	"github.com/remoteframe/fbridge/internal/logging"
	"github.com/remoteframe/fbridge/internal/monitoring"
	"github.com/remoteframe/fbridge/internal/server"
	"github.com/remoteframe/fbridge/internal/session"
	"github.com/remoteframe/fbridge/internal/transport"
)

func main() {
	cfg := config.LoadOrDefault()

	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
	})
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	format, err := fb.ParseFormat(cfg.Display.Format)
	if err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	registry := prometheus.NewRegistry()
	metrics := monitoring.NewMetrics(registry)

	sessions := session.NewRegistry(cfg.Display.MaxDisplays, logger)
	bridge := adapter.New(adapter.Config{
		Session: session.Config{
			Format:       format,
			MaxWidth:     cfg.Display.MaxWidth,
			MaxHeight:    cfg.Display.MaxHeight,
			ColorMapSize: colorMapSize(format, cfg.Display.ColorMapSize),
			QueueDepth:   cfg.Display.QueueDepth,
			MaxCursorSize: fb.CursorSize{
				W: cfg.Display.MaxCursorSize,
				H: cfg.Display.MaxCursorSize,
			},
		},
		Caps: adapter.Capabilities{
			ColorMap:    cfg.Caps.ColorMap && format.Indexed(),
			Cursor:      cfg.Caps.Cursor,
			CursorSize:  cfg.Caps.Cursor && cfg.Caps.CursorSize,
			CursorImage: cfg.Caps.Cursor && cfg.Caps.CursorImage,
		},
		ConnectTimeout: cfg.Display.ConnectTimeout,
	}, sessions, metrics, logger)

	host := transport.NewHost(sessions, metrics, logger)
	srv := server.New(sessions, host, registry, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Open every configured display and wait for its first viewer in the
	// background; the device side serves not-connected until then.
	for display := 0; display < cfg.Display.MaxDisplays; display++ {
		go func(d int) {
			if err := bridge.Initialize(ctx, d); err != nil {
				logger.Warn("display did not connect", zap.Int("display", d), zap.Error(err))
				return
			}
			logger.Info("display connected", zap.Int("display", d))
		}(display)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Run(net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		logger.Info("shutting down")
		cancel()
		for display := 0; display < cfg.Display.MaxDisplays; display++ {
			bridge.Uninitialize(display)
		}
		if err := srv.Close(); err != nil {
			logger.Error("shutdown error", zap.Error(err))
		}
	case err := <-errChan:
		logger.Fatal("server error", zap.Error(err))
	}
}

// colorMapSize disables the palette for direct-color formats.
func colorMapSize(format fb.Format, configured int) int {
	if !format.Indexed() {
		return 0
	}
	return configured
}
