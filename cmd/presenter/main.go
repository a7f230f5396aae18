package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/presenter/internal/app"
	"github.com/ayusman/presenter/internal/capture"
	"github.com/ayusman/presenter/internal/composite"
	"github.com/ayusman/presenter/internal/config"
	"github.com/ayusman/presenter/internal/logging"
	"github.com/ayusman/presenter/internal/overlay"
	"github.com/ayusman/presenter/internal/segment"
	"github.com/ayusman/presenter/internal/server"
	"github.com/ayusman/presenter/internal/store"
)

// OpenCV windows must be driven from the main thread.
func init() {
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "presenter: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", config.DefaultPath(), "path to the YAML configuration file")
	envFile := flag.String("env", ".env", "path to an optional .env file")
	listCameras := flag.Bool("list-cameras", false, "list available cameras and exit")
	flag.Parse()

	if err := config.LoadDotEnv(*envFile); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log, logCloser, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	if *listCameras {
		for _, dev := range capture.Discover(capture.MaxProbeDevices) {
			fmt.Printf("%d\t%s\n", dev.ID, dev)
		}
		return nil
	}

	log.WithField("config", *configPath).Info("Presenter - floating camera overlay")

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	defer st.Close()

	engine, err := segment.New(cfg.Segment, log)
	if err != nil {
		// The overlay still works without background removal.
		log.WithError(err).Warn("background removal unavailable")
		engine = nil
	}

	source := capture.NewSource(capture.SourceConfig{
		Camera:        cfg.Capture.Camera(),
		DefaultDevice: capture.Device{ID: cfg.Capture.Device},
		Logger:        log,
	})

	a := app.New(app.Config{
		Source:     source,
		Engine:     engine,
		Compositor: composite.Compositor{Interpolation: cfg.Interpolation()},
		Store:      st,
		Defaults: store.Preferences{
			Mirrored:          cfg.Overlay.Mirrored,
			BackgroundRemoval: cfg.Overlay.BackgroundRemoval,
			Shape:             cfg.OverlayShape(),
			Width:             cfg.Overlay.Width,
			CameraID:          cfg.Capture.Device,
		},
		Logger: log,
	})
	defer func() {
		if err := a.Close(); err != nil {
			log.WithError(err).Error("shutdown")
		}
	}()

	if err := a.Start(nil); err != nil {
		var capErr *capture.CaptureError
		if !errors.As(err, &capErr) {
			return err
		}
		// Keep running so the user can pick another camera.
		log.WithError(err).Error("camera unavailable")
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(sigCtx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			StaticDir:    cfg.Server.StaticDir,
			App:          a,
			CornerRadius: cfg.Overlay.CornerRadius,
			Logger:       log,
		})
		g.Go(func() error {
			if err := srv.ListenAndServe(gctx, cfg.Server.Addr); err != nil {
				return fmt.Errorf("control API: %w", err)
			}
			return nil
		})
	}

	if cfg.Tray.Enabled {
		runTray(gctx, g, a, cancel, log)
	}

	renderer := overlay.NewRenderer()
	renderer.CornerRadius = cfg.Overlay.CornerRadius

	windowConfig := overlay.DefaultWindowConfig()
	windowConfig.FPS = cfg.Overlay.FPS
	window := overlay.NewWindow(windowConfig, a.State(), renderer, log)

	// Blocks until the window is closed, q is pressed or ctx ends.
	if err := window.Run(gctx); err != nil {
		log.WithError(err).Error("overlay window")
	}
	cancel()

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	log.Info("Shutting down")
	return nil
}

func logFields(log logrus.FieldLogger, dev capture.Device) logrus.FieldLogger {
	return log.WithFields(logrus.Fields{"device": dev.ID, "name": dev.String()})
}
