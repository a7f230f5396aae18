package main

import (
	"context"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ayusman/presenter/internal/app"
	"github.com/ayusman/presenter/internal/capture"
	"github.com/ayusman/presenter/internal/tray"
)

// runTray starts the tray menu and keeps its checkmarks in step with the
// state, which the window keys and the control API change too.
func runTray(ctx context.Context, g *errgroup.Group, a *app.App, quit func(), log logrus.FieldLogger) {
	st := a.State()
	t := tray.New(menuState(st.Snapshot(), a.SelectedCamera()))
	t.SetCameras(a.Cameras())

	t.OnBackgroundRemoval(st.SetBackgroundRemoval)
	t.OnMirror(st.SetMirrored)
	t.OnShape(st.SetShape)
	t.OnSize(st.SetWidth)
	t.OnCamera(func(dev capture.Device) {
		if err := a.SelectCamera(dev); err != nil {
			logFields(log, dev).WithError(err).Warn("failed to switch camera")
			return
		}
		logFields(log, dev).Info("switched camera")
	})
	t.OnQuit(quit)

	g.Go(func() error {
		runtime.LockOSThread()
		t.Run()
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		t.Quit()
		return nil
	})

	g.Go(func() error {
		_, events, cancel := st.Subscribe()
		defer cancel()

		last := t.State()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-events:
				cur := menuState(st.Snapshot(), a.SelectedCamera())
				if cur != last {
					t.Update(cur)
					last = cur
				}
			}
		}
	})
}

func menuState(snap app.Snapshot, cam capture.Device) tray.MenuState {
	return tray.MenuState{
		BackgroundRemoval: snap.BackgroundRemoval,
		Mirrored:          snap.Mirrored,
		Shape:             snap.Shape,
		Width:             snap.Width,
		CameraID:          cam.ID,
	}
}
