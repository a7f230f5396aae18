package app

import (
	"github.com/ayusman/presenter/internal/capture"
	"github.com/ayusman/presenter/internal/store"
)

func (a *App) applyPreferences(p store.Preferences) {
	a.state.SetMirrored(p.Mirrored)
	a.state.SetBackgroundRemoval(p.BackgroundRemoval)
	a.state.SetShape(p.Shape)
	a.state.SetWidth(p.Width)
	a.setSelected(capture.Device{ID: p.CameraID})
}

func (a *App) currentPreferences() store.Preferences {
	snap := a.state.Snapshot()
	return store.Preferences{
		Mirrored:          snap.Mirrored,
		BackgroundRemoval: snap.BackgroundRemoval,
		Shape:             snap.Shape,
		Width:             snap.Width,
		CameraID:          int(a.cameraID.Load()),
	}
}

// watchPreferences schedules a save whenever the state changes.
func (a *App) watchPreferences(events <-chan Event, quit <-chan struct{}) {
	defer close(a.watchDone)

	for {
		select {
		case <-quit:
			return
		case <-events:
			a.preferencesChanged()
		}
	}
}

// preferencesChanged schedules a debounced save if the preferences differ
// from the last ones scheduled.
func (a *App) preferencesChanged() {
	if a.config.Store == nil {
		return
	}

	p := a.currentPreferences()

	a.prefsMu.Lock()
	defer a.prefsMu.Unlock()

	if a.prefsClosed || p == a.wanted {
		return
	}
	a.wanted = p
	a.debounced(func() { a.savePreferences(p) })
}

func (a *App) savePreferences(p store.Preferences) {
	a.prefsMu.Lock()
	defer a.prefsMu.Unlock()

	if a.prefsClosed || p != a.wanted {
		return
	}
	if err := a.config.Store.SavePreferences(p); err != nil {
		a.log.WithError(err).Warn("failed to save preferences")
		return
	}
	a.saved = p
	a.log.WithField("shape", p.Shape.String()).Debug("preferences saved")
}

// flushPreferences writes anything still waiting on the debounce and stops
// further saves.
func (a *App) flushPreferences() error {
	a.prefsMu.Lock()
	defer a.prefsMu.Unlock()

	a.prefsClosed = true
	a.wanted = a.currentPreferences()
	if a.wanted == a.saved {
		return nil
	}
	if err := a.config.Store.SavePreferences(a.wanted); err != nil {
		return err
	}
	a.saved = a.wanted
	return nil
}
