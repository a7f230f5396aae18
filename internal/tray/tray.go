// Package tray provides the system tray menu for the presenter overlay.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/presenter/internal/capture"
	"github.com/ayusman/presenter/internal/shape"
)

// MenuState is what the menu shows as checked.
type MenuState struct {
	BackgroundRemoval bool
	Mirrored          bool
	Shape             shape.Shape
	Width             float64
	CameraID          int
}

// Tray represents the system tray application.
type Tray struct {
	onBackgroundRemoval func(enabled bool)
	onMirror            func(enabled bool)
	onShape             func(s shape.Shape)
	onSize              func(width float64)
	onCamera            func(dev capture.Device)
	onQuit              func()

	state   MenuState
	cameras []capture.Device
	mu      sync.RWMutex

	// Menu items stored for later updates
	menuBackground *systray.MenuItem
	menuMirror     *systray.MenuItem
	menuShapes     []*systray.MenuItem
	menuSizes      []*systray.MenuItem
	menuCameras    []*systray.MenuItem
}

// New creates a new Tray showing state.
func New(state MenuState) *Tray {
	return &Tray{state: state}
}

// OnBackgroundRemoval sets the callback for the Remove Background item.
func (t *Tray) OnBackgroundRemoval(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onBackgroundRemoval = fn
}

// OnMirror sets the callback for the Mirror Camera item.
func (t *Tray) OnMirror(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onMirror = fn
}

// OnShape sets the callback for the Shape submenu.
func (t *Tray) OnShape(fn func(s shape.Shape)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onShape = fn
}

// OnSize sets the callback for the Size submenu.
func (t *Tray) OnSize(fn func(width float64)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSize = fn
}

// OnCamera sets the callback for the Camera submenu.
func (t *Tray) OnCamera(fn func(dev capture.Device)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onCamera = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// SetCameras sets the cameras offered by the Camera submenu. The submenu
// only appears when there is more than one. Call before Run.
func (t *Tray) SetCameras(cameras []capture.Device) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cameras = append([]capture.Device(nil), cameras...)
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray, making Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

// onReady is called when the system tray is ready.
// It sets up the menu structure.
func (t *Tray) onReady() {
	systray.SetTitle("Presenter")
	systray.SetTooltip("Presenter camera overlay")

	t.mu.Lock()

	menuSize := systray.AddMenuItem("Size", "Overlay size")
	t.menuSizes = make([]*systray.MenuItem, len(shape.Presets))
	for i, p := range shape.Presets {
		t.menuSizes[i] = menuSize.AddSubMenuItemCheckbox(p.Label, "", t.state.Width == p.Width)
	}

	menuShape := systray.AddMenuItem("Shape", "Overlay shape")
	t.menuShapes = make([]*systray.MenuItem, len(shape.All))
	for i, s := range shape.All {
		t.menuShapes[i] = menuShape.AddSubMenuItemCheckbox(shapeLabel(s), "", t.state.Shape == s)
	}
	systray.AddSeparator()

	t.menuBackground = systray.AddMenuItemCheckbox("Remove Background", "Show only the presenter (b)", t.state.BackgroundRemoval)
	t.menuMirror = systray.AddMenuItemCheckbox("Mirror Camera", "Flip the camera image (m)", t.state.Mirrored)

	if len(t.cameras) > 1 {
		systray.AddSeparator()
		menuCamera := systray.AddMenuItem("Camera", "Capture device")
		t.menuCameras = make([]*systray.MenuItem, len(t.cameras))
		for i, dev := range t.cameras {
			t.menuCameras[i] = menuCamera.AddSubMenuItemCheckbox(dev.String(), "", t.state.CameraID == dev.ID)
		}
	}
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Presenter (q)")

	// Handle menu item clicks in separate goroutines
	for i, item := range t.menuSizes {
		go t.listen(item, func() { t.handleSize(i) })
	}
	for i, item := range t.menuShapes {
		go t.listen(item, func() { t.handleShape(i) })
	}
	for i, item := range t.menuCameras {
		go t.listen(item, func() { t.handleCamera(i) })
	}
	go t.listen(t.menuBackground, t.handleBackgroundRemoval)
	go t.listen(t.menuMirror, t.handleMirror)

	t.mu.Unlock()

	go func() {
		<-menuQuit.ClickedCh
		t.handleQuit()
	}()
}

func (t *Tray) listen(item *systray.MenuItem, handle func()) {
	for range item.ClickedCh {
		handle()
	}
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {}

// Update reflects state changed elsewhere, for example from a window key
// or the control API.
func (t *Tray) Update(state MenuState) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = state
	t.refreshLocked()
}

// State returns what the menu currently shows.
func (t *Tray) State() MenuState {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.state
}

func (t *Tray) refreshLocked() {
	setChecked(t.menuBackground, t.state.BackgroundRemoval)
	setChecked(t.menuMirror, t.state.Mirrored)
	for i, item := range t.menuSizes {
		setChecked(item, shape.Presets[i].Width == t.state.Width)
	}
	for i, item := range t.menuShapes {
		setChecked(item, shape.All[i] == t.state.Shape)
	}
	for i, item := range t.menuCameras {
		setChecked(item, t.cameras[i].ID == t.state.CameraID)
	}
}

// handleBackgroundRemoval handles the Remove Background item click.
func (t *Tray) handleBackgroundRemoval() {
	t.mu.Lock()
	t.state.BackgroundRemoval = !t.state.BackgroundRemoval
	enabled := t.state.BackgroundRemoval
	t.refreshLocked()
	callback := t.onBackgroundRemoval
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
}

// handleMirror handles the Mirror Camera item click.
func (t *Tray) handleMirror() {
	t.mu.Lock()
	t.state.Mirrored = !t.state.Mirrored
	enabled := t.state.Mirrored
	t.refreshLocked()
	callback := t.onMirror
	t.mu.Unlock()

	if callback != nil {
		callback(enabled)
	}
}

// handleSize handles a click on the i-th size preset.
func (t *Tray) handleSize(i int) {
	if i < 0 || i >= len(shape.Presets) {
		return
	}

	t.mu.Lock()
	t.state.Width = shape.Presets[i].Width
	width := t.state.Width
	t.refreshLocked()
	callback := t.onSize
	t.mu.Unlock()

	if callback != nil {
		callback(width)
	}
}

// handleShape handles a click on the i-th shape.
func (t *Tray) handleShape(i int) {
	if i < 0 || i >= len(shape.All) {
		return
	}

	t.mu.Lock()
	t.state.Shape = shape.All[i]
	s := t.state.Shape
	t.refreshLocked()
	callback := t.onShape
	t.mu.Unlock()

	if callback != nil {
		callback(s)
	}
}

// handleCamera handles a click on the i-th camera.
func (t *Tray) handleCamera(i int) {
	t.mu.Lock()
	if i < 0 || i >= len(t.cameras) {
		t.mu.Unlock()
		return
	}
	dev := t.cameras[i]
	t.state.CameraID = dev.ID
	t.refreshLocked()
	callback := t.onCamera
	t.mu.Unlock()

	if callback != nil {
		callback(dev)
	}
}

// handleQuit handles the quit menu item click.
func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

func setChecked(item *systray.MenuItem, checked bool) {
	if item == nil {
		return
	}
	if checked {
		item.Check()
	} else {
		item.Uncheck()
	}
}

func shapeLabel(s shape.Shape) string {
	switch s {
	case shape.Circle:
		return "Circle"
	case shape.Portrait:
		return "Portrait"
	case shape.Landscape:
		return "Landscape"
	}
	return s.String()
}
