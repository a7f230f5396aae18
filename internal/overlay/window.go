package overlay

import (
	"context"
	"fmt"
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/presenter/internal/app"
)

// WindowConfig configures the preview window.
type WindowConfig struct {
	Title string
	// FPS bounds how often the window redraws.
	FPS int
	// Background fills the transparent area outside the shape.
	Background color.Color
}

// DefaultWindowConfig returns a WindowConfig with sensible default values.
func DefaultWindowConfig() WindowConfig {
	return WindowConfig{
		Title:      "Presenter",
		FPS:        30,
		Background: color.Black,
	}
}

// Window presents the overlay in an OpenCV window and maps key presses to
// state changes. OpenCV windows must be driven from the main goroutine.
type Window struct {
	config   WindowConfig
	state    *app.State
	renderer *Renderer
	log      logrus.FieldLogger
}

// NewWindow creates a window that renders st with r.
func NewWindow(config WindowConfig, st *app.State, r *Renderer, log logrus.FieldLogger) *Window {
	if config.FPS <= 0 {
		config.FPS = DefaultWindowConfig().FPS
	}
	if config.Title == "" {
		config.Title = DefaultWindowConfig().Title
	}
	if config.Background == nil {
		config.Background = DefaultWindowConfig().Background
	}
	if log == nil {
		log = logrus.StandardLogger()
	}

	return &Window{
		config:   config,
		state:    st,
		renderer: r,
		log:      log.WithField("component", "overlay"),
	}
}

// Run shows the overlay until ctx is canceled, the window is closed or the
// user presses q. It returns nil in all three cases.
func (w *Window) Run(ctx context.Context) error {
	win := gocv.NewWindow(w.config.Title)
	defer win.Close()

	delay := 1000 / w.config.FPS
	if delay < 1 {
		delay = 1
	}

	var shown image.Point
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		img := w.renderer.Render(w.state.Snapshot())
		if size := img.Bounds().Size(); size != shown && size.X > 0 && size.Y > 0 {
			win.ResizeWindow(size.X, size.Y)
			shown = size
		}

		if err := w.show(win, img); err != nil {
			w.log.WithError(err).Debug("failed to show frame")
		}

		key := win.WaitKey(delay)
		if key >= 0 && HandleKey(key, w.state) == ActionQuit {
			w.log.Info("quit requested from window")
			return nil
		}
		if !win.IsOpen() {
			return nil
		}
	}
}

func (w *Window) show(win *gocv.Window, img *image.NRGBA) error {
	if img.Bounds().Empty() {
		return nil
	}

	mat, err := gocv.ImageToMatRGB(Flatten(img, w.config.Background))
	if err != nil {
		return fmt.Errorf("convert overlay: %w", err)
	}
	defer mat.Close()

	win.IMShow(mat)
	return nil
}

// Flatten composes img over an opaque background.
func Flatten(img image.Image, background color.Color) image.Image {
	b := img.Bounds()
	dc := gg.NewContext(b.Dx(), b.Dy())
	dc.SetColor(background)
	dc.Clear()
	dc.DrawImage(img, -b.Min.X, -b.Min.Y)
	return dc.Image()
}
