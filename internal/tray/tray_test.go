package tray

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ayusman/presenter/internal/capture"
	"github.com/ayusman/presenter/internal/shape"
)

func TestTray_Toggles(t *testing.T) {
	tr := New(MenuState{Shape: shape.Circle, Width: shape.DefaultWidth})

	var bg, mirror []bool
	tr.OnBackgroundRemoval(func(enabled bool) { bg = append(bg, enabled) })
	tr.OnMirror(func(enabled bool) { mirror = append(mirror, enabled) })

	tr.handleBackgroundRemoval()
	tr.handleBackgroundRemoval()
	tr.handleMirror()

	if diff := cmp.Diff([]bool{true, false}, bg); diff != "" {
		t.Errorf("background removal callbacks (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]bool{true}, mirror); diff != "" {
		t.Errorf("mirror callbacks (-want +got):\n%s", diff)
	}
	if st := tr.State(); st.BackgroundRemoval || !st.Mirrored {
		t.Errorf("State() = %+v, want mirrored without background removal", st)
	}
}

func TestTray_SizeAndShape(t *testing.T) {
	tr := New(MenuState{Shape: shape.Circle, Width: shape.DefaultWidth})

	var width float64
	var got shape.Shape
	tr.OnSize(func(w float64) { width = w })
	tr.OnShape(func(s shape.Shape) { got = s })

	tr.handleSize(2)
	if width != shape.Presets[2].Width {
		t.Errorf("size callback = %v, want %v", width, shape.Presets[2].Width)
	}

	tr.handleShape(1)
	if got != shape.All[1] {
		t.Errorf("shape callback = %v, want %v", got, shape.All[1])
	}

	// Out of range clicks are ignored.
	tr.handleSize(len(shape.Presets))
	tr.handleShape(-1)

	want := MenuState{Shape: shape.All[1], Width: shape.Presets[2].Width}
	if diff := cmp.Diff(want, tr.State()); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
}

func TestTray_Camera(t *testing.T) {
	tr := New(MenuState{})
	tr.SetCameras([]capture.Device{{ID: 0, Name: "Camera 0"}, {ID: 3, Name: "Camera 3"}})

	var picked capture.Device
	tr.OnCamera(func(dev capture.Device) { picked = dev })

	tr.handleCamera(1)
	if picked.ID != 3 {
		t.Errorf("camera callback = %v, want device 3", picked)
	}
	if tr.State().CameraID != 3 {
		t.Errorf("State().CameraID = %d, want 3", tr.State().CameraID)
	}

	tr.handleCamera(5)
	if tr.State().CameraID != 3 {
		t.Error("out of range camera click should be ignored")
	}
}

func TestTray_Update(t *testing.T) {
	tr := New(MenuState{})
	want := MenuState{BackgroundRemoval: true, Shape: shape.Landscape, Width: 300, CameraID: 1}

	tr.Update(want)
	if diff := cmp.Diff(want, tr.State()); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
}

func TestShapeLabel(t *testing.T) {
	tests := []struct {
		shape shape.Shape
		want  string
	}{
		{shape.Circle, "Circle"},
		{shape.Portrait, "Portrait"},
		{shape.Landscape, "Landscape"},
		{shape.Rectangle(2), "rectangle:2"},
	}

	for _, tt := range tests {
		if got := shapeLabel(tt.shape); got != tt.want {
			t.Errorf("shapeLabel(%v) = %q, want %q", tt.shape, got, tt.want)
		}
	}
}
