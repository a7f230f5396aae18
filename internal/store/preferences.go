package store

import (
	"github.com/spf13/cast"

	"github.com/ayusman/presenter/internal/shape"
)

// Setting keys used for preferences.
const (
	KeyMirrored          = "mirrored"
	KeyBackgroundRemoval = "background_removal"
	KeyShape             = "shape"
	KeyWidth             = "width"
	KeyCamera            = "camera"
)

// Preferences are the user choices restored at startup.
type Preferences struct {
	Mirrored          bool
	BackgroundRemoval bool
	Shape             shape.Shape
	Width             float64
	CameraID          int
}

// LoadPreferences returns defaults overridden by whatever is stored.
// Stored values that fail to parse are ignored.
func (s *Store) LoadPreferences(defaults Preferences) (Preferences, error) {
	values, err := s.Settings().All()
	if err != nil {
		return defaults, err
	}

	p := defaults
	if v, ok := values[KeyMirrored]; ok {
		if b, err := cast.ToBoolE(v); err == nil {
			p.Mirrored = b
		}
	}
	if v, ok := values[KeyBackgroundRemoval]; ok {
		if b, err := cast.ToBoolE(v); err == nil {
			p.BackgroundRemoval = b
		}
	}
	if v, ok := values[KeyShape]; ok {
		if sh, err := shape.Parse(v); err == nil {
			p.Shape = sh
		}
	}
	if v, ok := values[KeyWidth]; ok {
		if w, err := cast.ToFloat64E(v); err == nil {
			p.Width = shape.ClampWidth(w)
		}
	}
	if v, ok := values[KeyCamera]; ok {
		if id, err := cast.ToIntE(v); err == nil && id >= 0 {
			p.CameraID = id
		}
	}

	return p, nil
}

// SavePreferences stores p.
func (s *Store) SavePreferences(p Preferences) error {
	return s.Settings().SetMany(map[string]string{
		KeyMirrored:          cast.ToString(p.Mirrored),
		KeyBackgroundRemoval: cast.ToString(p.BackgroundRemoval),
		KeyShape:             p.Shape.String(),
		KeyWidth:             cast.ToString(p.Width),
		KeyCamera:            cast.ToString(p.CameraID),
	})
}
