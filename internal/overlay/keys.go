package overlay

import (
	"github.com/ayusman/presenter/internal/app"
	"github.com/ayusman/presenter/internal/shape"
)

// Action is what the window loop should do after a key press.
type Action int

const (
	ActionNone Action = iota
	ActionQuit
)

// Resize step for the + and - keys, as a magnification factor.
const resizeStep = 0.1

// HandleKey applies a window key shortcut to st.
//
//	b        toggle background removal
//	m        toggle mirroring
//	s        cycle shape
//	+ / -    grow / shrink
//	1 2 3    size presets
//	q, Esc   quit
func HandleKey(key int, st *app.State) Action {
	switch key {
	case 'b', 'B':
		st.ToggleBackgroundRemoval()
	case 'm', 'M':
		st.ToggleMirrored()
	case 's', 'S':
		st.SetShape(shape.Next(st.Shape()))
	case '+', '=':
		st.SetWidth(shape.Magnify(st.Width(), resizeStep))
	case '-', '_':
		st.SetWidth(shape.Magnify(st.Width(), -resizeStep))
	case '1', '2', '3':
		if i := key - '1'; i < len(shape.Presets) {
			st.SetWidth(shape.Presets[i].Width)
		}
	case 'q', 'Q', 27:
		return ActionQuit
	}
	return ActionNone
}
