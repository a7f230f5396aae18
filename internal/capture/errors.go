package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDevice is returned when no capture device can be selected.
	ErrNoDevice = errors.New("no capture device available")
	// ErrDeviceUnavailable is returned when the selected device cannot be
	// opened, for example because permission was denied or it is in use.
	ErrDeviceUnavailable = errors.New("capture device unavailable")
)

// CaptureError reports a failed Start. It is fatal to that start attempt
// only; the source stays stopped and can be started again.
type CaptureError struct {
	Device Device
	Err    error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Device, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
