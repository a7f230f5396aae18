package capture

import (
	"fmt"

	"gocv.io/x/gocv"
)

// MaxProbeDevices bounds the device indices tried by Discover.
const MaxProbeDevices = 8

// Device identifies a capture device by its OpenCV index.
type Device struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// DefaultDevice is used when nothing else has been selected.
var DefaultDevice = Device{ID: 0, Name: deviceName(0)}

func (d Device) String() string {
	if d.Name == "" {
		return deviceName(d.ID)
	}
	return d.Name
}

func deviceName(id int) string {
	return fmt.Sprintf("Camera %d", id)
}

// Discover probes device indices [0, limit) and returns the ones that open.
// Devices already held by a running capture may not be reported.
func Discover(limit int) []Device {
	if limit <= 0 {
		limit = MaxProbeDevices
	}

	var devices []Device
	for id := 0; id < limit; id++ {
		vc, err := gocv.OpenVideoCapture(id)
		if err != nil {
			continue
		}
		if vc.IsOpened() {
			devices = append(devices, Device{ID: id, Name: deviceName(id)})
		}
		vc.Close()
	}

	return devices
}
