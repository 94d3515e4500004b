package homeassistant

import "encoding/json"

type DeviceClass int64

const (
	NoDeviceClass DeviceClass = iota
	Energy
	Power
	Battery
)

func (s DeviceClass) String() string {
	switch s {
	case Energy:
		return "energy"
	case Power:
		return "power"
	case Battery:
		return "battery"
	}
	return "unknown"
}

func (s DeviceClass) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
