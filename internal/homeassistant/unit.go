package homeassistant

import "encoding/json"

type Unit int64

const (
	NoUnit Unit = iota
	W
	KWh
	Percent
)

func (s Unit) String() string {
	switch s {
	case W:
		return "W"
	case KWh:
		return "kWh"
	case Percent:
		return "%"
	}
	return "unknown"
}

func (s Unit) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}
