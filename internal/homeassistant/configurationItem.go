package homeassistant

type Device struct {
	Identifiers  []string `json:"identifiers"`
	Name         string   `json:"name"`
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model,omitempty"`
}

// ConfigurationItem is the payload of a sensor discovery message. Zero
// DeviceClass and UnitOfMeasurement are left out.
type ConfigurationItem struct {
	DeviceClass       DeviceClass `json:"device_class,omitempty"`
	UnitOfMeasurement Unit        `json:"unit_of_measurement,omitempty"`
	Device            Device      `json:"device"`
	StateClass        string      `json:"state_class,omitempty"`
	UniqueId          string      `json:"unique_id"`
	ObjectId          string      `json:"object_id"`
	Name              string      `json:"name"`
	StateTopic        string      `json:"state_topic"`
	ValueTemplate     string      `json:"value_template,omitempty"`
	Icon              string      `json:"icon,omitempty"`
}
