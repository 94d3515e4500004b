// Package homeassistant builds MQTT discovery messages so the mirrored
// energy balance shows up as sensors in Home Assistant.
package homeassistant

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

const deviceID = "haminiems_dashboard"

// Publisher is the part of an MQTT client used to send discovery configs.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

type balanceFigure struct {
	id          string
	name        string
	path        string
	deviceClass DeviceClass
	unit        Unit
	stateClass  string
	icon        string
}

var balanceFigures = []balanceFigure{
	{"pv_production", "PV-Produktion", "production.pv", Energy, KWh, "total_increasing", "mdi:solar-power"},
	{"total_production", "Gesamtproduktion", "production.total", Energy, KWh, "total_increasing", ""},
	{"house_consumption", "Hausverbrauch", "consumption.house", Energy, KWh, "total_increasing", "mdi:home-lightning-bolt"},
	{"grid_import", "Netzbezug", "grid.import", Energy, KWh, "total_increasing", "mdi:transmission-tower-import"},
	{"grid_export", "Netzeinspeisung", "grid.export", Energy, KWh, "total_increasing", "mdi:transmission-tower-export"},
	{"self_consumption", "Selbstverbrauch", "balance.self_consumption", Energy, KWh, "total_increasing", ""},
	{"self_consumption_rate", "Selbstverbrauchsrate", "balance.self_consumption_rate", NoDeviceClass, Percent, "measurement", "mdi:percent"},
	{"battery_soc", "Batterie-Ladezustand", "battery.soc", Battery, Percent, "measurement", ""},
}

// BalanceConfiguration describes one sensor per balance figure, each
// reading its value from the balance JSON on stateTopic.
func BalanceConfiguration(stateTopic string) []ConfigurationItem {
	device := Device{
		Identifiers:  []string{deviceID},
		Name:         "HAminiEMS Dashboard",
		Manufacturer: "HAminiEMS",
		Model:        "Energy Dashboard",
	}

	items := make([]ConfigurationItem, 0, len(balanceFigures))
	for _, f := range balanceFigures {
		items = append(items, ConfigurationItem{
			DeviceClass:       f.deviceClass,
			UnitOfMeasurement: f.unit,
			Device:            device,
			StateClass:        f.stateClass,
			UniqueId:          deviceID + "_" + f.id,
			ObjectId:          deviceID + "_" + f.id,
			Name:              f.name,
			StateTopic:        stateTopic,
			ValueTemplate:     fmt.Sprintf("{{ value_json.%s | default(none) }}", f.path),
			Icon:              f.icon,
		})
	}
	return items
}

// ConfigTopic is where Home Assistant expects the discovery config of item.
func ConfigTopic(discoveryPrefix string, item ConfigurationItem) string {
	return discoveryPrefix + "/sensor/" + item.ObjectId + "/config"
}

// SendConfigurationToHa publishes every item retained so Home Assistant
// picks them up again after a restart.
func SendConfigurationToHa(client Publisher, discoveryPrefix string, items []ConfigurationItem) error {
	for _, item := range items {
		b, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("failed to encode discovery config for %s: %w", item.Name, err)
		}
		token := client.Publish(ConfigTopic(discoveryPrefix, item), 0, true, b)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to publish discovery config for %s: %w", item.Name, token.Error())
		}
	}
	return nil
}
