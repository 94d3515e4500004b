package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// DefaultSensorKeys are the measurement slots the backend declares.
var DefaultSensorKeys = []string{
	"pv_production",
	"grid_import",
	"grid_export",
	"battery_charge",
	"battery_discharge",
	"battery_soc",
	"house_consumption",
	"ev_charging",
	"heat_pump",
	"other_consumption",
}

type Health struct {
	HAConnected bool   `json:"ha_connected"`
	Status      string `json:"status,omitempty"`
}

type SensorReading struct {
	Value       *float64 `json:"value"`
	Unit        string   `json:"unit"`
	EntityID    string   `json:"entity_id"`
	State       string   `json:"state,omitempty"`
	LastUpdated string   `json:"last_updated,omitempty"`
}

// Readings maps a sensor key to its current reading.
type Readings map[string]SensorReading

type Production struct {
	PV    *float64 `json:"pv"`
	Total *float64 `json:"total"`
}

type Consumption struct {
	House         *float64 `json:"house"`
	EV            *float64 `json:"ev"`
	HeatPump      *float64 `json:"heat_pump"`
	Other         *float64 `json:"other"`
	BatteryCharge *float64 `json:"battery_charge"`
	Total         *float64 `json:"total"`
}

type Grid struct {
	Import *float64 `json:"import"`
	Export *float64 `json:"export"`
}

type Battery struct {
	Charge    *float64 `json:"charge"`
	Discharge *float64 `json:"discharge"`
	SOC       *float64 `json:"soc"`
}

type BalanceFigures struct {
	SelfConsumption     *float64 `json:"self_consumption"`
	SelfConsumptionRate *float64 `json:"self_consumption_rate"`
	TotalAvailable      *float64 `json:"total_available"`
}

// EnergyBalance is the backend's accounting snapshot. Any group may be absent.
type EnergyBalance struct {
	Production  *Production     `json:"production,omitempty"`
	Consumption *Consumption    `json:"consumption,omitempty"`
	Grid        *Grid           `json:"grid,omitempty"`
	Battery     *Battery        `json:"battery,omitempty"`
	Balance     *BalanceFigures `json:"balance,omitempty"`
	Timestamp   string          `json:"timestamp,omitempty"`
}

// Complete reports whether the groups needed for the balance panel are present.
func (b *EnergyBalance) Complete() bool {
	return b != nil &&
		b.Production != nil &&
		b.Consumption != nil &&
		b.Grid != nil &&
		b.Balance != nil
}

type DailySummary struct {
	TotalProduction     *float64 `json:"total_production"`
	TotalConsumption    *float64 `json:"total_consumption"`
	SelfConsumptionRate *float64 `json:"self_consumption_rate"`
}

type DailyStatistics struct {
	Date    string         `json:"date"`
	Balance *EnergyBalance `json:"balance,omitempty"`
	Summary *DailySummary  `json:"summary,omitempty"`
}

type DailyTotal string

const (
	Daily DailyTotal = "daily"
	Total DailyTotal = "total"
)

// ParseDailyTotal maps a form value to a DailyTotal; "" means none.
func ParseDailyTotal(s string) (*DailyTotal, error) {
	switch DailyTotal(s) {
	case "":
		return nil, nil
	case Daily, Total:
		dt := DailyTotal(s)
		return &dt, nil
	}
	return nil, fmt.Errorf("unknown daily_total value %q", s)
}

type SensorConfig struct {
	SensorKey  string      `json:"sensor_key"`
	EntityID   *string     `json:"entity_id"`
	DailyTotal *DailyTotal `json:"daily_total"`
	Enabled    bool        `json:"enabled"`
}

// UnmarshalJSON accepts the backend's SQLite integer booleans for enabled
// and treats a missing or null enabled as true.
func (c *SensorConfig) UnmarshalJSON(data []byte) error {
	type plain SensorConfig
	aux := struct {
		*plain
		Enabled json.RawMessage `json:"enabled"`
	}{plain: (*plain)(c)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	c.Enabled = true
	raw := bytes.TrimSpace(aux.Enabled)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Errorf("sensor config %q: %w", c.SensorKey, err)
	}
	enabled, err := cast.ToBoolE(v)
	if err != nil {
		return fmt.Errorf("sensor config %q: invalid enabled value: %w", c.SensorKey, err)
	}
	c.Enabled = enabled
	return nil
}

// DefaultSensorConfig is the form pre-fill for a key without stored config.
func DefaultSensorConfig(key string) SensorConfig {
	return SensorConfig{SensorKey: key, Enabled: true}
}

type AvailableEntity struct {
	EntityID     string  `json:"entity_id"`
	FriendlyName *string `json:"friendly_name"`
	Unit         *string `json:"unit"`
	StateClass   *string `json:"state_class,omitempty"`
}

// Label is the text shown for the entity in a selector.
func (e AvailableEntity) Label() string {
	label := e.EntityID
	if e.FriendlyName != nil && *e.FriendlyName != "" {
		label = *e.FriendlyName
	}
	if e.Unit != nil && *e.Unit != "" {
		label += " (" + *e.Unit + ")"
	}
	return label
}

type ConfigBundle struct {
	AvailableEntities []AvailableEntity `json:"available_entities"`
	SensorKeys        []string          `json:"sensor_keys"`
	SensorConfigs     []SensorConfig    `json:"sensor_configs"`
}

// Index maps sensor keys to their config. Later duplicates replace earlier ones.
func (b *ConfigBundle) Index() map[string]SensorConfig {
	index := make(map[string]SensorConfig, len(b.SensorConfigs))
	for _, c := range b.SensorConfigs {
		index[c.SensorKey] = c
	}
	return index
}

type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Level     string `json:"level"`
	Message   string `json:"message"`
}

// LevelClass is the lower-cased level used as CSS state, "info" when unknown.
func (l LogEntry) LevelClass() string {
	switch level := strings.ToLower(strings.TrimSpace(l.Level)); level {
	case "debug", "info", "warning", "error", "critical":
		return level
	case "warn":
		return "warning"
	}
	return "info"
}

// LevelLabel is the level as displayed, "INFO" when absent.
func (l LogEntry) LevelLabel() string {
	if strings.TrimSpace(l.Level) == "" {
		return "INFO"
	}
	return strings.ToUpper(l.Level)
}
