package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensorConfig_EnabledDecoding(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    bool
	}{
		{"json true", `{"sensor_key":"pv_production","enabled":true}`, true},
		{"json false", `{"sensor_key":"pv_production","enabled":false}`, false},
		{"sqlite one", `{"sensor_key":"pv_production","enabled":1}`, true},
		{"sqlite zero", `{"sensor_key":"pv_production","enabled":0}`, false},
		{"null", `{"sensor_key":"pv_production","enabled":null}`, true},
		{"missing", `{"sensor_key":"pv_production"}`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cfg SensorConfig
			require.NoError(t, json.Unmarshal([]byte(tt.payload), &cfg))
			assert.Equal(t, "pv_production", cfg.SensorKey)
			assert.Equal(t, tt.want, cfg.Enabled)
		})
	}
}

func TestSensorConfig_NullableFields(t *testing.T) {
	var cfg SensorConfig
	require.NoError(t, json.Unmarshal([]byte(`{"sensor_key":"grid_import","entity_id":"sensor.grid","daily_total":"total","enabled":1}`), &cfg))
	require.NotNil(t, cfg.EntityID)
	assert.Equal(t, "sensor.grid", *cfg.EntityID)
	require.NotNil(t, cfg.DailyTotal)
	assert.Equal(t, Total, *cfg.DailyTotal)

	out, err := json.Marshal(DefaultSensorConfig("heat_pump"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"sensor_key":"heat_pump","entity_id":null,"daily_total":null,"enabled":true}`, string(out))
}

func TestParseDailyTotal(t *testing.T) {
	dt, err := ParseDailyTotal("")
	require.NoError(t, err)
	assert.Nil(t, dt)

	dt, err = ParseDailyTotal("daily")
	require.NoError(t, err)
	assert.Equal(t, Daily, *dt)

	_, err = ParseDailyTotal("weekly")
	assert.Error(t, err)
}

func TestConfigBundle_Index(t *testing.T) {
	first := "sensor.first"
	second := "sensor.second"
	bundle := ConfigBundle{SensorConfigs: []SensorConfig{
		{SensorKey: "pv_production", EntityID: &first},
		{SensorKey: "grid_import"},
		{SensorKey: "pv_production", EntityID: &second},
	}}

	index := bundle.Index()
	assert.Len(t, index, 2)
	assert.Equal(t, "sensor.second", *index["pv_production"].EntityID)
}

func TestEnergyBalance_Complete(t *testing.T) {
	var nilBalance *EnergyBalance
	assert.False(t, nilBalance.Complete())

	var b EnergyBalance
	require.NoError(t, json.Unmarshal([]byte(`{
		"production": {"pv": 1.5},
		"consumption": {"house": 2},
		"balance": {"self_consumption": 1}
	}`), &b))
	assert.False(t, b.Complete(), "grid group is missing")

	b.Grid = &Grid{}
	assert.True(t, b.Complete())
}

func TestAvailableEntity_Label(t *testing.T) {
	name := "PV Erzeugung"
	unit := "kWh"
	empty := ""

	assert.Equal(t, "sensor.pv", AvailableEntity{EntityID: "sensor.pv"}.Label())
	assert.Equal(t, "PV Erzeugung (kWh)", AvailableEntity{EntityID: "sensor.pv", FriendlyName: &name, Unit: &unit}.Label())
	assert.Equal(t, "sensor.pv", AvailableEntity{EntityID: "sensor.pv", FriendlyName: &empty}.Label())
}

func TestLogEntry_Level(t *testing.T) {
	assert.Equal(t, "error", LogEntry{Level: "ERROR"}.LevelClass())
	assert.Equal(t, "warning", LogEntry{Level: "Warn"}.LevelClass())
	assert.Equal(t, "info", LogEntry{Level: ""}.LevelClass())
	assert.Equal(t, "info", LogEntry{Level: "verbose"}.LevelClass())

	assert.Equal(t, "INFO", LogEntry{}.LevelLabel())
	assert.Equal(t, "WARNING", LogEntry{Level: "warning"}.LevelLabel())
}
