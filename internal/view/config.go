package view

import (
	"html/template"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/format"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/models"
)

type entityOption struct {
	Value    string
	Label    string
	Selected bool
}

type configRow struct {
	Key      string
	Title    string
	Entities []entityOption
	Type     string
	Enabled  bool
}

// Banner is a transient message shown above a form or list.
type Banner struct {
	Success      bool
	Message      string
	DismissAfter int64
	// RedirectTo, when set, makes the page navigate there after RedirectAfter ms.
	RedirectTo    string
	RedirectAfter int64
}

// ConfigView renders the sensor mapping form.
type ConfigView struct {
	target Target
}

func NewConfigView(target Target) *ConfigView {
	return &ConfigView{target: target}
}

func (v *ConfigView) RenderLoading() {
	v.target.Patch(RegionSensorConfigs, loadingBlock("Lade Konfiguration..."))
}

// RenderForm renders one row per declared sensor key, pre-filled from
// configs or with the defaults when a key has no stored config.
func (v *ConfigView) RenderForm(sensorKeys []string, entities []models.AvailableEntity, configs map[string]models.SensorConfig) {
	rows := make([]configRow, 0, len(sensorKeys))
	for _, key := range sensorKeys {
		cfg, ok := configs[key]
		if !ok {
			cfg = models.DefaultSensorConfig(key)
		}
		rows = append(rows, newConfigRow(key, cfg, entities))
	}
	patch(v.target, RegionSensorConfigs, "sensor-configs", struct {
		Rows []configRow
	}{Rows: rows})
}

func newConfigRow(key string, cfg models.SensorConfig, entities []models.AvailableEntity) configRow {
	selected := ""
	if cfg.EntityID != nil {
		selected = *cfg.EntityID
	}

	options := make([]entityOption, 0, len(entities))
	for _, e := range entities {
		options = append(options, entityOption{
			Value:    e.EntityID,
			Label:    e.Label(),
			Selected: selected != "" && e.EntityID == selected,
		})
	}

	row := configRow{
		Key:      key,
		Title:    format.SensorKey(key),
		Entities: options,
		Enabled:  cfg.Enabled,
	}
	if cfg.DailyTotal != nil {
		row.Type = string(*cfg.DailyTotal)
	}
	return row
}

func (v *ConfigView) RenderError(message string) {
	v.target.Patch(RegionSensorConfigs, errorBlock("Fehler beim Laden der Konfiguration: "+message))
}

func (v *ConfigView) RenderBanner(b Banner) {
	renderBanner(v.target, b)
}

func renderBanner(t Target, b Banner) {
	patch(t, RegionMessages, "banner", b)
}

// ClearMessages empties the banner region.
func ClearMessages(t Target) {
	t.Patch(RegionMessages, template.HTML(""))
}
