// Package view renders dashboard, configuration and log data into named
// regions of a Target.
package view

import (
	"bytes"
	"embed"
	"html/template"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/format"
)

// Region ids shared with the page templates and the browser script.
const (
	RegionConnectionStatus = "connection-status"
	RegionSensorsGrid      = "sensors-grid"
	RegionEnergyBalance    = "energy-balance"
	RegionDailySummary     = "daily-summary"
	RegionLastUpdate       = "last-update"
	RegionSensorConfigs    = "sensor-configs"
	RegionLogsContainer    = "logs-container"
	RegionMessages         = "messages"
)

//go:embed templates/*.html
var templateFS embed.FS

var fragments = template.Must(template.New("fragments").ParseFS(templateFS, "templates/*.html"))

type item struct {
	Label string
	Value string
}

// patch executes the named fragment and writes it into region id. A failing
// template still produces visible output instead of a stale region.
func patch(t Target, id, name string, data interface{}) {
	var buf bytes.Buffer
	if err := fragments.ExecuteTemplate(&buf, name, data); err != nil {
		t.Patch(id, errorBlock("Darstellungsfehler: "+err.Error()))
		return
	}
	t.Patch(id, template.HTML(buf.String()))
}

// errorBlock builds the inline error block. The message is escaped.
func errorBlock(message string) template.HTML {
	return template.HTML(`<div class="error">` + format.EscapeText(message) + `</div>`)
}

func loadingBlock(message string) template.HTML {
	return template.HTML(`<div class="loading">` + format.EscapeText(message) + `</div>`)
}
