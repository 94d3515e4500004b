package view

import (
	"html/template"
	"sort"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/format"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/models"

	"golang.org/x/exp/maps"
)

type sensorCard struct {
	Key        string
	Title      string
	Value      string
	Unit       string
	EntityID   string
	Configured bool
}

type balancePanel struct {
	Error     string
	Complete  bool
	Items     []item
	Timestamp string
}

type dailyPanel struct {
	Error string
	Date  string
	Items []item
}

// DashboardView renders the dashboard regions. The sensor grid shows one
// card per known sensor key, whether or not the backend returned a value.
type DashboardView struct {
	target     Target
	sensorKeys []string
	location   *time.Location
}

func NewDashboardView(target Target, sensorKeys []string, location *time.Location) *DashboardView {
	if location == nil {
		location = time.Local
	}
	return &DashboardView{
		target:     target,
		sensorKeys: append([]string(nil), sensorKeys...),
		location:   location,
	}
}

// RenderLoading fills every region with its initial placeholder.
func (v *DashboardView) RenderLoading() {
	v.target.Patch(RegionConnectionStatus, template.HTML(`<span class="status">Prüfe...</span>`))
	v.target.Patch(RegionSensorsGrid, loadingBlock("Lade Sensoren..."))
	v.target.Patch(RegionEnergyBalance, template.HTML("<h2>Energiebilanz</h2>")+loadingBlock("Lade Energiebilanz..."))
	v.target.Patch(RegionLastUpdate, template.HTML(format.Placeholder))
}

func (v *DashboardView) RenderHealth(health *models.Health) {
	patch(v.target, RegionConnectionStatus, "connection-status", struct {
		Failed    bool
		Connected bool
	}{Connected: health != nil && health.HAConnected})
}

func (v *DashboardView) RenderHealthError(string) {
	patch(v.target, RegionConnectionStatus, "connection-status", struct {
		Failed    bool
		Connected bool
	}{Failed: true})
}

// RenderSensors renders the sensor grid and stamps the last-update marker.
func (v *DashboardView) RenderSensors(readings models.Readings, at time.Time) {
	patch(v.target, RegionSensorsGrid, "sensors-grid", struct {
		Cards []sensorCard
	}{Cards: v.sensorCards(readings)})
	v.target.Patch(RegionLastUpdate, template.HTML(format.EscapeText(format.Clock(at.In(v.location)))))
}

func (v *DashboardView) RenderSensorsError(message string) {
	v.target.Patch(RegionSensorsGrid, errorBlock("Fehler beim Laden der Sensoren: "+message))
}

func (v *DashboardView) sensorCards(readings models.Readings) []sensorCard {
	known := make(map[string]bool, len(v.sensorKeys))
	cards := make([]sensorCard, 0, len(v.sensorKeys)+len(readings))

	for _, key := range v.sensorKeys {
		known[key] = true
		reading, ok := readings[key]
		cards = append(cards, newSensorCard(key, reading, ok))
	}

	extra := maps.Keys(readings)
	sort.Strings(extra)
	for _, key := range extra {
		if known[key] {
			continue
		}
		cards = append(cards, newSensorCard(key, readings[key], true))
	}
	return cards
}

func newSensorCard(key string, reading models.SensorReading, present bool) sensorCard {
	card := sensorCard{
		Key:   key,
		Title: format.SensorKey(key),
	}
	if !present || reading.Value == nil {
		return card
	}
	card.Configured = true
	card.Value = format.Number(reading.Value)
	card.Unit = reading.Unit
	card.EntityID = reading.EntityID
	return card
}

// RenderBalance renders the balance panel, or the no-data placeholder when
// a required group is missing.
func (v *DashboardView) RenderBalance(balance *models.EnergyBalance) {
	panel := balancePanel{Complete: balance.Complete()}
	if panel.Complete {
		panel.Items = balanceItems(balance)
		if balance.Timestamp != "" {
			panel.Timestamp = format.TimestampIn(balance.Timestamp, v.location)
		}
	}
	patch(v.target, RegionEnergyBalance, "energy-balance", panel)
}

func (v *DashboardView) RenderBalanceError(message string) {
	patch(v.target, RegionEnergyBalance, "energy-balance", balancePanel{Error: message})
}

func balanceItems(b *models.EnergyBalance) []item {
	items := []item{
		{Label: "PV-Produktion", Value: format.Number(b.Production.PV)},
		{Label: "Hausverbrauch", Value: format.Number(b.Consumption.House)},
		{Label: "Netzbezug", Value: format.Number(b.Grid.Import)},
		{Label: "Netzeinspeisung", Value: format.Number(b.Grid.Export)},
		{Label: "Selbstverbrauch", Value: format.Number(b.Balance.SelfConsumption)},
		{Label: "Selbstverbrauchsrate", Value: percent(b.Balance.SelfConsumptionRate)},
	}

	if b.Battery != nil {
		items = appendPresent(items, "Batterie-Ladung", b.Battery.Charge, "")
		items = appendPresent(items, "Batterie-Entladung", b.Battery.Discharge, "")
		items = appendPresent(items, "Batterie-Ladezustand", b.Battery.SOC, "%")
	}
	items = appendPresent(items, "Gesamtproduktion", b.Production.Total, "")
	items = appendPresent(items, "Gesamtverbrauch", b.Consumption.Total, "")
	items = appendPresent(items, "Verfügbare Energie", b.Balance.TotalAvailable, "")
	return items
}

func appendPresent(items []item, label string, value *float64, suffix string) []item {
	if value == nil {
		return items
	}
	return append(items, item{Label: label, Value: format.Number(value) + suffix})
}

func percent(v *float64) string {
	if v == nil {
		return format.Placeholder
	}
	return format.Number(v) + "%"
}

func (v *DashboardView) RenderDaily(stats *models.DailyStatistics) {
	panel := dailyPanel{}
	if stats != nil {
		panel.Date = stats.Date
		if s := stats.Summary; s != nil {
			panel.Items = []item{
				{Label: "Produktion", Value: format.Number(s.TotalProduction)},
				{Label: "Verbrauch", Value: format.Number(s.TotalConsumption)},
				{Label: "Selbstverbrauchsrate", Value: percent(s.SelfConsumptionRate)},
			}
		}
	}
	patch(v.target, RegionDailySummary, "daily-summary", panel)
}

func (v *DashboardView) RenderDailyError(message string) {
	patch(v.target, RegionDailySummary, "daily-summary", dailyPanel{Error: message})
}
