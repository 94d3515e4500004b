package view

import (
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/format"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/models"
)

// LogsView renders the log list.
type LogsView struct {
	target   Target
	location *time.Location
}

type logLine struct {
	Class     string
	Timestamp string
	Level     string
	Message   string
}

func NewLogsView(target Target, location *time.Location) *LogsView {
	if location == nil {
		location = time.Local
	}
	return &LogsView{target: target, location: location}
}

func (v *LogsView) RenderLoading() {
	v.target.Patch(RegionLogsContainer, loadingBlock("Lade Logs..."))
}

// RenderLogs renders entries in the order received.
func (v *LogsView) RenderLogs(entries []models.LogEntry) {
	lines := make([]logLine, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, logLine{
			Class:     e.LevelClass(),
			Timestamp: format.TimestampIn(e.Timestamp, v.location),
			Level:     e.LevelLabel(),
			Message:   e.Message,
		})
	}
	patch(v.target, RegionLogsContainer, "logs-container", struct {
		Entries []logLine
	}{Entries: lines})
}

func (v *LogsView) RenderError(message string) {
	v.target.Patch(RegionLogsContainer, errorBlock("Fehler beim Laden der Logs: "+message))
}

func (v *LogsView) RenderAlert(message string) {
	renderBanner(v.target, Banner{Message: message})
}

func (v *LogsView) RenderConfirmClear() {
	patch(v.target, RegionMessages, "confirm-clear", nil)
}
