package format

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestSensorKey(t *testing.T) {
	assert.Equal(t, "Pv Production", SensorKey("pv_production"))
	assert.Equal(t, "", SensorKey(""))
	assert.Equal(t, "Heat Pump", SensorKey("heat_pump"))
	assert.Equal(t, "Battery  Soc", SensorKey("battery__soc"))
	assert.Equal(t, "Übertrag", SensorKey("übertrag"))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, Placeholder, Number(nil))
	assert.Equal(t, "42", Number(ptr(42)))
	assert.Equal(t, "1.234,57", Number(ptr(1234.567)))
	assert.Equal(t, "0,5", Number(ptr(0.5)))
	assert.Equal(t, "-12,25", Number(ptr(-12.25)))
}

func TestTimestamp_ParsesBackendFormats(t *testing.T) {
	assert.Equal(t, "16.10.2026, 14:03:05", TimestampIn("2026-10-16T14:03:05", time.UTC))
	assert.Equal(t, "16.10.2026, 14:03:05", TimestampIn("2026-10-16T14:03:05.123456", time.UTC))
	assert.Equal(t, "16.10.2026, 14:03:05", TimestampIn("2026-10-16 14:03:05", time.UTC))
	assert.Equal(t, "16.10.2026, 14:03:05", TimestampIn("2026-10-16T12:03:05+00:00", mustZone(t, 2)))
	assert.Equal(t, "16.10.2026, 00:00:00", TimestampIn("2026-10-16", time.UTC))
}

func TestTimestamp_InvalidInputReturnedUnchanged(t *testing.T) {
	assert.Equal(t, "kaputt", Timestamp("kaputt"))
	assert.Equal(t, "2026-13-45T99:99:99", Timestamp("2026-13-45T99:99:99"))
	assert.Equal(t, Placeholder, Timestamp(""))
	assert.NotPanics(t, func() { TimestampIn("\x00", nil) })
}

func TestClock(t *testing.T) {
	assert.Equal(t, "08:05:09", Clock(time.Date(2026, 10, 16, 8, 5, 9, 0, time.UTC)))
}

func TestEscapeText_RendersAsLiteralText(t *testing.T) {
	escaped := EscapeText("<b>fett</b> & \"quoted\"")
	assert.NotContains(t, escaped, "<b>")

	doc, err := goquery.NewDocumentFromReader(strings.NewReader("<div id=\"m\">" + escaped + "</div>"))
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Find("#m b").Length())
	assert.Equal(t, "<b>fett</b> & \"quoted\"", doc.Find("#m").Text())
}

func mustZone(t *testing.T, hours int) *time.Location {
	t.Helper()
	return time.FixedZone("test", hours*3600)
}
