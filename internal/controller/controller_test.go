package controller

import (
	"strings"
	"testing"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/view"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Disable logs for tests
	return logger
}

func ptr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }

func waitDone(t *testing.T, done <-chan struct{}) {
	t.Helper()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("refresh did not finish")
	}
}

func region(t *testing.T, doc *view.Document, id string) *goquery.Document {
	t.Helper()
	html := string(doc.Region(id))
	require.NotEmpty(t, html, "region %s was never rendered", id)
	q, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return q
}
