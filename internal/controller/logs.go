package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/api"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/models"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/view"

	"github.com/sirupsen/logrus"
)

// ErrNotConfirmed is returned by Clear when the user has not confirmed.
var ErrNotConfirmed = errors.New("clearing logs requires confirmation")

type LogsBackend interface {
	Logs(ctx context.Context) ([]models.LogEntry, error)
	ClearLogs(ctx context.Context) error
}

type LogsPage struct {
	backend LogsBackend
	view    *view.LogsView
	target  view.Target
	logger  *logrus.Logger

	mutex sync.Mutex
	state State
}

func NewLogsPage(backend LogsBackend, target view.Target, location *time.Location, logger *logrus.Logger) *LogsPage {
	return &LogsPage{
		backend: backend,
		view:    view.NewLogsView(target, location),
		target:  target,
		logger:  logger,
		state:   StateIdle,
	}
}

// Load fetches the log list and renders it, or the error in its place.
func (p *LogsPage) Load(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.load(ctx)
}

func (p *LogsPage) load(ctx context.Context) error {
	p.state = StateLoading
	p.view.RenderLoading()

	entries, err := p.backend.Logs(ctx)
	if err != nil {
		p.logger.Errorf("Error loading logs: %v", err)
		p.state = StateError
		p.view.RenderError(api.Message(err))
		return err
	}

	p.state = StateRendered
	p.view.RenderLogs(entries)
	return nil
}

// Clear deletes all backend logs and reloads the list. Without confirmation
// it only asks for it and sends nothing.
func (p *LogsPage) Clear(ctx context.Context, confirmed bool) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !confirmed {
		p.view.RenderConfirmClear()
		return ErrNotConfirmed
	}

	if err := p.backend.ClearLogs(ctx); err != nil {
		p.logger.Errorf("Error clearing logs: %v", err)
		p.view.RenderAlert("Fehler beim Löschen der Logs: " + api.Message(err))
		return err
	}

	p.logger.Info("Backend logs cleared")
	view.ClearMessages(p.target)
	return p.load(ctx)
}

func (p *LogsPage) State() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}
