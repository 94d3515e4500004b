package controller

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/api"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/models"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/view"

	"github.com/sirupsen/logrus"
)

const (
	MessageSaved = "Konfiguration erfolgreich gespeichert!"

	// HomePath is where the config page goes after a save or a cancel.
	HomePath = "/"
)

type ConfigBackend interface {
	Config(ctx context.Context) (*models.ConfigBundle, error)
	SaveConfig(ctx context.Context, configs []models.SensorConfig) error
}

type ConfigOptions struct {
	RedirectDelay  time.Duration
	BannerDuration time.Duration
}

// SaveResult tells the caller where to go after a submit.
type SaveResult struct {
	Saved         bool
	RedirectTo    string
	RedirectAfter time.Duration
}

// ConfigPage owns the state of one configuration page visit.
type ConfigPage struct {
	backend ConfigBackend
	view    *view.ConfigView
	target  view.Target
	logger  *logrus.Logger
	options ConfigOptions

	mutex      sync.Mutex
	state      State
	loaded     bool
	sensorKeys []string
	entities   []models.AvailableEntity
	configs    map[string]models.SensorConfig
}

func NewConfigPage(backend ConfigBackend, target view.Target, options ConfigOptions, logger *logrus.Logger) *ConfigPage {
	if options.RedirectDelay <= 0 {
		options.RedirectDelay = 1500 * time.Millisecond
	}
	if options.BannerDuration <= 0 {
		options.BannerDuration = 3 * time.Second
	}
	return &ConfigPage{
		backend: backend,
		view:    view.NewConfigView(target),
		target:  target,
		logger:  logger,
		options: options,
		state:   StateIdle,
	}
}

// Init loads the configuration bundle and renders the form, or the load
// error in place of the form.
func (p *ConfigPage) Init(ctx context.Context) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.state = StateLoading
	p.view.RenderLoading()

	bundle, err := p.backend.Config(ctx)
	if err != nil {
		p.logger.Errorf("Error loading configuration: %v", err)
		p.state = StateError
		p.view.RenderError(api.Message(err))
		return err
	}

	p.sensorKeys = bundle.SensorKeys
	p.entities = bundle.AvailableEntities
	p.configs = bundle.Index()
	p.loaded = true
	p.state = StateRendered
	p.render()

	p.logger.Debugf("Loaded configuration: %d keys, %d entities, %d configs",
		len(bundle.SensorKeys), len(bundle.AvailableEntities), len(bundle.SensorConfigs))
	return nil
}

// Render redraws the form from the loaded state. It does nothing before a
// successful Init.
func (p *ConfigPage) Render() {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.render()
}

func (p *ConfigPage) render() {
	if !p.loaded {
		return
	}
	p.view.RenderForm(p.sensorKeys, p.entities, p.configs)
}

// Submit collects every row from form and saves the complete list. On
// failure the submitted values stay in the form and no redirect is set.
func (p *ConfigPage) Submit(ctx context.Context, form url.Values) (*SaveResult, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	keys := p.sensorKeys
	if !p.loaded {
		keys = form["sensor_key"]
	}
	configs := CollectSensorConfigs(keys, form, p.logger)

	if err := p.backend.SaveConfig(ctx, configs); err != nil {
		p.logger.Errorf("Error saving configuration: %v", err)

		message := "Fehler: " + api.Message(err)
		if api.IsKind(err, api.KindNetwork) {
			message = "Fehler beim Speichern: " + api.Message(err)
		}

		for _, c := range configs {
			if p.configs == nil {
				p.configs = make(map[string]models.SensorConfig, len(configs))
			}
			p.configs[c.SensorKey] = c
		}
		p.render()
		p.view.RenderBanner(view.Banner{
			Message:      message,
			DismissAfter: p.options.BannerDuration.Milliseconds(),
		})
		return &SaveResult{}, err
	}

	p.logger.Infof("Saved configuration for %d sensors", len(configs))
	p.view.RenderBanner(view.Banner{
		Success:       true,
		Message:       MessageSaved,
		DismissAfter:  p.options.BannerDuration.Milliseconds(),
		RedirectTo:    HomePath,
		RedirectAfter: p.options.RedirectDelay.Milliseconds(),
	})
	return &SaveResult{Saved: true, RedirectTo: HomePath, RedirectAfter: p.options.RedirectDelay}, nil
}

// Cancel leaves the page without saving.
func (p *ConfigPage) Cancel() string {
	p.Dispose()
	return HomePath
}

func (p *ConfigPage) Dispose() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.state = StateIdle
	p.loaded = false
	p.sensorKeys = nil
	p.entities = nil
	p.configs = nil
}

func (p *ConfigPage) State() State {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.state
}

// CollectSensorConfigs reads the entity, type and enabled controls of every
// key. An empty entity or type means none; an absent checkbox means disabled.
func CollectSensorConfigs(keys []string, form url.Values, logger *logrus.Logger) []models.SensorConfig {
	configs := make([]models.SensorConfig, 0, len(keys))
	for _, key := range keys {
		cfg := models.SensorConfig{SensorKey: key}

		if entity := form.Get(key + "_entity"); entity != "" {
			cfg.EntityID = &entity
		}

		dailyTotal, err := models.ParseDailyTotal(form.Get(key + "_type"))
		if err != nil {
			logger.Warnf("Ignoring type for %s: %v", key, err)
		}
		cfg.DailyTotal = dailyTotal

		cfg.Enabled = form.Get(key+"_enabled") != ""
		configs = append(configs, cfg)
	}
	return configs
}
