package controller

import (
	"context"
	"sync"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/api"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/models"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/view"

	"github.com/sirupsen/logrus"
)

// DashboardBackend is the part of the API client the dashboard polls.
type DashboardBackend interface {
	Health(ctx context.Context) (*models.Health, error)
	Entities(ctx context.Context) (models.Readings, error)
	Balance(ctx context.Context) (*models.EnergyBalance, error)
	DailyStatistics(ctx context.Context) (*models.DailyStatistics, error)
}

type DashboardOptions struct {
	SensorKeys      []string
	RefreshInterval time.Duration
	RequestTimeout  time.Duration
	ShowDaily       bool
	Location        *time.Location
}

// Dashboard drives the periodic refresh of the dashboard regions. Each load
// runs on its own and only touches its own region, so a slow or failing
// endpoint never holds back the others.
type Dashboard struct {
	backend DashboardBackend
	doc     *view.Document
	view    *view.DashboardView
	logger  *logrus.Logger
	options DashboardOptions
	now     func() time.Time

	loopCtx context.Context
	cancel  context.CancelFunc
	states  map[string]State
	mutex   sync.RWMutex

	onHealthUpdate  func(connected bool, err error)
	onBalanceUpdate func(balance *models.EnergyBalance)
}

func NewDashboard(backend DashboardBackend, doc *view.Document, options DashboardOptions, logger *logrus.Logger) *Dashboard {
	if len(options.SensorKeys) == 0 {
		options.SensorKeys = models.DefaultSensorKeys
	}
	if options.RefreshInterval <= 0 {
		options.RefreshInterval = 30 * time.Second
	}
	if options.RequestTimeout <= 0 {
		options.RequestTimeout = 10 * time.Second
	}

	d := &Dashboard{
		backend: backend,
		doc:     doc,
		view:    view.NewDashboardView(doc, options.SensorKeys, options.Location),
		logger:  logger,
		options: options,
		now:     time.Now,
		states:  make(map[string]State),
	}

	for _, region := range d.regions() {
		d.states[region] = StateIdle
	}
	d.view.RenderLoading()

	return d
}

// SetCallbacks registers observers for health and balance results. A
// failed health check is reported with a non-nil err.
func (d *Dashboard) SetCallbacks(onHealth func(connected bool, err error), onBalance func(*models.EnergyBalance)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.onHealthUpdate = onHealth
	d.onBalanceUpdate = onBalance
}

func (d *Dashboard) Document() *view.Document {
	return d.doc
}

// Start refreshes immediately and then on every tick until ctx is done or
// Stop is called.
func (d *Dashboard) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	d.mutex.Lock()
	d.loopCtx = ctx
	d.cancel = cancel
	d.mutex.Unlock()

	ticker := time.NewTicker(d.options.RefreshInterval)
	defer ticker.Stop()

	d.logger.Infof("Starting dashboard refresh loop (every %s)", d.options.RefreshInterval)
	d.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Stopping dashboard refresh loop")
			return
		case <-ticker.C:
			d.Refresh(ctx)
		}
	}
}

// Stop ends the refresh loop and aborts loads that are still in flight.
func (d *Dashboard) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// TriggerRefresh runs a refresh outside the timer, bound to the loop's
// lifetime rather than to the caller's.
func (d *Dashboard) TriggerRefresh() <-chan struct{} {
	d.mutex.RLock()
	ctx := d.loopCtx
	d.mutex.RUnlock()

	if ctx == nil {
		ctx = context.Background()
	}
	return d.Refresh(ctx)
}

// Refresh fires every load concurrently. The returned channel is closed once
// all of them have finished; callers are free to ignore it.
func (d *Dashboard) Refresh(ctx context.Context) <-chan struct{} {
	loads := []func(context.Context){d.loadHealth, d.loadSensors, d.loadBalance}
	if d.options.ShowDaily {
		loads = append(loads, d.loadDaily)
	}

	done := make(chan struct{})
	var wg sync.WaitGroup
	for _, load := range loads {
		wg.Add(1)
		go func(load func(context.Context)) {
			defer wg.Done()
			reqCtx, cancel := context.WithTimeout(ctx, d.options.RequestTimeout)
			defer cancel()
			load(reqCtx)
		}(load)
	}

	go func() {
		wg.Wait()
		close(done)
	}()
	return done
}

// States reports the load state of every dashboard region.
func (d *Dashboard) States() map[string]State {
	d.mutex.RLock()
	defer d.mutex.RUnlock()

	result := make(map[string]State, len(d.states))
	for k, v := range d.states {
		result[k] = v
	}
	return result
}

func (d *Dashboard) regions() []string {
	regions := []string{view.RegionConnectionStatus, view.RegionSensorsGrid, view.RegionEnergyBalance}
	if d.options.ShowDaily {
		regions = append(regions, view.RegionDailySummary)
	}
	return regions
}

func (d *Dashboard) setState(region string, state State) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.states[region] = state
}

func (d *Dashboard) loadHealth(ctx context.Context) {
	d.setState(view.RegionConnectionStatus, StateLoading)

	health, err := d.backend.Health(ctx)

	d.mutex.RLock()
	onHealth := d.onHealthUpdate
	d.mutex.RUnlock()

	if err != nil {
		d.logger.Errorf("Health check failed: %v", err)
		d.view.RenderHealthError(api.Message(err))
		d.setState(view.RegionConnectionStatus, StateError)
		if onHealth != nil {
			onHealth(false, err)
		}
		return
	}

	d.view.RenderHealth(health)
	d.setState(view.RegionConnectionStatus, StateRendered)
	d.logger.Debugf("Home Assistant connected: %t", health.HAConnected)
	if onHealth != nil {
		onHealth(health.HAConnected, nil)
	}
}

func (d *Dashboard) loadSensors(ctx context.Context) {
	d.setState(view.RegionSensorsGrid, StateLoading)

	readings, err := d.backend.Entities(ctx)
	if err != nil {
		d.logger.Errorf("Error loading sensors: %v", err)
		d.view.RenderSensorsError(api.Message(err))
		d.setState(view.RegionSensorsGrid, StateError)
		return
	}

	d.view.RenderSensors(readings, d.now())
	d.setState(view.RegionSensorsGrid, StateRendered)
	d.logger.Debugf("Rendered %d sensor readings", len(readings))
}

func (d *Dashboard) loadBalance(ctx context.Context) {
	d.setState(view.RegionEnergyBalance, StateLoading)

	balance, err := d.backend.Balance(ctx)
	if err != nil {
		d.logger.Errorf("Error loading energy balance: %v", err)
		d.view.RenderBalanceError(api.Message(err))
		d.setState(view.RegionEnergyBalance, StateError)
		return
	}

	d.view.RenderBalance(balance)
	d.setState(view.RegionEnergyBalance, StateRendered)
	if !balance.Complete() {
		d.logger.Warn("Energy balance is incomplete, showing placeholder")
		return
	}

	d.mutex.RLock()
	onBalance := d.onBalanceUpdate
	d.mutex.RUnlock()
	if onBalance != nil {
		onBalance(balance)
	}
}

func (d *Dashboard) loadDaily(ctx context.Context) {
	d.setState(view.RegionDailySummary, StateLoading)

	stats, err := d.backend.DailyStatistics(ctx)
	if err != nil {
		d.logger.Errorf("Error loading daily statistics: %v", err)
		d.view.RenderDailyError(api.Message(err))
		d.setState(view.RegionDailySummary, StateError)
		return
	}

	d.view.RenderDaily(stats)
	d.setState(view.RegionDailySummary, StateRendered)
}
