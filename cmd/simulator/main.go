// Command simulator serves a fake HAminiEMS backend API that steps through
// a fixed set of energy scenarios, for running the dashboard without Home
// Assistant.
package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type scenario struct {
	step        string
	haConnected bool
	pv          float64
	house       float64
	gridImport  float64
	gridExport  float64
	soc         *float64
}

func soc(v float64) *float64 { return &v }

var scenarios = []scenario{
	{"Morgen, Netzbezug", true, 0.4, 2.1, 1.7, 0, soc(35)},
	{"Mittag, PV-Überschuss", true, 6.8, 2.4, 0, 4.4, soc(80)},
	{"Gleichgewicht", true, 2.5, 2.5, 0, 0, soc(90)},
	{"Home Assistant getrennt", false, 0, 0, 0, 0, nil},
	{"Abend, Batterie leer", true, 0.1, 3.2, 3.1, 0, soc(10)},
}

var (
	listenAddr  string
	stepEvery   time.Duration
	mqttBroker  string
	topicPrefix string
)

func main() {
	cmd := &cobra.Command{
		Use:   "simulator",
		Short: "Fake HAminiEMS backend cycling through energy scenarios",
		RunE:  run,
	}

	cmd.Flags().StringVarP(&listenAddr, "listen", "l", ":8098", "address to serve the backend API on")
	cmd.Flags().DurationVarP(&stepEvery, "step", "s", 20*time.Second, "time spent in each scenario")
	cmd.Flags().StringVar(&mqttBroker, "mqtt-broker", "", "publish a dashboard refresh on every step via this broker")
	cmd.Flags().StringVar(&topicPrefix, "topic-prefix", "haminiems/dashboard", "dashboard MQTT topic prefix")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type backend struct {
	mutex   sync.RWMutex
	current scenario
	configs []models.SensorConfig
	logs    []models.LogEntry
	logger  *logrus.Logger
}

func run(cmd *cobra.Command, args []string) error {
	logger := logrus.New()

	b := &backend{current: scenarios[0], logger: logger}
	for _, key := range models.DefaultSensorKeys {
		b.configs = append(b.configs, models.DefaultSensorConfig(key))
	}

	var client mqtt.Client
	if mqttBroker != "" {
		opts := mqtt.NewClientOptions()
		opts.AddBroker(mqttBroker)
		opts.SetClientID("haminiems-simulator")

		client = mqtt.NewClient(opts)
		if token := client.Connect(); token.Wait() && token.Error() != nil {
			return fmt.Errorf("failed to connect to MQTT broker %s: %w", mqttBroker, token.Error())
		}
		defer client.Disconnect(250)
		logger.Infof("Connected to MQTT broker: %s", mqttBroker)
	}

	go func() {
		ticker := time.NewTicker(stepEvery)
		defer ticker.Stop()

		for i := 1; ; i++ {
			<-ticker.C
			s := scenarios[i%len(scenarios)]
			b.setScenario(s)

			if client != nil {
				topic := topicPrefix + "/refresh"
				token := client.Publish(topic, 1, false, s.step)
				token.Wait()
				logger.Infof("Published refresh to %s", topic)
			}
		}
	}()

	logger.Infof("Serving fake backend on %s, scenario step every %s", listenAddr, stepEvery)
	return http.ListenAndServe(listenAddr, b.router())
}

func (b *backend) setScenario(s scenario) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.current = s
	b.logs = append(b.logs, models.LogEntry{
		Timestamp: time.Now().Format("2006-01-02T15:04:05"),
		Level:     "INFO",
		Message:   "Szenario: " + s.step,
	})
	b.logger.Infof("Scenario: %s", s.step)
}

func (b *backend) router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/api/health", b.handleHealth).Methods("GET")
	r.HandleFunc("/api/entities", b.handleEntities).Methods("GET")
	r.HandleFunc("/api/calculations", b.handleCalculations).Methods("GET")
	r.HandleFunc("/api/config", b.handleConfig).Methods("GET")
	r.HandleFunc("/api/config", b.handleSaveConfig).Methods("POST")
	r.HandleFunc("/api/logs", b.handleLogs).Methods("GET")
	r.HandleFunc("/api/logs", b.handleClearLogs).Methods("DELETE")
	r.HandleFunc("/api/refresh", b.handleRefresh).Methods("GET")
	return r
}

func reply(w http.ResponseWriter, status int, body map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func (b *backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	reply(w, http.StatusOK, map[string]interface{}{"success": true, "status": "ok", "ha_connected": b.current.haConnected})
}

func (b *backend) handleEntities(w http.ResponseWriter, r *http.Request) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	if !b.current.haConnected {
		reply(w, http.StatusServiceUnavailable, map[string]interface{}{"success": false, "error": "Home Assistant nicht erreichbar"})
		return
	}

	s := b.current
	readings := models.Readings{
		"pv_production":     {Value: &s.pv, Unit: "kWh", EntityID: "sensor.sim_pv"},
		"house_consumption": {Value: &s.house, Unit: "kWh", EntityID: "sensor.sim_house"},
		"grid_import":       {Value: &s.gridImport, Unit: "kWh", EntityID: "sensor.sim_grid_import"},
		"grid_export":       {Value: &s.gridExport, Unit: "kWh", EntityID: "sensor.sim_grid_export"},
	}
	if s.soc != nil {
		readings["battery_soc"] = models.SensorReading{Value: s.soc, Unit: "%", EntityID: "sensor.sim_soc"}
	}
	reply(w, http.StatusOK, map[string]interface{}{"success": true, "data": readings})
}

func (b *backend) balance() *models.EnergyBalance {
	s := b.current
	self := s.pv - s.gridExport
	rate := 0.0
	if s.pv > 0 {
		rate = self / s.pv * 100
	}
	return &models.EnergyBalance{
		Production:  &models.Production{PV: &s.pv, Total: &s.pv},
		Consumption: &models.Consumption{House: &s.house, Total: &s.house},
		Grid:        &models.Grid{Import: &s.gridImport, Export: &s.gridExport},
		Battery:     &models.Battery{SOC: s.soc},
		Balance:     &models.BalanceFigures{SelfConsumption: &self, SelfConsumptionRate: &rate},
		Timestamp:   time.Now().Format("2006-01-02T15:04:05"),
	}
}

func (b *backend) handleCalculations(w http.ResponseWriter, r *http.Request) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	balance := b.balance()
	if r.URL.Query().Get("type") == "daily" {
		reply(w, http.StatusOK, map[string]interface{}{"success": true, "data": models.DailyStatistics{
			Date:    time.Now().Format("2006-01-02"),
			Balance: balance,
			Summary: &models.DailySummary{
				TotalProduction:     balance.Production.Total,
				TotalConsumption:    balance.Consumption.Total,
				SelfConsumptionRate: balance.Balance.SelfConsumptionRate,
			},
		}})
		return
	}
	reply(w, http.StatusOK, map[string]interface{}{"success": true, "data": balance})
}

func (b *backend) handleConfig(w http.ResponseWriter, r *http.Request) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()

	entities := []models.AvailableEntity{}
	for _, id := range []string{"sensor.sim_pv", "sensor.sim_house", "sensor.sim_grid_import", "sensor.sim_grid_export", "sensor.sim_soc"} {
		entities = append(entities, models.AvailableEntity{EntityID: id})
	}

	reply(w, http.StatusOK, map[string]interface{}{"success": true, "data": models.ConfigBundle{
		AvailableEntities: entities,
		SensorKeys:        models.DefaultSensorKeys,
		SensorConfigs:     b.configs,
	}})
}

func (b *backend) handleSaveConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Configs []models.SensorConfig `json:"configs"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		reply(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "Ungültige Anfrage"})
		return
	}

	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.configs = body.Configs
	b.logger.Infof("Saved %d sensor configs", len(body.Configs))
	reply(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (b *backend) handleLogs(w http.ResponseWriter, r *http.Request) {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	reply(w, http.StatusOK, map[string]interface{}{"success": true, "data": b.logs})
}

func (b *backend) handleClearLogs(w http.ResponseWriter, r *http.Request) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	b.logs = nil
	reply(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (b *backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	reply(w, http.StatusOK, map[string]interface{}{"success": true, "updated": 4})
}
