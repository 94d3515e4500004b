package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/models"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

const (
	pathHealth       = "/api/health"
	pathEntities     = "/api/entities"
	pathCalculations = "/api/calculations"
	pathConfig       = "/api/config"
	pathLogs         = "/api/logs"
	pathRefresh      = "/api/refresh"
)

// envelope is the {success, data, error} wrapper of every backend response.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type saveConfigRequest struct {
	Configs []models.SensorConfig `json:"configs"`
}

// Client talks to the HAminiEMS backend. Calls are one-shot: no retries.
type Client struct {
	http   *resty.Client
	logger *logrus.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *logrus.Logger) *Client {
	r := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json").
		SetLogger(logger)

	return &Client{
		http:   r,
		logger: logger,
	}
}

func (c *Client) Health(ctx context.Context) (*models.Health, error) {
	const op = "health"

	body, env, err := c.do(op, c.http.R().SetContext(ctx), http.MethodGet, pathHealth)
	if err != nil {
		return nil, err
	}

	// The backend puts the health fields next to success, not under data.
	var top struct {
		HAConnected *bool  `json:"ha_connected"`
		Status      string `json:"status"`
	}
	if err := json.Unmarshal(body, &top); err != nil {
		return nil, protocolError(op, http.StatusOK, MessageInvalidResponse, err)
	}
	if top.HAConnected != nil {
		return &models.Health{HAConnected: *top.HAConnected, Status: top.Status}, nil
	}

	var health models.Health
	if err := decodeData(env, &health); err != nil {
		return nil, protocolError(op, http.StatusOK, MessageInvalidResponse, err)
	}
	return &health, nil
}

func (c *Client) Entities(ctx context.Context) (models.Readings, error) {
	const op = "entities"

	_, env, err := c.do(op, c.http.R().SetContext(ctx), http.MethodGet, pathEntities)
	if err != nil {
		return nil, err
	}

	readings := models.Readings{}
	if err := decodeData(env, &readings); err != nil {
		return nil, protocolError(op, http.StatusOK, MessageInvalidResponse, err)
	}
	if readings == nil {
		readings = models.Readings{}
	}
	return readings, nil
}

func (c *Client) Balance(ctx context.Context) (*models.EnergyBalance, error) {
	const op = "balance"

	req := c.http.R().SetContext(ctx).SetQueryParam("type", "balance")
	_, env, err := c.do(op, req, http.MethodGet, pathCalculations)
	if err != nil {
		return nil, err
	}

	var balance models.EnergyBalance
	if err := decodeData(env, &balance); err != nil {
		return nil, protocolError(op, http.StatusOK, MessageInvalidResponse, err)
	}
	return &balance, nil
}

func (c *Client) DailyStatistics(ctx context.Context) (*models.DailyStatistics, error) {
	const op = "daily statistics"

	req := c.http.R().SetContext(ctx).SetQueryParam("type", "daily")
	_, env, err := c.do(op, req, http.MethodGet, pathCalculations)
	if err != nil {
		return nil, err
	}

	var stats models.DailyStatistics
	if err := decodeData(env, &stats); err != nil {
		return nil, protocolError(op, http.StatusOK, MessageInvalidResponse, err)
	}
	return &stats, nil
}

func (c *Client) Config(ctx context.Context) (*models.ConfigBundle, error) {
	const op = "config"

	_, env, err := c.do(op, c.http.R().SetContext(ctx), http.MethodGet, pathConfig)
	if err != nil {
		return nil, err
	}

	var bundle models.ConfigBundle
	if err := decodeData(env, &bundle); err != nil {
		return nil, protocolError(op, http.StatusOK, MessageInvalidResponse, err)
	}
	return &bundle, nil
}

func (c *Client) SaveConfig(ctx context.Context, configs []models.SensorConfig) error {
	const op = "save config"

	if configs == nil {
		configs = []models.SensorConfig{}
	}
	req := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(saveConfigRequest{Configs: configs})

	_, _, err := c.do(op, req, http.MethodPost, pathConfig)
	return err
}

func (c *Client) Logs(ctx context.Context) ([]models.LogEntry, error) {
	const op = "logs"

	_, env, err := c.do(op, c.http.R().SetContext(ctx), http.MethodGet, pathLogs)
	if err != nil {
		return nil, err
	}

	var entries []models.LogEntry
	if err := decodeData(env, &entries); err != nil {
		return nil, protocolError(op, http.StatusOK, MessageInvalidResponse, err)
	}
	if entries == nil {
		entries = []models.LogEntry{}
	}
	return entries, nil
}

func (c *Client) ClearLogs(ctx context.Context) error {
	const op = "clear logs"

	_, _, err := c.do(op, c.http.R().SetContext(ctx), http.MethodDelete, pathLogs)
	return err
}

// TriggerBackendRefresh asks the backend to pull fresh values from Home
// Assistant and returns how many entities it updated.
func (c *Client) TriggerBackendRefresh(ctx context.Context) (int, error) {
	const op = "refresh"

	body, _, err := c.do(op, c.http.R().SetContext(ctx), http.MethodGet, pathRefresh)
	if err != nil {
		return 0, err
	}

	var result struct {
		Updated int `json:"updated"`
	}
	if err := json.Unmarshal(body, &result); err != nil {
		return 0, protocolError(op, http.StatusOK, MessageInvalidResponse, err)
	}
	return result.Updated, nil
}

// do executes req and unwraps the envelope. Non-2xx answers are still decoded
// because the backend reports failures as {success:false} with status 4xx/5xx.
func (c *Client) do(op string, req *resty.Request, method, path string) ([]byte, *envelope, error) {
	c.logger.Debugf("Backend %s %s", method, path)

	resp, err := req.Execute(method, path)
	if err != nil {
		c.logger.Warnf("Backend %s %s failed: %v", method, path, err)
		return nil, nil, networkError(op, err)
	}

	body := resp.Body()
	status := resp.StatusCode()

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		c.logger.Warnf("Backend %s %s returned undecodable body (status %d): %v", method, path, status, err)
		return nil, nil, protocolError(op, status, MessageInvalidResponse, err)
	}

	if !env.Success {
		c.logger.Warnf("Backend %s %s reported failure (status %d): %s", method, path, status, env.Error)
		return nil, nil, protocolError(op, status, env.Error, fmt.Errorf("%s: unsuccessful response", op))
	}

	return body, &env, nil
}

func decodeData(env *envelope, v interface{}) error {
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return json.Unmarshal(env.Data, v)
}
