package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/GuidoJeuken-6512/HAminiEMS/internal/config"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/homeassistant"
	"github.com/GuidoJeuken-6512/HAminiEMS/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// Client mirrors dashboard results to an MQTT broker and accepts refresh
// requests from it.
type Client struct {
	client    mqtt.Client
	publisher homeassistant.Publisher
	config    *config.MQTTConfig
	logger    *logrus.Logger

	mutex     sync.RWMutex
	onRefresh func()
}

type BalanceMessage struct {
	*models.EnergyBalance
	PublishedAt time.Time `json:"published_at"`
}

func NewClient(cfg *config.Config, logger *logrus.Logger) (*Client, error) {
	if cfg.MQTT.Broker == "" {
		return nil, fmt.Errorf("mqtt broker not configured")
	}

	c := &Client{
		config: &cfg.MQTT,
		logger: logger,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)
	opts.SetUsername(cfg.MQTT.Username)
	opts.SetPassword(cfg.MQTT.Password)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetWill(ConnectionTopic(cfg.MQTT.TopicPrefix), PayloadOffline, 1, true)

	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetOnConnectHandler(c.onConnect)

	c.client = mqtt.NewClient(opts)
	c.publisher = c.client

	return c, nil
}

func ConnectionTopic(prefix string) string {
	return strings.TrimRight(prefix, "/") + "/connection"
}

func BalanceTopic(prefix string) string {
	return strings.TrimRight(prefix, "/") + "/balance"
}

func RefreshTopic(prefix string) string {
	return strings.TrimRight(prefix, "/") + "/refresh"
}

// ConnectionPayload maps a health result to the retained connection state.
// A failed health check counts as offline.
func ConnectionPayload(connected bool, err error) string {
	if err != nil || !connected {
		return PayloadOffline
	}
	return PayloadOnline
}

func BalancePayload(balance *models.EnergyBalance, at time.Time) ([]byte, error) {
	if balance == nil {
		return nil, fmt.Errorf("no balance to publish")
	}
	return json.Marshal(BalanceMessage{EnergyBalance: balance, PublishedAt: at})
}

func (c *Client) Connect() error {
	c.logger.Info("Connecting to MQTT broker...")

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	c.logger.Info("Connected to MQTT broker")
	return nil
}

func (c *Client) Disconnect() {
	c.logger.Info("Disconnecting from MQTT broker...")
	c.publish(ConnectionTopic(c.config.TopicPrefix), PayloadOffline)
	c.client.Disconnect(250)
}

// SetRefreshHandler registers the function run for every message on the
// refresh topic.
func (c *Client) SetRefreshHandler(onRefresh func()) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.onRefresh = onRefresh
}

// PublishHealth has the signature of the dashboard health callback.
func (c *Client) PublishHealth(connected bool, err error) {
	c.publish(ConnectionTopic(c.config.TopicPrefix), ConnectionPayload(connected, err))
}

// PublishBalance has the signature of the dashboard balance callback.
func (c *Client) PublishBalance(balance *models.EnergyBalance) {
	payload, err := BalancePayload(balance, time.Now())
	if err != nil {
		c.logger.Errorf("Failed to encode balance: %v", err)
		return
	}
	c.publish(BalanceTopic(c.config.TopicPrefix), payload)
}

func (c *Client) publish(topic string, payload interface{}) {
	token := c.publisher.Publish(topic, 1, true, payload)
	go func() {
		if token.WaitTimeout(5*time.Second) && token.Error() != nil {
			c.logger.Errorf("Failed to publish to %s: %v", topic, token.Error())
		}
	}()
	c.logger.Debugf("Published to %s", topic)
}

func (c *Client) onConnect(client mqtt.Client) {
	c.logger.Info("MQTT connected, subscribing to topics...")

	topic := RefreshTopic(c.config.TopicPrefix)
	if token := client.Subscribe(topic, 1, c.handleRefreshMessage); token.Wait() && token.Error() != nil {
		c.logger.Errorf("Failed to subscribe to refresh topic: %v", token.Error())
	} else {
		c.logger.Infof("Subscribed to refresh topic: %s", topic)
	}

	if c.config.Discovery {
		items := homeassistant.BalanceConfiguration(BalanceTopic(c.config.TopicPrefix))
		if err := homeassistant.SendConfigurationToHa(client, c.config.DiscoveryPrefix, items); err != nil {
			c.logger.Errorf("Failed to publish Home Assistant discovery: %v", err)
		} else {
			c.logger.Infof("Published %d Home Assistant discovery configs", len(items))
		}
	}
}

func (c *Client) onConnectionLost(client mqtt.Client, err error) {
	c.logger.Errorf("MQTT connection lost: %v", err)
}

func (c *Client) handleRefreshMessage(client mqtt.Client, msg mqtt.Message) {
	if msg.Retained() {
		c.logger.Debugf("Ignoring retained refresh message on %s", msg.Topic())
		return
	}

	c.logger.Infof("Refresh requested via MQTT: %s", string(msg.Payload()))

	c.mutex.RLock()
	onRefresh := c.onRefresh
	c.mutex.RUnlock()

	if onRefresh != nil {
		onRefresh()
	}
}
