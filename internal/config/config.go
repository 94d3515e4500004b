package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
	UI        UIConfig        `mapstructure:"ui"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Log       LogConfig       `mapstructure:"log"`
}

type ServerConfig struct {
	Port        int      `mapstructure:"port"`
	Host        string   `mapstructure:"host"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

type BackendConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	RequestTimeout int    `mapstructure:"request_timeout"`
}

type DashboardConfig struct {
	RefreshInterval int      `mapstructure:"refresh_interval"`
	SensorKeys      []string `mapstructure:"sensor_keys"`
	ShowDaily       bool     `mapstructure:"show_daily"`
	Timezone        string   `mapstructure:"timezone"`
}

type UIConfig struct {
	RedirectDelay  int `mapstructure:"redirect_delay"`
	BannerDuration int `mapstructure:"banner_duration"`
}

type MQTTConfig struct {
	Enabled         bool   `mapstructure:"enabled"`
	Broker          string `mapstructure:"broker"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	ClientID        string `mapstructure:"client_id"`
	TopicPrefix     string `mapstructure:"topic_prefix"`
	Discovery       bool   `mapstructure:"discovery"`
	DiscoveryPrefix string `mapstructure:"discovery_prefix"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads config.yaml from the working directory (or the explicit file),
// the environment and an optional .env file, in increasing precedence of
// environment over file.
func Load(configFile string) (*Config, error) {
	// .env is optional, a missing file is not an error
	_ = godotenv.Load()

	v := viper.New()
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetDefault("server.port", 8099)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("backend.base_url", "http://localhost:8098")
	v.SetDefault("backend.request_timeout", 10)
	v.SetDefault("dashboard.refresh_interval", 30)
	v.SetDefault("dashboard.show_daily", false)
	v.SetDefault("dashboard.timezone", "Local")
	v.SetDefault("ui.redirect_delay", 1500)
	v.SetDefault("ui.banner_duration", 3000)
	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.client_id", "haminiems-dashboard")
	v.SetDefault("mqtt.topic_prefix", "haminiems/dashboard")
	v.SetDefault("mqtt.discovery", true)
	v.SetDefault("mqtt.discovery_prefix", "homeassistant")
	v.SetDefault("log.level", "info")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			fmt.Println("Config file not found, using defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.MQTT.Broker == "" {
		config.MQTT.Broker = os.Getenv("MQTT_BROKER")
	}
	if config.MQTT.Username == "" {
		config.MQTT.Username = os.Getenv("MQTT_USERNAME")
	}
	if config.MQTT.Password == "" {
		config.MQTT.Password = os.Getenv("MQTT_PASSWORD")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url must be set")
	}
	if c.Dashboard.RefreshInterval <= 0 {
		return fmt.Errorf("dashboard.refresh_interval must be positive, got %d", c.Dashboard.RefreshInterval)
	}
	if c.Backend.RequestTimeout <= 0 {
		return fmt.Errorf("backend.request_timeout must be positive, got %d", c.Backend.RequestTimeout)
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker must be set when mqtt is enabled")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RefreshInterval() time.Duration {
	return time.Duration(c.Dashboard.RefreshInterval) * time.Second
}

func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeout) * time.Second
}

func (c *Config) RedirectDelay() time.Duration {
	return time.Duration(c.UI.RedirectDelay) * time.Millisecond
}

func (c *Config) BannerDuration() time.Duration {
	return time.Duration(c.UI.BannerDuration) * time.Millisecond
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Location resolves dashboard.timezone; "Local" and "" mean the process zone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Dashboard.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Dashboard.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid dashboard.timezone %q: %w", c.Dashboard.Timezone, err)
	}
	return loc, nil
}
