package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultBaudRates are the rates offered for selection. Any positive rate is
// accepted when opening a port.
var DefaultBaudRates = []int{9600, 115200, 921600, 1000000}

// Config is the root configuration structure
type Config struct {
	App        AppConfig        `json:"app" yaml:"app"`
	Serial     SerialConfig     `json:"serial" yaml:"serial"`
	EventLog   EventLogConfig   `json:"event_log" yaml:"event_log"`
	Library    LibraryConfig    `json:"library" yaml:"library"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Monitoring MonitoringConfig `json:"monitoring" yaml:"monitoring"`
	Notify     NotifyConfig     `json:"notify" yaml:"notify"`
}

// AppConfig contains application metadata
type AppConfig struct {
	Name       string `json:"name" yaml:"name"`
	InstanceID string `json:"instance_id" yaml:"instance_id"`
}

// SerialConfig holds session defaults
type SerialConfig struct {
	Device         string `json:"device" yaml:"device"`
	BaudRate       int    `json:"baud_rate" yaml:"baud_rate"`
	BaudRates      []int  `json:"baud_rates" yaml:"baud_rates"`
	Mode           string `json:"mode" yaml:"mode"`
	PollIntervalMs int    `json:"poll_interval_ms" yaml:"poll_interval_ms"`
	ReadTimeoutMs  int    `json:"read_timeout_ms" yaml:"read_timeout_ms"`
	PortRefreshMs  int    `json:"port_refresh_ms" yaml:"port_refresh_ms"`
}

// EventLogConfig locates the traffic log
type EventLogConfig struct {
	Directory string `json:"directory" yaml:"directory"`
}

// LibraryConfig locates the command library document
type LibraryConfig struct {
	Path string `json:"path" yaml:"path"`
}

// LoggingConfig defines diagnostic logging settings
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`
	BasePath   string `json:"base_path" yaml:"base_path"`
	Filename   string `json:"filename" yaml:"filename"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups"`
	Compress   bool   `json:"compress" yaml:"compress"`
}

// MonitoringConfig defines HTTP monitoring settings
type MonitoringConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Address string `json:"address" yaml:"address"`
	Port    int    `json:"port" yaml:"port"`
}

// NotifyConfig defines webhook notification settings
type NotifyConfig struct {
	WebhookURL     string `json:"webhook_url" yaml:"webhook_url"`
	NotifySessions bool   `json:"notify_sessions" yaml:"notify_sessions"`
	NotifyErrors   bool   `json:"notify_errors" yaml:"notify_errors"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads and parses a configuration file. JSON is assumed unless the
// extension is .yaml or .yml. An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults sets default values for unspecified fields
func (c *Config) applyDefaults() {
	// App defaults
	if c.App.Name == "" {
		c.App.Name = "serialtool"
	}
	if c.App.InstanceID == "" {
		hostname, _ := os.Hostname()
		c.App.InstanceID = hostname
	}

	// Serial defaults
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = 9600
	}
	if len(c.Serial.BaudRates) == 0 {
		c.Serial.BaudRates = append([]int(nil), DefaultBaudRates...)
	}
	if c.Serial.Mode == "" {
		c.Serial.Mode = "ASCII"
	}
	c.Serial.Mode = strings.ToUpper(c.Serial.Mode)
	if c.Serial.PollIntervalMs == 0 {
		c.Serial.PollIntervalMs = 10
	}
	if c.Serial.ReadTimeoutMs == 0 {
		c.Serial.ReadTimeoutMs = 100
	}
	if c.Serial.PortRefreshMs == 0 {
		c.Serial.PortRefreshMs = 1000
	}

	if c.EventLog.Directory == "" {
		c.EventLog.Directory = "logs"
	}
	if c.Library.Path == "" {
		c.Library.Path = "commands.json"
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Filename == "" {
		c.Logging.Filename = "serialtool.log"
	}
	if c.Logging.MaxSizeMB == 0 {
		c.Logging.MaxSizeMB = 50
	}
	if c.Logging.MaxBackups == 0 {
		c.Logging.MaxBackups = 5
	}

	// Monitoring defaults
	if c.Monitoring.Address == "" {
		c.Monitoring.Address = "127.0.0.1"
	}
	if c.Monitoring.Port == 0 {
		c.Monitoring.Port = 8080
	}
}

// PollInterval returns the worker loop sleep as a duration
func (c *SerialConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// ReadTimeout returns the per-read wait as a duration
func (c *SerialConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMs) * time.Millisecond
}

// PortRefresh returns the device list refresh period as a duration
func (c *SerialConfig) PortRefresh() time.Duration {
	return time.Duration(c.PortRefreshMs) * time.Millisecond
}

// ListenAddr returns host:port for the monitoring server
func (c *MonitoringConfig) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Address, c.Port)
}
