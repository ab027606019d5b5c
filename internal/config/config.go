package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBroker        = "tcp://localhost:1883"
	DefaultClientID      = "flightcore"
	DefaultFrame         = "vehicle/pose"
	DefaultTickMs        = 10
	DefaultLatencyWarnMs = 25
)

// Config holds transport and timing settings. Control gains are not
// configurable at runtime; they are construction-time constants per axis
// in the flight package.
type Config struct {
	Broker   string      `yaml:"broker"`
	ClientID string      `yaml:"client_id"`
	Frame    string      `yaml:"frame"`
	Topics   TopicConfig `yaml:"topics"`

	TickMs        int `yaml:"tick_ms"`
	LatencyWarnMs int `yaml:"latency_warn_ms"`

	WebAddr string `yaml:"web_addr"`
}

// TopicConfig names the MQTT topics around the controller. The pose
// topic is the configured frame itself.
type TopicConfig struct {
	Goal    string `yaml:"goal"`
	Takeoff string `yaml:"takeoff"`
	Land    string `yaml:"land"`
	Command string `yaml:"command"`
}

func DefaultConfig() *Config {
	return &Config{
		Broker:   DefaultBroker,
		ClientID: DefaultClientID,
		Frame:    DefaultFrame,
		Topics: TopicConfig{
			Goal:    "vehicle/goal",
			Takeoff: "vehicle/takeoff",
			Land:    "vehicle/land",
			Command: "vehicle/cmd_vel",
		},
		TickMs:        DefaultTickMs,
		LatencyWarnMs: DefaultLatencyWarnMs,
		WebAddr:       ":8080",
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) validate() error {
	if c.Broker == "" {
		return fmt.Errorf("config: broker is required")
	}
	if c.Frame == "" {
		return fmt.Errorf("config: frame is required")
	}
	if c.TickMs <= 0 {
		return fmt.Errorf("config: tick_ms must be positive, got %d", c.TickMs)
	}
	return nil
}
