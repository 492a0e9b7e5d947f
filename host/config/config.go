// Package config loads the host tools' YAML configuration.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"flatpanel/host/emulator"
	"flatpanel/host/mqtt"
	"flatpanel/host/panel"
	"flatpanel/host/schedule"
	"flatpanel/host/serial"
)

// Config is the complete host configuration
type Config struct {
	Serial     serial.Config    `yaml:"serial"`
	Panel      panel.Config     `yaml:"panel"`
	Emulator   emulator.Config  `yaml:"emulator"`
	MQTT       mqtt.Config      `yaml:"mqtt"`
	Schedules  []schedule.Entry `yaml:"schedules"`
	ScriptsDir string           `yaml:"scripts_dir"`
}

// Default returns the configuration used when no file exists
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads path, expanding environment variables first. A missing file
// yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a YAML document
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Serial.Device == "" {
		c.Serial.Device = "/dev/ttyACM0"
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = serial.DefaultBaud
	}
	if c.Serial.ReadTimeout == 0 {
		c.Serial.ReadTimeout = serial.DefaultReadTimeout
	}
	if c.Panel.AckTimeout == 0 {
		c.Panel.AckTimeout = panel.DefaultAckTimeout
	}
	if c.Panel.CommandRate == 0 {
		c.Panel.CommandRate = panel.DefaultCommandRate
	}
	if c.Panel.CommandBurst == 0 {
		c.Panel.CommandBurst = panel.DefaultCommandBurst
	}
	if c.MQTT.Broker == "" {
		c.MQTT.Broker = "tcp://localhost:1883"
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = "flatpanel"
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = "flatpanel"
	}
	if c.ScriptsDir == "" {
		c.ScriptsDir = "./scripts"
	}
}

func (c *Config) validate() error {
	if c.Serial.Baud < 0 {
		return fmt.Errorf("serial.baud: invalid value %d", c.Serial.Baud)
	}
	if c.Serial.ReadTimeout < 0 {
		return fmt.Errorf("serial.read_timeout_ms: invalid value %d", c.Serial.ReadTimeout)
	}
	if c.Panel.AckTimeout < 0 {
		return fmt.Errorf("panel.ack_timeout: invalid value %v", c.Panel.AckTimeout)
	}
	if c.Panel.CommandRate < 0 || c.Panel.CommandBurst < 0 {
		return errors.New("panel: command rate and burst must not be negative")
	}
	if c.Emulator.PollDelay < 0 {
		return fmt.Errorf("emulator.poll_delay: invalid value %v", c.Emulator.PollDelay)
	}
	for i, s := range c.Schedules {
		if s.Spec == "" || s.Command == "" {
			return fmt.Errorf("schedules[%d]: spec and command are required", i)
		}
	}
	return nil
}
