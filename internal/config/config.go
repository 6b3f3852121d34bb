// Package config loads the gauge configuration from a yaml file with
// defaults for every field, so the service runs with no file at all.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service configuration.
type Config struct {
	Adapter   AdapterConfig   `yaml:"adapter"`
	Poll      PollConfig      `yaml:"poll"`
	Redis     RedisConfig     `yaml:"redis"`
	Server    ServerConfig    `yaml:"server"`
	Backlight BacklightConfig `yaml:"backlight"`
}

type AdapterConfig struct {
	Type        string `yaml:"type"`         // "ble" or "demo"
	NameFilter  string `yaml:"name_filter"`  // empty accepts the first device found
	ScanWindowS int    `yaml:"scan_window_s"`
}

type PollConfig struct {
	CadenceMs  int `yaml:"cadence_ms"`  // full PID sequence interval
	SpacingMs  int `yaml:"spacing_ms"`  // gap between commands in a cycle
	DTCEveryN  int `yaml:"dtc_every_n"` // issue the mode-03 request every Nth cycle
	BlinkMs    int `yaml:"blink_ms"`    // backlight blink phase interval
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

type BacklightConfig struct {
	BrightnessPath string `yaml:"brightness_path"` // sysfs brightness attribute, empty disables
	DimLevel       int    `yaml:"dim_level"`
	FullLevel      int    `yaml:"full_level"`
	ShiftLightChip string `yaml:"shift_light_chip"` // gpiochip name, empty disables
	ShiftLightLine int    `yaml:"shift_light_line"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Adapter: AdapterConfig{
			Type:        "ble",
			ScanWindowS: 5,
		},
		Poll: PollConfig{
			CadenceMs: 900,
			SpacingMs: 60,
			DTCEveryN: 6,
			BlinkMs:   200,
		},
		Redis: RedisConfig{
			Host: "127.0.0.1",
			Port: 6379,
		},
		Server: ServerConfig{
			ListenAddr: ":8080",
		},
		Backlight: BacklightConfig{
			DimLevel:  60,
			FullLevel: 255,
		},
	}
}

// Load reads path over the defaults. A missing file is not an error;
// a malformed one is.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}

// normalize clamps nonsensical values back to defaults.
func (c *Config) normalize() {
	if c.Adapter.ScanWindowS <= 0 {
		c.Adapter.ScanWindowS = 5
	}
	if c.Poll.CadenceMs <= 0 {
		c.Poll.CadenceMs = 900
	}
	if c.Poll.SpacingMs < 0 {
		c.Poll.SpacingMs = 60
	}
	if c.Poll.DTCEveryN <= 0 {
		c.Poll.DTCEveryN = 6
	}
	if c.Poll.BlinkMs <= 0 {
		c.Poll.BlinkMs = 200
	}
}

func (c *Config) ScanWindow() time.Duration {
	return time.Duration(c.Adapter.ScanWindowS) * time.Second
}

func (c *Config) PollCadence() time.Duration {
	return time.Duration(c.Poll.CadenceMs) * time.Millisecond
}

func (c *Config) CommandSpacing() time.Duration {
	return time.Duration(c.Poll.SpacingMs) * time.Millisecond
}

func (c *Config) BlinkInterval() time.Duration {
	return time.Duration(c.Poll.BlinkMs) * time.Millisecond
}
