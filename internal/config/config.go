// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Link   LinkConfig   `yaml:"link"`
	Record RecordConfig `yaml:"record"`
	Replay ReplayConfig `yaml:"replay"`
}

// LinkConfig describes how to reach the capture probe: either a serial
// device or a websocket relay, never both.
type LinkConfig struct {
	Serial  SerialConfig    `yaml:"serial"`
	WS      WebSocketConfig `yaml:"ws"`
	Timeout time.Duration   `yaml:"timeout"`
}

type SerialConfig struct {
	Port string `yaml:"port"`
	Baud int    `yaml:"baud"`
}

type WebSocketConfig struct {
	URL         string `yaml:"url"`
	Username    string `yaml:"username"`
	NoSSLVerify bool   `yaml:"no_ssl_verify"`
}

type RecordConfig struct {
	Enable bool   `yaml:"enable"`
	Path   string `yaml:"path"`
}

type ReplayConfig struct {
	Enable bool    `yaml:"enable"`
	Path   string  `yaml:"path"`
	Speed  float64 `yaml:"speed"`
	Loop   bool    `yaml:"loop"`
}

func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, err
	}

	haveSerial := cfg.Link.Serial.Port != ""
	haveWS := cfg.Link.WS.URL != ""
	if !haveSerial && !haveWS {
		return Config{}, fmt.Errorf("link.serial.port or link.ws.url is required")
	}
	if haveSerial && haveWS {
		return Config{}, fmt.Errorf("link.serial and link.ws cannot both be configured")
	}

	if haveSerial && cfg.Link.Serial.Baud <= 0 {
		cfg.Link.Serial.Baud = 115200
	}
	if cfg.Link.Timeout <= 0 {
		cfg.Link.Timeout = 2 * time.Second
	}

	if cfg.Record.Enable && cfg.Record.Path == "" {
		return Config{}, fmt.Errorf("record.path is required when record.enable is true")
	}

	if cfg.Replay.Enable {
		if cfg.Replay.Path == "" {
			return Config{}, fmt.Errorf("replay.path is required when replay.enable is true")
		}
		if cfg.Replay.Speed == 0 {
			cfg.Replay.Speed = 1
		}
		if cfg.Replay.Speed < 0 {
			return Config{}, fmt.Errorf("replay.speed must be > 0")
		}
	}

	if cfg.Record.Enable && cfg.Replay.Enable {
		return Config{}, fmt.Errorf("record and replay cannot both be enabled")
	}

	return cfg, nil
}
