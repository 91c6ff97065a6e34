// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the host wiring of the frame: broker, panel pins,
// HTTP listener and power handling.
//
// What the frame shows and how long it sleeps is not configured here; it
// arrives over the broker at runtime.
//
// Sources are applied in this order, later ones winning:
//
//  1. Default()
//  2. a YAML file
//  3. EPAPERFRAME_* environment variables, after loading an optional .env
//     file into the environment
//
// Environment variable names map to keys by dropping the prefix, lower
// casing and replacing "_" with ".": EPAPERFRAME_BROKER_URL sets broker.url.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/GermanBionicSystems/epaperframe/rawframe"
)

// EnvPrefix prefixes every environment variable read.
const EnvPrefix = "EPAPERFRAME_"

// DefaultEnvFile is read when present and no other file was named.
const DefaultEnvFile = ".env"

// Config is the host configuration.
type Config struct {
	Log     Log     `koanf:"log" yaml:"log"`
	Broker  Broker  `koanf:"broker" yaml:"broker"`
	Display Display `koanf:"display" yaml:"display"`
	Fetch   Fetch   `koanf:"fetch" yaml:"fetch"`
	Cycle   Cycle   `koanf:"cycle" yaml:"cycle"`
	Sleep   Sleep   `koanf:"sleep" yaml:"sleep"`
	HTTP    HTTP    `koanf:"http" yaml:"http"`
}

// Log configures the root logger.
type Log struct {
	Level string `koanf:"level" yaml:"level"`
	JSON  bool   `koanf:"json" yaml:"json"`
}

// Broker kinds.
const (
	BrokerMQTT = "mqtt"
	BrokerNATS = "nats"
)

// Broker configures the configuration channel.
type Broker struct {
	Kind     string `koanf:"kind" yaml:"kind"`
	URL      string `koanf:"url" yaml:"url"`
	ClientID string `koanf:"clientid" yaml:"clientid"`
	Username string `koanf:"username" yaml:"username,omitempty"`
	Password string `koanf:"password" yaml:"password,omitempty"`
	// Device is the Homie device ID in the state topic.
	Device string `koanf:"device" yaml:"device"`
	// Prefix is the Homie base topic.
	Prefix string `koanf:"prefix" yaml:"prefix"`
	// Bucket is the NATS key-value bucket for device state. Empty disables.
	Bucket string `koanf:"bucket" yaml:"bucket,omitempty"`
	QoS    int    `koanf:"qos" yaml:"qos"`
}

// Display drivers.
const (
	DriverWaveshare = "waveshare"
	DriverPreview   = "preview"
	DriverTerminal  = "terminal"
)

// Display selects and wires the panel.
type Display struct {
	Driver string `koanf:"driver" yaml:"driver"`
	// SPI is the SPI port name; empty selects the first port.
	SPI string `koanf:"spi" yaml:"spi"`
	// HAT uses the pin layout of the Waveshare Raspberry Pi HAT and ignores
	// the pin names below.
	HAT  bool   `koanf:"hat" yaml:"hat"`
	DC   string `koanf:"dc" yaml:"dc"`
	CS   string `koanf:"cs" yaml:"cs"`
	RST  string `koanf:"rst" yaml:"rst"`
	Busy string `koanf:"busy" yaml:"busy"`
	// Cols is the width of the terminal rendering.
	Cols int `koanf:"cols" yaml:"cols"`
}

// Fetch configures the image download.
type Fetch struct {
	Timeout  time.Duration `koanf:"timeout" yaml:"timeout"`
	Agent    string        `koanf:"agent" yaml:"agent"`
	MaxBytes int64         `koanf:"maxbytes" yaml:"maxbytes"`
}

// Cycle tunes the controller.
type Cycle struct {
	// Timeout bounds a whole update attempt.
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
	// Poll is the period of the attempt ticker.
	Poll time.Duration `koanf:"poll" yaml:"poll"`
}

// Sleep modes.
const (
	SleepExit = "exit"
	SleepPark = "park"
)

// Sleep selects how deep sleep is carried out.
type Sleep struct {
	Mode string `koanf:"mode" yaml:"mode"`
	// WakeAlarm is the RTC wakealarm file armed before exiting. Empty
	// skips arming.
	WakeAlarm string `koanf:"wakealarm" yaml:"wakealarm"`
}

// HTTP configures the local listener serving /metrics and /frame.
type HTTP struct {
	// Listen is a host:port; empty disables the listener.
	Listen string `koanf:"listen" yaml:"listen"`
}

// Default returns the configuration of a frame wired like the reference
// build: a Waveshare HAT and a local MQTT broker.
func Default() Config {
	return Config{
		Log: Log{Level: "info"},
		Broker: Broker{
			Kind:   BrokerMQTT,
			URL:    "tcp://127.0.0.1:1883",
			Device: "epaperframe",
			Prefix: "homie",
			QoS:    1,
		},
		Display: Display{
			Driver: DriverWaveshare,
			HAT:    true,
			DC:     "GPIO25",
			CS:     "GPIO8",
			RST:    "GPIO17",
			Busy:   "GPIO24",
			Cols:   80,
		},
		Fetch: Fetch{
			Timeout:  30 * time.Second,
			Agent:    "epaperframe/1",
			MaxBytes: 4 * int64(rawframe.Size(rawframe.Width, rawframe.Height)),
		},
		Cycle: Cycle{
			Timeout: 60 * time.Second,
			Poll:    250 * time.Millisecond,
		},
		Sleep: Sleep{Mode: SleepExit},
	}
}

// Options name the files Load reads.
type Options struct {
	// File is a YAML file. Empty skips it.
	File string
	// EnvFile is a dotenv file. Empty reads DefaultEnvFile when present.
	EnvFile string
}

// Load builds the configuration from defaults, files and the environment.
// The result is not validated.
func Load(opts Options) (Config, error) {
	cfg := Default()
	if err := loadEnvFile(opts.EnvFile); err != nil {
		return cfg, err
	}

	k := koanf.New(".")
	if opts.File != "" {
		if err := k.Load(file.Provider(opts.File), yaml.Parser()); err != nil {
			return cfg, fmt.Errorf("config: load %s: %w", opts.File, err)
		}
	}
	transform := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "_", ".")
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", transform), nil); err != nil {
		return cfg, fmt.Errorf("config: load environment: %w", err)
	}
	// Keys absent from every source keep their default.
	if err := k.Unmarshal("", &cfg); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if cfg.Broker.ClientID == "" {
		cfg.Broker.ClientID = "epaperframe-" + uuid.NewString()
	}
	return cfg, nil
}

func loadEnvFile(path string) error {
	if path == "" {
		if err := godotenv.Load(DefaultEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("config: %s: %w", DefaultEnvFile, err)
		}
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("config: %s: %w", path, err)
	}
	return nil
}

// Validate reports every problem found, not only the first one.
func (c *Config) Validate() error {
	var errs *multierror.Error
	add := func(format string, args ...any) {
		errs = multierror.Append(errs, fmt.Errorf(format, args...))
	}

	switch c.Broker.Kind {
	case BrokerMQTT, BrokerNATS:
	default:
		add("broker.kind: unknown kind %q", c.Broker.Kind)
	}
	if c.Broker.URL == "" {
		add("broker.url: required")
	}
	if c.Broker.QoS < 0 || c.Broker.QoS > 2 {
		add("broker.qos: %d out of range 0..2", c.Broker.QoS)
	}
	if c.Broker.Device == "" || strings.ContainsAny(c.Broker.Device, "/+#. ") {
		add("broker.device: %q is not a valid device ID", c.Broker.Device)
	}

	switch c.Display.Driver {
	case DriverWaveshare:
		if !c.Display.HAT {
			for name, pin := range map[string]string{"dc": c.Display.DC, "cs": c.Display.CS, "rst": c.Display.RST, "busy": c.Display.Busy} {
				if pin == "" {
					add("display.%s: pin required without hat", name)
				}
			}
		}
	case DriverPreview:
		if c.HTTP.Listen == "" {
			add("display.driver: preview needs http.listen")
		}
	case DriverTerminal:
	default:
		add("display.driver: unknown driver %q", c.Display.Driver)
	}

	if c.Fetch.Timeout <= 0 {
		add("fetch.timeout: must be positive")
	}
	if c.Fetch.MaxBytes <= 0 {
		add("fetch.maxbytes: must be positive")
	}
	if c.Cycle.Timeout < 0 {
		add("cycle.timeout: must not be negative")
	}
	if c.Cycle.Poll <= 0 {
		add("cycle.poll: must be positive")
	}

	switch c.Sleep.Mode {
	case SleepExit, SleepPark:
	default:
		add("sleep.mode: unknown mode %q", c.Sleep.Mode)
	}
	return errs.ErrorOrNil()
}

// YAML renders c with secrets masked.
func (c Config) YAML() ([]byte, error) {
	if c.Broker.Password != "" {
		c.Broker.Password = "********"
	}
	return yamlv3.Marshal(c)
}

