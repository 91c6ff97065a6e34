// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/epaperframe/config"
	"github.com/GermanBionicSystems/epaperframe/logging"
	"github.com/GermanBionicSystems/epaperframe/mqttchannel"
	"github.com/GermanBionicSystems/epaperframe/natschannel"
	"github.com/GermanBionicSystems/epaperframe/picframe"
	"github.com/GermanBionicSystems/epaperframe/powerdown"
	"github.com/GermanBionicSystems/epaperframe/preview"
	"github.com/GermanBionicSystems/epaperframe/termview"
	"github.com/GermanBionicSystems/epaperframe/waveshare7in5v2"
)

// resources are closed in reverse order of registration.
type resources struct {
	mu     sync.Mutex
	names  []string
	closes []func() error
}

func (r *resources) add(name string, close func() error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.closes = append(r.closes, close)
}

func (r *resources) close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs *multierror.Error
	for i := len(r.closes) - 1; i >= 0; i-- {
		if err := r.closes[i](); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", r.names[i], err))
		}
	}
	r.names, r.closes = nil, nil
	return errs.ErrorOrNil()
}

type panel struct {
	display picframe.Display
	handler http.Handler
}

func openDisplay(cfg *config.Config, logger hclog.Logger, res *resources) (panel, error) {
	switch cfg.Display.Driver {
	case config.DriverPreview:
		d := preview.New(nil)
		res.add("preview", d.Halt)
		return panel{display: d, handler: d}, nil
	case config.DriverTerminal:
		d := termview.New(&termview.Opts{Cols: cfg.Display.Cols})
		res.add("terminal", d.Halt)
		return panel{display: d}, nil
	}

	if _, err := host.Init(); err != nil {
		return panel{}, fmt.Errorf("periph: %w", err)
	}
	port, err := spireg.Open(cfg.Display.SPI)
	if err != nil {
		return panel{}, fmt.Errorf("spi: %w", err)
	}
	res.add("spi", port.Close)

	var dev *waveshare7in5v2.Dev
	if cfg.Display.HAT {
		dev, err = waveshare7in5v2.NewHat(port, &waveshare7in5v2.EPD7in5v2)
	} else {
		var pins [4]gpio.PinIO
		for i, name := range []string{cfg.Display.DC, cfg.Display.CS, cfg.Display.RST, cfg.Display.Busy} {
			if pins[i] = gpioreg.ByName(name); pins[i] == nil {
				return panel{}, fmt.Errorf("gpio: no pin %q", name)
			}
		}
		dev, err = waveshare7in5v2.New(port, pins[0], pins[1], pins[2], pins[3], &waveshare7in5v2.EPD7in5v2)
	}
	if err != nil {
		return panel{}, err
	}
	logger.Info("panel ready", "dev", dev.String())
	return panel{display: dev}, nil
}

// channel is the common surface of the broker transports.
type channel interface {
	picframe.Messenger
	Connect(ctx context.Context) error
	Events() <-chan picframe.Event
	Close() error
}

func openChannel(cfg *config.Config, logger hclog.Logger) (channel, error) {
	b := cfg.Broker
	if b.Kind == config.BrokerNATS {
		c, err := natschannel.New(&natschannel.Opts{
			URL:         b.URL,
			Name:        b.ClientID,
			DeviceID:    b.Device,
			StatePrefix: b.Prefix,
			StateBucket: b.Bucket,
		}, logger)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
	c, err := mqttchannel.New(&mqttchannel.Opts{
		Broker:      b.URL,
		ClientID:    b.ClientID,
		Username:    b.Username,
		Password:    b.Password,
		DeviceID:    b.Device,
		StatePrefix: b.Prefix,
		QoS:         byte(b.QoS),
	}, logger)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newSleeper(cfg *config.Config, logger hclog.Logger) picframe.Sleeper {
	l := logger.Named("power")
	if cfg.Sleep.Mode == config.SleepPark {
		return powerdown.Park{Log: l}
	}
	return &powerdown.Exit{WakeAlarm: cfg.Sleep.WakeAlarm, Log: l}
}

// releasingSleeper closes every resource before handing over to the
// sleeper that powers the host down.
type releasingSleeper struct {
	res  *resources
	next picframe.Sleeper
	log  hclog.Logger
}

func (s *releasingSleeper) DeepSleep(d time.Duration) error {
	if err := s.res.close(); err != nil {
		s.log.Warn("releasing resources", logging.KeyError, err)
	}
	return s.next.DeepSleep(d)
}
