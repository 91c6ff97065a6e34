// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"

	"github.com/GermanBionicSystems/epaperframe/config"
	"github.com/GermanBionicSystems/epaperframe/mqttchannel"
	"github.com/GermanBionicSystems/epaperframe/natschannel"
	"github.com/GermanBionicSystems/epaperframe/powerdown"
	"github.com/GermanBionicSystems/epaperframe/preview"
	"github.com/GermanBionicSystems/epaperframe/termview"
)

func nullLogger() hclog.Logger {
	return hclog.NewNullLogger()
}

func TestResourcesClose(t *testing.T) {
	var order []string
	var r resources
	r.add("a", func() error { order = append(order, "a"); return nil })
	r.add("b", func() error { order = append(order, "b"); return errors.New("stuck") })
	r.add("c", func() error { order = append(order, "c"); return errors.New("gone") })

	err := r.close()
	if diff := cmp.Diff([]string{"c", "b", "a"}, order); diff != "" {
		t.Errorf("close order (-want +got):\n%s", diff)
	}
	if err == nil || !strings.Contains(err.Error(), "b: stuck") || !strings.Contains(err.Error(), "c: gone") {
		t.Errorf("close() = %v", err)
	}
	if err := r.close(); err != nil {
		t.Errorf("second close() = %v", err)
	}
}

type recordingSleeper []time.Duration

func (s *recordingSleeper) DeepSleep(d time.Duration) error {
	*s = append(*s, d)
	return nil
}

func TestReleasingSleeper(t *testing.T) {
	var r resources
	closed := false
	r.add("x", func() error { closed = true; return nil })
	next := &recordingSleeper{}
	s := &releasingSleeper{res: &r, next: next, log: nullLogger()}
	if err := s.DeepSleep(time.Minute); err != nil {
		t.Fatal(err)
	}
	if !closed {
		t.Error("resources not released")
	}
	if diff := cmp.Diff(recordingSleeper{time.Minute}, *next); diff != "" {
		t.Errorf("sleep (-want +got):\n%s", diff)
	}
}

func TestOpenDisplayVirtual(t *testing.T) {
	cfg := config.Default()
	cfg.Display.Driver = config.DriverPreview
	var r resources
	p, err := openDisplay(&cfg, nullLogger(), &r)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.display.(*preview.Display); !ok || p.handler == nil {
		t.Errorf("preview driver gave %T", p.display)
	}

	cfg.Display.Driver = config.DriverTerminal
	p, err = openDisplay(&cfg, nullLogger(), &r)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := p.display.(*termview.Dev); !ok || p.handler != nil {
		t.Errorf("terminal driver gave %T", p.display)
	}
}

func TestOpenChannel(t *testing.T) {
	cfg := config.Default()
	c, err := openChannel(&cfg, nullLogger())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*mqttchannel.Channel); !ok {
		t.Errorf("mqtt kind gave %T", c)
	}

	cfg.Broker.Kind = config.BrokerNATS
	cfg.Broker.URL = "nats://127.0.0.1:4222"
	if c, err = openChannel(&cfg, nullLogger()); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*natschannel.Channel); !ok {
		t.Errorf("nats kind gave %T", c)
	}

	cfg.Broker.URL = ""
	if c, err = openChannel(&cfg, nullLogger()); err == nil || c != nil {
		t.Errorf("openChannel() without URL = %v, %v", c, err)
	}
}

func TestNewSleeper(t *testing.T) {
	cfg := config.Default()
	if _, ok := newSleeper(&cfg, nullLogger()).(*powerdown.Exit); !ok {
		t.Error("exit mode")
	}
	cfg.Sleep.Mode = config.SleepPark
	if _, ok := newSleeper(&cfg, nullLogger()).(powerdown.Park); !ok {
		t.Error("park mode")
	}
}
