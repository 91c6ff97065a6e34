// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package natschannel delivers frame configuration over NATS.
//
// Subjects are the MQTT topics of the image server with slashes replaced by
// dots. Core NATS has no retained messages, so the device state is also
// written to a JetStream key-value bucket when one is configured.
package natschannel

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/GermanBionicSystems/epaperframe/logging"
	"github.com/GermanBionicSystems/epaperframe/picframe"
)

// SubjectFromTopic maps an MQTT style topic to a NATS subject.
func SubjectFromTopic(topic string) string {
	return strings.ReplaceAll(strings.Trim(topic, "/"), "/", ".")
}

// Opts configures a Channel.
type Opts struct {
	URL  string
	Name string

	DeviceID    string
	StatePrefix string

	SleepIntervalSubject string
	ImageURLSubject      string

	// StateBucket, when set, names a JetStream key-value bucket holding
	// the last state of every device.
	StateBucket string

	ReconnectWait time.Duration
}

// Channel implements picframe.Messenger and produces picframe events.
type Channel struct {
	opts   Opts
	log    hclog.Logger
	events chan picframe.Event

	nc   *nats.Conn
	kv   jetstream.KeyValue
	subs []*nats.Subscription

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

var _ picframe.Messenger = &Channel{}

// New returns an unconnected Channel.
func New(opts *Opts, logger hclog.Logger) (*Channel, error) {
	if opts == nil || opts.URL == "" {
		return nil, errors.New("natschannel: URL is required")
	}
	c := &Channel{
		opts:   *opts,
		log:    logging.OrNull(logger),
		events: make(chan picframe.Event, 16),
		done:   make(chan struct{}),
	}
	if c.opts.SleepIntervalSubject == "" {
		c.opts.SleepIntervalSubject = SubjectFromTopic("what-to-wear/nextUpdateIn")
	}
	if c.opts.ImageURLSubject == "" {
		c.opts.ImageURLSubject = SubjectFromTopic("what-to-wear/rawImageURL")
	}
	if c.opts.StatePrefix == "" {
		c.opts.StatePrefix = "homie"
	}
	if c.opts.DeviceID == "" {
		c.opts.DeviceID = "epaperframe"
	}
	if c.opts.ReconnectWait <= 0 {
		c.opts.ReconnectWait = 2 * time.Second
	}
	return c, nil
}

// StateSubject returns the subject the device state is published on.
func (c *Channel) StateSubject() string {
	return SubjectFromTopic(fmt.Sprintf("%s/%s/$state", c.opts.StatePrefix, c.opts.DeviceID))
}

// Events returns the event stream for picframe.Controller.Run.
func (c *Channel) Events() <-chan picframe.Event {
	return c.events
}

// Connect dials the server and subscribes the configuration subjects.
func (c *Channel) Connect(ctx context.Context) error {
	nc, err := nats.Connect(c.opts.URL,
		nats.Name(c.opts.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(c.opts.ReconnectWait),
		nats.DisconnectErrHandler(c.onDisconnect),
		nats.ReconnectHandler(c.onReconnect),
	)
	if err != nil {
		return fmt.Errorf("natschannel: connect: %w", err)
	}
	c.nc = nc
	c.emit(picframe.ConnectivityUp{})

	for _, subj := range []string{c.opts.SleepIntervalSubject, c.opts.ImageURLSubject} {
		sub, err := nc.Subscribe(subj, c.onMsg)
		if err != nil {
			nc.Close()
			return fmt.Errorf("natschannel: subscribe %s: %w", subj, err)
		}
		c.subs = append(c.subs, sub)
	}
	if err := nc.FlushWithContext(ctx); err != nil {
		nc.Close()
		return fmt.Errorf("natschannel: flush: %w", err)
	}

	if c.opts.StateBucket != "" {
		if err := c.openBucket(ctx); err != nil {
			c.log.Warn("state bucket unavailable", "bucket", c.opts.StateBucket, logging.KeyError, err)
		}
	}
	c.log.Info("connected", "url", nc.ConnectedUrlRedacted())
	if err := c.publish(ctx, picframe.StateInit); err != nil {
		c.log.Warn("publishing init state failed", logging.KeyError, err)
	}
	c.emit(picframe.MessagingReady{})
	return nil
}

func (c *Channel) openBucket(ctx context.Context) error {
	js, err := jetstream.New(c.nc)
	if err != nil {
		return err
	}
	kv, err := js.KeyValue(ctx, c.opts.StateBucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      c.opts.StateBucket,
			Description: "e-paper frame device state",
			History:     1,
		})
	}
	if err != nil {
		return err
	}
	c.kv = kv
	return nil
}

// Announce publishes s and flushes the connection.
func (c *Channel) Announce(ctx context.Context, s picframe.State) error {
	if c.isClosed() || c.nc == nil {
		return errors.New("natschannel: not connected")
	}
	return c.publish(ctx, s)
}

func (c *Channel) publish(ctx context.Context, s picframe.State) error {
	subj := c.StateSubject()
	if err := c.nc.Publish(subj, []byte(s)); err != nil {
		return fmt.Errorf("natschannel: publish %s: %w", s, err)
	}
	if c.kv != nil {
		if _, err := c.kv.PutString(ctx, c.opts.DeviceID, string(s)); err != nil {
			return fmt.Errorf("natschannel: store %s: %w", s, err)
		}
	}
	if err := c.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("natschannel: flush: %w", err)
	}
	c.log.Debug("state published", logging.KeyTopic, subj, logging.KeyState, s)
	return nil
}

// Close drains the subscriptions and closes the connection.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()
	if c.nc == nil {
		return nil
	}
	return c.nc.Drain()
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) onDisconnect(_ *nats.Conn, err error) {
	c.log.Warn("disconnected", logging.KeyError, err)
	c.emit(picframe.ConnectivityLost{})
}

// onReconnect reports both events: the client restores subscriptions before
// calling it.
func (c *Channel) onReconnect(_ *nats.Conn) {
	c.log.Info("reconnected")
	c.emit(picframe.ConnectivityUp{})
	c.emit(picframe.MessagingReady{})
}

func (c *Channel) onMsg(m *nats.Msg) {
	payload := string(m.Data)
	switch m.Subject {
	case c.opts.SleepIntervalSubject:
		c.emit(picframe.SleepIntervalMessage{Payload: payload})
	case c.opts.ImageURLSubject:
		c.emit(picframe.ImageURLMessage{Payload: payload})
	default:
		c.log.Debug("ignoring message", logging.KeyTopic, m.Subject)
	}
}

func (c *Channel) emit(ev picframe.Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}
