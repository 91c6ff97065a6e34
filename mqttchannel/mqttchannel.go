// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mqttchannel

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/hashicorp/go-hclog"

	"github.com/GermanBionicSystems/epaperframe/logging"
	"github.com/GermanBionicSystems/epaperframe/picframe"
)

// Default topics of the image server.
const (
	SleepIntervalTopic = "what-to-wear/nextUpdateIn"
	ImageURLTopic      = "what-to-wear/rawImageURL"
)

// Opts configures a Channel.
type Opts struct {
	// Broker is the broker URL, e.g. tcp://broker.local:1883.
	Broker   string
	ClientID string
	Username string
	Password string

	// DeviceID names the device in the state topic.
	DeviceID string
	// StatePrefix is the Homie base topic.
	StatePrefix string

	SleepIntervalTopic string
	ImageURLTopic      string

	// QoS of the subscriptions and the state messages.
	QoS byte
	// ConnectTimeout bounds a single connection attempt.
	ConnectTimeout time.Duration
}

// ErrClosed is returned by operations on a closed Channel.
var ErrClosed = errors.New("mqttchannel: closed")

// Channel implements picframe.Messenger and produces picframe events.
type Channel struct {
	client mqtt.Client
	opts   Opts
	log    hclog.Logger
	events chan picframe.Event

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

var _ picframe.Messenger = &Channel{}

// New returns a Channel. It does not connect; call Connect.
func New(opts *Opts, logger hclog.Logger) (*Channel, error) {
	if opts == nil || opts.Broker == "" {
		return nil, errors.New("mqttchannel: broker is required")
	}
	c := &Channel{
		opts:   *opts,
		log:    logging.OrNull(logger),
		events: make(chan picframe.Event, 16),
		done:   make(chan struct{}),
	}
	if c.opts.SleepIntervalTopic == "" {
		c.opts.SleepIntervalTopic = SleepIntervalTopic
	}
	if c.opts.ImageURLTopic == "" {
		c.opts.ImageURLTopic = ImageURLTopic
	}
	if c.opts.StatePrefix == "" {
		c.opts.StatePrefix = "homie"
	}
	if c.opts.DeviceID == "" {
		c.opts.DeviceID = "epaperframe"
	}
	if c.opts.ConnectTimeout <= 0 {
		c.opts.ConnectTimeout = 10 * time.Second
	}
	c.client = mqtt.NewClient(c.clientOptions())
	return c, nil
}

// StateTopic returns the topic the device state is published on.
func (c *Channel) StateTopic() string {
	return fmt.Sprintf("%s/%s/$state", c.opts.StatePrefix, c.opts.DeviceID)
}

func (c *Channel) clientOptions() *mqtt.ClientOptions {
	o := mqtt.NewClientOptions()
	o.AddBroker(c.opts.Broker)
	o.SetClientID(c.opts.ClientID)
	o.SetUsername(c.opts.Username)
	o.SetPassword(c.opts.Password)
	o.SetAutoReconnect(true)
	o.SetConnectRetry(true)
	o.SetConnectTimeout(c.opts.ConnectTimeout)
	o.SetCleanSession(true)
	o.SetWill(c.StateTopic(), string(picframe.StateLost), c.opts.QoS, true)
	o.SetOnConnectHandler(c.onConnect)
	o.SetConnectionLostHandler(c.onConnectionLost)
	o.SetDefaultPublishHandler(c.onMessage)
	return o
}

// Events returns the event stream for picframe.Controller.Run.
func (c *Channel) Events() <-chan picframe.Event {
	return c.events
}

// Connect starts the connection and returns once the first connection
// succeeded or ctx is done. The client keeps reconnecting afterwards.
func (c *Channel) Connect(ctx context.Context) error {
	c.log.Info("connecting", "broker", c.opts.Broker)
	if err := wait(ctx, c.client.Connect()); err != nil {
		return fmt.Errorf("mqttchannel: connect: %w", err)
	}
	return nil
}

// Announce publishes s retained on the state topic and waits for the broker
// to acknowledge it.
func (c *Channel) Announce(ctx context.Context, s picframe.State) error {
	if c.isClosed() {
		return ErrClosed
	}
	t := c.client.Publish(c.StateTopic(), c.opts.QoS, true, string(s))
	if err := wait(ctx, t); err != nil {
		return fmt.Errorf("mqttchannel: publish %s: %w", s, err)
	}
	c.log.Debug("state published", logging.KeyTopic, c.StateTopic(), logging.KeyState, s)
	return nil
}

// Close disconnects, giving in-flight messages 250ms to complete.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	close(c.done)
	c.client.Disconnect(250)
	return nil
}

func (c *Channel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *Channel) onConnect(client mqtt.Client) {
	c.log.Info("connected", "broker", c.opts.Broker)
	c.emit(picframe.ConnectivityUp{})
	go c.subscribe(client)
}

// subscribe waits on tokens and must not run inside a client callback.
func (c *Channel) subscribe(client mqtt.Client) {
	filters := map[string]byte{
		c.opts.SleepIntervalTopic: c.opts.QoS,
		c.opts.ImageURLTopic:      c.opts.QoS,
	}
	t := client.Publish(c.StateTopic(), c.opts.QoS, true, string(picframe.StateInit))
	if !t.WaitTimeout(c.opts.ConnectTimeout) || t.Error() != nil {
		c.log.Warn("publishing init state failed", logging.KeyError, t.Error())
	}
	t = client.SubscribeMultiple(filters, c.onMessage)
	if !t.WaitTimeout(c.opts.ConnectTimeout) {
		c.log.Error("subscribe timed out")
		return
	}
	if err := t.Error(); err != nil {
		c.log.Error("subscribe failed", logging.KeyError, err)
		return
	}
	c.emit(picframe.MessagingReady{})
}

func (c *Channel) onConnectionLost(_ mqtt.Client, err error) {
	c.log.Warn("connection lost", logging.KeyError, err)
	c.emit(picframe.ConnectivityLost{})
}

func (c *Channel) onMessage(_ mqtt.Client, msg mqtt.Message) {
	payload := string(msg.Payload())
	c.log.Debug("message", logging.KeyTopic, msg.Topic(), "payload", payload)
	switch msg.Topic() {
	case c.opts.SleepIntervalTopic:
		c.emit(picframe.SleepIntervalMessage{Payload: payload})
	case c.opts.ImageURLTopic:
		c.emit(picframe.ImageURLMessage{Payload: payload})
	default:
		c.log.Debug("ignoring message", logging.KeyTopic, msg.Topic())
	}
}

func (c *Channel) emit(ev picframe.Event) {
	select {
	case c.events <- ev:
	case <-c.done:
	}
}

func wait(ctx context.Context, t mqtt.Token) error {
	select {
	case <-t.Done():
		return t.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
