// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package mqttchannel

import (
	"context"
	"errors"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/go-cmp/cmp"

	"github.com/GermanBionicSystems/epaperframe/picframe"
)

type message struct {
	topic   string
	payload string
}

func (m *message) Duplicate() bool   { return false }
func (m *message) Qos() byte         { return 1 }
func (m *message) Retained() bool    { return true }
func (m *message) Topic() string     { return m.topic }
func (m *message) MessageID() uint16 { return 1 }
func (m *message) Payload() []byte   { return []byte(m.payload) }
func (m *message) Ack()              {}

type token struct {
	err  error
	done chan struct{}
}

func doneToken(err error) *token {
	t := &token{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *token) Wait() bool                     { <-t.done; return true }
func (t *token) WaitTimeout(time.Duration) bool { return true }
func (t *token) Done() <-chan struct{}          { return t.done }
func (t *token) Error() error                   { return t.err }

type published struct {
	Topic    string
	QoS      byte
	Retained bool
	Payload  string
}

// fakeClient records publications and subscriptions.
type fakeClient struct {
	mqtt.Client
	published  []published
	subscribed map[string]byte
	pubErr     error
	subErr     error
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.published = append(f.published, published{topic, qos, retained, payload.(string)})
	return doneToken(f.pubErr)
}

func (f *fakeClient) SubscribeMultiple(filters map[string]byte, _ mqtt.MessageHandler) mqtt.Token {
	f.subscribed = filters
	return doneToken(f.subErr)
}

func (f *fakeClient) Disconnect(uint) {}

func newTestChannel(t *testing.T) (*Channel, *fakeClient) {
	c, err := New(&Opts{Broker: "tcp://127.0.0.1:1883", DeviceID: "hall", QoS: 1}, nil)
	if err != nil {
		t.Fatal(err)
	}
	fc := &fakeClient{}
	c.client = fc
	return c, fc
}

func drain(c *Channel) []picframe.Event {
	var got []picframe.Event
	for {
		select {
		case ev := <-c.events:
			got = append(got, ev)
		default:
			return got
		}
	}
}

func TestNew(t *testing.T) {
	if _, err := New(&Opts{}, nil); err == nil {
		t.Error("New() without broker succeeded")
	}
	c, _ := newTestChannel(t)
	if got := c.StateTopic(); got != "homie/hall/$state" {
		t.Errorf("StateTopic() = %q", got)
	}
}

func TestClientOptions(t *testing.T) {
	c, _ := newTestChannel(t)
	o := c.clientOptions()
	if !o.WillEnabled || o.WillTopic != "homie/hall/$state" || string(o.WillPayload) != "lost" || !o.WillRetained {
		t.Errorf("will = %v %q %q %v", o.WillEnabled, o.WillTopic, o.WillPayload, o.WillRetained)
	}
	if !o.AutoReconnect {
		t.Error("auto reconnect disabled")
	}
}

func TestOnMessage(t *testing.T) {
	c, _ := newTestChannel(t)
	c.onMessage(nil, &message{topic: SleepIntervalTopic, payload: "600"})
	c.onMessage(nil, &message{topic: ImageURLTopic, payload: "http://img/raw.bin "})
	c.onMessage(nil, &message{topic: "what-to-wear/other", payload: "x"})

	want := []picframe.Event{
		picframe.SleepIntervalMessage{Payload: "600"},
		picframe.ImageURLMessage{Payload: "http://img/raw.bin "},
	}
	if diff := cmp.Diff(want, drain(c)); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestConnectFlow(t *testing.T) {
	c, fc := newTestChannel(t)
	c.onConnect(fc)
	// onConnect emits synchronously; subscribe runs on its own goroutine.
	if ev := <-c.events; ev != (picframe.ConnectivityUp{}) {
		t.Fatalf("first event = %#v", ev)
	}
	select {
	case ev := <-c.events:
		if ev != (picframe.MessagingReady{}) {
			t.Fatalf("second event = %#v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no MessagingReady")
	}
	want := map[string]byte{SleepIntervalTopic: 1, ImageURLTopic: 1}
	if diff := cmp.Diff(want, fc.subscribed); diff != "" {
		t.Errorf("subscriptions (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]published{{"homie/hall/$state", 1, true, "init"}}, fc.published); diff != "" {
		t.Errorf("published (-want +got):\n%s", diff)
	}

	c.onConnectionLost(fc, errors.New("EOF"))
	if ev := <-c.events; ev != (picframe.ConnectivityLost{}) {
		t.Fatalf("event = %#v", ev)
	}
}

func TestSubscribeFailure(t *testing.T) {
	c, fc := newTestChannel(t)
	fc.subErr = errors.New("not authorized")
	c.subscribe(fc)
	if got := drain(c); len(got) != 0 {
		t.Errorf("events after failed subscribe: %v", got)
	}
}

func TestAnnounce(t *testing.T) {
	c, fc := newTestChannel(t)
	if err := c.Announce(context.Background(), picframe.StateSleeping); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]published{{"homie/hall/$state", 1, true, "sleeping"}}, fc.published); diff != "" {
		t.Errorf("published (-want +got):\n%s", diff)
	}

	fc.pubErr = errors.New("queue full")
	if err := c.Announce(context.Background(), picframe.StateReady); err == nil {
		t.Error("Announce() swallowed the publish error")
	}

	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Announce(context.Background(), picframe.StateReady); !errors.Is(err, ErrClosed) {
		t.Errorf("Announce() after Close = %v", err)
	}
	// Emitting after Close must not block.
	for i := 0; i < cap(c.events)+1; i++ {
		c.onConnectionLost(fc, nil)
	}
}
