/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package eventbus relays selected in-process events to NATS so the streaming
// engine learns when hours are locked and jobs finish.
package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/friendsincode/grimnir_autopilot/internal/events"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL           string
	Token         string
	SubjectPrefix string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		SubjectPrefix: "autopilot.events",
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// publisher is the subset of *nats.Conn the relay needs.
type publisher interface {
	Publish(subject string, data []byte) error
}

// Message is the wire format published to NATS.
type Message struct {
	EventType events.EventType `json:"event_type"`
	Payload   events.Payload   `json:"payload"`
	Timestamp time.Time        `json:"timestamp"`
	NodeID    string           `json:"node_id"`
	MessageID string           `json:"message_id"`
}

// Relay forwards local bus events to NATS subjects.
type Relay struct {
	conn   *nats.Conn
	pub    publisher
	bus    *events.Bus
	prefix string
	nodeID string
	logger zerolog.Logger

	mu   sync.Mutex
	subs map[events.EventType]events.Subscriber
	wg   sync.WaitGroup
}

// NewNATSRelay connects to NATS. The caller owns Start and Close.
func NewNATSRelay(cfg NATSConfig, bus *events.Bus, logger zerolog.Logger) (*Relay, error) {
	opts := []nats.Option{
		nats.Name("grimnir-autopilot"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	r := newRelay(conn, bus, cfg.SubjectPrefix, logger)
	r.conn = conn
	return r, nil
}

func newRelay(pub publisher, bus *events.Bus, prefix string, logger zerolog.Logger) *Relay {
	if prefix == "" {
		prefix = DefaultNATSConfig().SubjectPrefix
	}
	return &Relay{
		pub:    pub,
		bus:    bus,
		prefix: prefix,
		nodeID: nodeID(),
		logger: logger.With().Str("component", "nats_relay").Logger(),
		subs:   make(map[events.EventType]events.Subscriber),
	}
}

// Subject returns the NATS subject for an event type.
func (r *Relay) Subject(eventType events.EventType) string {
	return r.prefix + "." + string(eventType)
}

// Start forwards every relayed event type until ctx is done or Close is called.
func (r *Relay) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, et := range events.Relayed {
		sub := r.bus.Subscribe(et)
		r.subs[et] = sub
		r.wg.Add(1)
		go r.forward(ctx, et, sub)
	}
}

func (r *Relay) forward(ctx context.Context, eventType events.EventType, sub events.Subscriber) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub:
			if !ok {
				return
			}
			if err := r.publish(eventType, payload); err != nil {
				r.logger.Warn().Err(err).Str("event", string(eventType)).Msg("relay publish failed")
			}
		}
	}
}

func (r *Relay) publish(eventType events.EventType, payload events.Payload) error {
	data, err := json.Marshal(Message{
		EventType: eventType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
		NodeID:    r.nodeID,
		MessageID: uuid.NewString(),
	})
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return r.pub.Publish(r.Subject(eventType), data)
}

// Close stops forwarding and drains the connection.
func (r *Relay) Close() error {
	r.mu.Lock()
	for et, sub := range r.subs {
		r.bus.Unsubscribe(et, sub)
		delete(r.subs, et)
	}
	r.mu.Unlock()
	r.wg.Wait()

	if r.conn != nil {
		return r.conn.Drain()
	}
	return nil
}

func nodeID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "autopilot"
	}
	return host + "-" + uuid.NewString()[:8]
}
