/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package events is the in-process pubsub that links the daily jobs to the
// cache and the external relay.
package events

import "sync"

// EventType enumerates event categories.
type EventType string

const (
	// EventPlaylistLocked fires after the orchestrator locks and persists an hour.
	EventPlaylistLocked EventType = "playlist.locked"
	// EventAdAired fires after a sponsor ad airing is recorded.
	EventAdAired EventType = "ad.aired"

	EventFeaturePoolCompleted EventType = "job.feature_pool.completed"
	EventDailyHoursCompleted  EventType = "job.daily_hours.completed"
)

// Relayed lists the events forwarded outside the process.
var Relayed = []EventType{
	EventPlaylistLocked,
	EventAdAired,
	EventFeaturePoolCompleted,
	EventDailyHoursCompleted,
}

// Payload generic event payload.
type Payload map[string]any

// Subscriber receives event payloads.
type Subscriber chan Payload

// Publisher is the write side of the bus.
type Publisher interface {
	Publish(eventType EventType, payload Payload)
}

// Bus implements a simple in-process pubsub. Slow subscribers drop events.
type Bus struct {
	mu   sync.RWMutex
	subs map[EventType][]Subscriber
}

// NewBus creates an event bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[EventType][]Subscriber)}
}

// Subscribe registers a subscriber for event type.
func (b *Bus) Subscribe(eventType EventType) Subscriber {
	ch := make(Subscriber, 32)
	b.mu.Lock()
	b.subs[eventType] = append(b.subs[eventType], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends payload to subscribers without blocking.
func (b *Bus) Publish(eventType EventType, payload Payload) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, sub := range b.subs[eventType] {
		select {
		case sub <- payload:
		default:
		}
	}
}

// Unsubscribe removes and closes the subscriber.
func (b *Bus) Unsubscribe(eventType EventType, sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	subs := b.subs[eventType]
	for i, candidate := range subs {
		if candidate == sub {
			subs = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	b.subs[eventType] = subs
}
