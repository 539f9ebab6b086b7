package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"rentbook/internal/util"
	"rentbook/pkg/store"
)

// Event is the wire form of a committed record mutation.
type Event struct {
	ID     string         `json:"id"`
	Type   string         `json:"type"`
	Sheet  string         `json:"sheet"`
	Record string         `json:"recordId"`
	Data   map[string]any `json:"data,omitempty"`
	At     time.Time      `json:"at"`
}

// RoutingKey is the topic key the event is published under.
func (e Event) RoutingKey() string {
	return "record." + e.Type
}

// Publisher delivers events to a broker.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Relay adapts a Publisher to store.Observer. Publish failures are logged
// and never fail the mutation that produced them.
type Relay struct {
	pub Publisher
}

// NewRelay wraps pub as a table observer.
func NewRelay(pub Publisher) *Relay {
	return &Relay{pub: pub}
}

// RecordChanged implements store.Observer.
func (r *Relay) RecordChanged(ctx context.Context, change store.Change) {
	event := FromChange(change)
	if err := r.pub.Publish(ctx, event); err != nil {
		util.LoggerFromContext(ctx).Warn("event_publish_failed",
			"sheet", event.Sheet,
			"type", event.Type,
			"record_id", event.Record,
			"err", err,
		)
	}
}

// FromChange builds the wire event for a store change.
func FromChange(change store.Change) Event {
	var data map[string]any
	if change.Kind != store.ChangeDeleted && change.Record != nil {
		data = make(map[string]any, len(change.Record))
		for k, v := range change.Record {
			data[k] = v
		}
	}
	at := change.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return Event{
		ID:     util.NewID(),
		Type:   string(change.Kind),
		Sheet:  strings.ToLower(change.Sheet),
		Record: change.ID,
		Data:   data,
		At:     at,
	}
}

// MemoryPublisher keeps published events in order.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

// NewMemoryPublisher builds an in-process publisher.
func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (m *MemoryPublisher) Publish(_ context.Context, event Event) error {
	m.mu.Lock()
	m.events = append(m.events, event)
	m.mu.Unlock()
	return nil
}

func (m *MemoryPublisher) Close() error { return nil }

// Events returns a copy of everything published so far.
func (m *MemoryPublisher) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// NopPublisher drops every event.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

var _ store.Observer = (*Relay)(nil)
var _ Publisher = (*MemoryPublisher)(nil)
var _ Publisher = NopPublisher{}
