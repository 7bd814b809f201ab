// Package notify broadcasts state-change events to observers.
// Fire-and-forget: a slow or absent observer never blocks the engine.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Event types emitted by the engine.
const (
	EventMessageCreated = "message.created"
	EventMessageUpdated = "message.updated"
	EventThreadCreated  = "thread.created"
	EventThreadUpdated  = "thread.updated"
	EventThreadMerged   = "thread.merged"
)

// Sink receives broadcast events. Implementations must not block and
// must swallow their own failures.
type Sink interface {
	Broadcast(eventType string, payload any)
}

// Event is the envelope delivered to sinks.
type Event struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	At      int64  `json:"at"` // unix millis
	Payload any    `json:"payload"`
}

// NewEvent wraps a payload in an envelope with a fresh correlation id.
func NewEvent(eventType string, payload any) Event {
	return Event{
		ID:      uuid.NewString(),
		Type:    eventType,
		At:      time.Now().UnixMilli(),
		Payload: payload,
	}
}

// LogSink writes events to a zap logger.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a sink logging at debug level.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Broadcast(eventType string, payload any) {
	event := NewEvent(eventType, payload)
	s.logger.Debug("broadcast",
		zap.String("event_id", event.ID),
		zap.String("event", event.Type),
		zap.Any("payload", event.Payload))
}

// Fanout forwards each event to every registered sink.
type Fanout struct {
	sinks []Sink
}

// NewFanout creates a fanout over the given sinks.
func NewFanout(sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks}
}

func (f *Fanout) Broadcast(eventType string, payload any) {
	for _, sink := range f.sinks {
		sink.Broadcast(eventType, payload)
	}
}

// Memory retains the most recent events in a bounded ring. Used by tests
// and debugging tooling.
type Memory struct {
	mu     sync.Mutex
	limit  int
	events []Event
}

// NewMemory creates a memory sink retaining up to limit events.
func NewMemory(limit int) *Memory {
	if limit <= 0 {
		limit = 256
	}
	return &Memory{limit: limit}
}

func (m *Memory) Broadcast(eventType string, payload any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, NewEvent(eventType, payload))
	if len(m.events) > m.limit {
		m.events = m.events[len(m.events)-m.limit:]
	}
}

// Events returns a copy of the retained events in broadcast order.
func (m *Memory) Events() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// CountByType returns how many retained events carry each type.
func (m *Memory) CountByType() map[string]int {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]int)
	for _, event := range m.events {
		counts[event.Type]++
	}
	return counts
}
