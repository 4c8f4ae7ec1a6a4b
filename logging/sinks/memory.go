package sinks

import (
	"context"
	"sync"

	"emberfall/server/logging"
)

// Memory buffers events in-process. Used by tests to assert on the event
// stream without parsing log output.
type Memory struct {
	mu     sync.RWMutex
	events []logging.Event
}

// NewMemory constructs an empty memory sink.
func NewMemory() *Memory {
	return &Memory{events: make([]logging.Event, 0)}
}

// Write implements logging.Sink.
func (s *Memory) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// Events returns a copy of the captured events.
func (s *Memory) Events() []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]logging.Event, len(s.events))
	copy(copied, s.events)
	return copied
}

// Reset discards captured events.
func (s *Memory) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}

// Close implements logging.Sink.
func (s *Memory) Close(context.Context) error {
	return nil
}
