package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"emberfall/server/logging"
)

// JSON emits newline-delimited structured events.
type JSON struct {
	mu      sync.Mutex
	writer  *bufio.Writer
	encoder *json.Encoder
	closer  io.Closer
}

// NewJSON constructs a JSON sink writing to w. If w is also an io.Closer it
// is closed when the sink closes.
func NewJSON(w io.Writer) *JSON {
	if w == nil {
		w = io.Discard
	}
	buf := bufio.NewWriter(w)
	sink := &JSON{writer: buf, encoder: json.NewEncoder(buf)}
	if closer, ok := w.(io.Closer); ok {
		sink.closer = closer
	}
	return sink
}

// Write implements logging.Sink.
func (s *JSON) Write(event logging.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wire := map[string]any{
		"type":     event.Type,
		"tick":     event.Tick,
		"time":     event.Time.Format(time.RFC3339Nano),
		"severity": event.Severity,
		"category": event.Category,
		"actor":    event.Actor,
	}
	if len(event.Targets) > 0 {
		wire["targets"] = event.Targets
	}
	if event.Payload != nil {
		wire["payload"] = event.Payload
	}
	if len(event.Extra) > 0 {
		wire["extra"] = event.Extra
	}
	return s.encoder.Encode(wire)
}

// Close flushes buffered output.
func (s *JSON) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.writer.Flush(); err != nil {
		return err
	}
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
