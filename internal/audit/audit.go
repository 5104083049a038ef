package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Kind names what happened to the request.
type Kind string

const (
	// KindProtectDenied: the protector rejected the request.
	KindProtectDenied Kind = "protect_denied"
	// KindProtectUnavailable: the protector could not reach a decision.
	KindProtectUnavailable Kind = "protect_unavailable"
)

// Event is one gate denial or protector outage.
type Event struct {
	Time      time.Time `json:"time"`
	Kind      Kind      `json:"kind"`
	RequestID string    `json:"request_id,omitempty"`
	Method    string    `json:"method,omitempty"`
	Path      string    `json:"path,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Status    int       `json:"status,omitempty"`
	Reason    string    `json:"reason,omitempty"`
}

// Sink consumes events. The dispatcher calls Emit from a single goroutine.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// SinkFunc adapts a function to [Sink].
type SinkFunc func(ctx context.Context, event Event)

func (f SinkFunc) Emit(ctx context.Context, event Event) { f(ctx, event) }

type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a consumer goroutine. Emit blocks while the
// channel is full.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan Event, max(buffer, 1))}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event { return s.events }

// JSONWriterSink writes one JSON object per line. Safe for concurrent use.
type JSONWriterSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	if w == nil {
		w = io.Discard
	}
	return &JSONWriterSink{enc: json.NewEncoder(w)}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil {
		return
	}
	s.mu.Lock()
	_ = s.enc.Encode(event)
	s.mu.Unlock()
}

// ZerologSink logs events through a zerolog logger, outages at error and
// denials at info.
type ZerologSink struct {
	logger zerolog.Logger
}

func NewZerologSink(logger zerolog.Logger) ZerologSink {
	return ZerologSink{logger: logger}
}

func (s ZerologSink) Emit(_ context.Context, event Event) {
	e := s.logger.Info()
	if event.Kind == KindProtectUnavailable {
		e = s.logger.Error()
	}
	e.Time("event_time", event.Time).
		Str("kind", string(event.Kind)).
		Str("request_id", event.RequestID).
		Str("method", event.Method).
		Str("path", event.Path).
		Str("client_ip", event.ClientIP).
		Int("status", event.Status).
		Str("reason", event.Reason).
		Msg("audit")
}
