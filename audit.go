package revsense

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/Henil-Prajapati/RevSense/internal/audit"
	"github.com/rs/zerolog"
)

// Audit event kinds emitted by the gate.
const (
	AuditProtectDenied      = audit.KindProtectDenied
	AuditProtectUnavailable = audit.KindProtectUnavailable
)

// AuditEvent is one denied request.
type AuditEvent = audit.Event

// AuditSink receives audit events from the gate's dispatcher goroutine.
type AuditSink = audit.Sink

// AuditSinkFunc adapts a function to [AuditSink].
type AuditSinkFunc = audit.SinkFunc

// NoOpSink discards audit events.
type NoOpSink = audit.NoOpSink

// ChannelSink buffers audit events in a channel.
type ChannelSink = audit.ChannelSink

// JSONWriterSink writes audit events as JSON lines.
type JSONWriterSink = audit.JSONWriterSink

// ZerologSink writes audit events through a zerolog logger.
type ZerologSink = audit.ZerologSink

func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}

func NewZerologSink(logger zerolog.Logger) ZerologSink {
	return audit.NewZerologSink(logger)
}

func (g *Gate) emitAudit(ctx context.Context, kind audit.Kind, r *http.Request, status int, err error) {
	if g.audit == nil {
		return
	}

	ev := AuditEvent{
		Time:      time.Now().UTC(),
		Kind:      kind,
		RequestID: RequestIDFromContext(ctx),
		Method:    r.Method,
		Path:      r.URL.Path,
		ClientIP:  clientIP(r),
		UserAgent: r.UserAgent(),
		Status:    status,
	}
	if err != nil {
		ev.Reason = err.Error()
	}

	g.audit.Emit(ctx, ev)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
