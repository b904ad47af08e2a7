package tokenAuth

import (
	"context"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// AuditSeverity ranks audit events. Critical events are never dropped by the dispatcher.
type AuditSeverity string

const (
	AuditInfo     AuditSeverity = "info"
	AuditWarning  AuditSeverity = "warning"
	AuditCritical AuditSeverity = "critical"
)

// AuditEvent is one security-relevant outcome. It never carries token strings,
// passwords or hashes.
type AuditEvent struct {
	Timestamp time.Time         `json:"timestamp"`
	EventType string            `json:"event_type"`
	Severity  AuditSeverity     `json:"severity"`
	MemberID  int64             `json:"member_id,omitempty"`
	Email     string            `json:"email,omitempty"`
	IP        string            `json:"ip,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// AuditSink receives events on the dispatcher goroutine, one at a time.
type AuditSink interface {
	Emit(ctx context.Context, event AuditEvent)
}

// LogSink writes each event as one zerolog record. The record level follows the event
// severity, so reuse incidents surface at error level next to the engine's own logs.
type LogSink struct {
	log zerolog.Logger
}

// NewLogSink writes events through l.
func NewLogSink(l zerolog.Logger) *LogSink {
	return &LogSink{log: l}
}

// NewJSONWriterSink writes newline-terminated JSON records to w.
func NewJSONWriterSink(w io.Writer) *LogSink {
	return NewLogSink(zerolog.New(w))
}

func (s *LogSink) Emit(_ context.Context, event AuditEvent) {
	if s == nil {
		return
	}
	var ev *zerolog.Event
	switch event.Severity {
	case AuditCritical:
		ev = s.log.Error()
	case AuditWarning:
		ev = s.log.Warn()
	default:
		ev = s.log.Info()
	}
	ev = ev.Time("timestamp", event.Timestamp).
		Str("event_type", event.EventType).
		Str("severity", string(event.Severity)).
		Bool("success", event.Success)
	if event.MemberID != 0 {
		ev = ev.Int64("member_id", event.MemberID)
	}
	if event.Email != "" {
		ev = ev.Str("email", event.Email)
	}
	if event.IP != "" {
		ev = ev.Str("ip", event.IP)
	}
	if event.Error != "" {
		ev = ev.Str("error", event.Error)
	}
	if len(event.Metadata) > 0 {
		dict := zerolog.Dict()
		for k, v := range event.Metadata {
			dict = dict.Str(k, v)
		}
		ev = ev.Dict("metadata", dict)
	}
	ev.Msg("audit")
}

// ChannelSink hands events to a consumer, mostly tests and in-process alerting.
type ChannelSink struct {
	events chan AuditEvent
}

func NewChannelSink(buffer int) *ChannelSink {
	return &ChannelSink{events: make(chan AuditEvent, max(buffer, 1))}
}

// Emit waits for room; the dispatcher's drop policy applies before the sink is reached.
func (s *ChannelSink) Emit(ctx context.Context, event AuditEvent) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan AuditEvent {
	return s.events
}
