// Package audit buffers and delivers security events emitted by the
// credential flows. The dispatcher decouples flow latency from sink
// latency; which events get emitted is the Engine's call, not this
// package's.
package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"
)

// Action names the flow step an event records.
const (
	ActionRegister             = "register"
	ActionLogin                = "login"
	ActionRefresh              = "refresh"
	ActionRefreshReuse         = "refresh.reuse_detected"
	ActionRefreshAgentMismatch = "refresh.agent_mismatch"
	ActionLogout               = "logout"
	ActionOtpRequest           = "otp.request"
	ActionOtpVerify            = "otp.verify"
	ActionPasswordChange       = "password.change"
	ActionPasswordReset        = "password.reset"
	ActionEmailVerified        = "email.verified"
	ActionEmailChangeRequest   = "email.change_request"
	ActionEmailChanged         = "email.changed"
	ActionDeactivate           = "account.deactivate"
	ActionSessionRevoke        = "session.revoke"
	ActionSessionRevokeAll     = "session.revoke_all"
	ActionSessionSweep         = "session.sweep"
	ActionNotifyFailure        = "notify.failure"
)

// Event is one security-relevant occurrence. UserID is empty for events
// before an identity is resolved (failed logins by unknown email).
type Event struct {
	Time      time.Time         `json:"time"`
	Action    string            `json:"action"`
	UserID    string            `json:"user_id,omitempty"`
	SessionID string            `json:"session_id,omitempty"`
	Purpose   string            `json:"purpose,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	Meta      map[string]string `json:"meta,omitempty"`
}

// Sink receives dispatched events.
type Sink interface {
	Emit(ctx context.Context, event Event)
}

// NoOpSink drops events.
type NoOpSink struct{}

func (NoOpSink) Emit(context.Context, Event) {}

// ChannelSink hands events to a consumer over a buffered channel.
type ChannelSink struct {
	events chan Event
}

func NewChannelSink(buffer int) *ChannelSink {
	if buffer <= 0 {
		buffer = 1
	}
	return &ChannelSink{events: make(chan Event, buffer)}
}

func (s *ChannelSink) Emit(ctx context.Context, event Event) {
	select {
	case s.events <- event:
	case <-ctx.Done():
	}
}

func (s *ChannelSink) Events() <-chan Event {
	return s.events
}

// JSONWriterSink writes one JSON object per line, suitable for piping
// into a log shipper.
type JSONWriterSink struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return &JSONWriterSink{writer: w}
}

func (s *JSONWriterSink) Emit(_ context.Context, event Event) {
	if s == nil || s.writer == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, _ = s.writer.Write(data)
	_, _ = s.writer.Write([]byte("\n"))
}
