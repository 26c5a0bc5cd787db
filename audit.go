package authcore

import (
	"io"

	"github.com/authcore-io/authcore/internal/audit"
)

// Public audit surface. The dispatcher itself lives in internal/audit;
// these aliases let integrators supply sinks without importing it.

type AuditEvent = audit.Event

type AuditSink = audit.Sink

type NoOpSink = audit.NoOpSink

type ChannelSink = audit.ChannelSink

type JSONWriterSink = audit.JSONWriterSink

// NewChannelSink returns a sink delivering events over a buffered channel.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return audit.NewJSONWriterSink(w)
}
