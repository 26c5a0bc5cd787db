// Package notify defines the delivery boundary for one-time codes and
// renders the per-purpose messages. Delivery transports (SMTP, an email
// API) live with the integrator; this package only shapes the message.
package notify

import (
	"context"
	"encoding/json"
	"io"
	"sync"
)

// Message is one rendered email.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

// Notifier delivers a message to an address. Implementations are expected
// to be fire-and-forget with a binary outcome; a returned error is
// surfaced to the caller but never rolls back committed state.
type Notifier interface {
	Send(ctx context.Context, to string, msg Message) error
}

// WriterNotifier writes one JSON object per message, for development and
// log-pipeline setups.
type WriterNotifier struct {
	writer io.Writer
	mu     sync.Mutex
}

func NewWriterNotifier(w io.Writer) *WriterNotifier {
	return &WriterNotifier{writer: w}
}

func (n *WriterNotifier) Send(_ context.Context, to string, msg Message) error {
	record := struct {
		To      string `json:"to"`
		Subject string `json:"subject"`
		Text    string `json:"text"`
	}{To: to, Subject: msg.Subject, Text: msg.Text}

	data, err := json.Marshal(record)
	if err != nil {
		return err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if _, err := n.writer.Write(data); err != nil {
		return err
	}
	_, err = n.writer.Write([]byte("\n"))
	return err
}

// Delivery is one captured Send call.
type Delivery struct {
	To      string
	Message Message
}

// Recorder captures deliveries for assertions. Err, when set, is returned
// from every Send after the capture.
type Recorder struct {
	mu         sync.Mutex
	deliveries []Delivery

	Err error
}

func (r *Recorder) Send(_ context.Context, to string, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, Delivery{To: to, Message: msg})
	return r.Err
}

// Deliveries returns a copy of everything sent so far.
func (r *Recorder) Deliveries() []Delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Delivery, len(r.deliveries))
	copy(out, r.deliveries)
	return out
}
