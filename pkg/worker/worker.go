// Package worker runs derivation consumers: it pulls messages from a durable
// source, dispatches them to a handler with bounded concurrency, and maps the
// handler's verdict to explicit Ack/Nak/Term.
package worker

import (
	"context"
	"errors"
)

// DefaultConcurrency is the per-process cap on in-flight messages.
const DefaultConcurrency = 5

// ErrSourceClosed is returned by Source.Next when the source has been
// stopped; the runner treats it as a clean shutdown.
var ErrSourceClosed = errors.New("message source closed")

// Disposition is the handler's verdict on one message.
type Disposition int

const (
	// Ack marks the message done.
	Ack Disposition = iota

	// Retry asks the bus to redeliver later (transient failure).
	Retry

	// Discard poisons the message: it is never redelivered.
	Discard
)

func (d Disposition) String() string {
	switch d {
	case Ack:
		return "ack"
	case Retry:
		return "retry"
	case Discard:
		return "discard"
	default:
		return "unknown"
	}
}

// Message is one delivered bus message.
type Message interface {
	Subject() string
	Data() []byte
	Ack() error
	Nak() error
	Term() error
}

// Source yields messages until stopped. Next blocks; Stop unblocks any
// pending Next with ErrSourceClosed.
type Source interface {
	Next() (Message, error)
	Stop()
}

// Handler processes one message payload and returns a verdict.
// Handlers must be idempotent: the bus delivers at least once.
type Handler interface {
	Handle(ctx context.Context, payload []byte) Disposition
}

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc func(ctx context.Context, payload []byte) Disposition

func (f HandlerFunc) Handle(ctx context.Context, payload []byte) Disposition {
	return f(ctx, payload)
}
