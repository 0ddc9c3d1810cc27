// Package bus wraps the NATS connection used for derivation fan-out and
// request/reply search.
//
// Derivation work travels over three JetStream streams, one subject each,
// capped at 10 000 messages. Payloads are the raw media id bytes. Search is
// plain core NATS request/reply.
package bus

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Subjects and durable consumer names shared with the external workers.
const (
	SubjectPreviews     = "previews"
	SubjectMetadata     = "metadata"
	SubjectImageProcess = "image-process"
	SubjectSearch       = "clip-process-search"

	ConsumerPreview  = "preview_consumer"
	ConsumerMetadata = "metadata_consumer"

	// maxStreamMsgs caps each derivation stream; older messages are dropped.
	maxStreamMsgs = 10_000
)

// Config contains message bus configuration.
type Config struct {
	// Endpoint is the NATS server URL, e.g. "nats://localhost:4222".
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint" validate:"required"`
}

// Publisher is the subset of the bus the upload ingress needs.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte) error
}

// Requester is the subset of the bus the search endpoint needs.
type Requester interface {
	Request(ctx context.Context, subject string, payload []byte) ([]byte, error)
}

// Conn is a NATS connection with JetStream enabled.
type Conn struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect dials the NATS server and initializes JetStream.
func Connect(cfg Config) (*Conn, error) {
	nc, err := nats.Connect(cfg.Endpoint,
		nats.Name("chronolens"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %q: %w", cfg.Endpoint, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	return &Conn{nc: nc, js: js}, nil
}

// Close drains and closes the underlying connection.
func (c *Conn) Close() {
	_ = c.nc.Drain()
}

// EnsureStreams creates (or updates) the three derivation streams.
// Safe to call from every process at startup.
func (c *Conn) EnsureStreams(ctx context.Context) error {
	for _, subject := range []string{SubjectPreviews, SubjectMetadata, SubjectImageProcess} {
		_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
			Name:     subject,
			Subjects: []string{subject},
			MaxMsgs:  maxStreamMsgs,
		})
		if err != nil {
			return fmt.Errorf("failed to ensure stream %q: %w", subject, err)
		}
	}
	return nil
}

// Publish writes one message to a JetStream subject, waiting for the
// server ack.
func (c *Conn) Publish(ctx context.Context, subject string, payload []byte) error {
	if _, err := c.js.Publish(ctx, subject, payload); err != nil {
		return fmt.Errorf("failed to publish on %q: %w", subject, err)
	}
	return nil
}

// Request performs a core NATS request/reply and returns the reply payload.
func (c *Conn) Request(ctx context.Context, subject string, payload []byte) ([]byte, error) {
	msg, err := c.nc.RequestWithContext(ctx, subject, payload)
	if err != nil {
		return nil, fmt.Errorf("request on %q failed: %w", subject, err)
	}
	return msg.Data, nil
}
