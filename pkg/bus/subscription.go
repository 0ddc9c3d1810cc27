package bus

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/chronolens/chronolens/pkg/worker"
)

// Subscription adapts a durable JetStream pull consumer to worker.Source.
type Subscription struct {
	messages jetstream.MessagesContext
}

// Subscribe binds (or creates) the durable consumer on the given stream and
// starts pulling. maxInFlight caps unacknowledged deliveries, matching the
// runner's concurrency.
func (c *Conn) Subscribe(ctx context.Context, stream, durable string, maxInFlight int) (*Subscription, error) {
	if maxInFlight < 1 {
		maxInFlight = worker.DefaultConcurrency
	}

	s, err := c.js.Stream(ctx, stream)
	if err != nil {
		return nil, fmt.Errorf("failed to look up stream %q: %w", stream, err)
	}

	consumer, err := s.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxAckPending: maxInFlight,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to ensure consumer %q: %w", durable, err)
	}

	messages, err := consumer.Messages(jetstream.PullMaxMessages(maxInFlight))
	if err != nil {
		return nil, fmt.Errorf("failed to start pulling from %q: %w", durable, err)
	}

	return &Subscription{messages: messages}, nil
}

// Next blocks until a message arrives or the subscription is stopped.
func (s *Subscription) Next() (worker.Message, error) {
	msg, err := s.messages.Next()
	if err != nil {
		if errors.Is(err, jetstream.ErrMsgIteratorClosed) {
			return nil, worker.ErrSourceClosed
		}
		return nil, err
	}
	return jetstreamMessage{msg}, nil
}

// Stop ends the subscription; a blocked Next returns ErrSourceClosed.
func (s *Subscription) Stop() {
	s.messages.Stop()
}

// jetstreamMessage adapts jetstream.Msg to worker.Message.
type jetstreamMessage struct {
	msg jetstream.Msg
}

func (m jetstreamMessage) Subject() string { return m.msg.Subject() }
func (m jetstreamMessage) Data() []byte    { return m.msg.Data() }
func (m jetstreamMessage) Ack() error      { return m.msg.Ack() }
func (m jetstreamMessage) Nak() error      { return m.msg.Nak() }
func (m jetstreamMessage) Term() error     { return m.msg.Term() }
