package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMessage records which settlement was called.
type fakeMessage struct {
	subject string
	data    []byte

	mu     sync.Mutex
	acked  bool
	naked  bool
	termed bool
}

func (m *fakeMessage) Subject() string { return m.subject }
func (m *fakeMessage) Data() []byte    { return m.data }

func (m *fakeMessage) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.acked = true
	return nil
}

func (m *fakeMessage) Nak() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.naked = true
	return nil
}

func (m *fakeMessage) Term() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.termed = true
	return nil
}

// fakeSource yields a fixed set of messages, then blocks until stopped.
type fakeSource struct {
	ch      chan Message
	stopped chan struct{}
	once    sync.Once
}

func newFakeSource(msgs ...Message) *fakeSource {
	ch := make(chan Message, len(msgs))
	for _, m := range msgs {
		ch <- m
	}
	return &fakeSource{ch: ch, stopped: make(chan struct{})}
}

func (s *fakeSource) Next() (Message, error) {
	select {
	case m := <-s.ch:
		return m, nil
	case <-s.stopped:
		return nil, ErrSourceClosed
	}
}

func (s *fakeSource) Stop() {
	s.once.Do(func() { close(s.stopped) })
}

func TestRunnerSettlesByDisposition(t *testing.T) {
	ack := &fakeMessage{subject: "previews", data: []byte("m1")}
	retry := &fakeMessage{subject: "previews", data: []byte("m2")}
	discard := &fakeMessage{subject: "previews", data: []byte("m3")}
	source := newFakeSource(ack, retry, discard)

	handler := HandlerFunc(func(ctx context.Context, payload []byte) Disposition {
		switch string(payload) {
		case "m1":
			return Ack
		case "m2":
			return Retry
		default:
			return Discard
		}
	})

	runner := NewRunner(source, handler, 2)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	// Give the runner time to drain the queue, then shut down.
	require.Eventually(t, func() bool {
		discard.mu.Lock()
		defer discard.mu.Unlock()
		return discard.termed
	}, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.True(t, ack.acked)
	assert.False(t, ack.naked)
	assert.True(t, retry.naked)
	assert.False(t, retry.acked)
	assert.True(t, discard.termed)
}

func TestRunnerBoundsConcurrency(t *testing.T) {
	const total = 20
	msgs := make([]Message, total)
	for i := range msgs {
		msgs[i] = &fakeMessage{subject: "previews", data: []byte("m")}
	}
	source := newFakeSource(msgs...)

	var inFlight, peak atomic.Int32
	handler := HandlerFunc(func(ctx context.Context, payload []byte) Disposition {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		inFlight.Add(-1)
		return Ack
	})

	runner := NewRunner(source, handler, 5)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runner.Run(ctx) }()

	require.Eventually(t, func() bool {
		last := msgs[total-1].(*fakeMessage)
		last.mu.Lock()
		defer last.mu.Unlock()
		return last.acked
	}, 5*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	assert.LessOrEqual(t, peak.Load(), int32(5))
	assert.Greater(t, peak.Load(), int32(1))
}

func TestRunnerCleanShutdownOnSourceClose(t *testing.T) {
	source := newFakeSource()
	runner := NewRunner(source, HandlerFunc(func(context.Context, []byte) Disposition { return Ack }), 0)

	done := make(chan error, 1)
	go func() { done <- runner.Run(context.Background()) }()

	source.Stop()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("runner did not stop")
	}
}
