package worker

import (
	"context"
	"errors"
	"sync"

	"github.com/chronolens/chronolens/internal/logger"
)

// Runner consumes a Source with bounded concurrency. Each message is an
// independent task; there is no ordering between in-flight messages.
type Runner struct {
	source      Source
	handler     Handler
	concurrency int
}

// NewRunner creates a runner. Concurrency values below 1 fall back to
// DefaultConcurrency.
func NewRunner(source Source, handler Handler, concurrency int) *Runner {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}
	return &Runner{
		source:      source,
		handler:     handler,
		concurrency: concurrency,
	}
}

// Run pulls messages until the context is cancelled or the source closes.
// It returns after all in-flight handlers have finished.
func (r *Runner) Run(ctx context.Context) error {
	// Stop the source when the context ends so Next unblocks.
	stopOnce := sync.Once{}
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		stopOnce.Do(r.source.Stop)
	}()

	sem := make(chan struct{}, r.concurrency)
	var wg sync.WaitGroup

	for {
		msg, err := r.source.Next()
		if err != nil {
			wg.Wait()
			if errors.Is(err, ErrSourceClosed) || ctx.Err() != nil {
				return nil
			}
			return err
		}

		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer func() {
				<-sem
				wg.Done()
			}()
			r.dispatch(ctx, msg)
		}()
	}
}

// dispatch runs the handler and settles the message.
func (r *Runner) dispatch(ctx context.Context, msg Message) {
	lc := &logger.LogContext{Subject: msg.Subject(), MediaID: string(msg.Data())}
	ctx = logger.WithContext(ctx, lc)

	disposition := r.handler.Handle(ctx, msg.Data())

	var err error
	switch disposition {
	case Ack:
		err = msg.Ack()
	case Retry:
		err = msg.Nak()
	case Discard:
		err = msg.Term()
	}
	if err != nil {
		logger.WarnCtx(ctx, "failed to settle message",
			logger.KeyStatus, disposition.String(),
			logger.KeyError, err.Error(),
		)
		return
	}

	logger.DebugCtx(ctx, "message settled", logger.KeyStatus, disposition.String())
}
