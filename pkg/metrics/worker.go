package metrics

import (
	"context"
	"time"

	"github.com/chronolens/chronolens/pkg/worker"
)

// InstrumentWorker wraps a worker handler so every message is counted by
// disposition and its handling time observed. m may be nil, in which case
// the handler is returned unchanged.
func InstrumentWorker(m *Metrics, subject string, h worker.Handler) worker.Handler {
	if m == nil {
		return h
	}
	return worker.HandlerFunc(func(ctx context.Context, payload []byte) worker.Disposition {
		start := time.Now()
		disposition := h.Handle(ctx, payload)

		m.WorkerMessagesTotal.WithLabelValues(subject, disposition.String()).Inc()
		m.WorkerDuration.WithLabelValues(subject).
			Observe(float64(time.Since(start).Microseconds()) / 1000.0)

		return disposition
	})
}
