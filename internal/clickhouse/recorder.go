package clickhouse

import (
	"context"
	"time"

	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
)

// Sink stores batches of events
type Sink interface {
	RecordEvents(ctx context.Context, events ...pubsub.Event) error
}

// Recorder buffers events and flushes them to a Sink by size or on a ticker
type Recorder struct {
	sink       Sink
	batchSize  int
	flushEvery time.Duration
}

// NewRecorder creates a recorder; zero values pick 100 events / 5 seconds
func NewRecorder(sink Sink, batchSize int, flushEvery time.Duration) *Recorder {
	if batchSize <= 0 {
		batchSize = 100
	}
	if flushEvery <= 0 {
		flushEvery = 5 * time.Second
	}
	return &Recorder{sink: sink, batchSize: batchSize, flushEvery: flushEvery}
}

// Run consumes events until ctx is done or events is closed, then flushes
// what is left.
func (r *Recorder) Run(ctx context.Context, events <-chan pubsub.Event) {
	ticker := time.NewTicker(r.flushEvery)
	defer ticker.Stop()

	buf := make([]pubsub.Event, 0, r.batchSize)
	flush := func() {
		if len(buf) == 0 {
			return
		}
		flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.sink.RecordEvents(flushCtx, buf...); err != nil {
			logger.Error("Failed to record card events", "error", err, "count", len(buf))
		} else {
			logger.Debug("Recorded card events", "count", len(buf))
		}
		buf = buf[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case e, ok := <-events:
			if !ok {
				flush()
				return
			}
			buf = append(buf, e)
			if len(buf) >= r.batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}
