package jobs

import (
	"context"
	"log"
	"time"

	"github.com/marianoInsa/ChatBot-RAG/internal/telemetry"
)

// Processor runs one unit of background work per tick
type Processor interface {
	Process(ctx context.Context) error
}

// Worker runs a Processor on a fixed interval
type Worker struct {
	name      string
	processor Processor
	interval  time.Duration
	stopChan  chan struct{}
	doneChan  chan struct{}
}

// NewWorker creates a new Worker instance
func NewWorker(name string, processor Processor, interval time.Duration) *Worker {
	return &Worker{
		name:      name,
		processor: processor,
		interval:  interval,
		stopChan:  make(chan struct{}),
		doneChan:  make(chan struct{}),
	}
}

// Start begins the worker's loop. It blocks until ctx is cancelled or Stop is called.
// A stop signal runs the processor one last time so pending work is flushed.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.doneChan)

	log.Printf("%s worker started with interval: %v", w.name, w.interval)

	for {
		select {
		case <-ctx.Done():
			log.Printf("%s worker stopped: context cancelled", w.name)
			return
		case <-w.stopChan:
			if err := w.run(ctx); err != nil {
				log.Printf("%s worker: final run failed: %v", w.name, err)
			}
			log.Printf("%s worker stopped: stop signal received", w.name)
			return
		case <-ticker.C:
			if err := w.run(ctx); err != nil {
				log.Printf("%s worker: %v", w.name, err)
			}
		}
	}
}

// run wraps one Process call in its own transaction; background work has no request to attach to
func (w *Worker) run(ctx context.Context) error {
	ctx, span := telemetry.StartTransaction(ctx, w.name, "job.process")
	defer span.End()

	if err := w.processor.Process(ctx); err != nil {
		telemetry.CaptureError(ctx, err)
		span.MarkFailed()
		return err
	}
	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	close(w.stopChan)
	<-w.doneChan
	log.Printf("%s worker shutdown complete", w.name)
}
