// Package worker runs the background fanout dispatchers.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"wachat-server/internal/domain/message"
	"wachat-server/internal/infrastructure/queue"
)

// Pool manages the fanout workers.
type Pool struct {
	workers        []*Worker
	queue          queue.EventQueue
	publisher      message.Publisher
	workerCount    int
	publishTimeout time.Duration
	log            zerolog.Logger
	wg             sync.WaitGroup
}

// Config contains worker pool configuration.
type Config struct {
	WorkerCount    int
	PublishTimeout time.Duration
}

// NewPool creates a new fanout worker pool.
func NewPool(q queue.EventQueue, publisher message.Publisher, cfg Config, log zerolog.Logger) *Pool {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}
	return &Pool{
		queue:          q,
		publisher:      publisher,
		workerCount:    cfg.WorkerCount,
		publishTimeout: cfg.PublishTimeout,
		log:            log.With().Str("component", "fanout-pool").Logger(),
	}
}

// Start launches all workers.
func (p *Pool) Start(ctx context.Context) {
	p.log.Info().Int("worker_count", p.workerCount).Msg("starting fanout workers")

	p.workers = make([]*Worker, p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		worker := NewWorker(i+1, p.queue, p.publisher, p.publishTimeout, p.log)
		p.workers[i] = worker

		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Start(ctx)
		}(worker)
	}
}

// Stop closes the queue and waits for workers to drain.
func (p *Pool) Stop() {
	p.log.Info().Msg("stopping fanout workers")
	p.queue.Close()
	p.wg.Wait()
	p.log.Info().Msg("fanout workers stopped")
}
