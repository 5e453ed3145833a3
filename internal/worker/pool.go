package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var ErrPoolClosed = errors.New("worker pool closed")

type Handler interface {
	Run(ctx context.Context, job Job) error
}

// Pool runs jobs on a fixed number of goroutines fed by a bounded queue.
// Enqueue blocks while the queue is full.
type Pool struct {
	jobs    chan Job
	workers int
	grace   time.Duration
	handler Handler
	log     zerolog.Logger

	// mu is held for reading by senders so shutdown can wait them out.
	mu        sync.RWMutex
	closeOnce sync.Once
	closed    chan struct{}
}

func NewPool(workers, queueSize int, grace time.Duration, handler Handler, log zerolog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		jobs:    make(chan Job, queueSize),
		workers: workers,
		grace:   grace,
		handler: handler,
		log:     log,
		closed:  make(chan struct{}),
	}
}

func (p *Pool) Enqueue(ctx context.Context, job Job) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	select {
	case <-p.closed:
		return ErrPoolClosed
	default:
	}

	select {
	case p.jobs <- job:
		return nil
	case <-p.closed:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending is the number of jobs waiting for a worker.
func (p *Pool) Pending() int { return len(p.jobs) }

// Run starts the workers and blocks until ctx is cancelled and every running
// job has returned. Once ctx is done no queued job is started. Running jobs
// keep their context for up to the grace period and are cancelled after it.
// Jobs still queued are dropped unacknowledged so their queue can redeliver
// them.
func (p *Pool) Run(ctx context.Context) error {
	jobCtx, cancelJobs := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelJobs()

	stop := context.AfterFunc(ctx, func() {
		p.shutdown()
		time.AfterFunc(p.grace, cancelJobs)
	})
	defer stop()

	var g errgroup.Group
	for i := 0; i < p.workers; i++ {
		g.Go(func() error {
			p.work(ctx, jobCtx, i)
			return nil
		})
	}
	p.log.Info().
		Int("workers", p.workers).
		Int("queue_size", cap(p.jobs)).
		Dur("grace", p.grace).
		Msg("worker pool started")

	err := g.Wait()

	p.shutdown()
	dropped := 0
	for len(p.jobs) > 0 {
		job := <-p.jobs
		job.finish(false)
		dropped++
	}
	if dropped > 0 {
		p.log.Warn().Int("dropped", dropped).Msg("worker pool stopped with queued jobs")
	}
	return err
}

// shutdown refuses new jobs and waits for senders that already passed the
// closed check, so nothing lands in the queue afterwards.
func (p *Pool) shutdown() {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.mu.Lock()
		p.mu.Unlock()
	})
}

func (p *Pool) work(ctx, jobCtx context.Context, id int) {
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-p.jobs:
			if ctx.Err() != nil {
				job.finish(false)
				return
			}
			if err := p.handler.Run(jobCtx, job); err != nil {
				p.log.Debug().Err(err).Int("worker", id).Str("photo_id", job.PhotoID.String()).Msg("job finished with error")
			}
			job.finish(true)
		}
	}
}
