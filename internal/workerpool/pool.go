package workerpool

import (
	"context"
	"fmt"
	"sync"
	"time"

	"socialscraper/pkg/logger"
)

// Job is one unit of work; Index is its position in the submitted sequence
type Job[T any] struct {
	Index   int
	Payload T
}

// Result is the outcome of one job
type Result[R any] struct {
	Index    int
	Value    R
	Err      error
	Duration time.Duration
}

// Handler processes a single payload
type Handler[T, R any] func(ctx context.Context, payload T) (R, error)

// Pool runs a fixed number of workers over a job queue
type Pool[T, R any] struct {
	numWorkers  int
	jobQueue    chan Job[T]
	resultQueue chan Result[R]
	wg          sync.WaitGroup
	ctx         context.Context
	cancel      context.CancelFunc
	handler     Handler[T, R]
	logger      logger.Logger
}

// New creates a worker pool bound to ctx
func New[T, R any](ctx context.Context, numWorkers int, handler Handler[T, R], log logger.Logger) *Pool[T, R] {
	if numWorkers < 1 {
		numWorkers = 1
	}
	if log == nil {
		log = logger.GetLogger()
	}
	ctx, cancel := context.WithCancel(ctx)

	return &Pool[T, R]{
		numWorkers:  numWorkers,
		jobQueue:    make(chan Job[T], numWorkers*2),
		resultQueue: make(chan Result[R], numWorkers),
		ctx:         ctx,
		cancel:      cancel,
		handler:     handler,
		logger:      log,
	}
}

// Start launches the workers
func (p *Pool[T, R]) Start() {
	p.logger.DebugWithFields("Starting worker pool", map[string]interface{}{
		"num_workers": p.numWorkers,
	})

	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop closes the queue, waits for in-flight jobs and closes Results
func (p *Pool[T, R]) Stop() {
	close(p.jobQueue)
	p.wg.Wait()
	close(p.resultQueue)
	p.cancel()

	p.logger.Debug("Worker pool stopped")
}

// Submit queues a job, failing once the pool context is done
func (p *Pool[T, R]) Submit(job Job[T]) error {
	select {
	case p.jobQueue <- job:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down: %w", p.ctx.Err())
	}
}

// Results returns the result channel
func (p *Pool[T, R]) Results() <-chan Result[R] {
	return p.resultQueue
}

func (p *Pool[T, R]) worker(id int) {
	defer p.wg.Done()

	for job := range p.jobQueue {
		if p.ctx.Err() != nil {
			return
		}

		start := time.Now()
		v, err := p.handler(p.ctx, job.Payload)
		res := Result[R]{Index: job.Index, Value: v, Err: err, Duration: time.Since(start)}

		select {
		case p.resultQueue <- res:
		case <-p.ctx.Done():
			p.logger.DebugWithFields("Worker stopping - context cancelled while sending result", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}
}

// Run processes every payload on a pool of numWorkers and returns results
// indexed like payloads. If ctx ends first, the context error is returned
// and unfinished entries keep their zero value.
func Run[T, R any](ctx context.Context, numWorkers int, payloads []T, handler Handler[T, R], log logger.Logger) ([]Result[R], error) {
	pool := New(ctx, numWorkers, handler, log)
	pool.Start()

	go func() {
		defer pool.Stop()
		for i, payload := range payloads {
			if err := pool.Submit(Job[T]{Index: i, Payload: payload}); err != nil {
				return
			}
		}
	}()

	out := make([]Result[R], len(payloads))
	received := 0
	for res := range pool.Results() {
		out[res.Index] = res
		received++
	}

	if received < len(payloads) {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		return out, fmt.Errorf("worker pool finished %d of %d jobs", received, len(payloads))
	}
	return out, nil
}
