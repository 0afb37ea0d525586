package yahoo

import (
	"context"
	"fmt"
	"sync"
	"time"
)

const requestQueueSize = 100

// requestJob is one provider call waiting for its slot.
type requestJob struct {
	ctx  context.Context
	fn   func() error
	done chan error
}

// requestQueue runs provider calls one at a time with a minimum gap between them.
type requestQueue struct {
	delay      time.Duration
	jobs       chan requestJob
	stopChan   chan struct{}
	workerDone chan struct{}
	once       sync.Once
	sleep      func(time.Duration)
}

func newRequestQueue(delay time.Duration) *requestQueue {
	q := &requestQueue{
		delay:      delay,
		jobs:       make(chan requestJob, requestQueueSize),
		stopChan:   make(chan struct{}),
		workerDone: make(chan struct{}),
		sleep:      time.Sleep,
	}
	go q.worker()
	return q
}

// Do queues fn and blocks until it has run or ctx is done.
func (q *requestQueue) Do(ctx context.Context, fn func() error) error {
	job := requestJob{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case <-q.stopChan:
		return fmt.Errorf("client is closed")
	default:
	}

	select {
	case q.jobs <- job:
	case <-q.stopChan:
		return fmt.Errorf("client is closed")
	case <-ctx.Done():
		return ctx.Err()
	default:
		return fmt.Errorf("request queue is full")
	}

	select {
	case err := <-job.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *requestQueue) worker() {
	defer close(q.workerDone)

	var lastRequestTime time.Time
	firstRequest := true

	process := func(job requestJob) {
		if err := job.ctx.Err(); err != nil {
			job.done <- err
			return
		}
		if !firstRequest {
			if elapsed := time.Since(lastRequestTime); elapsed < q.delay {
				q.sleep(q.delay - elapsed)
			}
		}
		firstRequest = false

		err := job.fn()
		lastRequestTime = time.Now()
		job.done <- err
	}

	for {
		select {
		case <-q.stopChan:
			for {
				select {
				case job := <-q.jobs:
					process(job)
				default:
					return
				}
			}
		case job := <-q.jobs:
			process(job)
		}
	}
}

// Close drains queued calls and stops the worker.
func (q *requestQueue) Close() {
	q.once.Do(func() {
		close(q.stopChan)
		<-q.workerDone
	})
}
