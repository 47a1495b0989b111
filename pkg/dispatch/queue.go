// Package dispatch provides the single executor that completion callbacks
// run on
package dispatch

import (
	"sync"

	"go.uber.org/zap"
)

// Queue runs submitted callbacks one at a time, in submission order, on a
// dedicated goroutine. The backlog is unbounded so Submit never blocks, even
// when called from inside a callback.
type Queue struct {
	mu      sync.Mutex
	cond    *sync.Cond
	pending []func()
	closed  bool
	done    chan struct{}
	logger  *zap.Logger
}

// NewQueue starts a queue. A nil logger disables panic logging.
func NewQueue(logger *zap.Logger) *Queue {
	if logger == nil {
		logger = zap.NewNop()
	}

	q := &Queue{
		done:   make(chan struct{}),
		logger: logger,
	}
	q.cond = sync.NewCond(&q.mu)
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)

	for {
		q.mu.Lock()
		for len(q.pending) == 0 && !q.closed {
			q.cond.Wait()
		}
		if len(q.pending) == 0 {
			q.mu.Unlock()
			return
		}
		fn := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.mu.Unlock()

		q.execute(fn)
	}
}

// execute runs fn with panic recovery
func (q *Queue) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("panic in completion callback", zap.Any("panic", r))
		}
	}()
	fn()
}

// Submit schedules fn. Once the queue is closed fn runs immediately on the
// caller's goroutine, so a submitted callback always runs exactly once.
func (q *Queue) Submit(fn func()) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		q.execute(fn)
		return
	}
	q.pending = append(q.pending, fn)
	q.mu.Unlock()
	q.cond.Signal()
}

// Close stops accepting work and waits for queued callbacks to finish. It
// must not be called from inside a callback.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()

	<-q.done
}
