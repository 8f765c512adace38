// Package parallel runs background work for the tab graph: a fixed pool of
// workers for network-bound jobs and a queue that hands results back to the
// single-threaded UI loop.
package parallel

import (
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/dd0wney/cluso-tabgraph/pkg/logging"
	"github.com/dd0wney/cluso-tabgraph/pkg/metrics"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// ErrQueueFull is returned by TrySubmit when every queue slot is taken.
var ErrQueueFull = errors.New("worker pool queue full")

// ErrTooManyWorkers is returned when the worker count exceeds the maximum allowed.
var ErrTooManyWorkers = fmt.Errorf("worker count exceeds maximum")

const (
	// DefaultWorkers matches the two background jobs the engine runs at once:
	// a recompute pass and a cluster summary.
	DefaultWorkers = 2
	// MaxWorkers is the maximum number of workers allowed in a pool.
	MaxWorkers = 64
)

// WorkerPool manages a pool of worker goroutines
type WorkerPool struct {
	workers   int
	taskQueue chan func()
	wg        sync.WaitGroup
	once      sync.Once
	mu        sync.RWMutex // Protects taskQueue from concurrent close during send
	closed    bool         // Protected by mu

	logger  logging.Logger
	metrics *metrics.Registry
}

// NewWorkerPool creates a new worker pool with specified number of workers.
// A non-positive count selects DefaultWorkers.
func NewWorkerPool(workers int, logger logging.Logger, reg *metrics.Registry) (*WorkerPool, error) {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if workers > MaxWorkers {
		return nil, fmt.Errorf("%w: %d exceeds %d", ErrTooManyWorkers, workers, MaxWorkers)
	}

	pool := &WorkerPool{
		workers:   workers,
		taskQueue: make(chan func(), workers*2), // Buffer for 2x workers
		logger:    logging.OrDefault(logger).With(logging.Component("worker_pool")),
		metrics:   reg,
	}

	pool.start()
	return pool, nil
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// start initializes the worker goroutines
func (wp *WorkerPool) start() {
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
}

// worker processes tasks from the queue
func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()

	for task := range wp.taskQueue {
		wp.run(id, task)
	}
}

func (wp *WorkerPool) run(id int, task func()) {
	status := "ok"
	defer func() {
		if r := recover(); r != nil {
			status = "panic"
			wp.logger.Error("Worker panic recovered",
				logging.Int("worker", id),
				logging.Any("panic", fmt.Sprint(r)),
				logging.String("stack", string(debug.Stack())),
			)
		}
		if wp.metrics != nil {
			wp.metrics.RecordPoolTask(status)
		}
	}()
	task()
}

// Submit queues a task. It blocks while the queue is full and returns
// ErrPoolClosed once Close has been called.
func (wp *WorkerPool) Submit(task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		if wp.metrics != nil {
			wp.metrics.RecordPoolTask("rejected")
		}
		return ErrPoolClosed
	}

	// Safe to send because we hold the lock and pool is not closed
	wp.taskQueue <- task
	return nil
}

// TrySubmit queues a task without waiting. It returns ErrQueueFull when the
// queue has no free slot, so callers on the UI loop can retry on a later frame.
func (wp *WorkerPool) TrySubmit(task func()) error {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if wp.closed {
		if wp.metrics != nil {
			wp.metrics.RecordPoolTask("rejected")
		}
		return ErrPoolClosed
	}

	select {
	case wp.taskQueue <- task:
		return nil
	default:
		if wp.metrics != nil {
			wp.metrics.RecordPoolTask("full")
		}
		return ErrQueueFull
	}
}

// QueueCapacity returns the number of tasks that can wait for a worker.
func (wp *WorkerPool) QueueCapacity() int {
	return cap(wp.taskQueue)
}

// Close stops accepting tasks and waits for queued ones to finish. It is
// safe to call more than once.
func (wp *WorkerPool) Close() {
	wp.once.Do(func() {
		wp.mu.Lock()
		wp.closed = true
		close(wp.taskQueue)
		wp.mu.Unlock()
	})
	wp.wg.Wait()
}
