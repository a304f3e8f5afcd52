package processor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

var (
	ErrQueueFull     = errors.New("command queue is full")
	ErrQueueShutdown = errors.New("command queue is shutting down")
)

// CommandTask pairs a command with the channel its result is delivered on
type CommandTask struct {
	Command  Command
	Response chan<- ProcessorResponse
}

// CommandQueue runs commands on a fixed pool of workers so that request
// bursts wait in line instead of piling up on the service lock.
type CommandQueue struct {
	tasks   chan CommandTask
	workers int
	exec    func(Command) ProcessorResponse
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
}

// NewCommandQueue creates a queue with the given worker count and backlog
func NewCommandQueue(workerCount, backlog int, exec func(Command) ProcessorResponse) *CommandQueue {
	if workerCount < 1 {
		workerCount = 2 // Default
	}
	if backlog < 1 {
		backlog = 100
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &CommandQueue{
		tasks:   make(chan CommandTask, backlog),
		workers: workerCount,
		exec:    exec,
		ctx:     ctx,
		cancel:  cancel,
	}

	q.start()
	return q
}

// start initializes the worker pool
func (q *CommandQueue) start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
}

func (q *CommandQueue) worker() {
	defer q.wg.Done()

	for {
		select {
		case task := <-q.tasks:
			result := q.exec(task.Command)

			// Response channels are buffered, an abandoned receiver never blocks us
			select {
			case task.Response <- result:
			default:
			}

		case <-q.ctx.Done():
			return
		}
	}
}

// Submit adds a task to the queue without blocking
func (q *CommandQueue) Submit(task CommandTask) error {
	select {
	case <-q.ctx.Done():
		return ErrQueueShutdown
	default:
	}

	select {
	case q.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Do submits cmd and waits for its result or for ctx to end
func (q *CommandQueue) Do(ctx context.Context, cmd Command) (ProcessorResponse, error) {
	respChan := make(chan ProcessorResponse, 1)
	if err := q.Submit(CommandTask{Command: cmd, Response: respChan}); err != nil {
		return ProcessorResponse{}, err
	}

	select {
	case result := <-respChan:
		return result, nil
	case <-ctx.Done():
		return ProcessorResponse{}, ctx.Err()
	case <-q.ctx.Done():
		return ProcessorResponse{}, ErrQueueShutdown
	}
}

// Shutdown stops the workers; queued tasks that were not picked up are dropped
func (q *CommandQueue) Shutdown(timeout time.Duration) error {
	q.once.Do(q.cancel)

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
