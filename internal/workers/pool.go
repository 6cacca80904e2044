package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// ErrPanic wraps a panic recovered from a job.
var ErrPanic = errors.New("worker panicked")

// Pool bounds the number of CPU-bound jobs running at once. Callers queue on
// Do until a slot frees up or their context ends.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	logger *zap.Logger
}

// New returns a pool with size slots. size <= 0 means runtime.NumCPU().
func New(size int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
		logger: logger.Named("workers"),
	}
}

// Size returns the number of slots.
func (p *Pool) Size() int {
	return p.size
}

// Do runs fn on a worker goroutine and waits for it. If ctx ends while fn is
// queued, fn never runs. If ctx ends while fn is running, Do still waits for
// fn to return, since CPU-bound work cannot be preempted.
func (p *Pool) Do(ctx context.Context, fn func() error) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	done := make(chan error, 1)
	go func() {
		defer p.sem.Release(1)
		done <- p.run(fn)
	}()
	return <-done
}

func (p *Pool) run(fn func() error) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			p.logger.Error("job panicked",
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
			err = fmt.Errorf("%w: %v", ErrPanic, rec)
		}
	}()
	return fn()
}
