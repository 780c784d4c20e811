// Package batch fans per-farmer work out over a bounded worker pool. One
// farmer's failure never stops the rest of the batch.
package batch

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
)

// Func processes a single farmer
type Func func(ctx context.Context, farmerID uuid.UUID) error

// Result collects the outcome of every farmer submitted to Run
type Result struct {
	Succeeded []uuid.UUID
	Failed    map[uuid.UUID]error
}

func newResult() *Result {
	return &Result{Failed: make(map[uuid.UUID]error)}
}

type Config struct {
	Size int
}

// Runner executes batch work on an ants pool
type Runner struct {
	pool   *ants.Pool
	logger *slog.Logger
}

func NewRunner(config Config, logger *slog.Logger) (*Runner, error) {
	pool, err := ants.NewPool(config.Size)
	if err != nil {
		return nil, err
	}

	return &Runner{
		pool:   pool,
		logger: logger,
	}, nil
}

// Run calls fn for every farmer and waits for all of them. Farmers that
// could not be scheduled are reported as failed.
func (r *Runner) Run(ctx context.Context, farmerIDs []uuid.UUID, fn Func) *Result {
	result := newResult()
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	record := func(id uuid.UUID, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			result.Failed[id] = err
			return
		}
		result.Succeeded = append(result.Succeeded, id)
	}

	for _, id := range farmerIDs {
		farmerID := id
		if err := ctx.Err(); err != nil {
			record(farmerID, err)
			continue
		}

		wg.Add(1)
		err := r.pool.Submit(func() {
			defer wg.Done()
			record(farmerID, fn(ctx, farmerID))
		})
		if err != nil {
			wg.Done()
			r.logger.Error("Failed to submit farmer to worker pool", "farmer_id", farmerID.String(), "error", err)
			record(farmerID, err)
		}
	}

	wg.Wait()
	return result
}

// Shutdown releases the pool's workers
func (r *Runner) Shutdown() {
	r.logger.Info("Shutting down worker pool", "running_workers", r.pool.Running())
	r.pool.Release()
}

func (r *Runner) Running() int {
	return r.pool.Running()
}

func (r *Runner) Capacity() int {
	return r.pool.Cap()
}
