package syncd

import (
	"context"
	"sync"

	"github.com/Laisky/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Laisky/syncd/library/log"
)

// asyncJob is a unit of best-effort background work: lastUsedAt
// touches and tombstone cleanup, per spec §9's "explicit background
// task submissions; failures flow to the logger; no await in the
// request/event path."
type asyncJob func(ctx context.Context)

// asyncPool is a small bounded worker pool, grounded on the teacher's
// index-worker background-job pattern (internal/mcp/files/index_worker.go)
// but simplified from its claim/retry/backoff polling loop to a plain
// fire-and-forget queue, since nothing here needs durable retry: a
// dropped lastUsedAt touch or a missed cleanup pass is explicitly
// tolerated by spec §9.
type asyncPool struct {
	jobs chan asyncJob
	eg   *errgroup.Group
	ctx  context.Context
	once sync.Once
}

// newAsyncPool starts n workers draining a queue of depth queueDepth.
func newAsyncPool(ctx context.Context, n, queueDepth int) *asyncPool {
	eg, egCtx := errgroup.WithContext(ctx)
	p := &asyncPool{
		jobs: make(chan asyncJob, queueDepth),
		eg:   eg,
		ctx:  egCtx,
	}
	for i := 0; i < n; i++ {
		eg.Go(p.worker)
	}
	return p
}

func (p *asyncPool) worker() error {
	for {
		select {
		case <-p.ctx.Done():
			return nil
		case job, ok := <-p.jobs:
			if !ok {
				return nil
			}
			p.run(job)
		}
	}
}

func (p *asyncPool) run(job asyncJob) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger.Warn("async job panicked", zap.Any("recover", r))
		}
	}()
	job(p.ctx)
}

// submit enqueues job, dropping it (and logging) if the queue is full
// so back-pressure never blocks the caller's request/event path.
func (p *asyncPool) submit(job asyncJob) {
	select {
	case p.jobs <- job:
	default:
		log.Logger.Warn("async job queue full, dropping job")
	}
}

// close stops accepting work and waits for in-flight jobs to finish.
func (p *asyncPool) close() {
	p.once.Do(func() {
		close(p.jobs)
		_ = p.eg.Wait()
	})
}
