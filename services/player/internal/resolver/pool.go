package resolver

import (
	"context"

	"go.uber.org/zap"
)

// Pool runs resolutions on a fixed set of workers shared by every tenant
// engine, so one tenant's slow resolution cannot stall another tenant's
// command stream.
type Pool struct {
	r    Resolver
	jobs chan job
	quit chan struct{}
	log  *zap.Logger
}

type job struct {
	ctx   context.Context
	query string
	reply chan outcome
}

type outcome struct {
	res Result
	err error
}

func NewPool(r Resolver, workers int, log *zap.Logger) *Pool {
	if workers <= 0 {
		workers = 4
	}
	p := &Pool{
		r:    r,
		jobs: make(chan job, workers*2),
		quit: make(chan struct{}),
		log:  log,
	}
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Resolve blocks the calling goroutine until a worker finishes the query,
// the context is cancelled, or the pool is closed.
func (p *Pool) Resolve(ctx context.Context, query string) (Result, error) {
	j := job{ctx: ctx, query: query, reply: make(chan outcome, 1)}

	select {
	case p.jobs <- j:
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-p.quit:
		return Result{}, context.Canceled
	}

	select {
	case out := <-j.reply:
		return out.res, out.err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case <-p.quit:
		return Result{}, context.Canceled
	}
}

func (p *Pool) Close() {
	close(p.quit)
}

func (p *Pool) worker() {
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.jobs:
			if j.ctx.Err() != nil {
				j.reply <- outcome{err: j.ctx.Err()}
				continue
			}
			res, err := p.r.Resolve(j.ctx, j.query)
			if err != nil && p.log != nil {
				p.log.Debug("resolve failed", zap.String("query", j.query), zap.Error(err))
			}
			j.reply <- outcome{res: res, err: err}
		}
	}
}
