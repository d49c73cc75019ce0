// Package workpool implements a bounded worker pool with futures.
//
// The pool runs a fixed number of workers draining a FIFO of submitted
// tasks. Submit returns a Future immediately; the caller receives the
// result on Future.C(). Workers recover from panics and report them as
// errors, so a misbehaving probe cannot take the pool down. Close is
// idempotent and waits for in-flight tasks.
package workpool

import (
	"context"
	"fmt"
	"sync"
)

type taskRequest struct {
	fn  Task[any]
	out chan Result[any]
	ctx context.Context
}

type worker struct {
	done chan struct{}
	wg   *sync.WaitGroup
}

func (w worker) run(r taskRequest) {
	defer func() {
		if rec := recover(); rec != nil {
			r.out <- Result[any]{Err: fmt.Errorf("worker panicked: %v", rec)}
		}
		w.done <- struct{}{}
		w.wg.Done()
	}()

	v, err := r.fn(r.ctx)
	r.out <- Result[any]{Data: v, Err: err}
}

// Pool dispatches tasks to a fixed set of workers.
type Pool struct {
	idle       []worker
	backlog    []taskRequest
	closing    chan struct{}
	done       chan struct{}
	submit     chan taskRequest
	mainCtx    context.Context
	mainCancel context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		closing:    make(chan struct{}),
		done:       make(chan struct{}, workers),
		submit:     make(chan taskRequest),
		mainCtx:    ctx,
		mainCancel: cancel,
	}
	for range workers {
		p.idle = append(p.idle, worker{done: p.done, wg: &p.wg})
	}
	go p.loop()
	return p
}

// Submit queues a task and returns its future. If the pool is closing the
// future resolves immediately with context.Canceled.
func (p *Pool) Submit(t Task[any]) *Future[Result[any]] {
	out := make(chan Result[any], 1)
	ctx, cancel := context.WithCancel(p.mainCtx)

	select {
	case <-p.mainCtx.Done():
		out <- Result[any]{Err: context.Canceled}
	case p.submit <- taskRequest{t, out, ctx}:
	}

	return newFuture(out, cancel)
}

// Close cancels pending task contexts and waits for in-flight workers.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mainCancel()
		p.closing <- struct{}{}
		<-p.done
	})
}

func (p *Pool) loop() {
	defer close(p.done)
	for {
		select {
		case r := <-p.submit:
			p.backlog = append(p.backlog, r)
			p.dispatch()
		case <-p.done:
			p.idle = append(p.idle, worker{done: p.done, wg: &p.wg})
			p.dispatch()
		case <-p.closing:
			p.wg.Wait()
			return
		}
	}
}

// dispatch pairs idle workers with queued tasks.
func (p *Pool) dispatch() {
	for len(p.idle) > 0 && len(p.backlog) > 0 {
		r := p.backlog[0]
		p.backlog = p.backlog[1:]
		w := p.idle[0]
		p.idle = p.idle[1:]
		p.wg.Add(1)
		go w.run(r)
	}
}
