package pool

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

type inflight struct {
	job Job
	cb  Callback
}

type queuedJob struct {
	job Job
	cb  Callback
}

// Pool is a fixed-size set of isolated worker processes dispatched
// FIFO. All mutable pool state (free list, busy map, queue) is owned by
// a single goroutine running loop; every other goroutine communicates
// with it by sending a closure over ops.
type Pool struct {
	size     int
	spawn    SpawnFunc
	queueCap int

	ctx    context.Context
	cancel context.CancelFunc

	ops  chan func()
	eg   *errgroup.Group
	done chan struct{}

	log zerolog.Logger

	// loop-owned state; touched only inside the loop goroutine once NewPool has started it.
	free    []WorkerConn
	busy    map[WorkerConn]inflight
	queue   []queuedJob
	closed  bool
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithQueueCapacity bounds the number of jobs that may wait for a free
// worker. Submit fails fast with ErrQueueFull once the bound is hit. The
// default, zero, is an unbounded queue.
func WithQueueCapacity(n int) Option {
	return func(p *Pool) { p.queueCap = n }
}

// WithLogger overrides the package-level zerolog logger the pool uses
// for spawn/crash/dispatch events.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Pool) { p.log = l }
}

// NewPool spawns size workers via spawn and starts the pool's host event
// loop. The returned Pool must be closed with Close.
func NewPool(ctx context.Context, size int, spawn SpawnFunc, opts ...Option) (*Pool, error) {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool{
		size:   size,
		spawn:  spawn,
		ctx:    ctx,
		cancel: cancel,
		ops:    make(chan func(), 64),
		eg:     new(errgroup.Group),
		done:   make(chan struct{}),
		busy:   make(map[WorkerConn]inflight),
		log:    log.Logger,
	}
	for _, opt := range opts {
		opt(p)
	}

	for i := 0; i < size; i++ {
		w, err := spawn(ctx)
		if err != nil {
			cancel()
			for _, already := range p.free {
				_ = already.Close()
			}
			return nil, err
		}
		p.free = append(p.free, w)
	}

	p.eg.Go(p.loop)
	return p, nil
}

func (p *Pool) loop() error {
	for {
		select {
		case op := <-p.ops:
			op()
		case <-p.done:
			return nil
		}
	}
}

// Submit enqueues job for execution. cb fires exactly once, from the
// pool's internal goroutines, never synchronously from Submit itself.
func (p *Pool) Submit(job Job, cb Callback) {
	if err := job.validate(); err != nil {
		go cb(false, err)
		return
	}
	select {
	case <-p.done:
		go cb(false, ErrPoolClosed)
		return
	default:
	}
	select {
	case p.ops <- func() { p.doSubmit(job, cb) }:
	case <-p.done:
		go cb(false, ErrPoolClosed)
	}
}

func (p *Pool) doSubmit(job Job, cb Callback) {
	if p.closed {
		cb(false, ErrPoolClosed)
		return
	}
	if len(p.free) > 0 {
		w := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		p.dispatch(w, job, cb)
		return
	}
	if p.queueCap > 0 && len(p.queue) >= p.queueCap {
		cb(false, ErrQueueFull)
		return
	}
	p.queue = append(p.queue, queuedJob{job: job, cb: cb})
}

// dispatch hands job to w. The actual send/recv happens off the loop
// goroutine so a slow or stuck worker cannot stall dispatch of other
// jobs; the outcome is reported back to the loop as another op, keeping
// all state mutation single-threaded.
func (p *Pool) dispatch(w WorkerConn, job Job, cb Callback) {
	p.busy[w] = inflight{job: job, cb: cb}
	p.eg.Go(func() error {
		if err := w.Send(jobToRequest(job)); err != nil {
			p.post(func() { p.handleWorkerDied(w) })
			return nil
		}
		reply, err := w.Recv()
		p.post(func() {
			if err != nil {
				p.handleWorkerDied(w)
				return
			}
			p.handleReply(w, reply)
		})
		return nil
	})
}

func (p *Pool) post(op func()) {
	select {
	case p.ops <- op:
	case <-p.done:
	}
}

func (p *Pool) handleReply(w WorkerConn, reply Reply) {
	if p.closed {
		return
	}
	in, ok := p.busy[w]
	if !ok {
		return // already reassigned by a concurrent death/close race
	}
	delete(p.busy, w)
	p.free = append(p.free, w)

	if reply.Error != "" {
		in.cb(false, ErrMalformedReply)
	} else {
		in.cb(reply.Result, nil)
	}
	p.tryDispatchFromQueue()
}

// handleWorkerDied retires w, spawns its replacement, and — if w had a
// job in flight — resubmits that job at the head of the queue so it
// runs next on whichever worker frees up first.
func (p *Pool) handleWorkerDied(w WorkerConn) {
	if p.closed {
		return
	}
	in, wasBusy := p.busy[w]
	delete(p.busy, w)
	for i, f := range p.free {
		if f == w {
			p.free = append(p.free[:i], p.free[i+1:]...)
			break
		}
	}
	_ = w.Close()

	p.log.Warn().Str("worker_id", w.ID()).Msg("pool: worker died, respawning")
	replacement, err := p.spawn(p.ctx)
	if err != nil {
		p.log.Error().Err(err).Str("worker_id", w.ID()).Msg("pool: failed to respawn worker, pool permanently short one slot")
	} else {
		p.free = append(p.free, replacement)
	}

	if wasBusy {
		p.queue = append([]queuedJob{{job: in.job, cb: in.cb}}, p.queue...)
	}
	p.tryDispatchFromQueue()
}

func (p *Pool) tryDispatchFromQueue() {
	for len(p.queue) > 0 && len(p.free) > 0 {
		qj := p.queue[0]
		p.queue = p.queue[1:]
		w := p.free[len(p.free)-1]
		p.free = p.free[:len(p.free)-1]
		p.dispatch(w, qj.job, qj.cb)
	}
}

// Close stops accepting new work, terminates every worker process, fails
// every in-flight and queued job's callback with ErrPoolClosed, and
// waits for in-flight send/recv goroutines to unwind. Worker termination
// happens inside an op, so it never races the loop goroutine's own
// mutation of free/busy.
func (p *Pool) Close() error {
	closed := make(chan struct{})
	p.ops <- func() {
		p.closed = true
		for _, w := range p.free {
			_ = w.Close()
		}
		for w, in := range p.busy {
			_ = w.Close()
			in.cb(false, ErrPoolClosed)
		}
		for _, qj := range p.queue {
			qj.cb(false, ErrPoolClosed)
		}
		p.queue = nil
		close(closed)
	}
	<-closed
	close(p.done)
	p.cancel()
	return p.eg.Wait()
}
