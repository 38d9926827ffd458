package pool_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/hackchain/scriptvm/pkg/pool"
)

// fakeWorker is an in-memory WorkerConn stand-in: recvFn decides, per
// request, whether to return a reply or simulate a crash (a non-nil
// error, as a real worker's broken pipe would surface).
type fakeWorker struct {
	mu      sync.Mutex
	id      string
	lastReq pool.Request
	closed  bool
	recvFn  func(req pool.Request) (pool.Reply, error)
}

func (f *fakeWorker) ID() string {
	return f.id
}

func (f *fakeWorker) Send(req pool.Request) error {
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	return nil
}

func (f *fakeWorker) Recv() (pool.Reply, error) {
	f.mu.Lock()
	req := f.lastReq
	f.mu.Unlock()
	return f.recvFn(req)
}

func (f *fakeWorker) Close() error {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	return nil
}

func (f *fakeWorker) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

var errFakeWorkerCrash = errors.New("fake worker crashed")

// fakeSpawner hands out fakeWorkers built from recvFns (consumed in order,
// the last entry reused for any further spawn beyond len(recvFns)), and
// counts how many workers it has produced.
func fakeSpawner(recvFns ...func(req pool.Request) (pool.Reply, error)) (pool.SpawnFunc, *int32) {
	var count int32
	return func(ctx context.Context) (pool.WorkerConn, error) {
		i := atomic.AddInt32(&count, 1) - 1
		fn := recvFns[len(recvFns)-1]
		if int(i) < len(recvFns) {
			fn = recvFns[i]
		}
		return &fakeWorker{id: fmt.Sprintf("fake-%d", i), recvFn: fn}, nil
	}, &count
}

func succeeds(result bool) func(pool.Request) (pool.Reply, error) {
	return func(pool.Request) (pool.Reply, error) { return pool.Reply{Result: result}, nil }
}

func crashes() func(pool.Request) (pool.Reply, error) {
	return func(pool.Request) (pool.Reply, error) { return pool.Reply{}, errFakeWorkerCrash }
}

func blocksUntil(gate <-chan struct{}, result bool) func(pool.Request) (pool.Reply, error) {
	return func(pool.Request) (pool.Reply, error) {
		<-gate
		return pool.Reply{Result: result}, nil
	}
}
