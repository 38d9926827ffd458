package pool_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hackchain/scriptvm/pkg/pool"
)

func submitAndCollect(p *pool.Pool, job pool.Job) (chan bool, chan error) {
	resultCh := make(chan bool, 1)
	errCh := make(chan error, 1)
	p.Submit(job, func(success bool, err error) {
		resultCh <- success
		errCh <- err
	})
	return resultCh, errCh
}

func TestSubmitRunsJobOnFreeWorker(t *testing.T) {
	spawn, _ := fakeSpawner(succeeds(true))
	p, err := pool.NewPool(context.Background(), 1, spawn)
	require.NoError(t, err)
	defer p.Close()

	resultCh, errCh := submitAndCollect(p, pool.Job{})
	require.NoError(t, <-errCh)
	assert.True(t, <-resultCh)
}

func TestSubmitReportsFailingRun(t *testing.T) {
	spawn, _ := fakeSpawner(succeeds(false))
	p, err := pool.NewPool(context.Background(), 1, spawn)
	require.NoError(t, err)
	defer p.Close()

	resultCh, errCh := submitAndCollect(p, pool.Job{})
	require.NoError(t, <-errCh)
	assert.False(t, <-resultCh)
}

func TestJobTooLargeRejectedBeforeDispatch(t *testing.T) {
	spawn, spawnCount := fakeSpawner(succeeds(true))
	p, err := pool.NewPool(context.Background(), 1, spawn)
	require.NoError(t, err)
	defer p.Close()

	oversized := pool.Job{Output: make([]byte, 1<<20)}
	resultCh, errCh := submitAndCollect(p, oversized)
	assert.ErrorIs(t, <-errCh, pool.ErrJobTooLarge)
	assert.False(t, <-resultCh)
	assert.EqualValues(t, 1, *spawnCount) // never touched a worker
}

func TestQueueingWhenWorkerBusy(t *testing.T) {
	gate := make(chan struct{})
	spawn, _ := fakeSpawner(blocksUntil(gate, true))
	p, err := pool.NewPool(context.Background(), 1, spawn)
	require.NoError(t, err)
	defer p.Close()

	firstResult, firstErr := submitAndCollect(p, pool.Job{})
	secondResult, secondErr := submitAndCollect(p, pool.Job{})

	// Give the first job time to actually occupy the only worker before
	// unblocking, so the second genuinely exercises the queue path.
	time.Sleep(50 * time.Millisecond)
	close(gate)

	require.NoError(t, <-firstErr)
	assert.True(t, <-firstResult)
	require.NoError(t, <-secondErr)
	assert.True(t, <-secondResult)
}

func TestQueueCapacityRejectsOverflow(t *testing.T) {
	gate := make(chan struct{})
	spawn, _ := fakeSpawner(blocksUntil(gate, true))
	p, err := pool.NewPool(context.Background(), 1, spawn, pool.WithQueueCapacity(1))
	require.NoError(t, err)
	defer p.Close()
	// Unblock the fake workers before Close, which waits for their
	// in-flight Recv calls to return.
	defer close(gate)

	_, _ = submitAndCollect(p, pool.Job{})       // occupies the worker
	_, _ = submitAndCollect(p, pool.Job{})       // fills the one queue slot
	time.Sleep(20 * time.Millisecond)
	_, thirdErr := submitAndCollect(p, pool.Job{}) // must be rejected
	assert.ErrorIs(t, <-thirdErr, pool.ErrQueueFull)
}

func TestWorkerCrashResubmitsHeadOfLine(t *testing.T) {
	spawn, spawnCount := fakeSpawner(crashes(), succeeds(true))
	p, err := pool.NewPool(context.Background(), 1, spawn)
	require.NoError(t, err)
	defer p.Close()

	resultCh, errCh := submitAndCollect(p, pool.Job{})
	require.NoError(t, <-errCh)
	assert.True(t, <-resultCh)
	assert.EqualValues(t, 2, *spawnCount) // original + one respawn
}

func TestCloseClosesAllWorkers(t *testing.T) {
	base, _ := fakeSpawner(succeeds(true))
	var spawned []*fakeWorker
	spawn := func(ctx context.Context) (pool.WorkerConn, error) {
		w, err := base(ctx)
		if err == nil {
			spawned = append(spawned, w.(*fakeWorker))
		}
		return w, err
	}
	p, err := pool.NewPool(context.Background(), 2, spawn)
	require.NoError(t, err)
	require.NoError(t, p.Close())
	require.Len(t, spawned, 2)
	for _, w := range spawned {
		assert.True(t, w.isClosed())
	}
}

func TestSubmitAfterCloseFails(t *testing.T) {
	spawn, _ := fakeSpawner(succeeds(true))
	p, err := pool.NewPool(context.Background(), 1, spawn)
	require.NoError(t, err)
	require.NoError(t, p.Close())

	_, errCh := submitAndCollect(p, pool.Job{})
	assert.ErrorIs(t, <-errCh, pool.ErrPoolClosed)
}
