package workerpool_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/pharmacare-api/pkg/workerpool"
)

func TestPool_DoReturnsResult(t *testing.T) {
	pool := workerpool.New(2, 4)
	defer pool.Shutdown()

	var count atomic.Int64
	for i := 0; i < 20; i++ {
		err := pool.Do(context.Background(), func(context.Context) error {
			count.Add(1)
			return nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, int64(20), count.Load())

	boom := errors.New("render failed")
	err := pool.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestPool_ErrPoolFull(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Shutdown()

	blocker := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(func() {
		close(started)
		<-blocker
	}))
	<-started

	require.NoError(t, pool.Submit(func() {}))
	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolFull)

	err := pool.Do(context.Background(), func(context.Context) error { return nil })
	assert.ErrorIs(t, err, workerpool.ErrPoolFull)

	close(blocker)
}

func TestPool_ErrPoolClosed(t *testing.T) {
	pool := workerpool.New(2, 2)
	pool.Shutdown()

	assert.ErrorIs(t, pool.Submit(func() {}), workerpool.ErrPoolClosed)
}

func TestPool_PanicBecomesError(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Shutdown()

	err := pool.Do(context.Background(), func(context.Context) error { panic("bad font") })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad font")

	require.NoError(t, pool.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestPool_DoHonoursContext(t *testing.T) {
	pool := workerpool.New(1, 1)
	defer pool.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	release := make(chan struct{})
	err := pool.Do(ctx, func(context.Context) error {
		<-release
		return nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	close(release)
}

func TestPool_ShutdownDrains(t *testing.T) {
	pool := workerpool.New(4, 64)

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 50; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			ran.Add(1)
		}))
	}
	pool.Shutdown()
	wg.Wait()
	assert.Equal(t, int32(50), ran.Load())
}
