package queue_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/pharmacare-api/pkg/queue"
)

var (
	echoCalls atomic.Int32
	failCalls atomic.Int32
)

type echoJob struct {
	Val string `json:"val"`
}

func (j *echoJob) Handle(context.Context) error {
	echoCalls.Add(1)
	return nil
}

type failJob struct{}

func (j *failJob) Handle(context.Context) error {
	failCalls.Add(1)
	return errors.New("always fails")
}

type memStore struct {
	mu   sync.Mutex
	recs []queue.FailedJobRecord
}

func (s *memStore) Save(_ context.Context, rec queue.FailedJobRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recs = append(s.recs, rec)
	return nil
}

func (s *memStore) Recent(context.Context, int) ([]queue.FailedJobRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]queue.FailedJobRecord(nil), s.recs...), nil
}

func newManager(t *testing.T) *queue.Manager {
	t.Helper()
	m := queue.NewManager()
	m.SetBackoff(10 * time.Millisecond)
	m.Register("*queue_test.echoJob", func() queue.Job { return &echoJob{} })
	m.Register("*queue_test.failJob", func() queue.Job { return &failJob{} })

	ctx, cancel := context.WithCancel(context.Background())
	wg := m.StartWorkers(ctx, 2)
	t.Cleanup(func() {
		cancel()
		wg.Wait()
	})
	return m
}

func TestDispatchAndProcess(t *testing.T) {
	m := newManager(t)
	before := echoCalls.Load()

	require.NoError(t, m.Dispatch(&echoJob{Val: "hello"}))
	assert.Eventually(t, func() bool { return echoCalls.Load() == before+1 }, time.Second, 10*time.Millisecond)
}

func TestFailedJobRetriesThenPersists(t *testing.T) {
	m := newManager(t)
	m.SetMaxRetry(2)
	store := &memStore{}
	m.UseStore(store)
	before := failCalls.Load()

	require.NoError(t, m.Dispatch(&failJob{}))

	assert.Eventually(t, func() bool { return len(m.FailedJobs()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, before+2, failCalls.Load())

	recs, _ := store.Recent(context.Background(), 10)
	require.Len(t, recs, 1)
	assert.Equal(t, "*queue_test.failJob", recs[0].JobType)
	assert.Equal(t, "always fails", recs[0].Error)
	assert.Equal(t, 2, recs[0].Attempts)
}

func TestDispatchAfterFallsBackToTimer(t *testing.T) {
	m := newManager(t)
	before := echoCalls.Load()

	require.NoError(t, m.DispatchAfter(&echoJob{Val: "later"}, 50*time.Millisecond))
	assert.Eventually(t, func() bool { return echoCalls.Load() == before+1 }, time.Second, 10*time.Millisecond)
}

func TestDispatchConcurrent(t *testing.T) {
	m := newManager(t)
	before := echoCalls.Load()

	var wg sync.WaitGroup
	wg.Add(20)
	for i := 0; i < 20; i++ {
		go func() {
			defer wg.Done()
			_ = m.Dispatch(&echoJob{Val: "c"})
		}()
	}
	wg.Wait()
	assert.Eventually(t, func() bool { return echoCalls.Load() == before+20 }, 2*time.Second, 10*time.Millisecond)
}

func TestMemoryDriverFull(t *testing.T) {
	d := queue.NewMemoryDriver(1)
	require.NoError(t, d.Push([]byte("a")))
	assert.ErrorIs(t, d.Push([]byte("b")), queue.ErrQueueFull)
	assert.Equal(t, 1, d.Len())
}

func TestRedisDriverDelayedPromotion(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	d := queue.NewRedisDriver(rdb)
	defer d.Close()

	require.NoError(t, d.PushDelayed([]byte(`{"type":"x"}`), time.Hour))

	n, err := d.PromoteDue(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	n, err = d.PromoteDue(context.Background(), time.Now().Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	raw, err := d.Pop(context.Background())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"x"}`, string(raw))
}
