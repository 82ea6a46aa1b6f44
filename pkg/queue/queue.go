// Package queue runs background jobs with retries.
//
//	type SendMailJob struct{ MessageID string }
//	func (j *SendMailJob) Handle(ctx context.Context) error { ... }
//
//	queue.Register("*jobs.SendMailJob", func() queue.Job { return &SendMailJob{} })
//	queue.Dispatch(&SendMailJob{MessageID: id})
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/pharmacare/pharmacare-api/pkg/logger"
	"github.com/pharmacare/pharmacare-api/pkg/metrics"
)

// Job is the interface every queued job must satisfy. Jobs are JSON encoded,
// so their exported fields are the payload.
type Job interface {
	Handle(ctx context.Context) error
}

// FailedJob holds information about a job that exhausted its retries.
type FailedJob struct {
	Type     string
	Job      Job
	Err      error
	FailedAt time.Time
	Attempts int
}

// Driver is the queue storage backend.
type Driver interface {
	Push(payload []byte) error
	Pop(ctx context.Context) ([]byte, error)
}

// DelayedDriver is implemented by drivers with native delayed delivery.
type DelayedDriver interface {
	PushDelayed(payload []byte, delay time.Duration) error
}

// Manager is the central queue hub.
type Manager struct {
	mu       sync.RWMutex
	driver   Driver
	registry map[string]func() Job
	failed   []FailedJob
	store    FailedStore
	maxRetry int
	backoff  time.Duration
}

// NewManager returns a manager on the in-memory driver.
func NewManager() *Manager {
	return &Manager{
		registry: map[string]func() Job{},
		maxRetry: 3,
		backoff:  time.Second,
		driver:   NewMemoryDriver(1000),
	}
}

var defaultManager = NewManager()

// Default returns the process-wide manager the package functions use.
func Default() *Manager { return defaultManager }

// SetDriver swaps the underlying queue driver.
func SetDriver(d Driver) { defaultManager.SetDriver(d) }

func (m *Manager) SetDriver(d Driver) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.driver = d
}

// SetMaxRetry sets how many attempts a job gets before it is failed.
func SetMaxRetry(n int) { defaultManager.SetMaxRetry(n) }

func (m *Manager) SetMaxRetry(n int) {
	m.mu.Lock()
	m.maxRetry = n
	m.mu.Unlock()
}

// SetBackoff sets the base delay between attempts; attempt k waits k*d.
func (m *Manager) SetBackoff(d time.Duration) {
	m.mu.Lock()
	m.backoff = d
	m.mu.Unlock()
}

// Register makes a job type available for decoding by name. The name must
// match fmt.Sprintf("%T", job).
func Register(name string, factory func() Job) { defaultManager.Register(name, factory) }

func (m *Manager) Register(name string, factory func() Job) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.registry[name] = factory
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Dispatch pushes job onto the default queue immediately.
func Dispatch(job Job) error { return defaultManager.Dispatch(job) }

func (m *Manager) Dispatch(job Job) error {
	raw, err := encode(job)
	if err != nil {
		return err
	}
	return m.currentDriver().Push(raw)
}

// DispatchAfter pushes job after delay. Drivers without native delay support
// fall back to a timer goroutine, which does not survive a restart.
func DispatchAfter(job Job, delay time.Duration) error {
	return defaultManager.DispatchAfter(job, delay)
}

func (m *Manager) DispatchAfter(job Job, delay time.Duration) error {
	raw, err := encode(job)
	if err != nil {
		return err
	}
	d := m.currentDriver()
	if dd, ok := d.(DelayedDriver); ok {
		return dd.PushDelayed(raw, delay)
	}
	time.AfterFunc(delay, func() {
		if err := d.Push(raw); err != nil {
			logger.Error("queue: delayed dispatch failed", "error", err)
		}
	})
	return nil
}

func encode(job Job) ([]byte, error) {
	typeName := fmt.Sprintf("%T", job)

	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal job %s: %w", typeName, err)
	}

	env, err := json.Marshal(envelope{Type: typeName, Payload: payload})
	if err != nil {
		return nil, fmt.Errorf("queue: marshal envelope: %w", err)
	}
	return env, nil
}

func (m *Manager) currentDriver() Driver {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.driver
}

// StartWorkers launches n workers that run until ctx is cancelled. The
// returned WaitGroup completes when all of them have exited.
func StartWorkers(ctx context.Context, n int) *sync.WaitGroup {
	return defaultManager.StartWorkers(ctx, n)
}

func (m *Manager) StartWorkers(ctx context.Context, n int) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		go func() {
			defer wg.Done()
			m.work(ctx)
		}()
	}
	logger.Info("queue: workers started", "count", n)
	return &wg
}

func (m *Manager) work(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		raw, err := m.currentDriver().Pop(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warn("queue: pop failed", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(500 * time.Millisecond):
			}
			continue
		}
		if raw == nil {
			continue
		}

		m.process(ctx, raw)
	}
}

func (m *Manager) process(ctx context.Context, raw []byte) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		logger.Error("queue: bad envelope", "error", err)
		return
	}

	m.mu.RLock()
	factory, ok := m.registry[env.Type]
	m.mu.RUnlock()

	if !ok {
		logger.Warn("queue: unregistered job type", "type", env.Type)
		return
	}

	job := factory()
	if err := json.Unmarshal(env.Payload, job); err != nil {
		logger.Error("queue: unmarshal payload", "type", env.Type, "error", err)
		return
	}

	m.runWithRetry(ctx, job, env.Type)
}

func (m *Manager) runWithRetry(ctx context.Context, job Job, typeName string) {
	m.mu.RLock()
	maxRetry, backoff := m.maxRetry, m.backoff
	m.mu.RUnlock()

	start := time.Now()
	var lastErr error
	for attempt := 1; attempt <= maxRetry; attempt++ {
		if err := job.Handle(ctx); err != nil {
			lastErr = err
			logger.Warn("queue: job failed", "type", typeName, "attempt", attempt, "error", err)
			if attempt == maxRetry {
				break
			}
			select {
			case <-ctx.Done():
				m.persistFailed(job, typeName, ctx.Err(), attempt)
				return
			case <-time.After(time.Duration(attempt) * backoff):
			}
			continue
		}
		metrics.RecordQueueJob(typeName, "success", start)
		logger.Debug("queue: job processed", "type", typeName)
		return
	}

	metrics.RecordQueueJob(typeName, "failed", start)
	m.persistFailed(job, typeName, lastErr, maxRetry)
	logger.Error("queue: job exhausted retries", "type", typeName, "error", lastErr)
}

// FailedJobs returns a snapshot of the failures seen by this process.
func FailedJobs() []FailedJob { return defaultManager.FailedJobs() }

func (m *Manager) FailedJobs() []FailedJob {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]FailedJob, len(m.failed))
	copy(out, m.failed)
	return out
}
