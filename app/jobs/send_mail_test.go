package jobs_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/pharmacare-api/app/jobs"
	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories/memory"
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/mail"
	"github.com/pharmacare/pharmacare-api/pkg/queue"
)

type mailbox struct {
	mu   sync.Mutex
	sent []string
}

func (m *mailbox) Send(_ context.Context, msg *mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg.SubjectLine)
	return nil
}

func (m *mailbox) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func TestEnqueuedMailIsDeliveredByWorkers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	box := &mailbox{}
	store := memory.NewStore()
	svc := services.New(services.Options{Store: store, Mailer: box})

	m := queue.NewManager()
	jobs.Register(m, svc.Outbox)
	svc.Outbox.SetDispatcher(jobs.MailDispatcher(m))
	wg := m.StartWorkers(ctx, 1)

	msg, err := svc.Outbox.Enqueue(ctx, models.MailRestockRequest, []string{"sales@acme.test"}, "Restock", "<p>100 units</p>")
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return box.count() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		got, err := store.Outbox.FindByID(ctx, msg.ID)
		return err == nil && got.Status == models.OutboxSent
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	wg.Wait()
}

type brokenOutbox struct{ calls int }

func (b *brokenOutbox) Deliver(context.Context, string) error {
	b.calls++
	return errors.New("smtp down")
}

func TestSendMailJobReturnsDeliveryError(t *testing.T) {
	m := queue.NewManager()
	m.SetMaxRetry(1)
	out := &brokenOutbox{}
	jobs.Register(m, out)

	require.NoError(t, jobs.MailDispatcher(m)("abc"))

	ctx, cancel := context.WithCancel(context.Background())
	wg := m.StartWorkers(ctx, 1)
	assert.Eventually(t, func() bool { return len(m.FailedJobs()) == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()
	wg.Wait()
	assert.Equal(t, 1, out.calls)
}

func TestUnwiredJobFails(t *testing.T) {
	assert.Error(t, (&jobs.SendMailJob{MessageID: "x"}).Handle(context.Background()))
}
