// Package jobs holds the background jobs run by the queue workers.
package jobs

import (
	"context"
	"errors"

	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/queue"
)

// Deliverer sends one stored outbox message.
type Deliverer interface {
	Deliver(ctx context.Context, messageID string) error
}

// SendMailJob delivers an outbox message. Only the id travels through the
// queue; the message itself stays in the database.
type SendMailJob struct {
	MessageID string `json:"messageId"`

	outbox Deliverer
}

func (j *SendMailJob) Handle(ctx context.Context) error {
	if j.outbox == nil {
		return errors.New("jobs: SendMailJob has no outbox")
	}
	return j.outbox.Deliver(ctx, j.MessageID)
}

// Register makes the jobs decodable by m's workers.
func Register(m *queue.Manager, outbox Deliverer) {
	m.Register("*jobs.SendMailJob", func() queue.Job { return &SendMailJob{outbox: outbox} })
}

// MailDispatcher returns the outbox dispatcher that queues a SendMailJob.
func MailDispatcher(m *queue.Manager) services.Dispatcher {
	return func(messageID string) error {
		return m.Dispatch(&SendMailJob{MessageID: messageID})
	}
}
