package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
	"github.com/pharmacare/pharmacare-api/pkg/mail"
	"github.com/pharmacare/pharmacare-api/pkg/metrics"
)

// Dispatcher hands a stored message to the job queue.
type Dispatcher func(messageID string) error

// OutboxService persists every email intent before it is delivered, so a
// failed send never fails the operation that produced it.
type OutboxService struct {
	repo        repositories.OutboxRepository
	mailer      mail.Sender
	dispatch    Dispatcher
	maxAttempts int
	now         func() time.Time
}

// SetDispatcher connects the outbox to the job queue. Without one messages
// stay pending until RetryStale picks them up.
func (s *OutboxService) SetDispatcher(d Dispatcher) { s.dispatch = d }

// Enqueue stores a pending message and dispatches its delivery job.
func (s *OutboxService) Enqueue(ctx context.Context, kind string, to []string, subject, body string) (*models.OutboxMessage, error) {
	m := &models.OutboxMessage{
		Kind:    kind,
		To:      to,
		Subject: subject,
		Body:    body,
		Status:  models.OutboxPending,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("outbox: store: %w", err)
	}
	metrics.OutboxMessages.WithLabelValues(kind, models.OutboxPending).Inc()

	if s.dispatch != nil {
		if err := s.dispatch(m.ID.Hex()); err != nil {
			logger.WithCtx(ctx).Warn("outbox: dispatch failed, left for retry", "message_id", m.ID.Hex(), "error", err)
		}
	}
	return m, nil
}

// Deliver sends one message. Already sent or failed messages are skipped.
// An error is returned when the send fails so the queue can retry.
func (s *OutboxService) Deliver(ctx context.Context, id string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("outbox: bad message id %q", id)
	}
	m, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			logger.WithCtx(ctx).Warn("outbox: message vanished", "message_id", id)
			return nil
		}
		return err
	}
	if m.Status != models.OutboxPending {
		return nil
	}

	m.Attempts++
	sendErr := mail.To(m.To...).Subject(m.Subject).Body(m.Body).Send(ctx, s.mailer)
	if sendErr == nil {
		at := s.now()
		m.Status, m.SentAt, m.LastError = models.OutboxSent, &at, ""
	} else {
		m.LastError = sendErr.Error()
		if m.Attempts >= s.maxAttempts {
			m.Status = models.OutboxFailed
		}
	}
	if err := s.repo.Update(ctx, m); err != nil {
		return fmt.Errorf("outbox: update %s: %w", id, err)
	}
	metrics.OutboxMessages.WithLabelValues(m.Kind, m.Status).Inc()

	if sendErr != nil && m.Status == models.OutboxPending {
		return fmt.Errorf("outbox: send %s: %w", id, sendErr)
	}
	if sendErr != nil {
		logger.WithCtx(ctx).Error("outbox: giving up", "message_id", id, "attempts", m.Attempts, "error", sendErr)
	}
	return nil
}

// RetryStale re-dispatches pending messages untouched for olderThan.
func (s *OutboxService) RetryStale(ctx context.Context, olderThan time.Duration) (int, error) {
	if s.dispatch == nil {
		return 0, nil
	}
	stale, err := s.repo.Stale(ctx, s.now().Add(-olderThan), 100)
	if err != nil {
		return 0, err
	}
	n := 0
	for i := range stale {
		m := &stale[i]
		if err := s.repo.Update(ctx, m); err != nil {
			return n, err
		}
		if err := s.dispatch(m.ID.Hex()); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func (s *OutboxService) List(ctx context.Context, status string, p Page) ([]models.OutboxMessage, int64, error) {
	return s.repo.List(ctx, repositories.OutboxFilter{Status: status, Page: p})
}

// Resend resets a failed message and dispatches it again.
func (s *OutboxService) Resend(ctx context.Context, id string) (*models.OutboxMessage, error) {
	oid, err := ParseID(id, "outbox message")
	if err != nil {
		return nil, err
	}
	m, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "outbox message")
	}
	if m.Status == models.OutboxSent {
		return nil, fmt.Errorf("%w: message already sent", ErrConflict)
	}
	m.Status, m.Attempts, m.LastError = models.OutboxPending, 0, ""
	if err := s.repo.Update(ctx, m); err != nil {
		return nil, err
	}
	if s.dispatch != nil {
		if err := s.dispatch(m.ID.Hex()); err != nil {
			return nil, err
		}
	}
	return m, nil
}
