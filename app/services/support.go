package services

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
)

type SupportInput struct {
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,max=5000"`
}

// RespondInput closes a ticket with an answer.
type RespondInput struct {
	Status   string `json:"status"   validate:"required,oneof=resolved rejected"`
	Response string `json:"response" validate:"required,max=5000"`
}

type SupportService struct {
	store *repositories.Store
}

func (s *SupportService) Create(ctx context.Context, userID primitive.ObjectID, in SupportInput) (*models.Support, error) {
	t := &models.Support{
		UserID:  userID,
		Subject: in.Subject,
		Message: in.Message,
		Status:  models.StatusPending,
	}
	if err := s.store.Support.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *SupportService) Mine(ctx context.Context, userID primitive.ObjectID, p Page) ([]models.Support, int64, error) {
	return s.store.Support.List(ctx, repositories.ModerationFilter{UserID: &userID, Page: p})
}

func (s *SupportService) Get(ctx context.Context, id string, caller Caller) (*models.Support, error) {
	oid, err := ParseID(id, "ticket")
	if err != nil {
		return nil, err
	}
	t, err := s.store.Support.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "ticket")
	}
	if !caller.IsAdmin() && t.UserID != caller.UserID {
		return nil, ErrForbidden
	}
	return t, nil
}

func (s *SupportService) List(ctx context.Context, status string, p Page) ([]models.Support, int64, error) {
	return s.store.Support.List(ctx, repositories.ModerationFilter{Status: status, Page: p})
}

// Respond answers a pending ticket. Closed tickets stay closed.
func (s *SupportService) Respond(ctx context.Context, id string, in RespondInput) (*models.Support, error) {
	oid, err := ParseID(id, "ticket")
	if err != nil {
		return nil, err
	}
	t, err := s.store.Support.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "ticket")
	}
	if t.Status != models.StatusPending {
		return nil, fmt.Errorf("%w: ticket is already %s", ErrInvalidTransition, t.Status)
	}
	t.Status, t.AdminResponse = in.Status, in.Response
	return t, s.store.Support.Update(ctx, t)
}

func (s *SupportService) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id, "ticket")
	if err != nil {
		return err
	}
	return found(s.store.Support.Delete(ctx, oid), "ticket")
}
