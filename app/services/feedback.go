package services

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
)

type FeedbackInput struct {
	ProductID string `json:"productId" validate:"omitempty,objectid"`
	Rating    int    `json:"rating"    validate:"required,min=1,max=5"`
	Comment   string `json:"comment"   validate:"required,max=2000"`
}

// ModerateInput sets the status of a feedback entry.
type ModerateInput struct {
	Status string `json:"status" validate:"required,oneof=pending approved rejected"`
}

type FeedbackService struct {
	store *repositories.Store
}

func (s *FeedbackService) Create(ctx context.Context, userID primitive.ObjectID, in FeedbackInput) (*models.Feedback, error) {
	f := &models.Feedback{
		UserID:  userID,
		Rating:  in.Rating,
		Comment: in.Comment,
		Status:  models.StatusPending,
	}
	if in.ProductID != "" {
		pid, _ := primitive.ObjectIDFromHex(in.ProductID)
		if _, err := s.store.Products.FindByID(ctx, pid); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, invalid("productId", "The selected product does not exist.")
			}
			return nil, err
		}
		f.ProductID = &pid
	}
	if err := s.store.Feedback.Create(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FeedbackService) Mine(ctx context.Context, userID primitive.ObjectID, p Page) ([]models.Feedback, int64, error) {
	return s.store.Feedback.List(ctx, repositories.ModerationFilter{UserID: &userID, Page: p})
}

// ForProduct lists the approved feedback shown on a product page.
func (s *FeedbackService) ForProduct(ctx context.Context, productID string, p Page) ([]models.Feedback, int64, error) {
	pid, err := ParseID(productID, "product")
	if err != nil {
		return nil, 0, err
	}
	return s.store.Feedback.List(ctx, repositories.ModerationFilter{ProductID: &pid, Status: models.StatusApproved, Page: p})
}

func (s *FeedbackService) List(ctx context.Context, status string, p Page) ([]models.Feedback, int64, error) {
	return s.store.Feedback.List(ctx, repositories.ModerationFilter{Status: status, Page: p})
}

func (s *FeedbackService) Moderate(ctx context.Context, id string, in ModerateInput) (*models.Feedback, error) {
	oid, err := ParseID(id, "feedback")
	if err != nil {
		return nil, err
	}
	f, err := s.store.Feedback.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "feedback")
	}
	f.Status = in.Status
	return f, s.store.Feedback.Update(ctx, f)
}

// Delete removes feedback. Owners may delete their own; admins any.
func (s *FeedbackService) Delete(ctx context.Context, id string, caller Caller) error {
	oid, err := ParseID(id, "feedback")
	if err != nil {
		return err
	}
	f, err := s.store.Feedback.FindByID(ctx, oid)
	if err != nil {
		return found(err, "feedback")
	}
	if !caller.IsAdmin() && f.UserID != caller.UserID {
		return ErrForbidden
	}
	return found(s.store.Feedback.Delete(ctx, oid), "feedback")
}
