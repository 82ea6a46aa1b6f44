package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
)

func moderationFilter(f ModerationFilter) bson.M {
	filter := bson.M{}
	if f.UserID != nil {
		filter["userId"] = *f.UserID
	}
	if f.ProductID != nil {
		filter["productId"] = *f.ProductID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return filter
}

type FeedbackMongo struct {
	collection[models.Feedback]
}

func (r *FeedbackMongo) Create(ctx context.Context, f *models.Feedback) error {
	if f.ID.IsZero() {
		f.ID = primitive.NewObjectID()
	}
	Stamp(&f.CreatedAt, &f.UpdatedAt)
	return r.insert(ctx, f)
}

func (r *FeedbackMongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Feedback, error) {
	return r.byID(ctx, id)
}

func (r *FeedbackMongo) List(ctx context.Context, f ModerationFilter) ([]models.Feedback, int64, error) {
	return r.page(ctx, moderationFilter(f), newestFirst, f.Page)
}

func (r *FeedbackMongo) Update(ctx context.Context, f *models.Feedback) error {
	Stamp(&f.CreatedAt, &f.UpdatedAt)
	return r.replace(ctx, f.ID, f)
}

func (r *FeedbackMongo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.deleteOne(ctx, id)
}

type SupportMongo struct {
	collection[models.Support]
}

func (r *SupportMongo) Create(ctx context.Context, s *models.Support) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	Stamp(&s.CreatedAt, &s.UpdatedAt)
	return r.insert(ctx, s)
}

func (r *SupportMongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Support, error) {
	return r.byID(ctx, id)
}

func (r *SupportMongo) List(ctx context.Context, f ModerationFilter) ([]models.Support, int64, error) {
	return r.page(ctx, moderationFilter(f), newestFirst, f.Page)
}

func (r *SupportMongo) Update(ctx context.Context, s *models.Support) error {
	Stamp(&s.CreatedAt, &s.UpdatedAt)
	return r.replace(ctx, s.ID, s)
}

func (r *SupportMongo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.deleteOne(ctx, id)
}

type PrescriptionMongo struct {
	collection[models.Prescription]
}

func (r *PrescriptionMongo) Create(ctx context.Context, p *models.Prescription) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	Stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.insert(ctx, p)
}

func (r *PrescriptionMongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prescription, error) {
	return r.byID(ctx, id)
}

func (r *PrescriptionMongo) List(ctx context.Context, f ModerationFilter) ([]models.Prescription, int64, error) {
	return r.page(ctx, moderationFilter(f), newestFirst, f.Page)
}

func (r *PrescriptionMongo) Update(ctx context.Context, p *models.Prescription) error {
	Stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.replace(ctx, p.ID, p)
}
