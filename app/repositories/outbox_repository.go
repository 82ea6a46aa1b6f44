package repositories

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/pkg/metrics"
)

type OutboxMongo struct {
	collection[models.OutboxMessage]
}

func (r *OutboxMongo) Create(ctx context.Context, m *models.OutboxMessage) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	Stamp(&m.CreatedAt, &m.UpdatedAt)
	return r.insert(ctx, m)
}

func (r *OutboxMongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.OutboxMessage, error) {
	return r.byID(ctx, id)
}

func (r *OutboxMongo) List(ctx context.Context, f OutboxFilter) ([]models.OutboxMessage, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return r.page(ctx, filter, newestFirst, f.Page)
}

func (r *OutboxMongo) Update(ctx context.Context, m *models.OutboxMessage) error {
	Stamp(&m.CreatedAt, &m.UpdatedAt)
	return r.replace(ctx, m.ID, m)
}

func (r *OutboxMongo) Stale(ctx context.Context, cutoff time.Time, limit int64) ([]models.OutboxMessage, error) {
	defer metrics.ObserveDBQuery(r.name, "find", time.Now())
	opts := options.Find().SetSort(bson.D{{Key: "updatedAt", Value: 1}})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.col.Find(ctx, bson.M{
		"status":    models.OutboxPending,
		"updatedAt": bson.M{"$lt": cutoff},
	}, opts)
	if err != nil {
		return nil, err
	}
	out := []models.OutboxMessage{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
