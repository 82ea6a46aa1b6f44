package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
)

// OrderMongo handles database operations for Order.
type OrderMongo struct {
	collection[models.Order]
}

func (r *OrderMongo) Create(ctx context.Context, o *models.Order) error {
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	Stamp(&o.CreatedAt, &o.UpdatedAt)
	return r.insert(ctx, o)
}

func (r *OrderMongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.byID(ctx, id)
}

func (r *OrderMongo) List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error) {
	filter := bson.M{}
	if f.UserID != nil {
		filter["userId"] = *f.UserID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return r.page(ctx, filter, newestFirst, f.Page)
}

func (r *OrderMongo) Update(ctx context.Context, o *models.Order) error {
	Stamp(&o.CreatedAt, &o.UpdatedAt)
	return r.replace(ctx, o.ID, o)
}

func (r *OrderMongo) Reserving(ctx context.Context, productID primitive.ObjectID) ([]models.Order, error) {
	return r.all(ctx, bson.M{
		"items.productId": productID,
		"status":          bson.M{"$in": []string{models.OrderPending, models.OrderProcessing, models.OrderShipped}},
		"stockConsumed":   bson.M{"$ne": true},
	}, bson.D{{Key: "_id", Value: 1}})
}
