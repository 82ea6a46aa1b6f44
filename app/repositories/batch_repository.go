package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
)

// BatchMongo handles database operations for Batch. batchNumber is unique
// (see database/migrations).
type BatchMongo struct {
	collection[models.Batch]
}

var oldestFirst = bson.D{{Key: "manufacturingDate", Value: 1}, {Key: "_id", Value: 1}}

func (r *BatchMongo) Create(ctx context.Context, b *models.Batch) error {
	if b.ID.IsZero() {
		b.ID = primitive.NewObjectID()
	}
	Stamp(&b.CreatedAt, &b.UpdatedAt)
	return r.insert(ctx, b)
}

func (r *BatchMongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Batch, error) {
	return r.byID(ctx, id)
}

func (r *BatchMongo) ListByProduct(ctx context.Context, productID primitive.ObjectID) ([]models.Batch, error) {
	return r.all(ctx, bson.M{"productId": productID}, oldestFirst)
}

func (r *BatchMongo) List(ctx context.Context, f BatchFilter) ([]models.Batch, int64, error) {
	filter := bson.M{}
	if f.ProductID != nil {
		filter["productId"] = *f.ProductID
	}
	if f.SupplierID != nil {
		filter["supplierId"] = *f.SupplierID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	return r.page(ctx, filter, bson.D{{Key: "expiryDate", Value: 1}, {Key: "_id", Value: 1}}, f.Page)
}

func (r *BatchMongo) Update(ctx context.Context, b *models.Batch) error {
	Stamp(&b.CreatedAt, &b.UpdatedAt)
	return r.replace(ctx, b.ID, b)
}

func (r *BatchMongo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.deleteOne(ctx, id)
}

func (r *BatchMongo) DeleteByProduct(ctx context.Context, productID primitive.ObjectID) (int64, error) {
	return r.deleteMany(ctx, bson.M{"productId": productID})
}
