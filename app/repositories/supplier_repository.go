package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
)

// SupplierMongo handles database operations for Supplier.
type SupplierMongo struct {
	collection[models.Supplier]
}

func (r *SupplierMongo) Create(ctx context.Context, s *models.Supplier) error {
	if s.ID.IsZero() {
		s.ID = primitive.NewObjectID()
	}
	if s.Products == nil {
		s.Products = []primitive.ObjectID{}
	}
	Stamp(&s.CreatedAt, &s.UpdatedAt)
	return r.insert(ctx, s)
}

func (r *SupplierMongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Supplier, error) {
	return r.byID(ctx, id)
}

func (r *SupplierMongo) List(ctx context.Context, f SupplierFilter) ([]models.Supplier, int64, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": ilike(f.Search)},
			bson.M{"email": ilike(f.Search)},
		}
	}
	return r.page(ctx, filter, bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}, f.Page)
}

func (r *SupplierMongo) Update(ctx context.Context, s *models.Supplier) error {
	Stamp(&s.CreatedAt, &s.UpdatedAt)
	return r.set(ctx, s.ID, bson.M{
		"name":          s.Name,
		"email":         s.Email,
		"phone":         s.Phone,
		"address":       s.Address,
		"contactPerson": s.ContactPerson,
		"status":        s.Status,
		"updatedAt":     s.UpdatedAt,
	})
}

func (r *SupplierMongo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.deleteOne(ctx, id)
}

func (r *SupplierMongo) AddProduct(ctx context.Context, id, productID primitive.ObjectID) error {
	n, err := r.update(ctx, bson.M{"_id": id}, bson.M{"$addToSet": bson.M{"products": productID}})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SupplierMongo) PullProduct(ctx context.Context, productID primitive.ObjectID) error {
	_, err := r.update(ctx, bson.M{"products": productID}, bson.M{"$pull": bson.M{"products": productID}})
	return err
}
