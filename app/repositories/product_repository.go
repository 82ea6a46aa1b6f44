package repositories

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
)

// ProductMongo handles database operations for Product.
type ProductMongo struct {
	collection[models.Product]
}

func (r *ProductMongo) Create(ctx context.Context, p *models.Product) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	Stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.insert(ctx, p)
}

func (r *ProductMongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	return r.byID(ctx, id)
}

func (r *ProductMongo) List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Search != "" {
		filter["$or"] = bson.A{
			bson.M{"name": ilike(f.Search)},
			bson.M{"brand": ilike(f.Search)},
		}
	}
	return r.page(ctx, filter, newestFirst, f.Page)
}

func (r *ProductMongo) Update(ctx context.Context, p *models.Product) error {
	Stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.set(ctx, p.ID, bson.M{
		"name":                 p.Name,
		"brand":                p.Brand,
		"category":             p.Category,
		"price":                p.Price,
		"description":          p.Description,
		"requiresPrescription": p.RequiresPrescription,
		"updatedAt":            p.UpdatedAt,
	})
}

func (r *ProductMongo) AddImage(ctx context.Context, id primitive.ObjectID, path string) error {
	n, err := r.update(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"images": path},
		"$set":  bson.M{"updatedAt": Now()},
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductMongo) SetTotalStock(ctx context.Context, id primitive.ObjectID, total int) error {
	n, err := r.update(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"totalStock": total}})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ProductMongo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.deleteOne(ctx, id)
}

func (r *ProductMongo) IDs(ctx context.Context) ([]primitive.ObjectID, error) {
	products, err := r.all(ctx, bson.M{}, bson.D{{Key: "_id", Value: 1}})
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(products))
	for i := range products {
		ids[i] = products[i].ID
	}
	return ids, nil
}
