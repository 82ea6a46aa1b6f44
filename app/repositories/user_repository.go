package repositories

import (
	"context"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
)

// UserMongo handles database operations for User. Emails are stored
// lower-cased and unique.
type UserMongo struct {
	collection[models.User]
}

func (r *UserMongo) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.Addresses == nil {
		u.Addresses = []models.Address{}
	}
	u.Email = strings.ToLower(u.Email)
	Stamp(&u.CreatedAt, &u.UpdatedAt)
	return r.insert(ctx, u)
}

func (r *UserMongo) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.byID(ctx, id)
}

// FindByEmail looks up a user by their email address.
func (r *UserMongo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": strings.ToLower(email)})
}

func (r *UserMongo) List(ctx context.Context, f UserFilter) ([]models.User, int64, error) {
	filter := bson.M{}
	if f.Role != "" {
		filter["role"] = f.Role
	}
	return r.page(ctx, filter, newestFirst, f.Page)
}

func (r *UserMongo) Update(ctx context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	Stamp(&u.CreatedAt, &u.UpdatedAt)
	return r.replace(ctx, u.ID, u)
}

func (r *UserMongo) Delete(ctx context.Context, id primitive.ObjectID) error {
	return r.deleteOne(ctx, id)
}
