// Package migrations holds the MongoDB index migrations. Each file registers
// itself with migration.Register from init(); cmd/pharmacare imports the
// package for its side effects.
package migrations

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// indexes creates models on collection, and dropIndexes removes them by name.
type indexes struct {
	collection string
	models     []mongo.IndexModel
}

func (m *indexes) Up(ctx context.Context, db *mongo.Database) error {
	if len(m.models) == 0 {
		return nil
	}
	_, err := db.Collection(m.collection).Indexes().CreateMany(ctx, m.models)
	return err
}

func (m *indexes) Down(ctx context.Context, db *mongo.Database) error {
	iv := db.Collection(m.collection).Indexes()
	for _, im := range m.models {
		if im.Options == nil || im.Options.Name == nil {
			continue
		}
		if _, err := iv.DropOne(ctx, *im.Options.Name); err != nil {
			return err
		}
	}
	return nil
}

func index(name string, keys bson.D, unique bool) mongo.IndexModel {
	opts := options.Index().SetName(name)
	if unique {
		opts.SetUnique(true)
	}
	return mongo.IndexModel{Keys: keys, Options: opts}
}
