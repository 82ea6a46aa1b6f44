package repositories

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/pkg/metrics"
)

// Collection names.
const (
	ProductsCollection      = "products"
	BatchesCollection       = "batches"
	OrdersCollection        = "orders"
	SuppliersCollection     = "suppliers"
	UsersCollection         = "users"
	FeedbackCollection      = "feedback"
	SupportCollection       = "support"
	PrescriptionsCollection = "prescriptions"
	OutboxCollection        = "outbox"
	FailedJobsCollection    = "failed_jobs"
	LogsCollection          = "logs"
)

// NewMongoStore wires every repository to db. transactions selects
// multi-document transactions, which need a replica set.
func NewMongoStore(db *mongo.Database, transactions bool) *Store {
	return &Store{
		Products:      &ProductMongo{coll[models.Product](db, ProductsCollection)},
		Batches:       &BatchMongo{coll[models.Batch](db, BatchesCollection)},
		Orders:        &OrderMongo{coll[models.Order](db, OrdersCollection)},
		Suppliers:     &SupplierMongo{coll[models.Supplier](db, SuppliersCollection)},
		Users:         &UserMongo{coll[models.User](db, UsersCollection)},
		Feedback:      &FeedbackMongo{coll[models.Feedback](db, FeedbackCollection)},
		Support:       &SupportMongo{coll[models.Support](db, SupportCollection)},
		Prescriptions: &PrescriptionMongo{coll[models.Prescription](db, PrescriptionsCollection)},
		Outbox:        &OutboxMongo{coll[models.OutboxMessage](db, OutboxCollection)},
		Tx:            &MongoTx{client: db.Client(), enabled: transactions},
	}
}

// collection is the typed base every Mongo repository embeds.
type collection[T any] struct {
	col  *mongo.Collection
	name string
}

func coll[T any](db *mongo.Database, name string) collection[T] {
	return collection[T]{col: db.Collection(name), name: name}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	default:
		return err
	}
}

func (c collection[T]) insert(ctx context.Context, doc *T) error {
	defer metrics.ObserveDBQuery(c.name, "insert", time.Now())
	_, err := c.col.InsertOne(ctx, doc)
	return mapErr(err)
}

func (c collection[T]) findOne(ctx context.Context, filter bson.M) (*T, error) {
	defer metrics.ObserveDBQuery(c.name, "find_one", time.Now())
	var out T
	if err := c.col.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, mapErr(err)
	}
	return &out, nil
}

func (c collection[T]) byID(ctx context.Context, id primitive.ObjectID) (*T, error) {
	return c.findOne(ctx, bson.M{"_id": id})
}

func (c collection[T]) all(ctx context.Context, filter bson.M, sort bson.D) ([]T, error) {
	defer metrics.ObserveDBQuery(c.name, "find", time.Now())
	cur, err := c.col.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// page returns one page of matches and the total match count.
func (c collection[T]) page(ctx context.Context, filter bson.M, sort bson.D, p Page) ([]T, int64, error) {
	defer metrics.ObserveDBQuery(c.name, "paginate", time.Now())
	total, err := c.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	opts := options.Find().SetSort(sort).SetSkip(p.Offset())
	if p.Limit > 0 {
		opts.SetLimit(p.Limit)
	}
	cur, err := c.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

func (c collection[T]) replace(ctx context.Context, id primitive.ObjectID, doc *T) error {
	defer metrics.ObserveDBQuery(c.name, "replace", time.Now())
	res, err := c.col.ReplaceOne(ctx, bson.M{"_id": id}, doc)
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// set applies a $set of fields to one document.
func (c collection[T]) set(ctx context.Context, id primitive.ObjectID, fields bson.M) error {
	defer metrics.ObserveDBQuery(c.name, "set", time.Now())
	res, err := c.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return mapErr(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c collection[T]) update(ctx context.Context, filter, update bson.M) (int64, error) {
	defer metrics.ObserveDBQuery(c.name, "update", time.Now())
	res, err := c.col.UpdateMany(ctx, filter, update)
	if err != nil {
		return 0, mapErr(err)
	}
	return res.MatchedCount, nil
}

func (c collection[T]) deleteOne(ctx context.Context, id primitive.ObjectID) error {
	defer metrics.ObserveDBQuery(c.name, "delete", time.Now())
	res, err := c.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (c collection[T]) deleteMany(ctx context.Context, filter bson.M) (int64, error) {
	defer metrics.ObserveDBQuery(c.name, "delete", time.Now())
	res, err := c.col.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func ilike(s string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
}

var newestFirst = bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}

// MongoTx runs units of work in a MongoDB session transaction. When
// disabled it calls fn directly.
type MongoTx struct {
	client  *mongo.Client
	enabled bool
}

func (t *MongoTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !t.enabled {
		return fn(ctx)
	}
	if mongo.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}
	sess, err := t.client.StartSession()
	if err != nil {
		return fmt.Errorf("repositories: start session: %w", err)
	}
	defer sess.EndSession(context.WithoutCancel(ctx))

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}
