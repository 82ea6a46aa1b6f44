package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmacare/pharmacare-api/pkg/logger"
)

// FailedJobRecord is the document persisted for a job that exhausted its
// retries.
type FailedJobRecord struct {
	ID       primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	JobType  string             `bson:"jobType"       json:"jobType"`
	Payload  string             `bson:"payload"       json:"payload"`
	Error    string             `bson:"error"         json:"error"`
	Attempts int                `bson:"attempts"      json:"attempts"`
	FailedAt time.Time          `bson:"failedAt"      json:"failedAt"`
}

// FailedStore persists failed jobs beyond the process lifetime.
type FailedStore interface {
	Save(ctx context.Context, rec FailedJobRecord) error
	Recent(ctx context.Context, limit int) ([]FailedJobRecord, error)
}

// UseStore configures where failed jobs are persisted.
func UseStore(s FailedStore) { defaultManager.UseStore(s) }

func (m *Manager) UseStore(s FailedStore) {
	m.mu.Lock()
	m.store = s
	m.mu.Unlock()
}

// MongoFailedStore keeps failed jobs in a collection.
type MongoFailedStore struct {
	col *mongo.Collection
}

func NewMongoFailedStore(col *mongo.Collection) *MongoFailedStore {
	return &MongoFailedStore{col: col}
}

func (s *MongoFailedStore) Save(ctx context.Context, rec FailedJobRecord) error {
	_, err := s.col.InsertOne(ctx, rec)
	return err
}

func (s *MongoFailedStore) Recent(ctx context.Context, limit int) ([]FailedJobRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "failedAt", Value: -1}}).SetLimit(int64(limit))
	cur, err := s.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, err
	}
	var out []FailedJobRecord
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// persistFailed records the failure in memory and, when a store is
// configured, in the database.
func (m *Manager) persistFailed(job Job, typeName string, lastErr error, attempts int) {
	now := time.Now()
	m.mu.Lock()
	m.failed = append(m.failed, FailedJob{
		Type: typeName, Job: job, Err: lastErr, FailedAt: now, Attempts: attempts,
	})
	store := m.store
	m.mu.Unlock()

	if store == nil {
		return
	}

	payload, err := json.Marshal(job)
	if err != nil {
		payload = []byte(fmt.Sprintf(`{"error": "could not marshal: %v"}`, err))
	}
	errText := ""
	if lastErr != nil {
		errText = lastErr.Error()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.Save(ctx, FailedJobRecord{
		JobType:  typeName,
		Payload:  string(payload),
		Error:    errText,
		Attempts: attempts,
		FailedAt: now,
	}); err != nil {
		logger.Error("queue: persist failed job", "type", typeName, "error", err)
	}
}
