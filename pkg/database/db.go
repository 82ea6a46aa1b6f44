// Package database opens the MongoDB client used by repositories, the
// migration runner, the failed-job store and the log sink.
package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/pharmacare/pharmacare-api/config"
)

var (
	Client *mongo.Client
	DB     *mongo.Database
)

// Connect opens the client and verifies it with a ping. It returns an error
// instead of exiting so the caller can shut down gracefully.
func Connect(ctx context.Context) error {
	client, db, err := Open(ctx, config.MongoURI(), config.MongoDatabase())
	if err != nil {
		return err
	}
	Client, DB = client, db
	return nil
}

// Open connects to uri and returns the named database.
func Open(ctx context.Context, uri, name string) (*mongo.Client, *mongo.Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(50).
		SetMinPoolSize(5).
		SetMaxConnIdleTime(2 * time.Minute).
		SetServerSelectionTimeout(10 * time.Second)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("database: connect: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("database: ping: %w", err)
	}
	return client, client.Database(name), nil
}

// Ping reports whether the connected server is reachable.
func Ping(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	return Client.Ping(ctx, readpref.Primary())
}

// Disconnect closes the client opened by Connect.
func Disconnect(ctx context.Context) error {
	if Client == nil {
		return nil
	}
	err := Client.Disconnect(ctx)
	Client, DB = nil, nil
	return err
}
