// Package migration runs ordered, tracked schema changes against MongoDB.
// MongoDB has no DDL, so a "schema change" here is an index, a collection
// option or a one-off data backfill.
//
// Usage (in database/migrations):
//
//	func init() {
//	    migration.Register("20240101000000_create_batches_indexes", &CreateBatchesIndexes{})
//	}
//
// Run from CLI:
//
//	pharmacare migrate            // run all pending
//	pharmacare migrate:rollback   // roll back the last batch
package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pharmacare/pharmacare-api/pkg/logger"
)

// CollectionName is where applied migrations are recorded.
const CollectionName = "migrations"

// Migration is the interface every migration must implement.
type Migration interface {
	Up(ctx context.Context, db *mongo.Database) error
	Down(ctx context.Context, db *mongo.Database) error
}

type record struct {
	Name  string    `bson:"_id"`
	Batch int       `bson:"batch"`
	RunAt time.Time `bson:"runAt"`
}

type registered struct {
	name string
	m    Migration
}

var registry []registered

// Register adds a migration to the global registry. Names are timestamp
// prefixed so that lexical order is chronological.
func Register(name string, m Migration) {
	registry = append(registry, registered{name: name, m: m})
}

// Names lists registered migrations in run order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for _, r := range sorted() {
		out = append(out, r.name)
	}
	return out
}

func sorted() []registered {
	out := append([]registered(nil), registry...)
	sort.Slice(out, func(i, j int) bool { return out[i].name < out[j].name })
	return out
}

// Runner executes and tracks migrations.
type Runner struct {
	db  *mongo.Database
	col *mongo.Collection
	out io.Writer
}

// New creates a Runner. Progress lines are written to out.
func New(db *mongo.Database, out io.Writer) *Runner {
	if out == nil {
		out = io.Discard
	}
	return &Runner{db: db, col: db.Collection(CollectionName), out: out}
}

func (r *Runner) applied(ctx context.Context) (map[string]record, error) {
	cur, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	var recs []record
	if err := cur.All(ctx, &recs); err != nil {
		return nil, err
	}
	out := make(map[string]record, len(recs))
	for _, rec := range recs {
		out[rec.Name] = rec
	}
	return out, nil
}

// Pending returns the migrations that have not been applied yet.
func (r *Runner) Pending(ctx context.Context) ([]string, error) {
	done, err := r.applied(ctx)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, reg := range sorted() {
		if _, ok := done[reg.name]; !ok {
			names = append(names, reg.name)
		}
	}
	return names, nil
}

// Run applies every pending migration as one batch.
func (r *Runner) Run(ctx context.Context) error {
	if len(registry) == 0 {
		return ErrNoMigrations
	}
	done, err := r.applied(ctx)
	if err != nil {
		return fmt.Errorf("migration: fetch applied: %w", err)
	}

	batch := 1
	for _, rec := range done {
		if rec.Batch >= batch {
			batch = rec.Batch + 1
		}
	}

	ran := 0
	for _, reg := range sorted() {
		if _, ok := done[reg.name]; ok {
			continue
		}
		fmt.Fprintf(r.out, "  ▶ Migrating: %s\n", reg.name)
		if err := reg.m.Up(ctx, r.db); err != nil {
			return fmt.Errorf("migration: %s up: %w", reg.name, err)
		}
		if _, err := r.col.InsertOne(ctx, record{Name: reg.name, Batch: batch, RunAt: time.Now().UTC()}); err != nil {
			return fmt.Errorf("migration: record %s: %w", reg.name, err)
		}
		fmt.Fprintf(r.out, "  ✅ Migrated:  %s\n", reg.name)
		ran++
	}

	if ran == 0 {
		fmt.Fprintln(r.out, "Nothing to migrate.")
		return nil
	}
	logger.Info("migration: done", "ran", ran, "batch", batch)
	return nil
}

// Rollback reverses every migration of the most recent batch, newest first.
func (r *Runner) Rollback(ctx context.Context) error {
	opts := options.FindOne().SetSort(bson.D{{Key: "batch", Value: -1}})
	var last record
	if err := r.col.FindOne(ctx, bson.M{}, opts).Decode(&last); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			fmt.Fprintln(r.out, "Nothing to roll back.")
			return nil
		}
		return err
	}

	cur, err := r.col.Find(ctx, bson.M{"batch": last.Batch},
		options.Find().SetSort(bson.D{{Key: "_id", Value: -1}}))
	if err != nil {
		return err
	}
	var recs []record
	if err := cur.All(ctx, &recs); err != nil {
		return err
	}

	byName := make(map[string]Migration, len(registry))
	for _, reg := range registry {
		byName[reg.name] = reg.m
	}

	for _, rec := range recs {
		m, ok := byName[rec.Name]
		if !ok {
			return fmt.Errorf("migration: cannot roll back %s: not registered", rec.Name)
		}
		fmt.Fprintf(r.out, "  ◀ Rolling back: %s\n", rec.Name)
		if err := m.Down(ctx, r.db); err != nil {
			return fmt.Errorf("migration: %s down: %w", rec.Name, err)
		}
		if _, err := r.col.DeleteOne(ctx, bson.M{"_id": rec.Name}); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "  ✅ Rolled back: %s\n", rec.Name)
	}
	return nil
}

// Status prints every registered migration and whether it has run.
func (r *Runner) Status(ctx context.Context) error {
	done, err := r.applied(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "%-60s  %-8s  %s\n", "Migration", "Status", "Batch")
	for _, reg := range sorted() {
		if rec, ok := done[reg.name]; ok {
			fmt.Fprintf(r.out, "%-60s  %-8s  %d\n", reg.name, "Ran", rec.Batch)
		} else {
			fmt.Fprintf(r.out, "%-60s  %-8s  -\n", reg.name, "Pending")
		}
	}
	return nil
}

// ErrNoMigrations is returned when Run is called but no migrations are registered.
var ErrNoMigrations = errors.New("no migrations registered")
