//go:build integration

package repositories_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	_ "github.com/pharmacare/pharmacare-api/database/migrations"
	"github.com/pharmacare/pharmacare-api/pkg/database"
	"github.com/pharmacare/pharmacare-api/pkg/migration"
)

var store *repositories.Store

// TestMain starts a single-node replica set so transactions are available.
func TestMain(m *testing.M) {
	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7", mongodb.WithReplicaSet("rs0"))
	if err != nil {
		panic(err)
	}

	uri, err := container.ConnectionString(ctx)
	if err != nil {
		panic(err)
	}
	client, db, err := database.Open(ctx, direct(uri), "pharmacare_test")
	if err != nil {
		panic(err)
	}
	if err := migration.New(db, nil).Run(ctx); err != nil {
		panic(err)
	}
	store = repositories.NewMongoStore(db, true)

	code := m.Run()
	_ = client.Disconnect(ctx)
	_ = container.Terminate(ctx)
	os.Exit(code)
}

// direct forces a direct connection; the replica set advertises its
// in-container hostname, which the host cannot resolve.
func direct(uri string) string {
	if strings.Contains(uri, "directConnection") {
		return uri
	}
	rest := strings.TrimPrefix(uri, "mongodb://")
	if !strings.Contains(rest, "/") {
		uri += "/"
	}
	if strings.Contains(uri, "?") {
		return uri + "&directConnection=true"
	}
	return uri + "?directConnection=true"
}

func TestMongoUniqueBatchNumber(t *testing.T) {
	ctx := context.Background()
	number := "INT-" + primitive.NewObjectID().Hex()

	require.NoError(t, store.Batches.Create(ctx, &models.Batch{BatchNumber: number}))
	err := store.Batches.Create(ctx, &models.Batch{BatchNumber: number})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)
}

func TestMongoUserEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	email := primitive.NewObjectID().Hex() + "@Example.com"

	require.NoError(t, store.Users.Create(ctx, &models.User{Email: email}))
	u, err := store.Users.FindByEmail(ctx, strings.ToUpper(email))
	require.NoError(t, err)
	assert.Equal(t, strings.ToLower(email), u.Email)
	assert.ErrorIs(t, store.Users.Create(ctx, &models.User{Email: strings.ToUpper(email)}), repositories.ErrDuplicate)
}

func TestMongoTransactionRollsBack(t *testing.T) {
	ctx := context.Background()
	p := &models.Product{Name: "Ibuprofen", Images: []string{}}
	require.NoError(t, store.Products.Create(ctx, p))

	boom := errors.New("boom")
	err := store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, store.Products.SetTotalStock(ctx, p.ID, 42))
		require.NoError(t, store.Batches.Create(ctx, &models.Batch{ProductID: p.ID, BatchNumber: "TX-" + p.ID.Hex()}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := store.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalStock)

	batches, err := store.Batches.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestMongoOrdersReserving(t *testing.T) {
	ctx := context.Background()
	p := primitive.NewObjectID()

	for _, o := range []models.Order{
		{Status: models.OrderPending, Items: []models.OrderItem{{ProductID: p, Quantity: 1}}},
		{Status: models.OrderShipped, StockConsumed: true, Items: []models.OrderItem{{ProductID: p, Quantity: 1}}},
		{Status: models.OrderCancelled, Items: []models.OrderItem{{ProductID: p, Quantity: 1}}},
	} {
		o := o
		require.NoError(t, store.Orders.Create(ctx, &o))
	}

	got, err := store.Orders.Reserving(ctx, p)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestMongoSupplierProducts(t *testing.T) {
	ctx := context.Background()
	p := primitive.NewObjectID()

	sup := &models.Supplier{Name: "MedSupply", Email: p.Hex() + "@medsupply.test", Products: []primitive.ObjectID{}}
	require.NoError(t, store.Suppliers.Create(ctx, sup))
	require.NoError(t, store.Suppliers.AddProduct(ctx, sup.ID, p))
	require.NoError(t, store.Suppliers.AddProduct(ctx, sup.ID, p))

	got, err := store.Suppliers.FindByID(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p}, got.Products)

	require.NoError(t, store.Suppliers.PullProduct(ctx, p))
	got, err = store.Suppliers.FindByID(ctx, sup.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Products)
}

func TestMongoOutboxStale(t *testing.T) {
	ctx := context.Background()
	m := &models.OutboxMessage{Status: models.OutboxPending, To: []string{"a@example.com"}}
	require.NoError(t, store.Outbox.Create(ctx, m))

	stale, err := store.Outbox.Stale(ctx, time.Now().Add(time.Minute), 100)
	require.NoError(t, err)
	ids := make([]primitive.ObjectID, 0, len(stale))
	for _, s := range stale {
		ids = append(ids, s.ID)
	}
	assert.Contains(t, ids, m.ID)
}

func TestMongoProductUpdateLeavesOwnedFields(t *testing.T) {
	ctx := context.Background()
	p := &models.Product{Name: "Paracetamol", Images: []string{}}
	require.NoError(t, store.Products.Create(ctx, p))
	stale, err := store.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, store.Products.SetTotalStock(ctx, p.ID, 50))
	require.NoError(t, store.Products.AddImage(ctx, p.ID, "products/a.png"))

	stale.Price = 3.25
	require.NoError(t, store.Products.Update(ctx, stale))

	got, err := store.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.25, got.Price, 1e-9)
	assert.Equal(t, 50, got.TotalStock)
	assert.Equal(t, []string{"products/a.png"}, got.Images)
}

func TestMongoSupplierUpdateKeepsProducts(t *testing.T) {
	ctx := context.Background()
	sup := &models.Supplier{Name: "MedSupply", Email: primitive.NewObjectID().Hex() + "@medsupply.test"}
	require.NoError(t, store.Suppliers.Create(ctx, sup))
	stale, err := store.Suppliers.FindByID(ctx, sup.ID)
	require.NoError(t, err)

	p := primitive.NewObjectID()
	require.NoError(t, store.Suppliers.AddProduct(ctx, sup.ID, p))
	stale.Status = models.SupplierInactive
	require.NoError(t, store.Suppliers.Update(ctx, stale))

	got, err := store.Suppliers.FindByID(ctx, sup.ID)
	require.NoError(t, err)
	assert.Equal(t, models.SupplierInactive, got.Status)
	assert.Equal(t, []primitive.ObjectID{p}, got.Products)
}
