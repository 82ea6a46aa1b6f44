package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/app/repositories/memory"
)

func TestCreateAndFindIsolatesCopies(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	p := &models.Product{Name: "Paracetamol", Category: models.CategoryMedicine, Price: 2.5}
	require.NoError(t, s.Products.Create(ctx, p))
	require.False(t, p.ID.IsZero())

	p.Name = "changed after save"
	got, err := s.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol", got.Name)
}

func TestFindMissingReturnsNotFound(t *testing.T) {
	s := memory.NewStore()
	_, err := s.Batches.FindByID(context.Background(), primitive.NewObjectID())
	assert.ErrorIs(t, err, repositories.ErrNotFound)
}

func TestUniqueBatchNumber(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	require.NoError(t, s.Batches.Create(ctx, &models.Batch{BatchNumber: "B-1"}))
	err := s.Batches.Create(ctx, &models.Batch{BatchNumber: "B-1"})
	assert.ErrorIs(t, err, repositories.ErrDuplicate)

	other := &models.Batch{BatchNumber: "B-2"}
	require.NoError(t, s.Batches.Create(ctx, other))
	other.BatchNumber = "B-1"
	assert.ErrorIs(t, s.Batches.Update(ctx, other), repositories.ErrDuplicate)
}

func TestUserEmailIsCaseInsensitive(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	require.NoError(t, s.Users.Create(ctx, &models.User{Email: "Ana@Example.com"}))
	u, err := s.Users.FindByEmail(ctx, "ana@example.COM")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", u.Email)
	assert.ErrorIs(t, s.Users.Create(ctx, &models.User{Email: "ANA@example.com"}), repositories.ErrDuplicate)
}

func TestTransactionRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	p := &models.Product{Name: "Ibuprofen"}
	require.NoError(t, s.Products.Create(ctx, p))

	boom := errors.New("boom")
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, s.Products.SetTotalStock(ctx, p.ID, 42))
		require.NoError(t, s.Batches.Create(ctx, &models.Batch{ProductID: p.ID, BatchNumber: "X"}))
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := s.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.TotalStock)

	batches, err := s.Batches.ListByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, batches)
}

func TestNestedTransactionJoinsOuter(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
			return s.Products.Create(ctx, &models.Product{Name: "Zinc"})
		})
	})
	require.NoError(t, err)

	items, total, err := s.Products.List(ctx, repositories.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Len(t, items, 1)
}

func TestProductListFiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	for _, p := range []models.Product{
		{Name: "Vitamin C", Brand: "Acme", Category: models.CategorySupplements},
		{Name: "Vitamin D", Brand: "Acme", Category: models.CategorySupplements},
		{Name: "Thermometer", Brand: "Medi", Category: models.CategoryEquipment},
	} {
		p := p
		require.NoError(t, s.Products.Create(ctx, &p))
	}

	items, total, err := s.Products.List(ctx, repositories.ProductFilter{Search: "vitamin"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 2)

	items, total, err = s.Products.List(ctx, repositories.ProductFilter{
		Category: models.CategorySupplements,
		Page:     repositories.Page{Page: 2, Limit: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, items, 1)
}

func TestOrdersReserving(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p := primitive.NewObjectID()

	for _, o := range []models.Order{
		{Status: models.OrderPending, Items: []models.OrderItem{{ProductID: p, Quantity: 1}}},
		{Status: models.OrderShipped, StockConsumed: true, Items: []models.OrderItem{{ProductID: p, Quantity: 1}}},
		{Status: models.OrderCancelled, Items: []models.OrderItem{{ProductID: p, Quantity: 1}}},
		{Status: models.OrderPending, Items: []models.OrderItem{{ProductID: primitive.NewObjectID(), Quantity: 1}}},
	} {
		o := o
		require.NoError(t, s.Orders.Create(ctx, &o))
	}

	got, err := s.Orders.Reserving(ctx, p)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestSupplierProducts(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p := primitive.NewObjectID()

	sup := &models.Supplier{Name: "MedSupply", Email: "orders@medsupply.test"}
	require.NoError(t, s.Suppliers.Create(ctx, sup))
	require.NoError(t, s.Suppliers.AddProduct(ctx, sup.ID, p))
	require.NoError(t, s.Suppliers.AddProduct(ctx, sup.ID, p))

	got, _ := s.Suppliers.FindByID(ctx, sup.ID)
	assert.Equal(t, []primitive.ObjectID{p}, got.Products)

	require.NoError(t, s.Suppliers.PullProduct(ctx, p))
	got, _ = s.Suppliers.FindByID(ctx, sup.ID)
	assert.Empty(t, got.Products)
}

func TestOutboxStale(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	require.NoError(t, s.Outbox.Create(ctx, &models.OutboxMessage{Status: models.OutboxPending}))
	require.NoError(t, s.Outbox.Create(ctx, &models.OutboxMessage{Status: models.OutboxSent}))

	stale, err := s.Outbox.Stale(ctx, time.Now().Add(time.Minute), 10)
	require.NoError(t, err)
	assert.Len(t, stale, 1)

	stale, err = s.Outbox.Stale(ctx, time.Now().Add(-time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, stale)
}

func TestProductUpdateLeavesOwnedFields(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()

	p := &models.Product{Name: "Paracetamol", Images: []string{}}
	require.NoError(t, s.Products.Create(ctx, p))
	stale, err := s.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, s.Products.SetTotalStock(ctx, p.ID, 50))
	require.NoError(t, s.Products.AddImage(ctx, p.ID, "products/a.png"))

	stale.Name = "Paracetamol 500mg"
	require.NoError(t, s.Products.Update(ctx, stale))

	got, err := s.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Paracetamol 500mg", got.Name)
	assert.Equal(t, 50, got.TotalStock)
	assert.Equal(t, []string{"products/a.png"}, got.Images)

	assert.ErrorIs(t, s.Products.AddImage(ctx, primitive.NewObjectID(), "x.png"), repositories.ErrNotFound)
}

func TestSupplierUpdateKeepsProductsAndEmailUnique(t *testing.T) {
	ctx := context.Background()
	s := memory.NewStore()
	p := primitive.NewObjectID()

	sup := &models.Supplier{Name: "MedSupply", Email: "orders@medsupply.test"}
	require.NoError(t, s.Suppliers.Create(ctx, sup))
	require.NoError(t, s.Suppliers.Create(ctx, &models.Supplier{Name: "Other", Email: "other@medsupply.test"}))
	stale, _ := s.Suppliers.FindByID(ctx, sup.ID)

	require.NoError(t, s.Suppliers.AddProduct(ctx, sup.ID, p))
	stale.Phone = "555-0199"
	require.NoError(t, s.Suppliers.Update(ctx, stale))

	got, _ := s.Suppliers.FindByID(ctx, sup.ID)
	assert.Equal(t, "555-0199", got.Phone)
	assert.Equal(t, []primitive.ObjectID{p}, got.Products)

	stale.Email = "OTHER@medsupply.test"
	assert.ErrorIs(t, s.Suppliers.Update(ctx, stale), repositories.ErrDuplicate)
	got, _ = s.Suppliers.FindByID(ctx, sup.ID)
	assert.Equal(t, "orders@medsupply.test", got.Email)
}
