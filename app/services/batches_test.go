package services_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/app/services"
)

func intp(v int) *int { return &v }

func strp(v string) *string { return &v }

func TestCreateBatchEchoesFullStock(t *testing.T) {
	h := setup(t)
	p := h.product(t, "Paracetamol", 2.5)

	b := h.batch(t, p, h.supplier(t), "PCM-001", "2024-01-01", "2025-01-01", 100)

	assert.Equal(t, 100, b.RemainingQuantity)
	assert.Equal(t, models.BatchActive, b.Status)
	assert.Equal(t, 100, h.stock(t, p.ID))
}

func TestCreateBatchRejectsBadDates(t *testing.T) {
	h := setup(t)
	p := h.product(t, "Paracetamol", 2.5)
	s := h.supplier(t)

	for _, exp := range []string{"2024-01-01", "2023-12-31"} {
		_, err := h.svc.Batches.Create(h.ctx, services.BatchInput{
			ProductID: p.ID.Hex(), SupplierID: s.ID.Hex(), BatchNumber: "B-" + exp,
			ManufacturingDate: "2024-01-01", ExpiryDate: exp,
			Quantity: 10, CostPrice: 1, SellingPrice: 2,
		})
		assert.Contains(t, validation(t, err), "expiryDate")
	}
	_, total, err := h.store.Batches.List(h.ctx, repositories.BatchFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUpdateBatchRejectsBadDates(t *testing.T) {
	h := setup(t)
	b := h.batch(t, h.product(t, "Ibuprofen", 4), h.supplier(t), "IBU-1", "2024-01-01", "2025-01-01", 10)

	_, err := h.svc.Batches.Update(h.ctx, b.ID.Hex(), services.BatchUpdate{ExpiryDate: strp("2023-06-01")})
	assert.Contains(t, validation(t, err), "expiryDate")

	got, err := h.store.Batches.FindByID(h.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-01-01", got.ExpiryDate.Format("2006-01-02"))
}

func TestCreateBatchUnknownReferences(t *testing.T) {
	h := setup(t)
	p := h.product(t, "Ibuprofen", 4)
	_, err := h.svc.Batches.Create(h.ctx, services.BatchInput{
		ProductID: p.ID.Hex(), SupplierID: p.ID.Hex(), BatchNumber: "X",
		ManufacturingDate: "2024-01-01", ExpiryDate: "2025-01-01",
		Quantity: 1, CostPrice: 1, SellingPrice: 1,
	})
	assert.Contains(t, validation(t, err), "supplierId")
}

func TestDuplicateBatchNumberConflicts(t *testing.T) {
	h := setup(t)
	p, s := h.product(t, "Ibuprofen", 4), h.supplier(t)
	h.batch(t, p, s, "DUP", "2024-01-01", "2025-01-01", 10)

	_, err := h.svc.Batches.Create(h.ctx, services.BatchInput{
		ProductID: p.ID.Hex(), SupplierID: s.ID.Hex(), BatchNumber: "DUP",
		ManufacturingDate: "2024-01-01", ExpiryDate: "2025-01-01",
		Quantity: 5, CostPrice: 1, SellingPrice: 1,
	})
	assert.ErrorIs(t, err, services.ErrConflict)
	assert.Equal(t, 10, h.stock(t, p.ID))
}

func TestCreateBatchLinksSupplierToProduct(t *testing.T) {
	h := setup(t)
	p, s := h.product(t, "Ibuprofen", 4), h.supplier(t)
	h.batch(t, p, s, "IBU-1", "2024-01-01", "2025-01-01", 10)
	h.batch(t, p, s, "IBU-2", "2024-02-01", "2025-02-01", 10)

	got, err := h.svc.Suppliers.Get(h.ctx, s.ID.Hex())
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{p.ID}, got.Products)
}

func TestRemainingQuantityIsClamped(t *testing.T) {
	h := setup(t)
	p := h.product(t, "Vitamin C", 6)
	b := h.batch(t, p, h.supplier(t), "VC-1", "2024-01-01", "2025-01-01", 100)

	got, err := h.svc.Batches.AdjustStock(h.ctx, b.ID.Hex(), services.StockAdjustment{RemainingQuantity: intp(500)})
	require.NoError(t, err)
	assert.Equal(t, 100, got.RemainingQuantity)

	got, err = h.svc.Batches.AdjustStock(h.ctx, b.ID.Hex(), services.StockAdjustment{Delta: intp(-250)})
	require.NoError(t, err)
	assert.Equal(t, 0, got.RemainingQuantity)
	assert.Equal(t, models.BatchDepleted, got.Status)
	assert.Equal(t, 0, h.stock(t, p.ID))
}

func TestDepletedWinsOverExpired(t *testing.T) {
	h := setup(t)
	b := h.batch(t, h.product(t, "Aspirin", 3), h.supplier(t), "ASP-1", "2023-01-01", "2024-03-01", 10)
	assert.Equal(t, models.BatchExpired, b.Status)

	got, err := h.svc.Batches.AdjustStock(h.ctx, b.ID.Hex(), services.StockAdjustment{RemainingQuantity: intp(0)})
	require.NoError(t, err)
	assert.Equal(t, models.BatchDepleted, got.Status)
}

func TestReconcileSkipsExpiredBatches(t *testing.T) {
	h := setup(t)
	p, s := h.product(t, "Cough syrup", 7), h.supplier(t)
	h.batch(t, p, s, "B1", "2023-05-01", "2024-05-01", 5)
	h.batch(t, p, s, "B2", "2024-01-01", "2025-01-01", 10)

	total, err := h.svc.Stock.Reconcile(h.ctx, p.ID, services.TriggerManual)
	require.NoError(t, err)
	assert.Equal(t, 10, total)
	assert.Equal(t, 10, h.stock(t, p.ID))
}

func TestReconcileRefreshesStaleStatus(t *testing.T) {
	h := setup(t)
	p := h.product(t, "Antacid", 3)
	b := h.batch(t, p, h.supplier(t), "ANT-1", "2024-01-01", "2025-01-01", 10)

	stale, err := h.store.Batches.FindByID(h.ctx, b.ID)
	require.NoError(t, err)
	stale.ExpiryDate = now.AddDate(0, 0, -1)
	require.NoError(t, h.store.Batches.Update(h.ctx, stale))

	n, err := h.svc.Stock.ReconcileAll(h.ctx, services.TriggerSchedule)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := h.store.Batches.FindByID(h.ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BatchExpired, got.Status)
	assert.Zero(t, h.stock(t, p.ID))
}

func TestDeleteBatchReconciles(t *testing.T) {
	h := setup(t)
	p, s := h.product(t, "Zinc", 9), h.supplier(t)
	b := h.batch(t, p, s, "Z-1", "2024-01-01", "2025-01-01", 10)
	h.batch(t, p, s, "Z-2", "2024-01-01", "2025-01-01", 4)

	require.NoError(t, h.svc.Batches.Delete(h.ctx, b.ID.Hex()))
	assert.Equal(t, 4, h.stock(t, p.ID))
	assert.ErrorIs(t, h.svc.Batches.Delete(h.ctx, b.ID.Hex()), services.ErrNotFound)
}

func TestBatchInvalidIDIsNotFound(t *testing.T) {
	h := setup(t)
	_, err := h.svc.Batches.Get(h.ctx, "not-an-id")
	assert.ErrorIs(t, err, services.ErrNotFound)
}
