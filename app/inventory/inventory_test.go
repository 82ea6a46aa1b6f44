package inventory_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/inventory"
	"github.com/pharmacare/pharmacare-api/app/models"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func batch(number string, mfg, exp time.Time, qty, remaining int) models.Batch {
	b := models.Batch{
		ID:                primitive.NewObjectID(),
		BatchNumber:       number,
		ManufacturingDate: mfg,
		ExpiryDate:        exp,
		Quantity:          qty,
		RemainingQuantity: remaining,
	}
	inventory.Normalize(&b, now)
	return b
}

func TestStatus(t *testing.T) {
	tests := []struct {
		name      string
		remaining int
		expiry    time.Time
		want      string
	}{
		{"active", 5, day(2025, 1, 1), models.BatchActive},
		{"expired", 5, day(2024, 1, 1), models.BatchExpired},
		{"expires exactly now", 5, now, models.BatchExpired},
		{"depleted beats expired", 0, day(2024, 1, 1), models.BatchDepleted},
		{"depleted", 0, day(2025, 1, 1), models.BatchDepleted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &models.Batch{RemainingQuantity: tt.remaining, ExpiryDate: tt.expiry}
			assert.Equal(t, tt.want, inventory.Status(b, now))
		})
	}
}

func TestNormalizeClamps(t *testing.T) {
	b := &models.Batch{Quantity: 10, RemainingQuantity: 15, ExpiryDate: day(2025, 1, 1)}
	inventory.Normalize(b, now)
	assert.Equal(t, 10, b.RemainingQuantity)
	assert.Equal(t, models.BatchActive, b.Status)

	b.RemainingQuantity = -3
	inventory.Normalize(b, now)
	assert.Equal(t, 0, b.RemainingQuantity)
	assert.Equal(t, models.BatchDepleted, b.Status)
}

func TestValidateDates(t *testing.T) {
	assert.NoError(t, inventory.ValidateDates(day(2024, 1, 1), day(2025, 1, 1)))
	assert.ErrorIs(t, inventory.ValidateDates(day(2025, 1, 1), day(2025, 1, 1)), inventory.ErrInvalidDates)
	assert.ErrorIs(t, inventory.ValidateDates(day(2026, 1, 1), day(2025, 1, 1)), inventory.ErrInvalidDates)
}

func TestAvailableIgnoresExpiredBatches(t *testing.T) {
	batches := []models.Batch{
		batch("B1", day(2023, 1, 1), day(2024, 1, 1), 10, 5),
		batch("B2", day(2024, 1, 1), day(2025, 1, 1), 10, 10),
	}
	assert.Equal(t, models.BatchExpired, batches[0].Status)
	assert.Equal(t, 10, inventory.Available(batches, 0, now))
}

func TestAvailableFloorsAtZero(t *testing.T) {
	batches := []models.Batch{batch("B1", day(2024, 1, 1), day(2025, 1, 1), 10, 4)}
	assert.Equal(t, 0, inventory.Available(batches, 9, now))
	assert.Equal(t, 1, inventory.Available(batches, 3, now))
}

func TestAvailableSkipsStaleActiveStatus(t *testing.T) {
	b := batch("B1", day(2024, 1, 1), day(2025, 1, 1), 10, 10)
	later := day(2025, 2, 1)
	assert.Equal(t, models.BatchActive, b.Status)
	assert.Equal(t, 0, inventory.Available([]models.Batch{b}, 0, later))
}

func TestReserved(t *testing.T) {
	p := primitive.NewObjectID()
	other := primitive.NewObjectID()
	orders := []models.Order{
		{Status: models.OrderPending, Items: []models.OrderItem{{ProductID: p, Quantity: 2}, {ProductID: other, Quantity: 7}}},
		{Status: models.OrderProcessing, Items: []models.OrderItem{{ProductID: p, Quantity: 3}}},
		{Status: models.OrderShipped, StockConsumed: true, Items: []models.OrderItem{{ProductID: p, Quantity: 50}}},
		{Status: models.OrderShipped, Items: []models.OrderItem{{ProductID: p, Quantity: 1}}},
		{Status: models.OrderCancelled, Items: []models.OrderItem{{ProductID: p, Quantity: 100}}},
		{Status: models.OrderDelivered, Items: []models.OrderItem{{ProductID: p, Quantity: 100}}},
	}
	assert.Equal(t, 6, inventory.Reserved(orders, p))
}

func TestRefreshReportsChanges(t *testing.T) {
	batches := []models.Batch{
		batch("B1", day(2024, 1, 1), day(2024, 7, 1), 10, 10),
		batch("B2", day(2024, 1, 1), day(2025, 7, 1), 10, 10),
	}
	changed := inventory.Refresh(batches, day(2024, 8, 1))
	assert.Equal(t, []int{0}, changed)
	assert.Equal(t, models.BatchExpired, batches[0].Status)
}

func TestSelectFIFO(t *testing.T) {
	batches := []models.Batch{
		batch("NEW", day(2024, 3, 1), day(2025, 3, 1), 10, 10),
		batch("OLD-EMPTY", day(2023, 12, 1), day(2025, 3, 1), 10, 0),
		batch("OLD-EXPIRED", day(2023, 1, 1), day(2024, 2, 1), 10, 10),
		batch("OLD", day(2024, 1, 1), day(2025, 3, 1), 10, 3),
	}
	idx := inventory.SelectFIFO(batches, now)
	require.NotEqual(t, -1, idx)
	assert.Equal(t, "OLD", batches[idx].BatchNumber)

	assert.Equal(t, -1, inventory.SelectFIFO(batches[1:3], now))
}

func TestLowStockThreshold(t *testing.T) {
	assert.Equal(t, 10, inventory.LowStockThreshold(1))
	assert.Equal(t, 10, inventory.LowStockThreshold(50))
	assert.Equal(t, 11, inventory.LowStockThreshold(51))
	assert.Equal(t, 20, inventory.LowStockThreshold(100))
}

func TestPlanShipment(t *testing.T) {
	p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()
	b1 := batch("P1-A", day(2024, 1, 1), day(2025, 1, 1), 20, 20)
	b1.ProductID = p1
	b2 := batch("P2-A", day(2024, 1, 1), day(2025, 1, 1), 20, 8)
	b2.ProductID = p2

	order := &models.Order{Items: []models.OrderItem{
		{ProductID: p1, Name: "Paracetamol", Quantity: 5},
		{ProductID: p2, Name: "Ibuprofen", Quantity: 8},
	}}
	batches := map[primitive.ObjectID][]models.Batch{p1: {b1}, p2: {b2}}

	plan, err := inventory.PlanShipment(order, batches, now)
	require.NoError(t, err)
	require.Len(t, plan, 2)
	assert.Equal(t, b1.ID, plan[0].BatchID)
	assert.Equal(t, 15, plan[0].Remaining)
	assert.Equal(t, 0, plan[1].Remaining)

	// inputs untouched
	assert.Equal(t, 20, batches[p1][0].RemainingQuantity)
}

func TestPlanShipmentShortageOnSecondItem(t *testing.T) {
	p1, p2 := primitive.NewObjectID(), primitive.NewObjectID()
	b1 := batch("P1-A", day(2024, 1, 1), day(2025, 1, 1), 20, 20)
	b2 := batch("P2-A", day(2024, 1, 1), day(2025, 1, 1), 20, 2)

	order := &models.Order{Items: []models.OrderItem{
		{ProductID: p1, Name: "Paracetamol", Quantity: 5},
		{ProductID: p2, Name: "Ibuprofen", Quantity: 3},
	}}
	plan, err := inventory.PlanShipment(order, map[primitive.ObjectID][]models.Batch{p1: {b1}, p2: {b2}}, now)
	assert.Nil(t, plan)
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	var short *inventory.ShortageError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, p2, short.ProductID)
	assert.Equal(t, "P2-A", short.BatchNumber)
	assert.Equal(t, 2, short.Available)
}

func TestPlanShipmentDoesNotSpanBatches(t *testing.T) {
	p := primitive.NewObjectID()
	a := batch("A", day(2024, 1, 1), day(2025, 1, 1), 10, 4)
	b := batch("B", day(2024, 2, 1), day(2025, 1, 1), 10, 10)
	order := &models.Order{Items: []models.OrderItem{{ProductID: p, Name: "Zinc", Quantity: 6}}}

	_, err := inventory.PlanShipment(order, map[primitive.ObjectID][]models.Batch{p: {b, a}}, now)
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestPlanShipmentSameProductTwiceUsesTentativeQuantities(t *testing.T) {
	p := primitive.NewObjectID()
	a := batch("A", day(2024, 1, 1), day(2025, 1, 1), 10, 4)
	b := batch("B", day(2024, 2, 1), day(2025, 1, 1), 10, 10)
	order := &models.Order{Items: []models.OrderItem{
		{ProductID: p, Name: "Zinc", Quantity: 4},
		{ProductID: p, Name: "Zinc", Quantity: 2},
	}}

	plan, err := inventory.PlanShipment(order, map[primitive.ObjectID][]models.Batch{p: {a, b}}, now)
	require.NoError(t, err)
	assert.Equal(t, "A", plan[0].BatchNumber)
	assert.Equal(t, "B", plan[1].BatchNumber)
	assert.Equal(t, 8, plan[1].Remaining)
}

func TestPlanShipmentNoBatch(t *testing.T) {
	order := &models.Order{Items: []models.OrderItem{{ProductID: primitive.NewObjectID(), Name: "Gauze", Quantity: 1}}}
	_, err := inventory.PlanShipment(order, nil, now)
	var short *inventory.ShortageError
	require.True(t, errors.As(err, &short))
	assert.Equal(t, "", short.BatchNumber)
	assert.Contains(t, err.Error(), "no active batch")
}
