// Package inventory holds the stock rules: batch status and expiry, the
// remaining-quantity clamp, stock recomputation, FIFO batch selection and
// shipment planning. Everything here is pure; services load the documents,
// call these functions with an explicit clock value and persist the result.
package inventory

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
)

var (
	ErrInvalidDates      = errors.New("manufacturing date must be before expiry date")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Status derives a batch status. Depletion wins over expiry.
func Status(b *models.Batch, now time.Time) string {
	switch {
	case b.RemainingQuantity <= 0:
		return models.BatchDepleted
	case !b.ExpiryDate.After(now):
		return models.BatchExpired
	default:
		return models.BatchActive
	}
}

// Normalize clamps RemainingQuantity into [0, Quantity] and recomputes the
// status. It runs before every batch write.
func Normalize(b *models.Batch, now time.Time) {
	if b.RemainingQuantity < 0 {
		b.RemainingQuantity = 0
	}
	if b.RemainingQuantity > b.Quantity {
		b.RemainingQuantity = b.Quantity
	}
	b.Status = Status(b, now)
}

// ValidateDates rejects a manufacturing date that is not strictly before
// the expiry date.
func ValidateDates(mfg, exp time.Time) error {
	if !mfg.Before(exp) {
		return ErrInvalidDates
	}
	return nil
}

// Sellable reports whether a batch counts towards available stock.
func Sellable(b *models.Batch, now time.Time) bool {
	return b.Status == models.BatchActive && b.ExpiryDate.After(now) && b.RemainingQuantity > 0
}

// Reserving lists order statuses that hold stock until it is consumed.
var Reserving = []string{models.OrderPending, models.OrderProcessing, models.OrderShipped}

func reserving(status string) bool {
	for _, s := range Reserving {
		if s == status {
			return true
		}
	}
	return false
}

// Reserved sums the quantity of productID held by orders whose stock has
// not yet been taken out of batches.
func Reserved(orders []models.Order, productID primitive.ObjectID) int {
	n := 0
	for i := range orders {
		o := &orders[i]
		if o.StockConsumed || !reserving(o.Status) {
			continue
		}
		n += o.Quantity(productID)
	}
	return n
}

// Available computes a product's total stock: the remaining quantity of
// its sellable batches less reservations, floored at zero. Batch statuses
// must already be refreshed for now.
func Available(batches []models.Batch, reserved int, now time.Time) int {
	sum := 0
	for i := range batches {
		if Sellable(&batches[i], now) {
			sum += batches[i].RemainingQuantity
		}
	}
	sum -= reserved
	if sum < 0 {
		return 0
	}
	return sum
}

// Refresh recomputes the status of every batch and returns the indexes of
// those whose status changed.
func Refresh(batches []models.Batch, now time.Time) []int {
	var changed []int
	for i := range batches {
		prev := batches[i].Status
		Normalize(&batches[i], now)
		if batches[i].Status != prev {
			changed = append(changed, i)
		}
	}
	return changed
}

// SelectFIFO returns the index of the oldest (by manufacturing date) active
// batch with stock left, or -1.
func SelectFIFO(batches []models.Batch, now time.Time) int {
	best := -1
	for i := range batches {
		b := &batches[i]
		if b.RemainingQuantity <= 0 || Status(b, now) != models.BatchActive {
			continue
		}
		if best == -1 || b.ManufacturingDate.Before(batches[best].ManufacturingDate) {
			best = i
		}
	}
	return best
}

// LowStockThreshold is max(10, ceil(20% of quantity)).
func LowStockThreshold(quantity int) int {
	t := int(math.Ceil(float64(quantity) * 0.2))
	if t < 10 {
		return 10
	}
	return t
}

// ShortageError reports the item that could not be served from one batch.
type ShortageError struct {
	ProductID   primitive.ObjectID
	ProductName string
	Requested   int
	Available   int
	BatchNumber string
}

func (e *ShortageError) Error() string {
	if e.BatchNumber == "" {
		return fmt.Sprintf("no active batch available for %s", e.ProductName)
	}
	return fmt.Sprintf("insufficient stock for %s in batch %s: requested %d, available %d",
		e.ProductName, e.BatchNumber, e.Requested, e.Available)
}

func (e *ShortageError) Unwrap() error { return ErrInsufficientStock }

// Allocation is one planned batch decrement.
type Allocation struct {
	ProductID   primitive.ObjectID
	BatchID     primitive.ObjectID
	BatchNumber string
	Quantity    int
	Remaining   int // after the decrement
}

// PlanShipment validates every item of the order against a tentative copy
// of the batch quantities and returns the decrements to apply. Each item is
// served from a single FIFO batch; nothing is returned on the first
// shortage. The input slices are not modified.
func PlanShipment(order *models.Order, batches map[primitive.ObjectID][]models.Batch, now time.Time) ([]Allocation, error) {
	tentative := make(map[primitive.ObjectID][]models.Batch, len(batches))
	for id, bs := range batches {
		cp := append([]models.Batch(nil), bs...)
		sort.SliceStable(cp, func(i, j int) bool { return cp[i].ManufacturingDate.Before(cp[j].ManufacturingDate) })
		tentative[id] = cp
	}

	plan := make([]Allocation, 0, len(order.Items))
	for _, item := range order.Items {
		bs := tentative[item.ProductID]
		idx := SelectFIFO(bs, now)
		if idx < 0 {
			return nil, &ShortageError{ProductID: item.ProductID, ProductName: item.Name, Requested: item.Quantity}
		}
		b := &bs[idx]
		if b.RemainingQuantity < item.Quantity {
			return nil, &ShortageError{
				ProductID:   item.ProductID,
				ProductName: item.Name,
				Requested:   item.Quantity,
				Available:   b.RemainingQuantity,
				BatchNumber: b.BatchNumber,
			}
		}
		b.RemainingQuantity -= item.Quantity
		plan = append(plan, Allocation{
			ProductID:   item.ProductID,
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Quantity:    item.Quantity,
			Remaining:   b.RemainingQuantity,
		})
	}
	return plan, nil
}
