package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/inventory"
	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/pkg/validate"
)

// BatchInput is the create body for batches. Dates accept YYYY-MM-DD or
// RFC 3339.
type BatchInput struct {
	ProductID         string  `json:"productId"         validate:"required,objectid"`
	SupplierID        string  `json:"supplierId"        validate:"required,objectid"`
	BatchNumber       string  `json:"batchNumber"       validate:"required,max=64"`
	ManufacturingDate string  `json:"manufacturingDate" validate:"required,date"`
	ExpiryDate        string  `json:"expiryDate"        validate:"required,date"`
	Quantity          int     `json:"quantity"          validate:"required,min=1"`
	RemainingQuantity *int    `json:"remainingQuantity" validate:"omitempty,min=0"`
	CostPrice         float64 `json:"costPrice"         validate:"required,min=0.01"`
	SellingPrice      float64 `json:"sellingPrice"      validate:"required,min=0.01"`
	Notes             string  `json:"notes"             validate:"max=1000"`
}

// BatchUpdate is the partial update body for batches.
type BatchUpdate struct {
	SupplierID        *string  `json:"supplierId"        validate:"omitempty,objectid"`
	BatchNumber       *string  `json:"batchNumber"       validate:"omitempty,max=64"`
	ManufacturingDate *string  `json:"manufacturingDate" validate:"omitempty,date"`
	ExpiryDate        *string  `json:"expiryDate"        validate:"omitempty,date"`
	Quantity          *int     `json:"quantity"          validate:"omitempty,min=1"`
	RemainingQuantity *int     `json:"remainingQuantity" validate:"omitempty,min=0"`
	CostPrice         *float64 `json:"costPrice"         validate:"omitempty,min=0.01"`
	SellingPrice      *float64 `json:"sellingPrice"      validate:"omitempty,min=0.01"`
	Notes             *string  `json:"notes"             validate:"omitempty,max=1000"`
}

// StockAdjustment sets or shifts a batch's remaining quantity. The result
// is clamped into [0, quantity].
type StockAdjustment struct {
	RemainingQuantity *int `json:"remainingQuantity" validate:"required_without=Delta"`
	Delta             *int `json:"delta"             validate:"required_without=RemainingQuantity"`
}

type BatchService struct {
	store *repositories.Store
	stock *StockService
	now   func() time.Time
}

func dateRule(b *models.Batch) error {
	if err := inventory.ValidateDates(b.ManufacturingDate, b.ExpiryDate); err != nil {
		return invalid("expiryDate", "The expiry date must be after the manufacturing date.")
	}
	return nil
}

func (s *BatchService) Create(ctx context.Context, in BatchInput) (*models.Batch, error) {
	productID, _ := primitive.ObjectIDFromHex(in.ProductID)
	supplierID, _ := primitive.ObjectIDFromHex(in.SupplierID)
	mfg, _ := validate.ParseDate(in.ManufacturingDate)
	exp, _ := validate.ParseDate(in.ExpiryDate)

	b := &models.Batch{
		ProductID:         productID,
		SupplierID:        supplierID,
		BatchNumber:       in.BatchNumber,
		ManufacturingDate: mfg,
		ExpiryDate:        exp,
		Quantity:          in.Quantity,
		RemainingQuantity: in.Quantity,
		CostPrice:         in.CostPrice,
		SellingPrice:      in.SellingPrice,
		Notes:             in.Notes,
	}
	if in.RemainingQuantity != nil {
		b.RemainingQuantity = *in.RemainingQuantity
	}
	if err := dateRule(b); err != nil {
		return nil, err
	}
	if _, err := s.store.Products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, invalid("productId", "The selected product does not exist.")
		}
		return nil, err
	}
	if _, err := s.store.Suppliers.FindByID(ctx, supplierID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, invalid("supplierId", "The selected supplier does not exist.")
		}
		return nil, err
	}
	inventory.Normalize(b, s.now())

	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Batches.Create(ctx, b); err != nil {
			return duplicate(err, fmt.Sprintf("batch number %q already exists", b.BatchNumber))
		}
		if err := s.store.Suppliers.AddProduct(ctx, supplierID, productID); err != nil {
			return err
		}
		_, err := s.stock.Reconcile(ctx, productID, TriggerBatch)
		return err
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

func (s *BatchService) Get(ctx context.Context, id string) (*models.Batch, error) {
	oid, err := ParseID(id, "batch")
	if err != nil {
		return nil, err
	}
	b, err := s.store.Batches.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "batch")
	}
	return b, nil
}

func (s *BatchService) List(ctx context.Context, productID, supplierID, status string, p Page) ([]models.Batch, int64, error) {
	f := repositories.BatchFilter{Status: status, Page: p}
	var err error
	if f.ProductID, err = optionalID(productID); err != nil {
		return nil, 0, invalid("productId", "The productId must be a valid id.")
	}
	if f.SupplierID, err = optionalID(supplierID); err != nil {
		return nil, 0, invalid("supplierId", "The supplierId must be a valid id.")
	}
	return s.store.Batches.List(ctx, f)
}

// Update applies a partial update; the date rule and the quantity clamp run
// as on create.
func (s *BatchService) Update(ctx context.Context, id string, in BatchUpdate) (*models.Batch, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	supplierChanged := false
	if in.SupplierID != nil {
		sid, _ := primitive.ObjectIDFromHex(*in.SupplierID)
		if sid != b.SupplierID {
			if _, err := s.store.Suppliers.FindByID(ctx, sid); err != nil {
				if errors.Is(err, repositories.ErrNotFound) {
					return nil, invalid("supplierId", "The selected supplier does not exist.")
				}
				return nil, err
			}
			b.SupplierID, supplierChanged = sid, true
		}
	}
	if in.BatchNumber != nil {
		b.BatchNumber = *in.BatchNumber
	}
	if in.ManufacturingDate != nil {
		b.ManufacturingDate, _ = validate.ParseDate(*in.ManufacturingDate)
	}
	if in.ExpiryDate != nil {
		b.ExpiryDate, _ = validate.ParseDate(*in.ExpiryDate)
	}
	if in.Quantity != nil {
		b.Quantity = *in.Quantity
	}
	if in.RemainingQuantity != nil {
		b.RemainingQuantity = *in.RemainingQuantity
	}
	if in.CostPrice != nil {
		b.CostPrice = *in.CostPrice
	}
	if in.SellingPrice != nil {
		b.SellingPrice = *in.SellingPrice
	}
	if in.Notes != nil {
		b.Notes = *in.Notes
	}
	if err := dateRule(b); err != nil {
		return nil, err
	}
	return b, s.save(ctx, b, supplierChanged)
}

// AdjustStock sets or shifts the remaining quantity of a batch.
func (s *BatchService) AdjustStock(ctx context.Context, id string, in StockAdjustment) (*models.Batch, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.RemainingQuantity != nil {
		b.RemainingQuantity = *in.RemainingQuantity
	}
	if in.Delta != nil {
		b.RemainingQuantity += *in.Delta
	}
	return b, s.save(ctx, b, false)
}

func (s *BatchService) save(ctx context.Context, b *models.Batch, supplierChanged bool) error {
	inventory.Normalize(b, s.now())
	return s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Batches.Update(ctx, b); err != nil {
			return duplicate(found(err, "batch"), fmt.Sprintf("batch number %q already exists", b.BatchNumber))
		}
		if supplierChanged {
			if err := s.store.Suppliers.AddProduct(ctx, b.SupplierID, b.ProductID); err != nil {
				return err
			}
		}
		_, err := s.stock.Reconcile(ctx, b.ProductID, TriggerBatch)
		return err
	})
}

func (s *BatchService) Delete(ctx context.Context, id string) error {
	b, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Batches.Delete(ctx, b.ID); err != nil {
			return found(err, "batch")
		}
		_, err := s.stock.Reconcile(ctx, b.ProductID, TriggerBatch)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return err
	})
}
