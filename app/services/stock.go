package services

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/inventory"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/pkg/cache"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
	"github.com/pharmacare/pharmacare-api/pkg/metrics"
)

// Reconciliation triggers, used as the metrics label.
const (
	TriggerBatch    = "batch"
	TriggerOrder    = "order"
	TriggerShipment = "shipment"
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

// StockService is the only writer of Product.TotalStock.
type StockService struct {
	store *repositories.Store
	now   func() time.Time
}

// ProductCacheKey is the cache key of a product's detail document.
func ProductCacheKey(id primitive.ObjectID) string { return "product:" + id.Hex() }

// forget drops the cached product detail. A failure only leaves the entry
// to expire on its TTL, so it is logged and not returned.
func forget(ctx context.Context, productID primitive.ObjectID) {
	if err := cache.Del(ctx, ProductCacheKey(productID)); err != nil {
		logger.WithCtx(ctx).Warn("products: cache invalidation failed", "product_id", productID.Hex(), "error", err)
	}
}

// Reconcile refreshes and persists the status of every batch of the
// product, recomputes its available stock and stores it on the product.
// Pass the ctx of an enclosing transaction to take part in it.
func (s *StockService) Reconcile(ctx context.Context, productID primitive.ObjectID, trigger string) (int, error) {
	now := s.now()

	batches, err := s.store.Batches.ListByProduct(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("reconcile: load batches: %w", err)
	}
	for _, i := range inventory.Refresh(batches, now) {
		if err := s.store.Batches.Update(ctx, &batches[i]); err != nil {
			return 0, fmt.Errorf("reconcile: refresh batch %s: %w", batches[i].BatchNumber, err)
		}
	}

	orders, err := s.store.Orders.Reserving(ctx, productID)
	if err != nil {
		return 0, fmt.Errorf("reconcile: load reservations: %w", err)
	}
	total := inventory.Available(batches, inventory.Reserved(orders, productID), now)

	if err := s.store.Products.SetTotalStock(ctx, productID, total); err != nil {
		return 0, found(err, "product")
	}
	forget(ctx, productID)
	metrics.StockReconciliations.WithLabelValues(trigger).Inc()
	return total, nil
}

// ReconcileAll reconciles every product and returns how many were
// processed. A failing product is logged and skipped.
func (s *StockService) ReconcileAll(ctx context.Context, trigger string) (int, error) {
	ids, err := s.store.Products.IDs(ctx)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			return n, ctx.Err()
		}
		if _, err := s.Reconcile(ctx, id, trigger); err != nil {
			logger.WithCtx(ctx).Error("reconcile: product failed", "product_id", id.Hex(), "error", err)
			continue
		}
		n++
	}
	return n, nil
}
