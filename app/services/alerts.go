package services

import (
	"context"
	"fmt"
	"time"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/pkg/event"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
	"github.com/pharmacare/pharmacare-api/pkg/metrics"
)

// Event names fired on the bus.
const (
	EventStockLow = "stock.low"
	EventStockOut = "stock.out"
)

// StockAlert is the payload of stock events and of the live alert feed.
type StockAlert struct {
	Kind        string    `json:"kind"`
	ProductID   string    `json:"productId"`
	ProductName string    `json:"productName"`
	OrderID     string    `json:"orderId,omitempty"`
	BatchNumber string    `json:"batchNumber,omitempty"`
	TotalStock  int       `json:"totalStock"`
	Threshold   int       `json:"threshold,omitempty"`
	Requested   int       `json:"requested,omitempty"`
	Available   int       `json:"available,omitempty"`
	At          time.Time `json:"at"`
}

type alerter struct {
	outbox *OutboxService
	events *event.Bus
	admin  string
	now    func() time.Time
}

func (a *alerter) raise(ctx context.Context, name string, alert StockAlert, subject, tmpl string) {
	alert.At = a.now()
	metrics.StockAlerts.WithLabelValues(alert.Kind).Inc()
	a.events.FireAsync(ctx, name, alert)

	if a.admin == "" {
		return
	}
	body, err := render(tmpl, alert)
	if err != nil {
		logger.WithCtx(ctx).Error("alerts: render failed", "kind", alert.Kind, "error", err)
		return
	}
	if _, err := a.outbox.Enqueue(ctx, alert.Kind, []string{a.admin}, subject, body); err != nil {
		logger.WithCtx(ctx).Error("alerts: enqueue failed", "kind", alert.Kind, "error", err)
	}
}

func (a *alerter) outOfStock(ctx context.Context, alert StockAlert) {
	alert.Kind = models.MailOutOfStock
	a.raise(ctx, EventStockOut, alert, fmt.Sprintf("Out of stock: %s", alert.ProductName), tmplOutOfStock)
}

func (a *alerter) lowStock(ctx context.Context, alert StockAlert) {
	alert.Kind = models.MailLowStock
	a.raise(ctx, EventStockLow, alert, fmt.Sprintf("Low stock: %s", alert.ProductName), tmplLowStock)
}
