package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/inventory"
	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
	"github.com/pharmacare/pharmacare-api/pkg/metrics"
)

// OrderItemInput is one requested line.
type OrderItemInput struct {
	ProductID string `json:"productId" validate:"required,objectid"`
	Quantity  int    `json:"quantity"  validate:"required,min=1,max=1000"`
}

// OrderInput is the checkout body. Payment is simulated: only the card
// type and number are checked and the last four digits kept.
type OrderInput struct {
	Items           []OrderItemInput `json:"items"           validate:"required,min=1,dive"`
	ShippingAddress models.Address   `json:"shippingAddress"`
	PaymentMethod   string           `json:"paymentMethod"   validate:"required,oneof=visa mastercard"`
	CardNumber      string           `json:"cardNumber"      validate:"required,numeric,min=12,max=19"`
}

// StatusInput is the admin status change body.
type StatusInput struct {
	Status      string `json:"status"      validate:"required,oneof=pending processing shipped delivered cancelled"`
	UpdateStock bool   `json:"updateStock"`
}

var transitions = map[string][]string{
	models.OrderPending:    {models.OrderProcessing, models.OrderCancelled},
	models.OrderProcessing: {models.OrderShipped, models.OrderCancelled},
	models.OrderShipped:    {models.OrderDelivered},
}

// CanTransition reports whether an order may move from one status to
// another. Delivered and cancelled are terminal.
func CanTransition(from, to string) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type OrderService struct {
	store         *repositories.Store
	stock         *StockService
	outbox        *OutboxService
	alerts        *alerter
	prescriptions *PrescriptionService
	now           func() time.Time
}

func last4(card string) string {
	if len(card) <= 4 {
		return card
	}
	return card[len(card)-4:]
}

func money(v float64) string { return decimal.NewFromFloat(v).StringFixed(2) }

// Create snapshots the ordered products, reserves their stock and sends a
// confirmation email.
func (s *OrderService) Create(ctx context.Context, userID primitive.ObjectID, in OrderInput) (*models.Order, error) {
	user, err := s.store.Users.FindByID(ctx, userID)
	if err != nil {
		return nil, found(err, "user")
	}

	order := &models.Order{
		UserID:          userID,
		Status:          models.OrderPending,
		ShippingAddress: in.ShippingAddress,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   models.PaymentPaid,
		CardLast4:       last4(in.CardNumber),
		Items:           make([]models.OrderItem, 0, len(in.Items)),
	}
	order.ShippingAddress.ID = primitive.NilObjectID

	total := decimal.Zero
	wanted := map[primitive.ObjectID]int{}
	needsPrescription := false
	for i, it := range in.Items {
		field := fmt.Sprintf("items[%d]", i)
		pid, _ := primitive.ObjectIDFromHex(it.ProductID)
		p, err := s.store.Products.FindByID(ctx, pid)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, invalid(field+".productId", "The selected product does not exist.")
			}
			return nil, err
		}
		wanted[pid] += it.Quantity
		if wanted[pid] > p.TotalStock {
			return nil, fmt.Errorf("%w: only %d of %s available", ErrInsufficientStock, p.TotalStock, p.Name)
		}
		needsPrescription = needsPrescription || p.RequiresPrescription

		order.Items = append(order.Items, models.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Quantity:  it.Quantity,
		})
		total = total.Add(decimal.NewFromFloat(p.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	order.TotalAmount, _ = total.Round(2).Float64()

	if needsPrescription {
		ok, err := s.prescriptions.HasApproved(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, invalid("items", "An approved prescription is required for one or more items.")
		}
	}

	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Orders.Create(ctx, order); err != nil {
			return err
		}
		return s.reconcile(ctx, order, TriggerOrder)
	})
	if err != nil {
		return nil, err
	}

	s.confirm(ctx, user, order)
	return order, nil
}

func (s *OrderService) confirm(ctx context.Context, user *models.User, order *models.Order) {
	body, err := render(tmplOrderConfirmation, map[string]any{"Name": user.Name, "Order": order})
	if err != nil {
		logger.WithCtx(ctx).Error("orders: render confirmation", "order_id", order.ID.Hex(), "error", err)
		return
	}
	subject := fmt.Sprintf("Order confirmation #%s", order.ID.Hex())
	if _, err := s.outbox.Enqueue(ctx, models.MailOrderConfirmation, []string{user.Email}, subject, body); err != nil {
		logger.WithCtx(ctx).Error("orders: enqueue confirmation", "order_id", order.ID.Hex(), "error", err)
	}
}

func (s *OrderService) reconcile(ctx context.Context, order *models.Order, trigger string) error {
	for _, pid := range order.ProductIDs() {
		if _, err := s.stock.Reconcile(ctx, pid, trigger); err != nil {
			if errors.Is(err, ErrNotFound) {
				// product deleted since the order was placed
				continue
			}
			return err
		}
	}
	return nil
}

// Get returns an order the caller may see: their own, or any for admins.
func (s *OrderService) Get(ctx context.Context, id string, caller Caller) (*models.Order, error) {
	oid, err := ParseID(id, "order")
	if err != nil {
		return nil, err
	}
	o, err := s.store.Orders.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "order")
	}
	if !caller.IsAdmin() && o.UserID != caller.UserID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *OrderService) ListForUser(ctx context.Context, userID primitive.ObjectID, p Page) ([]models.Order, int64, error) {
	return s.store.Orders.List(ctx, repositories.OrderFilter{UserID: &userID, Page: p})
}

func (s *OrderService) List(ctx context.Context, status, userID string, p Page) ([]models.Order, int64, error) {
	uid, err := optionalID(userID)
	if err != nil {
		return nil, 0, invalid("userId", "The userId must be a valid id.")
	}
	return s.store.Orders.List(ctx, repositories.OrderFilter{Status: status, UserID: uid, Page: p})
}

// Cancel lets a customer cancel their own pending order.
func (s *OrderService) Cancel(ctx context.Context, id string, caller Caller) (*models.Order, error) {
	o, err := s.Get(ctx, id, caller)
	if err != nil {
		return nil, err
	}
	if o.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if o.Status != models.OrderPending {
		return nil, fmt.Errorf("%w: only pending orders can be cancelled", ErrInvalidTransition)
	}
	return o, s.setStatus(ctx, o, models.OrderCancelled)
}

func (s *OrderService) setStatus(ctx context.Context, o *models.Order, status string) error {
	o.Status = status
	return s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.store.Orders.Update(ctx, o); err != nil {
			return found(err, "order")
		}
		return s.reconcile(ctx, o, TriggerOrder)
	})
}

// UpdateStatus moves an order along its lifecycle. Shipping with
// updateStock consumes one FIFO batch per item: the whole shipment is
// planned first and then applied in a single transaction.
func (s *OrderService) UpdateStatus(ctx context.Context, id string, in StatusInput) (*models.Order, error) {
	oid, err := ParseID(id, "order")
	if err != nil {
		return nil, err
	}
	o, err := s.store.Orders.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "order")
	}
	if o.Status == in.Status {
		return o, nil
	}
	if !CanTransition(o.Status, in.Status) {
		return nil, fmt.Errorf("%w: %s → %s", ErrInvalidTransition, o.Status, in.Status)
	}

	if in.Status != models.OrderShipped || !in.UpdateStock || o.StockConsumed {
		return o, s.setStatus(ctx, o, in.Status)
	}
	return o, s.ship(ctx, o)
}

func (s *OrderService) ship(ctx context.Context, o *models.Order) error {
	now := s.now()
	batches := make(map[primitive.ObjectID][]models.Batch)
	for _, pid := range o.ProductIDs() {
		bs, err := s.store.Batches.ListByProduct(ctx, pid)
		if err != nil {
			return err
		}
		batches[pid] = bs
	}

	plan, err := inventory.PlanShipment(o, batches, now)
	if err != nil {
		s.shortage(ctx, o, err)
		return err
	}

	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		consumptions := make([]models.Consumption, 0, len(plan))
		for _, a := range plan {
			b, err := s.store.Batches.FindByID(ctx, a.BatchID)
			if err != nil {
				return found(err, "batch")
			}
			if b.RemainingQuantity < a.Quantity {
				return &inventory.ShortageError{
					ProductID:   a.ProductID,
					ProductName: itemName(o, a.ProductID),
					Requested:   a.Quantity,
					Available:   b.RemainingQuantity,
					BatchNumber: b.BatchNumber,
				}
			}
			b.RemainingQuantity -= a.Quantity
			inventory.Normalize(b, now)
			if err := s.store.Batches.Update(ctx, b); err != nil {
				return err
			}
			consumptions = append(consumptions, models.Consumption{
				ProductID:   a.ProductID,
				BatchID:     a.BatchID,
				BatchNumber: a.BatchNumber,
				Quantity:    a.Quantity,
			})
		}

		o.Status = models.OrderShipped
		o.StockConsumed = true
		o.Consumptions = consumptions
		if err := s.store.Orders.Update(ctx, o); err != nil {
			return err
		}
		return s.reconcile(ctx, o, TriggerShipment)
	})
	if err != nil {
		s.shortage(ctx, o, err)
		return err
	}
	metrics.OrdersShipped.Inc()

	s.checkLowStock(ctx, o)
	return nil
}

func itemName(o *models.Order, pid primitive.ObjectID) string {
	for _, it := range o.Items {
		if it.ProductID == pid {
			return it.Name
		}
	}
	return pid.Hex()
}

// shortage raises an out-of-stock alert when err is a shortage.
func (s *OrderService) shortage(ctx context.Context, o *models.Order, err error) {
	var short *inventory.ShortageError
	if !errors.As(err, &short) {
		return
	}
	alert := StockAlert{
		ProductID:   short.ProductID.Hex(),
		ProductName: short.ProductName,
		OrderID:     o.ID.Hex(),
		BatchNumber: short.BatchNumber,
		Requested:   short.Requested,
		Available:   short.Available,
	}
	if p, err := s.store.Products.FindByID(ctx, short.ProductID); err == nil {
		alert.TotalStock = p.TotalStock
	}
	s.alerts.outOfStock(ctx, alert)
}

// checkLowStock alerts for every shipped product whose reconciled stock is
// below max(10, 20% of the shipped quantity).
func (s *OrderService) checkLowStock(ctx context.Context, o *models.Order) {
	for _, pid := range o.ProductIDs() {
		p, err := s.store.Products.FindByID(ctx, pid)
		if err != nil {
			continue
		}
		threshold := inventory.LowStockThreshold(o.Quantity(pid))
		if p.TotalStock < threshold {
			s.alerts.lowStock(ctx, StockAlert{
				ProductID:   pid.Hex(),
				ProductName: p.Name,
				OrderID:     o.ID.Hex(),
				TotalStock:  p.TotalStock,
				Threshold:   threshold,
			})
		}
	}
}
