package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/app/repositories/memory"
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/mail"
	"github.com/pharmacare/pharmacare-api/pkg/storage"
	"github.com/pharmacare/pharmacare-api/pkg/workerpool"
)

var now = time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

const adminEmail = "admin@pharmacare.test"

// outbox captures sent mail and can be told to fail.
type outbox struct {
	mu   sync.Mutex
	sent []*mail.Message
	fail error
}

func (o *outbox) Send(_ context.Context, m *mail.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail != nil {
		return o.fail
	}
	o.sent = append(o.sent, m)
	return nil
}

type harness struct {
	ctx   context.Context
	svc   *services.Services
	store *repositories.Store
	mail  *outbox
	disk  *storage.LocalDisk
	pool  *workerpool.Pool
}

func setup(t *testing.T) *harness {
	t.Helper()
	st := memory.NewStore()
	box := &outbox{}
	disk := storage.NewLocalDisk(t.TempDir(), "/uploads")
	pool := workerpool.New(1, 2)
	t.Cleanup(pool.Shutdown)

	svc := services.New(services.Options{
		Store:       st,
		Disk:        disk,
		Mailer:      box,
		Reports:     pool,
		Now:         func() time.Time { return now },
		AdminEmail:  adminEmail,
		MaxAttempts: 2,
	})
	return &harness{ctx: context.Background(), svc: svc, store: st, mail: box, disk: disk, pool: pool}
}

func (h *harness) customer(t *testing.T, email string) services.Caller {
	t.Helper()
	tok, err := h.svc.Auth.Register(h.ctx, services.RegisterInput{Name: "Jane Doe", Email: email, Password: "secret-pass"})
	require.NoError(t, err)
	return services.Caller{UserID: tok.User.ID, Role: tok.User.Role}
}

func (h *harness) product(t *testing.T, name string, price float64) *models.Product {
	t.Helper()
	p, err := h.svc.Products.Create(h.ctx, services.ProductInput{Name: name, Category: models.CategoryMedicine, Price: price})
	require.NoError(t, err)
	return p
}

func (h *harness) supplier(t *testing.T) *models.Supplier {
	t.Helper()
	s, err := h.svc.Suppliers.Create(h.ctx, services.SupplierInput{
		Name: "Acme Pharma", Email: primitive.NewObjectID().Hex() + "@acme.test", Phone: "555-0100",
	})
	require.NoError(t, err)
	return s
}

func (h *harness) batch(t *testing.T, p *models.Product, s *models.Supplier, number, mfg, exp string, qty int) *models.Batch {
	t.Helper()
	b, err := h.svc.Batches.Create(h.ctx, services.BatchInput{
		ProductID:         p.ID.Hex(),
		SupplierID:        s.ID.Hex(),
		BatchNumber:       number,
		ManufacturingDate: mfg,
		ExpiryDate:        exp,
		Quantity:          qty,
		CostPrice:         5,
		SellingPrice:      8,
	})
	require.NoError(t, err)
	return b
}

func (h *harness) stock(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := h.store.Products.FindByID(h.ctx, id)
	require.NoError(t, err)
	return p.TotalStock
}

func (h *harness) remaining(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	b, err := h.store.Batches.FindByID(h.ctx, id)
	require.NoError(t, err)
	return b.RemainingQuantity
}

func (h *harness) messages(t *testing.T, kind string) []models.OutboxMessage {
	t.Helper()
	all, _, err := h.store.Outbox.List(h.ctx, repositories.OutboxFilter{})
	require.NoError(t, err)
	var out []models.OutboxMessage
	for _, m := range all {
		if m.Kind == kind {
			out = append(out, m)
		}
	}
	return out
}

func address() models.Address {
	return models.Address{Street: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}
}

func order(items ...services.OrderItemInput) services.OrderInput {
	return services.OrderInput{
		Items:           items,
		ShippingAddress: address(),
		PaymentMethod:   models.PaymentVisa,
		CardNumber:      "4111111111111111",
	}
}

func item(p *models.Product, qty int) services.OrderItemInput {
	return services.OrderItemInput{ProductID: p.ID.Hex(), Quantity: qty}
}

func validation(t *testing.T, err error) map[string]string {
	t.Helper()
	var ve *services.ValidationError
	require.True(t, errors.As(err, &ve), "want ValidationError, got %v", err)
	return ve.Fields
}
