// Package repositories defines the persistence contracts used by services
// and their MongoDB implementations. The in-memory implementations live in
// repositories/memory.
package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Page selects a slice of a result set. Limit 0 means everything.
type Page struct {
	Page  int64
	Limit int64
}

// Offset returns the number of documents to skip.
func (p Page) Offset() int64 {
	if p.Limit <= 0 || p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

type ProductFilter struct {
	Category string
	Search   string // case-insensitive match on name or brand
	Page
}

type BatchFilter struct {
	ProductID  *primitive.ObjectID
	SupplierID *primitive.ObjectID
	Status     string
	Page
}

type OrderFilter struct {
	UserID *primitive.ObjectID
	Status string
	Page
}

type SupplierFilter struct {
	Status string
	Search string
	Page
}

type UserFilter struct {
	Role string
	Page
}

// ModerationFilter filters feedback, support tickets and prescriptions.
type ModerationFilter struct {
	UserID    *primitive.ObjectID
	ProductID *primitive.ObjectID
	Status    string
	Page
}

type OutboxFilter struct {
	Status string
	Page
}

type ProductRepository interface {
	Create(ctx context.Context, p *models.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Product, error)
	List(ctx context.Context, f ProductFilter) ([]models.Product, int64, error)
	// Update writes the catalogue fields of p. Images and totalStock are
	// owned by AddImage and SetTotalStock.
	Update(ctx context.Context, p *models.Product) error
	AddImage(ctx context.Context, id primitive.ObjectID, path string) error
	SetTotalStock(ctx context.Context, id primitive.ObjectID, total int) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	IDs(ctx context.Context) ([]primitive.ObjectID, error)
}

type BatchRepository interface {
	Create(ctx context.Context, b *models.Batch) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Batch, error)
	ListByProduct(ctx context.Context, productID primitive.ObjectID) ([]models.Batch, error)
	List(ctx context.Context, f BatchFilter) ([]models.Batch, int64, error)
	Update(ctx context.Context, b *models.Batch) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByProduct(ctx context.Context, productID primitive.ObjectID) (int64, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Order, error)
	List(ctx context.Context, f OrderFilter) ([]models.Order, int64, error)
	Update(ctx context.Context, o *models.Order) error
	// Reserving returns orders that still hold stock of productID.
	Reserving(ctx context.Context, productID primitive.ObjectID) ([]models.Order, error)
}

type SupplierRepository interface {
	Create(ctx context.Context, s *models.Supplier) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Supplier, error)
	List(ctx context.Context, f SupplierFilter) ([]models.Supplier, int64, error)
	// Update writes the contact fields and status; the product list is
	// changed only through AddProduct and PullProduct.
	Update(ctx context.Context, s *models.Supplier) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddProduct(ctx context.Context, id, productID primitive.ObjectID) error
	PullProduct(ctx context.Context, productID primitive.ObjectID) error
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, f UserFilter) ([]models.User, int64, error)
	Update(ctx context.Context, u *models.User) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type FeedbackRepository interface {
	Create(ctx context.Context, f *models.Feedback) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Feedback, error)
	List(ctx context.Context, f ModerationFilter) ([]models.Feedback, int64, error)
	Update(ctx context.Context, f *models.Feedback) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type SupportRepository interface {
	Create(ctx context.Context, s *models.Support) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Support, error)
	List(ctx context.Context, f ModerationFilter) ([]models.Support, int64, error)
	Update(ctx context.Context, s *models.Support) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *models.Prescription) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Prescription, error)
	List(ctx context.Context, f ModerationFilter) ([]models.Prescription, int64, error)
	Update(ctx context.Context, p *models.Prescription) error
}

type OutboxRepository interface {
	Create(ctx context.Context, m *models.OutboxMessage) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.OutboxMessage, error)
	List(ctx context.Context, f OutboxFilter) ([]models.OutboxMessage, int64, error)
	Update(ctx context.Context, m *models.OutboxMessage) error
	// Stale returns pending messages last touched before cutoff.
	Stale(ctx context.Context, cutoff time.Time, limit int64) ([]models.OutboxMessage, error)
}

// TxManager runs fn as one unit of work. Repository calls made with the
// ctx passed to fn take part in the transaction.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles every repository behind one backend.
type Store struct {
	Products      ProductRepository
	Batches       BatchRepository
	Orders        OrderRepository
	Suppliers     SupplierRepository
	Users         UserRepository
	Feedback      FeedbackRepository
	Support       SupportRepository
	Prescriptions PrescriptionRepository
	Outbox        OutboxRepository
	Tx            TxManager
}

// Now is the timestamp written to createdAt and updatedAt.
func Now() time.Time { return time.Now().UTC() }

// Stamp sets created on first save and updated on every save.
func Stamp(created, updated *time.Time) {
	now := Now()
	if created.IsZero() {
		*created = now
	}
	*updated = now
}
