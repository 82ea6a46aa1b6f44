package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
)

type SupplierInput struct {
	Name          string `json:"name"          validate:"required,max=200"`
	Email         string `json:"email"         validate:"required,email"`
	Phone         string `json:"phone"         validate:"required,max=30"`
	Address       string `json:"address"       validate:"max=500"`
	ContactPerson string `json:"contactPerson" validate:"max=120"`
	Status        string `json:"status"        validate:"omitempty,oneof=active inactive"`
}

// RestockInput asks a supplier for more of a product.
type RestockInput struct {
	ProductID string `json:"productId" validate:"required,objectid"`
	Quantity  int    `json:"quantity"  validate:"required,min=1"`
	Message   string `json:"message"   validate:"max=2000"`
}

type SupplierService struct {
	store  *repositories.Store
	outbox *OutboxService
}

func (in SupplierInput) apply(s *models.Supplier) {
	s.Name = in.Name
	s.Email = in.Email
	s.Phone = in.Phone
	s.Address = in.Address
	s.ContactPerson = in.ContactPerson
	s.Status = in.Status
	if s.Status == "" {
		s.Status = models.SupplierActive
	}
}

func (s *SupplierService) Create(ctx context.Context, in SupplierInput) (*models.Supplier, error) {
	sup := &models.Supplier{Products: []primitive.ObjectID{}}
	in.apply(sup)
	if err := s.store.Suppliers.Create(ctx, sup); err != nil {
		return nil, duplicate(err, fmt.Sprintf("a supplier with email %s already exists", in.Email))
	}
	return sup, nil
}

func (s *SupplierService) Get(ctx context.Context, id string) (*models.Supplier, error) {
	oid, err := ParseID(id, "supplier")
	if err != nil {
		return nil, err
	}
	sup, err := s.store.Suppliers.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "supplier")
	}
	return sup, nil
}

func (s *SupplierService) List(ctx context.Context, status, search string, p Page) ([]models.Supplier, int64, error) {
	return s.store.Suppliers.List(ctx, repositories.SupplierFilter{Status: status, Search: search, Page: p})
}

func (s *SupplierService) Update(ctx context.Context, id string, in SupplierInput) (*models.Supplier, error) {
	sup, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	in.apply(sup)
	if err := s.store.Suppliers.Update(ctx, sup); err != nil {
		return nil, duplicate(found(err, "supplier"), fmt.Sprintf("a supplier with email %s already exists", in.Email))
	}
	// reread: batches created meanwhile may have linked more products
	return s.Get(ctx, id)
}

// Delete removes the supplier. Its batches keep their supplier reference.
func (s *SupplierService) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id, "supplier")
	if err != nil {
		return err
	}
	return found(s.store.Suppliers.Delete(ctx, oid), "supplier")
}

// RequestRestock emails the supplier a restock request.
func (s *SupplierService) RequestRestock(ctx context.Context, id string, in RestockInput) (*models.OutboxMessage, error) {
	sup, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if sup.Status != models.SupplierActive {
		return nil, invalid("supplier", "The supplier is inactive.")
	}
	pid, _ := primitive.ObjectIDFromHex(in.ProductID)
	p, err := s.store.Products.FindByID(ctx, pid)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, invalid("productId", "The selected product does not exist.")
		}
		return nil, err
	}

	body, err := render(tmplRestockRequest, map[string]any{
		"Supplier": sup, "Product": p, "Quantity": in.Quantity, "Message": in.Message,
	})
	if err != nil {
		return nil, err
	}
	subject := fmt.Sprintf("Restock request: %s x%d", p.Name, in.Quantity)
	return s.outbox.Enqueue(ctx, models.MailRestockRequest, []string{sup.Email}, subject, body)
}
