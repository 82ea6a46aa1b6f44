package memory

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/inventory"
	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/pkg/collection"
)

// NewStore returns a Store whose repositories share one transaction
// manager.
func NewStore() *repositories.Store {
	products := newTable(func(p *models.Product) primitive.ObjectID { return p.ID }, nil)
	batches := newTable(func(b *models.Batch) primitive.ObjectID { return b.ID },
		func(b *models.Batch) []string { return []string{"batchNumber:" + b.BatchNumber} })
	orders := newTable(func(o *models.Order) primitive.ObjectID { return o.ID }, nil)
	suppliers := newTable(func(s *models.Supplier) primitive.ObjectID { return s.ID },
		func(s *models.Supplier) []string { return []string{"email:" + strings.ToLower(s.Email)} })
	users := newTable(func(u *models.User) primitive.ObjectID { return u.ID },
		func(u *models.User) []string { return []string{"email:" + strings.ToLower(u.Email)} })
	feedback := newTable(func(f *models.Feedback) primitive.ObjectID { return f.ID }, nil)
	support := newTable(func(s *models.Support) primitive.ObjectID { return s.ID }, nil)
	prescriptions := newTable(func(p *models.Prescription) primitive.ObjectID { return p.ID }, nil)
	outbox := newTable(func(m *models.OutboxMessage) primitive.ObjectID { return m.ID }, nil)

	return &repositories.Store{
		Products:      &Products{products},
		Batches:       &Batches{batches},
		Orders:        &Orders{orders},
		Suppliers:     &Suppliers{suppliers},
		Users:         &Users{users},
		Feedback:      &Feedback{feedback},
		Support:       &Support{support},
		Prescriptions: &Prescriptions{prescriptions},
		Outbox:        &Outbox{outbox},
		Tx: &Tx{tables: []snapshotter{
			products, batches, orders, suppliers, users, feedback, support, prescriptions, outbox,
		}},
	}
}

func paginate[T any](items []T, p repositories.Page) ([]T, int64) {
	total := int64(len(items))
	page := collection.Paginate(items, int(p.Page), int(p.Limit))
	if page == nil {
		page = []T{}
	}
	return page, total
}

func contains(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func newestFirst[T any](items []T, created func(T) time.Time) []T {
	// scan yields insertion order; reversing it first keeps ties newest first.
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return collection.SortBy(items, func(a, b T) bool { return created(a).After(created(b)) })
}

func idOrNew(id *primitive.ObjectID) {
	if id.IsZero() {
		*id = primitive.NewObjectID()
	}
}

type Products struct{ t *table[models.Product] }

func (r *Products) Create(_ context.Context, p *models.Product) error {
	idOrNew(&p.ID)
	repositories.Stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.t.insert(p)
}

func (r *Products) FindByID(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	return r.t.get(id)
}

func (r *Products) List(_ context.Context, f repositories.ProductFilter) ([]models.Product, int64, error) {
	items, err := r.t.scan(func(p *models.Product) bool {
		if f.Category != "" && p.Category != f.Category {
			return false
		}
		return f.Search == "" || contains(p.Name, f.Search) || contains(p.Brand, f.Search)
	})
	if err != nil {
		return nil, 0, err
	}
	items = newestFirst(items, func(p models.Product) time.Time { return p.CreatedAt })
	page, total := paginate(items, f.Page)
	return page, total, nil
}

func (r *Products) Update(_ context.Context, p *models.Product) error {
	repositories.Stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.t.mutate(p.ID, func(cur *models.Product) {
		cur.Name = p.Name
		cur.Brand = p.Brand
		cur.Category = p.Category
		cur.Price = p.Price
		cur.Description = p.Description
		cur.RequiresPrescription = p.RequiresPrescription
		cur.UpdatedAt = p.UpdatedAt
	})
}

func (r *Products) AddImage(_ context.Context, id primitive.ObjectID, path string) error {
	return r.t.mutate(id, func(p *models.Product) {
		p.Images = append(p.Images, path)
		p.UpdatedAt = repositories.Now()
	})
}

func (r *Products) SetTotalStock(_ context.Context, id primitive.ObjectID, total int) error {
	return r.t.mutate(id, func(p *models.Product) { p.TotalStock = total })
}

func (r *Products) Delete(_ context.Context, id primitive.ObjectID) error { return r.t.remove(id) }

func (r *Products) IDs(_ context.Context) ([]primitive.ObjectID, error) {
	items, err := r.t.scan(nil)
	if err != nil {
		return nil, err
	}
	return collection.Map(items, func(p models.Product) primitive.ObjectID { return p.ID }), nil
}

type Batches struct{ t *table[models.Batch] }

func (r *Batches) Create(_ context.Context, b *models.Batch) error {
	idOrNew(&b.ID)
	repositories.Stamp(&b.CreatedAt, &b.UpdatedAt)
	return r.t.insert(b)
}

func (r *Batches) FindByID(_ context.Context, id primitive.ObjectID) (*models.Batch, error) {
	return r.t.get(id)
}

func (r *Batches) ListByProduct(_ context.Context, productID primitive.ObjectID) ([]models.Batch, error) {
	items, err := r.t.scan(func(b *models.Batch) bool { return b.ProductID == productID })
	if err != nil {
		return nil, err
	}
	return collection.SortBy(items, func(a, b models.Batch) bool {
		return a.ManufacturingDate.Before(b.ManufacturingDate)
	}), nil
}

func (r *Batches) List(_ context.Context, f repositories.BatchFilter) ([]models.Batch, int64, error) {
	items, err := r.t.scan(func(b *models.Batch) bool {
		if f.ProductID != nil && b.ProductID != *f.ProductID {
			return false
		}
		if f.SupplierID != nil && b.SupplierID != *f.SupplierID {
			return false
		}
		return f.Status == "" || b.Status == f.Status
	})
	if err != nil {
		return nil, 0, err
	}
	collection.SortBy(items, func(a, b models.Batch) bool { return a.ExpiryDate.Before(b.ExpiryDate) })
	page, total := paginate(items, f.Page)
	return page, total, nil
}

func (r *Batches) Update(_ context.Context, b *models.Batch) error {
	repositories.Stamp(&b.CreatedAt, &b.UpdatedAt)
	return r.t.put(b)
}

func (r *Batches) Delete(_ context.Context, id primitive.ObjectID) error { return r.t.remove(id) }

func (r *Batches) DeleteByProduct(ctx context.Context, productID primitive.ObjectID) (int64, error) {
	items, err := r.ListByProduct(ctx, productID)
	if err != nil {
		return 0, err
	}
	for _, b := range items {
		if err := r.t.remove(b.ID); err != nil {
			return 0, err
		}
	}
	return int64(len(items)), nil
}

type Orders struct{ t *table[models.Order] }

func (r *Orders) Create(_ context.Context, o *models.Order) error {
	idOrNew(&o.ID)
	repositories.Stamp(&o.CreatedAt, &o.UpdatedAt)
	return r.t.insert(o)
}

func (r *Orders) FindByID(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	return r.t.get(id)
}

func (r *Orders) List(_ context.Context, f repositories.OrderFilter) ([]models.Order, int64, error) {
	items, err := r.t.scan(func(o *models.Order) bool {
		if f.UserID != nil && o.UserID != *f.UserID {
			return false
		}
		return f.Status == "" || o.Status == f.Status
	})
	if err != nil {
		return nil, 0, err
	}
	items = newestFirst(items, func(o models.Order) time.Time { return o.CreatedAt })
	page, total := paginate(items, f.Page)
	return page, total, nil
}

func (r *Orders) Update(_ context.Context, o *models.Order) error {
	repositories.Stamp(&o.CreatedAt, &o.UpdatedAt)
	return r.t.put(o)
}

func (r *Orders) Reserving(_ context.Context, productID primitive.ObjectID) ([]models.Order, error) {
	return r.t.scan(func(o *models.Order) bool {
		return !o.StockConsumed && inventory.Reserved([]models.Order{*o}, productID) > 0
	})
}

type Suppliers struct{ t *table[models.Supplier] }

func (r *Suppliers) Create(_ context.Context, s *models.Supplier) error {
	idOrNew(&s.ID)
	if s.Products == nil {
		s.Products = []primitive.ObjectID{}
	}
	repositories.Stamp(&s.CreatedAt, &s.UpdatedAt)
	return r.t.insert(s)
}

func (r *Suppliers) FindByID(_ context.Context, id primitive.ObjectID) (*models.Supplier, error) {
	return r.t.get(id)
}

func (r *Suppliers) List(_ context.Context, f repositories.SupplierFilter) ([]models.Supplier, int64, error) {
	items, err := r.t.scan(func(s *models.Supplier) bool {
		if f.Status != "" && s.Status != f.Status {
			return false
		}
		return f.Search == "" || contains(s.Name, f.Search) || contains(s.Email, f.Search)
	})
	if err != nil {
		return nil, 0, err
	}
	collection.SortBy(items, func(a, b models.Supplier) bool { return a.Name < b.Name })
	page, total := paginate(items, f.Page)
	return page, total, nil
}

func (r *Suppliers) Update(_ context.Context, s *models.Supplier) error {
	repositories.Stamp(&s.CreatedAt, &s.UpdatedAt)
	return r.t.mutate(s.ID, func(cur *models.Supplier) {
		cur.Name = s.Name
		cur.Email = s.Email
		cur.Phone = s.Phone
		cur.Address = s.Address
		cur.ContactPerson = s.ContactPerson
		cur.Status = s.Status
		cur.UpdatedAt = s.UpdatedAt
	})
}

func (r *Suppliers) Delete(_ context.Context, id primitive.ObjectID) error { return r.t.remove(id) }

func (r *Suppliers) AddProduct(_ context.Context, id, productID primitive.ObjectID) error {
	return r.t.mutate(id, func(s *models.Supplier) {
		for _, p := range s.Products {
			if p == productID {
				return
			}
		}
		s.Products = append(s.Products, productID)
	})
}

func (r *Suppliers) PullProduct(_ context.Context, productID primitive.ObjectID) error {
	items, err := r.t.scan(func(s *models.Supplier) bool {
		for _, p := range s.Products {
			if p == productID {
				return true
			}
		}
		return false
	})
	if err != nil {
		return err
	}
	for _, s := range items {
		err := r.t.mutate(s.ID, func(s *models.Supplier) {
			s.Products = collection.Filter(s.Products, func(p primitive.ObjectID) bool { return p != productID })
			if s.Products == nil {
				s.Products = []primitive.ObjectID{}
			}
		})
		if err != nil {
			return err
		}
	}
	return nil
}

type Users struct{ t *table[models.User] }

func (r *Users) Create(_ context.Context, u *models.User) error {
	idOrNew(&u.ID)
	if u.Addresses == nil {
		u.Addresses = []models.Address{}
	}
	u.Email = strings.ToLower(u.Email)
	repositories.Stamp(&u.CreatedAt, &u.UpdatedAt)
	return r.t.insert(u)
}

func (r *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.t.get(id)
}

func (r *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	email = strings.ToLower(email)
	items, err := r.t.scan(func(u *models.User) bool { return u.Email == email })
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, repositories.ErrNotFound
	}
	return &items[0], nil
}

func (r *Users) List(_ context.Context, f repositories.UserFilter) ([]models.User, int64, error) {
	items, err := r.t.scan(func(u *models.User) bool { return f.Role == "" || u.Role == f.Role })
	if err != nil {
		return nil, 0, err
	}
	items = newestFirst(items, func(u models.User) time.Time { return u.CreatedAt })
	page, total := paginate(items, f.Page)
	return page, total, nil
}

func (r *Users) Update(_ context.Context, u *models.User) error {
	u.Email = strings.ToLower(u.Email)
	repositories.Stamp(&u.CreatedAt, &u.UpdatedAt)
	return r.t.put(u)
}

func (r *Users) Delete(_ context.Context, id primitive.ObjectID) error { return r.t.remove(id) }

func matchModeration(f repositories.ModerationFilter, userID primitive.ObjectID, productID *primitive.ObjectID, status string) bool {
	if f.UserID != nil && userID != *f.UserID {
		return false
	}
	if f.ProductID != nil && (productID == nil || *productID != *f.ProductID) {
		return false
	}
	return f.Status == "" || status == f.Status
}

type Feedback struct{ t *table[models.Feedback] }

func (r *Feedback) Create(_ context.Context, f *models.Feedback) error {
	idOrNew(&f.ID)
	repositories.Stamp(&f.CreatedAt, &f.UpdatedAt)
	return r.t.insert(f)
}

func (r *Feedback) FindByID(_ context.Context, id primitive.ObjectID) (*models.Feedback, error) {
	return r.t.get(id)
}

func (r *Feedback) List(_ context.Context, f repositories.ModerationFilter) ([]models.Feedback, int64, error) {
	items, err := r.t.scan(func(fb *models.Feedback) bool {
		return matchModeration(f, fb.UserID, fb.ProductID, fb.Status)
	})
	if err != nil {
		return nil, 0, err
	}
	items = newestFirst(items, func(fb models.Feedback) time.Time { return fb.CreatedAt })
	page, total := paginate(items, f.Page)
	return page, total, nil
}

func (r *Feedback) Update(_ context.Context, f *models.Feedback) error {
	repositories.Stamp(&f.CreatedAt, &f.UpdatedAt)
	return r.t.put(f)
}

func (r *Feedback) Delete(_ context.Context, id primitive.ObjectID) error { return r.t.remove(id) }

type Support struct{ t *table[models.Support] }

func (r *Support) Create(_ context.Context, s *models.Support) error {
	idOrNew(&s.ID)
	repositories.Stamp(&s.CreatedAt, &s.UpdatedAt)
	return r.t.insert(s)
}

func (r *Support) FindByID(_ context.Context, id primitive.ObjectID) (*models.Support, error) {
	return r.t.get(id)
}

func (r *Support) List(_ context.Context, f repositories.ModerationFilter) ([]models.Support, int64, error) {
	items, err := r.t.scan(func(s *models.Support) bool {
		return matchModeration(f, s.UserID, nil, s.Status)
	})
	if err != nil {
		return nil, 0, err
	}
	items = newestFirst(items, func(s models.Support) time.Time { return s.CreatedAt })
	page, total := paginate(items, f.Page)
	return page, total, nil
}

func (r *Support) Update(_ context.Context, s *models.Support) error {
	repositories.Stamp(&s.CreatedAt, &s.UpdatedAt)
	return r.t.put(s)
}

func (r *Support) Delete(_ context.Context, id primitive.ObjectID) error { return r.t.remove(id) }

type Prescriptions struct{ t *table[models.Prescription] }

func (r *Prescriptions) Create(_ context.Context, p *models.Prescription) error {
	idOrNew(&p.ID)
	repositories.Stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.t.insert(p)
}

func (r *Prescriptions) FindByID(_ context.Context, id primitive.ObjectID) (*models.Prescription, error) {
	return r.t.get(id)
}

func (r *Prescriptions) List(_ context.Context, f repositories.ModerationFilter) ([]models.Prescription, int64, error) {
	items, err := r.t.scan(func(p *models.Prescription) bool {
		return matchModeration(f, p.UserID, nil, p.Status)
	})
	if err != nil {
		return nil, 0, err
	}
	items = newestFirst(items, func(p models.Prescription) time.Time { return p.CreatedAt })
	page, total := paginate(items, f.Page)
	return page, total, nil
}

func (r *Prescriptions) Update(_ context.Context, p *models.Prescription) error {
	repositories.Stamp(&p.CreatedAt, &p.UpdatedAt)
	return r.t.put(p)
}

type Outbox struct{ t *table[models.OutboxMessage] }

func (r *Outbox) Create(_ context.Context, m *models.OutboxMessage) error {
	idOrNew(&m.ID)
	repositories.Stamp(&m.CreatedAt, &m.UpdatedAt)
	return r.t.insert(m)
}

func (r *Outbox) FindByID(_ context.Context, id primitive.ObjectID) (*models.OutboxMessage, error) {
	return r.t.get(id)
}

func (r *Outbox) List(_ context.Context, f repositories.OutboxFilter) ([]models.OutboxMessage, int64, error) {
	items, err := r.t.scan(func(m *models.OutboxMessage) bool { return f.Status == "" || m.Status == f.Status })
	if err != nil {
		return nil, 0, err
	}
	items = newestFirst(items, func(m models.OutboxMessage) time.Time { return m.CreatedAt })
	page, total := paginate(items, f.Page)
	return page, total, nil
}

func (r *Outbox) Update(_ context.Context, m *models.OutboxMessage) error {
	repositories.Stamp(&m.CreatedAt, &m.UpdatedAt)
	return r.t.put(m)
}

func (r *Outbox) Stale(_ context.Context, cutoff time.Time, limit int64) ([]models.OutboxMessage, error) {
	items, err := r.t.scan(func(m *models.OutboxMessage) bool {
		return m.Status == models.OutboxPending && m.UpdatedAt.Before(cutoff)
	})
	if err != nil {
		return nil, err
	}
	collection.SortBy(items, func(a, b models.OutboxMessage) bool { return a.UpdatedAt.Before(b.UpdatedAt) })
	if limit > 0 && int64(len(items)) > limit {
		items = items[:limit]
	}
	return items, nil
}
