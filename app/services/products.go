package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/pkg/cache"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
	"github.com/pharmacare/pharmacare-api/pkg/storage"
)

const productCacheTTL = 10 * time.Minute

// ProductInput is the create/update body for products.
type ProductInput struct {
	Name                 string  `json:"name"                 validate:"required,max=200"`
	Brand                string  `json:"brand"                validate:"max=120"`
	Category             string  `json:"category"             validate:"required,oneof=medicine supplements equipment"`
	Price                float64 `json:"price"                validate:"required,gt=0"`
	Description          string  `json:"description"          validate:"max=5000"`
	RequiresPrescription bool    `json:"requiresPrescription"`
}

type ProductService struct {
	store *repositories.Store
	disk  storage.Disk
}

func (s *ProductService) Create(ctx context.Context, in ProductInput) (*models.Product, error) {
	p := &models.Product{Images: []string{}}
	in.apply(p)
	if err := s.store.Products.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (in ProductInput) apply(p *models.Product) {
	p.Name = in.Name
	p.Brand = in.Brand
	p.Category = in.Category
	p.Price = in.Price
	p.Description = in.Description
	p.RequiresPrescription = in.RequiresPrescription
}

// Get returns a product, served from the cache when possible.
func (s *ProductService) Get(ctx context.Context, id string) (*models.Product, error) {
	oid, err := ParseID(id, "product")
	if err != nil {
		return nil, err
	}
	p, err := cache.Remember(ctx, ProductCacheKey(oid), productCacheTTL, func() (*models.Product, error) {
		return s.store.Products.FindByID(ctx, oid)
	})
	if err != nil {
		return nil, found(err, "product")
	}
	return p, nil
}

func (s *ProductService) List(ctx context.Context, category, search string, p Page) ([]models.Product, int64, error) {
	return s.store.Products.List(ctx, repositories.ProductFilter{Category: category, Search: search, Page: p})
}

// Update replaces the editable fields. TotalStock is left to reconciliation.
func (s *ProductService) Update(ctx context.Context, id string, in ProductInput) (*models.Product, error) {
	oid, err := ParseID(id, "product")
	if err != nil {
		return nil, err
	}
	p, err := s.store.Products.FindByID(ctx, oid)
	if err != nil {
		return nil, found(err, "product")
	}
	in.apply(p)
	if err := s.store.Products.Update(ctx, p); err != nil {
		return nil, found(err, "product")
	}
	forget(ctx, oid)
	return s.fresh(ctx, oid)
}

// fresh rereads a product after a partial write so the caller sees the
// stock reconciliation last stored.
func (s *ProductService) fresh(ctx context.Context, id primitive.ObjectID) (*models.Product, error) {
	p, err := s.store.Products.FindByID(ctx, id)
	if err != nil {
		return nil, found(err, "product")
	}
	return p, nil
}

// Delete removes the product with its batches and drops it from supplier
// catalogues. Orders keep their item snapshots.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	oid, err := ParseID(id, "product")
	if err != nil {
		return err
	}
	p, err := s.store.Products.FindByID(ctx, oid)
	if err != nil {
		return found(err, "product")
	}

	err = s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.Batches.DeleteByProduct(ctx, oid); err != nil {
			return err
		}
		if err := s.store.Suppliers.PullProduct(ctx, oid); err != nil {
			return err
		}
		return s.store.Products.Delete(ctx, oid)
	})
	if err != nil {
		return found(err, "product")
	}
	forget(ctx, oid)

	if s.disk != nil {
		for _, img := range p.Images {
			if err := s.disk.Delete(ctx, img); err != nil {
				logger.WithCtx(ctx).Warn("products: image cleanup failed", "path", img, "error", err)
			}
		}
	}
	return nil
}

// AddImage stores an image and appends it to the product. The file is
// removed again when the product cannot be saved.
func (s *ProductService) AddImage(ctx context.Context, id string, up Upload) (*models.Product, error) {
	oid, err := ParseID(id, "product")
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Products.FindByID(ctx, oid); err != nil {
		return nil, found(err, "product")
	}

	name, cleanup, err := store(ctx, s.disk, "products", up, imageExts)
	if err != nil {
		return nil, err
	}
	saved := false
	defer func() {
		if !saved {
			cleanup()
		}
	}()

	if err := s.store.Products.AddImage(ctx, oid, name); err != nil {
		return nil, found(err, "product")
	}
	saved = true
	forget(ctx, oid)
	return s.fresh(ctx, oid)
}

// ImageURL resolves a stored image path to a public URL.
func (s *ProductService) ImageURL(path string) string {
	if s.disk == nil {
		return path
	}
	return s.disk.URL(path)
}
