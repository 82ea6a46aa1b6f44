package seeders

import (
	"context"
	"errors"
	"time"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/config"
)

func init() {
	Register("users", seedUsers)
	Register("catalog", seedCatalog)
}

// seedUsers creates the admin account named by ADMIN_EMAIL. An existing
// account is left as is.
func seedUsers(ctx context.Context, svc *services.Services) error {
	tokens, err := svc.Auth.Register(ctx, services.RegisterInput{
		Name:     "Administrator",
		Email:    config.AdminEmail(),
		Password: config.Get("ADMIN_PASSWORD", "change-me-now"),
	})
	if errors.Is(err, services.ErrConflict) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = svc.Users.SetRole(ctx, tokens.User.ID.Hex(), models.RoleAdmin)
	return err
}

type seedBatch struct {
	number   string
	mfg, exp time.Time
	qty      int
	cost     float64
}

type seedProduct struct {
	in      services.ProductInput
	batches []seedBatch
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// seedCatalog adds a supplier and a small catalogue with stock. It is a
// no-op once any product exists.
func seedCatalog(ctx context.Context, svc *services.Services) error {
	_, total, err := svc.Products.List(ctx, "", "", services.NewPage(1, 1))
	if err != nil || total > 0 {
		return err
	}

	sup, err := svc.Suppliers.Create(ctx, services.SupplierInput{
		Name:          "MedSupply Wholesale",
		Email:         "orders@medsupply.example",
		Phone:         "+1 555 0100",
		ContactPerson: "Dana Reyes",
		Status:        models.SupplierActive,
	})
	if err != nil {
		return err
	}

	year := time.Now().UTC().Year()
	catalog := []seedProduct{
		{
			in: services.ProductInput{Name: "Paracetamol 500mg", Brand: "Panadol", Category: models.CategoryMedicine, Price: 3.49},
			batches: []seedBatch{
				{"PCM-001", date(year-1, 1, 10), date(year+1, 1, 10), 200, 1.2},
				{"PCM-002", date(year, 2, 1), date(year+2, 2, 1), 150, 1.25},
			},
		},
		{
			in:      services.ProductInput{Name: "Amoxicillin 250mg", Brand: "Amoxil", Category: models.CategoryMedicine, Price: 8.99, RequiresPrescription: true},
			batches: []seedBatch{{"AMX-001", date(year-1, 6, 1), date(year+1, 6, 1), 80, 4.1}},
		},
		{
			in:      services.ProductInput{Name: "Vitamin D3 1000IU", Brand: "Nature Made", Category: models.CategorySupplements, Price: 11.5},
			batches: []seedBatch{{"VD3-001", date(year, 1, 5), date(year+2, 1, 5), 120, 5}},
		},
		{
			in:      services.ProductInput{Name: "Digital Thermometer", Brand: "Braun", Category: models.CategoryEquipment, Price: 24.99},
			batches: []seedBatch{{"THM-001", date(year-1, 3, 3), date(year+4, 3, 3), 40, 12}},
		},
	}

	for _, sp := range catalog {
		p, err := svc.Products.Create(ctx, sp.in)
		if err != nil {
			return err
		}
		for _, b := range sp.batches {
			_, err := svc.Batches.Create(ctx, services.BatchInput{
				ProductID:         p.ID.Hex(),
				SupplierID:        sup.ID.Hex(),
				BatchNumber:       b.number,
				ManufacturingDate: b.mfg.Format(time.DateOnly),
				ExpiryDate:        b.exp.Format(time.DateOnly),
				Quantity:          b.qty,
				CostPrice:         b.cost,
				SellingPrice:      sp.in.Price,
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
