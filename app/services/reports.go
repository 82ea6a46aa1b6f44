package services

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pharmacare/pharmacare-api/app/inventory"
	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/pkg/collection"
	"github.com/pharmacare/pharmacare-api/pkg/metrics"
	"github.com/pharmacare/pharmacare-api/pkg/pdf"
	"github.com/pharmacare/pharmacare-api/pkg/workerpool"
)

// Report kinds.
const (
	ReportCustomers     = "customers"
	ReportOrders        = "orders"
	ReportPrescriptions = "prescriptions"
	ReportFeedback      = "feedback"
	ReportInventory     = "inventory"
)

// ReportKinds lists every report in menu order.
var ReportKinds = []string{ReportCustomers, ReportOrders, ReportPrescriptions, ReportFeedback, ReportInventory}

type ReportService struct {
	store *repositories.Store
	pool  *workerpool.Pool
	now   func() time.Time
}

const dateFmt = "2006-01-02"

// Generate builds the named report on the report pool and returns the PDF
// bytes. workerpool.ErrPoolFull is returned when the pool is saturated.
func (s *ReportService) Generate(ctx context.Context, kind string) ([]byte, error) {
	build, ok := map[string]func(context.Context) (pdf.Table, error){
		ReportCustomers:     s.customers,
		ReportOrders:        s.orders,
		ReportPrescriptions: s.prescriptions,
		ReportFeedback:      s.feedback,
		ReportInventory:     s.inventory,
	}[kind]
	if !ok {
		return nil, notFound("report")
	}

	var buf bytes.Buffer
	err := s.pool.Do(ctx, func(ctx context.Context) error {
		t, err := build(ctx)
		if err != nil {
			return err
		}
		t.Generated = s.now()
		return pdf.Render(&buf, t)
	})
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.ReportsGenerated.WithLabelValues(kind, status).Inc()
	if err != nil {
		return nil, fmt.Errorf("reports: %s: %w", kind, err)
	}
	return buf.Bytes(), nil
}

func (s *ReportService) customers(ctx context.Context) (pdf.Table, error) {
	users, _, err := s.store.Users.List(ctx, repositories.UserFilter{Role: models.RoleUser})
	if err != nil {
		return pdf.Table{}, err
	}
	orders, _, err := s.store.Orders.List(ctx, repositories.OrderFilter{})
	if err != nil {
		return pdf.Table{}, err
	}
	byUser := collection.GroupBy(orders, func(o models.Order) string { return o.UserID.Hex() })

	rows := make([][]string, 0, len(users))
	for _, u := range users {
		placed := byUser[u.ID.Hex()]
		spent := decimal.Zero
		for _, o := range placed {
			if o.Status != models.OrderCancelled {
				spent = spent.Add(decimal.NewFromFloat(o.TotalAmount))
			}
		}
		rows = append(rows, []string{
			u.Name, u.Email, u.Phone,
			strconv.Itoa(len(placed)), spent.StringFixed(2),
			u.CreatedAt.Format(dateFmt),
		})
	}
	return pdf.Table{
		Title: "Customer report",
		Columns: []pdf.Column{
			{Header: "Name", Width: 2}, {Header: "Email", Width: 2.5}, {Header: "Phone", Width: 1.3},
			{Header: "Orders", Width: 0.8, Right: true}, {Header: "Spent", Width: 1, Right: true},
			{Header: "Joined", Width: 1},
		},
		Rows:    rows,
		Summary: []string{fmt.Sprintf("Customers: %d", len(users))},
	}, nil
}

func (s *ReportService) orders(ctx context.Context) (pdf.Table, error) {
	orders, _, err := s.store.Orders.List(ctx, repositories.OrderFilter{})
	if err != nil {
		return pdf.Table{}, err
	}
	users, _, err := s.store.Users.List(ctx, repositories.UserFilter{})
	if err != nil {
		return pdf.Table{}, err
	}
	names := collection.KeyBy(users, func(u models.User) string { return u.ID.Hex() })

	revenue := decimal.Zero
	rows := make([][]string, 0, len(orders))
	for _, o := range orders {
		customer := "(deleted user)"
		if u, ok := names[o.UserID.Hex()]; ok {
			customer = u.Name
		}
		units := 0
		for _, it := range o.Items {
			units += it.Quantity
		}
		if o.Status != models.OrderCancelled {
			revenue = revenue.Add(decimal.NewFromFloat(o.TotalAmount))
		}
		rows = append(rows, []string{
			o.ID.Hex(), customer, o.CreatedAt.Format(dateFmt),
			strconv.Itoa(units), money(o.TotalAmount), o.Status,
		})
	}
	return pdf.Table{
		Title: "Order report",
		Columns: []pdf.Column{
			{Header: "Order", Width: 2}, {Header: "Customer", Width: 2}, {Header: "Date", Width: 1},
			{Header: "Units", Width: 0.7, Right: true}, {Header: "Total", Width: 1, Right: true},
			{Header: "Status", Width: 1},
		},
		Rows: rows,
		Summary: []string{
			fmt.Sprintf("Orders: %d", len(orders)),
			"Revenue (excluding cancelled): " + revenue.StringFixed(2),
		},
	}, nil
}

func (s *ReportService) prescriptions(ctx context.Context) (pdf.Table, error) {
	list, _, err := s.store.Prescriptions.List(ctx, repositories.ModerationFilter{})
	if err != nil {
		return pdf.Table{}, err
	}
	rows := make([][]string, 0, len(list))
	for _, p := range list {
		reviewed := "-"
		if p.ReviewedAt != nil {
			reviewed = p.ReviewedAt.Format(dateFmt)
		}
		rows = append(rows, []string{p.PatientName, p.DoctorName, p.Status, p.CreatedAt.Format(dateFmt), reviewed, p.ReviewNote})
	}
	counts := collection.GroupBy(list, func(p models.Prescription) string { return p.Status })
	return pdf.Table{
		Title: "Prescription report",
		Columns: []pdf.Column{
			{Header: "Patient", Width: 2}, {Header: "Doctor", Width: 2}, {Header: "Status", Width: 1},
			{Header: "Uploaded", Width: 1}, {Header: "Reviewed", Width: 1}, {Header: "Note", Width: 3},
		},
		Rows: rows,
		Summary: []string{fmt.Sprintf("Pending: %d  Approved: %d  Rejected: %d",
			len(counts[models.StatusPending]), len(counts[models.StatusApproved]), len(counts[models.StatusRejected]))},
	}, nil
}

func (s *ReportService) feedback(ctx context.Context) (pdf.Table, error) {
	list, _, err := s.store.Feedback.List(ctx, repositories.ModerationFilter{})
	if err != nil {
		return pdf.Table{}, err
	}
	products, _, err := s.store.Products.List(ctx, repositories.ProductFilter{})
	if err != nil {
		return pdf.Table{}, err
	}
	names := collection.KeyBy(products, func(p models.Product) string { return p.ID.Hex() })

	rows := make([][]string, 0, len(list))
	for _, f := range list {
		product := "-"
		if f.ProductID != nil {
			product = "(deleted product)"
			if p, ok := names[f.ProductID.Hex()]; ok {
				product = p.Name
			}
		}
		rows = append(rows, []string{product, strconv.Itoa(f.Rating), f.Comment, f.Status, f.CreatedAt.Format(dateFmt)})
	}
	summary := []string{fmt.Sprintf("Entries: %d", len(list))}
	if len(list) > 0 {
		avg := collection.Sum(list, func(f models.Feedback) float64 { return float64(f.Rating) }) / float64(len(list))
		summary = append(summary, fmt.Sprintf("Average rating: %.2f", avg))
	}
	return pdf.Table{
		Title: "Feedback report",
		Columns: []pdf.Column{
			{Header: "Product", Width: 2}, {Header: "Rating", Width: 0.7, Right: true},
			{Header: "Comment", Width: 4}, {Header: "Status", Width: 1}, {Header: "Date", Width: 1},
		},
		Rows:    rows,
		Summary: summary,
	}, nil
}

func (s *ReportService) inventory(ctx context.Context) (pdf.Table, error) {
	products, _, err := s.store.Products.List(ctx, repositories.ProductFilter{})
	if err != nil {
		return pdf.Table{}, err
	}
	now := s.now()
	value := decimal.Zero
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		batches, err := s.store.Batches.ListByProduct(ctx, p.ID)
		if err != nil {
			return pdf.Table{}, err
		}
		sellable := collection.Filter(batches, func(b models.Batch) bool { return inventory.Sellable(&b, now) })
		next := "-"
		if len(sellable) > 0 {
			soonest := collection.SortBy(sellable, func(a, b models.Batch) bool { return a.ExpiryDate.Before(b.ExpiryDate) })[0]
			next = soonest.ExpiryDate.Format(dateFmt)
		}
		for _, b := range sellable {
			value = value.Add(decimal.NewFromFloat(b.CostPrice).Mul(decimal.NewFromInt(int64(b.RemainingQuantity))))
		}
		rows = append(rows, []string{
			p.Name, p.Brand, p.Category, money(p.Price),
			strconv.Itoa(p.TotalStock), strconv.Itoa(len(sellable)), next,
		})
	}
	return pdf.Table{
		Title:    "Inventory report",
		Subtitle: "Stock as of " + now.Format(dateFmt),
		Columns: []pdf.Column{
			{Header: "Product", Width: 2.5}, {Header: "Brand", Width: 1.5}, {Header: "Category", Width: 1.2},
			{Header: "Price", Width: 0.9, Right: true}, {Header: "Stock", Width: 0.8, Right: true},
			{Header: "Batches", Width: 0.8, Right: true}, {Header: "Next expiry", Width: 1.1},
		},
		Rows: rows,
		Summary: []string{
			fmt.Sprintf("Products: %d", len(products)),
			"Stock value at cost: " + value.StringFixed(2),
		},
	}, nil
}
