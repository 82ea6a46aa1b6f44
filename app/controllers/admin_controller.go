package controllers

import (
	"fmt"
	"net/http"

	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/ctx"
)

type ReportController struct {
	reports *services.ReportService
}

// Index lists the available report kinds.
func (rc *ReportController) Index(c *ctx.Context) {
	c.Success(services.ReportKinds)
}

// Show GET /api/v1/admin/reports/{kind} streams the report as a PDF.
func (rc *ReportController) Show(c *ctx.Context) {
	kind := c.Param("kind")
	doc, err := rc.reports.Generate(c.Context(), kind)
	if err != nil {
		fail(c, err)
		return
	}
	c.Blob(http.StatusOK, "application/pdf", fmt.Sprintf("%s-report.pdf", kind), doc)
}

type OutboxController struct {
	outbox *services.OutboxService
}

func (oc *OutboxController) Index(c *ctx.Context) {
	p := page(c)
	list, total, err := oc.outbox.List(c.Context(), c.Query("status"), p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (oc *OutboxController) Resend(c *ctx.Context) {
	m, err := oc.outbox.Resend(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(m)
}

type InventoryController struct {
	stock *services.StockService
}

// Reconcile POST /api/v1/admin/inventory/reconcile[?productId=]
func (ic *InventoryController) Reconcile(c *ctx.Context) {
	if id := c.Query("productId"); id != "" {
		pid, err := services.ParseID(id, "product")
		if err != nil {
			fail(c, err)
			return
		}
		total, err := ic.stock.Reconcile(c.Context(), pid, services.TriggerManual)
		if err != nil {
			fail(c, err)
			return
		}
		c.Success(map[string]any{"productId": id, "totalStock": total})
		return
	}
	n, err := ic.stock.ReconcileAll(c.Context(), services.TriggerManual)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(map[string]int{"reconciled": n})
}
