package controllers

import (
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/ctx"
)

type BatchController struct {
	batches *services.BatchService
}

// Index GET /api/v1/admin/batches?productId=&supplierId=&status=
func (bc *BatchController) Index(c *ctx.Context) {
	p := page(c)
	list, total, err := bc.batches.List(c.Context(), c.Query("productId"), c.Query("supplierId"), c.Query("status"), p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (bc *BatchController) Show(c *ctx.Context) {
	b, err := bc.batches.Get(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(b)
}

func (bc *BatchController) Store(c *ctx.Context) {
	var in services.BatchInput
	if !c.BindJSON(&in) {
		return
	}
	b, err := bc.batches.Create(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(b)
}

func (bc *BatchController) Update(c *ctx.Context) {
	var in services.BatchUpdate
	if !c.BindJSON(&in) {
		return
	}
	b, err := bc.batches.Update(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(b)
}

// AdjustStock PATCH /api/v1/admin/batches/{id}/stock
func (bc *BatchController) AdjustStock(c *ctx.Context) {
	var in services.StockAdjustment
	if !c.BindJSON(&in) {
		return
	}
	b, err := bc.batches.AdjustStock(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(b)
}

func (bc *BatchController) Destroy(c *ctx.Context) {
	if err := bc.batches.Delete(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Message("Batch deleted")
}
