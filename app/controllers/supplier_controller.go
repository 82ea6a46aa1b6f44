package controllers

import (
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/ctx"
)

type SupplierController struct {
	suppliers *services.SupplierService
}

func (sc *SupplierController) Index(c *ctx.Context) {
	p := page(c)
	list, total, err := sc.suppliers.List(c.Context(), c.Query("status"), c.Query("search"), p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (sc *SupplierController) Show(c *ctx.Context) {
	s, err := sc.suppliers.Get(c.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(s)
}

func (sc *SupplierController) Store(c *ctx.Context) {
	var in services.SupplierInput
	if !c.BindJSON(&in) {
		return
	}
	s, err := sc.suppliers.Create(c.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(s)
}

func (sc *SupplierController) Update(c *ctx.Context) {
	var in services.SupplierInput
	if !c.BindJSON(&in) {
		return
	}
	s, err := sc.suppliers.Update(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(s)
}

func (sc *SupplierController) Destroy(c *ctx.Context) {
	if err := sc.suppliers.Delete(c.Context(), c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	c.Message("Supplier deleted")
}

// Restock POST /api/v1/admin/suppliers/{id}/restock-requests
func (sc *SupplierController) Restock(c *ctx.Context) {
	var in services.RestockInput
	if !c.BindJSON(&in) {
		return
	}
	m, err := sc.suppliers.RequestRestock(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(m)
}
