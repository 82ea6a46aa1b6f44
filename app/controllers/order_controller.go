package controllers

import (
	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/pkg/ctx"
)

type OrderController struct {
	orders *services.OrderService
}

// Store POST /api/v1/orders
func (oc *OrderController) Store(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	var in services.OrderInput
	if !c.BindJSON(&in) {
		return
	}
	o, err := oc.orders.Create(c.Context(), who.UserID, in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Created(o)
}

// Mine GET /api/v1/orders
func (oc *OrderController) Mine(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	p := page(c)
	list, total, err := oc.orders.ListForUser(c.Context(), who.UserID, p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

func (oc *OrderController) Show(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	o, err := oc.orders.Get(c.Context(), c.Param("id"), who)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(o)
}

func (oc *OrderController) Cancel(c *ctx.Context) {
	who, ok := caller(c)
	if !ok {
		return
	}
	o, err := oc.orders.Cancel(c.Context(), c.Param("id"), who)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(o)
}

// Index GET /api/v1/admin/orders?status=&userId=
func (oc *OrderController) Index(c *ctx.Context) {
	p := page(c)
	list, total, err := oc.orders.List(c.Context(), c.Query("status"), c.Query("userId"), p)
	if err != nil {
		fail(c, err)
		return
	}
	paginated(c, list, total, p)
}

// UpdateStatus PATCH /api/v1/admin/orders/{id}/status
//
//	{"status": "shipped", "updateStock": true}
func (oc *OrderController) UpdateStatus(c *ctx.Context) {
	var in services.StatusInput
	if !c.BindJSON(&in) {
		return
	}
	o, err := oc.orders.UpdateStatus(c.Context(), c.Param("id"), in)
	if err != nil {
		fail(c, err)
		return
	}
	c.Success(o)
}
