// Package routes registers the /api/v1 surface on the router.
package routes

import (
	"net/http"

	"github.com/pharmacare/pharmacare-api/app/controllers"
	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/pkg/ctx"
	"github.com/pharmacare/pharmacare-api/pkg/middleware"
	"github.com/pharmacare/pharmacare-api/pkg/rbac"
	"github.com/pharmacare/pharmacare-api/pkg/router"
)

// Extras are the non-controller handlers mounted under /api/v1. Nil
// handlers are skipped.
type Extras struct {
	GraphQL http.HandlerFunc
	Alerts  http.HandlerFunc
}

func RegisterAPI(r *router.Router, c *controllers.Controllers, x Extras) {
	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", "auth.register", ctx.Wrap(c.Auth.Register))
	auth.Post("/login", "auth.login", ctx.Wrap(c.Auth.Login))
	auth.Post("/refresh", "auth.refresh", ctx.Wrap(c.Auth.Refresh))

	me := auth.Group("/me", middleware.AuthMiddleware)
	me.Get("", "auth.me", ctx.Wrap(c.Auth.Me))
	me.Put("", "auth.me.update", ctx.Wrap(c.Auth.UpdateMe))
	me.Post("/addresses", "auth.addresses.store", ctx.Wrap(c.Auth.AddAddress))
	me.Patch("/addresses/{addressId}/default", "auth.addresses.default", ctx.Wrap(c.Auth.SetDefaultAddress))
	me.Delete("/addresses/{addressId}", "auth.addresses.destroy", ctx.Wrap(c.Auth.RemoveAddress))

	// Public catalogue.
	api.Get("/products", "products.index", ctx.Wrap(c.Products.Index))
	api.Get("/products/{id}", "products.show", ctx.Wrap(c.Products.Show))
	api.Get("/products/{id}/feedback", "products.feedback", ctx.Wrap(c.Products.Feedback))
	if x.GraphQL != nil {
		api.Post("/graphql", "graphql", x.GraphQL)
	}

	user := api.Group("", middleware.AuthMiddleware)
	user.Post("/orders", "orders.store", ctx.Wrap(c.Orders.Store))
	user.Get("/orders", "orders.mine", ctx.Wrap(c.Orders.Mine))
	user.Get("/orders/{id}", "orders.show", ctx.Wrap(c.Orders.Show))
	user.Post("/orders/{id}/cancel", "orders.cancel", ctx.Wrap(c.Orders.Cancel))

	user.Post("/feedback", "feedback.store", ctx.Wrap(c.Feedback.Store))
	user.Get("/feedback", "feedback.mine", ctx.Wrap(c.Feedback.Mine))
	user.Delete("/feedback/{id}", "feedback.destroy", ctx.Wrap(c.Feedback.Destroy))

	user.Post("/support", "support.store", ctx.Wrap(c.Support.Store))
	user.Get("/support", "support.mine", ctx.Wrap(c.Support.Mine))
	user.Get("/support/{id}", "support.show", ctx.Wrap(c.Support.Show))

	user.Post("/prescriptions", "prescriptions.store", ctx.Wrap(c.Prescriptions.Store))
	user.Get("/prescriptions", "prescriptions.mine", ctx.Wrap(c.Prescriptions.Mine))
	user.Get("/prescriptions/{id}", "prescriptions.show", ctx.Wrap(c.Prescriptions.Show))

	staff := api.Group("/staff", middleware.AuthMiddleware,
		rbac.HasRole(models.RoleAdmin, models.RolePharmacy, models.RoleDoctor))
	staff.Get("/prescriptions", "staff.prescriptions.index", ctx.Wrap(c.Prescriptions.Index))
	staff.Patch("/prescriptions/{id}/review", "staff.prescriptions.review", ctx.Wrap(c.Prescriptions.Review))

	admin := api.Group("/admin", middleware.AuthMiddleware, rbac.HasRole(models.RoleAdmin))

	admin.Post("/products", "admin.products.store", ctx.Wrap(c.Products.Store))
	admin.Put("/products/{id}", "admin.products.update", ctx.Wrap(c.Products.Update))
	admin.Delete("/products/{id}", "admin.products.destroy", ctx.Wrap(c.Products.Destroy))
	admin.Post("/products/{id}/images", "admin.products.images", ctx.Wrap(c.Products.UploadImage))

	admin.Get("/batches", "admin.batches.index", ctx.Wrap(c.Batches.Index))
	admin.Post("/batches", "admin.batches.store", ctx.Wrap(c.Batches.Store))
	admin.Get("/batches/{id}", "admin.batches.show", ctx.Wrap(c.Batches.Show))
	admin.Put("/batches/{id}", "admin.batches.update", ctx.Wrap(c.Batches.Update))
	admin.Patch("/batches/{id}/stock", "admin.batches.stock", ctx.Wrap(c.Batches.AdjustStock))
	admin.Delete("/batches/{id}", "admin.batches.destroy", ctx.Wrap(c.Batches.Destroy))
	admin.Post("/inventory/reconcile", "admin.inventory.reconcile", ctx.Wrap(c.Inventory.Reconcile))

	admin.Get("/orders", "admin.orders.index", ctx.Wrap(c.Orders.Index))
	admin.Patch("/orders/{id}/status", "admin.orders.status", ctx.Wrap(c.Orders.UpdateStatus))

	admin.Get("/suppliers", "admin.suppliers.index", ctx.Wrap(c.Suppliers.Index))
	admin.Post("/suppliers", "admin.suppliers.store", ctx.Wrap(c.Suppliers.Store))
	admin.Get("/suppliers/{id}", "admin.suppliers.show", ctx.Wrap(c.Suppliers.Show))
	admin.Put("/suppliers/{id}", "admin.suppliers.update", ctx.Wrap(c.Suppliers.Update))
	admin.Delete("/suppliers/{id}", "admin.suppliers.destroy", ctx.Wrap(c.Suppliers.Destroy))
	admin.Post("/suppliers/{id}/restock-requests", "admin.suppliers.restock", ctx.Wrap(c.Suppliers.Restock))

	admin.Get("/users", "admin.users.index", ctx.Wrap(c.Users.Index))
	admin.Patch("/users/{id}/role", "admin.users.role", ctx.Wrap(c.Users.UpdateRole))
	admin.Delete("/users/{id}", "admin.users.destroy", ctx.Wrap(c.Users.Destroy))

	admin.Get("/feedback", "admin.feedback.index", ctx.Wrap(c.Feedback.Index))
	admin.Patch("/feedback/{id}", "admin.feedback.moderate", ctx.Wrap(c.Feedback.Moderate))

	admin.Get("/support", "admin.support.index", ctx.Wrap(c.Support.Index))
	admin.Patch("/support/{id}", "admin.support.respond", ctx.Wrap(c.Support.Respond))
	admin.Delete("/support/{id}", "admin.support.destroy", ctx.Wrap(c.Support.Destroy))

	admin.Get("/reports", "admin.reports.index", ctx.Wrap(c.Reports.Index))
	admin.Get("/reports/{kind}", "admin.reports.show", ctx.Wrap(c.Reports.Show))

	admin.Get("/outbox", "admin.outbox.index", ctx.Wrap(c.Outbox.Index))
	admin.Post("/outbox/{id}/resend", "admin.outbox.resend", ctx.Wrap(c.Outbox.Resend))

	if x.Alerts != nil {
		admin.Get("/ws/alerts", "admin.alerts", x.Alerts)
	}
}
