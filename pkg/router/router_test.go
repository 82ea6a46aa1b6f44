package router_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pharmacare/pharmacare-api/pkg/router"
)

func ok(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) }

func TestGroupPrefixAndNamedRoutes(t *testing.T) {
	r := router.New()
	api := r.Group("/api/v1")
	api.Get("/batches/{id}", "batches.show", ok)
	api.Patch("/batches/{id}/stock", "batches.stock", ok)

	url, err := r.URL("batches.stock", map[string]string{"id": "42"})
	require.NoError(t, err)
	assert.Equal(t, "/api/v1/batches/42/stock", url)

	_, err = r.URL("batches.show", nil)
	assert.Error(t, err)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/api/v1/batches/42/stock", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestGroupMiddlewareOrder(t *testing.T) {
	var order []string
	mw := func(tag string) router.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, tag)
				next.ServeHTTP(w, r)
			})
		}
	}

	r := router.New()
	admin := r.Group("/api", mw("auth")).Group("/admin", mw("role"))
	admin.Delete("/users/{id}", "users.delete", ok, mw("route"))

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/admin/users/1", nil))
	assert.Equal(t, []string{"auth", "role", "route"}, order)
}

func TestRoutesListing(t *testing.T) {
	r := router.New()
	g := r.Group("/api/v1")
	g.Put("/products/{id}", "products.update", ok)
	g.Get("/products", "products.index", ok)

	routes := r.Routes()
	require.Len(t, routes, 2)
	assert.Equal(t, "/api/v1/products", routes[0].Path)
	assert.Equal(t, http.MethodPut, routes[1].Method)
}
