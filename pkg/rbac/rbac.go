// Package rbac provides role-based access control middleware.
package rbac

import (
	"net/http"

	"github.com/pharmacare/pharmacare-api/pkg/middleware"
	"github.com/pharmacare/pharmacare-api/pkg/response"
)

// HasRole allows access only to users holding one of roles.
// AuthMiddleware must run first.
func HasRole(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role, ok := middleware.RoleFromCtx(r)
			if !ok {
				response.Unauthorized(w)
				return
			}
			if !allowed[role] {
				response.Forbidden(w)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
