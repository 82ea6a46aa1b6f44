package middleware

import (
	"net/http"
	"strings"

	"github.com/pharmacare/pharmacare-api/pkg/auth"
	"github.com/pharmacare/pharmacare-api/pkg/response"
)

// AuthMiddleware requires a valid Bearer token and stores its claims on the
// request context. WebSocket handshakes may pass the token as ?token=
// since browsers cannot set headers on them.
func AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok && strings.EqualFold(r.Header.Get("Upgrade"), "websocket") {
			token, ok = r.URL.Query().Get("token"), true
		}
		if !ok || strings.TrimSpace(token) == "" {
			response.Error(w, http.StatusUnauthorized, "Missing bearer token")
			return
		}

		claims, err := auth.ValidateToken(strings.TrimSpace(token))
		if err != nil {
			response.Error(w, http.StatusUnauthorized, "Invalid token")
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

// UserIDFromCtx returns the authenticated user's id.
func UserIDFromCtx(r *http.Request) (string, bool) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return c.UserID, true
}

// RoleFromCtx returns the authenticated user's role.
func RoleFromCtx(r *http.Request) (string, bool) {
	c, ok := auth.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return c.Role, true
}
