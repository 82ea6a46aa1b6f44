package middleware

import (
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/pharmacare/pharmacare-api/config"
)

// CORSOptions configures the CORS middleware.
type CORSOptions struct {
	AllowedOrigins []string // exact origins, or "*"
	AllowedMethods []string
	AllowedHeaders []string
	// ExposedHeaders are readable by browser scripts, e.g. the report
	// filename in Content-Disposition.
	ExposedHeaders []string
	MaxAge         int // preflight cache, seconds
}

// CORSFromConfig builds the storefront/admin SPA policy from
// CORS_ALLOWED_ORIGINS.
func CORSFromConfig() CORSOptions {
	return CORSOptions{
		AllowedOrigins: config.CORSOrigins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"Content-Disposition", "X-Request-ID", "Retry-After"},
		MaxAge:         600,
	}
}

func (o CORSOptions) wildcard() bool { return slices.Contains(o.AllowedOrigins, "*") }

// Allows reports whether origin may access the API.
func (o CORSOptions) Allows(origin string) bool {
	return origin != "" && (o.wildcard() || slices.Contains(o.AllowedOrigins, strings.TrimRight(origin, "/")))
}

// CheckOrigin is the WebSocket handshake form of Allows. Requests without
// an Origin header come from non-browser clients and are accepted.
func (o CORSOptions) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || o.Allows(origin)
}

// CORS returns a middleware that adds Cross-Origin Resource Sharing headers.
func CORS(opts CORSOptions) func(http.Handler) http.Handler {
	methods := strings.Join(opts.AllowedMethods, ", ")
	headers := strings.Join(opts.AllowedHeaders, ", ")
	exposed := strings.Join(opts.ExposedHeaders, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if !opts.wildcard() {
				w.Header().Add("Vary", "Origin")
			}

			if opts.Allows(origin) {
				h := w.Header()
				if opts.wildcard() {
					h.Set("Access-Control-Allow-Origin", "*")
				} else {
					h.Set("Access-Control-Allow-Origin", origin)
				}
				h.Set("Access-Control-Allow-Methods", methods)
				h.Set("Access-Control-Allow-Headers", headers)
				if exposed != "" {
					h.Set("Access-Control-Expose-Headers", exposed)
				}
				if opts.MaxAge > 0 {
					h.Set("Access-Control-Max-Age", strconv.Itoa(opts.MaxAge))
				}
			}

			if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
