// Package kernel builds the HTTP handler: global middleware, operational
// endpoints and the API routes.
package kernel

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/pharmacare/pharmacare-api/app/controllers"
	"github.com/pharmacare/pharmacare-api/app/routes"
	"github.com/pharmacare/pharmacare-api/pkg/metrics"
	"github.com/pharmacare/pharmacare-api/pkg/middleware"
	"github.com/pharmacare/pharmacare-api/pkg/reqid"
	"github.com/pharmacare/pharmacare-api/pkg/response"
	"github.com/pharmacare/pharmacare-api/pkg/router"
)

// Options configures NewHTTP. Zero values disable the matching feature.
type Options struct {
	Controllers *controllers.Controllers
	Extras      routes.Extras

	// UploadsRoot is served read-only under UploadsPrefix when set.
	UploadsRoot   string
	UploadsPrefix string

	// Health reports backend readiness for GET /health.
	Health func(ctx context.Context) error

	// Limiter rate limits every request by client IP.
	Limiter *middleware.Limiter
}

// NewHTTP returns the router with the full middleware stack applied. Call
// Handler() on it to serve.
func NewHTTP(o Options) *router.Router {
	r := router.New()

	// Outermost first: metrics see the full latency, recovery catches
	// panics from everything below, the request id exists before logging.
	r.Use(metrics.Middleware())
	r.Use(middleware.Recovery)
	r.Use(reqid.Middleware())
	r.Use(middleware.Logger)
	r.Use(middleware.CORS(middleware.CORSFromConfig()))
	if o.Limiter != nil {
		r.Use(o.Limiter.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", "health", health(o.Health))
	r.Mount("/metrics", "metrics", metrics.Handler())

	if o.UploadsRoot != "" {
		prefix := "/" + strings.Trim(o.UploadsPrefix, "/")
		if prefix == "/" {
			prefix = "/uploads"
		}
		files := http.StripPrefix(prefix, http.FileServer(http.Dir(o.UploadsRoot)))
		r.Mount(prefix, "uploads", noListing(files))
	}

	if o.Controllers != nil {
		routes.RegisterAPI(r, o.Controllers, o.Extras)
	}
	return r
}

func health(check func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)}
		if check != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := check(ctx); err != nil {
				status["status"] = "degraded"
				response.Write(w, http.StatusServiceUnavailable, response.Envelope{
					Status:  http.StatusServiceUnavailable,
					Message: "Backend unavailable",
					Data:    status,
				})
				return
			}
		}
		response.Success(w, status)
	}
}

// noListing hides directory indexes.
func noListing(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/") {
			response.Error(w, http.StatusNotFound, "Route not found")
			return
		}
		next.ServeHTTP(w, r)
	})
}
