// Package ctx provides the request context every PharmaCare handler
// receives. Instead of (http.ResponseWriter, *http.Request) a handler takes
// a single *Context with helpers for params, binding and the JSON envelope:
//
//	func (pc *ProductController) Show(c *ctx.Context) {
//	    p, err := pc.products.Get(c.Context(), c.Param("id"))
//	    ...
//	    c.Success(p)
//	}
//
//	r.Get("/products/{id}", "products.show", ctx.Wrap(pc.Show))
package ctx

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/pharmacare/pharmacare-api/pkg/auth"
	"github.com/pharmacare/pharmacare-api/pkg/bind"
	"github.com/pharmacare/pharmacare-api/pkg/response"
	"github.com/pharmacare/pharmacare-api/pkg/validate"
)

// HandlerFunc is the context-aware handler signature.
type HandlerFunc func(c *Context)

// Wrap converts a HandlerFunc to a standard http.HandlerFunc.
func Wrap(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := acquire(w, r)
		defer release(c)
		h(c)
	}
}

// Context wraps a request/response pair.
type Context struct {
	W      http.ResponseWriter
	R      *http.Request
	mu     sync.RWMutex
	store  map[string]any
	status int
}

var pool = sync.Pool{
	New: func() any { return &Context{store: make(map[string]any)} },
}

func acquire(w http.ResponseWriter, r *http.Request) *Context {
	c := pool.Get().(*Context)
	c.W = w
	c.R = r
	c.status = 0
	for k := range c.store {
		delete(c.store, k)
	}
	return c
}

func release(c *Context) {
	c.W = nil
	c.R = nil
	pool.Put(c)
}

// ─── Request helpers ──────────────────────────────────────────────────────────

// Param returns a URL path parameter (e.g. "/orders/{id}" → c.Param("id")).
func (c *Context) Param(key string) string {
	return chi.URLParam(c.R, key)
}

// Query returns a query-string value. Returns "" if not present.
func (c *Context) Query(key string) string {
	return c.R.URL.Query().Get(key)
}

// DefaultQuery returns a query-string value, or def if it is empty.
func (c *Context) DefaultQuery(key, def string) string {
	if v := c.Query(key); v != "" {
		return v
	}
	return def
}

// QueryInt parses an integer query value, returning def when absent or bad.
func (c *Context) QueryInt(key string, def int) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return n
}

// QueryBool parses a boolean query value.
func (c *Context) QueryBool(key string) bool {
	b, _ := strconv.ParseBool(c.Query(key))
	return b
}

// PostForm returns a field of a urlencoded or multipart body.
func (c *Context) PostForm(key string) string {
	return c.R.FormValue(key)
}

// FormFile parses a multipart body capped at maxBytes and returns the named
// file part. The caller closes the file.
func (c *Context) FormFile(field string, maxBytes int64) (multipart.File, *multipart.FileHeader, error) {
	c.R.Body = http.MaxBytesReader(c.W, c.R.Body, maxBytes+1<<20)
	if err := c.R.ParseMultipartForm(maxBytes); err != nil {
		return nil, nil, fmt.Errorf("invalid multipart body: %w", err)
	}
	f, h, err := c.R.FormFile(field)
	if err != nil {
		return nil, nil, fmt.Errorf("missing %s file: %w", field, err)
	}
	if h.Size > maxBytes {
		f.Close()
		return nil, nil, fmt.Errorf("file too large (max %d bytes)", maxBytes)
	}
	return f, h, nil
}

func (c *Context) Header(key string) string {
	return c.R.Header.Get(key)
}

// ClientIP returns the real client IP, respecting X-Forwarded-For.
func (c *Context) ClientIP() string {
	if fwd := c.R.Header.Get("X-Forwarded-For"); fwd != "" {
		return strings.TrimSpace(strings.SplitN(fwd, ",", 2)[0])
	}
	if real := c.R.Header.Get("X-Real-Ip"); real != "" {
		return real
	}
	ip := c.R.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Context returns the underlying request context.
func (c *Context) Context() context.Context { return c.R.Context() }

// Claims returns the authenticated caller, if the auth middleware ran.
func (c *Context) Claims() (*auth.Claims, bool) {
	return auth.FromContext(c.R.Context())
}

// UserID is the authenticated caller's id, or "".
func (c *Context) UserID() string {
	if cl, ok := c.Claims(); ok {
		return cl.UserID
	}
	return ""
}

// Role is the authenticated caller's role, or "".
func (c *Context) Role() string {
	if cl, ok := c.Claims(); ok {
		return cl.Role
	}
	return ""
}

// ─── Per-request store ────────────────────────────────────────────────────────

func (c *Context) Set(key string, val any) {
	c.mu.Lock()
	c.store[key] = val
	c.mu.Unlock()
}

func (c *Context) Get(key string) (any, bool) {
	c.mu.RLock()
	v, ok := c.store[key]
	c.mu.RUnlock()
	return v, ok
}

// GetString returns a string value from the store, or "" if absent/wrong type.
func (c *Context) GetString(key string) string {
	v, _ := c.Get(key)
	s, _ := v.(string)
	return s
}

// ─── Binding / Validation ─────────────────────────────────────────────────────

// BindJSON decodes the JSON body into dest and runs validation. On any
// failure it sends a 400 and returns false.
//
//	var in CreateOrderRequest
//	if !c.BindJSON(&in) {
//	    return // response already sent
//	}
func (c *Context) BindJSON(dest any) bool {
	errs, err := bind.JSON(c.R, dest)
	if err != nil {
		c.Error(http.StatusBadRequest, err.Error())
		return false
	}
	if validate.HasErrors(errs) {
		c.ValidationError(errs)
		return false
	}
	return true
}

// Validate runs validation rules on an already-populated struct.
func (c *Context) Validate(v any) map[string]string {
	return validate.Struct(v)
}

// ─── Response helpers ─────────────────────────────────────────────────────────

func (c *Context) SetHeader(key, value string) {
	c.W.Header().Set(key, value)
}

// JSON writes an arbitrary JSON body with the given status code.
func (c *Context) JSON(code int, v any) {
	c.W.Header().Set("Content-Type", "application/json")
	c.W.WriteHeader(code)
	c.status = code
	json.NewEncoder(c.W).Encode(v) //nolint:errcheck
}

func (c *Context) envelope(code int, body response.Envelope) {
	c.status = code
	response.Write(c.W, code, body)
}

// Success sends a 200 envelope.
func (c *Context) Success(data any) {
	c.envelope(http.StatusOK, response.Envelope{Data: data})
}

// Created sends a 201 envelope.
func (c *Context) Created(data any) {
	c.envelope(http.StatusCreated, response.Envelope{Data: data})
}

// Message sends a 200 envelope carrying only a message.
func (c *Context) Message(msg string) {
	c.envelope(http.StatusOK, response.Envelope{Message: msg})
}

// Paginated sends a 200 envelope with {items, pagination}.
func (c *Context) Paginated(items any, p response.Pagination) {
	c.envelope(http.StatusOK, response.Envelope{Data: map[string]any{
		"items":      items,
		"pagination": p,
	}})
}

// Error sends an error envelope with the given status and message.
func (c *Context) Error(code int, message string) {
	c.envelope(code, response.Envelope{Message: message})
}

// ValidationError sends a 400 with field-level errors.
func (c *Context) ValidationError(errs map[string]string) {
	c.envelope(http.StatusBadRequest, response.Envelope{
		Message: "Validation failed",
		Errors:  errs,
	})
}

func (c *Context) Unauthorized(message ...string) {
	c.Error(http.StatusUnauthorized, first(message, "Unauthorized"))
}

func (c *Context) Forbidden(message ...string) {
	c.Error(http.StatusForbidden, first(message, "Forbidden"))
}

func (c *Context) NotFound(message ...string) {
	c.Error(http.StatusNotFound, first(message, "Not found"))
}

func first(ss []string, def string) string {
	if len(ss) > 0 && ss[0] != "" {
		return ss[0]
	}
	return def
}

// Blob writes raw bytes with a content type, optionally as a download.
func (c *Context) Blob(code int, contentType, filename string, data []byte) {
	c.W.Header().Set("Content-Type", contentType)
	if filename != "" {
		c.W.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	}
	c.W.Header().Set("Content-Length", strconv.Itoa(len(data)))
	c.W.WriteHeader(code)
	c.status = code
	_, _ = c.W.Write(data)
}

// WrittenStatus returns the status code written so far, or 0.
func (c *Context) WrittenStatus() int { return c.status }
