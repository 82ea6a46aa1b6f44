// Package controllers adapts HTTP requests to service calls. Handlers take
// a *ctx.Context, bind and validate input, call one service and answer
// with the JSON envelope.
package controllers

import (
	"errors"
	"net/http"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/services"
	"github.com/pharmacare/pharmacare-api/config"
	"github.com/pharmacare/pharmacare-api/pkg/ctx"
	"github.com/pharmacare/pharmacare-api/pkg/logger"
	"github.com/pharmacare/pharmacare-api/pkg/response"
	"github.com/pharmacare/pharmacare-api/pkg/workerpool"
)

// Controllers is every controller, built once at boot.
type Controllers struct {
	Auth          *AuthController
	Products      *ProductController
	Batches       *BatchController
	Orders        *OrderController
	Suppliers     *SupplierController
	Users         *UserController
	Feedback      *FeedbackController
	Support       *SupportController
	Prescriptions *PrescriptionController
	Reports       *ReportController
	Outbox        *OutboxController
	Inventory     *InventoryController
}

func New(svc *services.Services) *Controllers {
	return &Controllers{
		Auth:          &AuthController{auth: svc.Auth, users: svc.Users},
		Products:      &ProductController{products: svc.Products, feedback: svc.Feedback},
		Batches:       &BatchController{batches: svc.Batches},
		Orders:        &OrderController{orders: svc.Orders},
		Suppliers:     &SupplierController{suppliers: svc.Suppliers},
		Users:         &UserController{users: svc.Users},
		Feedback:      &FeedbackController{feedback: svc.Feedback},
		Support:       &SupportController{support: svc.Support},
		Prescriptions: &PrescriptionController{prescriptions: svc.Prescriptions},
		Reports:       &ReportController{reports: svc.Reports},
		Outbox:        &OutboxController{outbox: svc.Outbox},
		Inventory:     &InventoryController{stock: svc.Stock},
	}
}

// fail maps a service error onto the envelope. Unclassified errors are
// logged with the request id and answered with a bare 500.
func fail(c *ctx.Context, err error) {
	var ve *services.ValidationError
	switch {
	case errors.As(err, &ve):
		c.ValidationError(ve.Fields)
	case errors.Is(err, services.ErrNotFound):
		c.NotFound(notFoundMessage(err))
	case errors.Is(err, services.ErrInsufficientStock),
		errors.Is(err, services.ErrInvalidTransition):
		c.Error(http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		c.Unauthorized("Invalid email or password")
	case errors.Is(err, services.ErrForbidden):
		c.Forbidden(strings.TrimPrefix(strings.TrimPrefix(err.Error(), services.ErrForbidden.Error()), ": "))
	case errors.Is(err, services.ErrConflict):
		c.Error(http.StatusConflict, strings.TrimPrefix(err.Error(), services.ErrConflict.Error()+": "))
	case errors.Is(err, workerpool.ErrPoolFull):
		c.Error(http.StatusServiceUnavailable, "Server busy, try again shortly")
	default:
		logger.WithCtx(c.Context()).Error("request failed",
			"method", c.R.Method, "path", c.R.URL.Path, "error", err)
		c.Error(http.StatusInternalServerError, "Internal server error")
	}
}

// notFoundMessage turns "product: record not found" into "Product not found".
func notFoundMessage(err error) string {
	what, ok := strings.CutSuffix(err.Error(), ": "+services.ErrNotFound.Error())
	if !ok || what == "" || strings.Contains(what, ":") {
		return "Not found"
	}
	return strings.ToUpper(what[:1]) + what[1:] + " not found"
}

// caller returns the authenticated user. It answers 401 and returns false
// when the token carries no usable id.
func caller(c *ctx.Context) (services.Caller, bool) {
	id, err := primitive.ObjectIDFromHex(c.UserID())
	if err != nil {
		c.Unauthorized()
		return services.Caller{}, false
	}
	return services.Caller{UserID: id, Role: c.Role()}, true
}

func page(c *ctx.Context) services.Page {
	return services.NewPage(c.QueryInt("page", 1), c.QueryInt("limit", 15))
}

func paginated(c *ctx.Context, items any, total int64, p services.Page) {
	c.Paginated(items, response.NewPagination(int(p.Page), int(p.Limit), total))
}

// upload reads the multipart file field. The caller closes the returned
// upload with done.
func upload(c *ctx.Context, field string) (up services.Upload, done func(), ok bool) {
	f, h, err := c.FormFile(field, config.UploadMaxBytes())
	if err != nil {
		c.ValidationError(map[string]string{field: err.Error()})
		return services.Upload{}, nil, false
	}
	return services.Upload{
		Filename:    h.Filename,
		ContentType: h.Header.Get("Content-Type"),
		Size:        h.Size,
		Body:        f,
	}, func() { f.Close() }, true
}
