// Package services implements the application's use cases on top of the
// repositories. Services never write HTTP; they return sentinel and typed
// errors that controllers map to status codes.
package services

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pharmacare/pharmacare-api/app/models"
	"github.com/pharmacare/pharmacare-api/app/repositories"
	"github.com/pharmacare/pharmacare-api/pkg/event"
	"github.com/pharmacare/pharmacare-api/pkg/mail"
	"github.com/pharmacare/pharmacare-api/pkg/storage"
	"github.com/pharmacare/pharmacare-api/pkg/workerpool"
)

// Options wires the services to their backends.
type Options struct {
	Store      *repositories.Store
	Disk       storage.Disk
	Events     *event.Bus
	Mailer     mail.Sender
	Reports    *workerpool.Pool
	Now        func() time.Time
	AdminEmail string
	// MaxAttempts bounds outbox delivery attempts.
	MaxAttempts int
}

// Services is the full set used by controllers, jobs and CLI commands.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Products      *ProductService
	Batches       *BatchService
	Stock         *StockService
	Orders        *OrderService
	Suppliers     *SupplierService
	Feedback      *FeedbackService
	Support       *SupportService
	Prescriptions *PrescriptionService
	Outbox        *OutboxService
	Reports       *ReportService
	Events        *event.Bus
}

func New(o Options) *Services {
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	if o.Events == nil {
		o.Events = event.NewBus()
	}
	if o.Mailer == nil {
		o.Mailer = mail.LogSender{}
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 5
	}
	if o.Reports == nil {
		o.Reports = workerpool.New(2, 8)
	}

	st := o.Store
	outbox := &OutboxService{repo: st.Outbox, mailer: o.Mailer, maxAttempts: o.MaxAttempts, now: o.Now}
	stock := &StockService{store: st, now: o.Now}
	alerts := &alerter{outbox: outbox, events: o.Events, admin: o.AdminEmail, now: o.Now}
	prescriptions := &PrescriptionService{store: st, disk: o.Disk, outbox: outbox, now: o.Now}

	return &Services{
		Auth:          &AuthService{users: st.Users},
		Users:         &UserService{users: st.Users},
		Products:      &ProductService{store: st, disk: o.Disk},
		Batches:       &BatchService{store: st, stock: stock, now: o.Now},
		Stock:         stock,
		Orders:        &OrderService{store: st, stock: stock, outbox: outbox, alerts: alerts, prescriptions: prescriptions, now: o.Now},
		Suppliers:     &SupplierService{store: st, outbox: outbox},
		Feedback:      &FeedbackService{store: st},
		Support:       &SupportService{store: st},
		Prescriptions: prescriptions,
		Outbox:        outbox,
		Reports:       &ReportService{store: st, pool: o.Reports, now: o.Now},
		Events:        o.Events,
	}
}

// Caller identifies who performs an operation.
type Caller struct {
	UserID primitive.ObjectID
	Role   string
}

func (c Caller) IsAdmin() bool { return c.Role == models.RoleAdmin }

// IsStaff reports roles allowed to review prescriptions.
func (c Caller) IsStaff() bool {
	return c.Role == models.RoleAdmin || c.Role == models.RolePharmacy || c.Role == models.RoleDoctor
}

// ParseID parses a hex ObjectID; malformed ids are reported as not found.
func ParseID(hex, what string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, notFound(what)
	}
	return id, nil
}

func optionalID(hex string) (*primitive.ObjectID, error) {
	if hex == "" {
		return nil, nil
	}
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// Page is the listing window used by services.
type Page = repositories.Page

// NewPage clamps page and limit to sane listing bounds.
func NewPage(p, limit int) Page {
	if p < 1 {
		p = 1
	}
	if limit < 1 {
		limit = 15
	}
	if limit > 100 {
		limit = 100
	}
	return Page{Page: int64(p), Limit: int64(limit)}
}
