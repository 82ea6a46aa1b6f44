package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Outbox message kinds.
const (
	MailOrderConfirmation    = "order_confirmation"
	MailOutOfStock           = "out_of_stock"
	MailLowStock             = "low_stock"
	MailRestockRequest       = "restock_request"
	MailPrescriptionDecision = "prescription_decision"
)

// Outbox statuses.
const (
	OutboxPending = "pending"
	OutboxSent    = "sent"
	OutboxFailed  = "failed"
)

// OutboxMessage is an email intent persisted before delivery is attempted.
type OutboxMessage struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Kind      string             `bson:"kind"          json:"kind"`
	To        []string           `bson:"to"            json:"to"`
	Subject   string             `bson:"subject"       json:"subject"`
	Body      string             `bson:"body"          json:"-"`
	Status    string             `bson:"status"        json:"status"`
	Attempts  int                `bson:"attempts"      json:"attempts"`
	LastError string             `bson:"lastError"     json:"lastError,omitempty"`
	SentAt    *time.Time         `bson:"sentAt"        json:"sentAt,omitempty"`
	CreatedAt time.Time          `bson:"createdAt"     json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"     json:"updatedAt"`
}
