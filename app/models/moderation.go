package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Moderation statuses shared by feedback, support tickets and
// prescriptions.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusResolved = "resolved"
)

type Feedback struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty"       json:"id"`
	UserID    primitive.ObjectID  `bson:"userId"              json:"userId"`
	ProductID *primitive.ObjectID `bson:"productId,omitempty" json:"productId,omitempty"`
	Rating    int                 `bson:"rating"              json:"rating"`
	Comment   string              `bson:"comment"             json:"comment"`
	Status    string              `bson:"status"              json:"status"`
	CreatedAt time.Time           `bson:"createdAt"           json:"createdAt"`
	UpdatedAt time.Time           `bson:"updatedAt"           json:"updatedAt"`
}

// Support is a customer support ticket.
type Support struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID        primitive.ObjectID `bson:"userId"        json:"userId"`
	Subject       string             `bson:"subject"       json:"subject"`
	Message       string             `bson:"message"       json:"message"`
	Status        string             `bson:"status"        json:"status"`
	AdminResponse string             `bson:"adminResponse" json:"adminResponse,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"     json:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"     json:"updatedAt"`
}

// Prescription is an uploaded prescription awaiting review.
type Prescription struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"        json:"id"`
	UserID      primitive.ObjectID  `bson:"userId"               json:"userId"`
	FilePath    string              `bson:"filePath"             json:"filePath"`
	FileURL     string              `bson:"-"                    json:"fileUrl,omitempty"`
	DoctorName  string              `bson:"doctorName"           json:"doctorName"`
	PatientName string              `bson:"patientName"          json:"patientName"`
	Notes       string              `bson:"notes"                json:"notes,omitempty"`
	Status      string              `bson:"status"               json:"status"`
	ReviewedBy  *primitive.ObjectID `bson:"reviewedBy,omitempty" json:"reviewedBy,omitempty"`
	ReviewNote  string              `bson:"reviewNote"           json:"reviewNote,omitempty"`
	ReviewedAt  *time.Time          `bson:"reviewedAt,omitempty" json:"reviewedAt,omitempty"`
	CreatedAt   time.Time           `bson:"createdAt"            json:"createdAt"`
	UpdatedAt   time.Time           `bson:"updatedAt"            json:"updatedAt"`
}
