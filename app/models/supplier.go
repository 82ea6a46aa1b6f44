package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	SupplierActive   = "active"
	SupplierInactive = "inactive"
)

type Supplier struct {
	ID            primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name          string               `bson:"name"          json:"name"`
	Email         string               `bson:"email"         json:"email"`
	Phone         string               `bson:"phone"         json:"phone"`
	Address       string               `bson:"address"       json:"address"`
	ContactPerson string               `bson:"contactPerson" json:"contactPerson"`
	Products      []primitive.ObjectID `bson:"products"      json:"products"`
	Status        string               `bson:"status"        json:"status"`
	CreatedAt     time.Time            `bson:"createdAt"     json:"createdAt"`
	UpdatedAt     time.Time            `bson:"updatedAt"     json:"updatedAt"`
}
