package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Roles.
const (
	RoleUser     = "user"
	RolePharmacy = "pharmacy"
	RoleDoctor   = "doctor"
	RoleAdmin    = "admin"
)

// Address is a postal address; users keep exactly one default when they
// have any.
type Address struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Label      string             `bson:"label"         json:"label,omitempty"`
	Street     string             `bson:"street"        json:"street"     validate:"required"`
	City       string             `bson:"city"          json:"city"       validate:"required"`
	State      string             `bson:"state"         json:"state"`
	PostalCode string             `bson:"postalCode"    json:"postalCode" validate:"required"`
	Country    string             `bson:"country"       json:"country"    validate:"required"`
	IsDefault  bool               `bson:"isDefault"     json:"isDefault"`
}

// User is the primary user model.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name      string             `bson:"name"          json:"name"`
	Email     string             `bson:"email"         json:"email"`
	Password  string             `bson:"password"      json:"-"` // hashed, never serialised
	Role      string             `bson:"role"          json:"role"`
	Phone     string             `bson:"phone"         json:"phone,omitempty"`
	Addresses []Address          `bson:"addresses"     json:"addresses"`
	CreatedAt time.Time          `bson:"createdAt"     json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"     json:"updatedAt"`
}
