package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Batch statuses. Status is recomputed from quantities and expiry, it is
// not a state machine.
const (
	BatchActive   = "active"
	BatchExpired  = "expired"
	BatchDepleted = "depleted"
)

// Batch is one received lot of a product from a supplier.
type Batch struct {
	ID                primitive.ObjectID `bson:"_id,omitempty"     json:"id"`
	ProductID         primitive.ObjectID `bson:"productId"         json:"productId"`
	SupplierID        primitive.ObjectID `bson:"supplierId"        json:"supplierId"`
	BatchNumber       string             `bson:"batchNumber"       json:"batchNumber"`
	ManufacturingDate time.Time          `bson:"manufacturingDate" json:"manufacturingDate"`
	ExpiryDate        time.Time          `bson:"expiryDate"        json:"expiryDate"`
	Quantity          int                `bson:"quantity"          json:"quantity"`
	RemainingQuantity int                `bson:"remainingQuantity" json:"remainingQuantity"`
	CostPrice         float64            `bson:"costPrice"         json:"costPrice"`
	SellingPrice      float64            `bson:"sellingPrice"      json:"sellingPrice"`
	Status            string             `bson:"status"            json:"status"`
	Notes             string             `bson:"notes"             json:"notes,omitempty"`
	CreatedAt         time.Time          `bson:"createdAt"         json:"createdAt"`
	UpdatedAt         time.Time          `bson:"updatedAt"         json:"updatedAt"`
}
