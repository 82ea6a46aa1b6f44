package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Order statuses.
const (
	OrderPending    = "pending"
	OrderProcessing = "processing"
	OrderShipped    = "shipped"
	OrderDelivered  = "delivered"
	OrderCancelled  = "cancelled"
)

// Payment methods. Payment is simulated, only the last four card digits are
// kept.
const (
	PaymentVisa       = "visa"
	PaymentMastercard = "mastercard"
	PaymentPaid       = "paid"
)

// OrderItem is a snapshot of the product at order time.
type OrderItem struct {
	ProductID primitive.ObjectID `bson:"productId" json:"productId"`
	Name      string             `bson:"name"      json:"name"`
	Price     float64            `bson:"price"     json:"price"`
	Quantity  int                `bson:"quantity"  json:"quantity"`
}

// Consumption records which batch an item was shipped from.
type Consumption struct {
	ProductID   primitive.ObjectID `bson:"productId"   json:"productId"`
	BatchID     primitive.ObjectID `bson:"batchId"     json:"batchId"`
	BatchNumber string             `bson:"batchNumber" json:"batchNumber"`
	Quantity    int                `bson:"quantity"    json:"quantity"`
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"   json:"id"`
	UserID          primitive.ObjectID `bson:"userId"          json:"userId"`
	Items           []OrderItem        `bson:"items"           json:"items"`
	TotalAmount     float64            `bson:"totalAmount"     json:"totalAmount"`
	Status          string             `bson:"status"          json:"status"`
	ShippingAddress Address            `bson:"shippingAddress" json:"shippingAddress"`
	PaymentMethod   string             `bson:"paymentMethod"   json:"paymentMethod"`
	PaymentStatus   string             `bson:"paymentStatus"   json:"paymentStatus"`
	CardLast4       string             `bson:"cardLast4"       json:"cardLast4"`
	StockConsumed   bool               `bson:"stockConsumed"   json:"stockConsumed"`
	Consumptions    []Consumption      `bson:"consumptions"    json:"consumptions,omitempty"`
	CreatedAt       time.Time          `bson:"createdAt"       json:"createdAt"`
	UpdatedAt       time.Time          `bson:"updatedAt"       json:"updatedAt"`
}

// Quantity returns the total ordered quantity of productID.
func (o *Order) Quantity(productID primitive.ObjectID) int {
	n := 0
	for _, it := range o.Items {
		if it.ProductID == productID {
			n += it.Quantity
		}
	}
	return n
}

// ProductIDs returns the distinct products referenced by the order.
func (o *Order) ProductIDs() []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(o.Items))
	var ids []primitive.ObjectID
	for _, it := range o.Items {
		if !seen[it.ProductID] {
			seen[it.ProductID] = true
			ids = append(ids, it.ProductID)
		}
	}
	return ids
}
