package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Product categories.
const (
	CategoryMedicine    = "medicine"
	CategorySupplements = "supplements"
	CategoryEquipment   = "equipment"
)

// Product is a catalogue entry. TotalStock is derived from its batches and
// is written only by stock reconciliation.
type Product struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"        json:"id"`
	Name                 string             `bson:"name"                 json:"name"`
	Brand                string             `bson:"brand"                json:"brand"`
	Category             string             `bson:"category"             json:"category"`
	Price                float64            `bson:"price"                json:"price"`
	Description          string             `bson:"description"          json:"description"`
	Images               []string           `bson:"images"               json:"images"`
	RequiresPrescription bool               `bson:"requiresPrescription" json:"requiresPrescription"`
	TotalStock           int                `bson:"totalStock"           json:"totalStock"`
	CreatedAt            time.Time          `bson:"createdAt"            json:"createdAt"`
	UpdatedAt            time.Time          `bson:"updatedAt"            json:"updatedAt"`
}
