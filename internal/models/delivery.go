package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type Delivery struct {
	ID             uint            `json:"id" gorm:"primaryKey"`
	RouteSheetID   uint            `json:"route_sheet_id" gorm:"not null;index"`
	RouteSheet     *RouteSheet     `json:"route_sheet,omitempty"`
	ClientID       uint            `json:"client_id" gorm:"not null;index"`
	Client         Client          `json:"client"`
	OrderReference string          `json:"order_reference" gorm:"size:50;not null"`
	Quantity       int             `json:"quantity" gorm:"not null;default:1"`
	EstimatedTime  *datatypes.Time `json:"estimated_time"`
	Status         string          `json:"status" gorm:"size:20;default:'in_progress'"` // in_progress, delivered, problem
	ProofPhoto     string          `json:"proof_photo"`
	SignatureImage string          `json:"signature_image"`
	SignatureData  string          `json:"signature_data" gorm:"type:text"`
	DeliveredAt    *time.Time      `json:"delivered_at"`
	PublicToken    uuid.UUID       `json:"public_token" gorm:"type:uuid;uniqueIndex;not null"`
	Notes          string          `json:"notes" gorm:"type:text"`
	Products       []Product       `json:"products" gorm:"many2many:delivery_products;"`
	Bags           []Bag           `json:"bags" gorm:"many2many:delivery_bags;"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type DeliveryStatus string

const (
	DeliveryInProgress DeliveryStatus = "in_progress"
	DeliveryDelivered  DeliveryStatus = "delivered"
	DeliveryProblem    DeliveryStatus = "problem"
)

func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryInProgress, DeliveryDelivered, DeliveryProblem:
		return true
	}
	return false
}

func (s DeliveryStatus) Label() string {
	switch s {
	case DeliveryInProgress:
		return "In progress"
	case DeliveryDelivered:
		return "Delivered"
	case DeliveryProblem:
		return "Problem"
	}
	return string(s)
}

// TrackingPath is the public, unauthenticated tracking page for the delivery.
func (d *Delivery) TrackingPath() string {
	return "/livraison/track/" + d.PublicToken.String() + "/"
}

// TotalAmount sums unit price times quantity over the attached products.
func (d *Delivery) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	qty := decimal.NewFromInt(int64(d.Quantity))
	for _, p := range d.Products {
		total = total.Add(p.UnitPrice.Mul(qty))
	}
	return total
}
