package models

import (
	"time"

	"github.com/google/uuid"
)

type RouteSheet struct {
	ID             uint       `json:"id" gorm:"primaryKey"`
	DriverID       uint       `json:"driver_id" gorm:"not null;index"`
	Driver         Driver     `json:"driver"`
	VehicleID      *uint      `json:"vehicle_id" gorm:"index"`
	Vehicle        *Vehicle   `json:"vehicle,omitempty"`
	RouteDate      *time.Time `json:"route_date" gorm:"type:date;index"`
	Status         string     `json:"status" gorm:"size:20;default:'planned'"` // planned, en_route, completed, problem
	Token          uuid.UUID  `json:"token" gorm:"type:uuid;uniqueIndex;not null"`
	QRCode         string     `json:"qr_code"`
	LastLatitude   *float64   `json:"last_latitude" gorm:"type:decimal(9,6)"`
	LastLongitude  *float64   `json:"last_longitude" gorm:"type:decimal(9,6)"`
	LastPositionAt *time.Time `json:"last_position_at"`
	Observations   string     `json:"observations" gorm:"type:text"`
	ObservationsAt *time.Time `json:"observations_at"`
	Deliveries     []Delivery `json:"deliveries,omitempty"`
	CreatedAt      time.Time  `json:"created_at" gorm:"<-:create"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type RouteSheetStatus string

const (
	SheetPlanned   RouteSheetStatus = "planned"
	SheetEnRoute   RouteSheetStatus = "en_route"
	SheetCompleted RouteSheetStatus = "completed"
	SheetProblem   RouteSheetStatus = "problem"
)

// SheetStatuses lists route-sheet statuses in display order.
var SheetStatuses = []RouteSheetStatus{SheetPlanned, SheetEnRoute, SheetCompleted, SheetProblem}

func (s RouteSheetStatus) Valid() bool {
	switch s {
	case SheetPlanned, SheetEnRoute, SheetCompleted, SheetProblem:
		return true
	}
	return false
}

func (s RouteSheetStatus) Label() string {
	switch s {
	case SheetPlanned:
		return "Planned"
	case SheetEnRoute:
		return "En route"
	case SheetCompleted:
		return "Completed"
	case SheetProblem:
		return "Problem"
	}
	return string(s)
}

// DriverPath is the token-scoped path a driver opens from the QR code.
func (r *RouteSheet) DriverPath() string {
	return "/livraison/feuille/" + r.Token.String() + "/"
}

// EffectiveDate is the route date, or the creation date when none was assigned.
func (r *RouteSheet) EffectiveDate() time.Time {
	if r.RouteDate != nil {
		return *r.RouteDate
	}
	return DateOf(r.CreatedAt)
}

// DateOf truncates t to its calendar day, expressed as UTC midnight so that
// date columns compare the same way on every driver.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
