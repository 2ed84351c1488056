package models

import "time"

type Driver struct {
	ID     uint   `json:"id" gorm:"primaryKey"`
	UserID uint   `json:"user_id" gorm:"uniqueIndex;not null"`
	User   User   `json:"user"`
	Phone  string `json:"phone" gorm:"size:20"`
	// Free-text vehicle and plate kept from before vehicles were their own table.
	VehicleDescription string    `json:"vehicle_description" gorm:"size:50"`
	LicensePlate       string    `json:"license_plate" gorm:"size:20"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

func (d *Driver) DisplayName() string {
	return d.User.DisplayName()
}

type Vehicle struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Make      string    `json:"make" gorm:"not null"`
	Model     string    `json:"model" gorm:"not null"`
	Plate     string    `json:"plate" gorm:"uniqueIndex;not null"`
	Year      int       `json:"year"`
	Color     string    `json:"color"`
	Capacity  string    `json:"capacity"`
	IsActive  bool      `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Descriptor is the "make model" label used on reports and exports.
func (v *Vehicle) Descriptor() string {
	return v.Make + " " + v.Model
}

// UnassignedLabel stands in for a missing vehicle on every report and export.
const UnassignedLabel = "Unassigned"

// VehicleLabel returns the vehicle descriptor or UnassignedLabel.
func VehicleLabel(v *Vehicle) string {
	if v == nil {
		return UnassignedLabel
	}
	return v.Descriptor()
}
