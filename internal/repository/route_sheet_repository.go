package repository

import (
	"context"
	"strings"
	"time"

	"delivery_tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SheetQuery narrows a route-sheet listing. Zero values mean "no filter".
type SheetQuery struct {
	Date     *time.Time
	From     *time.Time
	To       *time.Time
	DriverID uint
	Status   string
	// Vehicle matches a case-insensitive substring of the vehicle plate.
	Vehicle        string
	WithDeliveries bool
}

type RouteSheetRepository interface {
	Create(ctx context.Context, sheet *models.RouteSheet) error
	GetByID(ctx context.Context, id uint) (*models.RouteSheet, error)
	GetByToken(ctx context.Context, token uuid.UUID) (*models.RouteSheet, error)
	GetWithDeliveries(ctx context.Context, id uint) (*models.RouteSheet, error)
	GetByDriver(ctx context.Context, driverID uint) ([]models.RouteSheet, error)
	Find(ctx context.Context, q SheetQuery) ([]models.RouteSheet, error)
	Update(ctx context.Context, sheet *models.RouteSheet) error
	UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error
	// Delete removes the sheet along with its deliveries and their item links.
	Delete(ctx context.Context, id uint) error
}

type routeSheetRepository struct {
	db *gorm.DB
}

func NewRouteSheetRepository(db *gorm.DB) RouteSheetRepository {
	return &routeSheetRepository{db: db}
}

func (r *routeSheetRepository) base(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Driver.User").Preload("Vehicle")
}

func preloadSheetDeliveries(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Deliveries", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("deliveries.estimated_time, deliveries.id")
		}).
		Preload("Deliveries.Client").
		Preload("Deliveries.Products").
		Preload("Deliveries.Bags")
}

func (r *routeSheetRepository) Create(ctx context.Context, sheet *models.RouteSheet) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(sheet).Error
}

func (r *routeSheetRepository) GetByID(ctx context.Context, id uint) (*models.RouteSheet, error) {
	var sheet models.RouteSheet
	err := r.base(ctx).First(&sheet, id).Error
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

func (r *routeSheetRepository) GetByToken(ctx context.Context, token uuid.UUID) (*models.RouteSheet, error) {
	var sheet models.RouteSheet
	err := preloadSheetDeliveries(r.base(ctx)).Where("token = ?", token).First(&sheet).Error
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

func (r *routeSheetRepository) GetWithDeliveries(ctx context.Context, id uint) (*models.RouteSheet, error) {
	var sheet models.RouteSheet
	err := preloadSheetDeliveries(r.base(ctx)).First(&sheet, id).Error
	if err != nil {
		return nil, err
	}
	return &sheet, nil
}

func (r *routeSheetRepository) GetByDriver(ctx context.Context, driverID uint) ([]models.RouteSheet, error) {
	var sheets []models.RouteSheet
	err := r.base(ctx).
		Where("driver_id = ?", driverID).
		Order("route_date DESC, created_at DESC").
		Find(&sheets).Error
	return sheets, err
}

func (r *routeSheetRepository) Find(ctx context.Context, q SheetQuery) ([]models.RouteSheet, error) {
	db := r.base(ctx).Select("route_sheets.*")
	if q.WithDeliveries {
		db = db.Preload("Deliveries")
	}
	if q.Date != nil {
		db = db.Where("route_sheets.route_date = ?", *q.Date)
	}
	if q.From != nil {
		db = db.Where("route_sheets.route_date >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("route_sheets.route_date <= ?", *q.To)
	}
	if q.DriverID != 0 {
		db = db.Where("route_sheets.driver_id = ?", q.DriverID)
	}
	if q.Status != "" {
		db = db.Where("route_sheets.status = ?", q.Status)
	}
	if v := strings.TrimSpace(q.Vehicle); v != "" {
		db = db.Joins("JOIN vehicles ON vehicles.id = route_sheets.vehicle_id").
			Where("LOWER(vehicles.plate) LIKE ?", "%"+strings.ToLower(v)+"%")
	}

	var sheets []models.RouteSheet
	err := db.Order("route_sheets.route_date DESC, route_sheets.id DESC").Find(&sheets).Error
	return sheets, err
}

func (r *routeSheetRepository) Update(ctx context.Context, sheet *models.RouteSheet) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(sheet).Error
}

func (r *routeSheetRepository) UpdateFields(ctx context.Context, id uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).Model(&models.RouteSheet{}).Where("id = ?", id).Updates(fields).Error
}

func (r *routeSheetRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var deliveryIDs []uint
		if err := tx.Model(&models.Delivery{}).Where("route_sheet_id = ?", id).Pluck("id", &deliveryIDs).Error; err != nil {
			return err
		}
		if len(deliveryIDs) > 0 {
			if err := deleteDeliveryRows(tx, deliveryIDs); err != nil {
				return err
			}
		}
		res := tx.Delete(&models.RouteSheet{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
