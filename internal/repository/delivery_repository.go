package repository

import (
	"context"
	"time"

	"delivery_tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DeliveryQuery narrows deliveries by their parent sheet's route date and
// driver, and by their own status.
type DeliveryQuery struct {
	From     *time.Time
	To       *time.Time
	DriverID uint
	Status   string
}

type DeliveryRepository interface {
	// Create inserts the delivery and links its products and bags.
	Create(ctx context.Context, delivery *models.Delivery) error
	GetByID(ctx context.Context, id uint) (*models.Delivery, error)
	GetByPublicToken(ctx context.Context, token uuid.UUID) (*models.Delivery, error)
	Find(ctx context.Context, q DeliveryQuery) ([]models.Delivery, error)
	// Save writes the delivery's own columns, leaving item links alone.
	Save(ctx context.Context, delivery *models.Delivery) error
	ReplaceItems(ctx context.Context, delivery *models.Delivery, products []models.Product, bags []models.Bag) error
	Delete(ctx context.Context, id uint) error
}

type deliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) DeliveryRepository {
	return &deliveryRepository{db: db}
}

func (r *deliveryRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("RouteSheet.Driver.User").
		Preload("RouteSheet.Vehicle").
		Preload("Client").
		Preload("Products", func(tx *gorm.DB) *gorm.DB { return tx.Order("products.name") }).
		Preload("Bags")
}

func (r *deliveryRepository) Create(ctx context.Context, delivery *models.Delivery) error {
	products, bags := delivery.Products, delivery.Bags
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Create(delivery).Error; err != nil {
			return err
		}
		return replaceItems(tx, delivery, products, bags)
	})
}

func (r *deliveryRepository) GetByID(ctx context.Context, id uint) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.preloaded(ctx).First(&delivery, id).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *deliveryRepository) GetByPublicToken(ctx context.Context, token uuid.UUID) (*models.Delivery, error) {
	var delivery models.Delivery
	err := r.preloaded(ctx).Where("public_token = ?", token).First(&delivery).Error
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

func (r *deliveryRepository) filtered(db *gorm.DB, q DeliveryQuery) *gorm.DB {
	db = db.Joins("JOIN route_sheets ON route_sheets.id = deliveries.route_sheet_id")
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
		db = db.Where("deliveries.status = ?", q.Status)
	}
	return db
}

func (r *deliveryRepository) Find(ctx context.Context, q DeliveryQuery) ([]models.Delivery, error) {
	var deliveries []models.Delivery
	err := r.filtered(r.preloaded(ctx).Select("deliveries.*"), q).
		Order("route_sheets.route_date DESC, deliveries.id DESC").
		Find(&deliveries).Error
	return deliveries, err
}

func (r *deliveryRepository) Save(ctx context.Context, delivery *models.Delivery) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(delivery).Error
}

func (r *deliveryRepository) ReplaceItems(ctx context.Context, delivery *models.Delivery, products []models.Product, bags []models.Bag) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceItems(tx, delivery, products, bags)
	})
}

func (r *deliveryRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Delivery{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
		return deleteDeliveryRows(tx, []uint{id})
	})
}

func replaceItems(tx *gorm.DB, delivery *models.Delivery, products []models.Product, bags []models.Bag) error {
	if err := replaceAssociation(tx.Model(delivery).Association("Products"), products, len(products)); err != nil {
		return err
	}
	if err := replaceAssociation(tx.Model(delivery).Association("Bags"), bags, len(bags)); err != nil {
		return err
	}
	delivery.Products, delivery.Bags = products, bags
	return nil
}

func replaceAssociation(assoc *gorm.Association, values interface{}, n int) error {
	if n == 0 {
		return assoc.Clear()
	}
	return assoc.Replace(values)
}

func deleteDeliveryRows(tx *gorm.DB, ids []uint) error {
	if err := tx.Exec("DELETE FROM delivery_products WHERE delivery_id IN ?", ids).Error; err != nil {
		return err
	}
	if err := tx.Exec("DELETE FROM delivery_bags WHERE delivery_id IN ?", ids).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", ids).Delete(&models.Delivery{}).Error
}
