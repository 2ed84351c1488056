package repository

import (
	"context"

	"delivery_tracker/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DriverRepository interface {
	// Create inserts the driver together with its user account.
	Create(ctx context.Context, driver *models.Driver) error
	GetByID(ctx context.Context, id uint) (*models.Driver, error)
	GetByUserID(ctx context.Context, userID uint) (*models.Driver, error)
	GetAll(ctx context.Context) ([]models.Driver, error)
	Update(ctx context.Context, driver *models.Driver) error
}

type driverRepository struct {
	db *gorm.DB
}

func NewDriverRepository(db *gorm.DB) DriverRepository {
	return &driverRepository{db: db}
}

func (r *driverRepository) Create(ctx context.Context, driver *models.Driver) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&driver.User).Error; err != nil {
			return err
		}
		driver.UserID = driver.User.ID
		return tx.Omit(clause.Associations).Create(driver).Error
	})
}

func (r *driverRepository) GetByID(ctx context.Context, id uint) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.WithContext(ctx).Preload("User").First(&driver, id).Error
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *driverRepository) GetByUserID(ctx context.Context, userID uint) (*models.Driver, error) {
	var driver models.Driver
	err := r.db.WithContext(ctx).Preload("User").Where("user_id = ?", userID).First(&driver).Error
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *driverRepository) GetAll(ctx context.Context) ([]models.Driver, error) {
	var drivers []models.Driver
	err := r.db.WithContext(ctx).
		Joins("User").
		Order(clause.OrderByColumn{Column: clause.Column{Table: "User", Name: "last_name"}}).
		Order(clause.OrderByColumn{Column: clause.Column{Table: "User", Name: "first_name"}}).
		Order("drivers.id").
		Find(&drivers).Error
	return drivers, err
}

func (r *driverRepository) Update(ctx context.Context, driver *models.Driver) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if driver.User.ID != 0 {
			if err := tx.Save(&driver.User).Error; err != nil {
				return err
			}
		}
		return tx.Omit(clause.Associations).Save(driver).Error
	})
}
