package repository

import (
	"context"

	"delivery_tracker/internal/models"

	"gorm.io/gorm"
)

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *models.Vehicle) error
	GetByID(ctx context.Context, id uint) (*models.Vehicle, error)
	GetAll(ctx context.Context, activeOnly bool) ([]models.Vehicle, error)
	Update(ctx context.Context, vehicle *models.Vehicle) error
}

type vehicleRepository struct {
	db *gorm.DB
}

func NewVehicleRepository(db *gorm.DB) VehicleRepository {
	return &vehicleRepository{db: db}
}

func (r *vehicleRepository) Create(ctx context.Context, vehicle *models.Vehicle) error {
	return r.db.WithContext(ctx).Create(vehicle).Error
}

func (r *vehicleRepository) GetByID(ctx context.Context, id uint) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	err := r.db.WithContext(ctx).First(&vehicle, id).Error
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

func (r *vehicleRepository) GetAll(ctx context.Context, activeOnly bool) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	q := r.db.WithContext(ctx).Order("plate")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&vehicles).Error
	return vehicles, err
}

func (r *vehicleRepository) Update(ctx context.Context, vehicle *models.Vehicle) error {
	return r.db.WithContext(ctx).Save(vehicle).Error
}

type ClientRepository interface {
	Create(ctx context.Context, client *models.Client) error
	GetByID(ctx context.Context, id uint) (*models.Client, error)
	GetAll(ctx context.Context) ([]models.Client, error)
	Update(ctx context.Context, client *models.Client) error
}

type clientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) ClientRepository {
	return &clientRepository{db: db}
}

func (r *clientRepository) Create(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Create(client).Error
}

func (r *clientRepository) GetByID(ctx context.Context, id uint) (*models.Client, error) {
	var client models.Client
	err := r.db.WithContext(ctx).First(&client, id).Error
	if err != nil {
		return nil, err
	}
	return &client, nil
}

func (r *clientRepository) GetAll(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := r.db.WithContext(ctx).Order("name").Find(&clients).Error
	return clients, err
}

func (r *clientRepository) Update(ctx context.Context, client *models.Client) error {
	return r.db.WithContext(ctx).Save(client).Error
}

type ProductRepository interface {
	Create(ctx context.Context, product *models.Product) error
	GetByID(ctx context.Context, id uint) (*models.Product, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error)
	GetAll(ctx context.Context, activeOnly bool) ([]models.Product, error)
	Update(ctx context.Context, product *models.Product) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Create(product).Error
}

func (r *productRepository) GetByID(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).First(&product, id).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Product, error) {
	var products []models.Product
	if len(ids) == 0 {
		return products, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name").Find(&products).Error
	return products, err
}

func (r *productRepository) GetAll(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	var products []models.Product
	q := r.db.WithContext(ctx).Order("name")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&products).Error
	return products, err
}

func (r *productRepository) Update(ctx context.Context, product *models.Product) error {
	return r.db.WithContext(ctx).Save(product).Error
}

type BagRepository interface {
	Create(ctx context.Context, bag *models.Bag) error
	GetByID(ctx context.Context, id uint) (*models.Bag, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Bag, error)
	GetAll(ctx context.Context, activeOnly bool) ([]models.Bag, error)
	Update(ctx context.Context, bag *models.Bag) error
}

type bagRepository struct {
	db *gorm.DB
}

func NewBagRepository(db *gorm.DB) BagRepository {
	return &bagRepository{db: db}
}

func (r *bagRepository) Create(ctx context.Context, bag *models.Bag) error {
	return r.db.WithContext(ctx).Create(bag).Error
}

func (r *bagRepository) GetByID(ctx context.Context, id uint) (*models.Bag, error) {
	var bag models.Bag
	err := r.db.WithContext(ctx).First(&bag, id).Error
	if err != nil {
		return nil, err
	}
	return &bag, nil
}

func (r *bagRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Bag, error) {
	var bags []models.Bag
	if len(ids) == 0 {
		return bags, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name").Find(&bags).Error
	return bags, err
}

func (r *bagRepository) GetAll(ctx context.Context, activeOnly bool) ([]models.Bag, error) {
	var bags []models.Bag
	q := r.db.WithContext(ctx).Order("name")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	err := q.Find(&bags).Error
	return bags, err
}

func (r *bagRepository) Update(ctx context.Context, bag *models.Bag) error {
	return r.db.WithContext(ctx).Save(bag).Error
}
