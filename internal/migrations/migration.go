package migrations

import (
	"context"
	"errors"
	"fmt"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Models lists every table the application owns, in dependency order.
func Models() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Driver{},
		&models.Vehicle{},
		&models.Client{},
		&models.Product{},
		&models.Bag{},
		&models.RouteSheet{},
		&models.Delivery{},
	}
}

// RunMigrations brings the schema up to date. Existing data is kept.
func RunMigrations(db *gorm.DB, logger *zap.Logger) error {
	logger.Info("running database migrations")
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("database migrations completed")
	return nil
}

// EnsureAdmin creates the default admin account unless the username exists.
func EnsureAdmin(ctx context.Context, db *gorm.DB, username, password string, logger *zap.Logger) error {
	userRepo := repository.NewUserRepository(db)

	_, err := userRepo.GetByUsername(ctx, username)
	if err == nil {
		logger.Debug("admin user already exists", zap.String("username", username))
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}
	admin := &models.User{
		Username:     username,
		FirstName:    "Admin",
		PasswordHash: string(hash),
		Role:         string(models.RoleAdmin),
		IsActive:     true,
	}
	if err := userRepo.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}
	logger.Info("admin user created", zap.String("username", username))
	return nil
}

// SeedDemo loads a small catalog to click around with. It does nothing when
// any product already exists.
func SeedDemo(ctx context.Context, db *gorm.DB, logger *zap.Logger) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if count > 0 {
		logger.Info("catalog already populated, skipping demo seed")
		return nil
	}

	productRepo := repository.NewProductRepository(db)
	bagRepo := repository.NewBagRepository(db)
	vehicleRepo := repository.NewVehicleRepository(db)
	clientRepo := repository.NewClientRepository(db)

	products := []models.Product{
		{Name: "Water 1.5L", Description: "Pack of six bottles", UnitPrice: decimal.RequireFromString("1500.00"), IsActive: true},
		{Name: "Rice 25kg", Description: "Long grain", UnitPrice: decimal.RequireFromString("17500.00"), IsActive: true},
		{Name: "Cooking oil 5L", UnitPrice: decimal.RequireFromString("6000.00"), IsActive: true},
	}
	for i := range products {
		if err := productRepo.Create(ctx, &products[i]); err != nil {
			return fmt.Errorf("failed to seed product %q: %w", products[i].Name, err)
		}
	}

	bags := []models.Bag{
		{Name: "Cooler", Capacity: "30L", Color: "blue", IsActive: true},
		{Name: "Crate", Capacity: "50kg", Color: "grey", IsActive: true},
	}
	for i := range bags {
		if err := bagRepo.Create(ctx, &bags[i]); err != nil {
			return fmt.Errorf("failed to seed bag %q: %w", bags[i].Name, err)
		}
	}

	vehicle := &models.Vehicle{Make: "Toyota", Model: "Hiace", Plate: "DK-1024-AB", Year: 2019, Color: "white", Capacity: "1.2t", IsActive: true}
	if err := vehicleRepo.Create(ctx, vehicle); err != nil {
		return fmt.Errorf("failed to seed vehicle: %w", err)
	}

	clients := []models.Client{
		{Name: "Boutique Ndiaye", Address: "12 rue Carnot", Phone: "+221770000001"},
		{Name: "Restaurant Le Baobab", Address: "4 avenue Pompidou", Phone: "+221770000002"},
	}
	for i := range clients {
		if err := clientRepo.Create(ctx, &clients[i]); err != nil {
			return fmt.Errorf("failed to seed client %q: %w", clients[i].Name, err)
		}
	}

	logger.Info("demo catalog seeded",
		zap.Int("products", len(products)),
		zap.Int("bags", len(bags)),
		zap.Int("clients", len(clients)))
	return nil
}
