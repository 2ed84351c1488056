package services

import (
	"context"
	"fmt"
	"strings"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/repository"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

type DriverInput struct {
	Username           string `json:"username"`
	Password           string `json:"password"`
	FirstName          string `json:"first_name"`
	LastName           string `json:"last_name"`
	Email              string `json:"email"`
	Phone              string `json:"phone"`
	VehicleDescription string `json:"vehicle_description"`
	LicensePlate       string `json:"license_plate"`
	IsActive           *bool  `json:"is_active"`
}

type StaffInput struct {
	Username  string `json:"username"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Admin     bool   `json:"admin"`
}

type VehicleInput struct {
	Make     string `json:"make"`
	Model    string `json:"model"`
	Plate    string `json:"plate"`
	Year     int    `json:"year"`
	Color    string `json:"color"`
	Capacity string `json:"capacity"`
	IsActive *bool  `json:"is_active"`
}

type ClientInput struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
}

type ProductInput struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	IsActive    *bool           `json:"is_active"`
}

type BagInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Capacity    string `json:"capacity"`
	Color       string `json:"color"`
	IsActive    *bool  `json:"is_active"`
}

// CatalogService provisions the people and reference data route sheets are
// built from.
type CatalogService interface {
	CreateDriver(ctx context.Context, in DriverInput) (*models.Driver, error)
	UpdateDriver(ctx context.Context, id uint, in DriverInput) (*models.Driver, error)
	GetDriver(ctx context.Context, id uint) (*models.Driver, error)
	ListDrivers(ctx context.Context) ([]models.Driver, error)
	CreateStaffUser(ctx context.Context, in StaffInput) (*models.User, error)

	CreateVehicle(ctx context.Context, in VehicleInput) (*models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id uint, in VehicleInput) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, activeOnly bool) ([]models.Vehicle, error)

	CreateClient(ctx context.Context, in ClientInput) (*models.Client, error)
	UpdateClient(ctx context.Context, id uint, in ClientInput) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)

	CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error)
	UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error)
	ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error)

	CreateBag(ctx context.Context, in BagInput) (*models.Bag, error)
	UpdateBag(ctx context.Context, id uint, in BagInput) (*models.Bag, error)
	ListBags(ctx context.Context, activeOnly bool) ([]models.Bag, error)
}

type catalogService struct {
	userRepo    repository.UserRepository
	driverRepo  repository.DriverRepository
	vehicleRepo repository.VehicleRepository
	clientRepo  repository.ClientRepository
	productRepo repository.ProductRepository
	bagRepo     repository.BagRepository
}

func NewCatalogService(
	userRepo repository.UserRepository,
	driverRepo repository.DriverRepository,
	vehicleRepo repository.VehicleRepository,
	clientRepo repository.ClientRepository,
	productRepo repository.ProductRepository,
	bagRepo repository.BagRepository,
) CatalogService {
	return &catalogService{
		userRepo:    userRepo,
		driverRepo:  driverRepo,
		vehicleRepo: vehicleRepo,
		clientRepo:  clientRepo,
		productRepo: productRepo,
		bagRepo:     bagRepo,
	}
}

// HashPassword bcrypts a plain-text password with the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

func (s *catalogService) newUser(ctx context.Context, username, password string, role models.UserRole) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, invalidInput("username", "required")
	}
	if password == "" {
		return nil, invalidInput("password", "required")
	}
	if _, err := s.userRepo.GetByUsername(ctx, username); err == nil {
		return nil, invalidInput("username", "already taken")
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	return &models.User{
		Username:     username,
		PasswordHash: hash,
		Role:         string(role),
		IsActive:     true,
	}, nil
}

func (s *catalogService) CreateDriver(ctx context.Context, in DriverInput) (*models.Driver, error) {
	user, err := s.newUser(ctx, in.Username, in.Password, models.RoleDriver)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Email = strings.TrimSpace(in.Email)

	driver := &models.Driver{
		User:               *user,
		Phone:              strings.TrimSpace(in.Phone),
		VehicleDescription: in.VehicleDescription,
		LicensePlate:       in.LicensePlate,
	}
	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, fmt.Errorf("failed to create driver: %w", err)
	}
	return driver, nil
}

func (s *catalogService) UpdateDriver(ctx context.Context, id uint, in DriverInput) (*models.Driver, error) {
	driver, err := s.driverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "driver")
	}

	driver.User.FirstName = strings.TrimSpace(in.FirstName)
	driver.User.LastName = strings.TrimSpace(in.LastName)
	driver.User.Email = strings.TrimSpace(in.Email)
	if in.IsActive != nil {
		driver.User.IsActive = *in.IsActive
	}
	if in.Password != "" {
		hash, err := HashPassword(in.Password)
		if err != nil {
			return nil, err
		}
		driver.User.PasswordHash = hash
	}
	driver.Phone = strings.TrimSpace(in.Phone)
	driver.VehicleDescription = in.VehicleDescription
	driver.LicensePlate = in.LicensePlate

	if err := s.driverRepo.Update(ctx, driver); err != nil {
		return nil, fmt.Errorf("failed to update driver: %w", err)
	}
	return driver, nil
}

func (s *catalogService) GetDriver(ctx context.Context, id uint) (*models.Driver, error) {
	driver, err := s.driverRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "driver")
	}
	return driver, nil
}

func (s *catalogService) ListDrivers(ctx context.Context) ([]models.Driver, error) {
	return s.driverRepo.GetAll(ctx)
}

func (s *catalogService) CreateStaffUser(ctx context.Context, in StaffInput) (*models.User, error) {
	role := models.RoleStaff
	if in.Admin {
		role = models.RoleAdmin
	}
	user, err := s.newUser(ctx, in.Username, in.Password, role)
	if err != nil {
		return nil, err
	}
	user.FirstName = strings.TrimSpace(in.FirstName)
	user.LastName = strings.TrimSpace(in.LastName)
	user.Email = strings.TrimSpace(in.Email)

	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (in VehicleInput) validate() error {
	if strings.TrimSpace(in.Make) == "" {
		return invalidInput("make", "required")
	}
	if strings.TrimSpace(in.Model) == "" {
		return invalidInput("model", "required")
	}
	if strings.TrimSpace(in.Plate) == "" {
		return invalidInput("plate", "required")
	}
	return nil
}

func (in VehicleInput) apply(v *models.Vehicle) {
	v.Make = strings.TrimSpace(in.Make)
	v.Model = strings.TrimSpace(in.Model)
	v.Plate = strings.ToUpper(strings.TrimSpace(in.Plate))
	v.Year = in.Year
	v.Color = in.Color
	v.Capacity = in.Capacity
	if in.IsActive != nil {
		v.IsActive = *in.IsActive
	}
}

func (s *catalogService) CreateVehicle(ctx context.Context, in VehicleInput) (*models.Vehicle, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	vehicle := &models.Vehicle{IsActive: true}
	in.apply(vehicle)
	if err := s.vehicleRepo.Create(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to create vehicle: %w", err)
	}
	return vehicle, nil
}

func (s *catalogService) UpdateVehicle(ctx context.Context, id uint, in VehicleInput) (*models.Vehicle, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	vehicle, err := s.vehicleRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "vehicle")
	}
	in.apply(vehicle)
	if err := s.vehicleRepo.Update(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("failed to update vehicle: %w", err)
	}
	return vehicle, nil
}

func (s *catalogService) ListVehicles(ctx context.Context, activeOnly bool) ([]models.Vehicle, error) {
	return s.vehicleRepo.GetAll(ctx, activeOnly)
}

func (s *catalogService) CreateClient(ctx context.Context, in ClientInput) (*models.Client, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalidInput("name", "required")
	}
	client := &models.Client{
		Name:    strings.TrimSpace(in.Name),
		Address: in.Address,
		Phone:   strings.TrimSpace(in.Phone),
	}
	if err := s.clientRepo.Create(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

func (s *catalogService) UpdateClient(ctx context.Context, id uint, in ClientInput) (*models.Client, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalidInput("name", "required")
	}
	client, err := s.clientRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "client")
	}
	client.Name = strings.TrimSpace(in.Name)
	client.Address = in.Address
	client.Phone = strings.TrimSpace(in.Phone)
	if err := s.clientRepo.Update(ctx, client); err != nil {
		return nil, fmt.Errorf("failed to update client: %w", err)
	}
	return client, nil
}

func (s *catalogService) ListClients(ctx context.Context) ([]models.Client, error) {
	return s.clientRepo.GetAll(ctx)
}

func (in ProductInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return invalidInput("name", "required")
	}
	if in.UnitPrice.IsNegative() {
		return invalidInput("unit_price", "must not be negative")
	}
	return nil
}

func (s *catalogService) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	product := &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		UnitPrice:   in.UnitPrice.Round(2),
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if err := s.productRepo.Create(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return product, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	product, err := s.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "product")
	}
	product.Name = strings.TrimSpace(in.Name)
	product.Description = in.Description
	product.UnitPrice = in.UnitPrice.Round(2)
	if in.IsActive != nil {
		product.IsActive = *in.IsActive
	}
	if err := s.productRepo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return product, nil
}

func (s *catalogService) ListProducts(ctx context.Context, activeOnly bool) ([]models.Product, error) {
	return s.productRepo.GetAll(ctx, activeOnly)
}

func (s *catalogService) CreateBag(ctx context.Context, in BagInput) (*models.Bag, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalidInput("name", "required")
	}
	bag := &models.Bag{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Capacity:    in.Capacity,
		Color:       in.Color,
		IsActive:    in.IsActive == nil || *in.IsActive,
	}
	if err := s.bagRepo.Create(ctx, bag); err != nil {
		return nil, fmt.Errorf("failed to create bag: %w", err)
	}
	return bag, nil
}

func (s *catalogService) UpdateBag(ctx context.Context, id uint, in BagInput) (*models.Bag, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, invalidInput("name", "required")
	}
	bag, err := s.bagRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "bag")
	}
	bag.Name = strings.TrimSpace(in.Name)
	bag.Description = in.Description
	bag.Capacity = in.Capacity
	bag.Color = in.Color
	if in.IsActive != nil {
		bag.IsActive = *in.IsActive
	}
	if err := s.bagRepo.Update(ctx, bag); err != nil {
		return nil, fmt.Errorf("failed to update bag: %w", err)
	}
	return bag, nil
}

func (s *catalogService) ListBags(ctx context.Context, activeOnly bool) ([]models.Bag, error) {
	return s.bagRepo.GetAll(ctx, activeOnly)
}
