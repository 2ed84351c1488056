package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"delivery_tracker/internal/migrations"
	"delivery_tracker/internal/models"
	"delivery_tracker/internal/repository"
	"delivery_tracker/internal/storage"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var fixedNow = time.Date(2026, 10, 15, 9, 30, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(migrations.Models()...))
	return db
}

type testEnv struct {
	db         *gorm.DB
	users      repository.UserRepository
	drivers    repository.DriverRepository
	vehicles   repository.VehicleRepository
	clients    repository.ClientRepository
	products   repository.ProductRepository
	bags       repository.BagRepository
	sheets     repository.RouteSheetRepository
	deliveries repository.DeliveryRepository
	fs         afero.Fs
	blobs      storage.BlobStore
	notifier   *recordingNotifier
	clock      *testClock
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	fs := afero.NewMemMapFs()
	return &testEnv{
		db:         db,
		users:      repository.NewUserRepository(db),
		drivers:    repository.NewDriverRepository(db),
		vehicles:   repository.NewVehicleRepository(db),
		clients:    repository.NewClientRepository(db),
		products:   repository.NewProductRepository(db),
		bags:       repository.NewBagRepository(db),
		sheets:     repository.NewRouteSheetRepository(db),
		deliveries: repository.NewDeliveryRepository(db),
		fs:         fs,
		blobs:      storage.NewFSStore(fs),
		notifier:   &recordingNotifier{},
		clock:      &testClock{now: fixedNow},
	}
}

func (e *testEnv) workflow() WorkflowService {
	return NewWorkflowService(e.sheets, e.deliveries, e.blobs, e.notifier, zap.NewNop(), e.clock.Now)
}

func (e *testEnv) dispatch() DispatchService {
	return NewDispatchService(DispatchDeps{
		Sheets:     e.sheets,
		Deliveries: e.deliveries,
		Drivers:    e.drivers,
		Vehicles:   e.vehicles,
		Clients:    e.clients,
		Products:   e.products,
		Bags:       e.bags,
		Blobs:      e.blobs,
	}, "https://dispatch.example.com/", zap.NewNop(), e.clock.Now)
}

func (e *testEnv) reports() ReportService {
	return NewReportService(e.sheets, e.deliveries, time.UTC, e.clock.Now)
}

func (e *testEnv) driver(t *testing.T, username, first, last string) *models.Driver {
	t.Helper()
	d := &models.Driver{
		User:  models.User{Username: username, FirstName: first, LastName: last, PasswordHash: "x", Role: string(models.RoleDriver), IsActive: true},
		Phone: "+221770000000",
	}
	require.NoError(t, e.drivers.Create(context.Background(), d))
	return d
}

func (e *testEnv) vehicle(t *testing.T, make_, model, plate string) *models.Vehicle {
	t.Helper()
	v := &models.Vehicle{Make: make_, Model: model, Plate: plate, IsActive: true}
	require.NoError(t, e.vehicles.Create(context.Background(), v))
	return v
}

func (e *testEnv) client(t *testing.T, name string) *models.Client {
	t.Helper()
	c := &models.Client{Name: name, Address: "1 main street", Phone: "770000001"}
	require.NoError(t, e.clients.Create(context.Background(), c))
	return c
}

func (e *testEnv) product(t *testing.T, name, price string) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, UnitPrice: decimal.RequireFromString(price), IsActive: true}
	require.NoError(t, e.products.Create(context.Background(), p))
	return p
}

func (e *testEnv) sheet(t *testing.T, driver *models.Driver, vehicle *models.Vehicle, day time.Time, status models.RouteSheetStatus) *models.RouteSheet {
	t.Helper()
	date := models.DateOf(day)
	s := &models.RouteSheet{
		DriverID:  driver.ID,
		RouteDate: &date,
		Status:    string(status),
		Token:     uuid.New(),
	}
	if vehicle != nil {
		s.VehicleID = &vehicle.ID
	}
	require.NoError(t, e.sheets.Create(context.Background(), s))
	return s
}

func (e *testEnv) delivery(t *testing.T, sheet *models.RouteSheet, client *models.Client, qty int, status models.DeliveryStatus, products ...models.Product) *models.Delivery {
	t.Helper()
	d := &models.Delivery{
		RouteSheetID:   sheet.ID,
		ClientID:       client.ID,
		OrderReference: fmt.Sprintf("CMD-%d-%d", sheet.ID, len(products)+qty),
		Quantity:       qty,
		Status:         string(status),
		PublicToken:    uuid.New(),
		Products:       products,
	}
	require.NoError(t, e.deliveries.Create(context.Background(), d))
	return d
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingNotifier struct {
	mu        sync.Mutex
	started   []uint
	completed []uint
}

func (n *recordingNotifier) RouteStarted(_ context.Context, sheet *models.RouteSheet) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.started = append(n.started, sheet.ID)
}

func (n *recordingNotifier) DeliveryCompleted(_ context.Context, d *models.Delivery) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.completed = append(n.completed, d.ID)
}

func (n *recordingNotifier) SendTrackingLink(context.Context, *models.Delivery) error {
	return nil
}
