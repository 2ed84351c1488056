package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"delivery_tracker/internal/config"
	"delivery_tracker/internal/export"
	"delivery_tracker/internal/migrations"
	"delivery_tracker/internal/models"
	"delivery_tracker/internal/redis"
	"delivery_tracker/internal/repository"
	"delivery_tracker/internal/services"
	"delivery_tracker/internal/storage"

	"github.com/gin-gonic/gin"
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

func init() {
	gin.SetMode(gin.TestMode)
}

func now() time.Time { return fixedNow }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:handlers_%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(migrations.Models()...))
	return db
}

type memorySessions struct {
	mu   sync.Mutex
	data map[string]redis.SessionData
}

func (m *memorySessions) SetSession(_ context.Context, id string, data *redis.SessionData, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = *data
	return nil
}

func (m *memorySessions) GetSession(_ context.Context, id string) (*redis.SessionData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[id]
	if !ok {
		return nil, redis.ErrSessionNotFound
	}
	return &d, nil
}

func (m *memorySessions) TouchSession(_ context.Context, id string, _ time.Duration) error {
	return nil
}

func (m *memorySessions) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

type testServer struct {
	router     *gin.Engine
	db         *gorm.DB
	drivers    repository.DriverRepository
	users      repository.UserRepository
	clients    repository.ClientRepository
	products   repository.ProductRepository
	sheets     repository.RouteSheetRepository
	deliveries repository.DeliveryRepository
	sessions   *memorySessions
	fs         afero.Fs
}

func newTestServer(t *testing.T) *testServer {
	db := setupTestDB(t)
	fs := afero.NewMemMapFs()
	blobs := storage.NewFSStore(fs)
	s := &testServer{
		db:         db,
		drivers:    repository.NewDriverRepository(db),
		users:      repository.NewUserRepository(db),
		clients:    repository.NewClientRepository(db),
		products:   repository.NewProductRepository(db),
		sheets:     repository.NewRouteSheetRepository(db),
		deliveries: repository.NewDeliveryRepository(db),
		sessions:   &memorySessions{data: map[string]redis.SessionData{}},
		fs:         fs,
	}
	vehicles := repository.NewVehicleRepository(db)
	bags := repository.NewBagRepository(db)
	log := zap.NewNop()
	notifier := services.NewNoopNotifier()

	dispatch := services.NewDispatchService(services.DispatchDeps{
		Sheets:     s.sheets,
		Deliveries: s.deliveries,
		Drivers:    s.drivers,
		Vehicles:   vehicles,
		Clients:    s.clients,
		Products:   s.products,
		Bags:       bags,
		Blobs:      blobs,
	}, "https://dispatch.example.com/", log, now)
	workflow := services.NewWorkflowService(s.sheets, s.deliveries, blobs, notifier, log, now)
	reports := services.NewReportService(s.sheets, s.deliveries, time.UTC, now)
	auth := services.NewAuthService(s.users, s.drivers, s.sessions, time.Hour, log, now)
	catalog := services.NewCatalogService(s.users, s.drivers, vehicles, s.clients, s.products, bags)

	s.router = gin.New()
	Register(s.router, Handlers{
		Auth:         auth,
		Login:        NewAuthHandler(auth, time.Hour, false),
		Driver:       NewDriverHandler(dispatch, workflow),
		Token:        NewTokenHandler(dispatch, workflow, services.NewPositionService(s.sheets, now), blobs),
		Staff:        NewStaffHandler(reports, config.Branding{SiteHeader: "Dispatch"}, export.Options{Currency: "FCFA", Location: time.UTC}, now),
		Admin:        NewAdminHandler(catalog, dispatch),
		Notification: NewNotificationHandler(dispatch, notifier),
	})
	return s
}

func (s *testServer) driver(t *testing.T, username string) *models.Driver {
	t.Helper()
	d := &models.Driver{
		User:  models.User{Username: username, FirstName: "Awa", LastName: "Diop", PasswordHash: "x", Role: string(models.RoleDriver), IsActive: true},
		Phone: "+221770000000",
	}
	require.NoError(t, s.drivers.Create(context.Background(), d))
	return d
}

func (s *testServer) sheet(t *testing.T, driver *models.Driver, status models.RouteSheetStatus) *models.RouteSheet {
	t.Helper()
	date := models.DateOf(fixedNow)
	sheet := &models.RouteSheet{DriverID: driver.ID, RouteDate: &date, Status: string(status), Token: uuid.New()}
	require.NoError(t, s.sheets.Create(context.Background(), sheet))
	return sheet
}

func (s *testServer) delivery(t *testing.T, sheet *models.RouteSheet, status models.DeliveryStatus) *models.Delivery {
	t.Helper()
	client := &models.Client{Name: "Boutique Ndiaye", Address: "Rue 10", Phone: "770000001"}
	require.NoError(t, s.clients.Create(context.Background(), client))
	product := &models.Product{Name: "Riz 25kg", UnitPrice: decimal.RequireFromString("12500"), IsActive: true}
	require.NoError(t, s.products.Create(context.Background(), product))
	d := &models.Delivery{
		RouteSheetID:   sheet.ID,
		ClientID:       client.ID,
		OrderReference: fmt.Sprintf("CMD-%d", client.ID),
		Quantity:       2,
		Status:         string(status),
		PublicToken:    uuid.New(),
		Products:       []models.Product{*product},
	}
	require.NoError(t, s.deliveries.Create(context.Background(), d))
	return d
}

// login opens a session directly in the store and returns its id.
func (s *testServer) login(role models.UserRole, driverID uint) string {
	id := uuid.NewString()
	_ = s.sessions.SetSession(context.Background(), id, &redis.SessionData{
		UserID:   1,
		Username: "tester",
		Role:     string(role),
		DriverID: driverID,
	}, time.Hour)
	return id
}

func (s *testServer) do(method, path, session string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if session != "" {
		req.Header.Set(SessionHeader, session)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) get(path, session string) *httptest.ResponseRecorder {
	return s.do(http.MethodGet, path, session, nil, "")
}

func (s *testServer) postForm(path, session string, form url.Values) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, path, session, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded")
}

func (s *testServer) sendJSON(method, path, session string, v interface{}) *httptest.ResponseRecorder {
	b, _ := json.Marshal(v)
	return s.do(method, path, session, strings.NewReader(string(b)), "application/json")
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func uintStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
