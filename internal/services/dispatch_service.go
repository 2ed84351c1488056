package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/qrcode"
	"delivery_tracker/internal/repository"
	"delivery_tracker/internal/storage"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

type RouteSheetInput struct {
	DriverID  uint       `json:"driver_id"`
	VehicleID *uint      `json:"vehicle_id"`
	RouteDate *time.Time `json:"route_date"`
	Status    string     `json:"status"`
}

type DeliveryInput struct {
	ClientID       uint   `json:"client_id"`
	OrderReference string `json:"order_reference"`
	Quantity       int    `json:"quantity"`
	// EstimatedTime is a time of day, "15:04" or "15:04:05"; empty clears it.
	EstimatedTime string `json:"estimated_time"`
	// Status defaults to in_progress on create and is left alone on update.
	Status     string `json:"status"`
	Notes      string `json:"notes"`
	ProductIDs []uint `json:"product_ids"`
	BagIDs     []uint `json:"bag_ids"`
}

// DriverOverview is what a driver sees on the portal home page.
type DriverOverview struct {
	Driver    *models.Driver      `json:"driver"`
	Sheets    []models.RouteSheet `json:"sheets"`
	Total     int                 `json:"total"`
	EnRoute   int                 `json:"en_route"`
	Completed int                 `json:"completed"`
}

type DispatchService interface {
	CreateRouteSheet(ctx context.Context, in RouteSheetInput) (*models.RouteSheet, error)
	UpdateRouteSheet(ctx context.Context, id uint, in RouteSheetInput) (*models.RouteSheet, error)
	DeleteRouteSheet(ctx context.Context, id uint) error
	GetRouteSheet(ctx context.Context, id uint) (*models.RouteSheet, error)
	GetRouteSheetByToken(ctx context.Context, token string) (*models.RouteSheet, error)
	// EnsureQRCode writes the sheet's QR image when it has none, or always
	// when force is set.
	EnsureQRCode(ctx context.Context, sheet *models.RouteSheet, force bool) error

	DriverOverview(ctx context.Context, driverID uint) (*DriverOverview, error)
	GetDriverSheet(ctx context.Context, driverID, sheetID uint) (*models.RouteSheet, error)
	GetDriverDelivery(ctx context.Context, driverID, deliveryID uint) (*models.Delivery, error)
	GetSheetDelivery(ctx context.Context, sheet *models.RouteSheet, deliveryID uint) (*models.Delivery, error)

	AddDelivery(ctx context.Context, sheetID uint, in DeliveryInput) (*models.Delivery, error)
	UpdateDelivery(ctx context.Context, id uint, in DeliveryInput) (*models.Delivery, error)
	DeleteDelivery(ctx context.Context, id uint) error
	GetDelivery(ctx context.Context, id uint) (*models.Delivery, error)
	GetDeliveryByToken(ctx context.Context, token string) (*models.Delivery, error)
}

type dispatchService struct {
	sheetRepo    repository.RouteSheetRepository
	deliveryRepo repository.DeliveryRepository
	driverRepo   repository.DriverRepository
	vehicleRepo  repository.VehicleRepository
	clientRepo   repository.ClientRepository
	productRepo  repository.ProductRepository
	bagRepo      repository.BagRepository
	blobs        storage.BlobStore
	baseURL      string
	logger       *zap.Logger
	now          func() time.Time
}

type DispatchDeps struct {
	Sheets     repository.RouteSheetRepository
	Deliveries repository.DeliveryRepository
	Drivers    repository.DriverRepository
	Vehicles   repository.VehicleRepository
	Clients    repository.ClientRepository
	Products   repository.ProductRepository
	Bags       repository.BagRepository
	Blobs      storage.BlobStore
}

func NewDispatchService(deps DispatchDeps, publicBaseURL string, logger *zap.Logger, now func() time.Time) DispatchService {
	if now == nil {
		now = time.Now
	}
	return &dispatchService{
		sheetRepo:    deps.Sheets,
		deliveryRepo: deps.Deliveries,
		driverRepo:   deps.Drivers,
		vehicleRepo:  deps.Vehicles,
		clientRepo:   deps.Clients,
		productRepo:  deps.Products,
		bagRepo:      deps.Bags,
		blobs:        deps.Blobs,
		baseURL:      strings.TrimRight(publicBaseURL, "/"),
		logger:       logger,
		now:          now,
	}
}

func (s *dispatchService) validateSheetInput(ctx context.Context, in *RouteSheetInput) error {
	if in.DriverID == 0 {
		return invalidInput("driver_id", "required")
	}
	if _, err := s.driverRepo.GetByID(ctx, in.DriverID); err != nil {
		if isNotFound(err) {
			return invalidInput("driver_id", "unknown driver")
		}
		return fmt.Errorf("failed to load driver: %w", err)
	}
	if in.VehicleID != nil {
		if _, err := s.vehicleRepo.GetByID(ctx, *in.VehicleID); err != nil {
			if isNotFound(err) {
				return invalidInput("vehicle_id", "unknown vehicle")
			}
			return fmt.Errorf("failed to load vehicle: %w", err)
		}
	}
	if in.Status == "" {
		in.Status = string(models.SheetPlanned)
	}
	if !models.RouteSheetStatus(in.Status).Valid() {
		return invalidInput("status", fmt.Sprintf("unknown status %q", in.Status))
	}
	if in.RouteDate != nil {
		d := models.DateOf(*in.RouteDate)
		in.RouteDate = &d
	}
	return nil
}

func (s *dispatchService) CreateRouteSheet(ctx context.Context, in RouteSheetInput) (*models.RouteSheet, error) {
	if err := s.validateSheetInput(ctx, &in); err != nil {
		return nil, err
	}

	sheet := &models.RouteSheet{
		DriverID:  in.DriverID,
		VehicleID: in.VehicleID,
		RouteDate: in.RouteDate,
		Status:    in.Status,
		Token:     uuid.New(),
	}
	if err := s.sheetRepo.Create(ctx, sheet); err != nil {
		return nil, fmt.Errorf("failed to create route sheet: %w", err)
	}
	if err := s.EnsureQRCode(ctx, sheet, true); err != nil {
		return nil, err
	}

	s.logger.Info("route sheet created",
		zap.Uint("sheet_id", sheet.ID),
		zap.Uint("driver_id", sheet.DriverID))
	return s.GetRouteSheet(ctx, sheet.ID)
}

func (s *dispatchService) UpdateRouteSheet(ctx context.Context, id uint, in RouteSheetInput) (*models.RouteSheet, error) {
	sheet, err := s.sheetRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "route sheet")
	}
	if in.Status == "" {
		in.Status = sheet.Status
	}
	if err := s.validateSheetInput(ctx, &in); err != nil {
		return nil, err
	}

	sheet.DriverID = in.DriverID
	sheet.VehicleID = in.VehicleID
	sheet.RouteDate = in.RouteDate
	sheet.Status = in.Status
	if err := s.sheetRepo.Update(ctx, sheet); err != nil {
		return nil, fmt.Errorf("failed to update route sheet: %w", err)
	}
	if err := s.EnsureQRCode(ctx, sheet, false); err != nil {
		return nil, err
	}
	return s.GetRouteSheet(ctx, id)
}

func (s *dispatchService) DeleteRouteSheet(ctx context.Context, id uint) error {
	sheet, err := s.sheetRepo.GetByID(ctx, id)
	if err != nil {
		return notFound(err, "route sheet")
	}
	if err := s.sheetRepo.Delete(ctx, id); err != nil {
		return notFound(err, "route sheet")
	}
	if err := s.blobs.Delete(ctx, sheet.QRCode); err != nil {
		s.logger.Warn("failed to remove route sheet QR code",
			zap.Uint("sheet_id", id), zap.Error(err))
	}
	return nil
}

func (s *dispatchService) GetRouteSheet(ctx context.Context, id uint) (*models.RouteSheet, error) {
	sheet, err := s.sheetRepo.GetWithDeliveries(ctx, id)
	if err != nil {
		return nil, notFound(err, "route sheet")
	}
	return sheet, nil
}

func (s *dispatchService) GetRouteSheetByToken(ctx context.Context, token string) (*models.RouteSheet, error) {
	t, err := uuid.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("route sheet: %w", ErrNotFound)
	}
	sheet, err := s.sheetRepo.GetByToken(ctx, t)
	if err != nil {
		return nil, notFound(err, "route sheet")
	}
	return sheet, nil
}

func (s *dispatchService) EnsureQRCode(ctx context.Context, sheet *models.RouteSheet, force bool) error {
	if sheet.QRCode != "" && !force {
		return nil
	}
	png, err := qrcode.PNG(s.baseURL+sheet.DriverPath(), qrcode.DefaultSize)
	if err != nil {
		return fmt.Errorf("failed to render QR code: %w", err)
	}
	ref, err := s.blobs.Save(ctx, "qr_codes", fmt.Sprintf("sheet_%d.png", sheet.ID), bytes.NewReader(png))
	if err != nil {
		return fmt.Errorf("failed to store QR code: %w", err)
	}
	if err := s.sheetRepo.UpdateFields(ctx, sheet.ID, map[string]interface{}{"qr_code": ref}); err != nil {
		return fmt.Errorf("failed to save QR code reference: %w", err)
	}
	sheet.QRCode = ref
	return nil
}

func (s *dispatchService) DriverOverview(ctx context.Context, driverID uint) (*DriverOverview, error) {
	driver, err := s.driverRepo.GetByID(ctx, driverID)
	if err != nil {
		return nil, notFound(err, "driver")
	}
	sheets, err := s.sheetRepo.GetByDriver(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to load driver sheets: %w", err)
	}

	overview := &DriverOverview{Driver: driver, Sheets: sheets, Total: len(sheets)}
	for _, sheet := range sheets {
		switch models.RouteSheetStatus(sheet.Status) {
		case models.SheetEnRoute:
			overview.EnRoute++
		case models.SheetCompleted:
			overview.Completed++
		}
	}
	return overview, nil
}

func (s *dispatchService) GetDriverSheet(ctx context.Context, driverID, sheetID uint) (*models.RouteSheet, error) {
	sheet, err := s.GetRouteSheet(ctx, sheetID)
	if err != nil {
		return nil, err
	}
	if sheet.DriverID != driverID {
		return nil, fmt.Errorf("route sheet: %w", ErrNotFound)
	}
	return sheet, nil
}

func (s *dispatchService) GetDriverDelivery(ctx context.Context, driverID, deliveryID uint) (*models.Delivery, error) {
	delivery, err := s.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.RouteSheet == nil || delivery.RouteSheet.DriverID != driverID {
		return nil, fmt.Errorf("delivery: %w", ErrNotFound)
	}
	return delivery, nil
}

func (s *dispatchService) GetSheetDelivery(ctx context.Context, sheet *models.RouteSheet, deliveryID uint) (*models.Delivery, error) {
	delivery, err := s.GetDelivery(ctx, deliveryID)
	if err != nil {
		return nil, err
	}
	if delivery.RouteSheetID != sheet.ID {
		return nil, fmt.Errorf("delivery: %w", ErrNotFound)
	}
	return delivery, nil
}

func (s *dispatchService) resolveDeliveryInput(ctx context.Context, in *DeliveryInput) (*datatypes.Time, []models.Product, []models.Bag, error) {
	in.OrderReference = strings.TrimSpace(in.OrderReference)
	if in.OrderReference == "" {
		return nil, nil, nil, invalidInput("order_reference", "required")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if in.Quantity < 0 {
		return nil, nil, nil, invalidInput("quantity", "must be a positive integer")
	}
	if in.Status != "" && !models.DeliveryStatus(in.Status).Valid() {
		return nil, nil, nil, invalidInput("status", fmt.Sprintf("unknown status %q", in.Status))
	}
	if _, err := s.clientRepo.GetByID(ctx, in.ClientID); err != nil {
		if isNotFound(err) {
			return nil, nil, nil, invalidInput("client_id", "unknown client")
		}
		return nil, nil, nil, fmt.Errorf("failed to load client: %w", err)
	}

	est, err := ParseTimeOfDay(in.EstimatedTime)
	if err != nil {
		return nil, nil, nil, err
	}

	var products []models.Product
	if len(in.ProductIDs) > 0 {
		products, err = s.productRepo.GetByIDs(ctx, in.ProductIDs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load products: %w", err)
		}
		if len(products) != len(uniqueIDs(in.ProductIDs)) {
			return nil, nil, nil, invalidInput("product_ids", "unknown product")
		}
	}
	var bags []models.Bag
	if len(in.BagIDs) > 0 {
		bags, err = s.bagRepo.GetByIDs(ctx, in.BagIDs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to load bags: %w", err)
		}
		if len(bags) != len(uniqueIDs(in.BagIDs)) {
			return nil, nil, nil, invalidInput("bag_ids", "unknown bag")
		}
	}
	return est, products, bags, nil
}

func (s *dispatchService) AddDelivery(ctx context.Context, sheetID uint, in DeliveryInput) (*models.Delivery, error) {
	if _, err := s.sheetRepo.GetByID(ctx, sheetID); err != nil {
		return nil, notFound(err, "route sheet")
	}
	est, products, bags, err := s.resolveDeliveryInput(ctx, &in)
	if err != nil {
		return nil, err
	}
	if in.Status == "" {
		in.Status = string(models.DeliveryInProgress)
	}

	delivery := &models.Delivery{
		RouteSheetID:   sheetID,
		ClientID:       in.ClientID,
		OrderReference: in.OrderReference,
		Quantity:       in.Quantity,
		EstimatedTime:  est,
		Notes:          in.Notes,
		PublicToken:    uuid.New(),
		Products:       products,
		Bags:           bags,
	}
	applyDeliveryStatus(delivery, in.Status, s.now())

	if err := s.deliveryRepo.Create(ctx, delivery); err != nil {
		return nil, fmt.Errorf("failed to create delivery: %w", err)
	}
	return s.GetDelivery(ctx, delivery.ID)
}

func (s *dispatchService) UpdateDelivery(ctx context.Context, id uint, in DeliveryInput) (*models.Delivery, error) {
	delivery, err := s.deliveryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "delivery")
	}
	est, products, bags, err := s.resolveDeliveryInput(ctx, &in)
	if err != nil {
		return nil, err
	}

	delivery.ClientID = in.ClientID
	delivery.OrderReference = in.OrderReference
	delivery.Quantity = in.Quantity
	delivery.EstimatedTime = est
	delivery.Notes = in.Notes
	applyDeliveryStatus(delivery, in.Status, s.now())

	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		return nil, fmt.Errorf("failed to update delivery: %w", err)
	}
	if err := s.deliveryRepo.ReplaceItems(ctx, delivery, products, bags); err != nil {
		return nil, fmt.Errorf("failed to update delivery items: %w", err)
	}
	return s.GetDelivery(ctx, id)
}

func (s *dispatchService) DeleteDelivery(ctx context.Context, id uint) error {
	if err := s.deliveryRepo.Delete(ctx, id); err != nil {
		return notFound(err, "delivery")
	}
	return nil
}

func (s *dispatchService) GetDelivery(ctx context.Context, id uint) (*models.Delivery, error) {
	delivery, err := s.deliveryRepo.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "delivery")
	}
	return delivery, nil
}

func (s *dispatchService) GetDeliveryByToken(ctx context.Context, token string) (*models.Delivery, error) {
	t, err := uuid.Parse(token)
	if err != nil {
		return nil, fmt.Errorf("delivery: %w", ErrNotFound)
	}
	delivery, err := s.deliveryRepo.GetByPublicToken(ctx, t)
	if err != nil {
		return nil, notFound(err, "delivery")
	}
	return delivery, nil
}

// ParseTimeOfDay reads "15:04" or "15:04:05". Blank input yields nil.
func ParseTimeOfDay(s string) (*datatypes.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"15:04", "15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			v := datatypes.NewTime(t.Hour(), t.Minute(), t.Second(), 0)
			return &v, nil
		}
	}
	return nil, invalidInput("estimated_time", "expected HH:MM")
}

func uniqueIDs(ids []uint) map[uint]struct{} {
	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
