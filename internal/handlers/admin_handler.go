package handlers

import (
	"net/http"
	"strings"
	"time"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler is the staff back office for people, catalog, route sheets
// and deliveries.
type AdminHandler struct {
	catalog  services.CatalogService
	dispatch services.DispatchService
}

func NewAdminHandler(catalog services.CatalogService, dispatch services.DispatchService) *AdminHandler {
	return &AdminHandler{catalog: catalog, dispatch: dispatch}
}

func bindJSON(c *gin.Context, v interface{}) bool {
	if err := c.ShouldBindJSON(v); err != nil {
		badRequest(c, "Invalid request format")
		return false
	}
	return true
}

// Drivers

func (h *AdminHandler) ListDrivers(c *gin.Context) {
	drivers, err := h.catalog.ListDrivers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"drivers": drivers})
}

func (h *AdminHandler) GetDriver(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	driver, err := h.catalog.GetDriver(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

func (h *AdminHandler) CreateDriver(c *gin.Context) {
	var req services.DriverInput
	if !bindJSON(c, &req) {
		return
	}
	driver, err := h.catalog.CreateDriver(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, driver)
}

func (h *AdminHandler) UpdateDriver(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.DriverInput
	if !bindJSON(c, &req) {
		return
	}
	driver, err := h.catalog.UpdateDriver(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, driver)
}

// CreateStaffUser is limited to admins.
func (h *AdminHandler) CreateStaffUser(c *gin.Context) {
	if currentSession(c).Role != string(models.RoleAdmin) {
		respondError(c, services.ErrForbidden)
		return
	}
	var req services.StaffInput
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.catalog.CreateStaffUser(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// Vehicles

func (h *AdminHandler) ListVehicles(c *gin.Context) {
	vehicles, err := h.catalog.ListVehicles(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (h *AdminHandler) CreateVehicle(c *gin.Context) {
	var req services.VehicleInput
	if !bindJSON(c, &req) {
		return
	}
	vehicle, err := h.catalog.CreateVehicle(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, vehicle)
}

func (h *AdminHandler) UpdateVehicle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.VehicleInput
	if !bindJSON(c, &req) {
		return
	}
	vehicle, err := h.catalog.UpdateVehicle(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// Clients

func (h *AdminHandler) ListClients(c *gin.Context) {
	clients, err := h.catalog.ListClients(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"clients": clients})
}

func (h *AdminHandler) CreateClient(c *gin.Context) {
	var req services.ClientInput
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.catalog.CreateClient(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, client)
}

func (h *AdminHandler) UpdateClient(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.ClientInput
	if !bindJSON(c, &req) {
		return
	}
	client, err := h.catalog.UpdateClient(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, client)
}

// Products

func (h *AdminHandler) ListProducts(c *gin.Context) {
	products, err := h.catalog.ListProducts(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"products": products})
}

func (h *AdminHandler) CreateProduct(c *gin.Context) {
	var req services.ProductInput
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.catalog.CreateProduct(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.ProductInput
	if !bindJSON(c, &req) {
		return
	}
	product, err := h.catalog.UpdateProduct(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

// Bags

func (h *AdminHandler) ListBags(c *gin.Context) {
	bags, err := h.catalog.ListBags(c.Request.Context(), c.Query("active") == "true")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"bags": bags})
}

func (h *AdminHandler) CreateBag(c *gin.Context) {
	var req services.BagInput
	if !bindJSON(c, &req) {
		return
	}
	bag, err := h.catalog.CreateBag(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bag)
}

func (h *AdminHandler) UpdateBag(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.BagInput
	if !bindJSON(c, &req) {
		return
	}
	bag, err := h.catalog.UpdateBag(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bag)
}

// Route sheets

type routeSheetRequest struct {
	DriverID  uint   `json:"driver_id"`
	VehicleID *uint  `json:"vehicle_id"`
	RouteDate string `json:"route_date"`
	Status    string `json:"status"`
}

func (r routeSheetRequest) input() (services.RouteSheetInput, bool) {
	in := services.RouteSheetInput{DriverID: r.DriverID, VehicleID: r.VehicleID, Status: r.Status}
	if s := strings.TrimSpace(r.RouteDate); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return in, false
		}
		in.RouteDate = &t
	}
	return in, true
}

func (h *AdminHandler) bindSheet(c *gin.Context) (services.RouteSheetInput, bool) {
	var req routeSheetRequest
	if !bindJSON(c, &req) {
		return services.RouteSheetInput{}, false
	}
	in, ok := req.input()
	if !ok {
		badRequest(c, "Invalid route_date, expected YYYY-MM-DD")
	}
	return in, ok
}

func (h *AdminHandler) GetRouteSheet(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	sheet, err := h.dispatch.GetRouteSheet(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"sheet":       sheet,
		"summary":     services.SummarizeSheet(sheet),
		"driver_path": sheet.DriverPath(),
	})
}

func (h *AdminHandler) CreateRouteSheet(c *gin.Context) {
	in, ok := h.bindSheet(c)
	if !ok {
		return
	}
	sheet, err := h.dispatch.CreateRouteSheet(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, sheet)
}

func (h *AdminHandler) UpdateRouteSheet(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	in, ok := h.bindSheet(c)
	if !ok {
		return
	}
	sheet, err := h.dispatch.UpdateRouteSheet(c.Request.Context(), id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, sheet)
}

func (h *AdminHandler) DeleteRouteSheet(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.dispatch.DeleteRouteSheet(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Deliveries

func (h *AdminHandler) GetDelivery(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	delivery, err := h.dispatch.GetDelivery(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"delivery":      delivery,
		"total_amount":  delivery.TotalAmount(),
		"tracking_path": delivery.TrackingPath(),
	})
}

func (h *AdminHandler) CreateDelivery(c *gin.Context) {
	sheetID, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.DeliveryInput
	if !bindJSON(c, &req) {
		return
	}
	delivery, err := h.dispatch.AddDelivery(c.Request.Context(), sheetID, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, delivery)
}

func (h *AdminHandler) UpdateDelivery(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req services.DeliveryInput
	if !bindJSON(c, &req) {
		return
	}
	delivery, err := h.dispatch.UpdateDelivery(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, delivery)
}

func (h *AdminHandler) DeleteDelivery(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.dispatch.DeleteDelivery(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
