package handlers

import (
	"errors"
	"io"
	"net/http"
	"time"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/services"
	"delivery_tracker/internal/storage"

	"github.com/gin-gonic/gin"
	"gorm.io/datatypes"
)

// TokenHandler serves the unauthenticated, token-addressed endpoints: the
// driver's mobile sheet behind the QR code and the client tracking page.
type TokenHandler struct {
	dispatch services.DispatchService
	workflow services.WorkflowService
	position services.PositionService
	blobs    storage.BlobStore
}

func NewTokenHandler(
	dispatch services.DispatchService,
	workflow services.WorkflowService,
	position services.PositionService,
	blobs storage.BlobStore,
) *TokenHandler {
	return &TokenHandler{dispatch: dispatch, workflow: workflow, position: position, blobs: blobs}
}

func (h *TokenHandler) loadSheet(c *gin.Context) (*models.RouteSheet, bool) {
	sheet, err := h.dispatch.GetRouteSheetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return sheet, true
}

func (h *TokenHandler) ShowSheet(c *gin.Context) {
	sheet, ok := h.loadSheet(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sheetDetail(sheet))
}

// UpdateSheet accepts either an "action" or an "observations" form field.
func (h *TokenHandler) UpdateSheet(c *gin.Context) {
	sheet, ok := h.loadSheet(c)
	if !ok {
		return
	}

	if action := c.PostForm("action"); action != "" {
		if !applySheetAction(c, h.workflow, sheet, action) {
			return
		}
		c.JSON(http.StatusOK, sheetDetail(sheet))
		return
	}
	if text, ok := c.GetPostForm("observations"); ok {
		recordObservations(c, h.workflow, sheet, text)
		return
	}
	badRequest(c, "Nothing to update")
}

func (h *TokenHandler) QRCode(c *gin.Context) {
	sheet, ok := h.loadSheet(c)
	if !ok {
		return
	}
	if err := h.dispatch.EnsureQRCode(c.Request.Context(), sheet, false); err != nil {
		respondError(c, err)
		return
	}

	f, err := h.blobs.Open(c.Request.Context(), sheet.QRCode)
	if errors.Is(err, storage.ErrBlobNotFound) {
		// Stored reference outlived the file.
		if err = h.dispatch.EnsureQRCode(c.Request.Context(), sheet, true); err == nil {
			f, err = h.blobs.Open(c.Request.Context(), sheet.QRCode)
		}
	}
	if err != nil {
		respondError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "image/png")
	c.Header("Cache-Control", "private, max-age=3600")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, f); err != nil {
		_ = c.Error(err)
	}
}

// Position records a GPS fix and always answers with {ok, error?}.
func (h *TokenHandler) Position(c *gin.Context) {
	sheet, err := h.dispatch.GetRouteSheetByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "route sheet not found"})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
		return
	}

	err = h.position.RecordPosition(c.Request.Context(), sheet, formOrQuery(c, "lat"), formOrQuery(c, "lng"))
	if err != nil {
		var invalid *services.InvalidInputError
		if errors.As(err, &invalid) {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": invalid.Reason})
			return
		}
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// formOrQuery reads a form field, falling back to the query string.
func formOrQuery(c *gin.Context, key string) string {
	if v := c.PostForm(key); v != "" {
		return v
	}
	return c.Query(key)
}

// DeliveryStatus updates a delivery that belongs to the token's sheet.
func (h *TokenHandler) DeliveryStatus(c *gin.Context) {
	sheet, ok := h.loadSheet(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	delivery, err := h.dispatch.GetSheetDelivery(c.Request.Context(), sheet, id)
	if err != nil {
		respondError(c, err)
		return
	}
	updateDeliveryStatus(c, h.workflow, delivery)
}

// TrackingView is what a client sees. It leaves out proof artifacts and
// anything about other deliveries on the sheet.
type TrackingView struct {
	OrderReference string          `json:"order_reference"`
	Client         string          `json:"client"`
	Status         string          `json:"status"`
	StatusLabel    string          `json:"status_label"`
	Quantity       int             `json:"quantity"`
	EstimatedTime  *datatypes.Time `json:"estimated_time"`
	DeliveredAt    *time.Time      `json:"delivered_at"`
	RouteDate      *time.Time      `json:"route_date"`
	Driver         string          `json:"driver,omitempty"`
	SheetStatus    string          `json:"sheet_status,omitempty"`
	LastLatitude   *float64        `json:"last_latitude,omitempty"`
	LastLongitude  *float64        `json:"last_longitude,omitempty"`
	LastPositionAt *time.Time      `json:"last_position_at,omitempty"`
	Products       []string        `json:"products"`
}

func newTrackingView(d *models.Delivery) TrackingView {
	view := TrackingView{
		OrderReference: d.OrderReference,
		Client:         d.Client.Name,
		Status:         d.Status,
		StatusLabel:    models.DeliveryStatus(d.Status).Label(),
		Quantity:       d.Quantity,
		EstimatedTime:  d.EstimatedTime,
		DeliveredAt:    d.DeliveredAt,
		Products:       make([]string, 0, len(d.Products)),
	}
	for _, p := range d.Products {
		view.Products = append(view.Products, p.Name)
	}
	if sheet := d.RouteSheet; sheet != nil {
		view.RouteDate = sheet.RouteDate
		view.Driver = sheet.Driver.User.FirstName
		view.SheetStatus = sheet.Status
		// Live position only while the van is out and the parcel is not yet dropped.
		if models.RouteSheetStatus(sheet.Status) == models.SheetEnRoute &&
			models.DeliveryStatus(d.Status) == models.DeliveryInProgress {
			view.LastLatitude = sheet.LastLatitude
			view.LastLongitude = sheet.LastLongitude
			view.LastPositionAt = sheet.LastPositionAt
		}
	}
	return view
}

func (h *TokenHandler) Track(c *gin.Context) {
	delivery, err := h.dispatch.GetDeliveryByToken(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newTrackingView(delivery))
}
