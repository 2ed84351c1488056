package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/services"

	"github.com/gin-gonic/gin"
)

// DriverHandler serves the authenticated driver portal. Every lookup is
// scoped to the session's driver.
type DriverHandler struct {
	dispatch services.DispatchService
	workflow services.WorkflowService
}

func NewDriverHandler(dispatch services.DispatchService, workflow services.WorkflowService) *DriverHandler {
	return &DriverHandler{dispatch: dispatch, workflow: workflow}
}

func (h *DriverHandler) Home(c *gin.Context) {
	overview, err := h.dispatch.DriverOverview(c.Request.Context(), currentSession(c).DriverID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, overview)
}

func (h *DriverHandler) loadSheet(c *gin.Context) (*models.RouteSheet, bool) {
	id, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}
	sheet, err := h.dispatch.GetDriverSheet(c.Request.Context(), currentSession(c).DriverID, id)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return sheet, true
}

func (h *DriverHandler) ShowSheet(c *gin.Context) {
	sheet, ok := h.loadSheet(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sheetDetail(sheet))
}

func (h *DriverHandler) SheetAction(c *gin.Context) {
	sheet, ok := h.loadSheet(c)
	if !ok {
		return
	}
	if !applySheetAction(c, h.workflow, sheet, c.PostForm("action")) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": sheet.ID, "status": sheet.Status})
}

func (h *DriverHandler) Observations(c *gin.Context) {
	sheet, ok := h.loadSheet(c)
	if !ok {
		return
	}
	recordObservations(c, h.workflow, sheet, c.PostForm("observations"))
}

func (h *DriverHandler) UpdateDeliveryStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	delivery, err := h.dispatch.GetDriverDelivery(c.Request.Context(), currentSession(c).DriverID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	updateDeliveryStatus(c, h.workflow, delivery)
}

// sheetDetail is the sheet plus its summary, as both driver views return it.
func sheetDetail(sheet *models.RouteSheet) gin.H {
	return gin.H{
		"sheet":        sheet,
		"status_label": models.RouteSheetStatus(sheet.Status).Label(),
		"summary":      services.SummarizeSheet(sheet),
	}
}

func applySheetAction(c *gin.Context, workflow services.WorkflowService, sheet *models.RouteSheet, raw string) bool {
	action, err := services.ParseSheetAction(raw)
	if err != nil {
		respondError(c, err)
		return false
	}
	if err := workflow.TransitionRouteSheet(c.Request.Context(), sheet, action); err != nil {
		respondError(c, err)
		return false
	}
	return true
}

func recordObservations(c *gin.Context, workflow services.WorkflowService, sheet *models.RouteSheet, text string) {
	recorded, err := workflow.RecordObservations(c.Request.Context(), sheet, text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recorded":        recorded,
		"observations":    sheet.Observations,
		"observations_at": sheet.ObservationsAt,
	})
}

// updateDeliveryStatus reads the status form, including optional "photo" and
// "signature_image" files and "signature_data" text.
func updateDeliveryStatus(c *gin.Context, workflow services.WorkflowService, delivery *models.Delivery) {
	var att services.Attachments
	att.SignatureData = c.PostForm("signature_data")

	for field, target := range map[string]**services.Upload{
		"photo":           &att.Photo,
		"signature_image": &att.SignatureImage,
	} {
		fh, err := c.FormFile(field)
		if err != nil {
			if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
				continue
			}
			badRequest(c, fmt.Sprintf("Invalid %s upload", field))
			return
		}
		f, err := fh.Open()
		if err != nil {
			badRequest(c, fmt.Sprintf("Invalid %s upload", field))
			return
		}
		defer f.Close()
		*target = &services.Upload{Filename: fh.Filename, Content: f}
	}

	applied, err := workflow.UpdateDeliveryStatus(c.Request.Context(), delivery, c.PostForm("status"), att)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"delivery":       delivery,
		"status_applied": applied,
		"status_label":   models.DeliveryStatus(delivery.Status).Label(),
	})
}
