package handlers

import (
	"errors"
	"net/http"

	"delivery_tracker/internal/services"

	"github.com/gin-gonic/gin"
)

type NotificationHandler struct {
	dispatch services.DispatchService
	notifier services.Notifier
}

func NewNotificationHandler(dispatch services.DispatchService, notifier services.Notifier) *NotificationHandler {
	return &NotificationHandler{dispatch: dispatch, notifier: notifier}
}

// SendTrackingLink messages the delivery's client a link to its tracking page.
func (h *NotificationHandler) SendTrackingLink(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	delivery, err := h.dispatch.GetDelivery(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}

	err = h.notifier.SendTrackingLink(c.Request.Context(), delivery)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"sent": true, "tracking_path": delivery.TrackingPath()})
	case errors.Is(err, services.ErrNotificationsDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrNoClientPhone):
		badRequest(c, err.Error())
	default:
		respondError(c, err)
	}
}
