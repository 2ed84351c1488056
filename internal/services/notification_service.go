package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"delivery_tracker/internal/models"

	"go.uber.org/zap"
)

var (
	ErrNotificationsDisabled = errors.New("client notifications are not configured")
	ErrNoClientPhone         = errors.New("client has no phone number")
)

// Notifier tells clients about their deliveries. The workflow hooks log their
// own failures and never fail the request that triggered them.
type Notifier interface {
	RouteStarted(ctx context.Context, sheet *models.RouteSheet)
	DeliveryCompleted(ctx context.Context, delivery *models.Delivery)
	// SendTrackingLink is the explicit, staff-triggered send; its error is returned.
	SendTrackingLink(ctx context.Context, delivery *models.Delivery) error
}

// MessageSender is the slice of the WhatsApp gateway client the notifier needs.
type MessageSender interface {
	SendTextMessage(ctx context.Context, phone, message string) error
}

type noopNotifier struct{}

func NewNoopNotifier() Notifier { return noopNotifier{} }

func (noopNotifier) RouteStarted(context.Context, *models.RouteSheet)    {}
func (noopNotifier) DeliveryCompleted(context.Context, *models.Delivery) {}

func (noopNotifier) SendTrackingLink(context.Context, *models.Delivery) error {
	return ErrNotificationsDisabled
}

// RouteStartTimeout bounds all route-start messages for one sheet together.
const RouteStartTimeout = 15 * time.Second

type whatsappNotifier struct {
	sender       MessageSender
	baseURL      string
	logger       *zap.Logger
	routeTimeout time.Duration
}

func NewWhatsAppNotifier(sender MessageSender, publicBaseURL string, logger *zap.Logger) Notifier {
	return &whatsappNotifier{
		sender:       sender,
		baseURL:      strings.TrimRight(publicBaseURL, "/"),
		logger:       logger,
		routeTimeout: RouteStartTimeout,
	}
}

// RouteStarted runs inside the driver's start request, so every send shares
// one deadline. Deliveries left when it expires are skipped.
func (n *whatsappNotifier) RouteStarted(ctx context.Context, sheet *models.RouteSheet) {
	ctx, cancel := context.WithTimeout(ctx, n.routeTimeout)
	defer cancel()

	for i := range sheet.Deliveries {
		d := &sheet.Deliveries[i]
		if models.DeliveryStatus(d.Status) != models.DeliveryInProgress {
			continue
		}
		if ctx.Err() != nil {
			n.logger.Warn("route start notifications cut short",
				zap.Uint("sheet_id", sheet.ID),
				zap.Int("skipped", len(sheet.Deliveries)-i),
				zap.Error(ctx.Err()))
			return
		}
		msg := fmt.Sprintf("Your order %s is on its way. Follow it here: %s%s",
			d.OrderReference, n.baseURL, d.TrackingPath())
		n.send(ctx, d, msg)
	}
}

func (n *whatsappNotifier) DeliveryCompleted(ctx context.Context, delivery *models.Delivery) {
	msg := fmt.Sprintf("Your order %s has been delivered. Details: %s%s",
		delivery.OrderReference, n.baseURL, delivery.TrackingPath())
	n.send(ctx, delivery, msg)
}

func (n *whatsappNotifier) SendTrackingLink(ctx context.Context, delivery *models.Delivery) error {
	if delivery.Client.Phone == "" {
		return ErrNoClientPhone
	}
	msg := fmt.Sprintf("Track your order %s here: %s%s",
		delivery.OrderReference, n.baseURL, delivery.TrackingPath())
	if err := n.sender.SendTextMessage(ctx, delivery.Client.Phone, msg); err != nil {
		return fmt.Errorf("failed to send tracking link: %w", err)
	}
	n.logger.Info("tracking link sent", zap.Uint("delivery_id", delivery.ID))
	return nil
}

func (n *whatsappNotifier) send(ctx context.Context, d *models.Delivery, msg string) {
	if d.Client.Phone == "" {
		return
	}
	if err := n.sender.SendTextMessage(ctx, d.Client.Phone, msg); err != nil {
		n.logger.Warn("client notification failed",
			zap.Uint("delivery_id", d.ID),
			zap.String("order_reference", d.OrderReference),
			zap.Error(err))
		return
	}
	n.logger.Debug("client notified", zap.Uint("delivery_id", d.ID))
}
