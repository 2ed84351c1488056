package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/repository"
	"delivery_tracker/internal/storage"

	"go.uber.org/zap"
)

// SheetAction is a driver-initiated route-sheet transition.
type SheetAction string

const (
	ActionStart       SheetAction = "start"
	ActionFinish      SheetAction = "finish"
	ActionFlagProblem SheetAction = "flag_problem"
)

// ParseSheetAction accepts both the short names and the form values the
// driver pages post (start_route, finish_route, problem_route).
func ParseSheetAction(s string) (SheetAction, error) {
	switch strings.TrimSpace(s) {
	case "start", "start_route":
		return ActionStart, nil
	case "finish", "finish_route":
		return ActionFinish, nil
	case "flag_problem", "problem_route", "problem":
		return ActionFlagProblem, nil
	}
	return "", invalidInput("action", fmt.Sprintf("unknown action %q", s))
}

func (a SheetAction) target() models.RouteSheetStatus {
	switch a {
	case ActionStart:
		return models.SheetEnRoute
	case ActionFinish:
		return models.SheetCompleted
	case ActionFlagProblem:
		return models.SheetProblem
	}
	return ""
}

// Upload is one file posted with a delivery update.
type Upload struct {
	Filename string
	Content  io.Reader
}

type Attachments struct {
	Photo          *Upload
	SignatureImage *Upload
	SignatureData  string
}

type WorkflowService interface {
	TransitionRouteSheet(ctx context.Context, sheet *models.RouteSheet, action SheetAction) error
	// RecordObservations stores the driver's notes; blank text is ignored and
	// reported as false.
	RecordObservations(ctx context.Context, sheet *models.RouteSheet, text string) (bool, error)
	// UpdateDeliveryStatus applies a status and any attachments. An
	// unrecognized status leaves the status untouched and returns false while
	// the attachments are still saved.
	UpdateDeliveryStatus(ctx context.Context, delivery *models.Delivery, status string, att Attachments) (bool, error)
}

type workflowService struct {
	sheetRepo    repository.RouteSheetRepository
	deliveryRepo repository.DeliveryRepository
	blobs        storage.BlobStore
	notifier     Notifier
	logger       *zap.Logger
	now          func() time.Time
}

func NewWorkflowService(
	sheetRepo repository.RouteSheetRepository,
	deliveryRepo repository.DeliveryRepository,
	blobs storage.BlobStore,
	notifier Notifier,
	logger *zap.Logger,
	now func() time.Time,
) WorkflowService {
	if notifier == nil {
		notifier = NewNoopNotifier()
	}
	if now == nil {
		now = time.Now
	}
	return &workflowService{
		sheetRepo:    sheetRepo,
		deliveryRepo: deliveryRepo,
		blobs:        blobs,
		notifier:     notifier,
		logger:       logger,
		now:          now,
	}
}

func (s *workflowService) TransitionRouteSheet(ctx context.Context, sheet *models.RouteSheet, action SheetAction) error {
	status := action.target()
	if status == "" {
		return invalidInput("action", fmt.Sprintf("unknown action %q", action))
	}

	previous := sheet.Status
	if err := s.sheetRepo.UpdateFields(ctx, sheet.ID, map[string]interface{}{
		"status": string(status),
	}); err != nil {
		return fmt.Errorf("failed to update route sheet status: %w", err)
	}
	sheet.Status = string(status)

	s.logger.Info("route sheet status changed",
		zap.Uint("sheet_id", sheet.ID),
		zap.String("from", previous),
		zap.String("to", sheet.Status))

	if status == models.SheetEnRoute {
		s.notifier.RouteStarted(ctx, sheet)
	}
	return nil
}

func (s *workflowService) RecordObservations(ctx context.Context, sheet *models.RouteSheet, text string) (bool, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return false, nil
	}

	now := s.now()
	if err := s.sheetRepo.UpdateFields(ctx, sheet.ID, map[string]interface{}{
		"observations":    text,
		"observations_at": now,
	}); err != nil {
		return false, fmt.Errorf("failed to record observations: %w", err)
	}
	sheet.Observations = text
	sheet.ObservationsAt = &now
	return true, nil
}

func (s *workflowService) UpdateDeliveryStatus(ctx context.Context, delivery *models.Delivery, status string, att Attachments) (bool, error) {
	now := s.now()
	before := *delivery
	applied, firstDelivery := applyDeliveryStatus(delivery, status, now)
	if !applied && status != "" {
		s.logger.Info("ignoring unknown delivery status",
			zap.Uint("delivery_id", delivery.ID),
			zap.String("status", status))
	}

	// Blobs written by this call are removed again if it fails.
	var saved []string
	fail := func(err error) (bool, error) {
		s.discardUploads(ctx, delivery.ID, saved)
		*delivery = before
		return false, err
	}

	if att.Photo != nil {
		ref, err := s.saveUpload(ctx, "preuves", delivery.ID, now, att.Photo)
		if err != nil {
			return fail(err)
		}
		saved = append(saved, ref)
		delivery.ProofPhoto = ref
	}
	if att.SignatureImage != nil {
		ref, err := s.saveUpload(ctx, "signatures", delivery.ID, now, att.SignatureImage)
		if err != nil {
			return fail(err)
		}
		saved = append(saved, ref)
		delivery.SignatureImage = ref
	}
	if data := strings.TrimSpace(att.SignatureData); data != "" {
		delivery.SignatureData = data
	}

	if err := s.deliveryRepo.Save(ctx, delivery); err != nil {
		return fail(fmt.Errorf("failed to save delivery: %w", err))
	}

	if firstDelivery {
		s.notifier.DeliveryCompleted(ctx, delivery)
	}
	return applied, nil
}

func (s *workflowService) discardUploads(ctx context.Context, deliveryID uint, refs []string) {
	// The request context may already be cancelled.
	ctx = context.WithoutCancel(ctx)
	for _, ref := range refs {
		if err := s.blobs.Delete(ctx, ref); err != nil {
			s.logger.Warn("failed to remove orphaned upload",
				zap.Uint("delivery_id", deliveryID),
				zap.String("ref", ref),
				zap.Error(err))
		}
	}
}

func (s *workflowService) saveUpload(ctx context.Context, dir string, deliveryID uint, now time.Time, up *Upload) (string, error) {
	ext := strings.ToLower(path.Ext(up.Filename))
	if len(ext) > 6 {
		ext = ""
	}
	name := fmt.Sprintf("delivery_%d_%d%s", deliveryID, now.UnixNano(), ext)
	ref, err := s.blobs.Save(ctx, dir, name, up.Content)
	if err != nil {
		return "", fmt.Errorf("failed to store %s upload: %w", dir, err)
	}
	return ref, nil
}

// applyDeliveryStatus sets a valid status and stamps the first delivery.
// It reports whether the status was applied and whether this call was the
// one that stamped the delivery time.
func applyDeliveryStatus(d *models.Delivery, status string, now time.Time) (applied, stamped bool) {
	st := models.DeliveryStatus(status)
	if !st.Valid() {
		return false, false
	}
	d.Status = string(st)
	if st == models.DeliveryDelivered && d.DeliveredAt == nil {
		d.DeliveredAt = &now
		stamped = true
	}
	return true, stamped
}
