package services

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"delivery_tracker/internal/models"
	"delivery_tracker/internal/repository"
)

type PositionService interface {
	// RecordPosition stores the latest GPS fix for a sheet. Both coordinates
	// are required and must parse as finite decimal degrees.
	RecordPosition(ctx context.Context, sheet *models.RouteSheet, lat, lng string) error
}

type positionService struct {
	sheetRepo repository.RouteSheetRepository
	now       func() time.Time
}

func NewPositionService(sheetRepo repository.RouteSheetRepository, now func() time.Time) PositionService {
	if now == nil {
		now = time.Now
	}
	return &positionService{sheetRepo: sheetRepo, now: now}
}

func (s *positionService) RecordPosition(ctx context.Context, sheet *models.RouteSheet, lat, lng string) error {
	latitude, longitude, err := ParseCoordinates(lat, lng)
	if err != nil {
		return err
	}

	now := s.now()
	if err := s.sheetRepo.UpdateFields(ctx, sheet.ID, map[string]interface{}{
		"last_latitude":    latitude,
		"last_longitude":   longitude,
		"last_position_at": now,
	}); err != nil {
		return fmt.Errorf("failed to record position: %w", err)
	}

	sheet.LastLatitude = &latitude
	sheet.LastLongitude = &longitude
	sheet.LastPositionAt = &now
	return nil
}

// ParseCoordinates validates a latitude/longitude pair posted as text.
func ParseCoordinates(lat, lng string) (float64, float64, error) {
	lat, lng = strings.TrimSpace(lat), strings.TrimSpace(lng)
	if lat == "" || lng == "" {
		return 0, 0, invalidInput("", "lat/lng required")
	}
	latitude, err := parseDegrees(lat, 90)
	if err != nil {
		return 0, 0, err
	}
	longitude, err := parseDegrees(lng, 180)
	if err != nil {
		return 0, 0, err
	}
	return latitude, longitude, nil
}

func parseDegrees(s string, limit float64) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
		return 0, invalidInput("", "invalid lat/lng")
	}
	return v, nil
}
