package services

import (
	"context"
	"testing"

	"delivery_tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordPosition(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	driver := env.driver(t, "lamine", "Lamine", "Gueye")
	sheet := env.sheet(t, driver, nil, fixedNow, models.SheetEnRoute)
	svc := NewPositionService(env.sheets, env.clock.Now)

	require.NoError(t, svc.RecordPosition(ctx, sheet, "14.716677", "-17.467686"))

	stored, err := env.sheets.GetByID(ctx, sheet.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.LastLatitude)
	require.NotNil(t, stored.LastLongitude)
	require.NotNil(t, stored.LastPositionAt)
	assert.InDelta(t, 14.716677, *stored.LastLatitude, 1e-6)
	assert.InDelta(t, -17.467686, *stored.LastLongitude, 1e-6)
	assert.True(t, fixedNow.Equal(*stored.LastPositionAt))
}

func TestRecordPositionRejectsBadInputWithoutMutation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	driver := env.driver(t, "seydou", "Seydou", "Kane")
	sheet := env.sheet(t, driver, nil, fixedNow, models.SheetEnRoute)
	svc := NewPositionService(env.sheets, env.clock.Now)
	require.NoError(t, svc.RecordPosition(ctx, sheet, "1.5", "2.5"))

	tests := []struct {
		name     string
		lat, lng string
		reason   string
	}{
		{"non numeric longitude", "12.3", "abc", "invalid lat/lng"},
		{"missing latitude", "", "2", "lat/lng required"},
		{"missing longitude", "3", "  ", "lat/lng required"},
		{"not a number", "NaN", "2", "invalid lat/lng"},
		{"infinite", "1", "+Inf", "invalid lat/lng"},
		{"latitude out of range", "91", "0", "invalid lat/lng"},
		{"longitude out of range", "0", "-180.5", "invalid lat/lng"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.RecordPosition(ctx, sheet, tt.lat, tt.lng)
			require.Error(t, err)
			var inv *InvalidInputError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.reason, inv.Reason)

			stored, err := env.sheets.GetByID(ctx, sheet.ID)
			require.NoError(t, err)
			assert.InDelta(t, 1.5, *stored.LastLatitude, 1e-9)
			assert.InDelta(t, 2.5, *stored.LastLongitude, 1e-9)
			assert.InDelta(t, 1.5, *sheet.LastLatitude, 1e-9)
		})
	}
}
