package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"delivery_tracker/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestCreateRouteSheetGeneratesTokenAndQRCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	driver := env.driver(t, "amy", "Aminata", "Faye")
	van := env.vehicle(t, "Renault", "Master", "DK-777-XY")
	day := fixedNow.Add(5 * time.Hour)

	sheet, err := env.dispatch().CreateRouteSheet(ctx, RouteSheetInput{DriverID: driver.ID, VehicleID: &van.ID, RouteDate: &day})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, sheet.Token)
	assert.Equal(t, string(models.SheetPlanned), sheet.Status)
	assert.Equal(t, "Aminata Faye", sheet.Driver.DisplayName())
	require.NotNil(t, sheet.Vehicle)
	assert.Equal(t, "DK-777-XY", sheet.Vehicle.Plate)
	require.NotNil(t, sheet.RouteDate)
	assert.True(t, models.DateOf(fixedNow).Equal(*sheet.RouteDate))

	require.NotEmpty(t, sheet.QRCode)
	png, err := afero.ReadFile(env.fs, sheet.QRCode)
	require.NoError(t, err)
	assert.Equal(t, "\x89PNG", string(png[:4]))
}

func TestCreateRouteSheetValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	driver := env.driver(t, "amy", "Aminata", "Faye")
	missing := uint(999)
	svc := env.dispatch()

	_, err := svc.CreateRouteSheet(ctx, RouteSheetInput{})
	assert.True(t, IsInvalidInput(err))
	_, err = svc.CreateRouteSheet(ctx, RouteSheetInput{DriverID: missing})
	assert.True(t, IsInvalidInput(err))
	_, err = svc.CreateRouteSheet(ctx, RouteSheetInput{DriverID: driver.ID, VehicleID: &missing})
	assert.True(t, IsInvalidInput(err))
	_, err = svc.CreateRouteSheet(ctx, RouteSheetInput{DriverID: driver.ID, Status: "lost"})
	assert.True(t, IsInvalidInput(err))
}

func TestUpdateRouteSheetRegeneratesMissingQRCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	driver := env.driver(t, "amy", "Aminata", "Faye")
	legacy := env.sheet(t, driver, nil, fixedNow, models.SheetEnRoute)
	require.Empty(t, legacy.QRCode)

	updated, err := env.dispatch().UpdateRouteSheet(ctx, legacy.ID, RouteSheetInput{DriverID: driver.ID})
	require.NoError(t, err)
	assert.Equal(t, string(models.SheetEnRoute), updated.Status, "blank status keeps the current one")
	assert.Nil(t, updated.RouteDate)
	assert.Equal(t, "qr_codes/sheet_1.png", updated.QRCode)
	exists, err := afero.Exists(env.fs, updated.QRCode)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteRouteSheetCascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	driver := env.driver(t, "amy", "Aminata", "Faye")
	svc := env.dispatch()
	sheet, err := svc.CreateRouteSheet(ctx, RouteSheetInput{DriverID: driver.ID})
	require.NoError(t, err)
	p := env.product(t, "Rice", "10")
	env.delivery(t, sheet, env.client(t, "Shop"), 1, models.DeliveryInProgress, *p)

	require.NoError(t, svc.DeleteRouteSheet(ctx, sheet.ID))

	var deliveries, links int64
	require.NoError(t, env.db.Model(&models.Delivery{}).Count(&deliveries).Error)
	require.NoError(t, env.db.Table("delivery_products").Count(&links).Error)
	assert.Zero(t, deliveries)
	assert.Zero(t, links)
	exists, err := afero.Exists(env.fs, sheet.QRCode)
	require.NoError(t, err)
	assert.False(t, exists)

	err = svc.DeleteRouteSheet(ctx, sheet.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestGetRouteSheetByToken(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	driver := env.driver(t, "amy", "Aminata", "Faye")
	sheet := env.sheet(t, driver, nil, fixedNow, models.SheetPlanned)
	client := env.client(t, "Shop")

	late := &models.Delivery{RouteSheetID: sheet.ID, ClientID: client.ID, OrderReference: "late", Quantity: 1, Status: "in_progress", PublicToken: uuid.New()}
	lt := datatypes.NewTime(16, 0, 0, 0)
	late.EstimatedTime = &lt
	require.NoError(t, env.deliveries.Create(ctx, late))
	early := &models.Delivery{RouteSheetID: sheet.ID, ClientID: client.ID, OrderReference: "early", Quantity: 1, Status: "in_progress", PublicToken: uuid.New()}
	et := datatypes.NewTime(8, 30, 0, 0)
	early.EstimatedTime = &et
	require.NoError(t, env.deliveries.Create(ctx, early))

	svc := env.dispatch()
	got, err := svc.GetRouteSheetByToken(ctx, sheet.Token.String())
	require.NoError(t, err)
	require.Len(t, got.Deliveries, 2)
	assert.Equal(t, "early", got.Deliveries[0].OrderReference)
	assert.Equal(t, "Shop", got.Deliveries[0].Client.Name)

	_, err = svc.GetRouteSheetByToken(ctx, "not-a-token")
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = svc.GetRouteSheetByToken(ctx, uuid.NewString())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDriverScopedLookups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	mine := env.driver(t, "mine", "Mi", "Ne")
	other := env.driver(t, "other", "Ot", "Her")
	client := env.client(t, "Shop")
	s1 := env.sheet(t, mine, nil, fixedNow, models.SheetEnRoute)
	s2 := env.sheet(t, mine, nil, fixedNow.AddDate(0, 0, -1), models.SheetCompleted)
	foreign := env.sheet(t, other, nil, fixedNow, models.SheetPlanned)
	d := env.delivery(t, s1, client, 1, models.DeliveryInProgress)
	fd := env.delivery(t, foreign, client, 1, models.DeliveryInProgress)
	svc := env.dispatch()

	overview, err := svc.DriverOverview(ctx, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, overview.Total)
	assert.Equal(t, 1, overview.EnRoute)
	assert.Equal(t, 1, overview.Completed)
	require.Len(t, overview.Sheets, 2)
	assert.Equal(t, s1.ID, overview.Sheets[0].ID)
	assert.Equal(t, s2.ID, overview.Sheets[1].ID)

	_, err = svc.GetDriverSheet(ctx, mine.ID, s1.ID)
	assert.NoError(t, err)
	_, err = svc.GetDriverSheet(ctx, mine.ID, foreign.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.GetDriverDelivery(ctx, mine.ID, d.ID)
	assert.NoError(t, err)
	_, err = svc.GetDriverDelivery(ctx, mine.ID, fd.ID)
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = svc.GetSheetDelivery(ctx, s1, d.ID)
	assert.NoError(t, err)
	_, err = svc.GetSheetDelivery(ctx, s1, fd.ID)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestAddAndUpdateDelivery(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	driver := env.driver(t, "amy", "Aminata", "Faye")
	sheet := env.sheet(t, driver, nil, fixedNow, models.SheetPlanned)
	client := env.client(t, "Shop")
	rice := env.product(t, "Rice", "150")
	oil := env.product(t, "Oil", "20")
	bag := &models.Bag{Name: "Cooler", IsActive: true}
	require.NoError(t, env.bags.Create(ctx, bag))
	svc := env.dispatch()

	d, err := svc.AddDelivery(ctx, sheet.ID, DeliveryInput{
		ClientID:       client.ID,
		OrderReference: " CMD-001 ",
		EstimatedTime:  "09:45",
		ProductIDs:     []uint{rice.ID, oil.ID},
		BagIDs:         []uint{bag.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "CMD-001", d.OrderReference)
	assert.Equal(t, 1, d.Quantity)
	assert.Equal(t, string(models.DeliveryInProgress), d.Status)
	assert.NotEqual(t, uuid.Nil, d.PublicToken)
	require.NotNil(t, d.EstimatedTime)
	assert.Equal(t, "09:45:00", d.EstimatedTime.String())
	require.Len(t, d.Products, 2)
	assert.Equal(t, "Oil", d.Products[0].Name)
	require.Len(t, d.Bags, 1)
	assert.True(t, d.TotalAmount().Equal(decimal.RequireFromString("170")))

	d, err = svc.UpdateDelivery(ctx, d.ID, DeliveryInput{
		ClientID:       client.ID,
		OrderReference: "CMD-001",
		Quantity:       4,
		Status:         "delivered",
		ProductIDs:     []uint{rice.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, d.Quantity)
	assert.Nil(t, d.EstimatedTime)
	require.NotNil(t, d.DeliveredAt)
	require.Len(t, d.Products, 1)
	assert.Empty(t, d.Bags)
	assert.True(t, d.TotalAmount().Equal(decimal.RequireFromString("600")))

	d, err = svc.UpdateDelivery(ctx, d.ID, DeliveryInput{ClientID: client.ID, OrderReference: "CMD-001", Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, string(models.DeliveryDelivered), d.Status, "blank status keeps the current one")

	byToken, err := svc.GetDeliveryByToken(ctx, d.PublicToken.String())
	require.NoError(t, err)
	assert.Equal(t, d.ID, byToken.ID)

	require.NoError(t, svc.DeleteDelivery(ctx, d.ID))
	assert.True(t, errors.Is(svc.DeleteDelivery(ctx, d.ID), ErrNotFound))
}

func TestAddDeliveryValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	driver := env.driver(t, "amy", "Aminata", "Faye")
	sheet := env.sheet(t, driver, nil, fixedNow, models.SheetPlanned)
	client := env.client(t, "Shop")
	svc := env.dispatch()

	tests := []struct {
		name  string
		input DeliveryInput
		field string
	}{
		{"missing reference", DeliveryInput{ClientID: client.ID}, "order_reference"},
		{"negative quantity", DeliveryInput{ClientID: client.ID, OrderReference: "x", Quantity: -2}, "quantity"},
		{"unknown client", DeliveryInput{ClientID: 99, OrderReference: "x"}, "client_id"},
		{"bad time", DeliveryInput{ClientID: client.ID, OrderReference: "x", EstimatedTime: "noon"}, "estimated_time"},
		{"unknown product", DeliveryInput{ClientID: client.ID, OrderReference: "x", ProductIDs: []uint{42}}, "product_ids"},
		{"unknown status", DeliveryInput{ClientID: client.ID, OrderReference: "x", Status: "gone"}, "status"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AddDelivery(ctx, sheet.ID, tt.input)
			var inv *InvalidInputError
			require.ErrorAs(t, err, &inv)
			assert.Equal(t, tt.field, inv.Field)
		})
	}

	_, err := svc.AddDelivery(ctx, 999, DeliveryInput{ClientID: client.ID, OrderReference: "x"})
	assert.True(t, errors.Is(err, ErrNotFound))
}
