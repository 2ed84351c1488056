package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"delivery_tracker/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type sentMessage struct {
	phone, body string
}

type fakeSender struct {
	sent []sentMessage
	err  error
}

func (f *fakeSender) SendTextMessage(_ context.Context, phone, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMessage{phone, message})
	return nil
}

func TestWhatsAppNotifierRouteStarted(t *testing.T) {
	sender := &fakeSender{}
	n := NewWhatsAppNotifier(sender, "https://track.example.com/", zap.NewNop())
	token := uuid.MustParse("2b1f3e4c-9a55-4c1e-8d3a-0d6e2f7a9b10")

	sheet := &models.RouteSheet{Deliveries: []models.Delivery{
		{ID: 1, OrderReference: "A1", Status: "in_progress", PublicToken: token, Client: models.Client{Phone: "770000001"}},
		{ID: 2, OrderReference: "A2", Status: "delivered", Client: models.Client{Phone: "770000002"}},
		{ID: 3, OrderReference: "A3", Status: "in_progress"},
	}}
	n.RouteStarted(context.Background(), sheet)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "770000001", sender.sent[0].phone)
	assert.Contains(t, sender.sent[0].body, "A1")
	assert.Contains(t, sender.sent[0].body, "https://track.example.com/livraison/track/"+token.String()+"/")
}

// slowSender blocks each send until its context is done.
type slowSender struct {
	calls int
}

func (s *slowSender) SendTextMessage(ctx context.Context, _, _ string) error {
	s.calls++
	<-ctx.Done()
	return ctx.Err()
}

func TestWhatsAppNotifierRouteStartedSharesOneDeadline(t *testing.T) {
	sender := &slowSender{}
	core, logs := observer.New(zap.WarnLevel)
	n := &whatsappNotifier{sender: sender, baseURL: "http://x", logger: zap.New(core), routeTimeout: 50 * time.Millisecond}

	sheet := &models.RouteSheet{ID: 4}
	for i := 0; i < 5; i++ {
		sheet.Deliveries = append(sheet.Deliveries, models.Delivery{
			ID: uint(i + 1), Status: "in_progress", Client: models.Client{Phone: "770000001"},
		})
	}

	start := time.Now()
	n.RouteStarted(context.Background(), sheet)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 1, sender.calls)
	cut := logs.FilterMessage("route start notifications cut short").All()
	require.Len(t, cut, 1)
	assert.EqualValues(t, 4, cut[0].ContextMap()["skipped"])
}

func TestWhatsAppNotifierLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	n := NewWhatsAppNotifier(&fakeSender{err: errors.New("gateway down")}, "http://x", zap.New(core))

	n.DeliveryCompleted(context.Background(), &models.Delivery{ID: 9, OrderReference: "B2", Client: models.Client{Phone: "1"}})

	entries := logs.FilterMessage("client notification failed").All()
	require.Len(t, entries, 1)
	assert.EqualValues(t, 9, entries[0].ContextMap()["delivery_id"])
}

func TestSendTrackingLink(t *testing.T) {
	sender := &fakeSender{}
	n := NewWhatsAppNotifier(sender, "http://x", zap.NewNop())

	err := n.SendTrackingLink(context.Background(), &models.Delivery{OrderReference: "C3"})
	assert.True(t, errors.Is(err, ErrNoClientPhone))

	require.NoError(t, n.SendTrackingLink(context.Background(), &models.Delivery{OrderReference: "C3", Client: models.Client{Phone: "77"}}))
	require.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0].body, "C3")

	failing := NewWhatsAppNotifier(&fakeSender{err: errors.New("boom")}, "http://x", zap.NewNop())
	assert.Error(t, failing.SendTrackingLink(context.Background(), &models.Delivery{Client: models.Client{Phone: "77"}}))

	assert.True(t, errors.Is(NewNoopNotifier().SendTrackingLink(context.Background(), &models.Delivery{}), ErrNotificationsDisabled))
}
