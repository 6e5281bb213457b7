package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"argus-control/internal/eventing"
	ordersevents "argus-control/internal/orders/application/events"
)

func TestWebhookNotifierPostsAlert(t *testing.T) {
	var got webhookPayload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	err := notifier.Notify(context.Background(), AlertMessage{
		OrderID:    "AMM240305143015123",
		OrderType:  "OR",
		Code:       "E2105",
		Message:    "Signal path not available",
		OccurredAt: time.Date(2024, 3, 5, 14, 31, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if got.MsgType != "text" || !strings.Contains(got.Text.Content, "E2105") {
		t.Fatalf("payload = %+v", got)
	}
	if !strings.Contains(got.Text.Content, "AMM240305143015123") {
		t.Fatalf("content = %s", got.Text.Content)
	}
}

func TestWebhookNotifierRejectsErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	notifier := NewWebhookNotifier(server.URL)
	if err := notifier.Notify(context.Background(), AlertMessage{OrderID: "X"}); err == nil {
		t.Fatalf("error status accepted")
	}
}

type captureNotifier struct {
	messages []AlertMessage
}

func (c *captureNotifier) Notify(_ context.Context, msg AlertMessage) error {
	c.messages = append(c.messages, msg)
	return nil
}

func TestWireBusForwardsFailures(t *testing.T) {
	bus := eventing.NewInMemoryBus()
	capture := &captureNotifier{}
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	WireBus(bus, capture, logger)

	err := bus.Publish(context.Background(), ordersevents.OrderFailed{
		EventID: "e1", OrderID: "IFL240305120000000", OrderType: "IFL",
		Code: "E2001", Message: "Database unavailable",
		OccurredAt: time.Date(2024, 3, 5, 12, 1, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	_ = bus.Publish(context.Background(), ordersevents.OrderExpired{
		EventID: "e2", OrderID: "GSS240305110000000",
		OccurredAt: time.Date(2024, 3, 5, 12, 2, 0, 0, time.UTC),
	})

	if len(capture.messages) != 2 {
		t.Fatalf("messages = %+v", capture.messages)
	}
	if capture.messages[0].Code != "E2001" || capture.messages[1].OrderID != "GSS240305110000000" {
		t.Fatalf("messages = %+v", capture.messages)
	}
}
