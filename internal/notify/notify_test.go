package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/storefront/pkg/kafka"
)

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, userID, subject, body string) error {
	args := m.Called(ctx, userID, subject, body)
	return args.Error(0)
}

func eventMessage(t *testing.T, event string) *kafka.Message {
	t.Helper()
	payload := `{"event":"` + event + `","order_id":"order-1","user_id":"user-1",` +
		`"status":"PROCESSING","payment_status":"PAID","total_amount":1150,` +
		`"occurred_at":"` + time.Now().UTC().Format(time.RFC3339) + `"}`
	return &kafka.Message{
		Key:   []byte("order-1"),
		Value: []byte(payload),
		Topic: kafka.TopicOrderEvents,
	}
}

func TestHandleMessage_OrderPlaced(t *testing.T) {
	ctx := context.Background()
	mailer := new(mockMailer)
	mailer.On("Send", ctx, "user-1",
		mock.MatchedBy(func(s string) bool { return s == "Заказ order-1 оформлен" }),
		mock.AnythingOfType("string"),
	).Return(nil)

	n := NewNotifier(nil, mailer)
	err := n.HandleMessage(ctx, eventMessage(t, "order.placed"))

	require.NoError(t, err)
	mailer.AssertExpectations(t)
}

func TestHandleMessage_UnknownEventSkipped(t *testing.T) {
	ctx := context.Background()
	mailer := new(mockMailer)

	n := NewNotifier(nil, mailer)
	err := n.HandleMessage(ctx, eventMessage(t, "order.archived"))

	require.NoError(t, err)
	mailer.AssertNotCalled(t, "Send")
}

func TestHandleMessage_MailerFailurePropagates(t *testing.T) {
	ctx := context.Background()
	mailer := new(mockMailer)
	mailer.On("Send", ctx, "user-1", mock.Anything, mock.Anything).Return(assert.AnError)

	n := NewNotifier(nil, mailer)
	err := n.HandleMessage(ctx, eventMessage(t, "order.refunded"))

	// Ошибка отправки уходит наверх: consumer ретраит и шлёт в DLQ
	assert.Error(t, err)
}

func TestHandleMessage_BadPayload(t *testing.T) {
	ctx := context.Background()
	mailer := new(mockMailer)

	n := NewNotifier(nil, mailer)
	err := n.HandleMessage(ctx, &kafka.Message{Value: []byte("не json")})

	assert.Error(t, err)
	mailer.AssertNotCalled(t, "Send")
}
