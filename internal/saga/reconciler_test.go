package saga

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"example.com/storefront/internal/domain"
)

// mockIntentRepo — мок IntentRepository.
type mockIntentRepo struct {
	mock.Mock
}

func (m *mockIntentRepo) Create(ctx context.Context, intent *DispatchIntent) error {
	args := m.Called(ctx, intent)
	return args.Error(0)
}

func (m *mockIntentRepo) MarkRemoteCreated(ctx context.Context, id, trackingCode string) error {
	args := m.Called(ctx, id, trackingCode)
	return args.Error(0)
}

func (m *mockIntentRepo) MarkConfirmed(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockIntentRepo) MarkFailed(ctx context.Context, id string, cause error) error {
	args := m.Called(ctx, id, cause)
	return args.Error(0)
}

func (m *mockIntentRepo) ListUnconfirmed(ctx context.Context, olderThan time.Time, limit int) ([]*DispatchIntent, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*DispatchIntent), args.Error(1)
}

// mockOrderRepo — мок OrderRepository (только используемые методы).
type mockOrderRepo struct {
	mock.Mock
}

func (m *mockOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) GetByID(ctx context.Context, orderID string) (*domain.Order, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) GetByTrackingCode(ctx context.Context, trackingCode string) ([]*domain.Order, error) {
	args := m.Called(ctx, trackingCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) List(ctx context.Context, status *domain.OrderStatus, offset, limit int) ([]*domain.Order, int64, error) {
	args := m.Called(ctx, status, offset, limit)
	return args.Get(0).([]*domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *mockOrderRepo) ListByUserID(ctx context.Context, userID string, offset, limit int) ([]*domain.Order, int64, error) {
	args := m.Called(ctx, userID, offset, limit)
	return args.Get(0).([]*domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *mockOrderRepo) ListByRiderID(ctx context.Context, riderID string) ([]*domain.Order, error) {
	args := m.Called(ctx, riderID)
	return args.Get(0).([]*domain.Order), args.Error(1)
}

func (m *mockOrderRepo) Update(ctx context.Context, order *domain.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *mockOrderRepo) UpdateShippingCost(ctx context.Context, orderID string, cost float64) error {
	args := m.Called(ctx, orderID, cost)
	return args.Error(0)
}

func pendingOrder() *domain.Order {
	return &domain.Order{
		ID:            "order-1",
		UserID:        "user-1",
		Status:        domain.OrderStatusProcessing,
		PaymentStatus: domain.PaymentStatusPaid,
		PaymentMethod: domain.PaymentMethodESewa,
		DeliveryType:  domain.DeliveryTypeInternal,
	}
}

func stuckIntent() *DispatchIntent {
	tracking := "DT-123"
	return &DispatchIntent{
		ID:           "intent-1",
		OrderID:      "order-1",
		Courier:      domain.CourierPathao,
		Status:       IntentRemoteCreated,
		TrackingCode: &tracking,
	}
}

func TestReconcileOne_AppliesLocalUpdate(t *testing.T) {
	ctx := context.Background()
	intents := new(mockIntentRepo)
	orders := new(mockOrderRepo)

	order := pendingOrder()
	orders.On("GetByID", ctx, "order-1").Return(order, nil)
	orders.On("Update", ctx, mock.MatchedBy(func(o *domain.Order) bool {
		return o.TrackingCode != nil && *o.TrackingCode == "DT-123" &&
			o.Status == domain.OrderStatusReadyToShip
	})).Return(nil)
	intents.On("MarkConfirmed", ctx, "intent-1").Return(nil)

	r := NewReconciler(intents, orders, DefaultReconcilerConfig())
	err := r.ReconcileOne(ctx, stuckIntent())

	require.NoError(t, err)
	orders.AssertExpectations(t)
	intents.AssertExpectations(t)
}

func TestReconcileOne_AlreadyApplied(t *testing.T) {
	ctx := context.Background()
	intents := new(mockIntentRepo)
	orders := new(mockOrderRepo)

	// Обычный путь успел: заказ уже несёт накладную
	order := pendingOrder()
	tracking := "DT-123"
	courier := domain.CourierPathao
	order.TrackingCode = &tracking
	order.Courier = &courier
	order.DeliveryType = domain.DeliveryTypeExternal

	orders.On("GetByID", ctx, "order-1").Return(order, nil)
	intents.On("MarkConfirmed", ctx, "intent-1").Return(nil)

	r := NewReconciler(intents, orders, DefaultReconcilerConfig())
	err := r.ReconcileOne(ctx, stuckIntent())

	require.NoError(t, err)
	// Повторного Update нет — идемпотентность
	orders.AssertNotCalled(t, "Update")
	intents.AssertExpectations(t)
}

func TestReconcileOne_OrderTerminal(t *testing.T) {
	ctx := context.Background()
	intents := new(mockIntentRepo)
	orders := new(mockOrderRepo)

	order := pendingOrder()
	order.Status = domain.OrderStatusCancelled

	orders.On("GetByID", ctx, "order-1").Return(order, nil)
	intents.On("MarkFailed", ctx, "intent-1", mock.Anything).Return(nil)

	r := NewReconciler(intents, orders, DefaultReconcilerConfig())
	err := r.ReconcileOne(ctx, stuckIntent())

	require.NoError(t, err)
	orders.AssertNotCalled(t, "Update")
	intents.AssertExpectations(t)
}

func TestReconcile_BatchPass(t *testing.T) {
	ctx := context.Background()
	intents := new(mockIntentRepo)
	orders := new(mockOrderRepo)

	intents.On("ListUnconfirmed", ctx, mock.AnythingOfType("time.Time"), 50).
		Return([]*DispatchIntent{stuckIntent()}, nil)
	orders.On("GetByID", ctx, "order-1").Return(pendingOrder(), nil)
	orders.On("Update", ctx, mock.Anything).Return(nil)
	intents.On("MarkConfirmed", ctx, "intent-1").Return(nil)

	r := NewReconciler(intents, orders, DefaultReconcilerConfig())
	r.reconcile(ctx)

	intents.AssertExpectations(t)
	orders.AssertExpectations(t)
}
