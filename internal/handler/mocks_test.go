package handler_test

import (
	"context"
	"net/http"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/vasiliy-maslov/groupbuy-service/internal/auth"
	"github.com/vasiliy-maslov/groupbuy-service/internal/notification"
	"github.com/vasiliy-maslov/groupbuy-service/internal/order"
	"github.com/vasiliy-maslov/groupbuy-service/internal/payment"
	"github.com/vasiliy-maslov/groupbuy-service/internal/user"
)

// asCaller injects a fixed identity the way auth.Authenticate would.
func asCaller(id auth.Identity) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) orderResult(args mock.Arguments) (*order.Order, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) CreateOrder(ctx context.Context, caller auth.Identity, in order.CreateInput) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, caller, in))
}

func (m *MockOrderService) CreatePremiumOrder(ctx context.Context, caller auth.Identity, in order.CreatePremiumInput) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, caller, in))
}

func (m *MockOrderService) GetOrder(ctx context.Context, caller auth.Identity, id uuid.UUID) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, caller, id))
}

func (m *MockOrderService) ListMine(ctx context.Context, caller auth.Identity) ([]order.Order, error) {
	args := m.Called(ctx, caller)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) ListAll(ctx context.Context, filter order.Filter) ([]order.Order, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrderStatus(ctx context.Context, id uuid.UUID, newStatus order.Status) error {
	return m.Called(ctx, id, newStatus).Error(0)
}

func (m *MockOrderService) UpdateShipment(ctx context.Context, id uuid.UUID, s order.Shipment) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, id, s))
}

func (m *MockOrderService) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrderService) SubmitPayment(ctx context.Context, caller auth.Identity, id uuid.UUID, round payment.RoundName, sub payment.Submission) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, caller, id, round, sub))
}

func (m *MockOrderService) ReviewPayment(ctx context.Context, admin auth.Identity, id uuid.UUID, round payment.RoundName, in order.ReviewInput) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, admin, id, round, in))
}

func (m *MockOrderService) RevokeVerification(ctx context.Context, admin auth.Identity, id uuid.UUID, notes string) (*order.Order, error) {
	return m.orderResult(m.Called(ctx, admin, id, notes))
}

func (m *MockOrderService) CheckTransactionRef(ctx context.Context, raw string) (bool, error) {
	args := m.Called(ctx, raw)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderService) FlagOverdue(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Register(ctx context.Context, in user.RegisterInput) (*user.Session, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.Session), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, in user.LoginInput) (*user.Session, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.Session), args.Error(1)
}

func (m *MockUserService) GetByID(ctx context.Context, id uuid.UUID) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) EmailFor(ctx context.Context, userID uuid.UUID) (string, string, error) {
	args := m.Called(ctx, userID)
	return args.String(0), args.String(1), args.Error(2)
}

type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) ListMine(ctx context.Context, userID uuid.UUID, unreadOnly bool) ([]notification.Notification, error) {
	args := m.Called(ctx, userID, unreadOnly)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]notification.Notification), args.Error(1)
}

func (m *MockNotificationService) UnreadCount(ctx context.Context, userID uuid.UUID) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *MockNotificationService) MarkRead(ctx context.Context, userID, id uuid.UUID) error {
	return m.Called(ctx, userID, id).Error(0)
}

func (m *MockNotificationService) SendMessage(ctx context.Context, userID uuid.UUID, title, message string, severity notification.Severity) (*notification.Notification, error) {
	args := m.Called(ctx, userID, title, message, severity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*notification.Notification), args.Error(1)
}
