package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"atelier/internal/api"
	"atelier/internal/domain"
	apperrors "atelier/internal/errors"
	"atelier/internal/order/usecase"
)

// Mock implementations

type mockOrderUseCase struct {
	CreateOrderFunc          func(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error)
	UpdateOrderFunc          func(ctx context.Context, orderID string, patch domain.OrderPatch) (*domain.Order, error)
	GetOrderFunc             func(ctx context.Context, id string) (*domain.Order, error)
	TrackOrdersByPhoneFunc   func(ctx context.Context, phone string) ([]domain.Order, error)
	ListOrdersByCustomerFunc func(ctx context.Context, customerID string) ([]domain.Order, error)
}

func (m *mockOrderUseCase) CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error) {
	return m.CreateOrderFunc(ctx, in)
}

func (m *mockOrderUseCase) UpdateOrder(ctx context.Context, orderID string, patch domain.OrderPatch) (*domain.Order, error) {
	return m.UpdateOrderFunc(ctx, orderID, patch)
}

func (m *mockOrderUseCase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return m.GetOrderFunc(ctx, id)
}

func (m *mockOrderUseCase) TrackOrdersByPhone(ctx context.Context, phone string) ([]domain.Order, error) {
	return m.TrackOrdersByPhoneFunc(ctx, phone)
}

func (m *mockOrderUseCase) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	return m.ListOrdersByCustomerFunc(ctx, customerID)
}

// Helpers

func newRouter(uc OrderUseCase) http.Handler {
	c := NewOrderController(uc, api.NewValidator(), zap.NewNop())
	r := chi.NewRouter()
	r.Post("/orders", c.CreateOrder)
	r.Post("/orders/track", c.TrackOrders)
	r.Get("/orders/customer/{customerId}", c.ListCustomerOrders)
	r.Get("/orders/{id}", c.GetOrder)
	r.Put("/orders/{id}", c.UpdateOrder)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if strings.HasPrefix(strings.TrimSpace(rec.Body.String()), "{") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func sampleOrder() *domain.Order {
	created := time.Date(2025, 11, 23, 2, 15, 0, 0, time.UTC)
	return &domain.Order{
		ID:         "o1",
		CustomerID: "c1",
		Item:       "Suit",
		Price:      decimal.NewFromInt(100),
		Deposit:    decimal.NewFromInt(20),
		Balance:    decimal.NewFromInt(80),
		Status:     domain.OrderStatusPending,
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func failIfCalled(t *testing.T) *mockOrderUseCase {
	return &mockOrderUseCase{
		CreateOrderFunc: func(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error) {
			t.Fatal("use case must not be called")
			return nil, nil
		},
		UpdateOrderFunc: func(ctx context.Context, orderID string, patch domain.OrderPatch) (*domain.Order, error) {
			t.Fatal("use case must not be called")
			return nil, nil
		},
		TrackOrdersByPhoneFunc: func(ctx context.Context, phone string) ([]domain.Order, error) {
			t.Fatal("use case must not be called")
			return nil, nil
		},
	}
}

// Tests

func TestCreateOrder_Created(t *testing.T) {
	var got usecase.CreateOrderInput
	uc := &mockOrderUseCase{
		CreateOrderFunc: func(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error) {
			got = in
			return sampleOrder(), nil
		},
	}

	rec, body := do(t, newRouter(uc), http.MethodPost, "/orders",
		`{"customerId":"c1","item":"Suit","price":"100","deposit":20.5,"measurements":{"chest":40},"pickupDate":"2025-12-01T15:00:00.000Z"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "o1", body["id"])
	assert.Equal(t, "Order created successfully", body["message"])

	assert.Equal(t, "c1", got.CustomerID)
	assert.True(t, decimal.NewFromInt(100).Equal(got.Price))
	assert.True(t, decimal.RequireFromString("20.5").Equal(got.Deposit))
	assert.Equal(t, json.Number("40"), got.Measurements["chest"])
	require.NotNil(t, got.PickupDate)
	assert.Equal(t, time.Date(2025, 12, 1, 15, 0, 0, 0, time.UTC), *got.PickupDate)
	assert.Nil(t, got.FittingDate)
}

func TestCreateOrder_GarbageAmountsBecomeZero(t *testing.T) {
	var got usecase.CreateOrderInput
	uc := &mockOrderUseCase{
		CreateOrderFunc: func(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error) {
			got = in
			return sampleOrder(), nil
		},
	}

	rec, _ := do(t, newRouter(uc), http.MethodPost, "/orders", `{"customerId":"c1","item":"Suit","price":"abc","deposit":null}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, got.Price.IsZero())
	assert.True(t, got.Deposit.IsZero())
}

func TestCreateOrder_ValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		field string
	}{
		{name: "missing item", body: `{"customerId":"c1"}`, field: "item"},
		{name: "missing customer", body: `{"item":"Suit"}`, field: "customerId"},
		{name: "malformed json", body: `{"customerId":`, field: "body"},
		{name: "empty body", body: ``, field: "body"},
		{name: "bad date", body: `{"customerId":"c1","item":"Suit","fittingDate":"next week"}`, field: "fittingDate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := do(t, newRouter(failIfCalled(t)), http.MethodPost, "/orders", tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", body["error"])
			assert.NotEmpty(t, body["traceId"])
			details := body["details"].([]any)
			require.NotEmpty(t, details)
			assert.Equal(t, tt.field, details[0].(map[string]any)["field"])
		})
	}
}

func TestCreateOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{name: "customer not found", err: apperrors.NewNotFoundError("customer not found"), status: http.StatusNotFound, code: "NOT_FOUND"},
		{name: "conflict exhausted", err: apperrors.NewStorageConflictError("tx aborted", 5, errors.New("deadlock")), status: http.StatusConflict, code: "STORAGE_CONFLICT"},
		{name: "unexpected", err: errors.New("db password is hunter2"), status: http.StatusInternalServerError, code: "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockOrderUseCase{
				CreateOrderFunc: func(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error) {
					return nil, tt.err
				},
			}

			rec, body := do(t, newRouter(uc), http.MethodPost, "/orders", `{"customerId":"c1","item":"Suit"}`)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["traceId"])
			assert.NotContains(t, rec.Body.String(), "hunter2")
		})
	}
}

func TestUpdateOrder_OnlySuppliedFields(t *testing.T) {
	var gotID string
	var got domain.OrderPatch
	uc := &mockOrderUseCase{
		UpdateOrderFunc: func(ctx context.Context, orderID string, patch domain.OrderPatch) (*domain.Order, error) {
			gotID = orderID
			got = patch
			o := sampleOrder()
			o.Price = decimal.NewFromInt(150)
			o.Balance = decimal.NewFromInt(130)
			return o, nil
		},
	}

	rec, body := do(t, newRouter(uc), http.MethodPut, "/orders/o1", `{"price":150,"status":""}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "o1", gotID)
	require.NotNil(t, got.Price)
	assert.True(t, decimal.NewFromInt(150).Equal(*got.Price))
	assert.Nil(t, got.Deposit)
	assert.Nil(t, got.Status)
	assert.Nil(t, got.Notes)
	assert.Nil(t, got.Measurements)

	assert.Equal(t, "Order updated successfully", body["message"])
	order := body["order"].(map[string]any)
	assert.Equal(t, float64(130), order["balance"])
}

func TestUpdateOrder_StatusAndDates(t *testing.T) {
	var got domain.OrderPatch
	uc := &mockOrderUseCase{
		UpdateOrderFunc: func(ctx context.Context, orderID string, patch domain.OrderPatch) (*domain.Order, error) {
			got = patch
			return sampleOrder(), nil
		},
	}

	rec, _ := do(t, newRouter(uc), http.MethodPut, "/orders/o1", `{"status":"Ready","fittingDate":"2025-12-02","notes":""}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.Status)
	assert.Equal(t, domain.OrderStatusReady, *got.Status)
	require.NotNil(t, got.FittingDate)
	assert.Equal(t, time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC), *got.FittingDate)
	require.NotNil(t, got.Notes)
	assert.Equal(t, "", *got.Notes)
}

func TestUpdateOrder_NotFound(t *testing.T) {
	uc := &mockOrderUseCase{
		UpdateOrderFunc: func(ctx context.Context, orderID string, patch domain.OrderPatch) (*domain.Order, error) {
			return nil, apperrors.NewNotFoundError("order not found")
		},
	}

	rec, body := do(t, newRouter(uc), http.MethodPut, "/orders/missing", `{"status":"Ready"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "order not found", body["message"])
}

func TestGetOrder(t *testing.T) {
	uc := &mockOrderUseCase{
		GetOrderFunc: func(ctx context.Context, id string) (*domain.Order, error) {
			return sampleOrder(), nil
		},
	}

	rec, body := do(t, newRouter(uc), http.MethodGet, "/orders/o1", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Suit", body["item"])
	assert.Equal(t, "2025-11-23T02:15:00.000Z", body["createdAt"])
	assert.Nil(t, body["pickupDate"])
	assert.Equal(t, map[string]any{}, body["measurements"])
}

func TestTrackOrders(t *testing.T) {
	t.Run("phone required", func(t *testing.T) {
		rec, body := do(t, newRouter(failIfCalled(t)), http.MethodPost, "/orders/track", `{}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "phone", body["details"].([]any)[0].(map[string]any)["field"])
	})

	t.Run("returns a list", func(t *testing.T) {
		var gotPhone string
		uc := &mockOrderUseCase{
			TrackOrdersByPhoneFunc: func(ctx context.Context, phone string) ([]domain.Order, error) {
				gotPhone = phone
				return []domain.Order{*sampleOrder()}, nil
			},
		}

		rec, _ := do(t, newRouter(uc), http.MethodPost, "/orders/track", `{"phone":"+15550001"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "+15550001", gotPhone)
		var orders []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
		require.Len(t, orders, 1)
		assert.Equal(t, "o1", orders[0]["id"])
	})

	t.Run("empty result is an empty array", func(t *testing.T) {
		uc := &mockOrderUseCase{
			TrackOrdersByPhoneFunc: func(ctx context.Context, phone string) ([]domain.Order, error) {
				return []domain.Order{}, nil
			},
		}

		rec, _ := do(t, newRouter(uc), http.MethodPost, "/orders/track", `{"phone":"+1"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[]`, rec.Body.String())
	})
}

func TestListCustomerOrders(t *testing.T) {
	t.Run("returns the customer's orders", func(t *testing.T) {
		var gotCustomer string
		uc := &mockOrderUseCase{
			ListOrdersByCustomerFunc: func(ctx context.Context, customerID string) ([]domain.Order, error) {
				gotCustomer = customerID
				return []domain.Order{*sampleOrder()}, nil
			},
		}

		rec, _ := do(t, newRouter(uc), http.MethodGet, "/orders/customer/c1", "")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "c1", gotCustomer)
		var orders []map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &orders))
		require.Len(t, orders, 1)
		assert.Equal(t, "o1", orders[0]["id"])
	})

	t.Run("unknown customer", func(t *testing.T) {
		uc := &mockOrderUseCase{
			ListOrdersByCustomerFunc: func(ctx context.Context, customerID string) ([]domain.Order, error) {
				return nil, apperrors.NewNotFoundError("customer not found")
			},
		}

		rec, body := do(t, newRouter(uc), http.MethodGet, "/orders/customer/ghost", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "customer not found", body["message"])
	})
}
