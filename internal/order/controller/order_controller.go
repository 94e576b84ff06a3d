package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"atelier/internal/api"
	"atelier/internal/domain"
	"atelier/internal/dto"
	"atelier/internal/order/usecase"
)

type OrderUseCase interface {
	CreateOrder(ctx context.Context, in usecase.CreateOrderInput) (*domain.Order, error)
	UpdateOrder(ctx context.Context, orderID string, patch domain.OrderPatch) (*domain.Order, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	TrackOrdersByPhone(ctx context.Context, phone string) ([]domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
}

type OrderController struct {
	useCase   OrderUseCase
	validator *api.Validator
	logger    *zap.Logger
}

func NewOrderController(useCase OrderUseCase, validator *api.Validator, logger *zap.Logger) *OrderController {
	return &OrderController{
		useCase:   useCase,
		validator: validator,
		logger:    logger,
	}
}

func (c *OrderController) CreateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CreateOrderRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}
	if err := c.validator.Struct(req); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	var dates api.Dates
	input := usecase.CreateOrderInput{
		CustomerID:   req.CustomerID,
		Item:         req.Item,
		Measurements: req.Measurements,
		Price:        domain.ParseAmount(req.Price),
		Deposit:      domain.ParseAmount(req.Deposit),
		PickupDate:   dates.Parse("pickupDate", req.PickupDate),
		FittingDate:  dates.Parse("fittingDate", req.FittingDate),
		Notes:        req.Notes,
	}
	if err := dates.Err(); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	order, err := c.useCase.CreateOrder(r.Context(), input)
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusCreated, dto.CreateOrderResponse{
		ID:      order.ID,
		Message: "Order created successfully",
	}, logger)
}

func (c *OrderController) GetOrder(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	order, err := c.useCase.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusOK, dto.NewOrderResponse(*order), logger)
}

// ListCustomerOrders serves /orders/customer/{customerId}, the path older
// mobile clients use.
func (c *OrderController) ListCustomerOrders(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	customerID := chi.URLParam(r, "customerId")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("customerId", customerID))

	orders, err := c.useCase.ListOrdersByCustomer(r.Context(), customerID)
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusOK, dto.NewOrderResponses(orders), logger)
}

func (c *OrderController) UpdateOrder(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	orderID := chi.URLParam(r, "id")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("orderId", orderID))

	var req dto.UpdateOrderRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		logger.Warn("invalid JSON body", zap.Error(err))
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	patch, err := toOrderPatch(req)
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	order, err := c.useCase.UpdateOrder(r.Context(), orderID, patch)
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusOK, dto.UpdateOrderResponse{
		Message: "Order updated successfully",
		Order:   dto.NewOrderResponse(*order),
	}, logger)
}

// toOrderPatch keeps only the fields present in the body. An empty status or
// date string counts as absent.
func toOrderPatch(req dto.UpdateOrderRequest) (domain.OrderPatch, error) {
	var patch domain.OrderPatch

	if req.Status != nil && *req.Status != "" {
		status := domain.OrderStatus(*req.Status)
		patch.Status = &status
	}
	if req.Measurements != nil {
		patch.Measurements = req.Measurements
	}
	if len(req.Price) > 0 {
		price := domain.ParseAmount(req.Price)
		patch.Price = &price
	}
	if len(req.Deposit) > 0 {
		deposit := domain.ParseAmount(req.Deposit)
		patch.Deposit = &deposit
	}

	var dates api.Dates
	patch.PickupDate = dates.ParseOptional("pickupDate", req.PickupDate)
	patch.FittingDate = dates.ParseOptional("fittingDate", req.FittingDate)
	patch.Notes = req.Notes

	return patch, dates.Err()
}

func (c *OrderController) TrackOrders(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.TrackOrdersRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}
	if err := c.validator.Struct(req); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	orders, err := c.useCase.TrackOrdersByPhone(r.Context(), req.Phone)
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusOK, dto.NewOrderResponses(orders), logger)
}
