package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"atelier/internal/api"
	"atelier/internal/customer/usecase"
	"atelier/internal/domain"
	"atelier/internal/dto"
)

type CustomerUseCase interface {
	CreateCustomer(ctx context.Context, in usecase.CreateCustomerInput) (*domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch) (*domain.Customer, error)
	DeleteCustomer(ctx context.Context, id string) error
	RecomputeBalance(ctx context.Context, id string) (decimal.Decimal, error)
}

type OrderLister interface {
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
}

type CustomerController struct {
	useCase   CustomerUseCase
	orders    OrderLister
	validator *api.Validator
	logger    *zap.Logger
}

func NewCustomerController(useCase CustomerUseCase, orders OrderLister, validator *api.Validator, logger *zap.Logger) *CustomerController {
	return &CustomerController{
		useCase:   useCase,
		orders:    orders,
		validator: validator,
		logger:    logger,
	}
}

func (c *CustomerController) ListCustomers(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	customers, err := c.useCase.ListCustomers(r.Context())
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusOK, dto.NewCustomerResponses(customers), logger)
}

func (c *CustomerController) CreateCustomer(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	var req dto.CreateCustomerRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}
	if err := c.validator.Struct(req); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	var dates api.Dates
	input := usecase.CreateCustomerInput{
		Name:        req.Name,
		Phone:       req.Phone,
		Address:     req.Address,
		PickupDate:  dates.Parse("pickupDate", req.PickupDate),
		FittingDate: dates.Parse("fittingDate", req.FittingDate),
		Notes:       req.Notes,
	}
	if err := dates.Err(); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	customer, err := c.useCase.CreateCustomer(r.Context(), input)
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusCreated, dto.CreateCustomerResponse{
		ID:       customer.ID,
		Message:  "Customer created successfully",
		Customer: dto.NewCustomerResponse(*customer),
	}, logger)
}

func (c *CustomerController) GetCustomer(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	customer, err := c.useCase.GetCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusOK, dto.NewCustomerResponse(*customer), logger)
}

func (c *CustomerController) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	customerID := chi.URLParam(r, "id")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("customerId", customerID))

	var req dto.UpdateCustomerRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}
	if err := c.validator.Struct(req); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	var dates api.Dates
	patch := domain.CustomerPatch{
		Name:        req.Name,
		Phone:       req.Phone,
		Address:     req.Address,
		PickupDate:  dates.ParseOptional("pickupDate", req.PickupDate),
		FittingDate: dates.ParseOptional("fittingDate", req.FittingDate),
		Notes:       req.Notes,
	}
	if err := dates.Err(); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	customer, err := c.useCase.UpdateCustomer(r.Context(), customerID, patch)
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusOK, dto.NewCustomerResponse(*customer), logger)
}

func (c *CustomerController) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	if err := c.useCase.DeleteCustomer(r.Context(), chi.URLParam(r, "id")); err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusOK, dto.MessageResponse{Message: "Customer deleted successfully"}, logger)
}

func (c *CustomerController) ListOrders(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	logger := c.logger.With(zap.String("traceId", traceID))

	orders, err := c.orders.ListOrdersByCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusOK, dto.NewOrderResponses(orders), logger)
}

func (c *CustomerController) RecomputeBalance(w http.ResponseWriter, r *http.Request) {
	traceID := api.NewTraceID()
	customerID := chi.URLParam(r, "id")
	logger := c.logger.With(zap.String("traceId", traceID), zap.String("customerId", customerID))

	balance, err := c.useCase.RecomputeBalance(r.Context(), customerID)
	if err != nil {
		api.HandleUseCaseError(w, traceID, err, logger)
		return
	}

	api.WriteJSON(w, http.StatusOK, dto.BalanceResponse{
		CustomerID: customerID,
		Balance:    dto.Amount(balance),
	}, logger)
}
