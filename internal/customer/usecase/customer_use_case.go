package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"atelier/internal/domain"
	apperrors "atelier/internal/errors"
)

type CustomerGateway interface {
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomers(ctx context.Context) ([]domain.Customer, error)
	CreateCustomer(ctx context.Context, customer *domain.Customer) error
	UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch, updatedAt time.Time) error
	DeleteCustomer(ctx context.Context, id string) error
}

type BalanceRecomputer interface {
	Recompute(ctx context.Context, customerID string) (decimal.Decimal, error)
}

type CreateCustomerInput struct {
	Name        string
	Phone       string
	Address     string
	PickupDate  *time.Time
	FittingDate *time.Time
	Notes       string
}

type CustomerUseCase struct {
	gateway    CustomerGateway
	recomputer BalanceRecomputer
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

func NewCustomerUseCase(gateway CustomerGateway, recomputer BalanceRecomputer, logger *zap.Logger) *CustomerUseCase {
	return &CustomerUseCase{
		gateway:    gateway,
		recomputer: recomputer,
		logger:     logger,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// CreateCustomer stores a new customer with a zero balance.
func (uc *CustomerUseCase) CreateCustomer(ctx context.Context, in CreateCustomerInput) (*domain.Customer, error) {
	phone := domain.NormalizePhone(in.Phone)

	var details []apperrors.ValidationDetail
	if strings.TrimSpace(in.Name) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "name", Message: "name is required"})
	}
	if phone == "" {
		details = append(details, apperrors.ValidationDetail{Field: "phone", Message: "phone is required"})
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("Name and Phone are required", details...)
	}

	now := uc.now().UTC()
	customer := &domain.Customer{
		ID:          uc.newID(),
		Name:        in.Name,
		Phone:       phone,
		Address:     in.Address,
		PickupDate:  in.PickupDate,
		FittingDate: in.FittingDate,
		Notes:       in.Notes,
		Balance:     decimal.Zero,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.gateway.CreateCustomer(ctx, customer); err != nil {
		return nil, err
	}

	uc.logger.Info("customer created", zap.String("customerId", customer.ID))
	return customer, nil
}

func (uc *CustomerUseCase) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	customer, err := uc.gateway.GetCustomer(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, "customer not found")
	}
	return customer, nil
}

// ListCustomers returns every customer, newest first.
func (uc *CustomerUseCase) ListCustomers(ctx context.Context) ([]domain.Customer, error) {
	customers, err := uc.gateway.ListCustomers(ctx)
	if err != nil {
		return nil, err
	}
	if customers == nil {
		customers = []domain.Customer{}
	}

	sort.SliceStable(customers, func(i, j int) bool {
		return customers[i].CreatedAt.After(customers[j].CreatedAt)
	})
	return customers, nil
}

// UpdateCustomer applies the supplied fields. The balance is never touched
// here; it only moves with the customer's orders.
func (uc *CustomerUseCase) UpdateCustomer(ctx context.Context, id string, patch domain.CustomerPatch) (*domain.Customer, error) {
	var details []apperrors.ValidationDetail
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "name", Message: "name must not be empty"})
	}
	if patch.Phone != nil {
		phone := domain.NormalizePhone(*patch.Phone)
		if phone == "" {
			details = append(details, apperrors.ValidationDetail{Field: "phone", Message: "phone must not be empty"})
		}
		patch.Phone = &phone
	}
	if len(details) > 0 {
		return nil, apperrors.NewValidationError("invalid customer update", details...)
	}

	if err := uc.gateway.UpdateCustomer(ctx, id, patch, uc.now().UTC()); err != nil {
		return nil, notFoundAs(err, "customer not found")
	}

	uc.logger.Info("customer updated", zap.String("customerId", id))
	return uc.GetCustomer(ctx, id)
}

// DeleteCustomer removes only the customer. Its orders are left in place.
func (uc *CustomerUseCase) DeleteCustomer(ctx context.Context, id string) error {
	if err := uc.gateway.DeleteCustomer(ctx, id); err != nil {
		return notFoundAs(err, "customer not found")
	}

	uc.logger.Info("customer deleted", zap.String("customerId", id))
	return nil
}

// RecomputeBalance overwrites the customer balance with the sum of its
// orders. It repairs any drift.
func (uc *CustomerUseCase) RecomputeBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	if _, err := uc.GetCustomer(ctx, id); err != nil {
		return decimal.Zero, err
	}

	balance, err := uc.recomputer.Recompute(ctx, id)
	if err != nil {
		return decimal.Zero, notFoundAs(err, "customer not found")
	}
	return balance, nil
}

func notFoundAs(err error, message string) error {
	if _, ok := apperrors.IsNotFoundError(err); ok {
		return apperrors.NewNotFoundError(message)
	}
	return err
}
