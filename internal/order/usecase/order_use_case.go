package usecase

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"atelier/internal/config"
	"atelier/internal/domain"
	"atelier/internal/dto"
	apperrors "atelier/internal/errors"
	"atelier/internal/realtime"
	"atelier/internal/store"
)

type OrderGateway interface {
	Transact(ctx context.Context, fn func(ctx context.Context, tx store.Tx) error) error
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	FindCustomersByPhone(ctx context.Context, phone string) ([]domain.Customer, error)
	GetOrder(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	UpdateOrder(ctx context.Context, id string, patch domain.OrderPatch) error
}

type BalanceReconciler interface {
	ApplyDelta(ctx context.Context, tx store.Tx, customerID string, delta decimal.Decimal) (decimal.Decimal, error)
	Recompute(ctx context.Context, customerID string) (decimal.Decimal, error)
	RecomputeInTx(ctx context.Context, tx store.Tx, customerID string) (decimal.Decimal, error)
}

type StatusNotifier interface {
	SendStatusChangeNotification(ctx context.Context, phone, customerName, item string, status domain.OrderStatus)
}

type CreateOrderInput struct {
	CustomerID   string
	Item         string
	Measurements map[string]any
	Price        decimal.Decimal
	Deposit      decimal.Decimal
	PickupDate   *time.Time
	FittingDate  *time.Time
	Notes        string
}

type OrderUseCase struct {
	gateway    OrderGateway
	reconciler BalanceReconciler
	notifier   StatusNotifier
	publisher  realtime.Publisher
	mode       string
	logger     *zap.Logger

	now   func() time.Time
	newID func() string
}

// NewOrderUseCase wires the order lifecycle. mode is one of
// config.BalanceModeTransactional or config.BalanceModeLegacy.
func NewOrderUseCase(
	gateway OrderGateway,
	reconciler BalanceReconciler,
	notifier StatusNotifier,
	publisher realtime.Publisher,
	mode string,
	logger *zap.Logger,
) *OrderUseCase {
	if mode == "" {
		mode = config.BalanceModeTransactional
	}
	return &OrderUseCase{
		gateway:    gateway,
		reconciler: reconciler,
		notifier:   notifier,
		publisher:  publisher,
		mode:       mode,
		logger:     logger,
		now:        time.Now,
		newID:      func() string { return uuid.New().String() },
	}
}

// CreateOrder stores a Pending order and adds its balance to the customer in
// one transaction. An unknown customer fails with NotFound and leaves no
// trace.
func (uc *OrderUseCase) CreateOrder(ctx context.Context, in CreateOrderInput) (*domain.Order, error) {
	if err := validateCreateOrder(in); err != nil {
		return nil, err
	}

	now := uc.now().UTC()
	order := &domain.Order{
		ID:           uc.newID(),
		CustomerID:   in.CustomerID,
		Item:         in.Item,
		Measurements: domain.CloneMeasurements(in.Measurements),
		Price:        in.Price,
		Deposit:      in.Deposit,
		Balance:      domain.OrderBalance(in.Price, in.Deposit),
		Status:       domain.OrderStatusPending,
		PickupDate:   in.PickupDate,
		FittingDate:  in.FittingDate,
		Notes:        in.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if order.Measurements == nil {
		order.Measurements = map[string]any{}
	}

	logger := uc.logger.With(zap.String("orderId", order.ID), zap.String("customerId", order.CustomerID))

	var customerBalance decimal.Decimal
	err := uc.gateway.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		balance, err := uc.reconciler.ApplyDelta(ctx, tx, order.CustomerID, order.Balance)
		if err != nil {
			return err
		}
		customerBalance = balance
		return tx.InsertOrder(ctx, order)
	})
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, apperrors.NewNotFoundError("customer not found")
		}
		return nil, err
	}

	logger.Info("order created",
		zap.String("balance", order.Balance.String()),
		zap.String("customerBalance", customerBalance.String()),
	)

	uc.publish(ctx, *order)
	return order, nil
}

func validateCreateOrder(in CreateOrderInput) error {
	var details []apperrors.ValidationDetail

	if strings.TrimSpace(in.CustomerID) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "customerId", Message: "customerId is required"})
	}
	if strings.TrimSpace(in.Item) == "" {
		details = append(details, apperrors.ValidationDetail{Field: "item", Message: "item is required"})
	}
	details = append(details, validateAmounts(&in.Price, &in.Deposit)...)

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid order", details...)
	}
	return nil
}

func validateAmounts(price, deposit *decimal.Decimal) []apperrors.ValidationDetail {
	var details []apperrors.ValidationDetail
	if price != nil && price.IsNegative() {
		details = append(details, apperrors.ValidationDetail{Field: "price", Message: "price must be non-negative"})
	}
	if deposit != nil && deposit.IsNegative() {
		details = append(details, apperrors.ValidationDetail{Field: "deposit", Message: "deposit must be non-negative"})
	}
	return details
}

// UpdateOrder applies the supplied fields of patch. A status change texts the
// customer; a failed text never fails the update.
func (uc *OrderUseCase) UpdateOrder(ctx context.Context, orderID string, patch domain.OrderPatch) (*domain.Order, error) {
	if err := validateOrderPatch(patch); err != nil {
		return nil, err
	}

	if uc.mode == config.BalanceModeLegacy {
		return uc.updateOrderLegacy(ctx, orderID, patch)
	}
	return uc.updateOrderTransactional(ctx, orderID, patch)
}

func validateOrderPatch(patch domain.OrderPatch) error {
	var details []apperrors.ValidationDetail
	if patch.Status != nil && !patch.Status.Valid() {
		details = append(details, apperrors.ValidationDetail{
			Field:   "status",
			Message: "status must be one of Pending, In Progress, Ready, Picked Up",
		})
	}
	details = append(details, validateAmounts(patch.Price, patch.Deposit)...)

	if len(details) > 0 {
		return apperrors.NewValidationError("invalid order update", details...)
	}
	return nil
}

// updateOrderTransactional writes the patch and recomputes the customer
// balance in the same transaction, so concurrent writes to sibling orders
// cannot leave the balance stale.
func (uc *OrderUseCase) updateOrderTransactional(ctx context.Context, orderID string, patch domain.OrderPatch) (*domain.Order, error) {
	logger := uc.logger.With(zap.String("orderId", orderID), zap.String("mode", config.BalanceModeTransactional))

	var before, after domain.Order
	var resolved domain.OrderPatch
	err := uc.gateway.Transact(ctx, func(ctx context.Context, tx store.Tx) error {
		current, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}

		resolved = patch.Resolve(*current, uc.now().UTC())
		if err := tx.UpdateOrder(ctx, orderID, resolved); err != nil {
			return err
		}

		updated, err := tx.GetOrder(ctx, orderID)
		if err != nil {
			return err
		}

		if _, err := uc.reconciler.RecomputeInTx(ctx, tx, current.CustomerID); err != nil {
			if _, ok := apperrors.IsNotFoundError(err); !ok {
				return err
			}
			logger.Warn("order has no customer, balance not reconciled", zap.String("customerId", current.CustomerID))
		}

		before, after = *current, *updated
		return nil
	})
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, err
	}

	logger.Info("order updated", zap.String("status", string(after.Status)), zap.String("balance", after.Balance.String()))

	uc.notifyStatusChange(ctx, resolved, before, after, logger)
	uc.publish(ctx, after)
	return &after, nil
}

// updateOrderLegacy persists the patch first and recomputes the balance
// afterwards, outside any transaction. A failed recompute is logged and the
// balance stays stale until the next one.
func (uc *OrderUseCase) updateOrderLegacy(ctx context.Context, orderID string, patch domain.OrderPatch) (*domain.Order, error) {
	logger := uc.logger.With(zap.String("orderId", orderID), zap.String("mode", config.BalanceModeLegacy))

	current, err := uc.gateway.GetOrder(ctx, orderID)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, err
	}

	resolved := patch.Resolve(*current, uc.now().UTC())
	if err := uc.gateway.UpdateOrder(ctx, orderID, resolved); err != nil {
		return nil, err
	}

	updated, err := uc.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	logger.Info("order updated", zap.String("status", string(updated.Status)), zap.String("balance", updated.Balance.String()))

	uc.notifyStatusChange(ctx, resolved, *current, *updated, logger)

	if _, err := uc.reconciler.Recompute(ctx, current.CustomerID); err != nil {
		logger.Error("balance recompute failed, customer balance is stale",
			zap.String("customerId", current.CustomerID),
			zap.Error(err),
		)
	}

	uc.publish(ctx, *updated)
	return updated, nil
}

func (uc *OrderUseCase) notifyStatusChange(ctx context.Context, patch domain.OrderPatch, before, after domain.Order, logger *zap.Logger) {
	if !patch.StatusChanged(before) {
		return
	}

	customer, err := uc.gateway.GetCustomer(ctx, before.CustomerID)
	if err != nil {
		logger.Warn("skipping status notification, customer not resolved",
			zap.String("customerId", before.CustomerID),
			zap.Error(err),
		)
		return
	}

	uc.notifier.SendStatusChangeNotification(ctx, customer.Phone, customer.Name, after.Item, after.Status)
}

func (uc *OrderUseCase) publish(ctx context.Context, order domain.Order) {
	uc.publisher.Publish(ctx, realtime.EventOrderUpdated, dto.NewOrderResponse(order), realtime.CustomerRoom(order.CustomerID))
}

// TrackOrdersByPhone returns the orders of every customer whose phone has the
// same digits, newest first. An unknown phone yields an empty list.
func (uc *OrderUseCase) TrackOrdersByPhone(ctx context.Context, phone string) ([]domain.Order, error) {
	phone = domain.NormalizePhone(phone)
	if phone == "" {
		return nil, apperrors.NewValidationError("Phone number is required", apperrors.ValidationDetail{
			Field:   "phone",
			Message: "phone is required",
		})
	}

	customers, err := uc.gateway.FindCustomersByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}

	orders := []domain.Order{}
	for _, c := range customers {
		found, err := uc.gateway.ListOrdersByCustomer(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		orders = append(orders, found...)
	}

	SortNewestFirst(orders)
	return orders, nil
}

func (uc *OrderUseCase) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := uc.gateway.GetOrder(ctx, id)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, apperrors.NewNotFoundError("order not found")
		}
		return nil, err
	}
	return order, nil
}

func (uc *OrderUseCase) ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error) {
	if _, err := uc.gateway.GetCustomer(ctx, customerID); err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			return nil, apperrors.NewNotFoundError("customer not found")
		}
		return nil, err
	}

	orders, err := uc.gateway.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	SortNewestFirst(orders)
	return orders, nil
}

// SortNewestFirst orders by CreatedAt descending. Ties keep their retrieval
// order.
func SortNewestFirst(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].CreatedAt.After(orders[j].CreatedAt)
	})
}
