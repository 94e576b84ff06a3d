package service

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"atelier/internal/domain"
	"atelier/internal/store"
)

// Strategy names the way a customer balance was brought in line with its
// orders.
type Strategy string

const (
	// StrategyAtomicDelta adds one order's balance to the customer inside the
	// transaction that creates the order.
	StrategyAtomicDelta Strategy = "atomic_delta"
	// StrategyRecompute sums every order outside any transaction. It corrects
	// drift from any source but can race with concurrent order writes.
	StrategyRecompute Strategy = "recompute"
	// StrategyRecomputeInTx is the same scan-and-sum inside a transaction.
	StrategyRecomputeInTx Strategy = "recompute_in_tx"
)

type BalanceGateway interface {
	ListOrdersByCustomer(ctx context.Context, customerID string) ([]domain.Order, error)
	UpdateCustomerBalance(ctx context.Context, id string, balance decimal.Decimal, updatedAt time.Time) error
}

// BalanceReconciler keeps Customer.Balance equal to the sum of the balances
// of the customer's orders.
type BalanceReconciler struct {
	gateway BalanceGateway
	logger  *zap.Logger
	now     func() time.Time
}

func NewBalanceReconciler(gateway BalanceGateway, logger *zap.Logger, now func() time.Time) *BalanceReconciler {
	if now == nil {
		now = time.Now
	}
	return &BalanceReconciler{
		gateway: gateway,
		logger:  logger,
		now:     now,
	}
}

// ApplyDelta reads the customer through tx and writes balance+delta. A
// missing customer fails with NotFound, which aborts the transaction.
func (r *BalanceReconciler) ApplyDelta(ctx context.Context, tx store.Tx, customerID string, delta decimal.Decimal) (decimal.Decimal, error) {
	customer, err := tx.GetCustomer(ctx, customerID)
	if err != nil {
		return decimal.Zero, err
	}

	balance := customer.Balance.Add(delta)
	if err := tx.UpdateCustomerBalance(ctx, customerID, balance, r.now().UTC()); err != nil {
		return decimal.Zero, err
	}

	r.logger.Debug("customer balance reconciled",
		zap.String("strategy", string(StrategyAtomicDelta)),
		zap.String("customerId", customerID),
		zap.String("delta", delta.String()),
		zap.String("balance", balance.String()),
	)

	return balance, nil
}

// Recompute overwrites the customer balance with the sum of its orders,
// outside any transaction.
func (r *BalanceReconciler) Recompute(ctx context.Context, customerID string) (decimal.Decimal, error) {
	orders, err := r.gateway.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("listing orders for recompute: %w", err)
	}

	balance := domain.SumBalances(orders)
	if err := r.gateway.UpdateCustomerBalance(ctx, customerID, balance, r.now().UTC()); err != nil {
		return decimal.Zero, err
	}

	r.logger.Debug("customer balance reconciled",
		zap.String("strategy", string(StrategyRecompute)),
		zap.String("customerId", customerID),
		zap.Int("orderCount", len(orders)),
		zap.String("balance", balance.String()),
	)

	return balance, nil
}

// RecomputeInTx is Recompute run through tx. The customer is read first so
// that its row lock orders this transaction with concurrent order creation.
func (r *BalanceReconciler) RecomputeInTx(ctx context.Context, tx store.Tx, customerID string) (decimal.Decimal, error) {
	if _, err := tx.GetCustomer(ctx, customerID); err != nil {
		return decimal.Zero, err
	}

	orders, err := tx.ListOrdersByCustomer(ctx, customerID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("listing orders for recompute: %w", err)
	}

	balance := domain.SumBalances(orders)
	if err := tx.UpdateCustomerBalance(ctx, customerID, balance, r.now().UTC()); err != nil {
		return decimal.Zero, err
	}

	r.logger.Debug("customer balance reconciled",
		zap.String("strategy", string(StrategyRecomputeInTx)),
		zap.String("customerId", customerID),
		zap.Int("orderCount", len(orders)),
		zap.String("balance", balance.String()),
	)

	return balance, nil
}
