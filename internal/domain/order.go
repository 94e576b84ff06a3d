package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "Pending"
	OrderStatusInProgress OrderStatus = "In Progress"
	OrderStatusReady      OrderStatus = "Ready"
	OrderStatusPickedUp   OrderStatus = "Picked Up"
)

// OrderStatuses lists every status in progression order. Any of them may be
// written at any time; no transition is enforced.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusInProgress,
	OrderStatusReady,
	OrderStatusPickedUp,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

type Order struct {
	ID           string
	CustomerID   string
	Item         string
	Measurements map[string]any
	Price        decimal.Decimal
	Deposit      decimal.Decimal
	Balance      decimal.Decimal
	Status       OrderStatus
	PickupDate   *time.Time
	FittingDate  *time.Time
	Notes        string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderBalance is the amount still owed on an order.
func OrderBalance(price, deposit decimal.Decimal) decimal.Decimal {
	return price.Sub(deposit)
}

// OrderPatch carries the fields of a partial order update. Nil fields are
// left unchanged. Balance and UpdatedAt are derived by Resolve.
type OrderPatch struct {
	Status       *OrderStatus
	Measurements map[string]any
	Price        *decimal.Decimal
	Deposit      *decimal.Decimal
	PickupDate   *time.Time
	FittingDate  *time.Time
	Notes        *string

	Balance   *decimal.Decimal
	UpdatedAt time.Time
}

// Resolve fills in the derived fields of p against the stored order. The
// balance is recomputed only when price or deposit is supplied; the missing
// side falls back to the stored value.
func (p OrderPatch) Resolve(current Order, now time.Time) OrderPatch {
	resolved := p
	resolved.Balance = nil
	resolved.UpdatedAt = now

	if p.Price != nil || p.Deposit != nil {
		price := current.Price
		if p.Price != nil {
			price = *p.Price
		}
		deposit := current.Deposit
		if p.Deposit != nil {
			deposit = *p.Deposit
		}
		balance := OrderBalance(price, deposit)
		resolved.Balance = &balance
	}

	return resolved
}

// StatusChanged reports whether applying p writes a status different from
// the stored one.
func (p OrderPatch) StatusChanged(current Order) bool {
	return p.Status != nil && *p.Status != current.Status
}

// Apply returns a copy of o with the supplied fields of p written over it.
func (o Order) Apply(p OrderPatch) Order {
	updated := o
	updated.Measurements = CloneMeasurements(o.Measurements)

	if p.Status != nil {
		updated.Status = *p.Status
	}
	if p.Measurements != nil {
		updated.Measurements = CloneMeasurements(p.Measurements)
	}
	if p.Price != nil {
		updated.Price = *p.Price
	}
	if p.Deposit != nil {
		updated.Deposit = *p.Deposit
	}
	if p.Balance != nil {
		updated.Balance = *p.Balance
	}
	if p.PickupDate != nil {
		t := *p.PickupDate
		updated.PickupDate = &t
	}
	if p.FittingDate != nil {
		t := *p.FittingDate
		updated.FittingDate = &t
	}
	if p.Notes != nil {
		updated.Notes = *p.Notes
	}
	if !p.UpdatedAt.IsZero() {
		updated.UpdatedAt = p.UpdatedAt
	}

	return updated
}

func CloneMeasurements(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// SumBalances adds up the balance of every order.
func SumBalances(orders []Order) decimal.Decimal {
	total := decimal.Zero
	for _, o := range orders {
		total = total.Add(o.Balance)
	}
	return total
}
