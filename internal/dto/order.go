package dto

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"atelier/internal/domain"
)

// Amounts arrive as raw JSON so that numbers, numeric strings and null are
// all accepted and coerced by domain.ParseAmount.

type CreateOrderRequest struct {
	CustomerID   string          `json:"customerId" validate:"required"`
	Item         string          `json:"item" validate:"required"`
	Measurements map[string]any  `json:"measurements"`
	Price        json.RawMessage `json:"price"`
	Deposit      json.RawMessage `json:"deposit"`
	PickupDate   string          `json:"pickupDate"`
	FittingDate  string          `json:"fittingDate"`
	Notes        string          `json:"notes"`
}

type CreateOrderResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// UpdateOrderRequest is a partial update. Absent fields are left unchanged.
type UpdateOrderRequest struct {
	Status       *string         `json:"status"`
	Measurements map[string]any  `json:"measurements"`
	Price        json.RawMessage `json:"price"`
	Deposit      json.RawMessage `json:"deposit"`
	PickupDate   *string         `json:"pickupDate"`
	FittingDate  *string         `json:"fittingDate"`
	Notes        *string         `json:"notes"`
}

type UpdateOrderResponse struct {
	Message string        `json:"message"`
	Order   OrderResponse `json:"order"`
}

type TrackOrdersRequest struct {
	Phone string `json:"phone" validate:"required"`
}

type OrderResponse struct {
	ID           string         `json:"id"`
	CustomerID   string         `json:"customerId"`
	Item         string         `json:"item"`
	Measurements map[string]any `json:"measurements"`
	Price        json.Number    `json:"price"`
	Deposit      json.Number    `json:"deposit"`
	Balance      json.Number    `json:"balance"`
	Status       string         `json:"status"`
	PickupDate   *string        `json:"pickupDate"`
	FittingDate  *string        `json:"fittingDate"`
	Notes        string         `json:"notes"`
	CreatedAt    *string        `json:"createdAt"`
	UpdatedAt    *string        `json:"updatedAt"`
}

func NewOrderResponse(o domain.Order) OrderResponse {
	measurements := o.Measurements
	if measurements == nil {
		measurements = map[string]any{}
	}
	return OrderResponse{
		ID:           o.ID,
		CustomerID:   o.CustomerID,
		Item:         o.Item,
		Measurements: measurements,
		Price:        Amount(o.Price),
		Deposit:      Amount(o.Deposit),
		Balance:      Amount(o.Balance),
		Status:       string(o.Status),
		PickupDate:   domain.FormatISOTime(o.PickupDate),
		FittingDate:  domain.FormatISOTime(o.FittingDate),
		Notes:        o.Notes,
		CreatedAt:    formatTime(o.CreatedAt),
		UpdatedAt:    formatTime(o.UpdatedAt),
	}
}

func NewOrderResponses(orders []domain.Order) []OrderResponse {
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, NewOrderResponse(o))
	}
	return out
}

// Amount renders a decimal as a bare JSON number.
func Amount(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func formatTime(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	return domain.FormatISOTime(&t)
}
