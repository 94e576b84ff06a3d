package dto

import (
	"encoding/json"

	"atelier/internal/domain"
)

type CreateCustomerRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Phone       string `json:"phone" validate:"required,max=32"`
	Address     string `json:"address" validate:"max=500"`
	PickupDate  string `json:"pickupDate"`
	FittingDate string `json:"fittingDate"`
	Notes       string `json:"notes"`
}

// UpdateCustomerRequest is a partial update. Balance is not accepted.
type UpdateCustomerRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=1,max=200"`
	Phone       *string `json:"phone" validate:"omitempty,min=1,max=32"`
	Address     *string `json:"address" validate:"omitempty,max=500"`
	PickupDate  *string `json:"pickupDate"`
	FittingDate *string `json:"fittingDate"`
	Notes       *string `json:"notes"`
}

type CustomerResponse struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Phone       string      `json:"phone"`
	Address     string      `json:"address"`
	PickupDate  *string     `json:"pickupDate"`
	FittingDate *string     `json:"fittingDate"`
	Notes       string      `json:"notes"`
	Balance     json.Number `json:"balance"`
	CreatedAt   *string     `json:"createdAt"`
	UpdatedAt   *string     `json:"updatedAt"`
}

type CreateCustomerResponse struct {
	ID       string           `json:"id"`
	Message  string           `json:"message"`
	Customer CustomerResponse `json:"customer"`
}

type BalanceResponse struct {
	CustomerID string      `json:"customerId"`
	Balance    json.Number `json:"balance"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewCustomerResponse(c domain.Customer) CustomerResponse {
	return CustomerResponse{
		ID:          c.ID,
		Name:        c.Name,
		Phone:       c.Phone,
		Address:     c.Address,
		PickupDate:  domain.FormatISOTime(c.PickupDate),
		FittingDate: domain.FormatISOTime(c.FittingDate),
		Notes:       c.Notes,
		Balance:     Amount(c.Balance),
		CreatedAt:   formatTime(c.CreatedAt),
		UpdatedAt:   formatTime(c.UpdatedAt),
	}
}

func NewCustomerResponses(customers []domain.Customer) []CustomerResponse {
	out := make([]CustomerResponse, 0, len(customers))
	for _, c := range customers {
		out = append(out, NewCustomerResponse(c))
	}
	return out
}
