package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Customer.Balance is derived: it tracks the sum of the balances of the
// customer's orders and is never written by clients.
type Customer struct {
	ID          string
	Name        string
	Phone       string
	Address     string
	PickupDate  *time.Time
	FittingDate *time.Time
	Notes       string
	Balance     decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CustomerPatch struct {
	Name        *string
	Phone       *string
	Address     *string
	PickupDate  *time.Time
	FittingDate *time.Time
	Notes       *string
}

func (p CustomerPatch) IsEmpty() bool {
	return p.Name == nil && p.Phone == nil && p.Address == nil &&
		p.PickupDate == nil && p.FittingDate == nil && p.Notes == nil
}

func (c Customer) Apply(p CustomerPatch, now time.Time) Customer {
	updated := c
	if p.Name != nil {
		updated.Name = *p.Name
	}
	if p.Phone != nil {
		updated.Phone = *p.Phone
	}
	if p.Address != nil {
		updated.Address = *p.Address
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
	updated.UpdatedAt = now
	return updated
}

type AppointmentKind string

const (
	AppointmentPickup  AppointmentKind = "pickup"
	AppointmentFitting AppointmentKind = "fitting"
)

// AppointmentDate returns the customer's date for the given kind.
func (c Customer) AppointmentDate(kind AppointmentKind) *time.Time {
	switch kind {
	case AppointmentPickup:
		return c.PickupDate
	case AppointmentFitting:
		return c.FittingDate
	}
	return nil
}

// NormalizePhone keeps only the digits of phone, so "+1 (555) 000-1" and
// "15550001" name the same customer.
func NormalizePhone(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}
