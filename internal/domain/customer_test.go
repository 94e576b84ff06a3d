package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestCustomer_Apply(t *testing.T) {
	created := time.Date(2025, 11, 1, 0, 0, 0, 0, time.UTC)
	now := created.Add(24 * time.Hour)
	fitting := time.Date(2025, 11, 20, 9, 0, 0, 0, time.UTC)
	name := "Amina"
	notes := ""

	c := Customer{
		ID:        "c1",
		Name:      "Amina K",
		Phone:     "5551234",
		Notes:     "prefers calls",
		Balance:   dec("80"),
		CreatedAt: created,
		UpdatedAt: created,
	}

	updated := c.Apply(CustomerPatch{Name: &name, FittingDate: &fitting, Notes: &notes}, now)

	assert.Equal(t, "Amina", updated.Name)
	assert.Equal(t, "5551234", updated.Phone)
	assert.Equal(t, "", updated.Notes)
	assert.Equal(t, fitting, *updated.FittingDate)
	assert.Nil(t, updated.PickupDate)
	assert.True(t, dec("80").Equal(updated.Balance))
	assert.Equal(t, now, updated.UpdatedAt)
	assert.Equal(t, created, updated.CreatedAt)
}

func TestCustomerPatch_IsEmpty(t *testing.T) {
	phone := "5550000"

	assert.True(t, CustomerPatch{}.IsEmpty())
	assert.False(t, CustomerPatch{Phone: &phone}.IsEmpty())
}

func TestCustomer_AppointmentDate(t *testing.T) {
	pickup := time.Date(2025, 12, 1, 10, 0, 0, 0, time.UTC)
	c := Customer{PickupDate: &pickup, Balance: decimal.Zero}

	assert.Equal(t, &pickup, c.AppointmentDate(AppointmentPickup))
	assert.Nil(t, c.AppointmentDate(AppointmentFitting))
	assert.Nil(t, c.AppointmentDate(AppointmentKind("delivery")))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"+1 (555) 000-1", "15550001"},
		{"15550001", "15550001"},
		{" 555.123.4567 ", "5551234567"},
		{"+44 20 7946 0958", "442079460958"},
		{"ext.", ""},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizePhone(tt.in), tt.in)
	}
}
