// Package customer provides the Customer catalog.
package customer

import (
	"context"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
)

// Customer represents a buyer.
type Customer struct {
	entity.BaseCatalog

	Name     string  `db:"name" json:"name"`
	Phone    *string `db:"phone" json:"phone,omitempty"`
	Email    *string `db:"email" json:"email,omitempty"`
	Address  *string `db:"address" json:"address,omitempty"`
	State    *string `db:"state" json:"state,omitempty"`
	District *string `db:"district" json:"district,omitempty"`
	Town     *string `db:"town" json:"town,omitempty"`
}

// New creates a new Customer.
func New(name string) *Customer {
	return &Customer{
		BaseCatalog: entity.NewBaseCatalog(),
		Name:        name,
	}
}

// Validate implements entity.Validatable interface.
func (c *Customer) Validate(ctx context.Context) error {
	if c.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}
