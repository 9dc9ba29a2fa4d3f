// Package supplier provides the Supplier catalog.
package supplier

import (
	"context"

	"stockbook/internal/core/apperror"
	"stockbook/internal/core/entity"
)

// Supplier represents a goods supplier.
type Supplier struct {
	entity.BaseCatalog

	Name          string  `db:"name" json:"name"`
	ContactPerson *string `db:"contact_person" json:"contactPerson,omitempty"`
	Phone         *string `db:"phone" json:"phone,omitempty"`
	Email         *string `db:"email" json:"email,omitempty"`
	Address       *string `db:"address" json:"address,omitempty"`
}

// New creates a new Supplier.
func New(name string) *Supplier {
	return &Supplier{
		BaseCatalog: entity.NewBaseCatalog(),
		Name:        name,
	}
}

// Validate implements entity.Validatable interface.
func (s *Supplier) Validate(ctx context.Context) error {
	if s.Name == "" {
		return apperror.NewValidation("name is required").
			WithDetail("field", "name")
	}
	return nil
}
