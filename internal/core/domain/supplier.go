// internal/core/domain/supplier.go
package domain

import "github.com/google/uuid"

// Supplier is a vendor referenced by inbound transactions by name
type Supplier struct {
	ID            string `json:"id" validate:"required"`
	Name          string `json:"name" validate:"required"`
	ContactPerson string `json:"contactPerson,omitempty"`
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty" validate:"omitempty,email"`
	Address       string `json:"address,omitempty"`
	Notes         string `json:"notes,omitempty"`
}

// Validate performs domain validation on the supplier
func (s *Supplier) Validate() error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return ValidateStruct(s)
}
