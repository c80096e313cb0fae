package ledger

import (
	"strings"

	"github.com/erp/ledger/internal/domain/shared"
	"github.com/google/uuid"
)

const maxCustomerNameLength = 200

// Customer is a party that can owe money to the business
type Customer struct {
	shared.BaseEntity
	Name     string
	Phone    string
	Email    string
	Address  string
	BranchID *uuid.UUID
}

// CustomerInput identifies a customer by name and, optionally, phone.
// Order entry often only knows a name string.
type CustomerInput struct {
	Name     string
	Phone    string
	Email    string
	Address  string
	BranchID *uuid.UUID
}

// Normalized trims all free-text fields
func (in CustomerInput) Normalized() CustomerInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.TrimSpace(in.Email)
	in.Address = strings.TrimSpace(in.Address)
	return in
}

// NewCustomer creates a new customer
func NewCustomer(in CustomerInput) (*Customer, error) {
	in = in.Normalized()
	if in.Name == "" {
		return nil, validationError("Customer name cannot be empty")
	}
	if len(in.Name) > maxCustomerNameLength {
		return nil, validationError("Customer name cannot exceed 200 characters")
	}
	if in.Email != "" && !strings.Contains(in.Email, "@") {
		return nil, validationError("Customer email is not valid")
	}
	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		Name:       in.Name,
		Phone:      in.Phone,
		Email:      in.Email,
		Address:    in.Address,
		BranchID:   in.BranchID,
	}, nil
}
