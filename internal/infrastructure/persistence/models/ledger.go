package models

import (
	"time"

	"github.com/erp/ledger/internal/domain/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the financial side of an order.
type OrderModel struct {
	AggregateModel
	OrderNumber   string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	CustomerID    *uuid.UUID           `gorm:"type:uuid;index"`
	CustomerName  string               `gorm:"type:varchar(200)"`
	BranchID      *uuid.UUID           `gorm:"type:uuid;index"`
	Subtotal      decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Discount      decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	Total         decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	PaidAmount    decimal.Decimal      `gorm:"type:decimal(18,4);not null"`
	DueAmount     decimal.NullDecimal  `gorm:"type:decimal(18,4)"`
	PaymentStatus ledger.PaymentStatus `gorm:"type:varchar(20);not null;index"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order.
func (m *OrderModel) ToDomain() *ledger.Order {
	o := &ledger.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		CustomerID:        m.CustomerID,
		CustomerName:      m.CustomerName,
		BranchID:          m.BranchID,
		Subtotal:          m.Subtotal,
		Discount:          m.Discount,
		Total:             m.Total,
		PaidAmount:        m.PaidAmount,
		PaymentStatus:     m.PaymentStatus,
	}
	if m.DueAmount.Valid {
		due := m.DueAmount.Decimal
		o.DueAmount = &due
	}
	return o
}

// FromDomain populates the persistence model from a domain Order.
func (m *OrderModel) FromDomain(o *ledger.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.CustomerID = o.CustomerID
	m.CustomerName = o.CustomerName
	m.BranchID = o.BranchID
	m.Subtotal = o.Subtotal
	m.Discount = o.Discount
	m.Total = o.Total
	m.PaidAmount = o.PaidAmount
	m.DueAmount = nullDecimal(o.DueAmount)
	m.PaymentStatus = o.PaymentStatus
}

// OrderModelFromDomain creates a new persistence model from domain.
func OrderModelFromDomain(o *ledger.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// CustomerModel is the persistence model for customers.
type CustomerModel struct {
	BaseModel
	Name     string     `gorm:"type:varchar(200);not null;index"`
	Phone    string     `gorm:"type:varchar(50);index"`
	Email    string     `gorm:"type:varchar(200)"`
	Address  string     `gorm:"type:text"`
	BranchID *uuid.UUID `gorm:"type:uuid;index"`
}

// TableName returns the table name for GORM
func (CustomerModel) TableName() string {
	return "customers"
}

// ToDomain converts the persistence model to a domain Customer.
func (m *CustomerModel) ToDomain() *ledger.Customer {
	return &ledger.Customer{
		BaseEntity: m.BaseModel.ToDomain(),
		Name:       m.Name,
		Phone:      m.Phone,
		Email:      m.Email,
		Address:    m.Address,
		BranchID:   m.BranchID,
	}
}

// CustomerModelFromDomain creates a new persistence model from domain.
func CustomerModelFromDomain(c *ledger.Customer) *CustomerModel {
	m := &CustomerModel{
		Name:     c.Name,
		Phone:    c.Phone,
		Email:    c.Email,
		Address:  c.Address,
		BranchID: c.BranchID,
	}
	m.FromDomainBaseEntity(c.BaseEntity)
	return m
}

// DuePaymentModel is the persistence model for the DuePayment aggregate root.
type DuePaymentModel struct {
	AggregateModel
	CustomerID      uuid.UUID                   `gorm:"type:uuid;not null;index"`
	BranchID        *uuid.UUID                  `gorm:"type:uuid;index"`
	Amount          decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	UnappliedAmount decimal.Decimal             `gorm:"type:decimal(18,4);not null"`
	PaymentMethod   ledger.PaymentMethod        `gorm:"type:varchar(30);not null"`
	PaymentDate     time.Time                   `gorm:"not null;index"`
	Reference       string                      `gorm:"type:varchar(100)"`
	Note            string                      `gorm:"type:text"`
	PaymentSlips    StringList                  `gorm:"type:text"`
	Allocations     []DuePaymentAllocationModel `gorm:"foreignKey:PaymentID;references:ID"`
}

// TableName returns the table name for GORM
func (DuePaymentModel) TableName() string {
	return "due_payments"
}

// ToDomain converts the persistence model to a domain DuePayment.
func (m *DuePaymentModel) ToDomain() *ledger.DuePayment {
	p := &ledger.DuePayment{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		CustomerID:        m.CustomerID,
		BranchID:          m.BranchID,
		Amount:            m.Amount,
		PaymentMethod:     m.PaymentMethod,
		PaymentDate:       m.PaymentDate,
		UnappliedAmount:   m.UnappliedAmount,
		Reference:         m.Reference,
		Note:              m.Note,
		PaymentSlips:      []string(m.PaymentSlips),
		Allocations:       make([]ledger.DuePaymentAllocation, len(m.Allocations)),
	}
	for i := range m.Allocations {
		p.Allocations[i] = *m.Allocations[i].ToDomain()
	}
	return p
}

// FromDomain populates the persistence model from a domain DuePayment.
// Allocations are written separately and are not copied.
func (m *DuePaymentModel) FromDomain(p *ledger.DuePayment) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.CustomerID = p.CustomerID
	m.BranchID = p.BranchID
	m.Amount = p.Amount
	m.UnappliedAmount = p.UnappliedAmount
	m.PaymentMethod = p.PaymentMethod
	m.PaymentDate = p.PaymentDate
	m.Reference = p.Reference
	m.Note = p.Note
	m.PaymentSlips = StringList(p.PaymentSlips)
}

// DuePaymentModelFromDomain creates a new persistence model from domain.
func DuePaymentModelFromDomain(p *ledger.DuePayment) *DuePaymentModel {
	m := &DuePaymentModel{}
	m.FromDomain(p)
	return m
}

// DuePaymentAllocationModel is the persistence model for DuePaymentAllocation.
type DuePaymentAllocationModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primary_key"`
	PaymentID uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_allocation_payment_order,priority:1"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_allocation_payment_order,priority:2"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,4);not null"`
	CreatedAt time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (DuePaymentAllocationModel) TableName() string {
	return "due_payment_allocations"
}

// ToDomain converts the persistence model to a domain DuePaymentAllocation.
func (m *DuePaymentAllocationModel) ToDomain() *ledger.DuePaymentAllocation {
	return &ledger.DuePaymentAllocation{
		ID:        m.ID,
		PaymentID: m.PaymentID,
		OrderID:   m.OrderID,
		Amount:    m.Amount,
		CreatedAt: m.CreatedAt,
	}
}

// DuePaymentAllocationModelFromDomain creates a new persistence model from domain.
func DuePaymentAllocationModelFromDomain(a *ledger.DuePaymentAllocation) *DuePaymentAllocationModel {
	return &DuePaymentAllocationModel{
		ID:        a.ID,
		PaymentID: a.PaymentID,
		OrderID:   a.OrderID,
		Amount:    a.Amount,
		CreatedAt: a.CreatedAt,
	}
}

// OrderCounterModel is the single-row sequence behind order numbers.
type OrderCounterModel struct {
	Name      string    `gorm:"type:varchar(50);primaryKey"`
	Value     int64     `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderCounterModel) TableName() string {
	return "order_counters"
}

// ToDomain converts the persistence model to a domain OrderCounter.
func (m *OrderCounterModel) ToDomain() *ledger.OrderCounter {
	return &ledger.OrderCounter{Name: m.Name, Value: m.Value}
}

// AllModels lists every model, in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&CustomerModel{},
		&OrderModel{},
		&DuePaymentModel{},
		&DuePaymentAllocationModel{},
		&OrderCounterModel{},
	}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
