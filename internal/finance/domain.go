// Package finance tracks receivables and payables and reconciles them against
// cash register entries.
package finance

import (
	"time"

	"github.com/festa-erp/festa/internal/money"
)

// Kind separates money owed to the company from money it owes.
type Kind string

const (
	KindReceivable Kind = "RECEIVABLE"
	KindPayable    Kind = "PAYABLE"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == KindReceivable || k == KindPayable
}

// Direction is the cash flow that settles this kind of obligation.
func (k Kind) Direction() Direction {
	if k == KindPayable {
		return DirectionOut
	}
	return DirectionIn
}

// Status is set by hand; payments never change it.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSettled Status = "SETTLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusSettled
}

// Direction of a cash register entry.
type Direction string

const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Payment methods accepted by the cash register.
const (
	MethodCash         = "CASH"
	MethodPix          = "PIX"
	MethodCreditCard   = "CREDIT_CARD"
	MethodDebitCard    = "DEBIT_CARD"
	MethodBankTransfer = "BANK_TRANSFER"
	MethodBoleto       = "BOLETO"
)

// Obligation is a single account receivable or payable.
type Obligation struct {
	ID          int64
	CompanyID   int64
	Kind        Kind
	ContractID  *int64
	SupplierID  *int64
	Description string
	Amount      money.Cents
	DueDate     time.Time
	PaymentDate *time.Time
	Status      Status
	DeletedAt   *time.Time
	CreatedAt   time.Time
}

// Entry is a cash register movement applied against one obligation.
type Entry struct {
	ID           int64
	CompanyID    int64
	Direction    Direction
	ObligationID int64
	Amount       money.Cents
	Date         time.Time
	Method       string
	Description  string
	DeletedAt    *time.Time
	CreatedAt    time.Time
}

// Balance is derived from entries on every read and never stored.
type Balance struct {
	AmountPaid      money.Cents
	AmountRemaining money.Cents
}

// Position is an obligation together with its current balance.
type Position struct {
	Obligation
	Balance
}

// CreateInput carries a new obligation.
type CreateInput struct {
	Kind        Kind
	ContractID  *int64
	SupplierID  *int64
	Description string
	Amount      money.Cents
	DueDate     time.Time
}

// PaymentInput records money moving against an obligation. A non-empty
// IdempotencyKey makes retries of the same request a conflict instead of a second entry.
type PaymentInput struct {
	Amount         money.Cents
	Date           time.Time
	Method         string
	Description    string
	IdempotencyKey string
}

// ListFilter narrows an obligation listing.
type ListFilter struct {
	Kind       *Kind
	Status     *Status
	ContractID *int64
	Page       int
	PerPage    int
}

// Statement compares a contract's value with what was billed and received against it.
type Statement struct {
	ContractID    int64
	ContractTotal money.Cents
	NetTotal      money.Cents
	Billed        money.Cents
	Received      money.Cents
	Outstanding   money.Cents
	Unbilled      money.Cents
	Receivables   []Position
}

// Aging groups the remaining balance of pending obligations by days past due.
type Aging struct {
	Current   money.Cents
	Bucket30  money.Cents
	Bucket60  money.Cents
	Bucket90  money.Cents
	Bucket120 money.Cents
}
