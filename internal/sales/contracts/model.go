package contracts

import (
	"fmt"
	"strings"
	"time"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/lifecycle"
	"github.com/festa-erp/festa/internal/sales/document"
	"github.com/festa-erp/festa/internal/shared"
)

// Contract is the binding agreement for an event.
type Contract struct {
	document.Document
	Status             lifecycle.ContractStatus
	StartTime          *time.Time
	OriginatingQuoteID *int64
	Clauses            []Clause
}

// Editable reports whether items, clauses and header may still change.
func (c Contract) Editable() bool {
	return lifecycle.ContractEditable(c.Status)
}

// Frozen reports whether the contract is concluded or canceled.
func (c Contract) Frozen() bool {
	return lifecycle.ContractFrozen(c.Status)
}

// Clause is one numbered section of the contract text. Position follows slice order.
type Clause struct {
	Position     int
	Title        string
	Content      string
	TemplateID   *int64
	UserModified bool
}

// NormalizeClauses numbers clauses from one and rejects blank content.
func NormalizeClauses(in []Clause) ([]Clause, error) {
	verr := &shared.ValidationError{}
	out := make([]Clause, len(in))
	for i, c := range in {
		c.Title = strings.TrimSpace(c.Title)
		if strings.TrimSpace(c.Content) == "" {
			verr.Add(fmt.Sprintf("clauses[%d].content", i), "required")
		}
		if c.TemplateID != nil && *c.TemplateID <= 0 {
			verr.Add(fmt.Sprintf("clauses[%d].template_id", i), "invalid reference")
		}
		c.Position = i + 1
		out[i] = c
	}
	if err := verr.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateInput carries the values of a new contract.
type CreateInput struct {
	Fields    document.Fields
	Items     []ledger.LineItem
	StartTime *time.Time
	Clauses   []Clause
}

// FromQuoteInput carries the contract-only values when converting an approved quote.
type FromQuoteInput struct {
	StartTime *time.Time
	Clauses   []Clause
}

// UpdateInput changes a contract. Items and Clauses, when set, replace the whole list.
// Status, when set, is validated by the contract lifecycle.
type UpdateInput struct {
	Patch     document.Patch
	StartTime *time.Time
	Items     *[]ledger.LineItem
	Clauses   *[]Clause
	Status    *lifecycle.ContractStatus
}

// ListFilter narrows a contract listing.
type ListFilter struct {
	Status   *lifecycle.ContractStatus
	ClientID *int64
	Page     int
	PerPage  int
}
