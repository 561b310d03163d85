package quotes

import (
	"time"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/lifecycle"
	"github.com/festa-erp/festa/internal/sales/document"
)

// Quote is a priced, non-binding proposal to a client.
type Quote struct {
	document.Document
	Status     lifecycle.QuoteStatus
	ValidUntil *time.Time
}

// Editable reports whether items and header may still change.
func (q Quote) Editable() bool {
	return lifecycle.QuoteEditable(q.Status)
}

// CreateInput carries the values of a new quote.
type CreateInput struct {
	Fields     document.Fields
	Items      []ledger.LineItem
	ValidUntil *time.Time
}

// UpdateInput changes a quote. Items, when set, replace the whole item list.
type UpdateInput struct {
	Patch      document.Patch
	ValidUntil *time.Time
	Items      *[]ledger.LineItem
}

// ListFilter narrows a quote listing.
type ListFilter struct {
	Status   *lifecycle.QuoteStatus
	ClientID *int64
	Page     int
	PerPage  int
}
