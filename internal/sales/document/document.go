// Package document holds the header and item rules shared by quotes and contracts.
package document

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/shared"
)

// Fields are the editable header values of a document.
type Fields struct {
	ClientID           int64
	CategoryID         *int64
	VenueID            *int64
	EventDate          time.Time
	AdditionalDiscount money.Cents
	Observation        string
}

// Validate checks the header values.
func (f Fields) Validate() error {
	verr := &shared.ValidationError{}
	if f.ClientID <= 0 {
		verr.Add("client_id", "required")
	}
	if f.CategoryID != nil && *f.CategoryID <= 0 {
		verr.Add("category_id", "invalid reference")
	}
	if f.VenueID != nil && *f.VenueID <= 0 {
		verr.Add("venue_id", "invalid reference")
	}
	if f.EventDate.IsZero() {
		verr.Add("event_date", "required")
	}
	if f.AdditionalDiscount < 0 {
		verr.Add("additional_discount_cents", "must not be negative")
	}
	return verr.OrNil()
}

// Patch changes selected header values. Nil fields are left untouched; a zero
// CategoryID or VenueID clears the reference.
type Patch struct {
	ClientID           *int64
	CategoryID         *int64
	VenueID            *int64
	EventDate          *time.Time
	AdditionalDiscount *money.Cents
	Observation        *string
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.ClientID == nil && p.CategoryID == nil && p.VenueID == nil &&
		p.EventDate == nil && p.AdditionalDiscount == nil && p.Observation == nil
}

// Document is the state common to quotes and contracts.
type Document struct {
	ID        int64
	UUID      uuid.UUID
	CompanyID int64
	Fields
	Items     []ledger.LineItem
	Total     money.Cents
	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// New validates the header and items and returns a document with its total computed.
func New(companyID int64, fields Fields, items []ledger.LineItem) (Document, error) {
	if companyID <= 0 {
		return Document{}, shared.NewValidationError("company_id", "required")
	}
	if err := fields.Validate(); err != nil {
		return Document{}, err
	}
	if err := ledger.Validate(items); err != nil {
		return Document{}, err
	}
	items = append([]ledger.LineItem(nil), items...)
	return Document{
		UUID:      uuid.New(),
		CompanyID: companyID,
		Fields:    fields,
		Items:     items,
		Total:     ledger.ComputeTotal(items),
	}, nil
}

// Apply changes header values. The document is left untouched when the result is invalid.
func (d *Document) Apply(p Patch) error {
	next := d.Fields
	if p.ClientID != nil {
		next.ClientID = *p.ClientID
	}
	if p.CategoryID != nil {
		next.CategoryID = clearZero(*p.CategoryID)
	}
	if p.VenueID != nil {
		next.VenueID = clearZero(*p.VenueID)
	}
	if p.EventDate != nil {
		next.EventDate = *p.EventDate
	}
	if p.AdditionalDiscount != nil {
		next.AdditionalDiscount = *p.AdditionalDiscount
	}
	if p.Observation != nil {
		next.Observation = *p.Observation
	}
	if err := next.Validate(); err != nil {
		return err
	}
	d.Fields = next
	return nil
}

// ReplaceItems swaps the whole item list and recomputes the total.
func (d *Document) ReplaceItems(items []ledger.LineItem) error {
	if err := ledger.Validate(items); err != nil {
		return err
	}
	d.Items = append([]ledger.LineItem(nil), items...)
	d.Total = ledger.ComputeTotal(d.Items)
	return nil
}

// Ledger returns an editable copy of the items.
func (d *Document) Ledger() *ledger.Ledger {
	return ledger.New(d.Items...)
}

// Commit stores the result of ledger edits back into the document.
func (d *Document) Commit(l *ledger.Ledger) error {
	return d.ReplaceItems(l.Items())
}

// NetTotal is the total after the additional discount. It is only shown to users;
// Total stays the sum of the line totals.
func (d Document) NetTotal() money.Cents {
	return d.Total - d.AdditionalDiscount
}

// Deleted reports whether the document was soft-deleted.
func (d Document) Deleted() bool {
	return d.DeletedAt != nil
}

// SoftDelete marks the document deleted at now.
func (d *Document) SoftDelete(now time.Time) error {
	if d.Deleted() {
		return fmt.Errorf("document %d already deleted: %w", d.ID, shared.ErrConflict)
	}
	d.DeletedAt = &now
	return nil
}

func clearZero(id int64) *int64 {
	if id == 0 {
		return nil
	}
	return &id
}
