// Package ledger keeps the ordered line items of a quote or contract together with
// their total. The total is recomputed after every mutation.
package ledger

import (
	"errors"
	"fmt"

	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/shared"
)

var (
	// ErrDuplicateItem is a warning: the catalog item is already in the ledger and nothing changed.
	ErrDuplicateItem = errors.New("item already added")
	// ErrIndexOutOfRange rejects updates and removals addressing a missing line.
	ErrIndexOutOfRange = errors.New("line index out of range")
)

// LineItem is one priced row of a document.
type LineItem struct {
	ItemID    int64          `json:"item_id"`
	Quantity  money.Quantity `json:"quantity"`
	UnitPrice money.Cents    `json:"unit_price"`
	Discount  money.Cents    `json:"discount"`
}

// Gross returns the line value before discount.
func (li LineItem) Gross() money.Cents {
	return money.Gross(li.Quantity, li.UnitPrice)
}

// Total returns the line value after discount.
func (li LineItem) Total() money.Cents {
	return money.LineTotal(li.Quantity, li.UnitPrice, li.Discount)
}

// CatalogItem is the subset of a catalog product or service needed to add a line.
type CatalogItem struct {
	ID        int64
	Name      string
	BasePrice money.Cents
}

// Patch replaces selected fields of one line. Nil fields are left untouched.
type Patch struct {
	Quantity  *money.Quantity
	UnitPrice *money.Cents
	Discount  *money.Cents
}

// Ledger is an ordered list of line items with a cached total.
type Ledger struct {
	items []LineItem
	total money.Cents
}

// New copies items into a ledger.
func New(items ...LineItem) *Ledger {
	l := &Ledger{items: append([]LineItem(nil), items...)}
	l.recompute()
	return l
}

// Items returns a copy of the lines in insertion order.
func (l *Ledger) Items() []LineItem {
	return append([]LineItem(nil), l.items...)
}

// Len returns the number of lines.
func (l *Ledger) Len() int { return len(l.items) }

// Total returns the sum of every line total.
func (l *Ledger) Total() money.Cents { return l.total }

// Contains reports whether the catalog item already has a line.
func (l *Ledger) Contains(itemID int64) bool {
	for _, it := range l.items {
		if it.ItemID == itemID {
			return true
		}
	}
	return false
}

// Add appends a line for the catalog item with quantity one at its base price.
func (l *Ledger) Add(item CatalogItem) error {
	if l.Contains(item.ID) {
		return fmt.Errorf("item %d: %w", item.ID, ErrDuplicateItem)
	}
	l.items = append(l.items, LineItem{
		ItemID:    item.ID,
		Quantity:  money.One,
		UnitPrice: item.BasePrice,
	})
	l.recompute()
	return nil
}

// Update applies patch to the line at index.
func (l *Ledger) Update(index int, patch Patch) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("update line %d: %w", index, ErrIndexOutOfRange)
	}
	line := l.items[index]
	if patch.Quantity != nil {
		line.Quantity = *patch.Quantity
	}
	if patch.UnitPrice != nil {
		line.UnitPrice = *patch.UnitPrice
	}
	if patch.Discount != nil {
		line.Discount = *patch.Discount
	}
	l.items[index] = line
	l.recompute()
	return nil
}

// Remove deletes the line at index; later lines shift down by one.
func (l *Ledger) Remove(index int) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("remove line %d: %w", index, ErrIndexOutOfRange)
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	l.recompute()
	return nil
}

func (l *Ledger) recompute() {
	l.total = ComputeTotal(l.items)
}

// ComputeTotal sums the line totals.
func ComputeTotal(items []LineItem) money.Cents {
	var total money.Cents
	for _, it := range items {
		total += it.Total()
	}
	return total
}

// Validate rejects an empty list and lines with negative values or a discount above the gross.
func Validate(items []LineItem) error {
	verr := &shared.ValidationError{}
	if len(items) == 0 {
		verr.Add("items", "add at least one item")
		return verr
	}
	for i, it := range items {
		field := fmt.Sprintf("items[%d]", i)
		switch {
		case it.ItemID <= 0:
			verr.Add(field+".item_id", "required")
		case it.Quantity < 0:
			verr.Add(field+".quantity", "must not be negative")
		case it.UnitPrice < 0:
			verr.Add(field+".unit_price", "must not be negative")
		case it.Discount < 0:
			verr.Add(field+".discount", "must not be negative")
		case it.Discount > it.Gross():
			verr.Add(field+".discount", "must not exceed the line value")
		}
	}
	return verr.OrNil()
}
