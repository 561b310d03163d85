package document

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/money"
)

// Wire shapes shared by the quote and contract endpoints. Money is always integer
// cents; quantities are decimals and become thousandths here.

// ItemPayload is one line item in a request.
type ItemPayload struct {
	ItemID         int64           `json:"item_id" validate:"required,gt=0"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPriceCents int64           `json:"unit_price_cents" validate:"gte=0"`
	DiscountCents  int64           `json:"discount_cents" validate:"gte=0"`
}

// ToLineItem converts the payload into a ledger line.
func (p ItemPayload) ToLineItem() ledger.LineItem {
	return ledger.LineItem{
		ItemID:    p.ItemID,
		Quantity:  money.QuantityFromDecimal(p.Quantity),
		UnitPrice: money.Cents(p.UnitPriceCents),
		Discount:  money.Cents(p.DiscountCents),
	}
}

// LineItems converts a payload list, keeping order.
func LineItems(in []ItemPayload) []ledger.LineItem {
	out := make([]ledger.LineItem, len(in))
	for i, p := range in {
		out[i] = p.ToLineItem()
	}
	return out
}

// ItemPatchPayload changes selected fields of one line.
type ItemPatchPayload struct {
	Quantity       *decimal.Decimal `json:"quantity,omitempty"`
	UnitPriceCents *int64           `json:"unit_price_cents,omitempty" validate:"omitempty,gte=0"`
	DiscountCents  *int64           `json:"discount_cents,omitempty" validate:"omitempty,gte=0"`
}

// ToPatch converts the payload into a ledger patch.
func (p ItemPatchPayload) ToPatch() ledger.Patch {
	var patch ledger.Patch
	if p.Quantity != nil {
		q := money.QuantityFromDecimal(*p.Quantity)
		patch.Quantity = &q
	}
	if p.UnitPriceCents != nil {
		c := money.Cents(*p.UnitPriceCents)
		patch.UnitPrice = &c
	}
	if p.DiscountCents != nil {
		c := money.Cents(*p.DiscountCents)
		patch.Discount = &c
	}
	return patch
}

// AddItemPayload adds a catalog item at its base price.
type AddItemPayload struct {
	ItemID int64 `json:"item_id" validate:"required,gt=0"`
}

// HeaderPayload carries the header of a new document.
type HeaderPayload struct {
	ClientID                int64     `json:"client_id" validate:"required,gt=0"`
	CategoryID              *int64    `json:"category_id,omitempty" validate:"omitempty,gt=0"`
	VenueID                 *int64    `json:"venue_id,omitempty" validate:"omitempty,gt=0"`
	EventDate               time.Time `json:"event_date" validate:"required"`
	AdditionalDiscountCents int64     `json:"additional_discount_cents" validate:"gte=0"`
	Observation             string    `json:"observation"`
}

// ToFields converts the payload into document fields.
func (p HeaderPayload) ToFields() Fields {
	return Fields{
		ClientID:           p.ClientID,
		CategoryID:         p.CategoryID,
		VenueID:            p.VenueID,
		EventDate:          p.EventDate,
		AdditionalDiscount: money.Cents(p.AdditionalDiscountCents),
		Observation:        p.Observation,
	}
}

// PatchPayload changes selected header values. A category_id or venue_id of 0 clears it.
type PatchPayload struct {
	ClientID                *int64     `json:"client_id,omitempty" validate:"omitempty,gt=0"`
	CategoryID              *int64     `json:"category_id,omitempty" validate:"omitempty,gte=0"`
	VenueID                 *int64     `json:"venue_id,omitempty" validate:"omitempty,gte=0"`
	EventDate               *time.Time `json:"event_date,omitempty"`
	AdditionalDiscountCents *int64     `json:"additional_discount_cents,omitempty" validate:"omitempty,gte=0"`
	Observation             *string    `json:"observation,omitempty"`
}

// ToPatch converts the payload into a document patch.
func (p PatchPayload) ToPatch() Patch {
	patch := Patch{
		ClientID:    p.ClientID,
		CategoryID:  p.CategoryID,
		VenueID:     p.VenueID,
		EventDate:   p.EventDate,
		Observation: p.Observation,
	}
	if p.AdditionalDiscountCents != nil {
		c := money.Cents(*p.AdditionalDiscountCents)
		patch.AdditionalDiscount = &c
	}
	return patch
}

// ItemResponse is one line item in a response.
type ItemResponse struct {
	Index          int             `json:"index"`
	ItemID         int64           `json:"item_id"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPriceCents int64           `json:"unit_price_cents"`
	DiscountCents  int64           `json:"discount_cents"`
	TotalCents     int64           `json:"total_cents"`
}

// Response is the header and items of a document.
type Response struct {
	ID                      int64          `json:"id"`
	UUID                    string         `json:"uuid"`
	CompanyID               int64          `json:"company_id"`
	ClientID                int64          `json:"client_id"`
	CategoryID              *int64         `json:"category_id,omitempty"`
	VenueID                 *int64         `json:"venue_id,omitempty"`
	EventDate               time.Time      `json:"event_date"`
	Items                   []ItemResponse `json:"items"`
	TotalCents              int64          `json:"total_cents"`
	AdditionalDiscountCents int64          `json:"additional_discount_cents"`
	NetTotalCents           int64          `json:"net_total_cents"`
	TotalDisplay            string         `json:"total_display"`
	Observation             string         `json:"observation,omitempty"`
	CreatedAt               time.Time      `json:"created_at"`
	UpdatedAt               time.Time      `json:"updated_at"`
}

// NewResponse renders a document.
func NewResponse(d Document) Response {
	items := make([]ItemResponse, len(d.Items))
	for i, it := range d.Items {
		items[i] = ItemResponse{
			Index:          i,
			ItemID:         it.ItemID,
			Quantity:       it.Quantity.Decimal(),
			UnitPriceCents: int64(it.UnitPrice),
			DiscountCents:  int64(it.Discount),
			TotalCents:     int64(it.Total()),
		}
	}
	return Response{
		ID:                      d.ID,
		UUID:                    d.UUID.String(),
		CompanyID:               d.CompanyID,
		ClientID:                d.ClientID,
		CategoryID:              d.CategoryID,
		VenueID:                 d.VenueID,
		EventDate:               d.EventDate,
		Items:                   items,
		TotalCents:              int64(d.Total),
		AdditionalDiscountCents: int64(d.AdditionalDiscount),
		NetTotalCents:           int64(d.NetTotal()),
		TotalDisplay:            money.Format(d.Total),
		Observation:             d.Observation,
		CreatedAt:               d.CreatedAt,
		UpdatedAt:               d.UpdatedAt,
	}
}
