// Package masterdata answers tenant-scoped lookups on the reference data that quotes,
// contracts and obligations point at: clients, venues, categories, suppliers and the
// product/service catalog.
package masterdata

import (
	"time"

	"github.com/festa-erp/festa/internal/money"
)

// ItemKind separates physical products from services in the catalog.
type ItemKind string

const (
	ItemProduct ItemKind = "PRODUCT"
	ItemService ItemKind = "SERVICE"
)

// CatalogItem is a priced product or service that can be added to a document.
type CatalogItem struct {
	ID        int64       `json:"id"`
	CompanyID int64       `json:"company_id"`
	Name      string      `json:"name"`
	Kind      ItemKind    `json:"kind"`
	BasePrice money.Cents `json:"base_price_cents"`
	CreatedAt time.Time   `json:"created_at"`
}
