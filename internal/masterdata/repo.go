package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/platform/db"
	"github.com/festa-erp/festa/internal/shared"
)

// Directory implements reference lookups against postgres. Every query is scoped to
// the company and ignores soft-deleted rows.
type Directory struct {
	db db.DBTX
}

// NewDirectory creates a new master data directory.
func NewDirectory(q db.DBTX) *Directory {
	return &Directory{db: q}
}

func (d *Directory) exists(ctx context.Context, table string, companyID, id int64) (bool, error) {
	var ok bool
	query := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL)`, table)
	if err := d.db.QueryRow(ctx, query, id, companyID).Scan(&ok); err != nil {
		return false, fmt.Errorf("lookup %s %d: %w", table, id, err)
	}
	return ok, nil
}

// ClientExists reports whether the client belongs to the company.
func (d *Directory) ClientExists(ctx context.Context, companyID, id int64) (bool, error) {
	return d.exists(ctx, "clients", companyID, id)
}

// VenueExists reports whether the venue belongs to the company.
func (d *Directory) VenueExists(ctx context.Context, companyID, id int64) (bool, error) {
	return d.exists(ctx, "venues", companyID, id)
}

// CategoryExists reports whether the category belongs to the company.
func (d *Directory) CategoryExists(ctx context.Context, companyID, id int64) (bool, error) {
	return d.exists(ctx, "categories", companyID, id)
}

// SupplierExists reports whether the supplier belongs to the company.
func (d *Directory) SupplierExists(ctx context.Context, companyID, id int64) (bool, error) {
	return d.exists(ctx, "suppliers", companyID, id)
}

// GetItem loads a catalog item.
func (d *Directory) GetItem(ctx context.Context, companyID, id int64) (CatalogItem, error) {
	var (
		it    CatalogItem
		price int64
	)
	err := d.db.QueryRow(ctx, `SELECT id, company_id, name, kind, base_price_cents, created_at
FROM catalog_items WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID).
		Scan(&it.ID, &it.CompanyID, &it.Name, &it.Kind, &price, &it.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return CatalogItem{}, fmt.Errorf("catalog item %d: %w", id, shared.ErrNotFound)
	}
	if err != nil {
		return CatalogItem{}, err
	}
	it.BasePrice = money.Cents(price)
	return it, nil
}

// MissingItems returns the ids among ids that are not catalog items of the company.
func (d *Directory) MissingItems(ctx context.Context, companyID int64, ids []int64) ([]int64, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := d.db.Query(ctx, `SELECT id FROM catalog_items WHERE company_id = $1 AND id = ANY($2) AND deleted_at IS NULL`, companyID, ids)
	if err != nil {
		return nil, err
	}
	found, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, err
	}
	seen := make(map[int64]struct{}, len(found))
	for _, id := range found {
		seen[id] = struct{}{}
	}
	var missing []int64
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			missing = append(missing, id)
			seen[id] = struct{}{}
		}
	}
	return missing, nil
}
