package document

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/platform/db"
)

// ItemStore persists the item list of one document kind. Items are always replaced
// as a whole: every row is deleted and the new list inserted in order. Callers run
// Replace inside the same transaction as the header write.
type ItemStore struct {
	table  string
	parent string
}

// NewItemStore binds the store to an item table and its parent key column.
// Both names are compile-time constants of the calling package.
func NewItemStore(table, parent string) ItemStore {
	return ItemStore{table: table, parent: parent}
}

// Load returns the items of a document in position order.
func (s ItemStore) Load(ctx context.Context, q db.DBTX, docID int64) ([]ledger.LineItem, error) {
	rows, err := q.Query(ctx, fmt.Sprintf(`SELECT item_id, quantity_milli, unit_price_cents, discount_cents
FROM %s WHERE %s = $1 ORDER BY position`, s.table, s.parent), docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ledger.LineItem
	for rows.Next() {
		var (
			it                     ledger.LineItem
			qty, unitPrice, discnt int64
		)
		if err := rows.Scan(&it.ItemID, &qty, &unitPrice, &discnt); err != nil {
			return nil, err
		}
		it.Quantity = money.Quantity(qty)
		it.UnitPrice = money.Cents(unitPrice)
		it.Discount = money.Cents(discnt)
		items = append(items, it)
	}
	return items, rows.Err()
}

// Replace deletes the stored items of docID and inserts items in order.
func (s ItemStore) Replace(ctx context.Context, q db.DBTX, docID int64, items []ledger.LineItem) error {
	if _, err := q.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE %s = $1`, s.table, s.parent), docID); err != nil {
		return fmt.Errorf("delete %s: %w", s.table, err)
	}
	if len(items) == 0 {
		return nil
	}
	insert := fmt.Sprintf(`INSERT INTO %s (%s, position, item_id, quantity_milli, unit_price_cents, discount_cents)
VALUES ($1, $2, $3, $4, $5, $6)`, s.table, s.parent)
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(insert, docID, i+1, it.ItemID, int64(it.Quantity), int64(it.UnitPrice), int64(it.Discount))
	}
	results := q.SendBatch(ctx, batch)
	defer results.Close()
	for range items {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("insert %s: %w", s.table, err)
		}
	}
	return nil
}
