package contracts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/lifecycle"
	"github.com/festa-erp/festa/internal/masterdata"
	"github.com/festa-erp/festa/internal/money"
	"github.com/festa-erp/festa/internal/sales/quotes"
	"github.com/festa-erp/festa/internal/shared"
)

var errInjected = errors.New("injected failure")

type memoryRepo struct {
	contracts map[int64]Contract
	items     map[int64][]ledger.LineItem
	clauses   map[int64][]Clause
	nextID    int64
	inTx      bool
	failOn    string
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		contracts: map[int64]Contract{},
		items:     map[int64][]ledger.LineItem{},
		clauses:   map[int64][]Clause{},
		nextID:    1,
	}
}

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.inTx {
		return fn(ctx, m)
	}
	contracts := make(map[int64]Contract, len(m.contracts))
	for k, v := range m.contracts {
		contracts[k] = v
	}
	items := make(map[int64][]ledger.LineItem, len(m.items))
	for k, v := range m.items {
		items[k] = v
	}
	clauses := make(map[int64][]Clause, len(m.clauses))
	for k, v := range m.clauses {
		clauses[k] = v
	}
	m.inTx = true
	err := fn(ctx, m)
	m.inTx = false
	if err != nil {
		m.contracts, m.items, m.clauses = contracts, items, clauses
	}
	return err
}

func (m *memoryRepo) visible(companyID, id int64) (Contract, bool) {
	c, ok := m.contracts[id]
	return c, ok && c.CompanyID == companyID && c.DeletedAt == nil
}

func (m *memoryRepo) Get(_ context.Context, companyID, id int64) (*Contract, error) {
	c, ok := m.visible(companyID, id)
	if !ok {
		return nil, fmt.Errorf("contract %d: %w", id, shared.ErrNotFound)
	}
	c.Items = append([]ledger.LineItem(nil), m.items[id]...)
	c.Clauses = append([]Clause(nil), m.clauses[id]...)
	return &c, nil
}

func (m *memoryRepo) List(_ context.Context, companyID int64, filter ListFilter) ([]Contract, int, error) {
	var out []Contract
	for id := range m.contracts {
		c, ok := m.visible(companyID, id)
		if !ok || (filter.Status != nil && c.Status != *filter.Status) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) FindByQuote(_ context.Context, companyID, quoteID int64) (*int64, error) {
	for id, c := range m.contracts {
		if c.CompanyID == companyID && c.DeletedAt == nil && c.OriginatingQuoteID != nil && *c.OriginatingQuoteID == quoteID {
			return &id, nil
		}
	}
	return nil, nil
}

func (m *memoryRepo) Create(_ context.Context, c *Contract) error {
	c.ID = m.nextID
	m.nextID++
	stored := *c
	stored.Items, stored.Clauses = nil, nil
	m.contracts[c.ID] = stored
	return nil
}

func (m *memoryRepo) UpdateHeader(_ context.Context, c *Contract) error {
	stored, ok := m.visible(c.CompanyID, c.ID)
	if !ok {
		return shared.ErrNotFound
	}
	next := *c
	next.Items, next.Clauses = nil, nil
	next.Status = stored.Status
	m.contracts[c.ID] = next
	return nil
}

func (m *memoryRepo) ReplaceItems(_ context.Context, contractID int64, items []ledger.LineItem) error {
	if m.failOn == "items" {
		return errInjected
	}
	m.items[contractID] = append([]ledger.LineItem(nil), items...)
	return nil
}

func (m *memoryRepo) ReplaceClauses(_ context.Context, contractID int64, clauses []Clause) error {
	if m.failOn == "clauses" {
		return errInjected
	}
	m.clauses[contractID] = append([]Clause(nil), clauses...)
	return nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, companyID, id int64, status lifecycle.ContractStatus) error {
	c, ok := m.visible(companyID, id)
	if !ok {
		return shared.ErrNotFound
	}
	c.Status = status
	m.contracts[id] = c
	return nil
}

func (m *memoryRepo) DeletedAt(_ context.Context, companyID, id int64) (*time.Time, error) {
	c, ok := m.contracts[id]
	if !ok || c.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return c.DeletedAt, nil
}

func (m *memoryRepo) SoftDelete(_ context.Context, _ int64, id int64, at time.Time) error {
	c := m.contracts[id]
	c.DeletedAt = &at
	m.contracts[id] = c
	return nil
}

type memoryQuotes map[int64]*quotes.Quote

func (m memoryQuotes) Get(_ context.Context, companyID, id int64) (*quotes.Quote, error) {
	q, ok := m[id]
	if !ok || q.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return q, nil
}

type memoryDirectory struct{}

func (memoryDirectory) ClientExists(_ context.Context, _ int64, id int64) (bool, error) {
	return id == 10, nil
}

func (memoryDirectory) VenueExists(_ context.Context, _ int64, id int64) (bool, error) {
	return id == 20, nil
}

func (memoryDirectory) CategoryExists(_ context.Context, _ int64, id int64) (bool, error) {
	return id == 30, nil
}

func (memoryDirectory) MissingItems(_ context.Context, _ int64, ids []int64) ([]int64, error) {
	var missing []int64
	for _, id := range ids {
		if id < 1 || id > 3 {
			missing = append(missing, id)
		}
	}
	return missing, nil
}

func (memoryDirectory) GetItem(_ context.Context, companyID, id int64) (masterdata.CatalogItem, error) {
	if id < 1 || id > 3 {
		return masterdata.CatalogItem{}, shared.ErrNotFound
	}
	return masterdata.CatalogItem{ID: id, CompanyID: companyID, BasePrice: money.Cents(1000 * id)}, nil
}
