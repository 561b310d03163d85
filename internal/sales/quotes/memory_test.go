package quotes

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
	"github.com/festa-erp/festa/internal/shared"
)

// memoryRepo keeps quotes in maps. WithTx snapshots the maps and restores them when
// fn fails, so partially applied writes are never visible.
type memoryRepo struct {
	quotes  map[int64]Quote
	items   map[int64][]ledger.LineItem
	nextID  int64
	inTx    bool
	failOn  string
	updates int
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{quotes: map[int64]Quote{}, items: map[int64][]ledger.LineItem{}, nextID: 1}
}

var errInjected = errors.New("injected failure")

func (m *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	if m.inTx {
		return fn(ctx, m)
	}
	quotes := make(map[int64]Quote, len(m.quotes))
	for k, v := range m.quotes {
		quotes[k] = v
	}
	items := make(map[int64][]ledger.LineItem, len(m.items))
	for k, v := range m.items {
		items[k] = v
	}
	m.inTx = true
	err := fn(ctx, m)
	m.inTx = false
	if err != nil {
		m.quotes, m.items = quotes, items
	}
	return err
}

func (m *memoryRepo) fail(op string) error {
	if m.failOn == op {
		return errInjected
	}
	return nil
}

func (m *memoryRepo) Get(_ context.Context, companyID, id int64) (*Quote, error) {
	q, ok := m.quotes[id]
	if !ok || q.CompanyID != companyID || q.DeletedAt != nil {
		return nil, fmt.Errorf("quote %d: %w", id, shared.ErrNotFound)
	}
	q.Items = append([]ledger.LineItem(nil), m.items[id]...)
	return &q, nil
}

func (m *memoryRepo) List(_ context.Context, companyID int64, filter ListFilter) ([]Quote, int, error) {
	var out []Quote
	for _, q := range m.quotes {
		if q.CompanyID != companyID || q.DeletedAt != nil {
			continue
		}
		if filter.Status != nil && q.Status != *filter.Status {
			continue
		}
		if filter.ClientID != nil && q.ClientID != *filter.ClientID {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, len(out), nil
}

func (m *memoryRepo) Create(_ context.Context, q *Quote) error {
	if err := m.fail("create"); err != nil {
		return err
	}
	q.ID = m.nextID
	m.nextID++
	q.CreatedAt = time.Now()
	q.UpdatedAt = q.CreatedAt
	stored := *q
	stored.Items = nil
	m.quotes[q.ID] = stored
	return nil
}

func (m *memoryRepo) UpdateHeader(_ context.Context, q *Quote) error {
	if err := m.fail("update"); err != nil {
		return err
	}
	stored, ok := m.quotes[q.ID]
	if !ok || stored.CompanyID != q.CompanyID || stored.DeletedAt != nil {
		return shared.ErrNotFound
	}
	next := *q
	next.Items = nil
	next.Status = stored.Status
	m.quotes[q.ID] = next
	m.updates++
	return nil
}

func (m *memoryRepo) ReplaceItems(_ context.Context, quoteID int64, items []ledger.LineItem) error {
	if err := m.fail("items"); err != nil {
		return err
	}
	delete(m.items, quoteID)
	m.items[quoteID] = append([]ledger.LineItem(nil), items...)
	return nil
}

func (m *memoryRepo) UpdateStatus(_ context.Context, companyID, id int64, from, to lifecycle.QuoteStatus) error {
	q, ok := m.quotes[id]
	if !ok || q.CompanyID != companyID || q.DeletedAt != nil || q.Status != from {
		return shared.ErrConflict
	}
	q.Status = to
	m.quotes[id] = q
	return nil
}

func (m *memoryRepo) DeletedAt(_ context.Context, companyID, id int64) (*time.Time, error) {
	q, ok := m.quotes[id]
	if !ok || q.CompanyID != companyID {
		return nil, shared.ErrNotFound
	}
	return q.DeletedAt, nil
}

func (m *memoryRepo) SoftDelete(_ context.Context, companyID, id int64, at time.Time) error {
	q := m.quotes[id]
	q.DeletedAt = &at
	m.quotes[id] = q
	return nil
}

func (m *memoryRepo) ListOverdue(_ context.Context, asOf time.Time, limit int) ([]Quote, error) {
	var out []Quote
	for _, q := range m.quotes {
		if q.DeletedAt != nil || q.ValidUntil == nil || !q.ValidUntil.Before(asOf) {
			continue
		}
		if q.Status != lifecycle.QuoteDraft && q.Status != lifecycle.QuoteSent {
			continue
		}
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memoryDirectory knows clients 10 and 11 and catalog items 1..3 for every company.
type memoryDirectory struct{}

func (memoryDirectory) ClientExists(_ context.Context, _ int64, id int64) (bool, error) {
	return id == 10 || id == 11, nil
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
	return masterdata.CatalogItem{ID: id, CompanyID: companyID, Name: fmt.Sprintf("item %d", id), BasePrice: money.Cents(1000 * id)}, nil
}

type recordingAudit struct{ actions []string }

func (a *recordingAudit) Record(_ context.Context, log shared.AuditLog) error {
	a.actions = append(a.actions, log.Action)
	return nil
}

type recordingObserver struct{ transitions []string }

func (o *recordingObserver) ObserveTransition(document, from, to string) {
	o.transitions = append(o.transitions, document+":"+from+"->"+to)
}
