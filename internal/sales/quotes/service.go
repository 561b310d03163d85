package quotes

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/festa-erp/festa/internal/ledger"
	"github.com/festa-erp/festa/internal/lifecycle"
	"github.com/festa-erp/festa/internal/masterdata"
	"github.com/festa-erp/festa/internal/sales/document"
	"github.com/festa-erp/festa/internal/shared"
)

// Directory resolves the master data a quote refers to.
type Directory interface {
	document.References
	GetItem(ctx context.Context, companyID, id int64) (masterdata.CatalogItem, error)
}

// TransitionObserver is notified of accepted status changes.
type TransitionObserver interface {
	ObserveTransition(document, from, to string)
}

const overdueBatch = 500

type Service struct {
	repo    Repository
	dir     Directory
	audit   shared.AuditRecorder
	metrics TransitionObserver
	now     func() time.Time
}

func NewService(repo Repository, dir Directory, audit shared.AuditRecorder, metrics TransitionObserver) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, dir: dir, audit: audit, metrics: metrics, now: time.Now}
}

func (s *Service) Create(ctx context.Context, companyID int64, in CreateInput) (*Quote, error) {
	doc, err := document.New(companyID, in.Fields, in.Items)
	if err != nil {
		return nil, err
	}
	if err := document.CheckReferences(ctx, s.dir, companyID, doc.Fields, doc.Items); err != nil {
		return nil, err
	}
	q := &Quote{Document: doc, Status: lifecycle.Quotes.Initial(), ValidUntil: in.ValidUntil}

	err = s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Create(ctx, q); err != nil {
			return err
		}
		return repo.ReplaceItems(ctx, q.ID, q.Items)
	})
	if err != nil {
		return nil, fmt.Errorf("create quote: %w", err)
	}
	s.record(ctx, companyID, "quote.created", q.ID, nil)
	return s.repo.Get(ctx, companyID, q.ID)
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (*Quote, error) {
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Quote, shared.Pagination, error) {
	if filter.Status != nil && !lifecycle.Quotes.Known(*filter.Status) {
		return nil, shared.Pagination{}, shared.NewValidationError("status", "unknown quote status")
	}
	items, total, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list quotes: %w", err)
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Update changes header values and, when in.Items is set, replaces every item.
// Header and items are written in one transaction.
func (s *Service) Update(ctx context.Context, companyID, id int64, in UpdateInput) (*Quote, error) {
	var updated *Quote
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := s.editable(ctx, repo, companyID, id)
		if err != nil {
			return err
		}
		if err := q.Apply(in.Patch); err != nil {
			return err
		}
		if in.ValidUntil != nil {
			q.ValidUntil = in.ValidUntil
		}
		var newItems []ledger.LineItem
		if in.Items != nil {
			if err := q.ReplaceItems(*in.Items); err != nil {
				return err
			}
			newItems = q.Items
		}
		if err := document.CheckReferences(ctx, s.dir, companyID, q.Fields, newItems); err != nil {
			return err
		}
		if err := repo.UpdateHeader(ctx, q); err != nil {
			return err
		}
		if in.Items != nil {
			if err := repo.ReplaceItems(ctx, q.ID, q.Items); err != nil {
				return err
			}
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update quote %d: %w", id, err)
	}
	s.record(ctx, companyID, "quote.updated", id, map[string]any{"items_replaced": in.Items != nil})
	return updated, nil
}

// AddItem appends a catalog item at its base price. When the item is already on the
// quote the unchanged quote is returned together with ledger.ErrDuplicateItem.
func (s *Service) AddItem(ctx context.Context, companyID, id, itemID int64) (*Quote, error) {
	item, err := s.dir.GetItem(ctx, companyID, itemID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewValidationError("item_id", "unknown catalog item")
		}
		return nil, err
	}
	return s.editItems(ctx, companyID, id, func(l *ledger.Ledger) error {
		return l.Add(ledger.CatalogItem{ID: item.ID, Name: item.Name, BasePrice: item.BasePrice})
	})
}

func (s *Service) UpdateItem(ctx context.Context, companyID, id int64, index int, patch ledger.Patch) (*Quote, error) {
	return s.editItems(ctx, companyID, id, func(l *ledger.Ledger) error {
		return l.Update(index, patch)
	})
}

func (s *Service) RemoveItem(ctx context.Context, companyID, id int64, index int) (*Quote, error) {
	return s.editItems(ctx, companyID, id, func(l *ledger.Ledger) error {
		return l.Remove(index)
	})
}

func (s *Service) editItems(ctx context.Context, companyID, id int64, edit func(*ledger.Ledger) error) (*Quote, error) {
	var (
		out     *Quote
		warning error
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := s.editable(ctx, repo, companyID, id)
		if err != nil {
			return err
		}
		l := q.Ledger()
		if err := edit(l); err != nil {
			if errors.Is(err, ledger.ErrDuplicateItem) {
				out, warning = q, err
				return nil
			}
			if errors.Is(err, ledger.ErrIndexOutOfRange) {
				return fmt.Errorf("%w: %w", err, shared.ErrNotFound)
			}
			return err
		}
		if err := q.Commit(l); err != nil {
			return err
		}
		if err := repo.UpdateHeader(ctx, q); err != nil {
			return err
		}
		if err := repo.ReplaceItems(ctx, q.ID, q.Items); err != nil {
			return err
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit quote %d items: %w", id, err)
	}
	return out, warning
}

// Transition moves the quote to the requested status if the lifecycle allows it.
// Approval does not create a contract.
func (s *Service) Transition(ctx context.Context, companyID, id int64, requested lifecycle.QuoteStatus) (*Quote, error) {
	var (
		out  *Quote
		from lifecycle.QuoteStatus
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		q, err := repo.Get(ctx, companyID, id)
		if err != nil {
			return err
		}
		from = q.Status
		next, err := lifecycle.Quotes.Transition(q.Status, requested)
		if err != nil {
			return err
		}
		if next != q.Status {
			if err := repo.UpdateStatus(ctx, companyID, id, q.Status, next); err != nil {
				return err
			}
			q.Status = next
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("quote %d status: %w", id, err)
	}
	if from != out.Status {
		s.transitioned(ctx, companyID, id, from, out.Status)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		deletedAt, err := repo.DeletedAt(ctx, companyID, id)
		if err != nil {
			return err
		}
		doc := document.Document{ID: id, DeletedAt: deletedAt}
		if err := doc.SoftDelete(s.now()); err != nil {
			return err
		}
		return repo.SoftDelete(ctx, companyID, id, *doc.DeletedAt)
	})
	if err != nil {
		return fmt.Errorf("delete quote %d: %w", id, err)
	}
	s.record(ctx, companyID, "quote.deleted", id, nil)
	return nil
}

// ExpireOverdue moves DRAFT and SENT quotes whose validity ended before asOf to EXPIRED,
// across every company. It returns how many quotes expired.
func (s *Service) ExpireOverdue(ctx context.Context, asOf time.Time) (int, error) {
	overdue, err := s.repo.ListOverdue(ctx, asOf, overdueBatch)
	if err != nil {
		return 0, fmt.Errorf("list overdue quotes: %w", err)
	}
	var (
		expired int
		errs    []error
	)
	for _, q := range overdue {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		next, err := lifecycle.Quotes.Transition(q.Status, lifecycle.QuoteExpired)
		if err != nil {
			errs = append(errs, fmt.Errorf("quote %d: %w", q.ID, err))
			continue
		}
		if err := s.repo.UpdateStatus(ctx, q.CompanyID, q.ID, q.Status, next); err != nil {
			// Changed since it was listed: the newer status wins.
			if errors.Is(err, shared.ErrConflict) {
				continue
			}
			errs = append(errs, fmt.Errorf("quote %d: %w", q.ID, err))
			continue
		}
		expired++
		s.transitioned(ctx, q.CompanyID, q.ID, q.Status, next)
	}
	return expired, errors.Join(errs...)
}

func (s *Service) editable(ctx context.Context, repo Repository, companyID, id int64) (*Quote, error) {
	q, err := repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !q.Editable() {
		return nil, fmt.Errorf("quote is %s: %w", q.Status, shared.ErrConflict)
	}
	return q, nil
}

func (s *Service) transitioned(ctx context.Context, companyID, id int64, from, to lifecycle.QuoteStatus) {
	if s.metrics != nil {
		s.metrics.ObserveTransition("quote", string(from), string(to))
	}
	s.record(ctx, companyID, "quote.status_changed", id, map[string]any{"from": from, "to": to})
}

// record writes an audit entry. Audit failures never fail the request.
func (s *Service) record(ctx context.Context, companyID int64, action string, id int64, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		CompanyID: companyID,
		ActorID:   shared.ActorFromContext(ctx),
		Action:    action,
		Entity:    "quote",
		EntityID:  strconv.FormatInt(id, 10),
		Meta:      meta,
		At:        s.now(),
	})
}
