package contracts

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
	"github.com/festa-erp/festa/internal/sales/quotes"
	"github.com/festa-erp/festa/internal/shared"
)

// Directory resolves the master data a contract refers to.
type Directory interface {
	document.References
	GetItem(ctx context.Context, companyID, id int64) (masterdata.CatalogItem, error)
}

// QuoteReader loads quotes for conversion.
type QuoteReader interface {
	Get(ctx context.Context, companyID, id int64) (*quotes.Quote, error)
}

// TransitionObserver is notified of accepted status changes.
type TransitionObserver interface {
	ObserveTransition(document, from, to string)
}

type Service struct {
	repo    Repository
	quotes  QuoteReader
	dir     Directory
	audit   shared.AuditRecorder
	metrics TransitionObserver
	now     func() time.Time
}

func NewService(repo Repository, quotes QuoteReader, dir Directory, audit shared.AuditRecorder, metrics TransitionObserver) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, quotes: quotes, dir: dir, audit: audit, metrics: metrics, now: time.Now}
}

func (s *Service) Create(ctx context.Context, companyID int64, in CreateInput) (*Contract, error) {
	doc, err := document.New(companyID, in.Fields, in.Items)
	if err != nil {
		return nil, err
	}
	if err := document.CheckReferences(ctx, s.dir, companyID, doc.Fields, doc.Items); err != nil {
		return nil, err
	}
	clauses, err := NormalizeClauses(in.Clauses)
	if err != nil {
		return nil, err
	}
	c := &Contract{
		Document:  doc,
		Status:    lifecycle.Contracts.Initial(),
		StartTime: in.StartTime,
		Clauses:   clauses,
	}
	if err := s.insert(ctx, c); err != nil {
		return nil, fmt.Errorf("create contract: %w", err)
	}
	s.record(ctx, companyID, "contract.created", c.ID, nil)
	return s.repo.Get(ctx, companyID, c.ID)
}

// CreateFromQuote starts a DRAFT contract from an APPROVED quote, copying its header
// and items. The quote itself is not modified; each quote converts at most once.
func (s *Service) CreateFromQuote(ctx context.Context, companyID, quoteID int64, in FromQuoteInput) (*Contract, error) {
	q, err := s.quotes.Get(ctx, companyID, quoteID)
	if err != nil {
		return nil, err
	}
	if q.Status != lifecycle.QuoteApproved {
		return nil, fmt.Errorf("quote %d is %s, only approved quotes convert: %w", quoteID, q.Status, shared.ErrConflict)
	}
	existing, err := s.repo.FindByQuote(ctx, companyID, quoteID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("quote %d already converted to contract %d: %w", quoteID, *existing, shared.ErrConflict)
	}

	doc, err := document.New(companyID, q.Fields, q.Items)
	if err != nil {
		return nil, err
	}
	// Catalogue rows the quote pointed at may have been removed since approval.
	if err := document.CheckReferences(ctx, s.dir, companyID, doc.Fields, doc.Items); err != nil {
		return nil, err
	}
	clauses, err := NormalizeClauses(in.Clauses)
	if err != nil {
		return nil, err
	}
	origin := q.ID
	c := &Contract{
		Document:           doc,
		Status:             lifecycle.Contracts.Initial(),
		StartTime:          in.StartTime,
		OriginatingQuoteID: &origin,
		Clauses:            clauses,
	}
	if err := s.insert(ctx, c); err != nil {
		return nil, fmt.Errorf("create contract from quote %d: %w", quoteID, err)
	}
	s.record(ctx, companyID, "contract.created", c.ID, map[string]any{"quote_id": quoteID})
	return s.repo.Get(ctx, companyID, c.ID)
}

func (s *Service) insert(ctx context.Context, c *Contract) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		if err := repo.Create(ctx, c); err != nil {
			return err
		}
		if err := repo.ReplaceItems(ctx, c.ID, c.Items); err != nil {
			return err
		}
		return repo.ReplaceClauses(ctx, c.ID, c.Clauses)
	})
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (*Contract, error) {
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Contract, shared.Pagination, error) {
	if filter.Status != nil && !lifecycle.Contracts.Known(*filter.Status) {
		return nil, shared.Pagination{}, shared.NewValidationError("status", "unknown contract status")
	}
	items, total, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list contracts: %w", err)
	}
	return items, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

// Update changes header values, replaces items and clauses when given, and applies a
// requested status through the contract lifecycle. Everything is written in one transaction.
func (s *Service) Update(ctx context.Context, companyID, id int64, in UpdateInput) (*Contract, error) {
	var (
		out  *Contract
		from lifecycle.ContractStatus
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		c, err := s.editable(ctx, repo, companyID, id)
		if err != nil {
			return err
		}
		from = c.Status
		next := c.Status
		if in.Status != nil {
			if next, err = lifecycle.Contracts.Transition(c.Status, *in.Status); err != nil {
				return err
			}
		}
		if err := c.Apply(in.Patch); err != nil {
			return err
		}
		if in.StartTime != nil {
			c.StartTime = in.StartTime
		}
		var newItems []ledger.LineItem
		if in.Items != nil {
			if err := c.ReplaceItems(*in.Items); err != nil {
				return err
			}
			newItems = c.Items
		}
		if in.Clauses != nil {
			clauses, err := NormalizeClauses(*in.Clauses)
			if err != nil {
				return err
			}
			c.Clauses = clauses
		}
		if err := document.CheckReferences(ctx, s.dir, companyID, c.Fields, newItems); err != nil {
			return err
		}
		if err := repo.UpdateHeader(ctx, c); err != nil {
			return err
		}
		if in.Items != nil {
			if err := repo.ReplaceItems(ctx, c.ID, c.Items); err != nil {
				return err
			}
		}
		if in.Clauses != nil {
			if err := repo.ReplaceClauses(ctx, c.ID, c.Clauses); err != nil {
				return err
			}
		}
		if next != c.Status {
			if err := repo.UpdateStatus(ctx, companyID, id, next); err != nil {
				return err
			}
			c.Status = next
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update contract %d: %w", id, err)
	}
	s.record(ctx, companyID, "contract.updated", id, map[string]any{
		"items_replaced":   in.Items != nil,
		"clauses_replaced": in.Clauses != nil,
	})
	if from != out.Status {
		s.transitioned(ctx, companyID, id, from, out.Status)
	}
	return out, nil
}

// AddItem appends a catalog item at its base price. When the item is already on the
// contract the unchanged contract is returned together with ledger.ErrDuplicateItem.
func (s *Service) AddItem(ctx context.Context, companyID, id, itemID int64) (*Contract, error) {
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

func (s *Service) UpdateItem(ctx context.Context, companyID, id int64, index int, patch ledger.Patch) (*Contract, error) {
	return s.editItems(ctx, companyID, id, func(l *ledger.Ledger) error {
		return l.Update(index, patch)
	})
}

func (s *Service) RemoveItem(ctx context.Context, companyID, id int64, index int) (*Contract, error) {
	return s.editItems(ctx, companyID, id, func(l *ledger.Ledger) error {
		return l.Remove(index)
	})
}

func (s *Service) editItems(ctx context.Context, companyID, id int64, edit func(*ledger.Ledger) error) (*Contract, error) {
	var (
		out     *Contract
		warning error
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		c, err := s.editable(ctx, repo, companyID, id)
		if err != nil {
			return err
		}
		l := c.Ledger()
		if err := edit(l); err != nil {
			if errors.Is(err, ledger.ErrDuplicateItem) {
				out, warning = c, err
				return nil
			}
			if errors.Is(err, ledger.ErrIndexOutOfRange) {
				return fmt.Errorf("%w: %w", err, shared.ErrNotFound)
			}
			return err
		}
		if err := c.Commit(l); err != nil {
			return err
		}
		if err := repo.UpdateHeader(ctx, c); err != nil {
			return err
		}
		if err := repo.ReplaceItems(ctx, c.ID, c.Items); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("edit contract %d items: %w", id, err)
	}
	return out, warning
}

// Transition moves the contract to the requested status. CONCLUDED and CANCELED freeze it.
func (s *Service) Transition(ctx context.Context, companyID, id int64, requested lifecycle.ContractStatus) (*Contract, error) {
	var (
		out  *Contract
		from lifecycle.ContractStatus
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, repo Repository) error {
		c, err := repo.Get(ctx, companyID, id)
		if err != nil {
			return err
		}
		from = c.Status
		next, err := lifecycle.Contracts.Transition(c.Status, requested)
		if err != nil {
			return err
		}
		if next != c.Status {
			if err := repo.UpdateStatus(ctx, companyID, id, next); err != nil {
				return err
			}
			c.Status = next
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("contract %d status: %w", id, err)
	}
	if from != out.Status {
		s.transitioned(ctx, companyID, id, from, out.Status)
	}
	return out, nil
}

// Delete soft-deletes the contract. Linked obligations are left untouched.
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
		return fmt.Errorf("delete contract %d: %w", id, err)
	}
	s.record(ctx, companyID, "contract.deleted", id, nil)
	return nil
}

func (s *Service) editable(ctx context.Context, repo Repository, companyID, id int64) (*Contract, error) {
	c, err := repo.Get(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if !c.Editable() {
		return nil, fmt.Errorf("contract is %s: %w", c.Status, shared.ErrConflict)
	}
	return c, nil
}

func (s *Service) transitioned(ctx context.Context, companyID, id int64, from, to lifecycle.ContractStatus) {
	if s.metrics != nil {
		s.metrics.ObserveTransition("contract", string(from), string(to))
	}
	s.record(ctx, companyID, "contract.status_changed", id, map[string]any{"from": from, "to": to})
}

func (s *Service) record(ctx context.Context, companyID int64, action string, id int64, meta map[string]any) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		CompanyID: companyID,
		ActorID:   shared.ActorFromContext(ctx),
		Action:    action,
		Entity:    "contract",
		EntityID:  strconv.FormatInt(id, 10),
		Meta:      meta,
		At:        s.now(),
	})
}
