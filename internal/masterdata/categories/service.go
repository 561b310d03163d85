package categories

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/festa-erp/festa/internal/shared"
)

type Service struct {
	repo  Repository
	audit shared.AuditRecorder
	now   func() time.Time
}

func NewService(repo Repository, audit shared.AuditRecorder) *Service {
	if audit == nil {
		audit = shared.NopAudit{}
	}
	return &Service{repo: repo, audit: audit, now: time.Now}
}

func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Category, shared.Pagination, error) {
	categories, total, err := s.repo.List(ctx, companyID, filter)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("list categories: %w", err)
	}
	return categories, shared.NewPagination(filter.Page, filter.PerPage, total), nil
}

func (s *Service) Get(ctx context.Context, companyID, id int64) (Category, error) {
	return s.repo.Get(ctx, companyID, id)
}

func (s *Service) Create(ctx context.Context, companyID int64, c Category) (Category, error) {
	if err := normalize(&c); err != nil {
		return Category{}, err
	}
	c.CompanyID = companyID
	if err := s.repo.Create(ctx, &c); err != nil {
		return Category{}, err
	}
	s.record(ctx, companyID, "category.created", c.ID)
	return c, nil
}

func (s *Service) Update(ctx context.Context, companyID, id int64, c Category) (Category, error) {
	if err := normalize(&c); err != nil {
		return Category{}, err
	}
	c.ID, c.CompanyID = id, companyID
	if err := s.repo.Update(ctx, &c); err != nil {
		return Category{}, err
	}
	s.record(ctx, companyID, "category.updated", id)
	return s.repo.Get(ctx, companyID, id)
}

// Delete soft-deletes the category unless live quotes or contracts still use it.
func (s *Service) Delete(ctx context.Context, companyID, id int64) error {
	deletedAt, err := s.repo.DeletedAt(ctx, companyID, id)
	if err != nil {
		return err
	}
	if deletedAt != nil {
		return fmt.Errorf("category %d already deleted: %w", id, shared.ErrConflict)
	}
	refs, err := s.repo.CountReferences(ctx, companyID, id)
	if err != nil {
		return fmt.Errorf("count category references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("category %d is used by %d documents: %w", id, refs, shared.ErrReferentialIntegrity)
	}
	if err := s.repo.SoftDelete(ctx, companyID, id, s.now()); err != nil {
		return err
	}
	s.record(ctx, companyID, "category.deleted", id)
	return nil
}

func (s *Service) record(ctx context.Context, companyID int64, action string, id int64) {
	_ = s.audit.Record(ctx, shared.AuditLog{
		CompanyID: companyID,
		ActorID:   shared.ActorFromContext(ctx),
		Action:    action,
		Entity:    "category",
		EntityID:  strconv.FormatInt(id, 10),
		At:        s.now(),
	})
}
