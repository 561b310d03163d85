package categories

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/festa-erp/festa/internal/platform/db"
	"github.com/festa-erp/festa/internal/shared"
)

type Repository interface {
	List(ctx context.Context, companyID int64, filter ListFilter) ([]Category, int, error)
	Get(ctx context.Context, companyID, id int64) (Category, error)
	Create(ctx context.Context, c *Category) error
	Update(ctx context.Context, c *Category) error
	DeletedAt(ctx context.Context, companyID, id int64) (*time.Time, error)
	CountReferences(ctx context.Context, companyID, id int64) (int, error)
	SoftDelete(ctx context.Context, companyID, id int64, at time.Time) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(q db.DBTX) Repository {
	return &repository{db: q}
}

// List uses a dynamic query for the optional search.
func (r *repository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Category, int, error) {
	where := ` WHERE company_id = $1 AND deleted_at IS NULL`
	args := []any{companyID}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		where += ` AND (name ILIKE $2 OR code ILIKE $2)`
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM categories`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit, offset := shared.PageWindow(filter.Page, filter.PerPage)
	query := `SELECT id, company_id, code, name, created_at, updated_at FROM categories` + where +
		` ORDER BY ` + sortOrder(filter.SortBy, filter.SortDir) +
		` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
	args = append(args, limit, offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	categories, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Category])
	return categories, total, err
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Category, error) {
	var c Category
	err := r.db.QueryRow(ctx, `SELECT id, company_id, code, name, created_at, updated_at
FROM categories WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, id, companyID).
		Scan(&c.ID, &c.CompanyID, &c.Code, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Category{}, fmt.Errorf("category %d: %w", id, shared.ErrNotFound)
	}
	return c, err
}

func (r *repository) Create(ctx context.Context, c *Category) error {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO categories (company_id, code, name, created_at, updated_at)
VALUES ($1, $2, $3, $4, $4) RETURNING id`, c.CompanyID, c.Code, c.Name, now).Scan(&c.ID)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("category code %s: %w", c.Code, shared.ErrConflict)
	}
	if err != nil {
		return err
	}
	c.CreatedAt, c.UpdatedAt = now, now
	return nil
}

func (r *repository) Update(ctx context.Context, c *Category) error {
	c.UpdatedAt = time.Now()
	tag, err := r.db.Exec(ctx, `UPDATE categories SET code = $3, name = $4, updated_at = $5
WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL`, c.ID, c.CompanyID, c.Code, c.Name, c.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("category code %s: %w", c.Code, shared.ErrConflict)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("category %d: %w", c.ID, shared.ErrNotFound)
	}
	return nil
}

func (r *repository) DeletedAt(ctx context.Context, companyID, id int64) (*time.Time, error) {
	var at *time.Time
	err := r.db.QueryRow(ctx, `SELECT deleted_at FROM categories WHERE id = $1 AND company_id = $2`, id, companyID).Scan(&at)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("category %d: %w", id, shared.ErrNotFound)
	}
	return at, err
}

// CountReferences counts live quotes and contracts labelled with the category.
func (r *repository) CountReferences(ctx context.Context, companyID, id int64) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT
  (SELECT COUNT(*) FROM quotes WHERE company_id = $1 AND category_id = $2 AND deleted_at IS NULL) +
  (SELECT COUNT(*) FROM contracts WHERE company_id = $1 AND category_id = $2 AND deleted_at IS NULL)`,
		companyID, id).Scan(&n)
	return n, err
}

func (r *repository) SoftDelete(ctx context.Context, companyID, id int64, at time.Time) error {
	_, err := r.db.Exec(ctx, `UPDATE categories SET deleted_at = $3 WHERE id = $1 AND company_id = $2`, id, companyID, at)
	return err
}

func sortOrder(sortBy, sortDir string) string {
	dir := "ASC"
	if sortDir == "desc" {
		dir = "DESC"
	}
	switch sortBy {
	case "code":
		return "code " + dir
	case "created_at":
		return "created_at " + dir
	default:
		return "name " + dir
	}
}
