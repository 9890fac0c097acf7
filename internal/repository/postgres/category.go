package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/pkg/database"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

const categorySelect = `
		SELECT c.id, c.name, c.slug, c.description, c.image_url,
			(SELECT count(*) FROM products p WHERE p.category = c.slug) AS product_count,
			c.created_at, c.updated_at
		FROM categories c`

// CategoryRepository implements repository.CategoryRepository using PostgreSQL.
type CategoryRepository struct {
	pool database.DBTX
}

func NewCategoryRepository(pool database.DBTX) *CategoryRepository {
	return &CategoryRepository{pool: pool}
}

func (r *CategoryRepository) Create(ctx context.Context, c *domain.Category) (err error) {
	query := `
		INSERT INTO categories (id, name, slug, description, image_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	ctx, end := database.TraceQuery(ctx, "categories.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query, c.ID, c.Name, c.Slug, c.Description, c.ImageURL, c.CreatedAt, c.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "slug", c.Slug)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *CategoryRepository) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	return r.getOne(ctx, "categories.GetByID", categorySelect+` WHERE c.id = $1`, id)
}

func (r *CategoryRepository) GetBySlug(ctx context.Context, slug string) (*domain.Category, error) {
	return r.getOne(ctx, "categories.GetBySlug", categorySelect+` WHERE c.slug = $1`, slug)
}

func (r *CategoryRepository) getOne(ctx context.Context, op, query, key string) (_ *domain.Category, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var c domain.Category
	if err = r.pool.QueryRow(ctx, query, key).Scan(categoryDest(&c)...); err != nil {
		return nil, notFound(err, "category", key, "scan category")
	}
	return &c, nil
}

// List returns all categories ordered by name.
func (r *CategoryRepository) List(ctx context.Context) (_ []domain.Category, err error) {
	query := categorySelect + ` ORDER BY c.name`

	ctx, end := database.TraceQuery(ctx, "categories.List", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	categories := make([]domain.Category, 0)
	for rows.Next() {
		var c domain.Category
		if err = rows.Scan(categoryDest(&c)...); err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate category rows: %w", err)
	}
	return categories, nil
}

func (r *CategoryRepository) Update(ctx context.Context, c *domain.Category) (err error) {
	c.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, image_url = $4, updated_at = $5
		WHERE id = $6`

	ctx, end := database.TraceQuery(ctx, "categories.Update", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, c.Name, c.Slug, c.Description, c.ImageURL, c.UpdatedAt, c.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("category", "slug", c.Slug)
		}
		return fmt.Errorf("update category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", c.ID)
	}
	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM categories WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "categories.Delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("category", id)
	}
	return nil
}

func categoryDest(c *domain.Category) []any {
	return []any{&c.ID, &c.Name, &c.Slug, &c.Description, &c.ImageURL, &c.ProductCount, &c.CreatedAt, &c.UpdatedAt}
}
