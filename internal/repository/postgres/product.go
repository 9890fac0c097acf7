package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/pkg/database"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

const productColumns = `id, name, slug, price, original_price, image_url, category, subcategory, tags,
	discount_percent, in_stock, featured, description, dosage, composition, usage, side_effects,
	contraindications, manufacturer, brand, rating, review_count, created_at, updated_at`

// ProductRepository implements repository.ProductRepository using PostgreSQL.
type ProductRepository struct {
	pool database.DBTX
}

// NewProductRepository creates a new PostgreSQL-backed product repository.
func NewProductRepository(pool database.DBTX) *ProductRepository {
	return &ProductRepository{pool: pool}
}

// Create inserts a new product into the database.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) (err error) {
	query := `
		INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24)`

	ctx, end := database.TraceQuery(ctx, "products.Create", query)
	defer func() { end(err) }()

	if p.Tags == nil {
		p.Tags = []string{}
	}
	_, err = r.pool.Exec(ctx, query,
		p.ID,
		p.Name,
		p.Slug,
		p.Price,
		p.OriginalPrice,
		p.ImageURL,
		p.Category,
		p.Subcategory,
		p.Tags,
		p.DiscountPercent,
		p.InStock,
		p.Featured,
		p.Description,
		p.Dosage,
		p.Composition,
		p.Usage,
		p.SideEffects,
		p.Contraindications,
		p.Manufacturer,
		p.Brand,
		p.Rating,
		p.ReviewCount,
		p.CreatedAt,
		p.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

// GetByID retrieves a product by its ID.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	return r.getOne(ctx, "products.GetByID", `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetBySlug retrieves a product by its slug.
func (r *ProductRepository) GetBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	return r.getOne(ctx, "products.GetBySlug", `SELECT `+productColumns+` FROM products WHERE slug = $1`, slug)
}

func (r *ProductRepository) getOne(ctx context.Context, op, query, key string) (p *domain.Product, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var out domain.Product
	if err = r.pool.QueryRow(ctx, query, key).Scan(productDest(&out)...); err != nil {
		return nil, notFound(err, "product", key, "scan product")
	}
	return &out, nil
}

// productSortClause maps a sort onto an ORDER BY. id breaks ties so pages
// are stable.
func productSortClause(s domain.ProductSort) string {
	switch s {
	case domain.SortByPriceAsc:
		return "price ASC, id"
	case domain.SortByPriceDesc:
		return "price DESC, id"
	case domain.SortByRating:
		return "rating DESC, review_count DESC, id"
	case domain.SortByNewest:
		return "created_at DESC, id"
	default:
		return "name ASC, id"
	}
}

// List returns products matching the given filter with the total count.
func (r *ProductRepository) List(ctx context.Context, filter domain.ProductFilter) (products []domain.Product, total int, err error) {
	var (
		conditions []string
		args       []any
		argIndex   = 1
	)

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", argIndex))
		args = append(args, filter.Category)
		argIndex++
	}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			`(name ILIKE $%[1]d ESCAPE '\' OR description ILIKE $%[1]d ESCAPE '\' OR EXISTS (SELECT 1 FROM unnest(tags) AS tag WHERE tag ILIKE $%[1]d ESCAPE '\'))`,
			argIndex))
		args = append(args, containsPattern(filter.Search))
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
		argIndex++
	}

	if filter.FeaturedOnly {
		conditions = append(conditions, "featured")
	}

	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM products
		%s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		productColumns, whereClause(conditions), productSortClause(filter.Sort), argIndex, argIndex+1,
	)
	args = append(args, limitOrDefault(filter.Limit), filter.Offset)

	ctx, end := database.TraceQuery(ctx, "products.List", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	products = make([]domain.Product, 0)
	for rows.Next() {
		var p domain.Product
		if err = rows.Scan(append(productDest(&p), &total)...); err != nil {
			return nil, 0, fmt.Errorf("scan product row: %w", err)
		}
		products = append(products, p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate product rows: %w", err)
	}
	return products, total, nil
}

// Update modifies an existing product in the database.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product) (err error) {
	p.UpdatedAt = time.Now().UTC()
	if p.Tags == nil {
		p.Tags = []string{}
	}

	query := `
		UPDATE products
		SET name = $1, slug = $2, price = $3, original_price = $4, image_url = $5, category = $6,
		    subcategory = $7, tags = $8, discount_percent = $9, in_stock = $10, featured = $11,
		    description = $12, dosage = $13, composition = $14, usage = $15, side_effects = $16,
		    contraindications = $17, manufacturer = $18, brand = $19, rating = $20, review_count = $21,
		    updated_at = $22
		WHERE id = $23`

	ctx, end := database.TraceQuery(ctx, "products.Update", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query,
		p.Name,
		p.Slug,
		p.Price,
		p.OriginalPrice,
		p.ImageURL,
		p.Category,
		p.Subcategory,
		p.Tags,
		p.DiscountPercent,
		p.InStock,
		p.Featured,
		p.Description,
		p.Dosage,
		p.Composition,
		p.Usage,
		p.SideEffects,
		p.Contraindications,
		p.Manufacturer,
		p.Brand,
		p.Rating,
		p.ReviewCount,
		p.UpdatedAt,
		p.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("product", "slug", p.Slug)
		}
		return fmt.Errorf("update product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", p.ID)
	}
	return nil
}

// Delete removes a product from the database by its ID.
func (r *ProductRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM products WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "products.Delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("product", id)
	}
	return nil
}

func productDest(p *domain.Product) []any {
	return []any{
		&p.ID,
		&p.Name,
		&p.Slug,
		&p.Price,
		&p.OriginalPrice,
		&p.ImageURL,
		&p.Category,
		&p.Subcategory,
		&p.Tags,
		&p.DiscountPercent,
		&p.InStock,
		&p.Featured,
		&p.Description,
		&p.Dosage,
		&p.Composition,
		&p.Usage,
		&p.SideEffects,
		&p.Contraindications,
		&p.Manufacturer,
		&p.Brand,
		&p.Rating,
		&p.ReviewCount,
		&p.CreatedAt,
		&p.UpdatedAt,
	}
}
