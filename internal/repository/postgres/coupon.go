package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/pkg/database"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

const couponColumns = `id, code, description, type, value, min_purchase, usage_limit, usage_count,
	active, expires_at, created_at, updated_at`

// CouponRepository implements repository.CouponRepository using PostgreSQL.
// Values are NUMERIC columns scanned straight into decimal.Decimal.
type CouponRepository struct {
	pool database.DBTX
}

func NewCouponRepository(pool database.DBTX) *CouponRepository {
	return &CouponRepository{pool: pool}
}

func (r *CouponRepository) Create(ctx context.Context, c *domain.Coupon) (err error) {
	query := `
		INSERT INTO coupons (` + couponColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	ctx, end := database.TraceQuery(ctx, "coupons.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		c.ID,
		c.Code,
		c.Description,
		c.Type,
		c.Value,
		c.MinPurchase,
		c.UsageLimit,
		c.UsageCount,
		c.Active,
		c.ExpiresAt,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("coupon", "code", c.Code)
		}
		return fmt.Errorf("insert coupon: %w", err)
	}
	return nil
}

func (r *CouponRepository) GetByID(ctx context.Context, id string) (*domain.Coupon, error) {
	return r.getOne(ctx, "coupons.GetByID", `SELECT `+couponColumns+` FROM coupons WHERE id = $1`, id)
}

// GetActiveByCode looks the code up among active coupons only.
func (r *CouponRepository) GetActiveByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	return r.getOne(ctx, "coupons.GetActiveByCode",
		`SELECT `+couponColumns+` FROM coupons WHERE code = $1 AND active`, code)
}

func (r *CouponRepository) getOne(ctx context.Context, op, query, key string) (_ *domain.Coupon, err error) {
	ctx, end := database.TraceQuery(ctx, op, query)
	defer func() { end(err) }()

	var c domain.Coupon
	if err = r.pool.QueryRow(ctx, query, key).Scan(couponDest(&c)...); err != nil {
		return nil, notFound(err, "coupon", key, "scan coupon")
	}
	return &c, nil
}

func (r *CouponRepository) List(ctx context.Context) (_ []domain.Coupon, err error) {
	query := `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`

	ctx, end := database.TraceQuery(ctx, "coupons.List", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	defer rows.Close()

	coupons := make([]domain.Coupon, 0)
	for rows.Next() {
		var c domain.Coupon
		if err = rows.Scan(couponDest(&c)...); err != nil {
			return nil, fmt.Errorf("scan coupon row: %w", err)
		}
		coupons = append(coupons, c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate coupon rows: %w", err)
	}
	return coupons, nil
}

// Update rewrites the coupon's editable fields. usage_count is left alone.
func (r *CouponRepository) Update(ctx context.Context, c *domain.Coupon) (err error) {
	c.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE coupons
		SET code = $1, description = $2, type = $3, value = $4, min_purchase = $5,
		    usage_limit = $6, active = $7, expires_at = $8, updated_at = $9
		WHERE id = $10`

	ctx, end := database.TraceQuery(ctx, "coupons.Update", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query,
		c.Code,
		c.Description,
		c.Type,
		c.Value,
		c.MinPurchase,
		c.UsageLimit,
		c.Active,
		c.ExpiresAt,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("coupon", "code", c.Code)
		}
		return fmt.Errorf("update coupon: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("coupon", c.ID)
	}
	return nil
}

func (r *CouponRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM coupons WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "coupons.Delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete coupon: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("coupon", id)
	}
	return nil
}

func couponDest(c *domain.Coupon) []any {
	return []any{
		&c.ID,
		&c.Code,
		&c.Description,
		&c.Type,
		&c.Value,
		&c.MinPurchase,
		&c.UsageLimit,
		&c.UsageCount,
		&c.Active,
		&c.ExpiresAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	}
}
