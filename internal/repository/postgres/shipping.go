package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/utafrali/rxstore/internal/domain"
	"github.com/utafrali/rxstore/pkg/database"
	apperrors "github.com/utafrali/rxstore/pkg/errors"
)

const zoneColumns = `id, name, states, postal_ranges, standard_price, express_price, standard_days,
	express_days, free_shipping_minimum, position, created_at, updated_at`

// ShippingZoneRepository implements repository.ShippingZoneRepository using
// PostgreSQL. Postal ranges are kept as a JSONB array of {start, end}.
type ShippingZoneRepository struct {
	pool database.DBTX
}

func NewShippingZoneRepository(pool database.DBTX) *ShippingZoneRepository {
	return &ShippingZoneRepository{pool: pool}
}

func (r *ShippingZoneRepository) Create(ctx context.Context, z *domain.ShippingZone) (err error) {
	ranges, err := marshalRanges(z.PostalRanges)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO shipping_zones (` + zoneColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	ctx, end := database.TraceQuery(ctx, "shipping_zones.Create", query)
	defer func() { end(err) }()

	_, err = r.pool.Exec(ctx, query,
		z.ID,
		z.Name,
		nonNil(z.States),
		ranges,
		z.StandardPrice,
		z.ExpressPrice,
		z.StandardDays,
		z.ExpressDays,
		z.FreeShippingMinimum,
		z.Position,
		z.CreatedAt,
		z.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert shipping zone: %w", err)
	}
	return nil
}

func (r *ShippingZoneRepository) GetByID(ctx context.Context, id string) (_ *domain.ShippingZone, err error) {
	query := `SELECT ` + zoneColumns + ` FROM shipping_zones WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "shipping_zones.GetByID", query)
	defer func() { end(err) }()

	var (
		z      domain.ShippingZone
		ranges []byte
	)
	if err = r.pool.QueryRow(ctx, query, id).Scan(zoneDest(&z, &ranges)...); err != nil {
		return nil, notFound(err, "shipping zone", id, "scan shipping zone")
	}
	if _, err = unmarshalOptional(ranges, &z.PostalRanges); err != nil {
		return nil, fmt.Errorf("unmarshal postal ranges: %w", err)
	}
	return &z, nil
}

// List returns all zones in the order they are matched against a CEP.
func (r *ShippingZoneRepository) List(ctx context.Context) (_ []domain.ShippingZone, err error) {
	query := `SELECT ` + zoneColumns + ` FROM shipping_zones ORDER BY position, created_at`

	ctx, end := database.TraceQuery(ctx, "shipping_zones.List", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list shipping zones: %w", err)
	}
	defer rows.Close()

	zones := make([]domain.ShippingZone, 0)
	for rows.Next() {
		var (
			z      domain.ShippingZone
			ranges []byte
		)
		if err = rows.Scan(zoneDest(&z, &ranges)...); err != nil {
			return nil, fmt.Errorf("scan shipping zone row: %w", err)
		}
		if _, err = unmarshalOptional(ranges, &z.PostalRanges); err != nil {
			return nil, fmt.Errorf("unmarshal postal ranges: %w", err)
		}
		zones = append(zones, z)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate shipping zone rows: %w", err)
	}
	return zones, nil
}

func (r *ShippingZoneRepository) Update(ctx context.Context, z *domain.ShippingZone) (err error) {
	ranges, err := marshalRanges(z.PostalRanges)
	if err != nil {
		return err
	}
	z.UpdatedAt = time.Now().UTC()
	query := `
		UPDATE shipping_zones
		SET name = $1, states = $2, postal_ranges = $3, standard_price = $4, express_price = $5,
		    standard_days = $6, express_days = $7, free_shipping_minimum = $8, position = $9, updated_at = $10
		WHERE id = $11`

	ctx, end := database.TraceQuery(ctx, "shipping_zones.Update", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query,
		z.Name,
		nonNil(z.States),
		ranges,
		z.StandardPrice,
		z.ExpressPrice,
		z.StandardDays,
		z.ExpressDays,
		z.FreeShippingMinimum,
		z.Position,
		z.UpdatedAt,
		z.ID,
	)
	if err != nil {
		return fmt.Errorf("update shipping zone: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("shipping zone", z.ID)
	}
	return nil
}

func (r *ShippingZoneRepository) Delete(ctx context.Context, id string) (err error) {
	query := `DELETE FROM shipping_zones WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "shipping_zones.Delete", query)
	defer func() { end(err) }()

	ct, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete shipping zone: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("shipping zone", id)
	}
	return nil
}

func marshalRanges(ranges []domain.PostalRange) ([]byte, error) {
	if ranges == nil {
		ranges = []domain.PostalRange{}
	}
	data, err := json.Marshal(ranges)
	if err != nil {
		return nil, fmt.Errorf("marshal postal ranges: %w", err)
	}
	return data, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func zoneDest(z *domain.ShippingZone, ranges *[]byte) []any {
	return []any{
		&z.ID,
		&z.Name,
		&z.States,
		ranges,
		&z.StandardPrice,
		&z.ExpressPrice,
		&z.StandardDays,
		&z.ExpressDays,
		&z.FreeShippingMinimum,
		&z.Position,
		&z.CreatedAt,
		&z.UpdatedAt,
	}
}
