package pricing

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository defines persistence for percentage tables and shipping groups.
type Repository interface {
	GetPercentage(ctx context.Context, kind CategoryKind, name string) (float64, bool, error)
	ListPercentages(ctx context.Context, kind CategoryKind) ([]CategoryPercentage, error)
	UpsertPercentage(ctx context.Context, p CategoryPercentage) (int64, error)

	GetShippingGroup(ctx context.Context, worksheetID int64, entryID int, side GroupSide, name string) (*ShippingGroup, error)
	ListShippingGroups(ctx context.Context, worksheetID int64, entryID int) ([]ShippingGroup, error)
	SaveShippingGroup(ctx context.Context, g ShippingGroup) (int64, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) GetPercentage(ctx context.Context, kind CategoryKind, name string) (float64, bool, error) {
	const query = `SELECT percentage FROM category_percentages WHERE kind = $1 AND name = $2`
	var pct float64
	err := r.pool.QueryRow(ctx, query, kind, name).Scan(&pct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, err
	}
	return pct, true, nil
}

func (r *repository) ListPercentages(ctx context.Context, kind CategoryKind) ([]CategoryPercentage, error) {
	const query = `
		SELECT id, kind, name, percentage, created_at, updated_at
		FROM category_percentages
		WHERE kind = $1
		ORDER BY name
	`
	rows, err := r.pool.Query(ctx, query, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategoryPercentage
	for rows.Next() {
		var p CategoryPercentage
		if err := rows.Scan(&p.ID, &p.Kind, &p.Name, &p.Percentage, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *repository) UpsertPercentage(ctx context.Context, p CategoryPercentage) (int64, error) {
	const query = `
		INSERT INTO category_percentages (kind, name, percentage, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		ON CONFLICT (kind, name)
		DO UPDATE SET percentage = EXCLUDED.percentage, updated_at = NOW()
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, p.Kind, p.Name, p.Percentage).Scan(&id)
	return id, err
}

func (r *repository) GetShippingGroup(ctx context.Context, worksheetID int64, entryID int, side GroupSide, name string) (*ShippingGroup, error) {
	const query = `
		SELECT id, worksheet_id, entry_id, side, name, total_cost, created_at
		FROM shipping_groups
		WHERE worksheet_id = $1 AND entry_id = $2 AND side = $3 AND name = $4
	`
	var g ShippingGroup
	err := r.pool.QueryRow(ctx, query, worksheetID, entryID, side, name).Scan(
		&g.ID, &g.WorksheetID, &g.EntryID, &g.Side, &g.Name, &g.TotalCost, &g.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &g, nil
}

func (r *repository) ListShippingGroups(ctx context.Context, worksheetID int64, entryID int) ([]ShippingGroup, error) {
	const query = `
		SELECT id, worksheet_id, entry_id, side, name, total_cost, created_at
		FROM shipping_groups
		WHERE worksheet_id = $1 AND entry_id = $2
		ORDER BY side, name
	`
	rows, err := r.pool.Query(ctx, query, worksheetID, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ShippingGroup
	for rows.Next() {
		var g ShippingGroup
		if err := rows.Scan(&g.ID, &g.WorksheetID, &g.EntryID, &g.Side, &g.Name, &g.TotalCost, &g.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *repository) SaveShippingGroup(ctx context.Context, g ShippingGroup) (int64, error) {
	const query = `
		INSERT INTO shipping_groups (worksheet_id, entry_id, side, name, total_cost, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (worksheet_id, entry_id, side, name)
		DO UPDATE SET total_cost = EXCLUDED.total_cost
		RETURNING id
	`
	var id int64
	err := r.pool.QueryRow(ctx, query, g.WorksheetID, g.EntryID, g.Side, g.Name, g.TotalCost).Scan(&id)
	return id, err
}
