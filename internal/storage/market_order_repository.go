package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/eve-companion/internal/models"
	"github.com/jackc/pgx/v5"
)

// MarketOrderRepository handles live market order persistence and the
// derived long-duration type table.
type MarketOrderRepository struct {
	db *PostgresDB
}

// NewMarketOrderRepository creates a new market order repository
func NewMarketOrderRepository(db *PostgresDB) *MarketOrderRepository {
	return &MarketOrderRepository{db: db}
}

// BulkUpsert stores a page of market orders keyed by order id. The batch is
// one transaction; a failure rolls back only this page, not pages already
// committed for the region.
func (r *MarketOrderRepository) BulkUpsert(ctx context.Context, regionID int64, orders []*models.MarketOrder) error {
	if len(orders) == 0 {
		return nil
	}

	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin order upsert: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	query := `
		INSERT INTO market_orders (
			order_id, region_id, type_id, system_id, location_id, price,
			is_buy_order, duration, volume_remain, volume_total, min_volume,
			range, issued, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, NOW())
		ON CONFLICT (order_id)
		DO UPDATE SET
			price = $6, duration = $8, volume_remain = $9, issued = $13,
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, o := range orders {
		batch.Queue(query,
			o.OrderID, regionID, o.TypeID, o.SystemID, o.LocationID, o.Price,
			o.IsBuyOrder, o.Duration, o.VolumeRemain, o.VolumeTotal, o.MinVolume,
			o.Range, o.Issued,
		)
	}

	results := tx.SendBatch(ctx, batch)
	for range orders {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("failed to upsert market order batch: %w", err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close order batch: %w", err)
	}

	return tx.Commit(ctx)
}

// StampRegion records that a region's orders were just collected
func (r *MarketOrderRepository) StampRegion(ctx context.Context, regionID int64) error {
	query := `
		INSERT INTO market_region_updates (region_id, updated_at)
		VALUES ($1, NOW())
		ON CONFLICT (region_id)
		DO UPDATE SET updated_at = NOW()
	`

	if _, err := r.db.Pool().Exec(ctx, query, regionID); err != nil {
		return fmt.Errorf("failed to stamp region: %w", err)
	}
	return nil
}

// StalestRegion returns the region whose orders were collected longest ago.
// regions not yet stamped sort first.
func (r *MarketOrderRepository) StalestRegion(ctx context.Context, candidates []int64) (int64, error) {
	if len(candidates) == 0 {
		return 0, fmt.Errorf("no candidate regions")
	}

	query := `
		SELECT m.region_id
		FROM unnest($1::bigint[]) AS m(region_id)
		LEFT JOIN market_region_updates u ON u.region_id = m.region_id
		ORDER BY u.updated_at NULLS FIRST
		LIMIT 1
	`

	var regionID int64
	if err := r.db.Pool().QueryRow(ctx, query, candidates).Scan(&regionID); err != nil {
		return 0, fmt.Errorf("failed to pick stalest region: %w", err)
	}
	return regionID, nil
}

// RecomputeLongDurationTypes rebuilds the derived table of item types whose
// observed order duration exceeds longOrderDays. Likely NPC-seeded stock.
func (r *MarketOrderRepository) RecomputeLongDurationTypes(ctx context.Context, longOrderDays int) (int64, error) {
	query := `
		INSERT INTO long_duration_types (type_id, order_count, first_detected, last_updated)
		SELECT type_id, COUNT(*), NOW(), NOW()
		FROM market_orders
		WHERE duration > $1
		GROUP BY type_id
		ON CONFLICT (type_id)
		DO UPDATE SET order_count = EXCLUDED.order_count, last_updated = NOW()
	`

	tag, err := r.db.Pool().Exec(ctx, query, longOrderDays)
	if err != nil {
		return 0, fmt.Errorf("failed to recompute long duration types: %w", err)
	}
	return tag.RowsAffected(), nil
}

// DeleteStaleOrders removes orders not refreshed since the cutoff for a
// region. Orders vanish from the remote feed when filled or cancelled.
func (r *MarketOrderRepository) DeleteStaleOrders(ctx context.Context, regionID int64, cutoff time.Time) (int64, error) {
	query := `DELETE FROM market_orders WHERE region_id = $1 AND updated_at < $2`

	tag, err := r.db.Pool().Exec(ctx, query, regionID, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete stale orders: %w", err)
	}
	return tag.RowsAffected(), nil
}
