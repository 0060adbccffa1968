package storage

import (
	"context"
	"fmt"

	"github.com/eve-companion/internal/models"
)

// OrderSnapshotRepository archives market order observations to ClickHouse.
// Snapshots are append-only; the relational market_orders table holds only
// the latest state per order.
type OrderSnapshotRepository struct {
	db *ClickHouseDB
}

// NewOrderSnapshotRepository creates a new order snapshot repository
func NewOrderSnapshotRepository(db *ClickHouseDB) *OrderSnapshotRepository {
	return &OrderSnapshotRepository{db: db}
}

// BatchInsert inserts a batch of order snapshots
func (r *OrderSnapshotRepository) BatchInsert(ctx context.Context, snapshots []*models.OrderSnapshot) error {
	if len(snapshots) == 0 {
		return nil
	}

	batch, err := r.db.Conn().PrepareBatch(ctx, `
		INSERT INTO order_snapshots (
			order_id, region_id, type_id, price, volume_remain, is_buy_order, observed_at
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot batch: %w", err)
	}

	for _, s := range snapshots {
		err = batch.Append(
			s.OrderID,
			s.RegionID,
			s.TypeID,
			s.Price,
			s.VolumeRemain,
			s.IsBuyOrder,
			s.ObservedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to append snapshot for order %d: %w", s.OrderID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send snapshot batch: %w", err)
	}
	return nil
}
