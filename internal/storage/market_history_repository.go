package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eve-companion/internal/models"
	"github.com/jackc/pgx/v5"
)

// MarketHistoryRepository handles market history persistence
type MarketHistoryRepository struct {
	db *PostgresDB
}

// NewMarketHistoryRepository creates a new market history repository
func NewMarketHistoryRepository(db *PostgresDB) *MarketHistoryRepository {
	return &MarketHistoryRepository{db: db}
}

// Upsert stores one history point by (type, region, date)
func (r *MarketHistoryRepository) Upsert(ctx context.Context, p *models.MarketHistoryPoint) error {
	query := `
		INSERT INTO market_history (
			type_id, region_id, date, average, highest, lowest,
			order_count, volume, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		ON CONFLICT (type_id, region_id, date)
		DO UPDATE SET
			average = $4, highest = $5, lowest = $6,
			order_count = $7, volume = $8, updated_at = NOW()
	`

	_, err := r.db.Pool().Exec(ctx, query,
		p.TypeID,
		p.RegionID,
		p.Date,
		p.Average,
		p.Highest,
		p.Lowest,
		p.OrderCount,
		p.Volume,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert market history point: %w", err)
	}
	return nil
}

// LastUpdated returns when history for (type, region) was last refreshed.
// The zero time means no point is stored yet.
func (r *MarketHistoryRepository) LastUpdated(ctx context.Context, typeID, regionID int64) (time.Time, error) {
	query := `
		SELECT MAX(updated_at)
		FROM market_history
		WHERE type_id = $1 AND region_id = $2
	`

	var updatedAt *time.Time
	err := r.db.Pool().QueryRow(ctx, query, typeID, regionID).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("failed to get history freshness: %w", err)
	}
	if updatedAt == nil {
		return time.Time{}, nil
	}
	return *updatedAt, nil
}
