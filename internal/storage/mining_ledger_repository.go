package storage

import (
	"context"
	"fmt"

	"github.com/eve-companion/internal/models"
)

// MiningLedgerRepository handles mining ledger persistence.
// The ledger is a historical record: rows for past dates are never removed.
// The natural key is (character, date, solar system, type); the remote API
// reports a cumulative per-day quantity, so re-fetching an existing tuple
// refreshes quantity in place rather than inserting a duplicate.
type MiningLedgerRepository struct {
	db *PostgresDB
}

// NewMiningLedgerRepository creates a new mining ledger repository
func NewMiningLedgerRepository(db *PostgresDB) *MiningLedgerRepository {
	return &MiningLedgerRepository{db: db}
}

// Upsert stores one mining ledger entry by natural key
func (r *MiningLedgerRepository) Upsert(ctx context.Context, e *models.MiningLedgerEntry) error {
	query := `
		INSERT INTO mining_ledger (character_id, date, solar_system_id, type_id, quantity)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (character_id, date, solar_system_id, type_id)
		DO UPDATE SET quantity = $5
	`

	_, err := r.db.Pool().Exec(ctx, query,
		e.CharacterID,
		e.Date,
		e.SolarSystemID,
		e.TypeID,
		e.Quantity,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert mining ledger entry: %w", err)
	}
	return nil
}

// DistinctTypeIDs returns the unique item types ever mined. The market
// history task uses this as its type roster.
func (r *MiningLedgerRepository) DistinctTypeIDs(ctx context.Context) ([]int64, error) {
	query := `SELECT DISTINCT type_id FROM mining_ledger ORDER BY type_id`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list mined type ids: %w", err)
	}
	defer rows.Close()

	var typeIDs []int64
	for rows.Next() {
		var typeID int64
		if err := rows.Scan(&typeID); err != nil {
			return nil, fmt.Errorf("failed to scan type id: %w", err)
		}
		typeIDs = append(typeIDs, typeID)
	}
	return typeIDs, rows.Err()
}
