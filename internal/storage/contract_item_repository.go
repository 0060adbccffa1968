package storage

import (
	"context"
	"fmt"

	"github.com/eve-companion/internal/models"
)

// ContractItemRepository handles contract line-item persistence
type ContractItemRepository struct {
	db *PostgresDB
}

// NewContractItemRepository creates a new contract item repository
func NewContractItemRepository(db *PostgresDB) *ContractItemRepository {
	return &ContractItemRepository{db: db}
}

// Upsert stores one contract line item by (contract id, record id)
func (r *ContractItemRepository) Upsert(ctx context.Context, item *models.ContractItem) error {
	query := `
		INSERT INTO contract_items (
			contract_id, record_id, type_id, quantity, is_included,
			is_blueprint_copy, material_efficiency, time_efficiency, runs
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (contract_id, record_id)
		DO UPDATE SET
			type_id = $3, quantity = $4, is_included = $5,
			is_blueprint_copy = $6, material_efficiency = $7,
			time_efficiency = $8, runs = $9
	`

	_, err := r.db.Pool().Exec(ctx, query,
		item.ContractID,
		item.RecordID,
		item.TypeID,
		item.Quantity,
		item.IsIncluded,
		item.IsBlueprintCopy,
		item.MaterialEfficiency,
		item.TimeEfficiency,
		item.Runs,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contract item: %w", err)
	}
	return nil
}

// ListWatchedMatches returns contract items whose type is on the contract
// watchlist and for which the given character has not yet been notified.
func (r *ContractItemRepository) ListWatchedMatches(ctx context.Context, characterID int64) ([]*models.ContractItem, error) {
	query := `
		SELECT ci.contract_id, ci.record_id, ci.type_id, ci.quantity, ci.is_included,
			ci.is_blueprint_copy, ci.material_efficiency, ci.time_efficiency, ci.runs
		FROM contract_items ci
		JOIN contract_watchlist w ON w.type_id = ci.type_id
		LEFT JOIN contract_notifications cn
			ON cn.character_id = $1 AND cn.contract_id = ci.contract_id
		WHERE cn.contract_id IS NULL
		ORDER BY ci.contract_id, ci.record_id
	`

	rows, err := r.db.Pool().Query(ctx, query, characterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list watched matches: %w", err)
	}
	defer rows.Close()

	var items []*models.ContractItem
	for rows.Next() {
		var item models.ContractItem
		err := rows.Scan(
			&item.ContractID,
			&item.RecordID,
			&item.TypeID,
			&item.Quantity,
			&item.IsIncluded,
			&item.IsBlueprintCopy,
			&item.MaterialEfficiency,
			&item.TimeEfficiency,
			&item.Runs,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract item: %w", err)
		}
		items = append(items, &item)
	}
	return items, rows.Err()
}
