package storage

import (
	"context"
	"fmt"

	"github.com/eve-companion/internal/models"
)

// BlueprintRepository handles owned blueprint persistence
type BlueprintRepository struct {
	db *PostgresDB
}

// NewBlueprintRepository creates a new blueprint repository
func NewBlueprintRepository(db *PostgresDB) *BlueprintRepository {
	return &BlueprintRepository{db: db}
}

// Upsert stores one owned blueprint item, keyed by item id. Quantity and
// efficiency fields are overwritten on each refresh.
func (r *BlueprintRepository) Upsert(ctx context.Context, b *models.Blueprint) error {
	query := `
		INSERT INTO blueprints (
			item_id, character_id, type_id, location_id, location_flag,
			quantity, material_efficiency, time_efficiency, runs, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())
		ON CONFLICT (item_id)
		DO UPDATE SET
			character_id = $2, type_id = $3, location_id = $4, location_flag = $5,
			quantity = $6, material_efficiency = $7, time_efficiency = $8,
			runs = $9, updated_at = NOW()
	`

	_, err := r.db.Pool().Exec(ctx, query,
		b.ItemID,
		b.CharacterID,
		b.TypeID,
		b.LocationID,
		b.LocationFlag,
		b.Quantity,
		b.MaterialEfficiency,
		b.TimeEfficiency,
		b.Runs,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert blueprint: %w", err)
	}
	return nil
}

// CountByCharacter returns how many blueprints are stored for a character
func (r *BlueprintRepository) CountByCharacter(ctx context.Context, characterID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM blueprints WHERE character_id = $1`

	var count int64
	if err := r.db.Pool().QueryRow(ctx, query, characterID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count blueprints: %w", err)
	}
	return count, nil
}
