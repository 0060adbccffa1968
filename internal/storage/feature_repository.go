package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// FeatureRepository handles per-character feature flag persistence.
// Flags live in a JSON blob keyed by feature name.
type FeatureRepository struct {
	db *PostgresDB
}

// NewFeatureRepository creates a new feature repository
func NewFeatureRepository(db *PostgresDB) *FeatureRepository {
	return &FeatureRepository{db: db}
}

// IsEnabled reports whether a named feature is enabled for a character.
// A missing row means disabled.
func (r *FeatureRepository) IsEnabled(ctx context.Context, characterID int64, feature string) (bool, error) {
	query := `SELECT features FROM features WHERE character_id = $1`

	var raw []byte
	err := r.db.Pool().QueryRow(ctx, query, characterID).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get features: %w", err)
	}

	var features map[string]bool
	if err := json.Unmarshal(raw, &features); err != nil {
		return false, fmt.Errorf("failed to unmarshal features: %w", err)
	}
	return features[feature], nil
}

// SetEnabled enables or disables a feature for a character, creating the
// feature row when absent.
func (r *FeatureRepository) SetEnabled(ctx context.Context, characterID int64, feature string, enabled bool) error {
	update, err := json.Marshal(map[string]bool{feature: enabled})
	if err != nil {
		return fmt.Errorf("failed to marshal feature update: %w", err)
	}

	query := `
		INSERT INTO features (character_id, features)
		VALUES ($1, $2)
		ON CONFLICT (character_id)
		DO UPDATE SET features = features.features || EXCLUDED.features
	`

	if _, err := r.db.Pool().Exec(ctx, query, characterID, update); err != nil {
		return fmt.Errorf("failed to set feature: %w", err)
	}
	return nil
}
