package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eve-companion/internal/models"
	"github.com/jackc/pgx/v5"
)

// SkillSetRepository handles skill snapshot persistence
type SkillSetRepository struct {
	db *PostgresDB
}

// NewSkillSetRepository creates a new skill set repository
func NewSkillSetRepository(db *PostgresDB) *SkillSetRepository {
	return &SkillSetRepository{db: db}
}

// Upsert stores the current skill-point counters for a character.
// One row per character; re-fetching identical data updates in place.
func (r *SkillSetRepository) Upsert(ctx context.Context, s *models.SkillSet) error {
	query := `
		INSERT INTO skill_sets (character_id, total_sp, unallocated_sp, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (character_id)
		DO UPDATE SET total_sp = $2, unallocated_sp = $3, updated_at = NOW()
	`

	if _, err := r.db.Pool().Exec(ctx, query, s.CharacterID, s.TotalSP, s.UnallocatedSP); err != nil {
		return fmt.Errorf("failed to upsert skill set: %w", err)
	}
	return nil
}

// GetByCharacter retrieves the skill snapshot for a character, or nil when
// the character has never synced skills.
func (r *SkillSetRepository) GetByCharacter(ctx context.Context, characterID int64) (*models.SkillSet, error) {
	query := `
		SELECT character_id, total_sp, unallocated_sp, updated_at
		FROM skill_sets
		WHERE character_id = $1
	`

	var s models.SkillSet
	var updatedAt time.Time
	err := r.db.Pool().QueryRow(ctx, query, characterID).Scan(&s.CharacterID, &s.TotalSP, &s.UnallocatedSP, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get skill set: %w", err)
	}
	s.UpdatedAt = updatedAt
	return &s, nil
}
