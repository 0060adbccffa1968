package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/eve-companion/internal/models"
	"github.com/jackc/pgx/v5"
)

// CharacterRepository handles character account persistence
type CharacterRepository struct {
	db *PostgresDB
}

// NewCharacterRepository creates a new character repository
func NewCharacterRepository(db *PostgresDB) *CharacterRepository {
	return &CharacterRepository{db: db}
}

const characterColumns = `
	character_id, character_name, COALESCE(owner_hash, ''), master_character_id,
	COALESCE(access_token, ''), COALESCE(access_token_expires, 'epoch'::timestamptz),
	COALESCE(refresh_token, ''), sso_is_valid, COALESCE(discord_user_id, '')
`

func scanCharacter(row pgx.Row) (*models.Character, error) {
	var c models.Character
	err := row.Scan(
		&c.CharacterID,
		&c.CharacterName,
		&c.OwnerHash,
		&c.MasterCharacterID,
		&c.AccessToken,
		&c.AccessTokenExpires,
		&c.RefreshToken,
		&c.SSOIsValid,
		&c.DiscordUserID,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByID retrieves a character by id
func (r *CharacterRepository) GetByID(ctx context.Context, characterID int64) (*models.Character, error) {
	query := `SELECT ` + characterColumns + ` FROM characters WHERE character_id = $1`

	c, err := scanCharacter(r.db.Pool().QueryRow(ctx, query, characterID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("character not found: %d", characterID)
		}
		return nil, fmt.Errorf("failed to get character: %w", err)
	}
	return c, nil
}

// ListHealthy returns all characters whose stored credentials are currently
// usable, ordered by name. An empty list is valid and means there is nothing
// to sync this cycle.
func (r *CharacterRepository) ListHealthy(ctx context.Context) ([]*models.Character, error) {
	query := `
		SELECT ` + characterColumns + `
		FROM characters
		WHERE sso_is_valid = TRUE
		ORDER BY character_name, character_id
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list characters: %w", err)
	}
	defer rows.Close()

	var characters []*models.Character
	for rows.Next() {
		c, err := scanCharacter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan character: %w", err)
		}
		characters = append(characters, c)
	}
	return characters, rows.Err()
}

// UpdateTokens stores a rotated credential pair after a successful refresh
func (r *CharacterRepository) UpdateTokens(ctx context.Context, characterID int64, accessToken string, expires time.Time, refreshToken string) error {
	query := `
		UPDATE characters
		SET access_token = $2, access_token_expires = $3, refresh_token = $4
		WHERE character_id = $1
	`

	tag, err := r.db.Pool().Exec(ctx, query, characterID, accessToken, expires, refreshToken)
	if err != nil {
		return fmt.Errorf("failed to update tokens: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("character not found: %d", characterID)
	}
	return nil
}

// MarkSSOInvalid flips the health flag after an irrecoverable credential
// failure. The character is excluded from all future sync runs until the
// user re-authenticates.
func (r *CharacterRepository) MarkSSOInvalid(ctx context.Context, characterID int64) error {
	query := `UPDATE characters SET sso_is_valid = FALSE WHERE character_id = $1`

	if _, err := r.db.Pool().Exec(ctx, query, characterID); err != nil {
		return fmt.Errorf("failed to mark sso invalid: %w", err)
	}
	return nil
}

// DiscordUserID returns the Discord destination for a character's master
// login, or empty when none is linked.
func (r *CharacterRepository) DiscordUserID(ctx context.Context, masterCharacterID int64) (string, error) {
	query := `SELECT COALESCE(discord_user_id, '') FROM characters WHERE character_id = $1`

	var discordID string
	err := r.db.Pool().QueryRow(ctx, query, masterCharacterID).Scan(&discordID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get discord user id: %w", err)
	}
	return discordID, nil
}
