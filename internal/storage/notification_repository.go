package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eve-companion/internal/models"
)

// NotificationRepository handles notification settings, suppression records
// and the contract watchlist.
type NotificationRepository struct {
	db *PostgresDB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *PostgresDB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// ListSettings returns every character with notification opt-ins, ordered by
// character id.
func (r *NotificationRepository) ListSettings(ctx context.Context) ([]*models.NotificationSettings, error) {
	query := `
		SELECT character_id, master_character_id, enabled
		FROM notification_settings
		ORDER BY character_id
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list notification settings: %w", err)
	}
	defer rows.Close()

	var settings []*models.NotificationSettings
	for rows.Next() {
		var s models.NotificationSettings
		var raw []byte
		if err := rows.Scan(&s.CharacterID, &s.MasterCharacterID, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan notification settings: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &s.Enabled); err != nil {
				return nil, fmt.Errorf("failed to unmarshal notification settings: %w", err)
			}
		}
		settings = append(settings, &s)
	}
	return settings, rows.Err()
}

// HasActiveSuppression reports whether an uncleared suppression record exists
// for (character, kind). While one exists, no further notification of that
// kind is sent.
func (r *NotificationRepository) HasActiveSuppression(ctx context.Context, characterID int64, kind string) (bool, error) {
	query := `
		SELECT COUNT(*)
		FROM sent_notifications
		WHERE character_id = $1 AND kind = $2 AND cleared = FALSE
	`

	var count int64
	if err := r.db.Pool().QueryRow(ctx, query, characterID, kind).Scan(&count); err != nil {
		return false, fmt.Errorf("failed to check suppression: %w", err)
	}
	return count > 0, nil
}

// RecordSent creates a suppression record after a notification goes out
func (r *NotificationRepository) RecordSent(ctx context.Context, characterID int64, kind string, totalSP int64) error {
	query := `
		INSERT INTO sent_notifications (character_id, kind, total_sp, cleared, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
	`

	if _, err := r.db.Pool().Exec(ctx, query, characterID, kind, totalSP); err != nil {
		return fmt.Errorf("failed to record sent notification: %w", err)
	}
	return nil
}

// ClearSuppression clears suppression records once the triggering metric has
// regressed below the threshold, re-arming notification for the next crossing.
func (r *NotificationRepository) ClearSuppression(ctx context.Context, characterID int64, kind string) error {
	query := `
		UPDATE sent_notifications
		SET cleared = TRUE
		WHERE character_id = $1 AND kind = $2 AND cleared = FALSE
	`

	if _, err := r.db.Pool().Exec(ctx, query, characterID, kind); err != nil {
		return fmt.Errorf("failed to clear suppression: %w", err)
	}
	return nil
}

// RecordContractNotification marks that a character was notified about a
// contract. The insert is idempotent.
func (r *NotificationRepository) RecordContractNotification(ctx context.Context, characterID, contractID int64) error {
	query := `
		INSERT INTO contract_notifications (character_id, contract_id)
		VALUES ($1, $2)
		ON CONFLICT (character_id, contract_id) DO NOTHING
	`

	if _, err := r.db.Pool().Exec(ctx, query, characterID, contractID); err != nil {
		return fmt.Errorf("failed to record contract notification: %w", err)
	}
	return nil
}
