package tasks

import (
	"context"
	"fmt"

	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
)

// spFarmThresholdSP is the extractable skill-point level an SP farm waits
// for. Crossing it fires exactly one alert until the total regresses below
// the threshold again.
const spFarmThresholdSP = 5_500_000

type notificationStore interface {
	ListSettings(ctx context.Context) ([]*models.NotificationSettings, error)
	HasActiveSuppression(ctx context.Context, characterID int64, kind string) (bool, error)
	RecordSent(ctx context.Context, characterID int64, kind string, totalSP int64) error
	ClearSuppression(ctx context.Context, characterID int64, kind string) error
}

type skillSetReader interface {
	GetByCharacter(ctx context.Context, characterID int64) (*models.SkillSet, error)
}

type discordDirectory interface {
	DiscordUserID(ctx context.Context, masterCharacterID int64) (string, error)
}

// NotificationsTask watches each opted-in character's skill-point total and
// alerts the owning user when it crosses the SP-farm threshold. An active
// suppression row holds further alerts until the total drops back under the
// threshold, at which point the suppression clears and the next crossing
// alerts again.
type NotificationsTask struct {
	settings  notificationStore
	skillSets skillSetReader
	directory discordDirectory
	notifier  Notifier
}

// NewNotificationsTask wires the SP-farm watcher.
func NewNotificationsTask(settings notificationStore, skillSets skillSetReader, directory discordDirectory, notifier Notifier) *NotificationsTask {
	return &NotificationsTask{settings: settings, skillSets: skillSets, directory: directory, notifier: notifier}
}

// Run evaluates the threshold state machine for every opted-in character.
func (t *NotificationsTask) Run(ctx context.Context) error {
	settings, err := t.settings.ListSettings(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, s := range settings {
		if !s.Wants(models.NotificationKindSPFarm) {
			continue
		}
		if err := t.evaluate(ctx, s); err != nil {
			logging.FromContext(ctx).WithField("character_id", s.CharacterID).
				WithError(err).Warn("SP-farm evaluation failed")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d characters failed evaluation", failed)
	}
	return nil
}

func (t *NotificationsTask) evaluate(ctx context.Context, s *models.NotificationSettings) error {
	skillSet, err := t.skillSets.GetByCharacter(ctx, s.CharacterID)
	if err != nil {
		return err
	}
	if skillSet == nil {
		// No snapshot yet; the skills task has not reached this character.
		return nil
	}

	if skillSet.TotalSP < spFarmThresholdSP {
		return t.settings.ClearSuppression(ctx, s.CharacterID, models.NotificationKindSPFarm)
	}

	suppressed, err := t.settings.HasActiveSuppression(ctx, s.CharacterID, models.NotificationKindSPFarm)
	if err != nil {
		return err
	}
	if suppressed {
		return nil
	}

	discordUserID, err := t.directory.DiscordUserID(ctx, s.MasterCharacterID)
	if err != nil {
		return err
	}

	message := fmt.Sprintf("Character %d has reached %d SP and is ready for extraction.",
		s.CharacterID, skillSet.TotalSP)
	if err := t.notifier.NotifyUser(ctx, discordUserID, message); err != nil {
		return err
	}

	return t.settings.RecordSent(ctx, s.CharacterID, models.NotificationKindSPFarm, skillSet.TotalSP)
}
