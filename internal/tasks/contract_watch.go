package tasks

import (
	"context"
	"fmt"

	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
)

type watchedMatchLister interface {
	ListWatchedMatches(ctx context.Context, characterID int64) ([]*models.ContractItem, error)
}

type contractNotificationRecorder interface {
	ListSettings(ctx context.Context) ([]*models.NotificationSettings, error)
	RecordContractNotification(ctx context.Context, characterID, contractID int64) error
}

type typeNameResolver interface {
	TypeName(ctx context.Context, typeID int64) (string, error)
}

// ContractWatchTask alerts opted-in characters when a parsed contract
// contains an item type on their watchlist. Each (character, contract) pair
// is notified at most once, recorded in storage so restarts do not re-alert.
type ContractWatchTask struct {
	settings  contractNotificationRecorder
	matches   watchedMatchLister
	names     typeNameResolver
	directory discordDirectory
	notifier  Notifier
}

// NewContractWatchTask wires the contract watchlist job.
func NewContractWatchTask(settings contractNotificationRecorder, matches watchedMatchLister, names typeNameResolver, directory discordDirectory, notifier Notifier) *ContractWatchTask {
	return &ContractWatchTask{settings: settings, matches: matches, names: names, directory: directory, notifier: notifier}
}

// Run checks the watchlist for every opted-in character.
func (t *ContractWatchTask) Run(ctx context.Context) error {
	settings, err := t.settings.ListSettings(ctx)
	if err != nil {
		return err
	}

	failed := 0
	for _, s := range settings {
		if !s.Wants(models.NotificationKindContractWatch) {
			continue
		}
		if err := t.checkOne(ctx, s); err != nil {
			logging.FromContext(ctx).WithField("character_id", s.CharacterID).
				WithError(err).Warn("Contract watch check failed")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d characters failed watch check", failed)
	}
	return nil
}

func (t *ContractWatchTask) checkOne(ctx context.Context, s *models.NotificationSettings) error {
	matches, err := t.matches.ListWatchedMatches(ctx, s.CharacterID)
	if err != nil {
		return err
	}
	if len(matches) == 0 {
		return nil
	}

	discordUserID, err := t.directory.DiscordUserID(ctx, s.MasterCharacterID)
	if err != nil {
		return err
	}

	for _, item := range matches {
		name, err := t.names.TypeName(ctx, item.TypeID)
		if err != nil {
			name = fmt.Sprintf("type %d", item.TypeID)
		}

		message := fmt.Sprintf("A public contract (%d) contains a watched item: %s x%d.",
			item.ContractID, name, item.Quantity)
		if err := t.notifier.NotifyUser(ctx, discordUserID, message); err != nil {
			return err
		}
		if err := t.settings.RecordContractNotification(ctx, s.CharacterID, item.ContractID); err != nil {
			return err
		}
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"character_id": s.CharacterID,
		"matches":      len(matches),
	}).Info("Contract watch alerts sent")
	return nil
}
