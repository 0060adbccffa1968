package tasks

import (
	"context"
	"fmt"

	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
)

// CharacterLister lists accounts eligible for syncing.
type CharacterLister interface {
	ListHealthy(ctx context.Context) ([]*models.Character, error)
}

// FeatureChecker reports per-character feature opt-ins.
type FeatureChecker interface {
	IsEnabled(ctx context.Context, characterID int64, feature string) (bool, error)
}

// Roster loads the set of accounts a task run iterates: healthy accounts
// only, optionally narrowed to those opted into a feature.
type Roster struct {
	characters CharacterLister
	features   FeatureChecker
}

// NewRoster creates a roster loader.
func NewRoster(characters CharacterLister, features FeatureChecker) *Roster {
	return &Roster{characters: characters, features: features}
}

// Load returns the healthy accounts, filtered to those with featureKey
// enabled when it is non-empty. A feature-check failure for one character
// excludes that character rather than failing the load.
func (r *Roster) Load(ctx context.Context, featureKey string) ([]*models.Character, error) {
	characters, err := r.characters.ListHealthy(ctx)
	if err != nil {
		return nil, fmt.Errorf("list healthy characters: %w", err)
	}
	if featureKey == "" {
		return characters, nil
	}

	filtered := make([]*models.Character, 0, len(characters))
	for _, c := range characters {
		enabled, err := r.features.IsEnabled(ctx, c.CharacterID, featureKey)
		if err != nil {
			logging.FromContext(ctx).WithFields(map[string]interface{}{
				"character_id": c.CharacterID,
				"feature":      featureKey,
			}).WithError(err).Warn("Feature check failed, excluding character from run")
			continue
		}
		if enabled {
			filtered = append(filtered, c)
		}
	}
	return filtered, nil
}
