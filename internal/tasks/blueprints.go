package tasks

import (
	"context"
	"time"

	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
)

type blueprintsFetcher interface {
	CharacterBlueprints(ctx context.Context, characterID int64, token string) ([]esi.BlueprintEntry, error)
}

type blueprintStore interface {
	Upsert(ctx context.Context, b *models.Blueprint) error
}

// BlueprintsTask refreshes every healthy account's owned blueprint list.
type BlueprintsTask struct {
	roster *Roster
	tokens TokenSource
	fetch  blueprintsFetcher
	store  blueprintStore
	health HealthMarker
}

// NewBlueprintsTask wires the blueprint sync job.
func NewBlueprintsTask(roster *Roster, tokens TokenSource, fetch blueprintsFetcher, store blueprintStore, health HealthMarker) *BlueprintsTask {
	return &BlueprintsTask{roster: roster, tokens: tokens, fetch: fetch, store: store, health: health}
}

// Run syncs blueprints for every healthy account.
func (t *BlueprintsTask) Run(ctx context.Context) error {
	characters, err := t.roster.Load(ctx, "")
	if err != nil {
		return err
	}

	failed := 0
	for _, character := range characters {
		if err := t.syncOne(ctx, character); err != nil {
			handleAccountError(ctx, t.health, t.tokens, character.CharacterID, err)
			failed++
		}
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"characters": len(characters),
		"failed":     failed,
	}).Info("Blueprint sync finished")
	return runSummary(failed, len(characters))
}

func (t *BlueprintsTask) syncOne(ctx context.Context, character *models.Character) error {
	token, err := t.tokens.AccessToken(ctx, character)
	if err != nil {
		return err
	}

	entries, err := t.fetch.CharacterBlueprints(ctx, character.CharacterID, token)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, e := range entries {
		bp := &models.Blueprint{
			ItemID:             e.ItemID,
			CharacterID:        character.CharacterID,
			TypeID:             int64(e.TypeID),
			LocationID:         e.LocationID,
			LocationFlag:       e.LocationFlag,
			Quantity:           int(e.Quantity),
			MaterialEfficiency: int(e.MaterialEfficiency),
			TimeEfficiency:     int(e.TimeEfficiency),
			Runs:               int(e.Runs),
			UpdatedAt:          now,
		}
		if err := t.store.Upsert(ctx, bp); err != nil {
			return err
		}
	}
	return nil
}
