package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
)

type miningFetcher interface {
	CharacterMining(ctx context.Context, characterID int64, token string) ([]esi.MiningEntry, error)
}

type miningLedgerStore interface {
	Upsert(ctx context.Context, e *models.MiningLedgerEntry) error
}

// MiningLedgerTask accumulates per-day mining activity for every healthy
// account. ESI reports a cumulative quantity per (date, system, ore) tuple,
// so re-syncing a day refreshes its quantity; history stays additive.
type MiningLedgerTask struct {
	roster *Roster
	tokens TokenSource
	fetch  miningFetcher
	store  miningLedgerStore
	health HealthMarker
}

// NewMiningLedgerTask wires the mining ledger sync job.
func NewMiningLedgerTask(roster *Roster, tokens TokenSource, fetch miningFetcher, store miningLedgerStore, health HealthMarker) *MiningLedgerTask {
	return &MiningLedgerTask{roster: roster, tokens: tokens, fetch: fetch, store: store, health: health}
}

// Run syncs the mining ledger for every healthy account.
func (t *MiningLedgerTask) Run(ctx context.Context) error {
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
	}).Info("Mining ledger sync finished")
	return runSummary(failed, len(characters))
}

func (t *MiningLedgerTask) syncOne(ctx context.Context, character *models.Character) error {
	token, err := t.tokens.AccessToken(ctx, character)
	if err != nil {
		return err
	}

	entries, err := t.fetch.CharacterMining(ctx, character.CharacterID, token)
	if err != nil {
		return err
	}

	for _, e := range entries {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return fmt.Errorf("parse mining date %q: %w", e.Date, err)
		}
		entry := &models.MiningLedgerEntry{
			CharacterID:   character.CharacterID,
			Date:          date,
			SolarSystemID: e.SolarSystemID,
			TypeID:        int64(e.TypeID),
			Quantity:      e.Quantity,
		}
		if err := t.store.Upsert(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}
