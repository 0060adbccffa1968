package tasks

import (
	"context"
	"time"

	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
)

// skillsFetcher is the slice of the ESI client the skills task needs.
type skillsFetcher interface {
	CharacterSkills(ctx context.Context, characterID int64, token string) (*esi.SkillsResponse, error)
}

// skillSetStore persists skill-point snapshots.
type skillSetStore interface {
	Upsert(ctx context.Context, s *models.SkillSet) error
}

// SkillsTask refreshes the skill-point snapshot of every opted-in healthy
// account. The feature gate keeps accounts that never asked for skill
// tracking out of the authenticated call volume.
type SkillsTask struct {
	roster *Roster
	tokens TokenSource
	fetch  skillsFetcher
	store  skillSetStore
	health HealthMarker
}

// NewSkillsTask wires the skills sync job.
func NewSkillsTask(roster *Roster, tokens TokenSource, fetch skillsFetcher, store skillSetStore, health HealthMarker) *SkillsTask {
	return &SkillsTask{roster: roster, tokens: tokens, fetch: fetch, store: store, health: health}
}

// Run syncs one snapshot per roster character.
func (t *SkillsTask) Run(ctx context.Context) error {
	characters, err := t.roster.Load(ctx, "skills")
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
	}).Info("Skills sync finished")
	return runSummary(failed, len(characters))
}

func (t *SkillsTask) syncOne(ctx context.Context, character *models.Character) error {
	token, err := t.tokens.AccessToken(ctx, character)
	if err != nil {
		return err
	}

	resp, err := t.fetch.CharacterSkills(ctx, character.CharacterID, token)
	if err != nil {
		return err
	}

	return t.store.Upsert(ctx, &models.SkillSet{
		CharacterID:   character.CharacterID,
		TotalSP:       resp.TotalSP,
		UnallocatedSP: resp.UnallocatedSP,
		UpdatedAt:     time.Now().UTC(),
	})
}
