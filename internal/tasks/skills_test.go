package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/models"
	"github.com/eve-companion/internal/syncerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokenSource struct {
	tokens      map[int64]string
	errFor      map[int64]error
	invalidated []int64
}

func (f *fakeTokenSource) AccessToken(_ context.Context, c *models.Character) (string, error) {
	if err := f.errFor[c.CharacterID]; err != nil {
		return "", err
	}
	return f.tokens[c.CharacterID], nil
}

func (f *fakeTokenSource) Invalidate(_ context.Context, characterID int64) {
	f.invalidated = append(f.invalidated, characterID)
}

type fakeSkillsFetcher struct {
	responses map[int64]*esi.SkillsResponse
	errFor    map[int64]error
}

func (f *fakeSkillsFetcher) CharacterSkills(_ context.Context, characterID int64, _ string) (*esi.SkillsResponse, error) {
	if err := f.errFor[characterID]; err != nil {
		return nil, err
	}
	return f.responses[characterID], nil
}

type fakeSkillSetStore struct {
	upserted []*models.SkillSet
}

func (f *fakeSkillSetStore) Upsert(_ context.Context, s *models.SkillSet) error {
	f.upserted = append(f.upserted, s)
	return nil
}

type fakeHealthMarker struct {
	marked []int64
}

func (f *fakeHealthMarker) MarkSSOInvalid(_ context.Context, characterID int64) error {
	f.marked = append(f.marked, characterID)
	return nil
}

func allEnabled(ids ...int64) *fakeFeatureChecker {
	enabled := make(map[int64]bool, len(ids))
	for _, id := range ids {
		enabled[id] = true
	}
	return &fakeFeatureChecker{enabled: enabled}
}

func TestSkillsTaskSyncsAllHealthyAccounts(t *testing.T) {
	roster := NewRoster(&fakeCharacterLister{characters: []*models.Character{
		{CharacterID: 1}, {CharacterID: 2},
	}}, allEnabled(1, 2))

	fetcher := &fakeSkillsFetcher{responses: map[int64]*esi.SkillsResponse{
		1: {TotalSP: 4_000_000, UnallocatedSP: 10_000},
		2: {TotalSP: 6_000_000, UnallocatedSP: 0},
	}}
	store := &fakeSkillSetStore{}
	health := &fakeHealthMarker{}
	tokens := &fakeTokenSource{tokens: map[int64]string{1: "t1", 2: "t2"}}

	task := NewSkillsTask(roster, tokens, fetcher, store, health)
	require.NoError(t, task.Run(context.Background()))

	require.Len(t, store.upserted, 2)
	assert.Equal(t, int64(4_000_000), store.upserted[0].TotalSP)
	assert.Equal(t, int64(6_000_000), store.upserted[1].TotalSP)
	assert.Empty(t, health.marked)
}

func TestSkillsTaskCredentialFailureIsolatedToOneAccount(t *testing.T) {
	roster := NewRoster(&fakeCharacterLister{characters: []*models.Character{
		{CharacterID: 1}, {CharacterID: 2}, {CharacterID: 3},
	}}, allEnabled(1, 2, 3))

	tokens := &fakeTokenSource{
		tokens: map[int64]string{1: "t1", 3: "t3"},
		errFor: map[int64]error{
			2: syncerr.NewCredentialError(2, "token_refresh", errors.New("invalid_grant")),
		},
	}
	fetcher := &fakeSkillsFetcher{responses: map[int64]*esi.SkillsResponse{
		1: {TotalSP: 1}, 3: {TotalSP: 3},
	}}
	store := &fakeSkillSetStore{}
	health := &fakeHealthMarker{}

	task := NewSkillsTask(roster, tokens, fetcher, store, health)
	err := task.Run(context.Background())

	// The other two accounts still synced.
	require.Len(t, store.upserted, 2)
	assert.Equal(t, int64(1), store.upserted[0].CharacterID)
	assert.Equal(t, int64(3), store.upserted[1].CharacterID)

	// The failing account was marked unhealthy and its cache dropped.
	assert.Equal(t, []int64{2}, health.marked)
	assert.Equal(t, []int64{2}, tokens.invalidated)

	// The run reports the partial failure without having aborted.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3")
}

func TestSkillsTaskTransientFailureDoesNotMarkUnhealthy(t *testing.T) {
	roster := NewRoster(&fakeCharacterLister{characters: []*models.Character{
		{CharacterID: 1},
	}}, allEnabled(1))

	tokens := &fakeTokenSource{tokens: map[int64]string{1: "t1"}}
	fetcher := &fakeSkillsFetcher{errFor: map[int64]error{
		1: syncerr.NewTransientError(1, "get_characters_character_id_skills", errors.New("status 502")),
	}}
	health := &fakeHealthMarker{}

	task := NewSkillsTask(roster, tokens, fetcher, &fakeSkillSetStore{}, health)
	err := task.Run(context.Background())

	require.Error(t, err)
	assert.Empty(t, health.marked, "transient failures must not disable the account")
	assert.Empty(t, tokens.invalidated)
}
