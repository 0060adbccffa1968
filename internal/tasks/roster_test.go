package tasks

import (
	"context"
	"errors"
	"testing"

	"github.com/eve-companion/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCharacterLister struct {
	characters []*models.Character
	err        error
}

func (f *fakeCharacterLister) ListHealthy(_ context.Context) ([]*models.Character, error) {
	return f.characters, f.err
}

type fakeFeatureChecker struct {
	enabled map[int64]bool
	errFor  map[int64]error
}

func (f *fakeFeatureChecker) IsEnabled(_ context.Context, characterID int64, _ string) (bool, error) {
	if err := f.errFor[characterID]; err != nil {
		return false, err
	}
	return f.enabled[characterID], nil
}

func TestRosterLoadWithoutFeatureReturnsAllHealthy(t *testing.T) {
	lister := &fakeCharacterLister{characters: []*models.Character{
		{CharacterID: 1}, {CharacterID: 2},
	}}
	roster := NewRoster(lister, &fakeFeatureChecker{})

	characters, err := roster.Load(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, characters, 2)
}

func TestRosterLoadFiltersByFeature(t *testing.T) {
	lister := &fakeCharacterLister{characters: []*models.Character{
		{CharacterID: 1}, {CharacterID: 2}, {CharacterID: 3},
	}}
	features := &fakeFeatureChecker{enabled: map[int64]bool{1: true, 3: true}}
	roster := NewRoster(lister, features)

	characters, err := roster.Load(context.Background(), "skills")
	require.NoError(t, err)
	require.Len(t, characters, 2)
	assert.Equal(t, int64(1), characters[0].CharacterID)
	assert.Equal(t, int64(3), characters[1].CharacterID)
}

func TestRosterLoadExcludesCharacterOnFeatureCheckError(t *testing.T) {
	lister := &fakeCharacterLister{characters: []*models.Character{
		{CharacterID: 1}, {CharacterID: 2},
	}}
	features := &fakeFeatureChecker{
		enabled: map[int64]bool{1: true, 2: true},
		errFor:  map[int64]error{2: errors.New("db unavailable")},
	}
	roster := NewRoster(lister, features)

	characters, err := roster.Load(context.Background(), "skills")
	require.NoError(t, err)
	require.Len(t, characters, 1)
	assert.Equal(t, int64(1), characters[0].CharacterID)
}

func TestRosterLoadPropagatesListError(t *testing.T) {
	roster := NewRoster(&fakeCharacterLister{err: errors.New("down")}, &fakeFeatureChecker{})

	_, err := roster.Load(context.Background(), "")
	assert.Error(t, err)
}
