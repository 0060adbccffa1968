package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHistoryFetcher struct {
	entries map[int32][]esi.HistoryEntry
	fetched []int32
}

func (f *fakeHistoryFetcher) RegionMarketHistory(_ context.Context, _ int64, typeID int32) ([]esi.HistoryEntry, error) {
	f.fetched = append(f.fetched, typeID)
	return f.entries[typeID], nil
}

type fakeHistoryStore struct {
	lastUpdated map[int64]time.Time
	upserted    []*models.MarketHistoryPoint
}

func (f *fakeHistoryStore) Upsert(_ context.Context, p *models.MarketHistoryPoint) error {
	f.upserted = append(f.upserted, p)
	return nil
}

func (f *fakeHistoryStore) LastUpdated(_ context.Context, typeID, _ int64) (time.Time, error) {
	return f.lastUpdated[typeID], nil
}

type fakeTypeSource struct {
	typeIDs []int64
}

func (f *fakeTypeSource) DistinctTypeIDs(_ context.Context) ([]int64, error) {
	return f.typeIDs, nil
}

func TestMarketHistoryTaskSkipsFreshTypes(t *testing.T) {
	fetcher := &fakeHistoryFetcher{entries: map[int32][]esi.HistoryEntry{
		35: {{Date: "2026-08-28", Average: 12.5, Highest: 13, Lowest: 12, OrderCount: 40, Volume: 9000}},
	}}
	store := &fakeHistoryStore{lastUpdated: map[int64]time.Time{
		34: time.Now().Add(-time.Hour),      // fresh, skipped
		35: time.Now().Add(-48 * time.Hour), // stale, refreshed
	}}

	task := NewMarketHistoryTask(10000002, &fakeTypeSource{typeIDs: []int64{34, 35}}, fetcher, store)
	require.NoError(t, task.Run(context.Background()))

	assert.Equal(t, []int32{35}, fetcher.fetched)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, int64(35), store.upserted[0].TypeID)
	assert.Equal(t, int64(10000002), store.upserted[0].RegionID)
	assert.Equal(t, 12.5, store.upserted[0].Average)
}

func TestMarketHistoryTaskRefreshesNeverFetchedTypes(t *testing.T) {
	fetcher := &fakeHistoryFetcher{entries: map[int32][]esi.HistoryEntry{
		34: {{Date: "2026-08-27"}, {Date: "2026-08-28"}},
	}}
	// Zero time means never updated.
	store := &fakeHistoryStore{lastUpdated: map[int64]time.Time{}}

	task := NewMarketHistoryTask(10000002, &fakeTypeSource{typeIDs: []int64{34}}, fetcher, store)
	require.NoError(t, task.Run(context.Background()))

	assert.Len(t, store.upserted, 2)
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), store.upserted[0].Date)
}
