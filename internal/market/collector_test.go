package market

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderStore struct {
	stalest     int64
	upserted    [][]*models.MarketOrder
	stamped     []int64
	recomputed  int
	deletedFrom []int64
	upsertErr   error
}

func (f *fakeOrderStore) BulkUpsert(_ context.Context, _ int64, orders []*models.MarketOrder) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.upserted = append(f.upserted, orders)
	return nil
}

func (f *fakeOrderStore) StampRegion(_ context.Context, regionID int64) error {
	f.stamped = append(f.stamped, regionID)
	return nil
}

func (f *fakeOrderStore) StalestRegion(_ context.Context, _ []int64) (int64, error) {
	return f.stalest, nil
}

func (f *fakeOrderStore) RecomputeLongDurationTypes(_ context.Context, _ int) (int64, error) {
	f.recomputed++
	return 3, nil
}

func (f *fakeOrderStore) DeleteStaleOrders(_ context.Context, regionID int64, _ time.Time) (int64, error) {
	f.deletedFrom = append(f.deletedFrom, regionID)
	return 0, nil
}

type fakeOrderFetcher struct {
	pages [][]esi.OrderEntry
	err   error
}

func (f *fakeOrderFetcher) RegionOrders(_ context.Context, _ int64, collect func([]esi.OrderEntry)) error {
	for _, page := range f.pages {
		collect(page)
	}
	return f.err
}

type fakeArchive struct {
	batches [][]*models.OrderSnapshot
	err     error
}

func (f *fakeArchive) BatchInsert(_ context.Context, snapshots []*models.OrderSnapshot) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, snapshots)
	return nil
}

func orderEntry(id int64, duration int32) esi.OrderEntry {
	return esi.OrderEntry{
		OrderID:      id,
		TypeID:       34,
		SystemID:     30000142,
		LocationID:   60003760,
		Price:        5.5,
		VolumeRemain: 100,
		VolumeTotal:  100,
		Duration:     duration,
		Issued:       "2026-08-28T10:00:00Z",
		Range:        "region",
	}
}

func TestCollectorPersistsPerPageAndStamps(t *testing.T) {
	store := &fakeOrderStore{stalest: 10000002}
	fetcher := &fakeOrderFetcher{pages: [][]esi.OrderEntry{
		{orderEntry(1, 90), orderEntry(2, 30)},
		{orderEntry(3, 365)},
	}}

	collector := NewCollector([]int64{10000002}, 90, fetcher, store, nil)
	require.NoError(t, collector.Run(context.Background()))

	require.Len(t, store.upserted, 2, "each page lands in its own upsert")
	assert.Len(t, store.upserted[0], 2)
	assert.Len(t, store.upserted[1], 1)
	assert.Equal(t, []int64{10000002}, store.stamped)
	assert.Equal(t, []int64{10000002}, store.deletedFrom)
	assert.Equal(t, 1, store.recomputed)

	order := store.upserted[0][0]
	assert.Equal(t, int64(10000002), order.RegionID)
	assert.Equal(t, 90, order.Duration)
	assert.Equal(t, time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC), order.Issued)
}

func TestCollectorFetchFailureSkipsStampAndRecompute(t *testing.T) {
	store := &fakeOrderStore{stalest: 10000002}
	fetcher := &fakeOrderFetcher{
		pages: [][]esi.OrderEntry{{orderEntry(1, 90)}},
		err:   errors.New("status 502"),
	}

	collector := NewCollector([]int64{10000002}, 90, fetcher, store, nil)
	require.Error(t, collector.Run(context.Background()))

	assert.Empty(t, store.stamped, "failed collection must not advance the freshness stamp")
	assert.Empty(t, store.deletedFrom)
	assert.Equal(t, 0, store.recomputed)
}

func TestCollectorArchivesSnapshots(t *testing.T) {
	store := &fakeOrderStore{stalest: 10000002}
	fetcher := &fakeOrderFetcher{pages: [][]esi.OrderEntry{
		{orderEntry(1, 90), orderEntry(2, 30)},
	}}
	archive := &fakeArchive{}

	collector := NewCollector([]int64{10000002}, 90, fetcher, store, archive)
	require.NoError(t, collector.Run(context.Background()))

	require.Len(t, archive.batches, 1)
	assert.Len(t, archive.batches[0], 2)
	assert.Equal(t, int64(1), archive.batches[0][0].OrderID)
}

func TestCollectorArchiveFailureDoesNotFailRun(t *testing.T) {
	store := &fakeOrderStore{stalest: 10000002}
	fetcher := &fakeOrderFetcher{pages: [][]esi.OrderEntry{{orderEntry(1, 90)}}}
	archive := &fakeArchive{err: errors.New("clickhouse down")}

	collector := NewCollector([]int64{10000002}, 90, fetcher, store, archive)
	require.NoError(t, collector.Run(context.Background()))
	assert.Equal(t, []int64{10000002}, store.stamped)
}

func TestCollectorRunRequiresRegions(t *testing.T) {
	collector := NewCollector(nil, 90, &fakeOrderFetcher{}, &fakeOrderStore{}, nil)
	assert.Error(t, collector.Run(context.Background()))
}
