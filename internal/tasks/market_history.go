package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
)

// historyFreshFor skips re-fetching a type whose history was refreshed
// within this window. ESI history updates once a day.
const historyFreshFor = 24 * time.Hour

type historyFetcher interface {
	RegionMarketHistory(ctx context.Context, regionID int64, typeID int32) ([]esi.HistoryEntry, error)
}

type historyStore interface {
	Upsert(ctx context.Context, p *models.MarketHistoryPoint) error
	LastUpdated(ctx context.Context, typeID, regionID int64) (time.Time, error)
}

type historyTypeSource interface {
	DistinctTypeIDs(ctx context.Context) ([]int64, error)
}

// MarketHistoryTask keeps daily price history current for every ore type
// that appears in anyone's mining ledger. Types refreshed within the last
// day are skipped.
type MarketHistoryTask struct {
	regionID int64
	types    historyTypeSource
	fetch    historyFetcher
	store    historyStore
}

// NewMarketHistoryTask wires the market history sync job.
func NewMarketHistoryTask(regionID int64, types historyTypeSource, fetch historyFetcher, store historyStore) *MarketHistoryTask {
	return &MarketHistoryTask{regionID: regionID, types: types, fetch: fetch, store: store}
}

// Run refreshes history for every stale ledger type.
func (t *MarketHistoryTask) Run(ctx context.Context) error {
	typeIDs, err := t.types.DistinctTypeIDs(ctx)
	if err != nil {
		return err
	}

	refreshed, skipped, failed := 0, 0, 0
	for _, typeID := range typeIDs {
		last, err := t.store.LastUpdated(ctx, typeID, t.regionID)
		if err != nil {
			return err
		}
		if time.Since(last) < historyFreshFor {
			skipped++
			continue
		}

		if err := t.syncType(ctx, typeID); err != nil {
			logging.FromContext(ctx).WithField("type_id", typeID).
				WithError(err).Warn("Market history sync failed for type")
			failed++
			continue
		}
		refreshed++
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"refreshed": refreshed,
		"skipped":   skipped,
		"failed":    failed,
	}).Info("Market history sync finished")

	if failed > 0 {
		return fmt.Errorf("%d of %d types failed", failed, len(typeIDs))
	}
	return nil
}

func (t *MarketHistoryTask) syncType(ctx context.Context, typeID int64) error {
	entries, err := t.fetch.RegionMarketHistory(ctx, t.regionID, int32(typeID))
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	for _, e := range entries {
		date, err := time.Parse("2006-01-02", e.Date)
		if err != nil {
			return fmt.Errorf("parse history date %q: %w", e.Date, err)
		}
		point := &models.MarketHistoryPoint{
			TypeID:     typeID,
			RegionID:   t.regionID,
			Date:       date,
			Average:    e.Average,
			Highest:    e.Highest,
			Lowest:     e.Lowest,
			OrderCount: e.OrderCount,
			Volume:     e.Volume,
			UpdatedAt:  now,
		}
		if err := t.store.Upsert(ctx, point); err != nil {
			return err
		}
	}
	return nil
}
