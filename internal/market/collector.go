// Package market implements the bulk order collector: it refreshes the live
// order book of whole regions, stalest region first, and recomputes which
// item types carry long-duration (NPC-seeded) orders.
package market

import (
	"context"
	"fmt"
	"time"

	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
)

// orderStore is the slice of the market order repository the collector uses.
type orderStore interface {
	BulkUpsert(ctx context.Context, regionID int64, orders []*models.MarketOrder) error
	StampRegion(ctx context.Context, regionID int64) error
	StalestRegion(ctx context.Context, candidates []int64) (int64, error)
	RecomputeLongDurationTypes(ctx context.Context, longOrderDays int) (int64, error)
	DeleteStaleOrders(ctx context.Context, regionID int64, cutoff time.Time) (int64, error)
}

// SnapshotArchive appends order observations to the analytical store.
type SnapshotArchive interface {
	BatchInsert(ctx context.Context, snapshots []*models.OrderSnapshot) error
}

// orderFetcher streams the paginated regional order book.
type orderFetcher interface {
	RegionOrders(ctx context.Context, regionID int64, collect func([]esi.OrderEntry)) error
}

// Collector refreshes one region per run.
type Collector struct {
	regionIDs     []int64
	longOrderDays int
	fetch         orderFetcher
	store         orderStore
	archive       SnapshotArchive // nil disables archiving
}

// NewCollector creates a market order collector. archive may be nil.
func NewCollector(regionIDs []int64, longOrderDays int, fetch orderFetcher, store orderStore, archive SnapshotArchive) *Collector {
	return &Collector{
		regionIDs:     regionIDs,
		longOrderDays: longOrderDays,
		fetch:         fetch,
		store:         store,
		archive:       archive,
	}
}

// Run collects the stalest configured region. Orders land page by page so a
// full region never has to sit in memory; the region stamp and the
// long-duration recompute only happen after every page persisted.
func (c *Collector) Run(ctx context.Context) error {
	if len(c.regionIDs) == 0 {
		return fmt.Errorf("no regions configured")
	}

	regionID, err := c.store.StalestRegion(ctx, c.regionIDs)
	if err != nil {
		return err
	}
	return c.CollectRegion(ctx, regionID)
}

// CollectRegion refreshes one region's full order book.
func (c *Collector) CollectRegion(ctx context.Context, regionID int64) error {
	logger := logging.FromContext(ctx).WithField("region_id", regionID)
	started := time.Now().UTC()

	var total int
	var snapshots []*models.OrderSnapshot
	var pageErr error

	err := c.fetch.RegionOrders(ctx, regionID, func(entries []esi.OrderEntry) {
		if pageErr != nil {
			return
		}
		orders, err := ordersFromFeed(regionID, entries, started)
		if err != nil {
			pageErr = err
			return
		}
		if err := c.store.BulkUpsert(ctx, regionID, orders); err != nil {
			pageErr = err
			return
		}
		total += len(orders)

		if c.archive != nil {
			for _, o := range orders {
				snapshots = append(snapshots, &models.OrderSnapshot{
					OrderID:      o.OrderID,
					RegionID:     o.RegionID,
					TypeID:       o.TypeID,
					Price:        o.Price,
					VolumeRemain: o.VolumeRemain,
					IsBuyOrder:   o.IsBuyOrder,
					ObservedAt:   started,
				})
			}
		}
	})
	if err != nil {
		return err
	}
	if pageErr != nil {
		return pageErr
	}

	// Orders not touched this run are gone upstream.
	removed, err := c.store.DeleteStaleOrders(ctx, regionID, started)
	if err != nil {
		return err
	}

	if err := c.store.StampRegion(ctx, regionID); err != nil {
		return err
	}

	flagged, err := c.store.RecomputeLongDurationTypes(ctx, c.longOrderDays)
	if err != nil {
		return err
	}

	if c.archive != nil && len(snapshots) > 0 {
		// Archive failures never fail the collection; the operational store
		// is already consistent.
		if err := c.archive.BatchInsert(ctx, snapshots); err != nil {
			logger.WithError(err).Warn("Order snapshot archive failed")
		}
	}

	logger.WithFields(map[string]interface{}{
		"orders":        total,
		"removed":       removed,
		"flagged_types": flagged,
		"duration":      time.Since(started).String(),
	}).Info("Region order collection finished")
	return nil
}

func ordersFromFeed(regionID int64, entries []esi.OrderEntry, now time.Time) ([]*models.MarketOrder, error) {
	orders := make([]*models.MarketOrder, 0, len(entries))
	for _, e := range entries {
		issued, err := time.Parse(time.RFC3339, e.Issued)
		if err != nil {
			return nil, fmt.Errorf("order %d: parse issued %q: %w", e.OrderID, e.Issued, err)
		}
		orders = append(orders, &models.MarketOrder{
			OrderID:      e.OrderID,
			RegionID:     regionID,
			TypeID:       int64(e.TypeID),
			SystemID:     e.SystemID,
			LocationID:   e.LocationID,
			Price:        e.Price,
			IsBuyOrder:   e.IsBuyOrder,
			Duration:     int(e.Duration),
			VolumeRemain: e.VolumeRemain,
			VolumeTotal:  e.VolumeTotal,
			MinVolume:    int(e.MinVolume),
			Range:        e.Range,
			Issued:       issued,
			UpdatedAt:    now,
		})
	}
	return orders, nil
}
