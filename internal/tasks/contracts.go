package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
)

type regionContractsFetcher interface {
	RegionContracts(ctx context.Context, regionID int64) ([]esi.PublicContract, error)
}

type contractStore interface {
	Upsert(ctx context.Context, c *models.Contract) error
}

// ContractsTask mirrors the public contract feed of the configured regions.
// New contracts enter storage unparsed; the contract items task picks them
// up from there. The feed is unauthenticated, so the roster is not involved.
type ContractsTask struct {
	regionIDs []int64
	fetch     regionContractsFetcher
	store     contractStore
}

// NewContractsTask wires the public contract sync job.
func NewContractsTask(regionIDs []int64, fetch regionContractsFetcher, store contractStore) *ContractsTask {
	return &ContractsTask{regionIDs: regionIDs, fetch: fetch, store: store}
}

// Run syncs all configured regions. A failing region is skipped; the others
// still sync.
func (t *ContractsTask) Run(ctx context.Context) error {
	failed := 0
	for _, regionID := range t.regionIDs {
		if err := t.syncRegion(ctx, regionID); err != nil {
			logging.FromContext(ctx).WithField("region_id", regionID).
				WithError(err).Warn("Region contract sync failed")
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d regions failed", failed, len(t.regionIDs))
	}
	return nil
}

func (t *ContractsTask) syncRegion(ctx context.Context, regionID int64) error {
	contracts, err := t.fetch.RegionContracts(ctx, regionID)
	if err != nil {
		return err
	}

	for i := range contracts {
		c, err := contractFromFeed(regionID, &contracts[i])
		if err != nil {
			return err
		}
		if err := t.store.Upsert(ctx, c); err != nil {
			return err
		}
	}

	logging.FromContext(ctx).WithFields(map[string]interface{}{
		"region_id": regionID,
		"contracts": len(contracts),
	}).Info("Region contracts synced")
	return nil
}

func contractFromFeed(regionID int64, pc *esi.PublicContract) (*models.Contract, error) {
	issued, err := time.Parse(time.RFC3339, pc.DateIssued)
	if err != nil {
		return nil, fmt.Errorf("contract %d: parse date_issued %q: %w", pc.ContractID, pc.DateIssued, err)
	}
	expired, err := time.Parse(time.RFC3339, pc.DateExpired)
	if err != nil {
		return nil, fmt.Errorf("contract %d: parse date_expired %q: %w", pc.ContractID, pc.DateExpired, err)
	}

	c := &models.Contract{
		ContractID:          pc.ContractID,
		RegionID:            regionID,
		Type:                pc.Type,
		IssuerID:            pc.IssuerID,
		IssuerCorporationID: pc.IssuerCorporationID,
		DateIssued:          issued,
		DateExpired:         expired,
		Title:               pc.Title,
		ForCorporation:      pc.ForCorporation,
	}
	if pc.Price != 0 {
		price := pc.Price
		c.Price = &price
	}
	if pc.Reward != 0 {
		reward := pc.Reward
		c.Reward = &reward
	}
	if pc.Volume != 0 {
		volume := pc.Volume
		c.Volume = &volume
	}
	if pc.StartLocationID != 0 {
		loc := pc.StartLocationID
		c.StartLocationID = &loc
	}
	return c, nil
}
