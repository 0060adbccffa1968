package tasks

import (
	"context"

	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/logging"
	"github.com/eve-companion/internal/models"
	"github.com/eve-companion/internal/syncerr"
)

// parseBatchSize caps how many unparsed contracts one run drains. The short
// interval makes up the difference on busy regions.
const parseBatchSize = 100

type contractItemsFetcher interface {
	ContractItems(ctx context.Context, contractID int64) ([]esi.ContractItemEntry, error)
}

type unparsedContractLister interface {
	ListUnparsed(ctx context.Context, limit int) ([]*models.Contract, error)
	MarkParsed(ctx context.Context, contractID int64) error
}

type contractItemStore interface {
	Upsert(ctx context.Context, item *models.ContractItem) error
}

// ContractItemsTask resolves line items for contracts the feed sync left
// unparsed. A contract whose item fetch fails permanently (expired or
// deleted upstream) is marked parsed anyway so it is never retried.
type ContractItemsTask struct {
	contracts unparsedContractLister
	fetch     contractItemsFetcher
	store     contractItemStore
}

// NewContractItemsTask wires the contract item resolution job.
func NewContractItemsTask(contracts unparsedContractLister, fetch contractItemsFetcher, store contractItemStore) *ContractItemsTask {
	return &ContractItemsTask{contracts: contracts, fetch: fetch, store: store}
}

// Run drains one batch of unparsed contracts, oldest first.
func (t *ContractItemsTask) Run(ctx context.Context) error {
	pending, err := t.contracts.ListUnparsed(ctx, parseBatchSize)
	if err != nil {
		return err
	}

	parsed, abandoned, deferred := 0, 0, 0
	for _, contract := range pending {
		switch err := t.parseOne(ctx, contract); {
		case err == nil:
			parsed++
		case syncerr.IsPermanent(err):
			// Gone upstream. Mark parsed so the queue never sees it again.
			logging.FromContext(ctx).WithField("contract_id", contract.ContractID).
				WithError(err).Info("Contract items unavailable, abandoning")
			if markErr := t.contracts.MarkParsed(ctx, contract.ContractID); markErr != nil {
				return markErr
			}
			abandoned++
		default:
			// Transient; stays unparsed for the next run.
			logging.FromContext(ctx).WithField("contract_id", contract.ContractID).
				WithError(err).Warn("Contract item fetch failed, deferring")
			deferred++
		}
	}

	if len(pending) > 0 {
		logging.FromContext(ctx).WithFields(map[string]interface{}{
			"parsed":    parsed,
			"abandoned": abandoned,
			"deferred":  deferred,
		}).Info("Contract item batch finished")
	}
	return nil
}

func (t *ContractItemsTask) parseOne(ctx context.Context, contract *models.Contract) error {
	entries, err := t.fetch.ContractItems(ctx, contract.ContractID)
	if err != nil {
		return err
	}

	for _, e := range entries {
		item := &models.ContractItem{
			ContractID: contract.ContractID,
			RecordID:   e.RecordID,
			TypeID:     int64(e.TypeID),
			Quantity:   e.Quantity,
			IsIncluded: e.IsIncluded,
		}
		if e.IsBlueprintCopy {
			bpc := e.IsBlueprintCopy
			item.IsBlueprintCopy = &bpc
		}
		if e.MaterialEfficiency != nil {
			me := int(*e.MaterialEfficiency)
			item.MaterialEfficiency = &me
		}
		if e.TimeEfficiency != nil {
			te := int(*e.TimeEfficiency)
			item.TimeEfficiency = &te
		}
		if e.Runs != nil {
			runs := int(*e.Runs)
			item.Runs = &runs
		}
		if err := t.store.Upsert(ctx, item); err != nil {
			return err
		}
	}

	return t.contracts.MarkParsed(ctx, contract.ContractID)
}
