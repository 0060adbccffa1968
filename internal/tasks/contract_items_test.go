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

type fakeContractQueue struct {
	pending []*models.Contract
	parsed  []int64
}

func (f *fakeContractQueue) ListUnparsed(_ context.Context, limit int) ([]*models.Contract, error) {
	if len(f.pending) > limit {
		return f.pending[:limit], nil
	}
	return f.pending, nil
}

func (f *fakeContractQueue) MarkParsed(_ context.Context, contractID int64) error {
	f.parsed = append(f.parsed, contractID)
	return nil
}

type fakeItemsFetcher struct {
	items  map[int64][]esi.ContractItemEntry
	errFor map[int64]error
}

func (f *fakeItemsFetcher) ContractItems(_ context.Context, contractID int64) ([]esi.ContractItemEntry, error) {
	if err := f.errFor[contractID]; err != nil {
		return nil, err
	}
	return f.items[contractID], nil
}

type fakeContractItemStore struct {
	upserted []*models.ContractItem
}

func (f *fakeContractItemStore) Upsert(_ context.Context, item *models.ContractItem) error {
	f.upserted = append(f.upserted, item)
	return nil
}

func TestContractItemsTaskParsesAndMarks(t *testing.T) {
	queue := &fakeContractQueue{pending: []*models.Contract{{ContractID: 10}}}
	fetcher := &fakeItemsFetcher{items: map[int64][]esi.ContractItemEntry{
		10: {
			{RecordID: 1, TypeID: 34, Quantity: 1000, IsIncluded: true},
			{RecordID: 2, TypeID: 35, Quantity: 500, IsIncluded: true},
		},
	}}
	store := &fakeContractItemStore{}

	task := NewContractItemsTask(queue, fetcher, store)
	require.NoError(t, task.Run(context.Background()))

	require.Len(t, store.upserted, 2)
	assert.Equal(t, int64(10), store.upserted[0].ContractID)
	assert.Equal(t, []int64{10}, queue.parsed)
}

func TestContractItemsTaskPermanentFailureAbandonsContract(t *testing.T) {
	queue := &fakeContractQueue{pending: []*models.Contract{{ContractID: 10}, {ContractID: 11}}}
	fetcher := &fakeItemsFetcher{
		items: map[int64][]esi.ContractItemEntry{
			11: {{RecordID: 1, TypeID: 34, Quantity: 1, IsIncluded: true}},
		},
		errFor: map[int64]error{
			10: syncerr.NewPermanentError(0, "get_contracts_public_items_contract_id", errors.New("status 404")),
		},
	}
	store := &fakeContractItemStore{}

	task := NewContractItemsTask(queue, fetcher, store)
	require.NoError(t, task.Run(context.Background()))

	// The dead contract is marked parsed with no items, so it never
	// re-enters the queue. The healthy one parsed normally.
	assert.ElementsMatch(t, []int64{10, 11}, queue.parsed)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, int64(11), store.upserted[0].ContractID)
}

func TestContractItemsTaskTransientFailureDefersContract(t *testing.T) {
	queue := &fakeContractQueue{pending: []*models.Contract{{ContractID: 10}}}
	fetcher := &fakeItemsFetcher{errFor: map[int64]error{
		10: syncerr.NewTransientError(0, "get_contracts_public_items_contract_id", errors.New("status 502")),
	}}
	store := &fakeContractItemStore{}

	task := NewContractItemsTask(queue, fetcher, store)
	require.NoError(t, task.Run(context.Background()))

	assert.Empty(t, queue.parsed, "transient failures must leave the contract queued")
	assert.Empty(t, store.upserted)
}
