package storage

import (
	"context"
	"fmt"

	"github.com/eve-companion/internal/models"
	"github.com/jackc/pgx/v5"
)

// ContractRepository handles public contract persistence
type ContractRepository struct {
	db *PostgresDB
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *PostgresDB) *ContractRepository {
	return &ContractRepository{db: db}
}

// Upsert stores one contract by contract id. The parsed flag is preserved on
// update so a re-fetch of region data never re-queues item fetching.
func (r *ContractRepository) Upsert(ctx context.Context, c *models.Contract) error {
	query := `
		INSERT INTO contracts (
			contract_id, region_id, type, issuer_id, issuer_corporation_id,
			date_issued, date_expired, price, reward, collateral, buyout, volume,
			title, for_corporation, start_location_id, end_location_id,
			days_to_complete, parsed
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, FALSE)
		ON CONFLICT (contract_id)
		DO UPDATE SET
			region_id = $2, type = $3, issuer_id = $4, issuer_corporation_id = $5,
			date_issued = $6, date_expired = $7, price = $8, reward = $9,
			collateral = $10, buyout = $11, volume = $12, title = $13,
			for_corporation = $14, start_location_id = $15, end_location_id = $16,
			days_to_complete = $17
	`

	_, err := r.db.Pool().Exec(ctx, query,
		c.ContractID,
		c.RegionID,
		c.Type,
		c.IssuerID,
		c.IssuerCorporationID,
		c.DateIssued,
		c.DateExpired,
		c.Price,
		c.Reward,
		c.Collateral,
		c.Buyout,
		c.Volume,
		c.Title,
		c.ForCorporation,
		c.StartLocationID,
		c.EndLocationID,
		c.DaysToComplete,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert contract: %w", err)
	}
	return nil
}

// ListUnparsed returns contracts whose line items have not been fetched yet,
// oldest first. Only item_exchange and auction contracts carry items.
func (r *ContractRepository) ListUnparsed(ctx context.Context, limit int) ([]*models.Contract, error) {
	query := `
		SELECT contract_id, region_id, type, issuer_id, issuer_corporation_id,
			date_issued, date_expired, price, reward, collateral, buyout, volume,
			COALESCE(title, ''), for_corporation, start_location_id, end_location_id,
			days_to_complete, parsed
		FROM contracts
		WHERE parsed = FALSE AND type IN ('item_exchange', 'auction')
		ORDER BY date_issued
		LIMIT $1
	`

	rows, err := r.db.Pool().Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unparsed contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*models.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// MarkParsed flips the parsed flag for a contract. Called after item
// reconciliation succeeds, and also on permanent fetch failure so a dead
// contract is never retried.
func (r *ContractRepository) MarkParsed(ctx context.Context, contractID int64) error {
	query := `UPDATE contracts SET parsed = TRUE WHERE contract_id = $1`

	if _, err := r.db.Pool().Exec(ctx, query, contractID); err != nil {
		return fmt.Errorf("failed to mark contract parsed: %w", err)
	}
	return nil
}

func scanContract(row pgx.Row) (*models.Contract, error) {
	var c models.Contract
	err := row.Scan(
		&c.ContractID,
		&c.RegionID,
		&c.Type,
		&c.IssuerID,
		&c.IssuerCorporationID,
		&c.DateIssued,
		&c.DateExpired,
		&c.Price,
		&c.Reward,
		&c.Collateral,
		&c.Buyout,
		&c.Volume,
		&c.Title,
		&c.ForCorporation,
		&c.StartLocationID,
		&c.EndLocationID,
		&c.DaysToComplete,
		&c.Parsed,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
