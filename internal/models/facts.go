package models

import "time"

// SkillSet is the current skill-point snapshot for one character.
// Update-in-place keyed by character id; no history retained.
type SkillSet struct {
	CharacterID   int64     `json:"characterId" db:"character_id"`
	TotalSP       int64     `json:"totalSp" db:"total_sp"`
	UnallocatedSP int64     `json:"unallocatedSp" db:"unallocated_sp"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// Blueprint is one owned blueprint item, keyed by the item id.
// Quantity and efficiency fields are overwritten on each refresh.
type Blueprint struct {
	ItemID             int64     `json:"itemId" db:"item_id"`
	CharacterID        int64     `json:"characterId" db:"character_id"`
	TypeID             int64     `json:"typeId" db:"type_id"`
	LocationID         int64     `json:"locationId" db:"location_id"`
	LocationFlag       string    `json:"locationFlag" db:"location_flag"`
	Quantity           int       `json:"quantity" db:"quantity"`
	MaterialEfficiency int       `json:"materialEfficiency" db:"material_efficiency"`
	TimeEfficiency     int       `json:"timeEfficiency" db:"time_efficiency"`
	Runs               int       `json:"runs" db:"runs"`
	UpdatedAt          time.Time `json:"updatedAt" db:"updated_at"`
}

// MiningLedgerEntry is one day of mining activity. Natural key:
// (character, date, solar system, type). The remote API reports a cumulative
// per-day quantity, so re-fetching the same tuple refreshes quantity in place;
// rows for past dates are never removed.
type MiningLedgerEntry struct {
	CharacterID   int64     `json:"characterId" db:"character_id"`
	Date          time.Time `json:"date" db:"date"`
	SolarSystemID int64     `json:"solarSystemId" db:"solar_system_id"`
	TypeID        int64     `json:"typeId" db:"type_id"`
	Quantity      int64     `json:"quantity" db:"quantity"`
}

// Contract is one public contract in a region. Keyed by contract id.
// Parsed marks that line items have been fetched (or that fetching failed
// permanently and should never be retried).
type Contract struct {
	ContractID          int64      `json:"contractId" db:"contract_id"`
	RegionID            int64      `json:"regionId" db:"region_id"`
	Type                string     `json:"type" db:"type"`
	IssuerID            int64      `json:"issuerId" db:"issuer_id"`
	IssuerCorporationID int64      `json:"issuerCorporationId" db:"issuer_corporation_id"`
	DateIssued          time.Time  `json:"dateIssued" db:"date_issued"`
	DateExpired         time.Time  `json:"dateExpired" db:"date_expired"`
	Price               *float64   `json:"price,omitempty" db:"price"`
	Reward              *float64   `json:"reward,omitempty" db:"reward"`
	Collateral          *float64   `json:"collateral,omitempty" db:"collateral"`
	Buyout              *float64   `json:"buyout,omitempty" db:"buyout"`
	Volume              *float64   `json:"volume,omitempty" db:"volume"`
	Title               string     `json:"title,omitempty" db:"title"`
	ForCorporation      bool       `json:"forCorporation" db:"for_corporation"`
	StartLocationID     *int64     `json:"startLocationId,omitempty" db:"start_location_id"`
	EndLocationID       *int64     `json:"endLocationId,omitempty" db:"end_location_id"`
	DaysToComplete      *int       `json:"daysToComplete,omitempty" db:"days_to_complete"`
	Parsed              bool       `json:"parsed" db:"parsed"`
}

// ContractItem is one line item of a contract. Natural key:
// (contract id, record id).
type ContractItem struct {
	ContractID         int64  `json:"contractId" db:"contract_id"`
	RecordID           int64  `json:"recordId" db:"record_id"`
	TypeID             int64  `json:"typeId" db:"type_id"`
	Quantity           int64  `json:"quantity" db:"quantity"`
	IsIncluded         bool   `json:"isIncluded" db:"is_included"`
	IsBlueprintCopy    *bool  `json:"isBlueprintCopy,omitempty" db:"is_blueprint_copy"`
	MaterialEfficiency *int   `json:"materialEfficiency,omitempty" db:"material_efficiency"`
	TimeEfficiency     *int   `json:"timeEfficiency,omitempty" db:"time_efficiency"`
	Runs               *int   `json:"runs,omitempty" db:"runs"`
}

// MarketHistoryPoint is one day of market history for a type in a region.
// Natural key: (type, region, date).
type MarketHistoryPoint struct {
	TypeID     int64     `json:"typeId" db:"type_id"`
	RegionID   int64     `json:"regionId" db:"region_id"`
	Date       time.Time `json:"date" db:"date"`
	Average    float64   `json:"average" db:"average"`
	Highest    float64   `json:"highest" db:"highest"`
	Lowest     float64   `json:"lowest" db:"lowest"`
	OrderCount int64     `json:"orderCount" db:"order_count"`
	Volume     int64     `json:"volume" db:"volume"`
	UpdatedAt  time.Time `json:"updatedAt" db:"updated_at"`
}
