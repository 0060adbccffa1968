package esi

import (
	"context"
	"fmt"
)

// SkillEntry is one trained skill from the character skills endpoint.
type SkillEntry struct {
	SkillID            int32 `json:"skill_id"`
	ActiveSkillLevel   int32 `json:"active_skill_level"`
	TrainedSkillLevel  int32 `json:"trained_skill_level"`
	SkillPointsInSkill int64 `json:"skillpoints_in_skill"`
}

// SkillsResponse is the character skills payload.
type SkillsResponse struct {
	Skills        []SkillEntry `json:"skills"`
	TotalSP       int64        `json:"total_sp"`
	UnallocatedSP int64        `json:"unallocated_sp"`
}

// BlueprintEntry is one owned blueprint.
type BlueprintEntry struct {
	ItemID             int64  `json:"item_id"`
	TypeID             int32  `json:"type_id"`
	LocationID         int64  `json:"location_id"`
	LocationFlag       string `json:"location_flag"`
	Quantity           int32  `json:"quantity"`
	TimeEfficiency     int32  `json:"time_efficiency"`
	MaterialEfficiency int32  `json:"material_efficiency"`
	Runs               int32  `json:"runs"`
}

// MiningEntry is one per-day, per-system, per-ore extraction record.
type MiningEntry struct {
	Date          string `json:"date"`
	SolarSystemID int64  `json:"solar_system_id"`
	TypeID        int32  `json:"type_id"`
	Quantity      int64  `json:"quantity"`
}

// PublicContract is one open contract from the public region feed.
type PublicContract struct {
	ContractID          int64   `json:"contract_id"`
	Type                string  `json:"type"`
	Title               string  `json:"title"`
	IssuerID            int64   `json:"issuer_id"`
	IssuerCorporationID int64   `json:"issuer_corporation_id"`
	ForCorporation      bool    `json:"for_corporation"`
	StartLocationID     int64   `json:"start_location_id"`
	Price               float64 `json:"price"`
	Reward              float64 `json:"reward"`
	Volume              float64 `json:"volume"`
	DateIssued          string  `json:"date_issued"`
	DateExpired         string  `json:"date_expired"`
}

// ContractItemEntry is one line item of a public contract.
type ContractItemEntry struct {
	RecordID           int64  `json:"record_id"`
	TypeID             int32  `json:"type_id"`
	Quantity           int64  `json:"quantity"`
	IsIncluded         bool   `json:"is_included"`
	IsBlueprintCopy    bool   `json:"is_blueprint_copy"`
	MaterialEfficiency *int32 `json:"material_efficiency"`
	TimeEfficiency     *int32 `json:"time_efficiency"`
	Runs               *int32 `json:"runs"`
}

// HistoryEntry is one day of regional market history for a type.
type HistoryEntry struct {
	Date       string  `json:"date"`
	Average    float64 `json:"average"`
	Highest    float64 `json:"highest"`
	Lowest     float64 `json:"lowest"`
	OrderCount int64   `json:"order_count"`
	Volume     int64   `json:"volume"`
}

// OrderEntry is one live market order from the regional order book.
type OrderEntry struct {
	OrderID      int64   `json:"order_id"`
	TypeID       int32   `json:"type_id"`
	LocationID   int64   `json:"location_id"`
	SystemID     int64   `json:"system_id"`
	IsBuyOrder   bool    `json:"is_buy_order"`
	Price        float64 `json:"price"`
	VolumeRemain int64   `json:"volume_remain"`
	VolumeTotal  int64   `json:"volume_total"`
	MinVolume    int64   `json:"min_volume"`
	Duration     int32   `json:"duration"`
	Issued       string  `json:"issued"`
	Range        string  `json:"range"`
}

// CharacterSkills fetches the authenticated character skill sheet.
func (c *Client) CharacterSkills(ctx context.Context, characterID int64, token string) (*SkillsResponse, error) {
	var out SkillsResponse
	path := fmt.Sprintf("/characters/%d/skills/", characterID)
	if err := c.getJSON(ctx, characterID, "get_characters_character_id_skills", path, token, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CharacterBlueprints fetches every page of the character blueprint list.
func (c *Client) CharacterBlueprints(ctx context.Context, characterID int64, token string) ([]BlueprintEntry, error) {
	var out []BlueprintEntry
	path := fmt.Sprintf("/characters/%d/blueprints/", characterID)
	err := getPaginated(ctx, c, characterID, "get_characters_character_id_blueprints", path, token,
		func(items []BlueprintEntry) { out = append(out, items...) })
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CharacterMining fetches the character mining ledger (last 30 days).
func (c *Client) CharacterMining(ctx context.Context, characterID int64, token string) ([]MiningEntry, error) {
	var out []MiningEntry
	path := fmt.Sprintf("/characters/%d/mining/", characterID)
	err := getPaginated(ctx, c, characterID, "get_characters_character_id_mining", path, token,
		func(items []MiningEntry) { out = append(out, items...) })
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RegionContracts fetches every open public contract in a region. The feed
// is unauthenticated.
func (c *Client) RegionContracts(ctx context.Context, regionID int64) ([]PublicContract, error) {
	var out []PublicContract
	path := fmt.Sprintf("/contracts/public/%d/", regionID)
	err := getPaginated(ctx, c, 0, "get_contracts_public_region_id", path, "",
		func(items []PublicContract) { out = append(out, items...) })
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ContractItems fetches the line items of one public contract.
func (c *Client) ContractItems(ctx context.Context, contractID int64) ([]ContractItemEntry, error) {
	var out []ContractItemEntry
	path := fmt.Sprintf("/contracts/public/items/%d/", contractID)
	err := getPaginated(ctx, c, 0, "get_contracts_public_items_contract_id", path, "",
		func(items []ContractItemEntry) { out = append(out, items...) })
	if err != nil {
		return nil, err
	}
	return out, nil
}

// RegionMarketHistory fetches daily price history for one type in a region.
func (c *Client) RegionMarketHistory(ctx context.Context, regionID int64, typeID int32) ([]HistoryEntry, error) {
	var out []HistoryEntry
	path := fmt.Sprintf("/markets/%d/history/?type_id=%d", regionID, typeID)
	if err := c.getJSON(ctx, 0, "get_markets_region_id_history", path, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// RegionOrders streams every page of the live regional order book to
// collect, one decoded page at a time, so a full region never has to sit in
// memory at once.
func (c *Client) RegionOrders(ctx context.Context, regionID int64, collect func([]OrderEntry)) error {
	path := fmt.Sprintf("/markets/%d/orders/?order_type=all", regionID)
	return getPaginated(ctx, c, 0, "get_markets_region_id_orders", path, "", collect)
}
