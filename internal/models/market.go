package models

import "time"

// MarketOrder is one live market order, keyed by order id and refreshed in
// bulk by the market collector.
type MarketOrder struct {
	OrderID      int64     `json:"orderId" db:"order_id"`
	RegionID     int64     `json:"regionId" db:"region_id"`
	TypeID       int64     `json:"typeId" db:"type_id"`
	SystemID     int64     `json:"systemId" db:"system_id"`
	LocationID   int64     `json:"locationId" db:"location_id"`
	Price        float64   `json:"price" db:"price"`
	IsBuyOrder   bool      `json:"isBuyOrder" db:"is_buy_order"`
	Duration     int       `json:"duration" db:"duration"`
	VolumeRemain int64     `json:"volumeRemain" db:"volume_remain"`
	VolumeTotal  int64     `json:"volumeTotal" db:"volume_total"`
	MinVolume    int       `json:"minVolume" db:"min_volume"`
	Range        string    `json:"range" db:"range"`
	Issued       time.Time `json:"issued" db:"issued"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// LongDurationType flags an item type whose observed order durations exceed
// the long-order threshold, which marks it as likely NPC-seeded. Recomputed
// by counting matching orders per type.
type LongDurationType struct {
	TypeID        int64     `json:"typeId" db:"type_id"`
	OrderCount    int64     `json:"orderCount" db:"order_count"`
	FirstDetected time.Time `json:"firstDetected" db:"first_detected"`
	LastUpdated   time.Time `json:"lastUpdated" db:"last_updated"`
}

// RegionUpdate stamps when a region's market orders were last collected.
// The dumper refreshes the stalest region first.
type RegionUpdate struct {
	RegionID  int64     `json:"regionId" db:"region_id"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// OrderSnapshot is one append-only observation of a market order, archived to
// ClickHouse by the market collector.
type OrderSnapshot struct {
	OrderID      int64     `json:"orderId"`
	RegionID     int64     `json:"regionId"`
	TypeID       int64     `json:"typeId"`
	Price        float64   `json:"price"`
	VolumeRemain int64     `json:"volumeRemain"`
	IsBuyOrder   bool      `json:"isBuyOrder"`
	ObservedAt   time.Time `json:"observedAt"`
}

// InvType is a static item type row used to resolve names for notifications.
type InvType struct {
	TypeID   int64  `json:"typeId" db:"type_id"`
	TypeName string `json:"typeName" db:"type_name"`
	GroupID  int64  `json:"groupId" db:"group_id"`
}

// MapRegion is a static region row.
type MapRegion struct {
	RegionID   int64  `json:"regionId" db:"region_id"`
	RegionName string `json:"regionName" db:"region_name"`
}
