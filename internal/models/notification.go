package models

import "time"

// Notification kinds. A kind names the watched condition, not the transport.
const (
	NotificationKindSPFarm       = "sp-farm-notification"
	NotificationKindContractWatch = "contract-watch"
)

// NotificationSettings holds a character's notification opt-ins. The master
// character's user row carries the Discord destination.
type NotificationSettings struct {
	CharacterID       int64           `json:"characterId" db:"character_id"`
	MasterCharacterID int64           `json:"masterCharacterId" db:"master_character_id"`
	Enabled           map[string]bool `json:"enabled" db:"enabled"`
}

// Wants reports whether the character opted into the given notification kind.
func (n *NotificationSettings) Wants(kind string) bool {
	if n == nil || n.Enabled == nil {
		return false
	}
	return n.Enabled[kind]
}

// SentNotification suppresses duplicate alerts for a (character, condition)
// pair. Cleared flips back once the triggering metric regresses below the
// threshold, allowing re-notification on the next crossing.
type SentNotification struct {
	ID          int64     `json:"id" db:"id"`
	CharacterID int64     `json:"characterId" db:"character_id"`
	Kind        string    `json:"kind" db:"kind"`
	TotalSP     int64     `json:"totalSp" db:"total_sp"`
	Cleared     bool      `json:"cleared" db:"cleared"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// WatchedType is one item type on the contract watchlist.
type WatchedType struct {
	ID     int64 `json:"id" db:"id"`
	TypeID int64 `json:"typeId" db:"type_id"`
}

// ContractNotification marks that a character was already notified about a
// contract, keyed by (character, contract).
type ContractNotification struct {
	CharacterID int64 `json:"characterId" db:"character_id"`
	ContractID  int64 `json:"contractId" db:"contract_id"`
}
