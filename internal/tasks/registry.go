package tasks

import (
	"fmt"
	"time"

	"github.com/eve-companion/internal/config"
	"github.com/eve-companion/internal/esi"
	"github.com/eve-companion/internal/market"
	"github.com/eve-companion/internal/scheduler"
	"github.com/eve-companion/internal/storage"
)

// Default intervals per task. Short intervals suit queue-draining tasks
// (contracts, notifications); long ones suit slow-moving facts (skills).
var defaultIntervals = map[string]time.Duration{
	"skills":         12 * time.Hour,
	"blueprints":     time.Hour,
	"mining_ledger":  time.Hour,
	"contracts":      30 * time.Second,
	"contract_items": 5 * time.Minute,
	"market_history": time.Hour,
	"notifications":  15 * time.Second,
	"contract_watch": 340 * time.Second,
	"market_orders":  10 * time.Minute,
}

// Deps bundles everything the task constructors need.
type Deps struct {
	Config        *config.Config
	Tokens        TokenSource
	ESI           *esi.Client
	Notifier      Notifier
	Characters    *storage.CharacterRepository
	Features      *storage.FeatureRepository
	SkillSets     *storage.SkillSetRepository
	Blueprints    *storage.BlueprintRepository
	MiningLedger  *storage.MiningLedgerRepository
	Contracts     *storage.ContractRepository
	ContractItems *storage.ContractItemRepository
	MarketHistory *storage.MarketHistoryRepository
	Notifications *storage.NotificationRepository
	InvTypes      *storage.InvTypeRepository
	MarketOrders  *storage.MarketOrderRepository
	OrderArchive  market.SnapshotArchive // nil disables snapshot archiving
}

// Definition is one runnable task with its default cadence.
type Definition struct {
	Name     string
	Interval time.Duration
	Run      scheduler.RunFunc
}

// Definitions builds every task from its dependencies, in registration
// order. The set of names here must match config.DefaultTaskNames.
func Definitions(d *Deps) []Definition {
	roster := NewRoster(d.Characters, d.Features)

	skills := NewSkillsTask(roster, d.Tokens, d.ESI, d.SkillSets, d.Characters)
	blueprints := NewBlueprintsTask(roster, d.Tokens, d.ESI, d.Blueprints, d.Characters)
	mining := NewMiningLedgerTask(roster, d.Tokens, d.ESI, d.MiningLedger, d.Characters)
	contracts := NewContractsTask(d.Config.Market.ContractRegionIDs, d.ESI, d.Contracts)
	contractItems := NewContractItemsTask(d.Contracts, d.ESI, d.ContractItems)
	history := NewMarketHistoryTask(d.Config.Market.HistoryRegionID, d.MiningLedger, d.ESI, d.MarketHistory)
	notifications := NewNotificationsTask(d.Notifications, d.SkillSets, d.Characters, d.Notifier)
	watch := NewContractWatchTask(d.Notifications, d.ContractItems, d.InvTypes, d.Characters, d.Notifier)
	orders := market.NewCollector(d.Config.Market.OrderRegionIDs, d.Config.Market.LongOrderDays, d.ESI, d.MarketOrders, d.OrderArchive)

	return []Definition{
		{Name: "skills", Run: skills.Run},
		{Name: "blueprints", Run: blueprints.Run},
		{Name: "mining_ledger", Run: mining.Run},
		{Name: "contracts", Run: contracts.Run},
		{Name: "contract_items", Run: contractItems.Run},
		{Name: "market_history", Run: history.Run},
		{Name: "notifications", Run: notifications.Run},
		{Name: "contract_watch", Run: watch.Run},
		{Name: "market_orders", Run: orders.Run},
	}
}

// RegisterAll registers the enabled subset of definitions with the
// scheduler, applying per-task interval overrides from configuration. An
// enabled name with no matching definition is a configuration error.
func RegisterAll(s *scheduler.Scheduler, cfg *config.TasksConfig, defs []Definition) error {
	byName := make(map[string]Definition, len(defs))
	for _, def := range defs {
		if def.Interval == 0 {
			def.Interval = defaultIntervals[def.Name]
		}
		byName[def.Name] = def
	}

	for _, name := range cfg.Enabled {
		def, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown task name: %s", name)
		}
		interval := def.Interval
		if override, ok := cfg.Intervals[name]; ok {
			interval = override
		}
		if err := s.Register(def.Name, interval, cfg.AllowOverlap[name], def.Run); err != nil {
			return err
		}
	}
	return nil
}
