package server

import (
	"errors"
	"fmt"
)

// ArchetypeID identifies an invasion archetype in the catalog.
type ArchetypeID string

// MonsterTier classifies a killed monster for contribution weighting.
type MonsterTier string

const (
	TierTrivial MonsterTier = "trivial"
	TierElite   MonsterTier = "elite"
	TierBoss    MonsterTier = "boss"
)

// InvasionDefinition is one immutable archetype entry.
type InvasionDefinition struct {
	ID          ArchetypeID `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Faction     string      `json:"faction"`
	Modifier    string      `json:"modifier"`
}

// ShopItem is one immutable token-shop entry.
type ShopItem struct {
	Name        string `json:"name"`
	Cost        int    `json:"cost"`
	Description string `json:"description"`
}

// ErrUnknownArchetype reports a lookup for an archetype id that is not in the
// catalog. Given a validated catalog this indicates a programming error, so
// callers treat it as fatal rather than a runtime condition.
var ErrUnknownArchetype = errors.New("unknown invasion archetype")

// Catalog holds the frozen invasion archetype table, shop table, and monster
// tier weights. Built once at startup and never mutated afterwards.
type Catalog struct {
	invasions   []InvasionDefinition
	byID        map[ArchetypeID]InvasionDefinition
	shop        []ShopItem
	tierWeights map[MonsterTier]int
}

// NewCatalog validates and freezes the provided definitions.
func NewCatalog(file CatalogFile) (*Catalog, error) {
	if len(file.Invasions) == 0 {
		return nil, fmt.Errorf("catalog has no invasion archetypes")
	}
	if len(file.Shop) == 0 {
		return nil, fmt.Errorf("catalog has no shop items")
	}

	catalog := &Catalog{
		invasions:   make([]InvasionDefinition, 0, len(file.Invasions)),
		byID:        make(map[ArchetypeID]InvasionDefinition, len(file.Invasions)),
		shop:        make([]ShopItem, 0, len(file.Shop)),
		tierWeights: make(map[MonsterTier]int),
	}

	for i, entry := range file.Invasions {
		def := InvasionDefinition{
			ID:          ArchetypeID(entry.ID),
			Name:        entry.Name,
			Description: entry.Description,
			Faction:     entry.Faction,
			Modifier:    entry.Modifier,
		}
		if def.ID == "" {
			return nil, fmt.Errorf("invasion entry %d has no id", i)
		}
		if def.Name == "" {
			return nil, fmt.Errorf("invasion %q has no name", def.ID)
		}
		if _, exists := catalog.byID[def.ID]; exists {
			return nil, fmt.Errorf("duplicate invasion archetype %q", def.ID)
		}
		catalog.byID[def.ID] = def
		catalog.invasions = append(catalog.invasions, def)
	}

	for i, entry := range file.Shop {
		item := ShopItem{Name: entry.Name, Cost: entry.Cost, Description: entry.Description}
		if item.Name == "" {
			return nil, fmt.Errorf("shop entry %d has no name", i)
		}
		if item.Cost <= 0 {
			return nil, fmt.Errorf("shop item %q has non-positive cost %d", item.Name, item.Cost)
		}
		catalog.shop = append(catalog.shop, item)
	}

	tiers := file.Tiers
	if len(tiers) == 0 {
		tiers = defaultTierWeights()
	}
	for _, entry := range tiers {
		if entry.Tier == "" {
			return nil, fmt.Errorf("tier entry with empty name")
		}
		if entry.Weight <= 0 {
			return nil, fmt.Errorf("tier %q has non-positive weight %d", entry.Tier, entry.Weight)
		}
		catalog.tierWeights[MonsterTier(entry.Tier)] = entry.Weight
	}

	return catalog, nil
}

// Archetypes returns a copy of the archetype table.
func (c *Catalog) Archetypes() []InvasionDefinition {
	return append([]InvasionDefinition(nil), c.invasions...)
}

// Archetype looks up one archetype by id.
func (c *Catalog) Archetype(id ArchetypeID) (InvasionDefinition, error) {
	def, ok := c.byID[id]
	if !ok {
		return InvasionDefinition{}, fmt.Errorf("%w: %q", ErrUnknownArchetype, id)
	}
	return def, nil
}

// ShopItems returns a copy of the shop table in display order.
func (c *Catalog) ShopItems() []ShopItem {
	return append([]ShopItem(nil), c.shop...)
}

// ShopItemAt returns the shop item at the given index, reporting whether the
// index is within the catalog's bounds.
func (c *Catalog) ShopItemAt(index int) (ShopItem, bool) {
	if index < 0 || index >= len(c.shop) {
		return ShopItem{}, false
	}
	return c.shop[index], true
}

// TierWeight resolves the contribution weight for a monster tier. Kill facts
// arrive from the combat system already resolved, so an unrecognized tier is
// not rejected; it counts at the minimum weight.
func (c *Catalog) TierWeight(tier MonsterTier) int {
	if weight, ok := c.tierWeights[tier]; ok {
		return weight
	}
	return 1
}
