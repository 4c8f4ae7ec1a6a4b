package server

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CatalogFile is the on-disk layout for designer-authored catalog overrides.
// The same struct drives the JSON Schema exported by cmd/catalogschema.
type CatalogFile struct {
	Invasions []InvasionFileEntry `yaml:"invasions" json:"invasions"`
	Shop      []ShopFileEntry     `yaml:"shop" json:"shop"`
	Tiers     []TierFileEntry     `yaml:"tiers,omitempty" json:"tiers,omitempty"`
}

// InvasionFileEntry is one archetype row in the catalog file.
type InvasionFileEntry struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Faction     string `yaml:"faction,omitempty" json:"faction,omitempty"`
	Modifier    string `yaml:"modifier,omitempty" json:"modifier,omitempty"`
}

// ShopFileEntry is one token-shop row in the catalog file.
type ShopFileEntry struct {
	Name        string `yaml:"name" json:"name"`
	Cost        int    `yaml:"cost" json:"cost"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// TierFileEntry maps a monster tier to its contribution weight.
type TierFileEntry struct {
	Tier   string `yaml:"tier" json:"tier"`
	Weight int    `yaml:"weight" json:"weight"`
}

// LoadCatalog reads and validates a YAML catalog file. Any fault in the file
// is a startup error; the server never runs with a partially valid catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	catalog, err := NewCatalog(file)
	if err != nil {
		return nil, fmt.Errorf("validate catalog %s: %w", path, err)
	}
	return catalog, nil
}

// DefaultCatalog builds the catalog compiled into the binary.
func DefaultCatalog() *Catalog {
	catalog, err := NewCatalog(defaultCatalogFile())
	if err != nil {
		// The built-in table is validated by tests; failing here means the
		// binary itself is broken.
		panic(fmt.Sprintf("built-in catalog invalid: %v", err))
	}
	return catalog
}

func defaultCatalogFile() CatalogFile {
	return CatalogFile{
		Invasions: []InvasionFileEntry{
			{
				ID:          "demon_incursion",
				Name:        "Demon Incursion",
				Description: "Fissures tear open across the plains and demonkin pour through.",
				Faction:     "demon",
				Modifier:    "burning ground",
			},
			{
				ID:          "undead_siege",
				Name:        "Undead Siege",
				Description: "A necromancer marches a tide of risen soldiers on the settlement.",
				Faction:     "undead",
				Modifier:    "withering touch",
			},
			{
				ID:          "goblin_warband",
				Name:        "Goblin Warband",
				Description: "Scavenging goblins mass for a raid on anything not nailed down.",
				Faction:     "goblin",
				Modifier:    "frenzied packs",
			},
			{
				ID:          "frost_revenants",
				Name:        "Frost Revenants",
				Description: "Spirits of a frozen battlefield drift in with the cold front.",
				Faction:     "revenant",
				Modifier:    "chilling aura",
			},
		},
		Shop: []ShopFileEntry{
			{
				Name:        "Banner of the Defender",
				Cost:        50,
				Description: "A standard commemorating a repelled invasion.",
			},
			{
				Name:        "Reinforced Supply Crate",
				Cost:        120,
				Description: "Provisions and materials salvaged from the battlefield.",
			},
			{
				Name:        "Veteran's War Trophy",
				Cost:        200,
				Description: "A trophy cut from the invasion's fiercest champion.",
			},
			{
				Name:        "Sigil of the Vanguard",
				Cost:        450,
				Description: "Marks the bearer as first into the breach.",
			},
		},
		Tiers: defaultTierWeights(),
	}
}

func defaultTierWeights() []TierFileEntry {
	return []TierFileEntry{
		{Tier: string(TierTrivial), Weight: 1},
		{Tier: string(TierElite), Weight: 3},
		{Tier: string(TierBoss), Weight: 20},
	}
}
