package core

import (
	"strings"
)

// Canonical expense categories.
const (
	CategoryMaterials = "materials"
	CategoryFuel      = "fuel"
	CategoryRent      = "rent"
	CategoryFood      = "food"
	CategoryOther     = "other"
)

// Categories lists the canonical category keys in display order.
var Categories = []string{CategoryMaterials, CategoryFuel, CategoryRent, CategoryFood, CategoryOther}

// CategoryMapping is one versioned alias table. Aliases map a display name
// that was once stored to its canonical key.
type CategoryMapping struct {
	Version int
	Aliases map[string]string
}

// CategoryMappings is append-only: a rename adds a new version instead of
// editing an old table, so historical records keep their classification.
var CategoryMappings = []CategoryMapping{
	{
		Version: 1,
		Aliases: map[string]string{
			"Materiale": CategoryMaterials,
			"Benzină":   CategoryFuel,
			"Chirie":    CategoryRent,
			"Mâncare":   CategoryFood,
			"Altele":    CategoryOther,
		},
	},
	{
		Version: 2,
		Aliases: map[string]string{
			"Matériaux":  CategoryMaterials,
			"Essence":    CategoryFuel,
			"Carburant":  CategoryFuel,
			"Loyer":      CategoryRent,
			"Nourriture": CategoryFood,
			"Autre":      CategoryOther,
		},
	},
}

// LatestCategoryMappingVersion is the highest version in CategoryMappings.
func LatestCategoryMappingVersion() int {
	latest := 0
	for _, m := range CategoryMappings {
		if m.Version > latest {
			latest = m.Version
		}
	}
	return latest
}

// CategoryNormalizer resolves stored category names to canonical keys using
// every mapping whose version is <= Version.
type CategoryNormalizer struct {
	Version int
	lookup  map[string]string
}

// NewCategoryNormalizer builds a normalizer pinned to version. A version <= 0
// selects the latest mapping.
func NewCategoryNormalizer(version int) *CategoryNormalizer {
	if version <= 0 {
		version = LatestCategoryMappingVersion()
	}
	n := &CategoryNormalizer{Version: version, lookup: make(map[string]string)}
	for _, c := range Categories {
		n.lookup[c] = c
	}
	for _, m := range CategoryMappings {
		if m.Version > version {
			continue
		}
		for alias, canonical := range m.Aliases {
			n.lookup[strings.ToLower(alias)] = canonical
		}
	}
	return n
}

// Normalize maps name to its canonical key. Empty names become "other";
// unknown names are returned trimmed.
func (n *CategoryNormalizer) Normalize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return CategoryOther
	}
	if n == nil {
		return name
	}
	if canonical, ok := n.lookup[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}
