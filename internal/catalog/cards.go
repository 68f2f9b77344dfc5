package catalog

import (
	"fmt"
	"sort"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
)

// CardCatalog is an immutable code -> definition table partitioned by category.
// It is built once at startup and shared read-only.
type CardCatalog struct {
	byCode     map[string]models.CardDefinition
	categories []models.Category
	codes      []string
}

// NewCardCatalog builds a catalog; duplicate codes are rejected.
// Category order follows first appearance in defs.
func NewCardCatalog(defs ...models.CardDefinition) (*CardCatalog, error) {
	c := &CardCatalog{byCode: make(map[string]models.CardDefinition, len(defs))}
	byCategory := map[models.Category][]string{}

	for _, d := range defs {
		if d.Code == "" {
			return nil, fmt.Errorf("card definition with empty code")
		}
		if _, dup := c.byCode[d.Code]; dup {
			return nil, fmt.Errorf("duplicate card code %q", d.Code)
		}
		c.byCode[d.Code] = d
		if _, seen := byCategory[d.Category]; !seen {
			c.categories = append(c.categories, d.Category)
		}
		byCategory[d.Category] = append(byCategory[d.Category], d.Code)
	}

	for _, cat := range c.categories {
		codes := byCategory[cat]
		sort.Strings(codes)
		c.codes = append(c.codes, codes...)
	}
	return c, nil
}

// DefaultCards returns the built-in card table
func DefaultCards() *CardCatalog {
	c, err := NewCardCatalog(
		models.CardDefinition{
			Code:        "JYRB01",
			Category:    models.CategoryNormal,
			DisplayName: "Normal Card",
			ImageRef:    "https://kpopping.com/documents/32/4/800/TWICE-5TH-WORLD-TOUR-READY-TO-BE-in-JAPAN-Concept-Photos-documents-2.jpeg",
		},
		models.CardDefinition{
			Code:        "JYRBB01",
			Category:    models.CategoryLegendary,
			DisplayName: "Legendary Card",
			ImageRef:    "https://example.com/jyrbb01.png",
		},
		models.CardDefinition{
			Code:        "JYRBC01",
			Category:    models.CategoryRare,
			DisplayName: "Rare Card",
			ImageRef:    "https://i.ibb.co/JHj2CdQ/PRUEBA-2.png",
		},
		models.CardDefinition{
			Code:        "JYRBD01",
			Category:    models.CategorySpecial,
			DisplayName: "Jeongyeon",
			ImageRef:    "https://i.ibb.co/dk4fvWd/PRUEBA.png",
		},
	)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the definition for code
func (c *CardCatalog) Lookup(code string) (models.CardDefinition, bool) {
	d, ok := c.byCode[code]
	return d, ok
}

// CategoryOf returns the category of code, or CategoryUnknown
func (c *CardCatalog) CategoryOf(code string) models.Category {
	if d, ok := c.byCode[code]; ok {
		return d.Category
	}
	return models.CategoryUnknown
}

// AllCodes returns every code, categories in declaration order
func (c *CardCatalog) AllCodes() []string {
	out := make([]string, len(c.codes))
	copy(out, c.codes)
	return out
}

// Categories returns the categories present in the catalog
func (c *CardCatalog) Categories() []models.Category {
	out := make([]models.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

// Len returns the number of cards
func (c *CardCatalog) Len() int {
	return len(c.codes)
}
