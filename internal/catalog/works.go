package catalog

import (
	"fmt"
	"sort"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
	"github.com/Billy-Davies-2/xpulse-cards/internal/random"
)

// WorkCatalog is an immutable code -> work definition table
type WorkCatalog struct {
	byCode map[string]models.WorkDefinition
	codes  []string // sorted, so seeded draws are reproducible
}

// NewWorkCatalog builds a work catalog. Every work needs a positive use count.
func NewWorkCatalog(defs ...models.WorkDefinition) (*WorkCatalog, error) {
	if len(defs) == 0 {
		return nil, fmt.Errorf("work catalog needs at least one entry")
	}
	w := &WorkCatalog{byCode: make(map[string]models.WorkDefinition, len(defs))}
	for _, d := range defs {
		if d.Code == "" {
			return nil, fmt.Errorf("work definition with empty code")
		}
		if d.MaxUses <= 0 {
			return nil, fmt.Errorf("work %q: maxUses must be positive", d.Code)
		}
		if d.ExperienceYield < 0 {
			return nil, fmt.Errorf("work %q: negative experience yield", d.Code)
		}
		if _, dup := w.byCode[d.Code]; dup {
			return nil, fmt.Errorf("duplicate work code %q", d.Code)
		}
		w.byCode[d.Code] = d
		w.codes = append(w.codes, d.Code)
	}
	sort.Strings(w.codes)
	return w, nil
}

// DefaultWorks returns the built-in work table
func DefaultWorks() *WorkCatalog {
	w, err := NewWorkCatalog(
		models.WorkDefinition{Code: "DANCE", Name: "Dance Practice", ExperienceYield: 10, MaxUses: 3},
		models.WorkDefinition{Code: "VOCAL", Name: "Vocal Lesson", ExperienceYield: 15, MaxUses: 2},
		models.WorkDefinition{Code: "PHOTO", Name: "Photo Shoot", ExperienceYield: 12, MaxUses: 3},
		models.WorkDefinition{Code: "VARIETY", Name: "Variety Show", ExperienceYield: 25, MaxUses: 1},
		models.WorkDefinition{Code: "FANMEET", Name: "Fan Meeting", ExperienceYield: 20, MaxUses: 2},
	)
	if err != nil {
		panic(err)
	}
	return w
}

// Lookup returns the work definition for code
func (w *WorkCatalog) Lookup(code string) (models.WorkDefinition, bool) {
	d, ok := w.byCode[code]
	return d, ok
}

// PickRandom draws uniformly over all entries
func (w *WorkCatalog) PickRandom(src random.Source) models.WorkDefinition {
	return w.byCode[w.codes[src.Intn(len(w.codes))]]
}

// Codes returns all work codes in sorted order
func (w *WorkCatalog) Codes() []string {
	out := make([]string, len(w.codes))
	copy(out, w.codes)
	return out
}
