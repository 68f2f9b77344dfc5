package models

// Category groups cards in the catalog
type Category string

const (
	CategoryNormal    Category = "Normal"
	CategoryLegendary Category = "Legendary"
	CategoryRare      Category = "Rare"
	CategorySpecial   Category = "Special"
	CategoryUnknown   Category = "Unknown"
)

// Rank is a coarse progression tier on the rank ladder
type Rank string

// MailItemWork is the mail item type for work grants
const MailItemWork = "work"

// CardDefinition is a static catalog entry
type CardDefinition struct {
	Code        string   `json:"code"`
	Category    Category `json:"category"`
	DisplayName string   `json:"displayName"`
	ImageRef    string   `json:"imageRef"`
}

// WorkDefinition is a static work catalog entry
type WorkDefinition struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	ExperienceYield int    `json:"experienceYield"`
	MaxUses         int    `json:"maxUses"`
}

// CardProgress is the per-card progression state inside a profile
type CardProgress struct {
	Experience        int    `json:"experience"`
	Rank              Rank   `json:"rank"`
	RankExperience    int    `json:"rankExperience"` // experience total at the last promotion
	Work              string `json:"work,omitempty"`
	WorkRemainingUses int    `json:"workRemainingUses"`
}

// HasWork reports whether a work assignment is active
func (c *CardProgress) HasWork() bool {
	return c.Work != ""
}

// ClearWork drops the work assignment
func (c *CardProgress) ClearWork() {
	c.Work = ""
	c.WorkRemainingUses = 0
}

// MailItem is a pending grant waiting in a player's mailbox
type MailItem struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Code string `json:"code"`
	Name string `json:"name"`
}

// PlayerProfile is the persistent record for one chat user
type PlayerProfile struct {
	UserID       string                   `json:"userId"`
	OwnedCards   []string                 `json:"ownedCards"`
	SelectedCard string                   `json:"selectedCard,omitempty"`
	CardProgress map[string]*CardProgress `json:"cardProgress"`
	Mailbox      []MailItem               `json:"mailbox"`
	HasAscended  bool                     `json:"hasAscended"`

	// Version is the optimistic concurrency token; 0 means never stored.
	Version int64 `json:"-"`
}

// NewPlayerProfile returns an empty profile for userID
func NewPlayerProfile(userID string) *PlayerProfile {
	return &PlayerProfile{
		UserID:       userID,
		OwnedCards:   []string{},
		CardProgress: map[string]*CardProgress{},
		Mailbox:      []MailItem{},
	}
}

// Owns reports whether the card code is in the owned set
func (p *PlayerProfile) Owns(code string) bool {
	for _, c := range p.OwnedCards {
		if c == code {
			return true
		}
	}
	return false
}

// AddCard adds code to the owned set; it reports false when already owned
func (p *PlayerProfile) AddCard(code string) bool {
	if p.Owns(code) {
		return false
	}
	p.OwnedCards = append(p.OwnedCards, code)
	return true
}

// Progress returns the progress entry for code, creating it with
// defaults (experience 0, the given starting rank) if absent.
func (p *PlayerProfile) Progress(code string, start Rank) *CardProgress {
	if p.CardProgress == nil {
		p.CardProgress = map[string]*CardProgress{}
	}
	cp, ok := p.CardProgress[code]
	if !ok {
		cp = &CardProgress{Rank: start}
		p.CardProgress[code] = cp
	}
	return cp
}

// Clone returns a deep copy of the profile
func (p *PlayerProfile) Clone() *PlayerProfile {
	out := &PlayerProfile{
		UserID:       p.UserID,
		OwnedCards:   make([]string, len(p.OwnedCards)),
		SelectedCard: p.SelectedCard,
		CardProgress: make(map[string]*CardProgress, len(p.CardProgress)),
		Mailbox:      make([]MailItem, len(p.Mailbox)),
		HasAscended:  p.HasAscended,
		Version:      p.Version,
	}
	copy(out.OwnedCards, p.OwnedCards)
	copy(out.Mailbox, p.Mailbox)
	for code, cp := range p.CardProgress {
		c := *cp
		out.CardProgress[code] = &c
	}
	return out
}

// LeaderboardEntry is one card's standing in the experience leaderboard
type LeaderboardEntry struct {
	UserID     string `json:"userId"`
	CardCode   string `json:"cardCode"`
	Experience int    `json:"experience"`
	Rank       Rank   `json:"rank"`
	Level      int    `json:"level"`
}
