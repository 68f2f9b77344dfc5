package progression

import "github.com/Billy-Davies-2/xpulse-cards/internal/models"

// StarterResult is returned by GrantStarterCard
type StarterResult struct {
	Card     models.CardDefinition `json:"card"`
	Progress models.CardProgress   `json:"progress"`
}

// SelectResult is returned by SelectCard
type SelectResult struct {
	Card    models.CardDefinition `json:"card"`
	Level   int                   `json:"level"`
	Profile *models.PlayerProfile `json:"profile"`
}

// TrainResult is returned by Train
type TrainResult struct {
	CardCode         string      `json:"cardCode"`
	ExperienceGained int         `json:"experienceGained"`
	TotalExperience  int         `json:"totalExperience"`
	Rank             models.Rank `json:"rank"`
	VisualLevel      int         `json:"visualLevel"`
	// AssignedWorkName is set only when this call assigned a new work
	AssignedWorkName string `json:"assignedWorkName,omitempty"`
	RemainingUses    int    `json:"remainingUses"`
}

// WorkResult is returned by Work
type WorkResult struct {
	CardCode         string      `json:"cardCode"`
	WorkName         string      `json:"workName"`
	ExperienceGained int         `json:"experienceGained"`
	TotalExperience  int         `json:"totalExperience"`
	Rank             models.Rank `json:"rank"`
	VisualLevel      int         `json:"visualLevel"`
	RemainingUses    int         `json:"remainingUses"`
	Finished         bool        `json:"finished"`
}

// AscendResult is returned by Ascend. Promoted is false when the threshold
// is not met or the card is already at the terminal rank.
type AscendResult struct {
	CardCode         string      `json:"cardCode"`
	Promoted         bool        `json:"promoted"`
	PreviousRank     models.Rank `json:"previousRank"`
	Rank             models.Rank `json:"rank"`
	VisualLevel      int         `json:"visualLevel"`
	ExperienceNeeded int         `json:"experienceNeeded"`
	Terminal         bool        `json:"terminal"`
}

// BuyResult is returned by BuyCard
type BuyResult struct {
	Card         models.CardDefinition `json:"card"`
	AlreadyOwned bool                  `json:"alreadyOwned"`
	OwnedCount   int                   `json:"ownedCount"`
	// Selected is set when the bought card became the selected card
	Selected bool `json:"selected"`
}

// MailboxEntry is one mailbox item as listed to the player
type MailboxEntry struct {
	Position    int             `json:"position"`
	Item        models.MailItem `json:"item"`
	DisplayName string          `json:"displayName"`
}

// UseMailResult is returned by UseMailboxItem
type UseMailResult struct {
	Item          models.MailItem `json:"item"`
	CardCode      string          `json:"cardCode,omitempty"`
	WorkName      string          `json:"workName,omitempty"`
	RemainingUses int             `json:"remainingUses"`
}

// CardView is an owned card with catalog data and progress defaults applied
type CardView struct {
	Card     models.CardDefinition `json:"card"`
	Progress models.CardProgress   `json:"progress"`
	Level    int                   `json:"level"`
	Selected bool                  `json:"selected"`
}

// ProfileView is the read-only profile snapshot
type ProfileView struct {
	UserID       string     `json:"userId"`
	SelectedCard string     `json:"selectedCard,omitempty"`
	HasAscended  bool       `json:"hasAscended"`
	MailboxSize  int        `json:"mailboxSize"`
	Cards        []CardView `json:"cards"`
}

// ResetResult is returned by ResetProfile
type ResetResult struct {
	UserID       string `json:"userId"`
	CardsRemoved int    `json:"cardsRemoved"`
	Existed      bool   `json:"existed"`
}
