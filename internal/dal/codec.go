package dal

import (
	"encoding/json"
	"fmt"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
)

// encodeProfile serializes the document part of a profile (everything but Version)
func encodeProfile(p *models.PlayerProfile) ([]byte, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile %s: %w", p.UserID, err)
	}
	return data, nil
}

// decodeProfile restores a stored document and fills empty collections
func decodeProfile(data []byte, version int64) (*models.PlayerProfile, error) {
	var p models.PlayerProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}
	if p.OwnedCards == nil {
		p.OwnedCards = []string{}
	}
	if p.CardProgress == nil {
		p.CardProgress = map[string]*models.CardProgress{}
	}
	if p.Mailbox == nil {
		p.Mailbox = []models.MailItem{}
	}
	p.Version = version
	return &p, nil
}
