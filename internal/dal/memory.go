package dal

import (
	"context"
	"sync"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
)

// MemoryDAL implements ProfileDAL using in-memory storage
type MemoryDAL struct {
	mu       sync.RWMutex
	profiles map[string]*models.PlayerProfile
}

// NewMemoryDAL creates a new in-memory data access layer
func NewMemoryDAL() *MemoryDAL {
	return &MemoryDAL{
		profiles: make(map[string]*models.PlayerProfile),
	}
}

func (m *MemoryDAL) GetProfile(ctx context.Context, userID string) (*models.PlayerProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.profiles[userID]
	if !ok {
		return nil, ErrProfileNotFound
	}
	// Copy to avoid callers mutating stored state
	return p.Clone(), nil
}

func (m *MemoryDAL) SaveProfile(ctx context.Context, profile *models.PlayerProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	current, exists := m.profiles[profile.UserID]
	switch {
	case profile.Version == 0 && exists:
		return ErrVersionConflict
	case profile.Version != 0 && (!exists || current.Version != profile.Version):
		return ErrVersionConflict
	}

	stored := profile.Clone()
	stored.Version = profile.Version + 1
	m.profiles[profile.UserID] = stored
	profile.Version = stored.Version
	return nil
}

func (m *MemoryDAL) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *MemoryDAL) Close() error {
	return nil
}

// Len returns the number of stored profiles
func (m *MemoryDAL) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.profiles)
}
