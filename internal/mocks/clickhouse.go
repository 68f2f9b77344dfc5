package mocks

import (
	"context"
	"sort"
	"sync"

	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
)

// MockClickHouseClient keeps the card leaderboard in memory for local development
type MockClickHouseClient struct {
	mu      sync.RWMutex
	latest  map[string]models.LeaderboardEntry // user|card -> latest standing
	seenTS  map[string]int64
	records int
}

// NewMockClickHouseClient creates a mock ClickHouse client
func NewMockClickHouseClient() *MockClickHouseClient {
	logger.Info("Using MOCK ClickHouse client for local development")

	return &MockClickHouseClient{
		latest: make(map[string]models.LeaderboardEntry),
		seenTS: make(map[string]int64),
	}
}

// RecordEvents folds events into the in-memory standings
func (m *MockClickHouseClient) RecordEvents(_ context.Context, events ...pubsub.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, e := range events {
		m.records++
		userID, _ := e.Payload["userId"].(string)

		if e.Type == pubsub.EventProfileReset {
			for key, entry := range m.latest {
				if entry.UserID == userID {
					delete(m.latest, key)
					delete(m.seenTS, key)
				}
			}
			continue
		}

		cardCode, _ := e.Payload["cardCode"].(string)
		rank, _ := e.Payload["rank"].(string)
		if userID == "" || cardCode == "" || rank == "" {
			continue
		}

		key := userID + "|" + cardCode
		if ts, ok := m.seenTS[key]; ok && ts > e.TS {
			continue
		}
		m.seenTS[key] = e.TS
		m.latest[key] = models.LeaderboardEntry{
			UserID:     userID,
			CardCode:   cardCode,
			Experience: number(e.Payload["experience"]),
			Rank:       models.Rank(rank),
			Level:      number(e.Payload["level"]),
		}
	}
	return nil
}

// TopCards returns the standings ordered by experience
func (m *MockClickHouseClient) TopCards(_ context.Context, limit int) ([]models.LeaderboardEntry, error) {
	m.mu.RLock()
	entries := make([]models.LeaderboardEntry, 0, len(m.latest))
	for _, e := range m.latest {
		entries = append(entries, e)
	}
	m.mu.RUnlock()

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Experience != entries[j].Experience {
			return entries[i].Experience > entries[j].Experience
		}
		if entries[i].UserID != entries[j].UserID {
			return entries[i].UserID < entries[j].UserID
		}
		return entries[i].CardCode < entries[j].CardCode
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Records returns how many events were recorded
func (m *MockClickHouseClient) Records() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records
}

// Ping always succeeds
func (m *MockClickHouseClient) Ping(context.Context) error {
	return nil
}

// Close is a no-op for mock client
func (m *MockClickHouseClient) Close() error {
	return nil
}

func number(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
