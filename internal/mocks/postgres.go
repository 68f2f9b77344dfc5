package mocks

import (
	"github.com/Billy-Davies-2/xpulse-cards/internal/dal"
	"github.com/Billy-Davies-2/xpulse-cards/internal/logger"
)

// MockPostgresDAL stands in for Postgres with SQLite when DB_DRIVER=postgres
// is requested in development without a DATABASE_URL
type MockPostgresDAL struct {
	dal.ProfileDAL
}

// NewMockPostgresDAL creates a mock Postgres DAL using SQLite
func NewMockPostgresDAL(sqliteFile string) (*MockPostgresDAL, error) {
	logger.Info("Using MOCK Postgres (SQLite) for local development", "file", sqliteFile)

	sqliteDAL, err := dal.NewSQLiteDAL(sqliteFile)
	if err != nil {
		return nil, err
	}

	return &MockPostgresDAL{
		ProfileDAL: sqliteDAL,
	}, nil
}
