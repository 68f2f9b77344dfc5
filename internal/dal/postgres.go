package dal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
)

// PostgresDAL implements ProfileDAL using PostgreSQL
type PostgresDAL struct {
	db *sql.DB
}

// NewPostgresDAL creates a new PostgreSQL data access layer optimized for CloudNativePG
func NewPostgresDAL(connString string) (*PostgresDAL, error) {
	db, err := sql.Open("postgres", connString)
	if err != nil {
		return nil, err
	}

	// CloudNativePG optimization: Configure connection pool settings
	db.SetMaxOpenConns(25)                 // Limit max connections (CloudNativePG default max_connections is 100)
	db.SetMaxIdleConns(5)                  // Keep some idle connections for quick reuse
	db.SetConnMaxLifetime(5 * time.Minute) // Recycle connections to handle failovers gracefully
	db.SetConnMaxIdleTime(1 * time.Minute) // Close idle connections to reduce load

	// Test connection with retry logic for Kubernetes DNS resolution
	maxRetries := 5
	retryDelay := 5 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		lastErr = db.PingContext(ctx)
		cancel()

		if lastErr == nil {
			break
		}

		if i < maxRetries-1 {
			time.Sleep(retryDelay)
		}
	}

	if lastErr != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres after %d retries: %w", maxRetries, lastErr)
	}

	dal := &PostgresDAL{db: db}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (p *PostgresDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		data JSONB NOT NULL,
		version BIGINT NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	-- Lookups for owners of a card, used by support tooling
	CREATE INDEX IF NOT EXISTS idx_profiles_owned_cards ON profiles USING GIN ((data -> 'ownedCards'));
	`

	if _, err := p.db.Exec(schema); err != nil {
		return err
	}

	return nil
}

func (p *PostgresDAL) GetProfile(ctx context.Context, userID string) (*models.PlayerProfile, error) {
	var data []byte
	var version int64
	err := p.db.QueryRowContext(ctx, `
		SELECT data, version FROM profiles WHERE user_id = $1
	`, userID).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return decodeProfile(data, version)
}

func (p *PostgresDAL) SaveProfile(ctx context.Context, profile *models.PlayerProfile) error {
	data, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	var result sql.Result
	if profile.Version == 0 {
		result, err = p.db.ExecContext(ctx, `
			INSERT INTO profiles (user_id, data, version)
			VALUES ($1, $2, 1)
			ON CONFLICT (user_id) DO NOTHING
		`, profile.UserID, string(data))
	} else {
		result, err = p.db.ExecContext(ctx, `
			UPDATE profiles SET data = $1, version = version + 1, updated_at = CURRENT_TIMESTAMP
			WHERE user_id = $2 AND version = $3
		`, string(data), profile.UserID, profile.Version)
	}
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrVersionConflict
	}

	profile.Version++
	return nil
}

func (p *PostgresDAL) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *PostgresDAL) Close() error {
	return p.db.Close()
}
