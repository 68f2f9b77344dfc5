package dal

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
)

// SQLiteDAL implements ProfileDAL using SQLite
type SQLiteDAL struct {
	db *sql.DB
}

// NewSQLiteDAL creates a new SQLite data access layer
func NewSQLiteDAL(dbPath string) (*SQLiteDAL, error) {
	dsn := dbPath
	if !strings.Contains(dsn, "?") {
		// Concurrent writers wait instead of failing with SQLITE_BUSY
		dsn += "?_busy_timeout=5000&_journal_mode=WAL"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}

	dal := &SQLiteDAL{db: db}

	if err := dal.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return dal, nil
}

func (s *SQLiteDAL) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		user_id TEXT PRIMARY KEY,
		data TEXT NOT NULL,
		version INTEGER NOT NULL,
		updated_at INTEGER NOT NULL DEFAULT 0
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteDAL) GetProfile(ctx context.Context, userID string) (*models.PlayerProfile, error) {
	var data string
	var version int64
	err := s.db.QueryRowContext(ctx, `
		SELECT data, version FROM profiles WHERE user_id = ?
	`, userID).Scan(&data, &version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, err
	}

	return decodeProfile([]byte(data), version)
}

func (s *SQLiteDAL) SaveProfile(ctx context.Context, profile *models.PlayerProfile) error {
	data, err := encodeProfile(profile)
	if err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	var result sql.Result
	if profile.Version == 0 {
		result, err = s.db.ExecContext(ctx, `
			INSERT INTO profiles (user_id, data, version, updated_at)
			VALUES (?, ?, 1, ?)
			ON CONFLICT(user_id) DO NOTHING
		`, profile.UserID, string(data), now)
	} else {
		result, err = s.db.ExecContext(ctx, `
			UPDATE profiles SET data = ?, version = version + 1, updated_at = ?
			WHERE user_id = ? AND version = ?
		`, string(data), now, profile.UserID, profile.Version)
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

func (s *SQLiteDAL) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteDAL) Close() error {
	return s.db.Close()
}
