package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/Billy-Davies-2/xpulse-cards/internal/models"
	"github.com/Billy-Davies-2/xpulse-cards/internal/pubsub"
)

// Client records card events in ClickHouse and serves the leaderboard from them
type Client struct {
	conn driver.Conn
}

// NewClient creates a new ClickHouse client and makes sure card_events exists
func NewClient(addr, database, username, password string) (*Client, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: database,
			Username: username,
			Password: password,
		},
		DialTimeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping ClickHouse: %w", err)
	}

	c := &Client{conn: conn}
	if err := c.initSchema(ctx); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *Client) initSchema(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS card_events (
			event_id   String,
			event_type LowCardinality(String),
			user_id    String,
			card_code  String,
			experience Int32,
			rank       LowCardinality(String),
			level      Int32,
			ts         DateTime64(3)
		) ENGINE = MergeTree
		ORDER BY (user_id, card_code, ts)
	`
	if err := c.conn.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create card_events table: %w", err)
	}
	return nil
}

// RecordEvents inserts events in one batch
func (c *Client) RecordEvents(ctx context.Context, events ...pubsub.Event) error {
	if len(events) == 0 {
		return nil
	}

	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO card_events")
	if err != nil {
		return fmt.Errorf("failed to prepare batch: %w", err)
	}

	for _, e := range events {
		r := rowFromEvent(e)
		if err := batch.Append(r.EventID, r.EventType, r.UserID, r.CardCode, r.Experience, r.Rank, r.Level, r.TS); err != nil {
			_ = batch.Abort()
			return fmt.Errorf("failed to append event %s: %w", e.ID, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to send batch: %w", err)
	}
	return nil
}

// TopCards returns the cards with the most experience. Only events after a
// player's most recent reset count.
func (c *Client) TopCards(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `
		SELECT
			e.user_id,
			e.card_code,
			argMax(e.experience, e.ts) AS latest_experience,
			argMax(e.rank, e.ts)       AS latest_rank,
			argMax(e.level, e.ts)      AS latest_level
		FROM card_events AS e
		LEFT JOIN (
			SELECT user_id, max(ts) AS reset_ts
			FROM card_events
			WHERE event_type = ?
			GROUP BY user_id
		) AS r ON e.user_id = r.user_id
		WHERE e.card_code != '' AND e.rank != '' AND e.ts > r.reset_ts
		GROUP BY e.user_id, e.card_code
		ORDER BY latest_experience DESC, e.user_id ASC
		LIMIT ?
	`

	rows, err := c.conn.Query(ctx, query, pubsub.EventProfileReset, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.LeaderboardEntry, 0, limit)
	for rows.Next() {
		var (
			userID, cardCode, rank string
			experience, level      int32
		)
		if err := rows.Scan(&userID, &cardCode, &experience, &rank, &level); err != nil {
			return nil, err
		}
		entries = append(entries, models.LeaderboardEntry{
			UserID:     userID,
			CardCode:   cardCode,
			Experience: int(experience),
			Rank:       models.Rank(rank),
			Level:      int(level),
		})
	}
	return entries, rows.Err()
}

// Ping checks the connection
func (c *Client) Ping(ctx context.Context) error {
	return c.conn.Ping(ctx)
}

// Close closes the ClickHouse connection
func (c *Client) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
