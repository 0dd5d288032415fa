package sched

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"intelwatch/internal/logger"
)

// PostgresStore persists subscriptions in PostgreSQL so multiple
// dispatchers can share one schedule.
type PostgresStore struct {
	db  *sql.DB
	log interface {
		Info(msg string, args ...any)
	}
}

// NewPostgresStore connects to the database and ensures the schema exists.
func NewPostgresStore(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	store := &PostgresStore{db: db, log: logger.With("pgstore")}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	store.log.Info("postgres subscription store ready")
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS subscriptions (
		id               TEXT PRIMARY KEY,
		recipient        TEXT NOT NULL,
		topic            TEXT NOT NULL,
		focus_areas      TEXT[] NOT NULL DEFAULT '{}',
		delivery_format  TEXT NOT NULL DEFAULT 'email',
		frequency        TEXT NOT NULL,
		preferred_time   TEXT NOT NULL,
		timezone         TEXT NOT NULL,
		active           BOOLEAN NOT NULL DEFAULT TRUE,
		next_run_at      TIMESTAMPTZ,
		last_run_at      TIMESTAMPTZ,
		failure_streak   INTEGER NOT NULL DEFAULT 0,
		total_dispatched INTEGER NOT NULL DEFAULT 0
	);
	CREATE INDEX IF NOT EXISTS idx_subscriptions_due
		ON subscriptions (next_run_at) WHERE active;`

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("initializing schema: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// List returns all subscriptions.
func (s *PostgresStore) List(ctx context.Context) ([]Subscription, error) {
	const query = `
	SELECT id, recipient, topic, focus_areas, delivery_format, frequency,
	       preferred_time, timezone, active, next_run_at, last_run_at,
	       failure_streak, total_dispatched
	FROM subscriptions
	ORDER BY next_run_at NULLS LAST`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []Subscription
	for rows.Next() {
		var sub Subscription
		var nextRun, lastRun sql.NullTime
		err := rows.Scan(&sub.ID, &sub.Recipient, &sub.Topic,
			pq.Array(&sub.FocusAreas), &sub.DeliveryFormat, &sub.Frequency,
			&sub.PreferredTime, &sub.Timezone, &sub.Active,
			&nextRun, &lastRun, &sub.FailureStreak, &sub.TotalDispatched)
		if err != nil {
			return nil, fmt.Errorf("scanning subscription: %w", err)
		}
		if nextRun.Valid {
			sub.NextRunAt = nextRun.Time.UTC()
		}
		if lastRun.Valid {
			sub.LastRunAt = lastRun.Time.UTC()
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}

// Update replaces the stored row for the subscription's ID.
func (s *PostgresStore) Update(ctx context.Context, sub Subscription) error {
	const query = `
	UPDATE subscriptions SET
		recipient = $2, topic = $3, focus_areas = $4, delivery_format = $5,
		frequency = $6, preferred_time = $7, timezone = $8, active = $9,
		next_run_at = $10, last_run_at = $11, failure_streak = $12,
		total_dispatched = $13
	WHERE id = $1`

	res, err := s.db.ExecContext(ctx, query, sub.ID, sub.Recipient, sub.Topic,
		pq.Array(sub.FocusAreas), sub.DeliveryFormat, sub.Frequency,
		sub.PreferredTime, sub.Timezone, sub.Active,
		nullTime(sub.NextRunAt), nullTime(sub.LastRunAt),
		sub.FailureStreak, sub.TotalDispatched)
	if err != nil {
		return fmt.Errorf("updating subscription %s: %w", sub.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("subscription %s not found", sub.ID)
	}
	return nil
}

// Add inserts a new subscription, assigning an ID when empty.
func (s *PostgresStore) Add(ctx context.Context, sub Subscription) (Subscription, error) {
	if sub.ID == "" {
		sub.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO subscriptions
		(id, recipient, topic, focus_areas, delivery_format, frequency,
		 preferred_time, timezone, active, next_run_at, last_run_at,
		 failure_streak, total_dispatched)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err := s.db.ExecContext(ctx, query, sub.ID, sub.Recipient, sub.Topic,
		pq.Array(sub.FocusAreas), sub.DeliveryFormat, sub.Frequency,
		sub.PreferredTime, sub.Timezone, sub.Active,
		nullTime(sub.NextRunAt), nullTime(sub.LastRunAt),
		sub.FailureStreak, sub.TotalDispatched)
	if err != nil {
		return Subscription{}, fmt.Errorf("inserting subscription: %w", err)
	}
	return sub, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
