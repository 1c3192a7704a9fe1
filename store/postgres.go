package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host         string
	Port         int
	Database     string
	Username     string
	Password     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  time.Duration
}

// DSN renders the lib/pq key/value connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode)
}

// PostgresStore implements Store for PostgreSQL
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens the database, checks the connection and creates the
// submissions table if needed
func NewPostgresStore(ctx context.Context, config DatabaseConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.MaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := createTableIfNotExists(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

func createTableIfNotExists(ctx context.Context, db *sql.DB) error {
	query := `
	CREATE TABLE IF NOT EXISTS sanitized_submissions (
		id UUID PRIMARY KEY,
		sanitized_text TEXT NOT NULL,
		privacy_level VARCHAR(16) NOT NULL,
		privacy_score REAL NOT NULL,
		engine VARCHAR(16) NOT NULL,
		degraded BOOLEAN NOT NULL DEFAULT FALSE,
		entity_types TEXT[] NOT NULL DEFAULT '{}',
		confidences DOUBLE PRECISION[] NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_sanitized_submissions_created_at ON sanitized_submissions(created_at);
	`

	_, err := db.ExecContext(ctx, query)
	return err
}

func (p *PostgresStore) Save(ctx context.Context, s Submission) error {
	types := make([]string, len(s.Entities))
	confidences := make([]float64, len(s.Entities))
	for i, e := range s.Entities {
		types[i] = e.Type
		confidences[i] = e.Confidence
	}

	query := `
	INSERT INTO sanitized_submissions
		(id, sanitized_text, privacy_level, privacy_score, engine, degraded, entity_types, confidences, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := p.db.ExecContext(ctx, query,
		s.ID, s.SanitizedText, s.PrivacyLevel, s.PrivacyScore, s.Engine, s.Degraded,
		pq.Array(types), pq.Array(confidences), s.CreatedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (Submission, error) {
	query := `
	SELECT id, sanitized_text, privacy_level, privacy_score, engine, degraded, entity_types, confidences, created_at
	FROM sanitized_submissions
	WHERE id = $1
	`

	var s Submission
	var types []string
	var confidences []float64
	err := p.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.SanitizedText, &s.PrivacyLevel, &s.PrivacyScore, &s.Engine, &s.Degraded,
		pq.Array(&types), pq.Array(&confidences), &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Submission{}, ErrNotFound
		}
		return Submission{}, err
	}
	if len(types) != len(confidences) {
		return Submission{}, fmt.Errorf("submission %s: %d entity types but %d confidences", id, len(types), len(confidences))
	}

	s.Entities = make([]EntityRecord, len(types))
	for i := range types {
		s.Entities[i] = EntityRecord{Type: types[i], Confidence: confidences[i]}
	}
	return s, nil
}

func (p *PostgresStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sanitized_submissions`).Scan(&n)
	return n, err
}

func (p *PostgresStore) DeleteOlderThan(ctx context.Context, olderThan time.Duration) (int64, error) {
	query := `DELETE FROM sanitized_submissions WHERE created_at < NOW() - make_interval(secs => $1)`
	result, err := p.db.ExecContext(ctx, query, olderThan.Seconds())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Close closes the database connection
func (p *PostgresStore) Close() error {
	return p.db.Close()
}
