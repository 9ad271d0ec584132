// Package store implements the Postgres session archive.
package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outreach-engine/orchestrator/pkg/models"
)

// ErrNotFound is returned when a session has no archive entry.
var ErrNotFound = errors.New("session not archived")

// PostgresSessionArchive is a PostgreSQL implementation of the session
// archive. It satisfies state.SessionArchiver.
type PostgresSessionArchive struct {
	db *pgxpool.Pool
}

// NewPostgresSessionArchive creates a new PostgresSessionArchive.
func NewPostgresSessionArchive(db *pgxpool.Pool) *PostgresSessionArchive {
	return &PostgresSessionArchive{db: db}
}

// EnsureSchema creates the sessions table if it does not exist.
func (s *PostgresSessionArchive) EnsureSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS sessions (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		campaign_count INT NOT NULL,
		last_company TEXT NOT NULL DEFAULT '',
		last_role TEXT NOT NULL DEFAULT ''
	)`)
	return err
}

// SaveSession upserts a session summary.
func (s *PostgresSessionArchive) SaveSession(ctx context.Context, summary models.SessionSummary) error {
	_, err := s.db.Exec(ctx, `INSERT INTO sessions (id, name, created_at, updated_at, campaign_count, last_company, last_role)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			updated_at = EXCLUDED.updated_at,
			campaign_count = EXCLUDED.campaign_count,
			last_company = EXCLUDED.last_company,
			last_role = EXCLUDED.last_role`,
		summary.ID, summary.Name, summary.CreatedAt, summary.UpdatedAt,
		summary.CampaignCount, summary.LastCompany, summary.LastRole)
	return err
}

// GetSession retrieves an archived session summary by id.
func (s *PostgresSessionArchive) GetSession(ctx context.Context, id string) (*models.SessionSummary, error) {
	var summary models.SessionSummary
	err := s.db.QueryRow(ctx, `SELECT id, name, created_at, updated_at, campaign_count, last_company, last_role
		FROM sessions WHERE id = $1`, id).
		Scan(&summary.ID, &summary.Name, &summary.CreatedAt, &summary.UpdatedAt,
			&summary.CampaignCount, &summary.LastCompany, &summary.LastRole)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// ListSessions returns all archived summaries, most recently updated first.
func (s *PostgresSessionArchive) ListSessions(ctx context.Context) ([]models.SessionSummary, error) {
	rows, err := s.db.Query(ctx, `SELECT id, name, created_at, updated_at, campaign_count, last_company, last_role
		FROM sessions ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []models.SessionSummary
	for rows.Next() {
		var summary models.SessionSummary
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.CreatedAt, &summary.UpdatedAt,
			&summary.CampaignCount, &summary.LastCompany, &summary.LastRole); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

// DeleteSession removes a session's archive entry. Deleting an unknown id
// is not an error.
func (s *PostgresSessionArchive) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx, "DELETE FROM sessions WHERE id = $1", id)
	return err
}
