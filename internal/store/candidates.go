package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// GetCandidate loads a candidate profile by id.
func (s *Store) GetCandidate(ctx context.Context, id uuid.UUID) (*model.CandidateProfile, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, user_id, full_name, COALESCE(location, ''),
		        COALESCE(skills, '[]'::jsonb), COALESCE(experience, '[]'::jsonb),
		        COALESCE(fit_indicators, '[]'::jsonb), COALESCE(suggested_roles, '[]'::jsonb),
		        embedding, updated_at
		 FROM candidates
		 WHERE id = $1`,
		id,
	)

	var c model.CandidateProfile
	var embedding *pgvector.Vector
	if err := row.Scan(
		&c.ID, &c.UserID, &c.FullName, &c.Location,
		&c.Skills, &c.Experience, &c.FitIndicators, &c.SuggestedRoles,
		&embedding, &c.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("query candidate: %w", err)
	}

	if embedding != nil {
		c.Embedding = embedding.Slice()
	}

	return &c, nil
}

// GetCandidateByUserID loads a candidate profile by the owning user id.
func (s *Store) GetCandidateByUserID(ctx context.Context, userID uuid.UUID) (*model.CandidateProfile, error) {
	row := s.pool.QueryRow(ctx, `SELECT id FROM candidates WHERE user_id = $1`, userID)

	var id uuid.UUID
	if err := row.Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("candidate for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("query candidate by user: %w", err)
	}

	return s.GetCandidate(ctx, id)
}

// SetCandidateEmbedding persists a recomputed embedding. Last write wins
// under concurrent refreshes; embeddings are derived state.
func (s *Store) SetCandidateEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	if _, err := s.pool.Exec(ctx,
		`UPDATE candidates SET embedding = $2 WHERE id = $1`, id, vec,
	); err != nil {
		return fmt.Errorf("update candidate embedding: %w", err)
	}
	return nil
}
