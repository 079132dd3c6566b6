package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

// ListInternalListings returns all platform listings, oldest first so
// downstream tie-breaks follow insertion order.
func (s *Store) ListInternalListings(ctx context.Context) ([]model.InternalListing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, employer_id, title, COALESCE(company, ''), COALESCE(description, ''),
		        COALESCE(location, ''), remote, embedding, created_at
		 FROM internal_listings
		 ORDER BY created_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query internal listings: %w", err)
	}
	defer rows.Close()

	var listings []model.InternalListing
	for rows.Next() {
		l, err := scanInternalListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}

// GetInternalListing loads one platform listing by id.
func (s *Store) GetInternalListing(ctx context.Context, id uuid.UUID) (*model.InternalListing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, employer_id, title, COALESCE(company, ''), COALESCE(description, ''),
		        COALESCE(location, ''), remote, embedding, created_at
		 FROM internal_listings
		 WHERE id = $1`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("query internal listing: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("query internal listing: %w", err)
		}
		return nil, fmt.Errorf("listing %s: %w", id, ErrNotFound)
	}

	l, err := scanInternalListing(rows)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// SetListingEmbedding persists a recomputed listing embedding.
func (s *Store) SetListingEmbedding(ctx context.Context, id uuid.UUID, embedding []float32) error {
	vec := pgvector.NewVector(embedding)
	if _, err := s.pool.Exec(ctx,
		`UPDATE internal_listings SET embedding = $2 WHERE id = $1`, id, vec,
	); err != nil {
		return fmt.Errorf("update listing embedding: %w", err)
	}
	return nil
}

func scanInternalListing(rows pgx.Rows) (model.InternalListing, error) {
	var l model.InternalListing
	var embedding *pgvector.Vector
	if err := rows.Scan(
		&l.ID, &l.EmployerID, &l.Title, &l.Company, &l.Description,
		&l.Location, &l.Remote, &embedding, &l.CreatedAt,
	); err != nil {
		return model.InternalListing{}, fmt.Errorf("scan internal listing: %w", err)
	}

	if embedding != nil {
		l.Embedding = embedding.Slice()
	}

	return l, nil
}
