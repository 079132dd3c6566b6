package store

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

// InsertExternalListing inserts the listing unless its (source, external_id)
// pair already exists. The unique constraint is the arbiter under concurrent
// refreshes; losing a race means "already present", not an error. Returns
// false when the row existed.
func (s *Store) InsertExternalListing(ctx context.Context, l model.ExternalListing) (bool, error) {
	id := l.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	tag, err := s.pool.Exec(ctx,
		`INSERT INTO external_listings
		   (id, source, external_id, title, company, location, description, url,
		    salary_min, salary_max, raw_payload)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (source, external_id) DO NOTHING`,
		id, l.Source, l.ExternalID, l.Title, l.Company, l.Location, l.Description,
		l.URL, l.SalaryMin, l.SalaryMax, l.RawPayload,
	)
	if err != nil {
		return false, fmt.Errorf("insert external listing: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListExternalListings returns the most recently fetched listings.
func (s *Store) ListExternalListings(ctx context.Context, limit int) ([]model.ExternalListing, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id, source, external_id, title, COALESCE(company, ''),
		        COALESCE(location, ''), COALESCE(description, ''), COALESCE(url, ''),
		        COALESCE(salary_min, ''), COALESCE(salary_max, ''), fetched_at
		 FROM external_listings
		 ORDER BY fetched_at DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query external listings: %w", err)
	}
	defer rows.Close()

	var listings []model.ExternalListing
	for rows.Next() {
		var l model.ExternalListing
		if err := rows.Scan(
			&l.ID, &l.Source, &l.ExternalID, &l.Title, &l.Company,
			&l.Location, &l.Description, &l.URL, &l.SalaryMin, &l.SalaryMax, &l.FetchedAt,
		); err != nil {
			return nil, fmt.Errorf("scan external listing: %w", err)
		}
		listings = append(listings, l)
	}

	return listings, rows.Err()
}
