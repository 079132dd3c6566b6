package store

import (
	"context"
	"fmt"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

// UpsertMatch stores a recomputed match score for a (candidate, listing)
// pair, overwriting any previous row. Recomputation is idempotent.
func (s *Store) UpsertMatch(ctx context.Context, m model.MatchResult) error {
	if _, err := s.pool.Exec(ctx,
		`INSERT INTO matches (candidate_id, listing_id, score, reason, suggested, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (candidate_id, listing_id) DO UPDATE
		 SET score = EXCLUDED.score,
		     reason = EXCLUDED.reason,
		     suggested = EXCLUDED.suggested,
		     updated_at = now()`,
		m.CandidateID, m.ListingID, m.Score, m.Reason, m.Suggested,
	); err != nil {
		return fmt.Errorf("upsert match: %w", err)
	}
	return nil
}
