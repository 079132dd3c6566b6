// Package model defines the data shapes shared across the match engine.
package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// EmbeddingDimensions is the fixed length of every stored embedding vector.
// An embedding field is either nil (absent) or exactly this long.
const EmbeddingDimensions = 1536

// Experience is one entry of a candidate's work history.
type Experience struct {
	Title   string `json:"title"`
	Company string `json:"company"`
}

// CandidateProfile holds the fields the engine reads when projecting and
// matching a candidate. Derived fields (FitIndicators, SuggestedRoles) are
// produced by the resume-parsing collaborator and consumed here read-only.
type CandidateProfile struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	FullName       string
	Location       string
	Skills         []string
	Experience     []Experience
	FitIndicators  []string
	SuggestedRoles []string
	Embedding      []float32
	UpdatedAt      time.Time
}

// InternalListing is a job created natively on the platform by an employer.
type InternalListing struct {
	ID          uuid.UUID
	EmployerID  uuid.UUID
	Title       string
	Company     string
	Description string
	Location    string
	Remote      bool
	Embedding   []float32
	CreatedAt   time.Time
}

// ExternalListing is a job ingested from a third-party source. Rows are
// append-only: a (source, external_id) pair is inserted once and never
// updated, so the stored description/url reflect the first fetch.
type ExternalListing struct {
	ID          uuid.UUID      `json:"id"`
	Source      string         `json:"source"`
	ExternalID  string         `json:"external_id"`
	Title       string         `json:"title"`
	Company     string         `json:"company,omitempty"`
	Location    string         `json:"location,omitempty"`
	Description string         `json:"description,omitempty"`
	URL         string         `json:"url,omitempty"`
	SalaryMin   string         `json:"salary_min,omitempty"`
	SalaryMax   string         `json:"salary_max,omitempty"`
	RawPayload  map[string]any `json:"-"`
	FetchedAt   time.Time      `json:"fetched_at"`
}

// MatchResult is a persisted score for a (candidate, listing) pair.
// Uniqueness is (CandidateID, ListingID); recomputation overwrites.
type MatchResult struct {
	CandidateID uuid.UUID
	ListingID   uuid.UUID
	Score       int
	Reason      string
	Suggested   bool
	UpdatedAt   time.Time
}

// Listing source labels as they appear in API responses.
const (
	SourcePlatform = "platform"
	SourceDemo     = "demo"
)

// RankedListing is the merged API shape returned by recommend/browse: one
// listing from any source, optionally carrying a match score.
type RankedListing struct {
	ID          string `json:"id"`
	Source      string `json:"source"`
	Title       string `json:"title"`
	Company     string `json:"company,omitempty"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
	Remote      *bool  `json:"remote,omitempty"`
	URL         string `json:"url,omitempty"`
	SalaryMin   string `json:"salary_min,omitempty"`
	SalaryMax   string `json:"salary_max,omitempty"`
	Scored      bool   `json:"-"`
	Score       int    `json:"match_score,omitempty"`
	Reason      string `json:"match_reason,omitempty"`
	Suggested   bool   `json:"suggested_for_you,omitempty"`
}

// MarshalJSON always emits match_score and suggested_for_you for a scored
// listing. A vector-ranked score can legitimately be 0, which omitempty would
// make indistinguishable from an unscored browse result.
func (r RankedListing) MarshalJSON() ([]byte, error) {
	type plain RankedListing
	if !r.Scored {
		return json.Marshal(plain(r))
	}
	return json.Marshal(struct {
		plain
		Score     int  `json:"match_score"`
		Suggested bool `json:"suggested_for_you"`
	}{plain(r), r.Score, r.Suggested})
}
