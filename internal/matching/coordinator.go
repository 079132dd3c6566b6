// Package matching contains the fallback match scorer and the top-level
// coordinator that gathers, scores, merges, and orders listings for a
// candidate.
package matching

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/recruiter-solutions/match-engine/internal/model"
	"github.com/recruiter-solutions/match-engine/internal/projection"
	"github.com/recruiter-solutions/match-engine/internal/ranking"
)

// ReasonSemanticUnavailable labels internal listings returned without vector
// ranking because the candidate has no embedding. Exact string is part of the
// API contract.
const ReasonSemanticUnavailable = "Semantic search unavailable"

// reasonSemanticMatch labels listings scored through the vector path.
const reasonSemanticMatch = "Semantic similarity to your profile"

const (
	defaultRecommendLimit = 20
	defaultBrowseLimit    = 50
	maxLimit              = 50

	defaultExternalCap         = 20
	defaultMaxConcurrentScores = 4
	defaultRequestTimeout      = 30 * time.Second

	browseDescriptionLimit = 300
)

// CandidateStore loads candidate profiles.
type CandidateStore interface {
	GetCandidate(ctx context.Context, id uuid.UUID) (*model.CandidateProfile, error)
}

// ListingStore loads internal listings.
type ListingStore interface {
	ListInternalListings(ctx context.Context) ([]model.InternalListing, error)
}

// ExternalLister serves aggregated external listings, fetching fresh ones
// first when the query is non-empty.
type ExternalLister interface {
	Listings(ctx context.Context, limit int, query string) ([]model.ExternalListing, error)
}

// MatchStore persists recomputed match results. Optional; a nil store skips
// persistence entirely.
type MatchStore interface {
	UpsertMatch(ctx context.Context, m model.MatchResult) error
}

// EmbeddingEnsurer lazily computes a candidate embedding when one is absent.
// Returns nil without error when the embedding provider is unavailable.
type EmbeddingEnsurer interface {
	EnsureCandidate(ctx context.Context, p *model.CandidateProfile) ([]float32, error)
}

// Deps aggregates the coordinator's collaborators.
type Deps struct {
	Candidates CandidateStore
	Listings   ListingStore
	External   ExternalLister
	Matches    MatchStore
	Embeddings EmbeddingEnsurer
	Scorer     PairScorer
	Logger     *zap.Logger
}

// Config bounds the coordinator's concurrency and external fan-out. One
// request carries a single deadline; subtasks inherit it rather than
// compounding their own.
type Config struct {
	RequestTimeout      time.Duration
	ExternalCap         int
	MaxConcurrentScores int
	DemoFallback        bool
}

// Coordinator is the engine's top-level entry point for recommend and browse.
type Coordinator struct {
	deps Deps
	cfg  Config
}

// NewCoordinator creates a Coordinator, applying defaults for unset config
// values.
func NewCoordinator(deps Deps, cfg Config) *Coordinator {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}
	if cfg.ExternalCap <= 0 {
		cfg.ExternalCap = defaultExternalCap
	}
	if cfg.MaxConcurrentScores <= 0 {
		cfg.MaxConcurrentScores = defaultMaxConcurrentScores
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Coordinator{deps: deps, cfg: cfg}
}

// Recommend returns up to limit listings ranked for the candidate, blending
// vector-ranked internal listings with fallback-scored internal and external
// ones. Provider failures never surface: the worst case is a degraded but
// well-formed result set.
func (c *Coordinator) Recommend(ctx context.Context, candidateID uuid.UUID, limit int) ([]model.RankedListing, error) {
	limit = clampLimit(limit, defaultRecommendLimit)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	cand, err := c.deps.Candidates.GetCandidate(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("load candidate: %w", err)
	}

	candText := projection.Candidate(cand)
	listings := c.internalListings(ctx)

	embedding := c.ensureEmbedding(ctx, cand)

	var vectorRanked []model.RankedListing
	var pending []model.InternalListing

	if len(embedding) > 0 {
		embedded, unembedded := splitByEmbedding(listings)
		ranked := ranking.Rank(embedding, embedded, limit)
		vectorRanked = c.rankedToResults(ctx, cand.ID, ranked)
		// Each pending listing costs one reasoning-provider call; cap them at
		// the response size so a large unembedded corpus cannot amplify one
		// request into unbounded provider spend.
		pending = unembedded
		if len(pending) > limit {
			pending = pending[:limit]
		}
	} else {
		// Total degradation of the vector path: the most recent internal
		// listings are returned with a fixed score so every result still
		// carries a score and reason.
		vectorRanked = degradedInternal(listings, limit)
	}

	// Blocking work: external aggregation plus fallback scoring for internal
	// listings that lack embeddings. Bounded fan-out under the request's
	// single deadline.
	scoredPending, external := c.scoreBlockingPaths(ctx, candText, pending, min(limit, c.cfg.ExternalCap), "")

	merged := make([]model.RankedListing, 0, len(vectorRanked)+len(scoredPending)+len(external))
	merged = append(merged, vectorRanked...)
	merged = append(merged, scoredPending...)
	merged = append(merged, external...)

	if len(merged) == 0 && c.cfg.DemoFallback {
		merged = c.scoredDemo(ctx, candText, BrowseQuery{})
	}

	sortRanked(merged)
	if len(merged) > limit {
		merged = merged[:limit]
	}

	return merged, nil
}

// BrowseQuery carries the caller-supplied browse filters. A nil CandidateID
// means anonymous browsing: listings come back unscored.
type BrowseQuery struct {
	Query           string
	Location        string
	RemoteOnly      bool
	CandidateID     *uuid.UUID
	IncludeExternal bool
	Limit           int
}

// Browse lists platform and aggregated listings matching the query filters.
// With a known candidate each result carries a match score; otherwise results
// are unscored and keep their natural order.
func (c *Coordinator) Browse(ctx context.Context, q BrowseQuery) ([]model.RankedListing, error) {
	limit := clampLimit(q.Limit, defaultBrowseLimit)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	var candText string
	scored := false
	if q.CandidateID != nil {
		cand, err := c.deps.Candidates.GetCandidate(ctx, *q.CandidateID)
		if err != nil {
			c.deps.Logger.Warn("browse candidate lookup failed; returning unscored results",
				zap.String("candidate_id", q.CandidateID.String()), zap.Error(err))
		} else {
			candText = projection.Candidate(cand)
			scored = true
		}
	}

	internal := make([]model.RankedListing, 0)
	for _, l := range c.internalListings(ctx) {
		item := internalToResult(l, browseDescriptionLimit)
		if matchesFilters(item, q) {
			internal = append(internal, item)
		}
	}

	var external []model.RankedListing
	if q.IncludeExternal && c.deps.External != nil {
		for _, e := range c.externalListings(ctx, limit, q.Query) {
			item := externalToResult(e)
			if matchesFilters(item, q) {
				external = append(external, item)
			}
		}
	}

	merged := append(internal, external...)

	if scored {
		merged = c.scoreResults(ctx, candText, merged)
	}

	if len(merged) == 0 && c.cfg.DemoFallback {
		if scored {
			merged = c.scoredDemo(ctx, candText, q)
		} else {
			merged = filterResults(demoListings(), q)
		}
	}

	if scored {
		sortRanked(merged)
	}
	if len(merged) > limit {
		merged = merged[:limit]
	}

	return merged, nil
}

func (c *Coordinator) internalListings(ctx context.Context) []model.InternalListing {
	if c.deps.Listings == nil {
		return nil
	}
	listings, err := c.deps.Listings.ListInternalListings(ctx)
	if err != nil {
		c.deps.Logger.Warn("loading internal listings failed", zap.Error(err))
		return nil
	}
	return listings
}

func (c *Coordinator) externalListings(ctx context.Context, limit int, query string) []model.ExternalListing {
	listings, err := c.deps.External.Listings(ctx, limit, query)
	if err != nil {
		c.deps.Logger.Warn("loading external listings failed", zap.Error(err))
		return nil
	}
	return listings
}

func (c *Coordinator) ensureEmbedding(ctx context.Context, cand *model.CandidateProfile) []float32 {
	if len(cand.Embedding) > 0 {
		return cand.Embedding
	}
	if c.deps.Embeddings == nil {
		return nil
	}
	embedding, err := c.deps.Embeddings.EnsureCandidate(ctx, cand)
	if err != nil {
		c.deps.Logger.Debug("candidate embedding unavailable",
			zap.String("candidate_id", cand.ID.String()), zap.Error(err))
		return nil
	}
	return embedding
}

// scoreBlockingPaths runs the network-bound work: fetching external listings
// and fallback-scoring them together with internal listings lacking
// embeddings. The fetch overlaps the pending-listing scoring; externals join
// the same bounded errgroup as they arrive, so a slow provider degrades this
// request only.
func (c *Coordinator) scoreBlockingPaths(ctx context.Context, candText string, pending []model.InternalListing, externalCap int, query string) (internal, external []model.RankedListing) {
	var externalRaw []model.ExternalListing

	fetchDone := make(chan struct{})
	if c.deps.External != nil && externalCap > 0 {
		go func() {
			defer close(fetchDone)
			externalRaw = c.externalListings(ctx, externalCap, query)
		}()
	} else {
		close(fetchDone)
	}

	internal = make([]model.RankedListing, len(pending))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentScores)

	for i, l := range pending {
		g.Go(func() error {
			item := internalToResult(l, 0)
			c.applyScore(gctx, candText, &item)
			internal[i] = item
			return nil
		})
	}

	<-fetchDone
	external = make([]model.RankedListing, len(externalRaw))

	for i, e := range externalRaw {
		g.Go(func() error {
			item := externalToResult(e)
			c.applyScore(gctx, candText, &item)
			external[i] = item
			return nil
		})
	}

	_ = g.Wait()
	return internal, external
}

// scoreResults fallback-scores every result in place, preserving order.
func (c *Coordinator) scoreResults(ctx context.Context, candText string, results []model.RankedListing) []model.RankedListing {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.cfg.MaxConcurrentScores)

	for i := range results {
		g.Go(func() error {
			c.applyScore(gctx, candText, &results[i])
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func (c *Coordinator) applyScore(ctx context.Context, candText string, item *model.RankedListing) {
	listingText := projection.Listing(item.Title, item.Company, item.Description, item.Location, projection.FallbackDescriptionLimit)
	assessment := c.deps.Scorer.Score(ctx, candText, listingText)
	item.Scored = true
	item.Score = assessment.Score
	item.Reason = assessment.Reason
	item.Suggested = assessment.Suggested
}

func (c *Coordinator) scoredDemo(ctx context.Context, candText string, q BrowseQuery) []model.RankedListing {
	return c.scoreResults(ctx, candText, filterResults(demoListings(), q))
}

// rankedToResults converts vector-ranked listings and persists the
// recomputed match rows best-effort.
func (c *Coordinator) rankedToResults(ctx context.Context, candidateID uuid.UUID, ranked []ranking.Ranked) []model.RankedListing {
	out := make([]model.RankedListing, 0, len(ranked))
	for _, r := range ranked {
		item := internalToResult(r.Listing, 0)
		item.Scored = true
		item.Score = r.Score
		item.Reason = reasonSemanticMatch
		item.Suggested = r.Suggested
		out = append(out, item)

		if c.deps.Matches != nil {
			match := model.MatchResult{
				CandidateID: candidateID,
				ListingID:   r.Listing.ID,
				Score:       r.Score,
				Reason:      reasonSemanticMatch,
				Suggested:   r.Suggested,
			}
			if err := c.deps.Matches.UpsertMatch(ctx, match); err != nil {
				c.deps.Logger.Debug("match upsert failed",
					zap.String("listing_id", r.Listing.ID.String()), zap.Error(err))
			}
		}
	}
	return out
}

func degradedInternal(listings []model.InternalListing, limit int) []model.RankedListing {
	sorted := make([]model.InternalListing, len(listings))
	copy(sorted, listings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	if len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]model.RankedListing, 0, len(sorted))
	for _, l := range sorted {
		item := internalToResult(l, 0)
		item.Scored = true
		item.Score = degradedScore
		item.Reason = ReasonSemanticUnavailable
		out = append(out, item)
	}
	return out
}

func splitByEmbedding(listings []model.InternalListing) (embedded, unembedded []model.InternalListing) {
	for _, l := range listings {
		if len(l.Embedding) > 0 {
			embedded = append(embedded, l)
		} else {
			unembedded = append(unembedded, l)
		}
	}
	return embedded, unembedded
}

// sortRanked orders results by (suggested, score) descending: a suggested
// listing outranks any non-suggested one regardless of score. Ties keep the
// merge order, internal before external.
func sortRanked(results []model.RankedListing) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Suggested != results[j].Suggested {
			return results[i].Suggested
		}
		return results[i].Score > results[j].Score
	})
}

func matchesFilters(item model.RankedListing, q BrowseQuery) bool {
	if query := strings.TrimSpace(q.Query); query != "" {
		needle := strings.ToLower(query)
		if !strings.Contains(strings.ToLower(item.Title), needle) &&
			!strings.Contains(strings.ToLower(item.Description), needle) &&
			!strings.Contains(strings.ToLower(item.Company), needle) {
			return false
		}
	}

	if location := strings.TrimSpace(q.Location); location != "" {
		if !strings.Contains(strings.ToLower(item.Location), strings.ToLower(location)) {
			return false
		}
	}

	if q.RemoteOnly && (item.Remote == nil || !*item.Remote) {
		return false
	}

	return true
}

func filterResults(results []model.RankedListing, q BrowseQuery) []model.RankedListing {
	out := make([]model.RankedListing, 0, len(results))
	for _, r := range results {
		if matchesFilters(r, q) {
			out = append(out, r)
		}
	}
	return out
}

func internalToResult(l model.InternalListing, descriptionLimit int) model.RankedListing {
	desc := l.Description
	if descriptionLimit > 0 {
		if runes := []rune(desc); len(runes) > descriptionLimit {
			desc = string(runes[:descriptionLimit])
		}
	}
	remote := l.Remote
	return model.RankedListing{
		ID:          l.ID.String(),
		Source:      model.SourcePlatform,
		Title:       l.Title,
		Company:     l.Company,
		Location:    l.Location,
		Description: desc,
		Remote:      &remote,
	}
}

func externalToResult(e model.ExternalListing) model.RankedListing {
	return model.RankedListing{
		ID:          e.ID.String(),
		Source:      e.Source,
		Title:       e.Title,
		Company:     e.Company,
		Location:    e.Location,
		Description: e.Description,
		URL:         e.URL,
		SalaryMin:   e.SalaryMin,
		SalaryMax:   e.SalaryMax,
	}
}

func clampLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > maxLimit {
		return maxLimit
	}
	return limit
}
