package matching

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

type stubCandidates struct {
	candidate *model.CandidateProfile
	err       error
}

func (s *stubCandidates) GetCandidate(_ context.Context, _ uuid.UUID) (*model.CandidateProfile, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.candidate, nil
}

type stubListings struct {
	listings []model.InternalListing
	err      error
}

func (s *stubListings) ListInternalListings(_ context.Context) ([]model.InternalListing, error) {
	return s.listings, s.err
}

type stubExternal struct {
	listings  []model.ExternalListing
	err       error
	lastQuery string
}

func (s *stubExternal) Listings(_ context.Context, _ int, query string) ([]model.ExternalListing, error) {
	s.lastQuery = query
	return s.listings, s.err
}

type stubMatches struct {
	upserts []model.MatchResult
}

func (s *stubMatches) UpsertMatch(_ context.Context, m model.MatchResult) error {
	s.upserts = append(s.upserts, m)
	return nil
}

type stubScorer struct {
	mu         sync.Mutex
	assessment Assessment
	calls      int
}

func (s *stubScorer) Score(_ context.Context, _, _ string) Assessment {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.assessment
}

func (s *stubScorer) Configured() bool { return true }

func testCandidate(embedding []float32) *model.CandidateProfile {
	return &model.CandidateProfile{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		FullName:  "Test Candidate",
		Skills:    []string{"Go", "Postgres"},
		Embedding: embedding,
	}
}

func internalListing(title string, embedding []float32, createdAt time.Time) model.InternalListing {
	return model.InternalListing{
		ID:          uuid.New(),
		EmployerID:  uuid.New(),
		Title:       title,
		Company:     "Acme",
		Description: "Backend work with Go and Postgres.",
		Embedding:   embedding,
		CreatedAt:   createdAt,
	}
}

func TestRecommendVectorPathOrdersSuggestedFirst(t *testing.T) {
	// Candidate vector along the first axis; listing A is nearly parallel
	// (suggested), listing B is orthogonal (low score, not suggested).
	cand := testCandidate([]float32{1, 0, 0})
	near := internalListing("Close Match", []float32{0.99, 0.1, 0}, time.Now())
	far := internalListing("Far Match", []float32{0, 1, 0}, time.Now())

	matches := &stubMatches{}
	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{candidate: cand},
		Listings:   &stubListings{listings: []model.InternalListing{far, near}},
		Matches:    matches,
		Scorer:     &stubScorer{},
		Logger:     zap.NewNop(),
	}, Config{})

	results, err := c.Recommend(context.Background(), cand.ID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if results[0].Title != "Close Match" {
		t.Fatalf("expected suggested listing first, got %s", results[0].Title)
	}
	if !results[0].Suggested {
		t.Fatalf("expected near-parallel listing to be suggested")
	}
	if results[1].Suggested {
		t.Fatalf("expected orthogonal listing to not be suggested")
	}
	if results[0].Score <= results[1].Score {
		t.Fatalf("expected descending scores, got %d then %d", results[0].Score, results[1].Score)
	}
	if len(matches.upserts) != 2 {
		t.Fatalf("expected 2 persisted matches, got %d", len(matches.upserts))
	}
}

func TestRecommendDegradedWithoutEmbedding(t *testing.T) {
	cand := testCandidate(nil)
	older := internalListing("Older", nil, time.Now().Add(-time.Hour))
	newer := internalListing("Newer", nil, time.Now())

	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{candidate: cand},
		Listings:   &stubListings{listings: []model.InternalListing{older, newer}},
		Scorer:     &stubScorer{},
		Logger:     zap.NewNop(),
	}, Config{})

	results, err := c.Recommend(context.Background(), cand.ID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for _, r := range results {
		if r.Score != 50 {
			t.Fatalf("expected fixed score 50, got %d for %s", r.Score, r.Title)
		}
		if r.Reason != ReasonSemanticUnavailable {
			t.Fatalf("unexpected reason: %s", r.Reason)
		}
	}
	if results[0].Title != "Newer" {
		t.Fatalf("expected most recent listing first, got %s", results[0].Title)
	}
}

func TestRecommendFallbackScoresUnembeddedListings(t *testing.T) {
	cand := testCandidate([]float32{1, 0, 0})
	embedded := internalListing("Embedded", []float32{1, 0, 0}, time.Now())
	unembedded := internalListing("Pending Embedding", nil, time.Now())

	scorer := &stubScorer{assessment: Assessment{Score: 64, Reason: "Partial overlap"}}
	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{candidate: cand},
		Listings:   &stubListings{listings: []model.InternalListing{embedded, unembedded}},
		Scorer:     scorer,
		Logger:     zap.NewNop(),
	}, Config{})

	results, err := c.Recommend(context.Background(), cand.ID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	if scorer.calls != 1 {
		t.Fatalf("expected exactly one fallback score call, got %d", scorer.calls)
	}

	var sawFallback bool
	for _, r := range results {
		if r.Title == "Pending Embedding" {
			sawFallback = true
			if r.Score != 64 {
				t.Fatalf("expected fallback score 64, got %d", r.Score)
			}
		}
	}
	if !sawFallback {
		t.Fatalf("expected unembedded listing in results")
	}
}

func TestRecommendCapsFallbackCalls(t *testing.T) {
	cand := testCandidate([]float32{1, 0})

	var listings []model.InternalListing
	for i := 0; i < 100; i++ {
		listings = append(listings, internalListing("Pending", nil, time.Now()))
	}

	scorer := &stubScorer{assessment: Assessment{Score: 40, Reason: "Some overlap"}}
	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{candidate: cand},
		Listings:   &stubListings{listings: listings},
		Scorer:     scorer,
		Logger:     zap.NewNop(),
	}, Config{})

	if _, err := c.Recommend(context.Background(), cand.ID, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if scorer.calls != 5 {
		t.Fatalf("expected fallback calls capped at the limit, got %d", scorer.calls)
	}
}

func TestRecommendOverlapsFetchWithScoring(t *testing.T) {
	cand := testCandidate([]float32{1, 0})
	pending := internalListing("Pending", nil, time.Now())

	// Fetch and scoring each wait for the other to start: the request only
	// completes if the two paths actually run concurrently.
	fetchStarted := make(chan struct{})
	scoreStarted := make(chan struct{})

	external := &blockingExternal{started: fetchStarted, wait: scoreStarted}
	scorer := &blockingScorer{started: scoreStarted, wait: fetchStarted}

	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{candidate: cand},
		Listings:   &stubListings{listings: []model.InternalListing{pending}},
		External:   external,
		Scorer:     scorer,
		Logger:     zap.NewNop(),
	}, Config{RequestTimeout: 2 * time.Second})

	if _, err := c.Recommend(context.Background(), cand.ID, 5); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !external.sawScoring {
		t.Fatalf("expected scoring to start while the external fetch was in flight")
	}
}

type blockingExternal struct {
	started    chan struct{}
	wait       chan struct{}
	sawScoring bool
}

func (b *blockingExternal) Listings(ctx context.Context, _ int, _ string) ([]model.ExternalListing, error) {
	close(b.started)
	select {
	case <-b.wait:
		b.sawScoring = true
	case <-ctx.Done():
	}
	return nil, nil
}

type blockingScorer struct {
	started chan struct{}
	wait    chan struct{}
}

func (b *blockingScorer) Score(ctx context.Context, _, _ string) Assessment {
	close(b.started)
	select {
	case <-b.wait:
	case <-ctx.Done():
	}
	return Assessment{Score: 40, Reason: "Some overlap"}
}

func (b *blockingScorer) Configured() bool { return true }

func TestRecommendMergesExternal(t *testing.T) {
	cand := testCandidate([]float32{1, 0})
	internal := internalListing("Internal", []float32{1, 0}, time.Now())
	external := &stubExternal{listings: []model.ExternalListing{{
		ID:         uuid.New(),
		Source:     "adzuna",
		ExternalID: "adzuna_1",
		Title:      "External Role",
	}}}

	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{candidate: cand},
		Listings:   &stubListings{listings: []model.InternalListing{internal}},
		External:   external,
		Scorer:     &stubScorer{assessment: Assessment{Score: 40, Reason: "Some overlap"}},
		Logger:     zap.NewNop(),
	}, Config{})

	results, err := c.Recommend(context.Background(), cand.ID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected internal plus external, got %d", len(results))
	}

	var sawExternal bool
	for _, r := range results {
		if r.Source == "adzuna" {
			sawExternal = true
			if r.Score != 40 {
				t.Fatalf("expected external fallback score 40, got %d", r.Score)
			}
		}
	}
	if !sawExternal {
		t.Fatalf("expected external listing in merged results")
	}
}

func TestRecommendDemoFallbackWhenEmpty(t *testing.T) {
	cand := testCandidate(nil)
	scorer := &stubScorer{assessment: Assessment{Score: 55, Reason: "Demo scored"}}

	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{candidate: cand},
		Listings:   &stubListings{},
		Scorer:     scorer,
		Logger:     zap.NewNop(),
	}, Config{DemoFallback: true})

	results, err := c.Recommend(context.Background(), cand.ID, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 5 {
		t.Fatalf("expected 5 demo listings, got %d", len(results))
	}
	for _, r := range results {
		if r.Source != model.SourceDemo {
			t.Fatalf("expected demo source, got %s", r.Source)
		}
		if r.Score != 55 {
			t.Fatalf("expected demo listings scored, got %d", r.Score)
		}
	}
}

func TestRecommendUnknownCandidate(t *testing.T) {
	notFound := errors.New("not found")
	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{err: notFound},
		Listings:   &stubListings{},
		Scorer:     &stubScorer{},
		Logger:     zap.NewNop(),
	}, Config{})

	if _, err := c.Recommend(context.Background(), uuid.New(), 10); !errors.Is(err, notFound) {
		t.Fatalf("expected candidate lookup error, got %v", err)
	}
}

func TestRecommendHonorsLimit(t *testing.T) {
	cand := testCandidate([]float32{1, 0})
	var listings []model.InternalListing
	for i := 0; i < 10; i++ {
		listings = append(listings, internalListing("Listing", []float32{1, 0}, time.Now()))
	}

	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{candidate: cand},
		Listings:   &stubListings{listings: listings},
		Scorer:     &stubScorer{},
		Logger:     zap.NewNop(),
	}, Config{})

	results, err := c.Recommend(context.Background(), cand.ID, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
}

func TestBrowseFiltersByQuery(t *testing.T) {
	listings := []model.InternalListing{
		internalListing("Go Engineer", nil, time.Now()),
		internalListing("Product Manager", nil, time.Now()),
	}

	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{},
		Listings:   &stubListings{listings: listings},
		Scorer:     &stubScorer{},
		Logger:     zap.NewNop(),
	}, Config{})

	results, err := c.Browse(context.Background(), BrowseQuery{Query: "engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 filtered result, got %d", len(results))
	}
	if results[0].Title != "Go Engineer" {
		t.Fatalf("unexpected result: %s", results[0].Title)
	}
	if results[0].Scored {
		t.Fatalf("anonymous browse must not score results")
	}
}

func TestBrowseRemoteOnly(t *testing.T) {
	remote := internalListing("Remote Role", nil, time.Now())
	remote.Remote = true
	onsite := internalListing("Onsite Role", nil, time.Now())

	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{},
		Listings:   &stubListings{listings: []model.InternalListing{remote, onsite}},
		Scorer:     &stubScorer{},
		Logger:     zap.NewNop(),
	}, Config{})

	results, err := c.Browse(context.Background(), BrowseQuery{RemoteOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 1 || results[0].Title != "Remote Role" {
		t.Fatalf("expected only the remote listing, got %+v", results)
	}
}

func TestBrowseScoresForKnownCandidate(t *testing.T) {
	cand := testCandidate(nil)
	listings := []model.InternalListing{internalListing("Go Engineer", nil, time.Now())}
	scorer := &stubScorer{assessment: Assessment{Score: 77, Reason: "Good fit", Suggested: true}}

	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{candidate: cand},
		Listings:   &stubListings{listings: listings},
		Scorer:     scorer,
		Logger:     zap.NewNop(),
	}, Config{})

	results, err := c.Browse(context.Background(), BrowseQuery{CandidateID: &cand.ID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].Score != 77 || !results[0].Suggested {
		t.Fatalf("expected scored result, got %+v", results[0])
	}
}

func TestBrowseUnknownCandidateReturnsUnscored(t *testing.T) {
	id := uuid.New()
	listings := []model.InternalListing{internalListing("Go Engineer", nil, time.Now())}
	scorer := &stubScorer{}

	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{err: errors.New("not found")},
		Listings:   &stubListings{listings: listings},
		Scorer:     scorer,
		Logger:     zap.NewNop(),
	}, Config{})

	results, err := c.Browse(context.Background(), BrowseQuery{CandidateID: &id})
	if err != nil {
		t.Fatalf("expected graceful degradation, got %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if scorer.calls != 0 {
		t.Fatalf("expected no scoring for unknown candidate, got %d calls", scorer.calls)
	}
}

func TestBrowseQueryTriggersExternalRefresh(t *testing.T) {
	external := &stubExternal{}

	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{},
		Listings:   &stubListings{},
		External:   external,
		Scorer:     &stubScorer{},
		Logger:     zap.NewNop(),
	}, Config{})

	if _, err := c.Browse(context.Background(), BrowseQuery{Query: "golang", IncludeExternal: true}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if external.lastQuery != "golang" {
		t.Fatalf("expected query passed to external lister, got %q", external.lastQuery)
	}
}

func TestBrowseDemoFallbackFiltered(t *testing.T) {
	c := NewCoordinator(Deps{
		Candidates: &stubCandidates{},
		Listings:   &stubListings{},
		Scorer:     &stubScorer{},
		Logger:     zap.NewNop(),
	}, Config{DemoFallback: true})

	results, err := c.Browse(context.Background(), BrowseQuery{Query: "engineer"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(results) != 3 {
		t.Fatalf("expected 3 demo engineer listings, got %d", len(results))
	}
	for _, r := range results {
		if r.Source != model.SourceDemo {
			t.Fatalf("expected demo listings only, got %s", r.Source)
		}
	}
}

func TestSortRankedSuggestedBeatsScore(t *testing.T) {
	results := []model.RankedListing{
		{ID: "high", Score: 95, Suggested: false},
		{ID: "suggested", Score: 70, Suggested: true},
	}

	sortRanked(results)

	if results[0].ID != "suggested" {
		t.Fatalf("expected suggested listing first, got %s", results[0].ID)
	}
}
