package ranking

import (
	"math"
	"testing"

	"github.com/google/uuid"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

func TestScoreBounds(t *testing.T) {
	cases := []struct {
		distance float64
		want     int
	}{
		{0.0, 100},  // (1-0)*100+10 clamps to 100
		{0.1, 100},  // 90+10 hits the upper bound exactly
		{0.25, 85},
		{0.5, 60},
		{0.95, 15},  // raw 5+10, no clamping needed
		{1.0, 10},
		{1.1, 0},    // raw 0, lower clamp engages past this point
		{1.5, 0},
		{2.0, 0},
	}

	for _, c := range cases {
		got := Score(c.distance)
		if got != c.want {
			t.Errorf("Score(%v) = %d, want %d", c.distance, got, c.want)
		}
		if got < 0 || got > 100 {
			t.Errorf("Score(%v) = %d outside [0,100]", c.distance, got)
		}
	}
}

func TestCosineDistance(t *testing.T) {
	identical := CosineDistance([]float32{1, 0}, []float32{1, 0})
	if math.Abs(identical) > 1e-9 {
		t.Errorf("identical vectors: distance = %v, want 0", identical)
	}

	orthogonal := CosineDistance([]float32{1, 0}, []float32{0, 1})
	if math.Abs(orthogonal-1) > 1e-9 {
		t.Errorf("orthogonal vectors: distance = %v, want 1", orthogonal)
	}

	opposite := CosineDistance([]float32{1, 0}, []float32{-1, 0})
	if math.Abs(opposite-2) > 1e-9 {
		t.Errorf("opposite vectors: distance = %v, want 2", opposite)
	}

	zero := CosineDistance([]float32{0, 0}, []float32{1, 0})
	if zero != 1 {
		t.Errorf("zero vector: distance = %v, want 1", zero)
	}
}

func TestRankSuggestedThreshold(t *testing.T) {
	candidate := []float32{1, 0}
	listings := []model.InternalListing{
		listingWithEmbedding("near", []float32{1, 0.1}),   // d ≈ 0.005
		listingWithEmbedding("far", []float32{0.5, 1}),    // d ≈ 0.553
	}

	ranked := Rank(candidate, listings, 0)
	if len(ranked) != 2 {
		t.Fatalf("expected 2 ranked listings, got %d", len(ranked))
	}

	for _, r := range ranked {
		want := r.Distance < 0.25
		if r.Suggested != want {
			t.Errorf("listing %s: suggested = %v with distance %v", r.Listing.Title, r.Suggested, r.Distance)
		}
	}

	if ranked[0].Listing.Title != "near" {
		t.Errorf("expected closest listing first, got %s", ranked[0].Listing.Title)
	}
}

func TestRankSkipsListingsWithoutEmbedding(t *testing.T) {
	candidate := []float32{1, 0, 0}
	listings := []model.InternalListing{
		{ID: uuid.New(), Title: "no embedding"},
		listingWithEmbedding("with embedding", []float32{1, 0, 0}),
		{ID: uuid.New(), Title: "wrong dimensions", Embedding: []float32{1, 0}},
	}

	ranked := Rank(candidate, listings, 0)
	if len(ranked) != 1 {
		t.Fatalf("expected 1 ranked listing, got %d", len(ranked))
	}
	if ranked[0].Listing.Title != "with embedding" {
		t.Errorf("unexpected listing ranked: %s", ranked[0].Listing.Title)
	}
}

func TestRankStableTieBreak(t *testing.T) {
	candidate := []float32{1, 0}
	listings := []model.InternalListing{
		listingWithEmbedding("first", []float32{1, 0}),
		listingWithEmbedding("second", []float32{1, 0}),
		listingWithEmbedding("third", []float32{1, 0}),
	}

	ranked := Rank(candidate, listings, 0)
	order := []string{"first", "second", "third"}
	for i, want := range order {
		if ranked[i].Listing.Title != want {
			t.Errorf("position %d: got %s, want %s", i, ranked[i].Listing.Title, want)
		}
	}
}

func TestRankLimit(t *testing.T) {
	candidate := []float32{1, 0}
	listings := []model.InternalListing{
		listingWithEmbedding("a", []float32{1, 0}),
		listingWithEmbedding("b", []float32{1, 0.2}),
		listingWithEmbedding("c", []float32{1, 0.5}),
	}

	ranked := Rank(candidate, listings, 2)
	if len(ranked) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(ranked))
	}
}

func TestRankEmptyCandidate(t *testing.T) {
	if got := Rank(nil, []model.InternalListing{listingWithEmbedding("a", []float32{1})}, 0); got != nil {
		t.Fatalf("expected nil for candidate without embedding, got %v", got)
	}
}

func listingWithEmbedding(title string, embedding []float32) model.InternalListing {
	return model.InternalListing{ID: uuid.New(), Title: title, Embedding: embedding}
}
