// Package ranking orders internal listings by cosine distance between the
// candidate's embedding and each listing's embedding.
package ranking

import (
	"math"
	"sort"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

// suggestedDistance marks a listing as "suggested for you" when its cosine
// distance to the candidate falls below it.
const suggestedDistance = 0.25

// scoreOffset compensates for semantically related but non-identical text
// typically landing in the 0.1-0.4 distance band, which would otherwise
// under-represent good matches on the raw (1-d)*100 scale.
const scoreOffset = 10

// Ranked pairs a listing with its computed match score.
type Ranked struct {
	Listing   model.InternalListing
	Distance  float64
	Score     int
	Suggested bool
}

// Rank scores every listing that carries an embedding and returns them
// ordered best-first, capped at limit (limit <= 0 means no cap). Listings
// without an embedding are excluded; they take the fallback scoring path
// instead. Ties keep the input order so results stay deterministic.
func Rank(candidate []float32, listings []model.InternalListing, limit int) []Ranked {
	if len(candidate) == 0 {
		return nil
	}

	ranked := make([]Ranked, 0, len(listings))
	for _, l := range listings {
		if len(l.Embedding) != len(candidate) {
			continue
		}
		d := CosineDistance(candidate, l.Embedding)
		ranked = append(ranked, Ranked{
			Listing:   l,
			Distance:  d,
			Score:     Score(d),
			Suggested: d < suggestedDistance,
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Distance < ranked[j].Distance
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}

// Score converts a cosine distance into the bounded [0,100] match score.
func Score(distance float64) int {
	score := int(math.Round((1-distance)*100)) + scoreOffset
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// CosineDistance returns 1 minus the cosine of the angle between a and b.
// Zero-magnitude vectors are treated as maximally dissimilar (distance 1).
func CosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 1
	}

	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
