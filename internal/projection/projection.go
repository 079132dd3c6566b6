// Package projection builds canonical textual representations of candidates
// and listings. The output feeds both embedding generation and the fallback
// scorer prompt, so every field is rendered with an explicit placeholder when
// absent to keep the downstream structure stable.
package projection

import (
	"fmt"
	"strings"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

const (
	maxSkills     = 20
	maxExperience = 5

	// FallbackDescriptionLimit caps listing descriptions when the projection
	// feeds the fallback scorer prompt. Embedding input is unbounded.
	FallbackDescriptionLimit = 800

	placeholderNotSpecified = "Not specified"
	placeholderNone         = "None"
)

// Candidate renders a profile as the stable multi-line block consumed by the
// fallback scorer and the embedding provider.
func Candidate(p *model.CandidateProfile) string {
	if p == nil {
		p = &model.CandidateProfile{}
	}

	var b strings.Builder
	b.WriteString("Skills: ")
	b.WriteString(orPlaceholder(joinCapped(p.Skills, maxSkills), placeholderNotSpecified))
	b.WriteString("\nExperience: ")
	b.WriteString(orPlaceholder(renderExperience(p.Experience), placeholderNotSpecified))
	b.WriteString("\nJob fit indicators: ")
	b.WriteString(orPlaceholder(strings.Join(compact(p.FitIndicators), ", "), placeholderNotSpecified))
	b.WriteString("\nSuggested roles: ")
	b.WriteString(orPlaceholder(strings.Join(compact(p.SuggestedRoles), ", "), placeholderNone))
	b.WriteString("\nLocation: ")
	b.WriteString(orPlaceholder(strings.TrimSpace(p.Location), placeholderNotSpecified))

	return b.String()
}

// Listing renders a job posting. descriptionLimit <= 0 means unbounded, used
// for embedding input; fallback scoring passes FallbackDescriptionLimit.
func Listing(title, company, description, location string, descriptionLimit int) string {
	desc := strings.TrimSpace(description)
	if descriptionLimit > 0 {
		runes := []rune(desc)
		if len(runes) > descriptionLimit {
			desc = string(runes[:descriptionLimit])
		}
	}

	var b strings.Builder
	b.WriteString("Title: ")
	b.WriteString(orPlaceholder(strings.TrimSpace(title), placeholderNotSpecified))
	b.WriteString("\nCompany: ")
	b.WriteString(orPlaceholder(strings.TrimSpace(company), placeholderNotSpecified))
	b.WriteString("\nDescription: ")
	b.WriteString(orPlaceholder(desc, placeholderNotSpecified))
	b.WriteString("\nLocation: ")
	b.WriteString(orPlaceholder(location, placeholderNotSpecified))

	return b.String()
}

// InternalListing projects a platform listing for embedding input.
func InternalListing(l *model.InternalListing) string {
	if l == nil {
		l = &model.InternalListing{}
	}
	loc := l.Location
	if l.Remote && loc == "" {
		loc = "Remote"
	}
	return Listing(l.Title, l.Company, l.Description, loc, 0)
}

func renderExperience(entries []model.Experience) string {
	if len(entries) > maxExperience {
		entries = entries[:maxExperience]
	}

	parts := make([]string, 0, len(entries))
	for _, e := range entries {
		title := strings.TrimSpace(e.Title)
		company := strings.TrimSpace(e.Company)
		if title == "" && company == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s at %s", title, company))
	}

	return strings.Join(parts, "; ")
}

func joinCapped(items []string, limit int) string {
	items = compact(items)
	if len(items) > limit {
		items = items[:limit]
	}
	return strings.Join(items, ", ")
}

func compact(items []string) []string {
	out := make([]string, 0, len(items))
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func orPlaceholder(s, placeholder string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return placeholder
	}
	return s
}
