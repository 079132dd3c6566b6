package projection

import (
	"fmt"
	"strings"
	"testing"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

func TestCandidateRendersAllFields(t *testing.T) {
	p := &model.CandidateProfile{
		Skills:   []string{"Go", "Postgres"},
		Location: "Berlin",
		Experience: []model.Experience{
			{Title: "Backend Engineer", Company: "Acme"},
			{Title: "SRE", Company: "Globex"},
		},
		FitIndicators:  []string{"Strong backend background"},
		SuggestedRoles: []string{"Platform Engineer"},
	}

	got := Candidate(p)

	if !strings.Contains(got, "Skills: Go, Postgres") {
		t.Fatalf("missing skills line: %s", got)
	}
	if !strings.Contains(got, "Experience: Backend Engineer at Acme; SRE at Globex") {
		t.Fatalf("missing experience line: %s", got)
	}
	if !strings.Contains(got, "Job fit indicators: Strong backend background") {
		t.Fatalf("missing fit indicators line: %s", got)
	}
	if !strings.Contains(got, "Suggested roles: Platform Engineer") {
		t.Fatalf("missing suggested roles line: %s", got)
	}
	if !strings.Contains(got, "Location: Berlin") {
		t.Fatalf("missing location line: %s", got)
	}
}

func TestCandidateEmptyUsesPlaceholders(t *testing.T) {
	got := Candidate(&model.CandidateProfile{})

	if !strings.Contains(got, "Skills: Not specified") {
		t.Fatalf("expected skills placeholder: %s", got)
	}
	if !strings.Contains(got, "Suggested roles: None") {
		t.Fatalf("expected roles placeholder: %s", got)
	}
	if !strings.Contains(got, "Location: Not specified") {
		t.Fatalf("expected location placeholder: %s", got)
	}
}

func TestCandidateNilSafe(t *testing.T) {
	if got := Candidate(nil); got == "" {
		t.Fatalf("expected non-empty projection for nil profile")
	}
}

func TestCandidateCapsSkillsAndExperience(t *testing.T) {
	p := &model.CandidateProfile{}
	for i := 0; i < 30; i++ {
		p.Skills = append(p.Skills, fmt.Sprintf("skill-%d", i))
		p.Experience = append(p.Experience, model.Experience{
			Title:   fmt.Sprintf("role-%d", i),
			Company: "Acme",
		})
	}

	got := Candidate(p)

	if strings.Contains(got, "skill-20") {
		t.Fatalf("expected skills capped at 20: %s", got)
	}
	if !strings.Contains(got, "skill-19") {
		t.Fatalf("expected first 20 skills kept: %s", got)
	}
	if strings.Contains(got, "role-5") {
		t.Fatalf("expected experience capped at 5: %s", got)
	}
}

func TestListingTruncatesDescription(t *testing.T) {
	long := strings.Repeat("x", 1000)

	got := Listing("Engineer", "Acme", long, "Berlin", 800)

	if strings.Contains(got, strings.Repeat("x", 801)) {
		t.Fatalf("expected description truncated to 800 runes")
	}
	if !strings.Contains(got, strings.Repeat("x", 800)) {
		t.Fatalf("expected 800 runes of description kept")
	}
}

func TestListingUnboundedDescription(t *testing.T) {
	long := strings.Repeat("x", 1000)

	got := Listing("Engineer", "Acme", long, "Berlin", 0)

	if !strings.Contains(got, long) {
		t.Fatalf("expected full description without limit")
	}
}

func TestInternalListingRemoteLocation(t *testing.T) {
	l := &model.InternalListing{Title: "Engineer", Company: "Acme", Remote: true}

	got := InternalListing(l)

	if !strings.Contains(got, "Location: Remote") {
		t.Fatalf("expected remote listing without location to render Remote: %s", got)
	}
}
