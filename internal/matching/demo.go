package matching

import "github.com/recruiter-solutions/match-engine/internal/model"

// demoCompany labels the hand-curated fallback listings shown when no real
// listings exist anywhere (fresh install, no sources configured).
const demoCompany = "Demo Company"

func demoListings() []model.RankedListing {
	remote := true
	onSite := false
	return []model.RankedListing{
		{
			ID:          "demo-senior-software-engineer",
			Source:      model.SourceDemo,
			Title:       "Senior Software Engineer",
			Company:     demoCompany,
			Location:    "San Francisco, CA",
			Description: "Build scalable systems. 5+ years. Python, Go, or Node.",
			Remote:      &remote,
		},
		{
			ID:          "demo-frontend-developer",
			Source:      model.SourceDemo,
			Title:       "Frontend Developer",
			Company:     demoCompany,
			Location:    "New York, NY",
			Description: "React/Next.js. Design systems and accessibility.",
			Remote:      &onSite,
		},
		{
			ID:          "demo-data-engineer",
			Source:      model.SourceDemo,
			Title:       "Data Engineer",
			Company:     demoCompany,
			Location:    "Remote",
			Description: "ETL, data pipelines, Spark/SQL. Remote-first.",
			Remote:      &remote,
		},
		{
			ID:          "demo-product-manager",
			Source:      model.SourceDemo,
			Title:       "Product Manager",
			Company:     demoCompany,
			Location:    "Austin, TX",
			Description: "Own roadmap and stakeholder alignment. 3+ years PM.",
			Remote:      &remote,
		},
		{
			ID:          "demo-devops-engineer",
			Source:      model.SourceDemo,
			Title:       "DevOps Engineer",
			Company:     demoCompany,
			Location:    "Seattle, WA",
			Description: "Kubernetes, AWS/GCP, CI/CD.",
			Remote:      &onSite,
		},
	}
}
