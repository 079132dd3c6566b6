package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

const (
	adzunaSourceName = "adzuna"
	adzunaBaseURL    = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize   = 20
	adzunaTimeout    = 15 * time.Second

	defaultRegion = "us"
)

// Adzuna fetches listings from the Adzuna public API. With empty credentials
// Fetch returns (nil, nil): the source simply contributes nothing.
type Adzuna struct {
	appID   string
	appKey  string
	client  *http.Client
	baseURL string
}

// NewAdzuna constructs the adapter with a shared HTTP client.
func NewAdzuna(appID, appKey string) *Adzuna {
	return &Adzuna{
		appID:   appID,
		appKey:  appKey,
		client:  &http.Client{Timeout: adzunaTimeout},
		baseURL: adzunaBaseURL,
	}
}

func (a *Adzuna) Name() string { return adzunaSourceName }

// Configured reports whether credentials are present.
func (a *Adzuna) Configured() bool {
	return a.appID != "" && a.appKey != ""
}

type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

type adzunaResult struct {
	ID          json.Number    `json:"id"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Company     adzunaCompany  `json:"company"`
	Location    adzunaLocation `json:"location"`
	SalaryMin   float64        `json:"salary_min"`
	SalaryMax   float64        `json:"salary_max"`
	RedirectURL string         `json:"redirect_url"`
	Created     string         `json:"created"`
}

type adzunaCompany struct {
	DisplayName string `json:"display_name"`
}

type adzunaLocation struct {
	DisplayName string `json:"display_name"`
}

// Fetch retrieves the first page of results for the query and region.
func (a *Adzuna) Fetch(ctx context.Context, query, region string) ([]model.ExternalListing, error) {
	if !a.Configured() {
		return nil, nil
	}

	if region = strings.TrimSpace(region); region == "" {
		region = defaultRegion
	}

	endpoint := fmt.Sprintf("%s/%s/search/1", a.baseURL, region)

	params := url.Values{}
	params.Set("app_id", a.appID)
	params.Set("app_key", a.appKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	if query = strings.TrimSpace(query); query != "" {
		params.Set("what", query)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d", resp.StatusCode)
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	listings := make([]model.ExternalListing, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		externalID := fmt.Sprintf("%s_%s", adzunaSourceName, r.ID.String())
		if r.ID.String() == "" {
			externalID = synthesizeID(adzunaSourceName, r.RedirectURL+r.Title)
		}

		raw := map[string]any{
			"id":           r.ID.String(),
			"redirect_url": r.RedirectURL,
			"created":      r.Created,
		}

		listings = append(listings, model.ExternalListing{
			Source:      adzunaSourceName,
			ExternalID:  externalID,
			Title:       r.Title,
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			Description: r.Description,
			URL:         r.RedirectURL,
			SalaryMin:   formatSalary(r.SalaryMin),
			SalaryMax:   formatSalary(r.SalaryMax),
			RawPayload:  raw,
		})
	}

	return listings, nil
}

func formatSalary(v float64) string {
	if v <= 0 {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
