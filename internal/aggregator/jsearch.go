package aggregator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/recruiter-solutions/match-engine/internal/model"
)

const (
	jsearchSourceName = "jsearch"
	jsearchBaseURL    = "https://jsearch.p.rapidapi.com"
	jsearchHost       = "jsearch.p.rapidapi.com"
	jsearchTimeout    = 20 * time.Second

	jsearchDescriptionLimit = 5000
	defaultJSearchQuery     = "software engineer"
)

// JSearch fetches listings from the JSearch RapidAPI, which aggregates
// LinkedIn, Indeed, Glassdoor, and ZipRecruiter postings via Google for Jobs.
type JSearch struct {
	apiKey  string
	client  *http.Client
	baseURL string
}

// NewJSearch constructs the adapter.
func NewJSearch(apiKey string) *JSearch {
	return &JSearch{
		apiKey:  apiKey,
		client:  &http.Client{Timeout: jsearchTimeout},
		baseURL: jsearchBaseURL,
	}
}

func (j *JSearch) Name() string { return jsearchSourceName }

// Configured reports whether a RapidAPI key is present.
func (j *JSearch) Configured() bool {
	return j.apiKey != ""
}

type jsearchResponse struct {
	Status string           `json:"status"`
	Data   []map[string]any `json:"data"`
}

// jsearchItem names the subset of the loosely typed provider payload the
// engine consumes. WeaklyTypedInput tolerates numbers arriving as strings
// and vice versa.
type jsearchItem struct {
	JobID          string  `json:"job_id"`
	JobTitle       string  `json:"job_title"`
	EmployerName   string  `json:"employer_name"`
	JobCity        string  `json:"job_city"`
	JobCountry     string  `json:"job_country"`
	JobDescription string  `json:"job_description"`
	JobApplyLink   string  `json:"job_apply_link"`
	JobGoogleLink  string  `json:"job_google_link"`
	JobMinSalary   float64 `json:"job_min_salary"`
	JobMaxSalary   float64 `json:"job_max_salary"`
}

// Fetch retrieves one page of search results for the query.
func (j *JSearch) Fetch(ctx context.Context, query, region string) ([]model.ExternalListing, error) {
	if !j.Configured() {
		return nil, nil
	}

	if query = strings.TrimSpace(query); query == "" {
		query = defaultJSearchQuery
	}
	if region = strings.TrimSpace(region); region == "" {
		region = defaultRegion
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("page", "1")
	params.Set("num_pages", "1")
	params.Set("country", region)
	params.Set("date_posted", "all")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("x-rapidapi-host", jsearchHost)
	req.Header.Set("x-rapidapi-key", j.apiKey)

	resp, err := j.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jsearch returned %d", resp.StatusCode)
	}

	var apiResp jsearchResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}
	if apiResp.Status != "OK" {
		return nil, fmt.Errorf("jsearch status %q", apiResp.Status)
	}

	var item jsearchItem
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &item,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, fmt.Errorf("build decoder: %w", err)
	}

	listings := make([]model.ExternalListing, 0, len(apiResp.Data))
	for _, rawItem := range apiResp.Data {
		item = jsearchItem{}
		if err := decoder.Decode(rawItem); err != nil {
			continue
		}

		listings = append(listings, j.normalize(item, rawItem))
	}

	return listings, nil
}

func (j *JSearch) normalize(item jsearchItem, rawItem map[string]any) model.ExternalListing {
	rawID := item.JobID
	if rawID == "" {
		rawID = item.JobApplyLink + item.JobTitle + item.EmployerName
	}

	location := item.JobCity
	if location == "" {
		location = item.JobCountry
	}

	jobURL := item.JobApplyLink
	if jobURL == "" {
		jobURL = item.JobGoogleLink
	}

	description := item.JobDescription
	if runes := []rune(description); len(runes) > jsearchDescriptionLimit {
		description = string(runes[:jsearchDescriptionLimit])
	}

	// Raw payload keeps everything except the bulky description, which is
	// already stored in its own column.
	raw := make(map[string]any, len(rawItem))
	for k, v := range rawItem {
		if k == "job_description" {
			continue
		}
		raw[k] = v
	}

	return model.ExternalListing{
		Source:      jsearchSourceName,
		ExternalID:  synthesizeID(jsearchSourceName, rawID),
		Title:       item.JobTitle,
		Company:     item.EmployerName,
		Location:    location,
		Description: description,
		URL:         jobURL,
		SalaryMin:   formatSalary(item.JobMinSalary),
		SalaryMax:   formatSalary(item.JobMaxSalary),
		RawPayload:  raw,
	}
}
