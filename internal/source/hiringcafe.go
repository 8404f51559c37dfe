package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/ratelimit"
)

const hiringCafeURL = "https://hiring.cafe/api/search-jobs"

// hiringCafeDateFilters maps a user-facing window to the API's day count. The
// API dates postings by fetch time, so each window carries a buffer.
var hiringCafeDateFilters = map[string]int{
	"1_day":    2,
	"3_days":   4,
	"1_week":   14,
	"1_month":  61,
	"2_months": 91,
	"3_months": 121,
	"6_months": 211,
	"1_year":   750,
	"2_years":  1080,
}

// ValidHiringCafeDateFilter reports whether f is a known date window.
func ValidHiringCafeDateFilter(f string) bool {
	_, ok := hiringCafeDateFilters[f]
	return ok
}

// HiringCafeRecord is one search result from hiring.cafe.
type HiringCafeRecord struct {
	ID          flexString    `json:"id"`
	ObjectID    flexString    `json:"objectID"`
	ApplyURL    string        `json:"apply_url"`
	Info        hcInfo        `json:"job_information"`
	JobData     hcJobData     `json:"v5_processed_job_data"`
	CompanyData hcCompanyData `json:"v5_processed_company_data"`
}

type hcInfo struct {
	Title       string `json:"title"`
	JobTitleRaw string `json:"job_title_raw"`
	Description string `json:"description"`
}

type hcJobData struct {
	CompanyName          string   `json:"company_name"`
	CompanyWebsite       string   `json:"company_website"`
	CompanyTagline       string   `json:"company_tagline"`
	Location             string   `json:"formatted_workplace_location"`
	WorkplaceCities      []string `json:"workplace_cities"`
	EstimatedPublishDate string   `json:"estimated_publish_date"`
	Commitment           textList `json:"commitment"`
	WorkplaceType        string   `json:"workplace_type"`
	Currency             string   `json:"listed_compensation_currency"`
	Frequency            string   `json:"listed_compensation_frequency"`
	SeniorityLevel       string   `json:"seniority_level"`
	JobCategory          string   `json:"job_category"`
	TechnicalTools       []string `json:"technical_tools"`
	LanguageRequirements textList `json:"language_requirements"`
	RoleActivities       textList `json:"role_activities"`

	YearlyMin   *float64 `json:"yearly_min_compensation"`
	YearlyMax   *float64 `json:"yearly_max_compensation"`
	MonthlyMin  *float64 `json:"monthly_min_compensation"`
	MonthlyMax  *float64 `json:"monthly_max_compensation"`
	WeeklyMin   *float64 `json:"weekly_min_compensation"`
	WeeklyMax   *float64 `json:"weekly_max_compensation"`
	DailyMin    *float64 `json:"daily_min_compensation"`
	DailyMax    *float64 `json:"daily_max_compensation"`
	HourlyMin   *float64 `json:"hourly_min_compensation"`
	HourlyMax   *float64 `json:"hourly_max_compensation"`
	BiWeeklyMin *float64 `json:"bi-weekly_min_compensation"`
	BiWeeklyMax *float64 `json:"bi-weekly_max_compensation"`
}

type hcCompanyData struct {
	Name         string     `json:"name"`
	Website      string     `json:"website"`
	ImageURL     string     `json:"image_url"`
	Tagline      string     `json:"tagline"`
	Industries   textList   `json:"industries"`
	Activities   textList   `json:"activities"`
	NumEmployees flexString `json:"num_employees"`
	Revenue      flexString `json:"latest_revenue"`
}

func (HiringCafeRecord) sourceRecord() {}

func (r HiringCafeRecord) JobRecord() model.JobRecord {
	jd, cd := r.JobData, r.CompanyData

	var id string
	if raw := firstNonEmpty(string(r.ID), string(r.ObjectID)); raw != "" {
		id = "hc-" + raw
	}

	location := jd.Location
	if location == "" {
		location = strings.Join(jd.WorkplaceCities, ", ")
	}

	commitment := make([]string, len(jd.Commitment))
	for i, c := range jd.Commitment {
		commitment[i] = strings.ToLower(c)
	}

	return model.JobRecord{
		ID:                   id,
		Site:                 "hiring_cafe",
		JobURL:               r.ApplyURL,
		JobURLDirect:         r.ApplyURL,
		Title:                firstNonEmpty(r.Info.Title, r.Info.JobTitleRaw),
		Company:              firstNonEmpty(jd.CompanyName, cd.Name),
		Location:             location,
		DatePosted:           datePart(jd.EstimatedPublishDate),
		JobType:              strings.Join(commitment, "; "),
		Interval:             jd.Frequency,
		MinAmount:            firstAmount(jd.YearlyMin, jd.MonthlyMin, jd.WeeklyMin, jd.DailyMin, jd.HourlyMin, jd.BiWeeklyMin),
		MaxAmount:            firstAmount(jd.YearlyMax, jd.MonthlyMax, jd.WeeklyMax, jd.DailyMax, jd.HourlyMax, jd.BiWeeklyMax),
		Currency:             jd.Currency,
		IsRemote:             boolPtr(strings.EqualFold(jd.WorkplaceType, "remote")),
		JobLevel:             jd.SeniorityLevel,
		JobFunction:          jd.JobCategory,
		Description:          extractText(r.Info.Description),
		CompanyURL:           firstNonEmpty(cd.Website, jd.CompanyWebsite),
		CompanyLogo:          cd.ImageURL,
		CompanyNumEmployees:  string(cd.NumEmployees),
		CompanyRevenue:       string(cd.Revenue),
		CompanyDescription:   firstNonEmpty(cd.Tagline, jd.CompanyTagline),
		CompanyIndustries:    cd.Industries.join("; "),
		CompanyActivities:    cd.Activities.join("; "),
		Skills:               strings.Join(jd.TechnicalTools, ", "),
		WorkFromHomeType:     jd.WorkplaceType,
		LanguageRequirements: jd.LanguageRequirements.join("; "),
		RoleActivities:       jd.RoleActivities.join("; "),
	}
}

// firstAmount returns the first set, non-zero amount.
func firstAmount(vals ...*float64) *float64 {
	for _, v := range vals {
		if v != nil && *v != 0 {
			return v
		}
	}
	return nil
}

// HiringCafeConfig configures the hiring.cafe client.
type HiringCafeConfig struct {
	URL        string
	Query      string
	DateFilter string
	MaxPages   int
	PageSize   int
	Timeout    time.Duration
}

// HiringCafeClient pages through hiring.cafe search results.
type HiringCafeClient struct {
	cfg    HiringCafeConfig
	client *http.Client
	pacer  *ratelimit.Pacer
	logger *slog.Logger
}

// NewHiringCafeClient creates a client. Zero config values get defaults.
func NewHiringCafeClient(cfg HiringCafeConfig, client *http.Client, pacer *ratelimit.Pacer, logger *slog.Logger) *HiringCafeClient {
	if cfg.URL == "" {
		cfg.URL = hiringCafeURL
	}
	if cfg.DateFilter == "" {
		cfg.DateFilter = "1_week"
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 5
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &HiringCafeClient{cfg: cfg, client: client, pacer: pacer, logger: logger}
}

// Unit returns the single hiring.cafe unit. Pages fetched by a failed attempt
// are kept, so a retry resumes at the page that failed.
func (c *HiringCafeClient) Unit() Unit {
	var (
		collected []Record
		next      int
		done      bool
	)
	return Unit{
		Name:   "hiring_cafe",
		Source: "hiring_cafe",
		Fetch: func(ctx context.Context, attempt int) ([]Record, error) {
			for !done && next < c.cfg.MaxPages {
				page, err := c.FetchPage(ctx, next, attempt)
				if err != nil {
					return nil, err
				}
				if len(page) == 0 {
					// An empty first page is retried; a later one ends the listing.
					done = next > 0
					break
				}
				c.logger.Debug("hiring cafe page", "page", next, "results", len(page))
				collected = append(collected, page...)
				next++
			}
			return collected, nil
		},
	}
}

type hiringCafeResponse struct {
	Results []HiringCafeRecord `json:"results"`
}

// FetchPage fetches one zero-based results page.
func (c *HiringCafeClient) FetchPage(ctx context.Context, page, attempt int) ([]Record, error) {
	if err := c.pacer.Wait(ctx, "hiring_cafe"); err != nil {
		return nil, err
	}

	body, err := json.Marshal(c.payload(page))
	if err != nil {
		return nil, fmt.Errorf("hiring cafe page %d: %w", page, err)
	}

	ctx, cancel := attemptTimeout(ctx, c.cfg.Timeout, attempt)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("hiring cafe page %d: %w", page, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", "https://hiring.cafe")
	req.Header.Set("Referer", "https://hiring.cafe/")

	var resp hiringCafeResponse
	if err := doJSON(c.client, req, fmt.Sprintf("hiring cafe page %d", page), &resp); err != nil {
		return nil, err
	}

	recs := make([]Record, len(resp.Results))
	for i, r := range resp.Results {
		recs[i] = r
	}
	return recs, nil
}

func (c *HiringCafeClient) payload(page int) map[string]any {
	return map[string]any{
		"size": c.cfg.PageSize,
		"page": page,
		"searchState": map[string]any{
			"searchQuery":                  c.cfg.Query,
			"jobTitleQuery":                `("developer" OR "engineer" OR "scientist")`,
			"commitmentTypes":              []string{"Full Time"},
			"seniorityLevel":               []string{"Entry Level", "No Prior Experience Required"},
			"departments":                  []string{},
			"bachelorsDegreeRequirements":  []string{"Required"},
			"mastersDegreeRequirements":    []string{"Required", "Preferred", "Not Mentioned"},
			"languageRequirements":         []string{"english", "italian"},
			"languageRequirementsOperator": "OR",
			"dateFetchedPastNDays":         hiringCafeDateFilters[c.cfg.DateFilter],
			"locations": []map[string]any{{
				"formatted_address":  "Italy",
				"types":              []string{"country"},
				"address_components": []map[string]any{{"long_name": "Italy", "short_name": "IT", "types": []string{"country"}}},
				"options":            map[string]any{"flexible_regions": []string{"anywhere_in_continent", "anywhere_in_world"}},
			}},
			"sortBy": "default",
		},
	}
}
