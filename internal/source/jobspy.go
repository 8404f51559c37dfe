package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/amishk599/jobsync/internal/filter"
	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/ratelimit"
)

// JobSpyRecord is one posting as returned by the jobspy-api service.
type JobSpyRecord struct {
	ID                  string     `json:"id"`
	Site                string     `json:"site"`
	JobURL              string     `json:"job_url"`
	JobURLDirect        string     `json:"job_url_direct"`
	Title               string     `json:"title"`
	Company             string     `json:"company"`
	Location            string     `json:"location"`
	DatePosted          string     `json:"date_posted"`
	JobType             textList   `json:"job_type"`
	Interval            string     `json:"interval"`
	MinAmount           *float64   `json:"min_amount"`
	MaxAmount           *float64   `json:"max_amount"`
	Currency            string     `json:"currency"`
	IsRemote            *bool      `json:"is_remote"`
	JobLevel            string     `json:"job_level"`
	JobFunction         string     `json:"job_function"`
	Emails              textList   `json:"emails"`
	Description         string     `json:"description"`
	CompanyURL          string     `json:"company_url"`
	CompanyLogo         string     `json:"company_logo"`
	CompanyNumEmployees flexString `json:"company_num_employees"`
	CompanyRevenue      flexString `json:"company_revenue"`
	CompanyDescription  string     `json:"company_description"`
	CompanyIndustry     string     `json:"company_industry"`
	Skills              textList   `json:"skills"`
	WorkFromHomeType    string     `json:"work_from_home_type"`
}

func (JobSpyRecord) sourceRecord() {}

func (r JobSpyRecord) JobRecord() model.JobRecord {
	return model.JobRecord{
		ID:                  r.ID,
		Site:                r.Site,
		JobURL:              r.JobURL,
		JobURLDirect:        r.JobURLDirect,
		Title:               r.Title,
		Company:             r.Company,
		Location:            r.Location,
		DatePosted:          datePart(r.DatePosted),
		JobType:             r.JobType.join(", "),
		Interval:            r.Interval,
		MinAmount:           r.MinAmount,
		MaxAmount:           r.MaxAmount,
		Currency:            r.Currency,
		IsRemote:            r.IsRemote,
		JobLevel:            r.JobLevel,
		JobFunction:         r.JobFunction,
		Emails:              r.Emails.join(", "),
		Description:         extractText(r.Description),
		CompanyURL:          r.CompanyURL,
		CompanyLogo:         r.CompanyLogo,
		CompanyNumEmployees: string(r.CompanyNumEmployees),
		CompanyRevenue:      string(r.CompanyRevenue),
		CompanyDescription:  r.CompanyDescription,
		CompanyIndustries:   r.CompanyIndustry,
		Skills:              r.Skills.join(", "),
		WorkFromHomeType:    r.WorkFromHomeType,
	}
}

type jobSpyResponse struct {
	Count int            `json:"count"`
	Jobs  []JobSpyRecord `json:"jobs"`
}

// JobSpyConfig configures the jobspy-api client.
type JobSpyConfig struct {
	BaseURL       string
	APIKey        string
	Sites         []string // queried with the full location
	Glassdoor     bool     // also query glassdoor with the city alone
	CountryIndeed string
	Countries     []string // country names accepted by the glassdoor guard
	Distance      int
	Timeout       time.Duration
}

// JobSpyClient searches Indeed, LinkedIn and Glassdoor through jobspy-api.
type JobSpyClient struct {
	cfg    JobSpyConfig
	client *http.Client
	pacer  *ratelimit.Pacer
	logger *slog.Logger
}

// NewJobSpyClient creates a client. Zero config values get defaults.
func NewJobSpyClient(cfg JobSpyConfig, client *http.Client, pacer *ratelimit.Pacer, logger *slog.Logger) *JobSpyClient {
	if len(cfg.Sites) == 0 {
		cfg.Sites = []string{"indeed", "linkedin"}
	}
	if cfg.Distance == 0 {
		cfg.Distance = 50
	}
	if len(cfg.Countries) == 0 {
		cfg.Countries = []string{"italy", "italia"}
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &JobSpyClient{cfg: cfg, client: client, pacer: pacer, logger: logger}
}

// Units returns one unit per location.
func (c *JobSpyClient) Units(p Params, locations []string) []Unit {
	units := make([]Unit, 0, len(locations))
	for _, loc := range locations {
		units = append(units, Unit{
			Name:   "jobspy:" + loc,
			Source: "jobspy",
			Fetch: func(ctx context.Context, attempt int) ([]Record, error) {
				return c.Search(ctx, p, loc, attempt)
			},
		})
	}
	return units
}

// Search queries the configured sites for location, then glassdoor for the
// city alone. Glassdoor results outside the city or country are dropped.
func (c *JobSpyClient) Search(ctx context.Context, p Params, location string, attempt int) ([]Record, error) {
	jobs, err := c.search(ctx, p, c.cfg.Sites, location, c.cfg.CountryIndeed, attempt)
	if err != nil {
		return nil, err
	}

	if c.cfg.Glassdoor {
		city := strings.TrimSpace(strings.Split(location, ",")[0])
		gd, err := c.search(ctx, p, []string{"glassdoor"}, city, "", attempt)
		if err != nil {
			return nil, err
		}
		guard := filter.NewLocationGuard(city, c.cfg.Countries...)
		kept := 0
		for _, j := range gd {
			if guard.Match(j.JobRecord()) {
				jobs = append(jobs, j)
				kept++
			}
		}
		c.logger.Debug("glassdoor location guard", "location", location, "fetched", len(gd), "kept", kept)
	}

	recs := make([]Record, len(jobs))
	for i, j := range jobs {
		recs[i] = j
	}
	return recs, nil
}

func (c *JobSpyClient) search(ctx context.Context, p Params, sites []string, location, country string, attempt int) ([]JobSpyRecord, error) {
	if err := c.pacer.Wait(ctx, "jobspy"); err != nil {
		return nil, err
	}

	q := url.Values{}
	for _, s := range sites {
		q.Add("site_name", s)
	}
	q.Set("search_term", p.Query)
	q.Set("location", location)
	q.Set("distance", strconv.Itoa(c.cfg.Distance))
	q.Set("job_type", "fulltime")
	q.Set("is_remote", "false")
	q.Set("linkedin_fetch_description", "true")
	q.Set("description_format", "markdown")
	if p.ResultsWanted > 0 {
		q.Set("results_wanted", strconv.Itoa(p.ResultsWanted))
	}
	if p.HoursOld > 0 {
		q.Set("hours_old", strconv.Itoa(p.HoursOld))
	}
	if country != "" {
		q.Set("country_indeed", country)
	}

	ctx, cancel := attemptTimeout(ctx, c.cfg.Timeout, attempt)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/api/v1/search_jobs?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("jobspy search for %s: %w", location, err)
	}
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	var resp jobSpyResponse
	if err := doJSON(c.client, req, "jobspy search for "+location, &resp); err != nil {
		return nil, err
	}
	return resp.Jobs, nil
}
