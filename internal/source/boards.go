package source

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/amishk599/jobsync/internal/model"
	"github.com/amishk599/jobsync/internal/ratelimit"
)

const (
	greenhouseBaseURL = "https://boards-api.greenhouse.io/v1/boards"
	leverBaseURL      = "https://api.lever.co/v0/postings"
	ashbyBaseURL      = "https://api.ashbyhq.com/posting-api/job-board"
	gemBaseURL        = "https://api.gem.com/job_board/v0"
)

// Board is one company career board on a supported ATS.
type Board struct {
	Name  string // company display name
	ATS   string // one of SupportedATS
	Token string // board token or company slug
}

// SupportedATS lists the board types BoardClient can fetch.
var SupportedATS = []string{"greenhouse", "lever", "ashby", "gem"}

// BoardClient fetches company boards from the public ATS APIs.
type BoardClient struct {
	client  *http.Client
	pacer   *ratelimit.Pacer
	timeout time.Duration

	greenhouseURL string
	leverURL      string
	ashbyURL      string
	gemURL        string
}

// NewBoardClient creates a client for all supported ATS boards.
func NewBoardClient(client *http.Client, pacer *ratelimit.Pacer, timeout time.Duration) *BoardClient {
	return &BoardClient{
		client:        client,
		pacer:         pacer,
		timeout:       timeout,
		greenhouseURL: greenhouseBaseURL,
		leverURL:      leverBaseURL,
		ashbyURL:      ashbyBaseURL,
		gemURL:        gemBaseURL,
	}
}

// Unit returns the fetch unit for b.
func (c *BoardClient) Unit(b Board) (Unit, error) {
	var fetch func(ctx context.Context, b Board) ([]Record, error)
	switch b.ATS {
	case "greenhouse":
		fetch = c.FetchGreenhouse
	case "lever":
		fetch = c.FetchLever
	case "ashby":
		fetch = c.FetchAshby
	case "gem":
		fetch = c.FetchGem
	default:
		return Unit{}, fmt.Errorf("unsupported ats %q for %s", b.ATS, b.Name)
	}
	return Unit{
		Name:   b.ATS + ":" + b.Token,
		Source: b.ATS,
		Fetch: func(ctx context.Context, attempt int) ([]Record, error) {
			if err := c.pacer.Wait(ctx, b.ATS); err != nil {
				return nil, err
			}
			ctx, cancel := attemptTimeout(ctx, c.timeout, attempt)
			defer cancel()
			return fetch(ctx, b)
		},
	}, nil
}

func (c *BoardClient) get(ctx context.Context, url, what string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return doJSON(c.client, req, what, out)
}

// GreenhouseRecord is one job from a Greenhouse board with content included.
type GreenhouseRecord struct {
	Board          string `json:"-"`
	Company        string `json:"-"`
	ID             int64  `json:"id"`
	Title          string `json:"title"`
	AbsoluteURL    string `json:"absolute_url"`
	UpdatedAt      string `json:"updated_at"`
	FirstPublished string `json:"first_published"`
	Content        string `json:"content"`
	Location       struct {
		Name string `json:"name"`
	} `json:"location"`
	Departments []struct {
		Name string `json:"name"`
	} `json:"departments"`
}

func (GreenhouseRecord) sourceRecord() {}

func (r GreenhouseRecord) JobRecord() model.JobRecord {
	depts := make([]string, len(r.Departments))
	for i, d := range r.Departments {
		depts[i] = d.Name
	}
	return model.JobRecord{
		ID:          fmt.Sprintf("gh-%s-%d", r.Board, r.ID),
		Site:        "greenhouse",
		JobURL:      r.AbsoluteURL,
		Title:       r.Title,
		Company:     r.Company,
		Location:    r.Location.Name,
		DatePosted:  datePart(firstNonEmpty(r.FirstPublished, r.UpdatedAt)),
		JobFunction: joinNonEmpty("; ", depts...),
		Description: extractText(r.Content),
	}
}

// FetchGreenhouse retrieves every job on a Greenhouse board.
func (c *BoardClient) FetchGreenhouse(ctx context.Context, b Board) ([]Record, error) {
	var resp struct {
		Jobs []GreenhouseRecord `json:"jobs"`
	}
	url := fmt.Sprintf("%s/%s/jobs?content=true", c.greenhouseURL, b.Token)
	if err := c.get(ctx, url, "greenhouse fetch for "+b.Token, &resp); err != nil {
		return nil, err
	}

	recs := make([]Record, len(resp.Jobs))
	for i, j := range resp.Jobs {
		j.Board, j.Company = b.Token, b.Name
		recs[i] = j
	}
	return recs, nil
}

// LeverRecord is one posting from the Lever postings API.
type LeverRecord struct {
	Slug             string `json:"-"`
	Company          string `json:"-"`
	ID               string `json:"id"`
	Text             string `json:"text"`
	DescriptionPlain string `json:"descriptionPlain"`
	AdditionalPlain  string `json:"additionalPlain"`
	Lists            []struct {
		Text    string `json:"text"`
		Content string `json:"content"`
	} `json:"lists"`
	Categories struct {
		Team         string   `json:"team"`
		Department   string   `json:"department"`
		Location     string   `json:"location"`
		Commitment   string   `json:"commitment"`
		AllLocations []string `json:"allLocations"`
	} `json:"categories"`
	SalaryRange *struct {
		Min      *float64 `json:"min"`
		Max      *float64 `json:"max"`
		Currency string   `json:"currency"`
		Interval string   `json:"interval"`
	} `json:"salaryRange"`
	CreatedAt     int64  `json:"createdAt"`
	WorkplaceType string `json:"workplaceType"`
	HostedURL     string `json:"hostedUrl"`
	ApplyURL      string `json:"applyUrl"`
}

func (LeverRecord) sourceRecord() {}

func (r LeverRecord) JobRecord() model.JobRecord {
	// Prefer allLocations if available, fallback to location.
	location := r.Categories.Location
	if len(r.Categories.AllLocations) > 0 {
		location = strings.Join(r.Categories.AllLocations, ", ")
	}

	parts := []string{r.DescriptionPlain}
	for _, l := range r.Lists {
		parts = append(parts, l.Text+"\n"+extractText(l.Content))
	}
	parts = append(parts, r.AdditionalPlain)

	rec := model.JobRecord{
		ID:               fmt.Sprintf("lever-%s-%s", r.Slug, r.ID),
		Site:             "lever",
		JobURL:           r.HostedURL,
		JobURLDirect:     r.ApplyURL,
		Title:            r.Text,
		Company:          r.Company,
		Location:         location,
		JobType:          strings.ToLower(r.Categories.Commitment),
		JobFunction:      joinNonEmpty("; ", r.Categories.Department, r.Categories.Team),
		Description:      joinNonEmpty("\n\n", parts...),
		WorkFromHomeType: r.WorkplaceType,
	}
	if r.WorkplaceType != "" {
		rec.IsRemote = boolPtr(r.WorkplaceType == "remote")
	}
	if r.CreatedAt > 0 {
		rec.DatePosted = time.UnixMilli(r.CreatedAt).UTC().Format(model.DateLayout)
	}
	if s := r.SalaryRange; s != nil {
		rec.MinAmount, rec.MaxAmount = s.Min, s.Max
		rec.Currency = s.Currency
		rec.Interval = strings.ToLower(strings.TrimPrefix(s.Interval, "per-"))
	}
	return rec
}

// FetchLever retrieves every posting for a Lever company.
func (c *BoardClient) FetchLever(ctx context.Context, b Board) ([]Record, error) {
	var postings []LeverRecord
	url := fmt.Sprintf("%s/%s?mode=json", c.leverURL, b.Token)
	if err := c.get(ctx, url, "lever fetch for "+b.Token, &postings); err != nil {
		return nil, err
	}

	recs := make([]Record, len(postings))
	for i, p := range postings {
		p.Slug, p.Company = b.Token, b.Name
		recs[i] = p
	}
	return recs, nil
}

// AshbyRecord is one job from an Ashby job board.
type AshbyRecord struct {
	Board            string `json:"-"`
	Company          string `json:"-"`
	ID               string `json:"id"`
	Title            string `json:"title"`
	Department       string `json:"department"`
	Team             string `json:"team"`
	EmploymentType   string `json:"employmentType"`
	Location         string `json:"location"`
	IsRemote         *bool  `json:"isRemote"`
	WorkplaceType    string `json:"workplaceType"`
	DescriptionHTML  string `json:"descriptionHtml"`
	DescriptionPlain string `json:"descriptionPlain"`
	PublishedAt      string `json:"publishedAt"`
	JobURL           string `json:"jobUrl"`
	ApplyURL         string `json:"applyUrl"`
	IsListed         bool   `json:"isListed"`
}

func (AshbyRecord) sourceRecord() {}

func (r AshbyRecord) JobRecord() model.JobRecord {
	desc := r.DescriptionPlain
	if desc == "" {
		desc = extractText(r.DescriptionHTML)
	}
	return model.JobRecord{
		ID:               fmt.Sprintf("ashby-%s-%s", r.Board, r.ID),
		Site:             "ashby",
		JobURL:           r.JobURL,
		JobURLDirect:     r.ApplyURL,
		Title:            r.Title,
		Company:          r.Company,
		Location:         r.Location,
		DatePosted:       datePart(r.PublishedAt),
		JobType:          strings.ToLower(r.EmploymentType),
		IsRemote:         r.IsRemote,
		JobFunction:      joinNonEmpty("; ", r.Department, r.Team),
		Description:      desc,
		WorkFromHomeType: r.WorkplaceType,
	}
}

// FetchAshby retrieves the listed jobs on an Ashby board.
func (c *BoardClient) FetchAshby(ctx context.Context, b Board) ([]Record, error) {
	var resp struct {
		Jobs []AshbyRecord `json:"jobs"`
	}
	url := fmt.Sprintf("%s/%s", c.ashbyURL, b.Token)
	if err := c.get(ctx, url, "ashby fetch for "+b.Token, &resp); err != nil {
		return nil, err
	}

	recs := make([]Record, 0, len(resp.Jobs))
	for _, j := range resp.Jobs {
		if !j.IsListed {
			continue
		}
		j.Board, j.Company = b.Token, b.Name
		recs = append(recs, j)
	}
	return recs, nil
}

// GemRecord is one post from a Gem job board.
type GemRecord struct {
	Board          string `json:"-"`
	Company        string `json:"-"`
	ID             string `json:"id"`
	Title          string `json:"title"`
	AbsoluteURL    string `json:"absolute_url"`
	FirstPublished string `json:"first_published_at"`
	UpdatedAt      string `json:"updated_at"`
	Content        string `json:"content"`
	ContentPlain   string `json:"content_plain"`
	Location       struct {
		Name string `json:"name"`
	} `json:"location"`
}

func (GemRecord) sourceRecord() {}

func (r GemRecord) JobRecord() model.JobRecord {
	desc := strings.TrimSpace(r.ContentPlain)
	if desc == "" {
		desc = extractText(r.Content)
	}
	return model.JobRecord{
		ID:          fmt.Sprintf("gem-%s-%s", r.Board, r.ID),
		Site:        "gem",
		JobURL:      r.AbsoluteURL,
		Title:       r.Title,
		Company:     r.Company,
		Location:    r.Location.Name,
		DatePosted:  datePart(firstNonEmpty(r.FirstPublished, r.UpdatedAt)),
		Description: desc,
	}
}

// FetchGem retrieves every post on a Gem board.
func (c *BoardClient) FetchGem(ctx context.Context, b Board) ([]Record, error) {
	var posts []GemRecord
	url := fmt.Sprintf("%s/%s/job_posts/", c.gemURL, b.Token)
	if err := c.get(ctx, url, "gem fetch for "+b.Token, &posts); err != nil {
		return nil, err
	}

	recs := make([]Record, len(posts))
	for i, p := range posts {
		p.Board, p.Company = b.Token, b.Name
		recs[i] = p
	}
	return recs, nil
}
