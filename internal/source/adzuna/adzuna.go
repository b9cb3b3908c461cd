package adzuna

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/source"
)

// provider caps results_per_page at 50
const maxLimit = 50

type Config struct {
	AppID   string
	AppKey  string
	Country string // "fr", "gb", ...
}

type Connector struct {
	cfg     Config
	hc      *http.Client
	limiter *source.HostLimiter
}

func New(cfg Config, limiter *source.HostLimiter) *Connector {
	if cfg.Country == "" {
		cfg.Country = "fr"
	}
	return &Connector{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (c *Connector) Name() string { return "adzuna" }

type result struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Company struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	ContractType string `json:"contract_type"`
	RedirectURL  string `json:"redirect_url"`
	ContactEmail string `json:"contact_email"`
}

type searchResponse struct {
	Results []result `json:"results"`
}

func (c *Connector) Fetch(ctx context.Context, q source.Query) ([]domain.Job, error) {
	if c.cfg.AppID == "" || c.cfg.AppKey == "" {
		return nil, fmt.Errorf("adzuna credentials not configured")
	}

	limit := q.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	params := url.Values{}
	params.Set("app_id", c.cfg.AppID)
	params.Set("app_key", c.cfg.AppKey)
	params.Set("results_per_page", fmt.Sprint(limit))
	if q.Title != "" {
		params.Set("what", q.Title)
	}
	if q.Location != "" && !domain.IsLocationWildcard(q.Location) {
		params.Set("where", q.Location)
	}

	u := fmt.Sprintf("https://api.adzuna.com/v1/api/jobs/%s/search/1?%s", c.cfg.Country, params.Encode())
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("Accept", "application/json")

	if err := c.limiter.WaitURL(ctx, u); err != nil {
		return nil, err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("adzuna search: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("adzuna search status %d", res.StatusCode)
	}

	var sr searchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("adzuna decode: %w", err)
	}

	out := make([]domain.Job, 0, len(sr.Results))
	for _, r := range sr.Results {
		if r.ID == "" || strings.TrimSpace(r.Title) == "" {
			continue
		}
		out = append(out, domain.Job{
			ExternalID:   "adzuna:" + r.ID,
			Source:       c.Name(),
			CompanyName:  strings.TrimSpace(r.Company.DisplayName),
			Title:        strings.TrimSpace(r.Title),
			Location:     strings.TrimSpace(r.Location.DisplayName),
			ContractType: domain.ContractFromSource(c.Name(), r.ContractType),
			TargetEmail:  strings.TrimSpace(r.ContactEmail),
			TargetURL:    strings.TrimSpace(r.RedirectURL),
		})
	}
	return out, nil
}
