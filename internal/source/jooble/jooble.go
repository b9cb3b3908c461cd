package jooble

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/source"
)

// provider returns at most 100 jobs per page
const maxLimit = 100

type Config struct {
	APIKey  string
	BaseURL string // override in tests; defaults to the public API
}

type Connector struct {
	cfg     Config
	hc      *http.Client
	limiter *source.HostLimiter
}

func New(cfg Config, limiter *source.HostLimiter) *Connector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://jooble.org"
	}
	return &Connector{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (c *Connector) Name() string { return "jooble" }

type request struct {
	Keywords     string `json:"keywords"`
	Location     string `json:"location,omitempty"`
	Page         int    `json:"page"`
	ResultOnPage int    `json:"ResultOnPage,omitempty"`
}

type posting struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	Type     string `json:"type"`
	Link     string `json:"link"`
	Email    string `json:"email"`
}

type response struct {
	TotalCount int       `json:"totalCount"`
	Jobs       []posting `json:"jobs"`
}

func (c *Connector) Fetch(ctx context.Context, q source.Query) ([]domain.Job, error) {
	if c.cfg.APIKey == "" {
		return nil, fmt.Errorf("jooble api key not configured")
	}

	limit := q.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	body := request{Keywords: q.Title, Page: 1, ResultOnPage: limit}
	if q.Location != "" && !domain.IsLocationWildcard(q.Location) {
		body.Location = q.Location
	}
	payload, _ := json.Marshal(body)

	u := c.cfg.BaseURL + "/api/" + c.cfg.APIKey
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	if err := c.limiter.WaitURL(ctx, u); err != nil {
		return nil, err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jooble search: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("jooble search status %d", res.StatusCode)
	}

	var sr response
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("jooble decode: %w", err)
	}

	out := make([]domain.Job, 0, len(sr.Jobs))
	for _, p := range sr.Jobs {
		if p.ID == 0 || strings.TrimSpace(p.Title) == "" {
			continue
		}
		out = append(out, domain.Job{
			ExternalID:   fmt.Sprintf("jooble:%d", p.ID),
			Source:       c.Name(),
			CompanyName:  strings.TrimSpace(p.Company),
			Title:        strings.TrimSpace(p.Title),
			Location:     strings.TrimSpace(p.Location),
			ContractType: domain.ContractFromSource(c.Name(), p.Type),
			TargetEmail:  strings.TrimSpace(p.Email),
			TargetURL:    strings.TrimSpace(p.Link),
		})
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}
