package hellowork

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autoapply-engine/internal/domain"
	"autoapply-engine/internal/source"

	"github.com/PuerkitoBio/goquery"
)

// HelloWork exposes no JSON API; listings are scraped off the search page.
// Contact emails, when a recruiter publishes one, appear as mailto: links
// inside the offer card.

// the search page serves 20 offers per page
const maxLimit = 20

type Config struct {
	BaseURL string // override in tests; defaults to the public site
}

type Connector struct {
	cfg     Config
	hc      *http.Client
	limiter *source.HostLimiter
}

func New(cfg Config, limiter *source.HostLimiter) *Connector {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://www.hellowork.com"
	}
	return &Connector{
		cfg:     cfg,
		hc:      &http.Client{Timeout: 20 * time.Second},
		limiter: limiter,
	}
}

func (c *Connector) Name() string { return "hellowork" }

func (c *Connector) Fetch(ctx context.Context, q source.Query) ([]domain.Job, error) {
	limit := q.Limit
	if limit <= 0 || limit > maxLimit {
		limit = maxLimit
	}

	params := url.Values{}
	if q.Title != "" {
		params.Set("k", q.Title)
	}
	if q.Location != "" && !domain.IsLocationWildcard(q.Location) {
		params.Set("l", q.Location)
	}

	u := c.cfg.BaseURL + "/fr-fr/emploi/recherche.html?" + params.Encode()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	req.Header.Set("User-Agent", "AutoApply/1.0 (+local)")

	if err := c.limiter.WaitURL(ctx, u); err != nil {
		return nil, err
	}
	res, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("hellowork get: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode >= 400 {
		return nil, fmt.Errorf("hellowork status %d", res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return nil, fmt.Errorf("hellowork parse: %w", err)
	}

	seen := map[string]bool{}
	var out []domain.Job

	doc.Find("[data-offer-id]").EachWithBreak(func(_ int, card *goquery.Selection) bool {
		id, ok := card.Attr("data-offer-id")
		id = strings.TrimSpace(id)
		if !ok || id == "" || seen[id] {
			return true
		}
		seen[id] = true

		title := cleanText(card.Find("h3, .offer--title").First().Text())
		if title == "" {
			return true
		}

		href, _ := card.Find("a[href]").First().Attr("href")
		abs := strings.TrimSpace(href)
		if strings.HasPrefix(abs, "/") {
			abs = c.cfg.BaseURL + abs
		}

		email := ""
		card.Find("a[href^='mailto:']").EachWithBreak(func(_ int, a *goquery.Selection) bool {
			if m, ok := a.Attr("href"); ok {
				email = strings.TrimSpace(strings.TrimPrefix(m, "mailto:"))
				// strip ?subject=... tails
				if i := strings.IndexByte(email, '?'); i >= 0 {
					email = email[:i]
				}
				return false
			}
			return true
		})

		out = append(out, domain.Job{
			ExternalID:   "hellowork:" + id,
			Source:       c.Name(),
			CompanyName:  cleanText(card.Find(".offer--company, [data-company]").First().Text()),
			Title:        title,
			Location:     cleanText(card.Find(".offer--location, [data-location]").First().Text()),
			ContractType: domain.ParseContractText(cleanText(card.Find(".offer--contract, .tag--contract").First().Text())),
			TargetEmail:  email,
			TargetURL:    abs,
		})
		return len(out) < limit
	})

	return out, nil
}

func cleanText(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	s = strings.Join(strings.Fields(s), " ")
	return strings.TrimSpace(s)
}
